// Package http provides the HTTP adapter for the attendance console. It is a
// thin layer that translates operator requests into pipeline and editor
// calls; every business rule lives below it.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vehware/attendance-console/internal/crm"
	"github.com/vehware/attendance-console/internal/importer"
	"github.com/vehware/attendance-console/internal/repository"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// Server is the HTTP adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// NewServer creates the HTTP server with all routes wired.
func NewServer(
	config ServerConfig,
	importService *importer.Service,
	crmClient *crm.Client,
	runs *repository.ImportRunRepository,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	server := &Server{
		config: config,
		router: router,
		logger: logger,
	}

	router.Use(gin.Recovery())
	router.Use(server.loggingMiddleware())

	handlers := NewHandlers(importService, crmClient, runs, config.MaxUploadBytes, logger)

	router.GET("/health", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/attendance/import", handlers.ImportAttendance)
		api.POST("/attendance/import/preview", handlers.PreviewImport)

		api.POST("/employees/:id/attendance", handlers.AddSingleAttendance)
		api.PATCH("/employees/:id/attendance", handlers.UpdateSingleAttendance)
		api.GET("/employees/:id/attendance", handlers.GetEmployeeAttendance)

		api.GET("/imports", handlers.ListImportRuns)
		api.GET("/imports/:id", handlers.GetImportRun)
	}

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server
}

// Router exposes the gin engine, used by handler tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
