package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/vehware/attendance-console/internal/attendance"
	"github.com/vehware/attendance-console/internal/config"
	"github.com/vehware/attendance-console/internal/crm"
	"github.com/vehware/attendance-console/internal/importer"
	"github.com/vehware/attendance-console/internal/interfaces/http"
	"github.com/vehware/attendance-console/internal/repository"
	"github.com/vehware/attendance-console/pkg/database"
	"github.com/vehware/attendance-console/pkg/utils"
)

func main() {
	// Load .env if present; real deployments set env vars directly
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting attendance console",
		zap.Int("port", cfg.Server.Port),
		zap.String("crm_base_url", cfg.CRM.BaseURL))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	runRepo := repository.NewImportRunRepository(db.DB, logger)

	crmClient := crm.NewClient(crm.Config{
		BaseURL: cfg.CRM.BaseURL,
		Timeout: cfg.CRM.Timeout,
	}, logger)

	policy, err := attendance.ParseMixedDatePolicy(cfg.Import.MixedDatePolicy)
	if err != nil {
		logger.Fatal("Invalid mixed date policy", zap.Error(err))
	}
	formatter := attendance.NewFormatter(policy)

	importService := importer.NewService(formatter, crmClient, runRepo, logger)

	server := http.NewServer(http.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxUploadBytes: cfg.Import.MaxUploadBytes,
	}, importService, crmClient, runRepo, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
