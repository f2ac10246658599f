package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vehware/attendance-console/internal/attendance"
	"github.com/vehware/attendance-console/internal/crm"
	"github.com/vehware/attendance-console/internal/editor"
	"github.com/vehware/attendance-console/internal/importer"
	"github.com/vehware/attendance-console/internal/repository"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	importService  *importer.Service
	crmClient      *crm.Client
	runs           *repository.ImportRunRepository
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	importService *importer.Service,
	crmClient *crm.Client,
	runs *repository.ImportRunRepository,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Handlers {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handlers{
		importService:  importService,
		crmClient:      crmClient,
		runs:           runs,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Fields  interface{} `json:"fields,omitempty"`
}

// singleAttendanceRequest is the body of both single-record endpoints.
type singleAttendanceRequest struct {
	Date     string `json:"date"`
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
	Absent   bool   `json:"absent"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":  "healthy",
			"service": "attendance-console",
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ImportAttendance handles POST /api/attendance/import. It runs the full
// pipeline for the uploaded workbook and returns the operator report.
func (h *Handlers) ImportAttendance(c *gin.Context) {
	session, ok := h.operatorSession(c)
	if !ok {
		return
	}

	fileName, data, ok := h.uploadedFile(c)
	if !ok {
		return
	}

	result, err := h.importService.Import(c.Request.Context(), session, fileName, data)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// PreviewImport handles POST /api/attendance/import/preview. Nothing is
// submitted; the operator sees which rows survived validation and how their
// serials decode.
func (h *Handlers) PreviewImport(c *gin.Context) {
	fileName, data, ok := h.uploadedFile(c)
	if !ok {
		return
	}

	preview, err := h.importService.Preview(fileName, data)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: preview})
}

// AddSingleAttendance handles POST /api/employees/:id/attendance.
func (h *Handlers) AddSingleAttendance(c *gin.Context) {
	h.runEditorSession(c, editor.ModeCreate)
}

// UpdateSingleAttendance handles PATCH /api/employees/:id/attendance.
func (h *Handlers) UpdateSingleAttendance(c *gin.Context) {
	h.runEditorSession(c, editor.ModeCorrect)
}

// runEditorSession drives one correction-dialog session end to end for a
// single request: open, optionally mark absent, save, close.
func (h *Handlers) runEditorSession(c *gin.Context, mode editor.Mode) {
	crmSession, ok := h.operatorSession(c)
	if !ok {
		return
	}

	var req singleAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	session := editor.NewSession(h.crmClient, h.logger)
	if err := session.Open(mode, c.Param("id"), editor.Form{
		Date:     req.Date,
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
	}); err != nil {
		h.fail(c, err)
		return
	}

	if req.Absent {
		if err := session.MarkAbsent(); err != nil {
			h.fail(c, err)
			return
		}
	}

	if err := session.Save(c.Request.Context(), crmSession); err != nil {
		h.fail(c, err)
		return
	}
	if err := session.Close(); err != nil {
		h.logger.Error("Failed to close editor session", zap.Error(err))
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"date":     req.Date,
		"checkIn":  req.CheckIn,
		"checkOut": req.CheckOut,
		"absent":   req.Absent,
	}})
}

// GetEmployeeAttendance handles GET /api/employees/:id/attendance.
func (h *Handlers) GetEmployeeAttendance(c *gin.Context) {
	session, ok := h.operatorSession(c)
	if !ok {
		return
	}

	rows, err := h.crmClient.GetAttendance(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"attendance": rows}})
}

// ListImportRuns handles GET /api/imports
func (h *Handlers) ListImportRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := h.runs.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list import runs"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: runs})
}

// GetImportRun handles GET /api/imports/:id
func (h *Handlers) GetImportRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid import run id"})
		return
	}

	run, err := h.runs.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "import run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to get import run"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: run})
}

// operatorSession extracts the operator's bearer token. The console holds no
// credentials of its own; every CRM call runs under the operator's token.
func (h *Handlers) operatorSession(c *gin.Context) (crm.Session, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "missing bearer token"})
		return crm.Session{}, false
	}
	return crm.Session{Token: token}, true
}

// uploadedFile reads the multipart "file" field, bounded by the configured
// upload limit.
func (h *Handlers) uploadedFile(c *gin.Context) (string, []byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "missing file upload"})
		return "", nil, false
	}
	if fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "file too large"})
		return "", nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "failed to open upload"})
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "failed to read upload"})
		return "", nil, false
	}

	return fileHeader.Filename, data, true
}

// fail maps pipeline and editor errors onto HTTP statuses. Every terminal
// state produces an explicit response; nothing fails silently.
func (h *Handlers) fail(c *gin.Context, err error) {
	var validationErr *editor.ValidationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   "validation failed",
			Fields:  validationErr.Fields,
		})
	case errors.Is(err, importer.ErrImportInFlight):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	case errors.Is(err, attendance.ErrEmptyBatch),
		errors.Is(err, attendance.ErrMixedDates):
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: err.Error()})
	case errors.Is(err, crm.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: err.Error()})
	case errors.Is(err, crm.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, Response{Success: false, Error: err.Error()})
	case errors.Is(err, crm.ErrUnavailable):
		c.JSON(http.StatusBadGateway, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	}
}
