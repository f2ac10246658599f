// Package importer orchestrates the bulk attendance pipeline: read the
// uploaded workbook, validate rows, group them into daily batches, submit to
// the CRM service and record the run in the local audit trail.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vehware/attendance-console/internal/attendance"
	"github.com/vehware/attendance-console/internal/crm"
	"github.com/vehware/attendance-console/internal/repository"
	"github.com/vehware/attendance-console/internal/sheet"
)

// ErrImportInFlight is returned when a submission is already running. One
// upload at a time: a duplicate concurrent submission would create duplicate
// attendance records downstream, and the service never auto-retries.
var ErrImportInFlight = errors.New("an import is already in progress")

// BatchSubmitter submits one daily batch to the CRM service.
type BatchSubmitter interface {
	SubmitBatch(ctx context.Context, session crm.Session, payload attendance.BatchPayload) (*attendance.SubmissionOutcome, error)
}

// RunStore records import runs in the audit trail.
type RunStore interface {
	Create(ctx context.Context, run *repository.ImportRun) error
}

// Result is the outcome of one import action.
type Result struct {
	RunID     int64             `json:"runId"`
	TotalRows int               `json:"totalRows"`
	ValidRows int               `json:"validRows"`
	Dates     []string          `json:"dates"`
	Report    attendance.Report `json:"report"`
}

// PreviewRow is one valid row decoded for display.
type PreviewRow struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	Date     string `json:"date"`
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
}

// Preview shows what an upload would submit, without submitting it.
type Preview struct {
	Header    []string     `json:"header"`
	TotalRows int          `json:"totalRows"`
	Rows      []PreviewRow `json:"rows"`
}

// Service runs the import pipeline.
type Service struct {
	formatter *attendance.Formatter
	submitter BatchSubmitter
	runs      RunStore
	logger    *zap.Logger

	mu sync.Mutex // held for the duration of one import
}

// NewService creates an import service.
func NewService(formatter *attendance.Formatter, submitter BatchSubmitter, runs RunStore, logger *zap.Logger) *Service {
	return &Service{
		formatter: formatter,
		submitter: submitter,
		runs:      runs,
		logger:    logger,
	}
}

// Import runs the full pipeline for one uploaded file. At most one import is
// in flight at a time; a concurrent call fails fast with ErrImportInFlight.
func (s *Service) Import(ctx context.Context, session crm.Session, fileName string, data []byte) (*Result, error) {
	if !s.mu.TryLock() {
		return nil, ErrImportInFlight
	}
	defer s.mu.Unlock()

	workbook, err := sheet.ReadWorkbook(fileName, data)
	if err != nil {
		return nil, err
	}

	records := attendance.ValidateRows(workbook.Rows)
	payloads, err := s.formatter.Format(records)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Starting attendance import",
		zap.String("file", fileName),
		zap.Int("total_rows", len(workbook.Rows)),
		zap.Int("valid_rows", len(records)),
		zap.Int("batches", len(payloads)))

	var outcome attendance.SubmissionOutcome
	var dates []string
	for _, payload := range payloads {
		dates = append(dates, payload.Date)

		batchOutcome, err := s.submitter.SubmitBatch(ctx, session, payload)
		if err != nil {
			// Transport or auth failure halts the action; record what
			// happened so the partial run is visible in the history.
			s.recordRun(fileName, dates, len(workbook.Rows), len(records), &outcome, "Failed")
			return nil, err
		}
		outcome.Merge(batchOutcome)
	}

	report := attendance.Summarize(&outcome)
	runID := s.recordRun(fileName, dates, len(workbook.Rows), len(records), &outcome, string(report.Status))

	return &Result{
		RunID:     runID,
		TotalRows: len(workbook.Rows),
		ValidRows: len(records),
		Dates:     dates,
		Report:    report,
	}, nil
}

// Preview parses and validates an upload without submitting anything, so the
// operator can see which rows survived filtering and how their serials
// decode. Rows dropped by validation are visible only by their absence here.
func (s *Service) Preview(fileName string, data []byte) (*Preview, error) {
	workbook, err := sheet.ReadWorkbook(fileName, data)
	if err != nil {
		return nil, err
	}

	records := attendance.ValidateRows(workbook.Rows)

	preview := &Preview{
		Header:    workbook.Header,
		TotalRows: len(workbook.Rows),
		Rows:      make([]PreviewRow, 0, len(records)),
	}
	for _, r := range records {
		preview.Rows = append(preview.Rows, PreviewRow{
			UserID:   r.UserID,
			UserType: r.UserType,
			Date:     r.Date,
			CheckIn:  displayTime(r.CheckInTime),
			CheckOut: displayTime(r.CheckOutTime),
		})
	}
	return preview, nil
}

func displayTime(serial float64) string {
	tod, err := sheet.DecodeTimeSerial(serial)
	if err != nil {
		return "Invalid Time"
	}
	return tod.String()
}

// recordRun writes the audit-trail entry. Audit failures are logged, never
// surfaced: the submission already happened and its outcome must reach the
// operator.
func (s *Service) recordRun(fileName string, dates []string, totalRows, validRows int, outcome *attendance.SubmissionOutcome, status string) int64 {
	detail, err := json.Marshal(outcome.Unsaved)
	if err != nil {
		detail = []byte("[]")
	}

	run := &repository.ImportRun{
		FileName:      fileName,
		BatchDates:    strings.Join(dates, ","),
		TotalRows:     totalRows,
		ValidRows:     validRows,
		SavedCount:    len(outcome.Saved),
		UnsavedCount:  len(outcome.Unsaved),
		Status:        status,
		UnsavedDetail: string(detail),
	}

	if err := s.runs.Create(context.Background(), run); err != nil {
		s.logger.Error("Failed to record import run", zap.Error(err))
		return 0
	}
	return run.ID
}
