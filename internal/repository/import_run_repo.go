// Package repository persists the local import audit trail. The remote CRM
// service owns the attendance data itself; this store only records what each
// upload did so operators can review past reconciliation runs.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrRunNotFound is returned when an import run does not exist
var ErrRunNotFound = errors.New("import run not found")

// ImportRun is one recorded upload: what was in the file, how much of it
// validated, and how the remote service judged each row.
type ImportRun struct {
	ID            int64     `json:"id"`
	FileName      string    `json:"fileName"`
	BatchDates    string    `json:"batchDates"` // comma-separated ISO dates
	TotalRows     int       `json:"totalRows"`
	ValidRows     int       `json:"validRows"`
	SavedCount    int       `json:"savedCount"`
	UnsavedCount  int       `json:"unsavedCount"`
	Status        string    `json:"status"`
	UnsavedDetail string    `json:"unsavedDetail"` // JSON array of {userId, reason}
	CreatedAt     time.Time `json:"createdAt"`
}

// ImportRunRepository stores import runs in SQLite.
type ImportRunRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewImportRunRepository creates a new import run repository
func NewImportRunRepository(db *sql.DB, logger *zap.Logger) *ImportRunRepository {
	return &ImportRunRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new import run and sets its ID.
func (r *ImportRunRepository) Create(ctx context.Context, run *ImportRun) error {
	query := `
		INSERT INTO import_runs (
			file_name, batch_dates, total_rows, valid_rows,
			saved_count, unsaved_count, status, unsaved_detail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		run.FileName,
		run.BatchDates,
		run.TotalRows,
		run.ValidRows,
		run.SavedCount,
		run.UnsavedCount,
		run.Status,
		run.UnsavedDetail,
	)
	if err != nil {
		r.logger.Error("Failed to create import run", zap.Error(err))
		return fmt.Errorf("failed to create import run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// GetByID retrieves one import run.
func (r *ImportRunRepository) GetByID(ctx context.Context, id int64) (*ImportRun, error) {
	query := `
		SELECT id, file_name, batch_dates, total_rows, valid_rows,
			saved_count, unsaved_count, status, unsaved_detail, created_at
		FROM import_runs
		WHERE id = ?
	`

	var run ImportRun
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.FileName,
		&run.BatchDates,
		&run.TotalRows,
		&run.ValidRows,
		&run.SavedCount,
		&run.UnsavedCount,
		&run.Status,
		&run.UnsavedDetail,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get import run", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}

	return &run, nil
}

// List retrieves import runs, newest first.
func (r *ImportRunRepository) List(ctx context.Context, limit, offset int) ([]*ImportRun, error) {
	query := `
		SELECT id, file_name, batch_dates, total_rows, valid_rows,
			saved_count, unsaved_count, status, unsaved_detail, created_at
		FROM import_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list import runs", zap.Error(err))
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}
	defer rows.Close()

	var runs []*ImportRun
	for rows.Next() {
		var run ImportRun
		err := rows.Scan(
			&run.ID,
			&run.FileName,
			&run.BatchDates,
			&run.TotalRows,
			&run.ValidRows,
			&run.SavedCount,
			&run.UnsavedCount,
			&run.Status,
			&run.UnsavedDetail,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}
