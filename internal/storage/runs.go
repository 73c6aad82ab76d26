package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fapiaowuyou/fapiao-recon/internal/model"
)

// Run summarizes one completed reconciliation.
type Run struct {
	StartedAt   time.Time
	FinishedAt  time.Time
	ID          string
	Inputs      []string
	ReportPath  string
	RowCount    int
	TotalAmount float64
}

// SaveRun stores a run and its result rows atomically.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run Run, rows []model.ResultRow, missing []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if run.ID == "" {
		return fmt.Errorf("run ID must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, inputs, row_count, total_amount, report_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt, strings.Join(run.Inputs, "\n"),
		run.RowCount, run.TotalAmount, run.ReportPath)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO result_rows (run_id, seq, invoice_number, invoice_date, seller, amount, source, note, filename)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, run.ID, r.Seq, r.Number, r.Date, r.Seller,
			r.Amount, string(r.Source), r.Note, r.Filename); err != nil {
			return fmt.Errorf("failed to insert result row: %w", err)
		}
	}

	for _, name := range missing {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO missing_files (run_id, filename, reason) VALUES (?, ?, ?)`,
			run.ID, name, "未在汇总表中核验"); err != nil {
			return fmt.Errorf("failed to insert missing file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, inputs, row_count, total_amount, COALESCE(report_path, '')
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var r Run
		var inputs string
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &inputs,
			&r.RowCount, &r.TotalAmount, &r.ReportPath); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		if inputs != "" {
			r.Inputs = strings.Split(inputs, "\n")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRows returns the result rows of one run in sequence order.
func (s *SQLiteStorage) GetRows(ctx context.Context, runID string) ([]model.ResultRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, invoice_number, invoice_date, seller, amount, source, note, filename
		FROM result_rows WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query result rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ResultRow
	for rows.Next() {
		var r model.ResultRow
		var source string
		if err := rows.Scan(&r.Seq, &r.Number, &r.Date, &r.Seller,
			&r.Amount, &source, &r.Note, &r.Filename); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		r.Source = model.SourceKind(source)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetMissing returns the filenames recorded as unverified for one run.
func (s *SQLiteStorage) GetMissing(ctx context.Context, runID string) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT filename FROM missing_files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan missing file: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
