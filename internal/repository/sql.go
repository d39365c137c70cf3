package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/stack-analysis/pkg/model"
)

// Dialect selects the placeholder style and insert behavior of raw SQL.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectMySQL
)

// bind rewrites ? placeholders into the dialect's form.
func (d Dialect) bind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// SQLRunRepository implements RunRepository on database/sql for PostgreSQL
// and MySQL connections that are not managed through GORM.
type SQLRunRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLRunRepository creates a new SQLRunRepository.
func NewSQLRunRepository(db *sql.DB, dialect Dialect) *SQLRunRepository {
	return &SQLRunRepository{db: db, dialect: dialect}
}

const runColumns = `id, trace_id, status, COALESCE(status_info, ''), input_format, input_path,
	analyzers, formats, total_events, phases, create_time, begin_time, end_time`

// CreateRun inserts a run and sets its ID.
func (r *SQLRunRepository) CreateRun(ctx context.Context, run *model.Run) error {
	rec, err := NewRunRecord(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	query := `
		INSERT INTO runs (trace_id, status, status_info, input_format, input_path,
			analyzers, formats, total_events, phases, create_time, begin_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{
		rec.TraceID, rec.Status, rec.StatusInfo, rec.InputFormat, rec.InputPath,
		rec.Analyzers, rec.Formats, rec.TotalEvents, rec.Phases,
		rec.CreateTime, rec.BeginTime, rec.EndTime,
	}

	if r.dialect == DialectPostgres {
		err := r.db.QueryRowContext(ctx, r.dialect.bind(query+" RETURNING id"), args...).Scan(&run.ID)
		if err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}
		return nil
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	if run.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read run id: %w", err)
	}
	return nil
}

// UpdateRun stores the mutable fields of a run.
func (r *SQLRunRepository) UpdateRun(ctx context.Context, run *model.Run) error {
	rec, err := NewRunRecord(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	query := `
		UPDATE runs SET status = ?, status_info = ?, total_events = ?, phases = ?,
			begin_time = ?, end_time = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, r.dialect.bind(query),
		rec.Status, rec.StatusInfo, rec.TotalEvents, rec.Phases,
		rec.BeginTime, rec.EndTime, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %d", run.ID)
	}
	return nil
}

// SaveOutputs records the files exported by a run in one transaction.
func (r *SQLRunRepository) SaveOutputs(ctx context.Context, runID int64, outputs []model.OutputFile) error {
	if len(outputs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.dialect.bind(`
		INSERT INTO run_outputs (run_id, analyzer, format, path, size, url)
		VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range outputs {
		if _, err := stmt.ExecContext(ctx, runID, f.Analyzer, f.Format, f.Path, f.Size, f.URL); err != nil {
			return fmt.Errorf("failed to save run output %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRunByTraceID retrieves the latest run of a trace with its outputs.
func (r *SQLRunRepository) GetRunByTraceID(ctx context.Context, traceID string) (*model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE trace_id = ? ORDER BY id DESC LIMIT 1`

	run, err := scanRun(r.db.QueryRowContext(ctx, r.dialect.bind(query), traceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found: %s", traceID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.bind(`
		SELECT analyzer, format, path, size, COALESCE(url, '')
		FROM run_outputs WHERE run_id = ? ORDER BY id`), run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run outputs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f model.OutputFile
		if err := rows.Scan(&f.Analyzer, &f.Format, &f.Path, &f.Size, &f.URL); err != nil {
			return nil, fmt.Errorf("failed to scan run output: %w", err)
		}
		run.Outputs = append(run.Outputs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run outputs: %w", err)
	}

	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (r *SQLRunRepository) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, r.dialect.bind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.Run, error) {
	var rec RunRecord
	var beginTime, endTime sql.NullTime

	err := s.Scan(
		&rec.ID, &rec.TraceID, &rec.Status, &rec.StatusInfo, &rec.InputFormat, &rec.InputPath,
		&rec.Analyzers, &rec.Formats, &rec.TotalEvents, &rec.Phases,
		&rec.CreateTime, &beginTime, &endTime,
	)
	if err != nil {
		return nil, err
	}
	if beginTime.Valid {
		rec.BeginTime = &beginTime.Time
	}
	if endTime.Valid {
		rec.EndTime = &endTime.Time
	}
	return rec.ToModel()
}
