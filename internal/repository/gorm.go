package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/stack-analysis/pkg/model"
)

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// CreateRun inserts a run and sets its ID.
func (r *GormRunRepository) CreateRun(ctx context.Context, run *model.Run) error {
	rec, err := NewRunRecord(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	rec.ID = 0

	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	run.ID = rec.ID
	return nil
}

// UpdateRun stores the mutable fields of a run.
func (r *GormRunRepository) UpdateRun(ctx context.Context, run *model.Run) error {
	rec, err := NewRunRecord(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&RunRecord{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":       rec.Status,
			"status_info":  rec.StatusInfo,
			"total_events": rec.TotalEvents,
			"phases":       rec.Phases,
			"begin_time":   rec.BeginTime,
			"end_time":     rec.EndTime,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run not found: %d", run.ID)
	}

	return nil
}

// SaveOutputs records the files exported by a run in one transaction.
func (r *GormRunRepository) SaveOutputs(ctx context.Context, runID int64, outputs []model.OutputFile) error {
	if len(outputs) == 0 {
		return nil
	}

	records := make([]*RunOutput, len(outputs))
	for i, f := range outputs {
		records[i] = newRunOutput(runID, f)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save run outputs: %w", err)
	}
	return nil
}

// GetRunByTraceID retrieves the latest run of a trace with its outputs.
func (r *GormRunRepository) GetRunByTraceID(ctx context.Context, traceID string) (*model.Run, error) {
	var rec RunRecord

	err := r.db.WithContext(ctx).
		Where("trace_id = ?", traceID).
		Order("id DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run not found: %s", traceID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run, err := rec.ToModel()
	if err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}

	var outputs []RunOutput
	if err := r.db.WithContext(ctx).Where("run_id = ?", rec.ID).Order("id").Find(&outputs).Error; err != nil {
		return nil, fmt.Errorf("failed to get run outputs: %w", err)
	}
	for i := range outputs {
		run.Outputs = append(run.Outputs, outputs[i].ToModel())
	}

	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (r *GormRunRepository) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	var records []RunRecord

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*model.Run, 0, len(records))
	for i := range records {
		run, err := records[i].ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to decode run %d: %w", records[i].ID, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
