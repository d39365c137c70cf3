// Package repository records analysis runs in a database ledger.
package repository

import (
	"context"

	"github.com/stack-analysis/pkg/model"
)

// RunRepository defines the ledger operations of analysis runs. Only run
// metadata and output locations are stored, never the accumulated stacks.
type RunRepository interface {
	// CreateRun inserts a run and sets its ID.
	CreateRun(ctx context.Context, run *model.Run) error

	// UpdateRun stores the status, totals, phase timings and end time of a run.
	UpdateRun(ctx context.Context, run *model.Run) error

	// SaveOutputs records the files exported by a run.
	SaveOutputs(ctx context.Context, runID int64, outputs []model.OutputFile) error

	// GetRunByTraceID retrieves the latest run of a trace with its outputs.
	GetRunByTraceID(ctx context.Context, traceID string) (*model.Run, error)

	// ListRuns returns the most recent runs, newest first, without outputs.
	ListRuns(ctx context.Context, limit int) ([]*model.Run, error)
}
