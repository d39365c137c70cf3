package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/stack-analysis/pkg/model"
)

// MockRunRepository is a mock implementation of the RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

// CreateRun mocks the CreateRun method.
func (m *MockRunRepository) CreateRun(ctx context.Context, run *model.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// UpdateRun mocks the UpdateRun method.
func (m *MockRunRepository) UpdateRun(ctx context.Context, run *model.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// SaveOutputs mocks the SaveOutputs method.
func (m *MockRunRepository) SaveOutputs(ctx context.Context, runID int64, outputs []model.OutputFile) error {
	args := m.Called(ctx, runID, outputs)
	return args.Error(0)
}

// GetRunByTraceID mocks the GetRunByTraceID method.
func (m *MockRunRepository) GetRunByTraceID(ctx context.Context, traceID string) (*model.Run, error) {
	args := m.Called(ctx, traceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

// ListRuns mocks the ListRuns method.
func (m *MockRunRepository) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Run), args.Error(1)
}
