package model

import "time"

// RunStatus represents the status of an analysis run.
type RunStatus int

const (
	RunStatusPending   RunStatus = 0 // Not started
	RunStatusRunning   RunStatus = 1 // Reading input and exporting
	RunStatusCompleted RunStatus = 2 // Every file written
	RunStatusFailed    RunStatus = 3 // Aborted
	RunStatusEmpty     RunStatus = 5 // Input held no usable events
)

// String returns the string representation of RunStatus.
func (s RunStatus) String() string {
	switch s {
	case RunStatusPending:
		return "pending"
	case RunStatusRunning:
		return "running"
	case RunStatusCompleted:
		return "completed"
	case RunStatusFailed:
		return "failed"
	case RunStatusEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// IsFinal reports whether the run has ended.
func (s RunStatus) IsFinal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusEmpty
}

// OutputFile describes one exported file.
type OutputFile struct {
	Analyzer string `json:"analyzer"`
	Format   string `json:"format"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	// URL is set once the file has been published.
	URL string `json:"url,omitempty"`
}

// Run represents one analysis run over a trace.
type Run struct {
	ID          int64            `json:"id"`
	TraceID     string           `json:"trace_id"`
	Status      RunStatus        `json:"status"`
	StatusInfo  string           `json:"status_info,omitempty"`
	InputFormat string           `json:"input_format"`
	InputPath   string           `json:"input_path"`
	Analyzers   []string         `json:"analyzers"`
	Formats     []string         `json:"formats"`
	TotalEvents int64            `json:"total_events"`
	Phases      map[string]int64 `json:"phases_ms,omitempty"`
	Outputs     []OutputFile     `json:"outputs"`
	CreateTime  time.Time        `json:"create_time"`
	BeginTime   *time.Time       `json:"begin_time,omitempty"`
	EndTime     *time.Time       `json:"end_time,omitempty"`
}

// NewRun creates a pending run for traceID.
func NewRun(traceID string) *Run {
	return &Run{
		TraceID:    traceID,
		Status:     RunStatusPending,
		Outputs:    make([]OutputFile, 0),
		CreateTime: time.Now(),
	}
}

// Start marks the run as running.
func (r *Run) Start(now time.Time) {
	r.Status = RunStatusRunning
	r.BeginTime = &now
}

// Finish marks the run as ended with status and an optional reason.
func (r *Run) Finish(now time.Time, status RunStatus, info string) {
	r.Status = status
	r.StatusInfo = info
	r.EndTime = &now
}

// Duration returns how long the run took, or zero when it has not ended.
func (r *Run) Duration() time.Duration {
	if r.BeginTime == nil || r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(*r.BeginTime)
}
