package repository

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/stack-analysis/pkg/model"
)

// RunRecord represents the runs table.
type RunRecord struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	TraceID     string          `gorm:"column:trace_id;type:varchar(64);index"`
	Status      model.RunStatus `gorm:"column:status"`
	StatusInfo  string          `gorm:"column:status_info;type:text"`
	InputFormat string          `gorm:"column:input_format;type:varchar(32)"`
	InputPath   string          `gorm:"column:input_path;type:varchar(512)"`
	Analyzers   JSONField       `gorm:"column:analyzers;type:json"`
	Formats     JSONField       `gorm:"column:formats;type:json"`
	TotalEvents int64           `gorm:"column:total_events"`
	Phases      JSONField       `gorm:"column:phases;type:json"`
	CreateTime  time.Time       `gorm:"column:create_time"`
	BeginTime   *time.Time      `gorm:"column:begin_time"`
	EndTime     *time.Time      `gorm:"column:end_time"`
}

// TableName returns the table name for RunRecord.
func (RunRecord) TableName() string {
	return "runs"
}

// NewRunRecord converts a model.Run into its row.
func NewRunRecord(run *model.Run) (*RunRecord, error) {
	rec := &RunRecord{
		ID:          run.ID,
		TraceID:     run.TraceID,
		Status:      run.Status,
		StatusInfo:  run.StatusInfo,
		InputFormat: run.InputFormat,
		InputPath:   run.InputPath,
		TotalEvents: run.TotalEvents,
		CreateTime:  run.CreateTime,
		BeginTime:   run.BeginTime,
		EndTime:     run.EndTime,
	}

	var err error
	if rec.Analyzers, err = marshalField(run.Analyzers); err != nil {
		return nil, err
	}
	if rec.Formats, err = marshalField(run.Formats); err != nil {
		return nil, err
	}
	if rec.Phases, err = marshalField(run.Phases); err != nil {
		return nil, err
	}
	return rec, nil
}

// ToModel converts RunRecord to model.Run.
func (r *RunRecord) ToModel() (*model.Run, error) {
	run := &model.Run{
		ID:          r.ID,
		TraceID:     r.TraceID,
		Status:      r.Status,
		StatusInfo:  r.StatusInfo,
		InputFormat: r.InputFormat,
		InputPath:   r.InputPath,
		TotalEvents: r.TotalEvents,
		Outputs:     make([]model.OutputFile, 0),
		CreateTime:  r.CreateTime,
		BeginTime:   r.BeginTime,
		EndTime:     r.EndTime,
	}

	if r.Analyzers != nil {
		if err := json.Unmarshal(r.Analyzers, &run.Analyzers); err != nil {
			return nil, err
		}
	}
	if r.Formats != nil {
		if err := json.Unmarshal(r.Formats, &run.Formats); err != nil {
			return nil, err
		}
	}
	if r.Phases != nil {
		if err := json.Unmarshal(r.Phases, &run.Phases); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// RunOutput represents the run_outputs table.
type RunOutput struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	RunID    int64  `gorm:"column:run_id;index"`
	Analyzer string `gorm:"column:analyzer;type:varchar(64)"`
	Format   string `gorm:"column:format;type:varchar(32)"`
	Path     string `gorm:"column:path;type:varchar(512)"`
	Size     int64  `gorm:"column:size"`
	URL      string `gorm:"column:url;type:varchar(1024)"`
}

// TableName returns the table name for RunOutput.
func (RunOutput) TableName() string {
	return "run_outputs"
}

// ToModel converts RunOutput to model.OutputFile.
func (o *RunOutput) ToModel() model.OutputFile {
	return model.OutputFile{
		Analyzer: o.Analyzer,
		Format:   o.Format,
		Path:     o.Path,
		Size:     o.Size,
		URL:      o.URL,
	}
}

func newRunOutput(runID int64, f model.OutputFile) *RunOutput {
	return &RunOutput{
		RunID:    runID,
		Analyzer: f.Analyzer,
		Format:   f.Format,
		Path:     f.Path,
		Size:     f.Size,
		URL:      f.URL,
	}
}

func marshalField(v any) (JSONField, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return JSONField(data), nil
}

// JSONField is a custom type for handling JSON fields in GORM.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// MarshalJSON implements json.Marshaler interface.
func (j JSONField) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (j *JSONField) UnmarshalJSON(data []byte) error {
	if data == nil || string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}
