package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/analyzer"
	"github.com/stack-analysis/internal/formatter"
	"github.com/stack-analysis/pkg/compression"
	"github.com/stack-analysis/pkg/config"
	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/utils"
)

// RunContext carries everything one run needs. It is built by the caller
// and passed down explicitly; nothing below it looks up shared state.
type RunContext struct {
	WorkingDir string
	TraceID    string
	// Tags are layered above every sample of every analyzer.
	Tags      []string
	Analyzers []string
	Formats   []string
	Options   formatter.Options
	TopN      int

	Logger utils.Logger
	Fs     afero.Fs
}

// NewRunContext builds a run context from the analysis settings. A missing
// trace id is generated.
func NewRunContext(cfg *config.AnalysisConfig, fs afero.Fs, logger utils.Logger) (*RunContext, error) {
	comp, err := compression.ParseType(cfg.Compression)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "invalid compression", err)
	}
	source := aggregate.KindTree
	if cfg.CSVSource == string(aggregate.KindKeyed) {
		source = aggregate.KindKeyed
	}

	traceID := cfg.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &RunContext{
		WorkingDir: cfg.WorkingDir,
		TraceID:    traceID,
		Tags:       cfg.Tags,
		Analyzers:  normalizeNames(cfg.Analyzers),
		Formats:    normalizeNames(cfg.Formats),
		Options: formatter.Options{
			CSVSource:   source,
			Compression: comp,
			MinPercent:  cfg.MinPercent,
		},
		TopN:   cfg.TopN,
		Logger: utils.Or(logger).WithField("trace_id", traceID),
		Fs:     fs,
	}, nil
}

// Validate checks the names and paths of the run before any input is read.
func (rc *RunContext) Validate() error {
	if strings.TrimSpace(rc.WorkingDir) == "" {
		return apperrors.New(apperrors.CodeConfigError, "working directory is required")
	}
	if len(rc.Analyzers) == 0 {
		return apperrors.New(apperrors.CodeConfigError, "at least one analyzer is required")
	}
	if len(rc.Formats) == 0 {
		return apperrors.New(apperrors.CodeConfigError, "at least one output format is required")
	}
	for _, name := range rc.Analyzers {
		if !analyzer.Has(name) {
			return apperrors.Newf(apperrors.CodeUnknownAnalyzer, "unknown analyzer %q (available: %v)", name, analyzer.Names())
		}
	}
	for _, name := range rc.Formats {
		if !formatter.Has(name) {
			return apperrors.Newf(apperrors.CodeUnknownFormat, "unknown output format %q (available: %v)", name, formatter.Names())
		}
	}
	return nil
}

// newFormats creates the enabled formats and the model kinds they read.
func (rc *RunContext) newFormats() ([]formatter.Format, []aggregate.Kind, error) {
	formats := make([]formatter.Format, 0, len(rc.Formats))
	kinds := []aggregate.Kind{aggregate.KindTree}
	for _, name := range rc.Formats {
		f, err := formatter.New(name, rc.Options)
		if err != nil {
			return nil, nil, err
		}
		formats = append(formats, f)
		if needs := f.Needs(); !containsKind(kinds, needs) {
			kinds = append(kinds, needs)
		}
	}
	return formats, kinds, nil
}

func containsKind(kinds []aggregate.Kind, k aggregate.Kind) bool {
	for _, have := range kinds {
		if have == k {
			return true
		}
	}
	return false
}

// normalizeNames lower-cases and trims names, dropping blanks and repeats.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
