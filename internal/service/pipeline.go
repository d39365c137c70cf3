package service

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/analyzer"
	"github.com/stack-analysis/internal/formatter"
	"github.com/stack-analysis/internal/parser"
	"github.com/stack-analysis/internal/statistics"
	"github.com/stack-analysis/internal/storage"
	"github.com/stack-analysis/pkg/compression"
	"github.com/stack-analysis/pkg/config"
	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/model"
	"github.com/stack-analysis/pkg/telemetry"
	"github.com/stack-analysis/pkg/utils"
	"github.com/stack-analysis/pkg/writer"
)

// SummaryFile is written to the working directory of every run.
const SummaryFile = "summary.json"

// Phase names recorded in Run.Phases.
const (
	// PhaseIngest covers reading the input and merging its events.
	PhaseIngest  = "ingest"
	PhaseExport  = "export"
	PhasePublish = "publish"
)

// Result is the outcome of one run.
type Result struct {
	Run       *model.Run
	Summaries []*statistics.Summary
	// SummaryPath is empty when the run failed before exporting.
	SummaryPath string
	Published   []storage.Published
}

// RunSummary is the content of summary.json.
type RunSummary struct {
	TraceID     string                `json:"traceId"`
	InputFormat string                `json:"inputFormat"`
	InputPath   string                `json:"inputPath"`
	TotalEvents int64                 `json:"totalEvents"`
	Skipped     int64                 `json:"skipped"`
	Processes   map[string]int64      `json:"processes"`
	Analyzers   []*statistics.Summary `json:"analyzers"`
}

// Run executes one analysis with the configured analysis and input settings.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	rc, err := NewRunContext(&s.config.Analysis, s.fs, s.logger)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, rc, &s.config.Input)
}

// Execute validates rc and runs it over the input described by in. Names
// are checked before the input is opened. The returned result carries the
// run record even when the run failed.
func (s *Service) Execute(ctx context.Context, rc *RunContext, in *config.InputConfig) (*Result, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if !s.parsers.Has(in.Format) {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unsupported input format %q (available: %v)", in.Format, s.parsers.Formats())
	}
	if in.Path == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "input path is required")
	}

	log := rc.Logger
	run := model.NewRun(rc.TraceID)
	run.CreateTime = s.clock.Now()
	run.InputFormat = in.Format
	run.InputPath = in.Path
	run.Analyzers = rc.Analyzers
	run.Formats = rc.Formats

	ctx, span := telemetry.Start(ctx, telemetry.SpanRun, telemetry.AttrTraceID.String(rc.TraceID))
	timer := utils.NewTimer(rc.TraceID, utils.WithLogger(log), utils.WithClock(s.clock))

	s.recordStart(ctx, run, log)
	run.Start(s.clock.Now())
	log.Info("Starting run: input=%s:%s analyzers=%v formats=%v", in.Format, in.Path, rc.Analyzers, rc.Formats)

	res := &Result{Run: run}
	samples, err := s.execute(ctx, rc, in, res, timer)

	status, info := model.RunStatusCompleted, ""
	switch {
	case err != nil:
		status, info = model.RunStatusFailed, err.Error()
	case samples == 0:
		status, info = model.RunStatusEmpty, "no samples"
	}
	run.Phases = timer.Milliseconds()
	run.Finish(s.clock.Now(), status, info)
	s.recordFinish(ctx, run, log)
	telemetry.End(span, err)

	if err != nil {
		log.Error("Run failed after %v: %v", run.Duration(), err)
		return res, err
	}
	log.Info("Run %s in %v (%s)", status, run.Duration(), timer.Summary())
	return res, nil
}

// execute runs the phases and returns the number of samples merged.
func (s *Service) execute(ctx context.Context, rc *RunContext, in *config.InputConfig, res *Result, timer *utils.Timer) (int64, error) {
	run := res.Run
	formats, kinds, err := rc.newFormats()
	if err != nil {
		return 0, err
	}

	m := &merger{rc: rc, kinds: kinds}
	parsed, err := s.ingest(ctx, in, m, timer)
	if err != nil {
		return 0, err
	}
	run.TotalEvents = parsed.TotalEvents

	// An input without events still exports an empty document per format.
	if m.analyzers == nil {
		if err := m.init(parsed.Units); err != nil {
			return 0, err
		}
	}
	analyzers := m.analyzers

	var samples int64
	for _, a := range analyzers {
		samples += a.Tree().Samples()
	}

	outputs, err := s.export(ctx, rc, analyzers, formats, timer)
	if err != nil {
		return samples, err
	}

	res.Summaries = make([]*statistics.Summary, 0, len(analyzers))
	for i, a := range analyzers {
		sum := statistics.Summarize(a.Name(), a.Tree(), rc.TopN)
		_, sum.Ignored = a.Stats()
		for _, out := range outputs[i] {
			sum.Files = append(sum.Files, out.Path)
		}
		formatter.Report(sum, rc.Fs, rc.Logger)
		res.Summaries = append(res.Summaries, sum)
		run.Outputs = append(run.Outputs, outputs[i]...)
	}

	summaryPath := filepath.Join(rc.WorkingDir, SummaryFile)
	doc := &RunSummary{
		TraceID:     rc.TraceID,
		InputFormat: in.Format,
		InputPath:   in.Path,
		TotalEvents: parsed.TotalEvents,
		Skipped:     parsed.Skipped,
		Processes:   parsed.Processes,
		Analyzers:   res.Summaries,
	}
	if _, err := writer.PrettyJSON[*RunSummary]().Save(rc.Fs, summaryPath, doc); err != nil {
		return samples, apperrors.Wrap(apperrors.CodeExportError, "write "+summaryPath, err)
	}
	res.SummaryPath = summaryPath
	run.Outputs = append(run.Outputs, s.describe(rc, "", "summary", summaryPath))

	if s.publisher != nil {
		published, err := s.publish(ctx, rc, run, timer)
		res.Published = published
		if err != nil {
			return samples, err
		}
	}
	return samples, nil
}

// ingest streams every event of the input into the analyzers of m.
func (s *Service) ingest(ctx context.Context, in *config.InputConfig, m *merger, timer *utils.Timer) (result *model.ParseResult, err error) {
	defer timer.Start(PhaseIngest).Stop()
	ctx, span := telemetry.Start(ctx, telemetry.SpanIngest)
	defer func() {
		if result != nil {
			span.SetAttributes(telemetry.AttrEvents.Int64(result.TotalEvents))
		}
		telemetry.End(span, err)
	}()

	p, err := s.parsers.Get(in.Format,
		parser.WithStrictMode(in.Strict),
		parser.WithMaxEvents(int64(in.MaxEvents)),
		parser.WithProcess(in.Process),
		parser.WithSampleType(in.SampleType),
		parser.WithHandler(m.handle),
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "create parser", err)
	}

	f, err := s.fs.Open(in.Path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "open "+in.Path, err)
	}
	defer f.Close()

	r, err := compression.NewReader(f)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseError, "decompress "+in.Path, err)
	}
	defer r.Close()

	result, err = p.Parse(ctx, r)
	if m.err != nil {
		return nil, m.err
	}
	if err != nil {
		if _, ok := err.(*apperrors.AppError); ok {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeParseError, "parse "+in.Path, err)
	}
	return result, nil
}

// merger feeds parsed events to every analyzer on the parsing goroutine.
// Analyzers are built on the first event, once the input has declared its
// units.
type merger struct {
	rc        *RunContext
	kinds     []aggregate.Kind
	analyzers []analyzer.Analyzer
	// err is the first analyzer failure; it takes precedence over the
	// parser's wrapping of it.
	err error
}

func (m *merger) init(units map[model.EventKind]string) error {
	m.analyzers = make([]analyzer.Analyzer, 0, len(m.rc.Analyzers))
	for _, name := range m.rc.Analyzers {
		info, _ := analyzer.GetInfo(name)
		a, err := analyzer.New(name, &analyzer.Config{
			Tags:   m.rc.Tags,
			Models: m.kinds,
			Unit:   units[info.EventKind],
			Logger: m.rc.Logger,
		})
		if err != nil {
			return apperrors.Wrap(apperrors.CodeUnknownAnalyzer, name, err)
		}
		m.analyzers = append(m.analyzers, a)
	}
	return nil
}

func (m *merger) handle(result *model.ParseResult, e *model.Event) error {
	if m.analyzers == nil {
		if m.err = m.init(result.Units); m.err != nil {
			return m.err
		}
	}
	for _, a := range m.analyzers {
		if err := a.Process(e); err != nil {
			m.err = fmt.Errorf("analyzer %s: %w", a.Name(), err)
			return m.err
		}
	}
	return nil
}

// export writes every format of every analyzer. Analyzers run concurrently;
// the formats of one analyzer run in order and share its walker.
func (s *Service) export(ctx context.Context, rc *RunContext, analyzers []analyzer.Analyzer, formats []formatter.Format, timer *utils.Timer) ([][]model.OutputFile, error) {
	defer timer.Start(PhaseExport).Stop()

	outputs := make([][]model.OutputFile, len(analyzers))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range analyzers {
		g.Go(func() error {
			target := formatter.Target{
				Analyzer: a.Name(),
				Fs:       rc.Fs,
				Dir:      rc.WorkingDir,
				Logger:   rc.Logger,
				Walker:   a.Walker(),
			}
			for _, f := range formats {
				path, err := s.save(gctx, target, a, f)
				if err != nil {
					return err
				}
				outputs[i] = append(outputs[i], s.describe(rc, a.Name(), f.Name(), path))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (s *Service) save(ctx context.Context, t formatter.Target, a analyzer.Analyzer, f formatter.Format) (path string, err error) {
	ctx, span := telemetry.Start(ctx, telemetry.ExportSpanName(a.Name(), f.Name()),
		telemetry.AttrAnalyzer.String(a.Name()),
		telemetry.AttrFormat.String(f.Name()),
	)
	defer func() {
		span.SetAttributes(telemetry.AttrFile.String(path))
		telemetry.End(span, err)
	}()

	start := s.clock.Now()
	path, err = f.Save(ctx, t, a.Model(f.Needs()))
	if err != nil {
		return path, err
	}
	t.Logger.WithFields(map[string]interface{}{
		"analyzer": a.Name(),
		"format":   f.Name(),
		"file":     path,
		"elapsed":  s.clock.Since(start).String(),
	}).Info("Exported %s", filepath.Base(path))
	return path, nil
}

// describe builds the output record of a written file.
func (s *Service) describe(rc *RunContext, analyzerName, format, path string) model.OutputFile {
	out := model.OutputFile{Analyzer: analyzerName, Format: format, Path: path}
	if info, err := rc.Fs.Stat(path); err == nil {
		out.Size = info.Size()
	}
	return out
}

// publish uploads every output of run and records the URLs.
func (s *Service) publish(ctx context.Context, rc *RunContext, run *model.Run, timer *utils.Timer) ([]storage.Published, error) {
	defer timer.Start(PhasePublish).Stop()

	paths := make([]string, len(run.Outputs))
	for i, out := range run.Outputs {
		paths[i] = out.Path
	}
	published, err := s.publisher.Publish(ctx, rc.TraceID, paths)
	for i, p := range published {
		run.Outputs[i].URL = p.URL
	}
	if err != nil {
		return published, err
	}
	rc.Logger.Info("Published %d files", len(published))
	return published, nil
}

// recordStart inserts the run into the ledger. Ledger failures are logged
// and never fail the run.
func (s *Service) recordStart(ctx context.Context, run *model.Run, log utils.Logger) {
	if s.runs == nil {
		return
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		log.Warn("Failed to record run: %v", err)
	}
}

// recordFinish stores the final state and outputs of a recorded run.
func (s *Service) recordFinish(ctx context.Context, run *model.Run, log utils.Logger) {
	if s.runs == nil || run.ID == 0 {
		return
	}
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		log.Warn("Failed to update run %d: %v", run.ID, err)
		return
	}
	if len(run.Outputs) == 0 {
		return
	}
	if err := s.runs.SaveOutputs(ctx, run.ID, run.Outputs); err != nil {
		log.Warn("Failed to record outputs of run %d: %v", run.ID, err)
	}
}
