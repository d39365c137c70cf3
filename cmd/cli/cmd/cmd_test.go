package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stack-analysis/pkg/config"
	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/model"
	"github.com/stack-analysis/pkg/telemetry"
)

func TestPrintFormats(t *testing.T) {
	var buf bytes.Buffer
	printFormats(&buf, []string{"collapsed", "jsonl"})

	out := buf.String()
	assert.Contains(t, out, "memallocs")
	assert.Contains(t, out, "collapsed, jsonl")
	assert.Contains(t, out, "<analyzer>.csv")
	assert.Contains(t, out, "<analyzer>.pb.gz")
	assert.Contains(t, out, "<analyzer>.dot")
}

func TestPrintVersion(t *testing.T) {
	info := currentVersion()

	var text bytes.Buffer
	require.NoError(t, printVersion(&text, info, false))
	assert.Contains(t, text.String(), "version dev")
	assert.Contains(t, text.String(), "Analyzers:  3")

	var raw bytes.Buffer
	require.NoError(t, printVersion(&raw, info, true))
	var decoded versionInfo
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	assert.Equal(t, info, decoded)
	assert.Contains(t, decoded.Formats, "speedscope")
}

func TestTracingTarget(t *testing.T) {
	assert.Equal(t, "disabled", tracingTarget(&telemetry.Config{Protocol: "grpc"}))
	assert.Equal(t, "grpc default endpoint", tracingTarget(&telemetry.Config{Enabled: true, Protocol: "grpc"}))
	assert.Equal(t, "http/protobuf collector:4318",
		tracingTarget(&telemetry.Config{Enabled: true, Protocol: "http/protobuf", Endpoint: "collector:4318"}))
}

func TestFlagKeysBound(t *testing.T) {
	for name := range flagKeys {
		require.NotNil(t, analyzeCmd.Flags().Lookup(name), name)
	}
}

func TestLoadConfig_Flags(t *testing.T) {
	v.Set("input.path", "/traces/a.folded")
	v.Set("analysis.analyzers", []string{"cpu", "memallocs"})
	t.Cleanup(func() {
		v.Set("input.path", "")
		v.Set("analysis.analyzers", []string{"cpu"})
	})

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/traces/a.folded", cfg.Input.Path)
	assert.Equal(t, []string{"cpu", "memallocs"}, cfg.Analysis.Analyzers)
	assert.Equal(t, "collapsed", cfg.Input.Format)
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	printRuns(&buf, nil)
	assert.Equal(t, "No runs recorded.\n", buf.String())

	begin := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	done := model.NewRun("trace-1")
	done.ID = 2
	done.InputFormat, done.InputPath = "collapsed", "a.folded"
	done.CreateTime = begin
	done.Start(begin)
	done.Finish(begin.Add(1500*time.Millisecond), model.RunStatusCompleted, "")

	running := model.NewRun("trace-2")
	running.ID = 3
	running.Start(begin)

	buf.Reset()
	printRuns(&buf, []*model.Run{running, done})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "TRACE")
	assert.Contains(t, lines[1], "running")
	assert.Contains(t, lines[1], " - ")
	assert.Contains(t, lines[2], "1.5s")
	assert.Contains(t, lines[2], "collapsed:a.folded")
}

func TestPrintRun(t *testing.T) {
	run := model.NewRun("trace-9")
	run.ID = 9
	run.Analyzers = []string{"cpu", "memallocs"}
	run.Finish(time.Now(), model.RunStatusFailed, "write cpu.csv: disk full")
	run.Outputs = []model.OutputFile{{Analyzer: "cpu", Format: "xml", Path: "out/cpu.xml", Size: 42}}

	var buf bytes.Buffer
	printRun(&buf, run)
	out := buf.String()
	assert.Contains(t, out, "Run 9 (trace-9): failed")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "cpu, memallocs")
	assert.Contains(t, out, "out/cpu.xml")
	assert.Contains(t, out, "Duration:  0s")
}

func TestOpenLedger_Disabled(t *testing.T) {
	_, err := openLedger(&config.DatabaseConfig{Type: "none"}, nil)
	assert.ErrorIs(t, err, apperrors.ErrConfigError)
}
