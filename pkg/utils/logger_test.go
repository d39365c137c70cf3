package utils

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{"unknown", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
}

func TestLogrusLogger_FilterByLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(LevelWarn, "text", buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn %s", "message")
	logger.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")

	buf.Reset()
	logger.SetLevel(LevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestLogrusLogger_JSONFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(LevelInfo, "json", buf)

	logger.WithField("analyzer", "cpu").
		WithFields(map[string]interface{}{"format": "csv"}).
		Info("exported %d rows", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "exported 3 rows", entry["msg"])
	assert.Equal(t, "cpu", entry["analyzer"])
	assert.Equal(t, "csv", entry["format"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err := NewFileLogger(LevelInfo, "text", path)
	require.NoError(t, err)
	logger.Info("hello")
	assert.FileExists(t, path)
}

func TestNullLoggerAndOr(t *testing.T) {
	var l Logger = &NullLogger{}
	l.Info("ignored")
	assert.Same(t, l, l.WithField("k", "v"))

	assert.IsType(t, &NullLogger{}, Or(nil))
	custom := NewLogger(LevelInfo, "text", &bytes.Buffer{})
	assert.Same(t, custom, Or(custom))
}

func TestTimer(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := NewTimer("run", WithClock(clock), WithLogger(&NullLogger{}))

	pt := timer.Start("ingest")
	clock.Advance(150 * time.Millisecond)
	assert.Equal(t, 150*time.Millisecond, pt.Stop())

	clock.Advance(time.Second)
	assert.Equal(t, 150*time.Millisecond, pt.Stop(), "second Stop is a no-op")

	timer.Start("export")
	assert.Equal(t, time.Duration(0), timer.Duration("export"), "unfinished phase")
	clock.Advance(20 * time.Millisecond)
	timer.StopPhase("export")

	assert.Equal(t, time.Duration(0), timer.StopPhase("missing"))
	assert.Equal(t, map[string]int64{"ingest": 150, "export": 20}, timer.Milliseconds())

	phases := timer.Phases()
	require.Len(t, phases, 2)
	assert.Equal(t, "ingest", phases[0].Name)
	assert.Equal(t, 1170*time.Millisecond, timer.Total())
	assert.Equal(t, "run total=1.17s ingest=150ms export=20ms", timer.Summary())
}
