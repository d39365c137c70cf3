// Package testutil provides helpers shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stack-analysis/pkg/utils"
)

// Entry is one message captured by RecordingLogger.
type Entry struct {
	Level   utils.LogLevel
	Message string
	Fields  map[string]interface{}
}

// RecordingLogger captures log entries for assertions.
type RecordingLogger struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  map[string]interface{}
}

// NewRecordingLogger creates an empty recording logger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (l *RecordingLogger) record(level utils.LogLevel, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, Entry{Level: level, Message: fmt.Sprintf(msg, args...), Fields: l.fields})
}

func (l *RecordingLogger) Debug(msg string, args ...interface{}) { l.record(utils.LevelDebug, msg, args...) }
func (l *RecordingLogger) Info(msg string, args ...interface{})  { l.record(utils.LevelInfo, msg, args...) }
func (l *RecordingLogger) Warn(msg string, args ...interface{})  { l.record(utils.LevelWarn, msg, args...) }
func (l *RecordingLogger) Error(msg string, args ...interface{}) { l.record(utils.LevelError, msg, args...) }

// WithField returns a logger sharing this logger's entries.
func (l *RecordingLogger) WithField(key string, value interface{}) utils.Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a logger sharing this logger's entries.
func (l *RecordingLogger) WithFields(fields map[string]interface{}) utils.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &RecordingLogger{mu: l.mu, entries: l.entries, fields: merged}
}

// Entries returns the captured entries at level.
func (l *RecordingLogger) Entries(level utils.LogLevel) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range *l.entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether any entry at level contains substr.
func (l *RecordingLogger) Contains(level utils.LogLevel, substr string) bool {
	for _, e := range l.Entries(level) {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
