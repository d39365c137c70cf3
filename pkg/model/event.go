// Package model defines the core data structures used throughout the application.
package model

import (
	"fmt"
	"strings"
)

// EventKind identifies what a trace event records.
type EventKind int

const (
	EventKindUnknown   EventKind = 0
	EventKindCPU       EventKind = 1 // CPU sample
	EventKindAlloc     EventKind = 2 // memory allocation
	EventKindException EventKind = 3 // thrown exception
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	switch k {
	case EventKindCPU:
		return "cpu"
	case EventKindAlloc:
		return "alloc"
	case EventKindException:
		return "exception"
	default:
		return "unknown"
	}
}

// ParseEventKind parses the string form of an event kind.
func ParseEventKind(s string) (EventKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu", "sample":
		return EventKindCPU, nil
	case "alloc", "allocation":
		return EventKindAlloc, nil
	case "exception":
		return EventKindException, nil
	default:
		return EventKindUnknown, fmt.Errorf("unknown event kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEventKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Frame is one resolved stack entry.
type Frame struct {
	Module string `json:"module"`
	Method string `json:"method"`
}

// String returns "module!method", or the module alone when there is no method.
func (f Frame) String() string {
	if f.Method == "" {
		return f.Module
	}
	return f.Module + "!" + f.Method
}

// Event is one trace event with its resolved call stack.
type Event struct {
	Kind    EventKind `json:"kind"`
	Process string    `json:"process"`
	PID     int       `json:"pid,omitempty"`
	TID     int       `json:"tid,omitempty"`
	// Timestamp is in nanoseconds since the start of the trace.
	Timestamp int64 `json:"timestamp,omitempty"`
	// Stack lists frames leaf first.
	Stack []Frame `json:"stack"`
	// Weight is the sample weight, or the allocation size in bytes.
	Weight int64 `json:"weight,omitempty"`
	// TypeName is the allocated or thrown type.
	TypeName string `json:"type,omitempty"`
}

// ParseResult holds the events read from one input, in delivery order.
type ParseResult struct {
	Events      []*Event         `json:"events"`
	TotalEvents int64            `json:"total_events"`
	Skipped     int64            `json:"skipped"`
	Processes   map[string]int64 `json:"processes"`
	// Units names the weight unit of each event kind when the input declares one.
	Units map[EventKind]string `json:"units,omitempty"`
}

// NewParseResult creates an empty ParseResult.
func NewParseResult() *ParseResult {
	return &ParseResult{
		Processes: make(map[string]int64),
		Units:     make(map[EventKind]string),
	}
}

// Add appends an event and updates the counters.
func (r *ParseResult) Add(e *Event) {
	r.Events = append(r.Events, e)
	r.Count(e)
}

// Count updates the counters for an event without keeping it.
func (r *ParseResult) Count(e *Event) {
	r.TotalEvents++
	r.Processes[e.Process]++
}
