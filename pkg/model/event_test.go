package model

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventKind_String(t *testing.T) {
	tests := []struct {
		kind     EventKind
		expected string
	}{
		{EventKindCPU, "cpu"},
		{EventKindAlloc, "alloc"},
		{EventKindException, "exception"},
		{EventKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestParseEventKind(t *testing.T) {
	kind, err := ParseEventKind(" Allocation ")
	require.NoError(t, err)
	assert.Equal(t, EventKindAlloc, kind)

	_, err = ParseEventKind("io")
	assert.Error(t, err)
}

func TestEvent_JSON(t *testing.T) {
	line := `{"kind":"exception","process":"svc","pid":7,"stack":[{"module":"app","method":"Throw"},{"module":"app","method":"main"}],"type":"IOException"}`

	var e Event
	require.NoError(t, json.Unmarshal([]byte(line), &e))
	assert.Equal(t, EventKindException, e.Kind)
	assert.Equal(t, "svc", e.Process)
	assert.Equal(t, 7, e.PID)
	assert.Equal(t, "IOException", e.TypeName)
	require.Len(t, e.Stack, 2)
	assert.Equal(t, "app!Throw", e.Stack[0].String())

	data, err := json.Marshal(&e)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"exception"`)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"disk"}`), &e))
}

func TestFrame_String(t *testing.T) {
	assert.Equal(t, "ntdll", Frame{Module: "ntdll"}.String())
	assert.Equal(t, "ntdll!Wait", Frame{Module: "ntdll", Method: "Wait"}.String())
}

func TestParseResult_Add(t *testing.T) {
	r := NewParseResult()
	r.Add(&Event{Kind: EventKindCPU, Process: "a"})
	r.Add(&Event{Kind: EventKindCPU, Process: "a"})
	r.Add(&Event{Kind: EventKindCPU, Process: "b"})

	assert.Equal(t, int64(3), r.TotalEvents)
	assert.Len(t, r.Events, 3)
	assert.Equal(t, map[string]int64{"a": 2, "b": 1}, r.Processes)

	r.Count(&Event{Kind: EventKindCPU, Process: "c"})
	assert.Equal(t, int64(4), r.TotalEvents)
	assert.Len(t, r.Events, 3)
	assert.Equal(t, int64(1), r.Processes["c"])
}

func TestRun_Lifecycle(t *testing.T) {
	r := NewRun("trace-1")
	assert.Equal(t, RunStatusPending, r.Status)
	assert.False(t, r.Status.IsFinal())
	assert.Zero(t, r.Duration())

	begin := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.Start(begin)
	assert.Equal(t, "running", r.Status.String())

	r.Finish(begin.Add(3*time.Second), RunStatusFailed, "disk full")
	assert.True(t, r.Status.IsFinal())
	assert.Equal(t, "disk full", r.StatusInfo)
	assert.Equal(t, 3*time.Second, r.Duration())
	assert.Equal(t, "unknown", RunStatus(42).String())
}
