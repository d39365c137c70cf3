package jsonl

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stack-analysis/internal/parser"
	"github.com/stack-analysis/pkg/model"
)

const input = `# captured by the tracer
{"kind":"cpu","process":"svc","pid":10,"tid":11,"timestamp":5,"stack":[{"module":"app","method":"leaf"},{"module":"app","method":"main"}]}
{"kind":"alloc","process":"svc","stack":[{"module":"app","method":"New"}],"weight":4096,"type":"Buffer"}

{"kind":"exception","stack":[{"module":"app","method":"Throw"}],"type":"IOException"}
`

func TestParser_Parse(t *testing.T) {
	result, err := NewParser(nil).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Events, 3)

	cpu := result.Events[0]
	assert.Equal(t, model.EventKindCPU, cpu.Kind)
	assert.Equal(t, 10, cpu.PID)
	assert.Equal(t, 11, cpu.TID)
	assert.Equal(t, int64(5), cpu.Timestamp)
	assert.Equal(t, "leaf", cpu.Stack[0].Method)

	alloc := result.Events[1]
	assert.Equal(t, model.EventKindAlloc, alloc.Kind)
	assert.Equal(t, int64(4096), alloc.Weight)
	assert.Equal(t, "Buffer", alloc.TypeName)

	exc := result.Events[2]
	assert.Equal(t, parser.DefaultProcess, exc.Process)
	assert.Equal(t, map[string]int64{"svc": 2, parser.DefaultProcess: 1}, result.Processes)
}

func TestParser_Parse_Skips(t *testing.T) {
	bad := `{"kind":"cpu","stack":[]}
{"kind":"disk","stack":[{"module":"m"}]}
{"stack":[{"module":"m"}]}
not json
{"kind":"cpu","stack":[{}]}
{"kind":"cpu","stack":[{"module":"m"}]}`

	result, err := NewParser(nil).Parse(context.Background(), strings.NewReader(bad))
	require.NoError(t, err)
	assert.Len(t, result.Events, 1)
	assert.Equal(t, int64(5), result.Skipped)
}

func TestParser_Parse_Strict(t *testing.T) {
	p, err := NewFactory()(parser.WithStrictMode(true))
	require.NoError(t, err)

	_, err = p.Parse(context.Background(), strings.NewReader(`{"kind":"cpu","stack":[]}`))
	assert.ErrorIs(t, err, parser.ErrInvalidStackFrame)
}

func TestParser_Parse_Process(t *testing.T) {
	r := parser.NewRegistry()
	RegisterWithRegistry(r)
	p, err := r.Get("jsonl", parser.WithProcess("batch"))
	require.NoError(t, err)

	result, err := p.Parse(context.Background(), strings.NewReader(`{"kind":"cpu","stack":[{"module":"m"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "batch", result.Events[0].Process)
}
