package collapsed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stack-analysis/internal/parser"
	"github.com/stack-analysis/pkg/model"
)

func TestParser_Parse_BasicInput(t *testing.T) {
	input := `main-thread-?/1234;java.lang.Thread.run;com.example.App.main 100
worker-1-?/5678;java.lang.Thread.run;com.example.Worker.process 50
main-thread-?/1234;java.lang.Thread.run;com.example.App.init 30`

	result, err := NewParser(nil).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(3), result.TotalEvents)
	require.Len(t, result.Events, 3)
	assert.Equal(t, map[string]int64{"main-thread": 2, "worker-1": 1}, result.Processes)

	e := result.Events[0]
	assert.Equal(t, model.EventKindCPU, e.Kind)
	assert.Equal(t, "main-thread", e.Process)
	assert.Equal(t, 1234, e.TID)
	assert.Equal(t, int64(100), e.Weight)
	require.Len(t, e.Stack, 2)
	assert.Equal(t, "com.example.App.main", e.Stack[0].Method)
	assert.Equal(t, UnknownModule, e.Stack[0].Module)
}

func TestParser_Parse_EmptyInput(t *testing.T) {
	result, err := NewParser(nil).Parse(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, result.TotalEvents)
	assert.Empty(t, result.Events)
}

func TestParser_Parse_SwapperExclusion(t *testing.T) {
	input := `main-thread-?/1234;func1;func2 100
swapper-?/0;idle_func 50`

	result, err := NewParser(nil).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, result.Events, 1)
	assert.Equal(t, int64(1), result.Skipped)

	p, err := NewFactory().WithIncludeSwapper(true).Create()
	require.NoError(t, err)
	result, err = p.Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, result.Events, 2)
}

func TestParser_Parse_SkipsUnusableLines(t *testing.T) {
	input := `5_2175795_[002]_83367.826506:-?/10101010;f 3
thread-only 10
t-1/1;f 0
no-count-here
t-1/1;f x
t-1/1;f 2`

	result, err := NewParser(nil).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, result.Events, 1)
	assert.Equal(t, int64(5), result.Skipped)
}

func TestParser_Parse_StrictMode(t *testing.T) {
	p, err := NewFactory().Create(parser.WithStrictMode(true))
	require.NoError(t, err)

	_, err = p.Parse(context.Background(), strings.NewReader("t-1/1;f 2\nbroken"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, parser.ErrInvalidFormat))
	assert.Contains(t, err.Error(), "line 2")
}

func TestParser_Parse_MaxEvents(t *testing.T) {
	p, err := NewFactory().Create(parser.WithMaxEvents(2))
	require.NoError(t, err)

	result, err := p.Parse(context.Background(), strings.NewReader("a-1/1;f 1\na-1/1;g 1\na-1/1;h 1"))
	require.NoError(t, err)
	assert.Len(t, result.Events, 2)
}

func TestParser_Parse_Handler(t *testing.T) {
	var methods []string
	p, err := NewFactory().Create(
		parser.WithMaxEvents(2),
		parser.WithHandler(func(result *model.ParseResult, e *model.Event) error {
			assert.Equal(t, int64(len(methods)+1), result.TotalEvents)
			methods = append(methods, e.Stack[0].Method)
			return nil
		}),
	)
	require.NoError(t, err)

	result, err := p.Parse(context.Background(), strings.NewReader("a-1/1;f 1\nbad\na-1/1;g 1\na-1/1;h 1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"f", "g"}, methods)
	assert.Empty(t, result.Events)
	assert.Equal(t, int64(2), result.TotalEvents)
	assert.Equal(t, int64(1), result.Skipped)
}

func TestParser_Parse_HandlerError(t *testing.T) {
	stop := errors.New("analyzer failed")
	calls := 0
	p, err := NewFactory().Create(parser.WithHandler(func(*model.ParseResult, *model.Event) error {
		calls++
		return stop
	}))
	require.NoError(t, err)

	_, err = p.Parse(context.Background(), strings.NewReader("a-1/1;f 1\na-1/1;g 1"))
	assert.Same(t, stop, err)
	assert.Equal(t, 1, calls)
}

func TestParser_Parse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser(nil).Parse(ctx, strings.NewReader("a-1/1;f 1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegisterWithRegistry(t *testing.T) {
	r := parser.NewRegistry()
	RegisterWithRegistry(r)
	assert.Equal(t, []string{"collapsed", "folded"}, r.Formats())

	p, err := r.Get("folded")
	require.NoError(t, err)
	assert.Equal(t, "collapsed", p.Name())

	_, err = r.Get("perf")
	assert.ErrorIs(t, err, parser.ErrUnsupportedFormat)
}

func TestParser_Parse_APMThreads(t *testing.T) {
	input := "java-1/2;[Thread-7 tid=9];run(App.java);;[];work(App.java) 4\n[pool-1 tid=12];io!read 1"

	result, err := NewParser(nil).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Events, 2)

	e := result.Events[0]
	assert.Equal(t, "java", e.Process)
	assert.Equal(t, []model.Frame{
		{Module: "App.java", Method: "work"},
		{Module: "App.java", Method: "run"},
	}, e.Stack)

	e = result.Events[1]
	assert.Equal(t, "pool-1", e.Process)
	assert.Equal(t, 12, e.TID)
	assert.Equal(t, []model.Frame{{Module: "io", Method: "read"}}, e.Stack)
}
