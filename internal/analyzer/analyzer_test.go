package analyzer

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/pkg/model"
)

func stack(leafFirst ...string) []model.Frame {
	out := make([]model.Frame, len(leafFirst))
	for i, s := range leafFirst {
		out[i] = model.Frame{Module: "app", Method: s}
	}
	return out
}

func rowsOf(t *testing.T, m aggregate.Model) []aggregate.Row {
	t.Helper()
	src, ok := m.(aggregate.RowSource)
	require.True(t, ok)
	return slices.Collect(src.Rows())
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"cpu", "exceptions", "memallocs"}, Names())
	assert.True(t, Has(" CPU "))
	assert.False(t, Has("disk"))

	_, err := New("disk", nil)
	assert.ErrorIs(t, err, ErrUnknownAnalyzer)

	for _, info := range All() {
		a, err := New(info.Name, nil)
		require.NoError(t, err)
		assert.Equal(t, info.Name, a.Name())
		assert.Equal(t, info.Unit, a.Unit())
		assert.True(t, a.Accepts(info.EventKind))
	}
}

func TestCPUAnalyzer(t *testing.T) {
	a := NewCPUAnalyzer(&Config{Tags: []string{"run: 1"}})

	require.NoError(t, a.Process(&model.Event{Kind: model.EventKindCPU, Process: "svc", Stack: stack("leaf", "main")}))
	require.NoError(t, a.Process(&model.Event{Kind: model.EventKindCPU, Process: "svc", Stack: stack("leaf", "main"), Weight: 4}))
	require.NoError(t, a.Process(&model.Event{Kind: model.EventKindAlloc, Process: "svc", Stack: stack("leaf")}))

	processed, ignored := a.Stats()
	assert.Equal(t, int64(2), processed)
	assert.Equal(t, int64(1), ignored)

	count, weight := a.Tree().Totals()
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(5), weight)
	assert.Equal(t, "samples", a.Tree().Schema().WeightUnit())

	rows := rowsOf(t, a.Tree())
	require.Len(t, rows, 1)
	assert.Equal(t, []frame.Ident{{Module: "app", Method: "leaf"}, {Module: "app", Method: "main"}}, rows[0].Stack)
	assert.Equal(t, []string{"process: svc", "run: 1"}, frame.NormalizeTags(rows[0].Tags))

	assert.Nil(t, a.Model(aggregate.KindKeyed), "keyed model only when requested")
	assert.Same(t, a.Tree(), a.Model(aggregate.KindTree))
	assert.NotNil(t, a.Walker())
}

func TestMemAllocsAnalyzer(t *testing.T) {
	a := NewMemAllocsAnalyzer(&Config{Models: []aggregate.Kind{aggregate.KindTree, aggregate.KindKeyed}})

	require.NoError(t, a.Process(&model.Event{Kind: model.EventKindAlloc, Process: "svc", Stack: stack("New"), Weight: 64, TypeName: "Buffer"}))
	require.NoError(t, a.Process(&model.Event{Kind: model.EventKindAlloc, Process: "svc", Stack: stack("New"), Weight: 32, TypeName: "string"}))
	require.NoError(t, a.Process(&model.Event{Kind: model.EventKindAlloc, Process: "svc", Stack: stack("New"), Weight: 16, TypeName: "Buffer"}))

	keyed := a.Model(aggregate.KindKeyed)
	require.NotNil(t, keyed)

	for _, m := range []aggregate.Model{a.Tree(), keyed} {
		_, weight := m.Totals()
		assert.Equal(t, int64(112), weight)

		rows := rowsOf(t, m)
		require.Len(t, rows, 2)
		byType := map[string]int64{}
		for _, r := range rows {
			assert.Equal(t, AllocModule, r.Stack[0].Module)
			byType[r.Stack[0].Method] = r.Weight
		}
		assert.Equal(t, map[string]int64{"Buffer": 80, "string": 32}, byType)
	}
	assert.Equal(t, "bytes", a.Unit())
}

func TestExceptionsAnalyzer(t *testing.T) {
	a := NewExceptionsAnalyzer(nil)

	require.NoError(t, a.Process(&model.Event{Kind: model.EventKindException, Process: "svc", Stack: stack("Throw"), Weight: 99, TypeName: "IOException"}))
	require.NoError(t, a.Process(&model.Event{Kind: model.EventKindException, Process: "svc", Stack: stack("Throw")}))

	count, weight := a.Tree().Totals()
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(2), weight, "one per throw regardless of event weight")

	rows := rowsOf(t, a.Tree())
	require.Len(t, rows, 2)
	var typed bool
	for _, r := range rows {
		if r.Stack[0].Module == ExceptionModule {
			assert.Equal(t, "IOException", r.Stack[0].Method)
			typed = true
		}
	}
	assert.True(t, typed)
}

func TestConfig_UnitOverride(t *testing.T) {
	a := NewCPUAnalyzer(&Config{Unit: "nanoseconds"})
	assert.Equal(t, "nanoseconds", a.Unit())
	assert.Equal(t, "nanoseconds", a.Tree().Schema().WeightUnit())
}

func TestProcess_EmptyStack(t *testing.T) {
	a := NewCPUAnalyzer(nil)
	require.NoError(t, a.Process(&model.Event{Kind: model.EventKindCPU}))

	processed, _ := a.Stats()
	assert.Equal(t, int64(1), processed)
	assert.Zero(t, a.Tree().Samples(), "nothing to attribute without frames or tags")
}
