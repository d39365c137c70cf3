package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/frame"
)

func TestTagStatsCalculator_Calculate(t *testing.T) {
	m := buildModel(t, []sample{
		{"main>run", 60, []string{"process: a"}},
		{"main>run", 30, []string{"process: b", "gc"}},
		{"main>idle", 10, []string{"process: b"}},
		{"boot", 5, nil},
	})

	result := NewTagStatsCalculator().Calculate(m)

	assert.Equal(t, int64(105), result.TotalWeight)
	require.Len(t, result.Tags, 3)
	assert.Equal(t, "process: a", result.Tags[0].Tag)
	assert.Equal(t, int64(60), result.Tags[0].Weight)

	b := result.GetTag("process: b")
	require.NotNil(t, b)
	assert.Equal(t, int64(40), b.Weight, "both branches of the tag add up")
	assert.Equal(t, int64(2), b.Count)

	gc := result.GetTag("gc")
	require.NotNil(t, gc)
	assert.InDelta(t, 30.0/105.0*100, gc.Percentage, 0.001)

	assert.Nil(t, result.GetTag("process: c"))
}

func TestTagStatsCalculator_MaxTags(t *testing.T) {
	m := buildModel(t, []sample{
		{"f", 3, []string{"process: a"}},
		{"f", 2, []string{"process: b"}},
		{"f", 1, []string{"process: c"}},
	})

	result := NewTagStatsCalculator(WithMaxTags(2)).Calculate(m)
	require.Len(t, result.Tags, 2)
	assert.Equal(t, "process: a", result.Tags[0].Tag)
	assert.Equal(t, "process: b", result.Tags[1].Tag)
}

func TestSummarize(t *testing.T) {
	m := buildModel(t, []sample{
		{"main>run", 60, []string{"process: a"}},
		{"main>run", 40, []string{"process: b"}},
	})
	require.NoError(t, m.Add(foreign{}))

	s := Summarize("cpu", m, 1)

	assert.Equal(t, "cpu", s.Analyzer)
	assert.Equal(t, "samples", s.Unit)
	assert.Equal(t, int64(2), s.TotalCount)
	assert.Equal(t, int64(100), s.TotalWeight)
	assert.Equal(t, int64(2), s.Samples)
	assert.Equal(t, int64(1), s.Ignored)
	assert.Equal(t, 2, s.SampleLeaves)
	require.Len(t, s.TopFuncs, 1)
	assert.Equal(t, "app!run", s.TopFuncs[0].Name)
	assert.Len(t, s.Tags, 2)
	assert.NotNil(t, s.Files)

	empty := Summarize("cpu", aggregate.NewGraphModel(frame.CountWeight("samples"), nil), 10)
	assert.Empty(t, empty.TopFuncs)
	assert.Empty(t, empty.Tags)
}

type foreign struct{}

func (foreign) DataType() string { return "foreign" }
