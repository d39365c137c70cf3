package aggregate_test

import (
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/internal/graph"
	"github.com/stack-analysis/internal/testutil"
	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/utils"
)

type sample struct {
	path   string
	weight int64
	tags   []string
}

var workload = []sample{
	{"main>run>parse", 10, []string{"process: a"}},
	{"main>run>parse", 5, []string{"process: a"}},
	{"main>run>emit", 7, []string{"process: a"}},
	{"main>run", 3, []string{"process: a"}},
	{"main>run>parse", 2, []string{"process: b"}},
	{"main>idle", 1, []string{"process: b", "gc"}},
	{"main>idle", 1, []string{"gc", "process: b"}},
	{"kernel32!BaseThreadInitThunk>ntdll!RtlUserThreadStart", 4, nil},
}

func feed(t *testing.T, m aggregate.Model, samples []sample) {
	t.Helper()
	for _, s := range samples {
		require.NoError(t, m.Add(aggregate.NewStackData(testutil.Idents(s.path), s.weight, s.tags...)))
	}
}

func rowKey(r aggregate.Row) string {
	var sb strings.Builder
	for _, id := range r.Stack {
		sb.WriteString(id.Module + "!" + id.Method + ";")
	}
	sb.WriteString("|" + strings.Join(r.Tags, ";"))
	return sb.String()
}

func rowMap(src aggregate.RowSource) map[string][2]int64 {
	out := make(map[string][2]int64)
	for r := range src.Rows() {
		out[rowKey(r)] = [2]int64{r.Count, r.Weight}
	}
	return out
}

func TestGraphModel_Totals(t *testing.T) {
	m := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)
	feed(t, m, workload)

	count, weight := m.Totals()
	assert.Equal(t, int64(len(workload)), count)
	assert.Equal(t, int64(33), weight)
	assert.Equal(t, int64(len(workload)), m.Samples())
	assert.Equal(t, aggregate.KindTree, m.Kind())
}

func TestGraphModel_TagBranches(t *testing.T) {
	m := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)
	feed(t, m, workload)

	var roots []string
	for r := range m.Roots() {
		roots = append(roots, r.String())
	}
	slices.Sort(roots)
	assert.Equal(t, []string{"gc", "kernel32!BaseThreadInitThunk", "process: a", "process: b"}, roots)

	for r := range m.Roots() {
		if r.Module == "gc" {
			assert.True(t, r.IsTag())
			assert.Equal(t, int64(2), r.Count(), "tag order must not split the branch")
			require.NotNil(t, r.Child())
			assert.Equal(t, "process: b", r.Child().Module)
		}
	}
}

func TestGraphModel_OrderIndependence(t *testing.T) {
	base := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)
	feed(t, base, workload)
	want := rowMap(base)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := slices.Clone(workload)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		m := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)
		feed(t, m, shuffled)
		assert.Equal(t, want, rowMap(m))
		c1, w1 := base.Totals()
		c2, w2 := m.Totals()
		assert.Equal(t, c1, c2)
		assert.Equal(t, w1, w2)
	}
}

func TestGraphModel_RowsMatchKeyedModel(t *testing.T) {
	tree := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)
	keyed := aggregate.NewKeyedModel(nil)
	feed(t, tree, workload)
	feed(t, keyed, workload)

	assert.Equal(t, rowMap(keyed), rowMap(tree))
}

func TestGraphModel_InclusiveExclusive(t *testing.T) {
	m := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)
	feed(t, m, []sample{
		{"main>run>parse", 10, nil},
		{"main>run", 3, nil},
	})

	run := m.Head().Child()
	require.NotNil(t, run)
	assert.Equal(t, int64(13), run.Weight())
	assert.Equal(t, int64(3), run.SelfWeight())
	assert.Equal(t, int64(10), run.Child().SelfWeight())
	assert.True(t, aggregate.IsSampleLeaf(run))
	assert.False(t, aggregate.IsSampleLeaf(m.Head()))
}

func TestGraphModel_TypeMismatch(t *testing.T) {
	log := testutil.NewRecordingLogger()
	m := aggregate.NewGraphModel(frame.CountWeight("samples"), log)
	feed(t, m, workload[:2])

	assert.NoError(t, m.Add(foreignData{}))

	assert.Equal(t, int64(1), m.Ignored())
	assert.True(t, log.Contains(utils.LevelWarn, "foreignData"))
	count, _ := m.Totals()
	assert.Equal(t, int64(2), count)
}

func TestGraphModel_MalformedChain(t *testing.T) {
	m := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)
	feed(t, m, workload[:1])
	sizeBefore := m.Size()

	bad := aggregate.NewStackData(testutil.Idents("a>b>c"), 1)
	bad.Leaf.SetChild(bad.Root.Child())

	err := m.Add(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMalformedChain)
	assert.ErrorIs(t, err, graph.ErrMalformedChain)
	assert.Equal(t, sizeBefore, m.Size())
	assert.Equal(t, int64(1), m.Samples())

	stray := aggregate.NewStackData(testutil.Idents("a>b"), 1)
	stray.Leaf = frame.New("x", "y")
	assert.ErrorIs(t, m.Add(stray), apperrors.ErrMalformedChain)
}

func TestGraphModel_LeafOnlySample(t *testing.T) {
	m := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)

	require.NoError(t, m.Add(&aggregate.StackData{
		Leaf: frame.New("app", "main"), Count: 1, Weight: 5, Tags: []string{"process: p"},
	}))
	chained := aggregate.NewStackData(testutil.Idents("main>run>parse"), 3, "process: p")
	chained.Root = nil
	require.NoError(t, m.Add(chained))

	count, weight := m.Totals()
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(8), weight)
	assert.Equal(t, int64(2), m.Samples())

	rows := slices.Collect(m.Rows())
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, []string{"process: p"}, r.Tags)
		assert.NotEmpty(t, r.Stack)
	}
}

func TestGraphModel_LeafParentCycle(t *testing.T) {
	m := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)
	leaf, parent := frame.New("app", "leaf"), frame.New("app", "parent")
	leaf.SetParent(parent)
	parent.SetParent(leaf)

	err := m.Add(&aggregate.StackData{Leaf: leaf, Count: 1, Weight: 1})
	assert.ErrorIs(t, err, apperrors.ErrMalformedChain)
	assert.Zero(t, m.Samples())
	assert.Nil(t, m.Head())
}

func TestGraphModel_EmptySample(t *testing.T) {
	m := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)

	require.NoError(t, m.Add(aggregate.NewStackData(nil, 1)))
	assert.Nil(t, m.Head())
	assert.Equal(t, int64(1), m.Ignored())

	require.NoError(t, m.Add(aggregate.NewStackData(nil, 2, "process: idle")))
	require.NotNil(t, m.Head())
	assert.Equal(t, int64(2), m.Head().SelfWeight())

	rows := slices.Collect(m.Rows())
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Stack)
	assert.Equal(t, []string{"process: idle"}, rows[0].Tags)
}

func TestGraphModel_MergeTree(t *testing.T) {
	a := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)
	b := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)
	feed(t, a, workload[:4])
	feed(t, b, workload[4:])

	require.NoError(t, a.Merge(b.Head()))

	all := aggregate.NewGraphModel(frame.CountWeight("samples"), nil)
	feed(t, all, workload)
	assert.Equal(t, rowMap(all), rowMap(a))
}

func TestKeyedModel(t *testing.T) {
	t.Run("distinct keys and counts", func(t *testing.T) {
		m := aggregate.NewKeyedModel(nil)
		feed(t, m, workload)

		// parse/a twice and idle/{gc,process: b} twice collapse.
		assert.Equal(t, len(workload)-2, m.Len())
		count, weight := m.Totals()
		assert.Equal(t, int64(len(workload)), count)
		assert.Equal(t, int64(33), weight)
		assert.Equal(t, aggregate.KindKeyed, m.Kind())
	})

	t.Run("module names fold", func(t *testing.T) {
		m := aggregate.NewKeyedModel(nil)
		feed(t, m, []sample{
			{"KERNEL32!Start>ntdll!Run", 1, nil},
			{"kernel32!Start>NTDLL!Run", 1, nil},
			{"kernel32!start>ntdll!Run", 1, nil},
		})
		assert.Equal(t, 2, m.Len(), "method names stay case-sensitive")
	})

	t.Run("first seen order", func(t *testing.T) {
		m := aggregate.NewKeyedModel(nil)
		feed(t, m, []sample{{"a>b", 1, nil}, {"a>c", 1, nil}, {"a>b", 1, nil}})
		rows := slices.Collect(m.Rows())
		require.Len(t, rows, 2)
		assert.Equal(t, "b", rows[0].Stack[0].Method)
		assert.Equal(t, int64(2), rows[0].Count)
	})

	t.Run("type mismatch", func(t *testing.T) {
		log := testutil.NewRecordingLogger()
		m := aggregate.NewKeyedModel(log)
		assert.NoError(t, m.Add(foreignData{}))
		assert.Equal(t, 0, m.Len())
		assert.Equal(t, int64(1), m.Ignored())
		assert.Len(t, log.Entries(utils.LevelWarn), 1)
	})

	t.Run("malformed chain", func(t *testing.T) {
		m := aggregate.NewKeyedModel(nil)
		bad := aggregate.NewStackData(testutil.Idents("a>b"), 1)
		bad.Root.SetParent(bad.Leaf)
		assert.ErrorIs(t, m.Add(bad), apperrors.ErrMalformedChain)
	})
}

type foreignData struct{}

func (foreignData) DataType() string { return "marker" }
