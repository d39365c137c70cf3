package aggregate

import (
	"iter"

	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/internal/graph"
	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/utils"
)

// GraphModel merges every sample into one accumulator forest. Tags become
// synthetic ancestor frames, so each distinct tag set owns a top-level
// branch.
//
// A GraphModel, like the pools it owns, belongs to a single goroutine.
type GraphModel struct {
	logger utils.Logger
	schema frame.Schema

	arena     *frame.Arena
	merger    *graph.Merger[*frame.Frame]
	validator *graph.Validator[*frame.Frame]
	walker    *graph.Walker[*frame.Frame]

	head    *frame.Frame
	samples int64
	ignored int64
}

// NewGraphModel creates an empty merged-tree model.
func NewGraphModel(schema frame.Schema, logger utils.Logger) *GraphModel {
	m := &GraphModel{
		logger:    utils.Or(logger),
		schema:    schema,
		arena:     frame.NewArena(0),
		validator: graph.NewValidator[*frame.Frame](),
		walker:    graph.NewWalker[*frame.Frame](),
	}
	m.merger = graph.NewMerger[*frame.Frame](frame.Comparer{},
		graph.WithMergeFunc(frame.SumMetrics),
		graph.WithInsertFunc(m.insert),
	)
	return m
}

func (m *GraphModel) insert(src *frame.Frame) *frame.Frame {
	return graph.CloneSubtree(src, m.arena.Clone)
}

// Kind implements Model.
func (m *GraphModel) Kind() Kind { return KindTree }

// Schema returns the metric schema of the tree.
func (m *GraphModel) Schema() frame.Schema { return m.schema }

// Add implements Model.
func (m *GraphModel) Add(d Data) error {
	s, ok := d.(*StackData)
	if !ok {
		m.ignored++
		m.logger.Warn("Ignoring data of type %T that the merged tree model cannot process", d)
		return nil
	}
	return m.AddStack(s)
}

// AddStack merges one sample.
func (m *GraphModel) AddStack(s *StackData) error {
	root, leaf := s.Root, s.Leaf
	switch {
	case root != nil && leaf == nil:
		leaf = graph.Leaf(root)
	case root == nil && leaf != nil:
		var err error
		if root, err = graph.RootOf(leaf); err != nil {
			return apperrors.Wrap(apperrors.CodeMalformedChain, "reject stack sample", err)
		}
	}
	if err := m.validator.Check(root, leaf); err != nil {
		return apperrors.Wrap(apperrors.CodeMalformedChain, "reject stack sample", err)
	}

	top := frame.WithTags(root, s.Tags)
	if top == nil {
		// No frames and no tags: nothing to attribute the sample to.
		m.ignored++
		m.logger.Debug("Ignoring empty stack sample")
		return nil
	}
	if leaf == nil {
		leaf = graph.Leaf(top)
	}

	count, weight := s.values()
	frame.Attribute(leaf, count, weight)
	m.head = m.merger.Merge(top, m.head)
	m.samples++
	return nil
}

// Merge folds another tree, for instance one built by a different run of
// the same analyzer, into this model. Its metrics must already be
// attributed.
func (m *GraphModel) Merge(head *frame.Frame) error {
	if err := m.validator.Check(head); err != nil {
		return apperrors.Wrap(apperrors.CodeMalformedChain, "reject merged tree", err)
	}
	m.head = m.merger.Merge(head, m.head)
	return nil
}

// Head returns the first root of the forest, or nil when empty.
func (m *GraphModel) Head() *frame.Frame { return m.head }

// Roots yields the top-level nodes of the forest.
func (m *GraphModel) Roots() iter.Seq[*frame.Frame] {
	return func(yield func(*frame.Frame) bool) {
		for r := m.head; r != nil; r = r.Sibling() {
			if !yield(r) {
				return
			}
		}
	}
}

// Nodes yields every node of the forest depth first, parents before
// children.
func (m *GraphModel) Nodes() iter.Seq[*frame.Frame] {
	return m.walker.Forest(m.head)
}

// BreadthFirst yields the nodes of one branch level by level.
func (m *GraphModel) BreadthFirst(root *frame.Frame) iter.Seq[*frame.Frame] {
	return m.walker.BreadthFirst(root)
}

// Samples returns the number of merged samples.
func (m *GraphModel) Samples() int64 { return m.samples }

// Ignored returns the number of rejected values.
func (m *GraphModel) Ignored() int64 { return m.ignored }

// Size returns the number of accumulator nodes.
func (m *GraphModel) Size() int { return m.arena.Len() }

// Totals implements Model.
func (m *GraphModel) Totals() (count, weight int64) {
	for r := range m.Roots() {
		count += r.Count()
		weight += r.Weight()
	}
	return count, weight
}

// IsSampleLeaf reports whether some sample ended at f.
func IsSampleLeaf(f *frame.Frame) bool {
	return f.SelfCount() != 0 || f.SelfWeight() != 0
}

// Rows implements RowSource: one row per node at which samples ended.
func (m *GraphModel) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for n := range m.Nodes() {
			if !IsSampleLeaf(n) {
				continue
			}
			row := Row{
				Tags:   frame.Tags(n),
				Count:  n.SelfCount(),
				Weight: n.SelfWeight(),
			}
			for f := range graph.Ancestors(n) {
				if !f.IsTag() {
					row.Stack = append(row.Stack, f.Ident())
				}
			}
			if !yield(row) {
				return
			}
		}
	}
}
