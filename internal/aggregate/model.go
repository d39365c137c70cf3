// Package aggregate folds stack samples into the models exported at the end
// of a run.
package aggregate

import (
	"iter"

	"github.com/stack-analysis/internal/frame"
)

// Data is a value an analyzer feeds to its models. Models accept the
// shapes they understand and ignore the rest with a warning.
type Data interface {
	DataType() string
}

// StackData is one stack observation. Root and Leaf delimit a linear chain
// of throwaway frames; the chain is consumed by the model that receives it.
type StackData struct {
	Root   *frame.Frame
	Leaf   *frame.Frame
	Count  int64
	Weight int64
	Tags   []string
}

// NewStackData builds a sample from idents listed leaf first, with count 1.
// A weight of zero or less defaults to 1.
func NewStackData(leafFirst []frame.Ident, weight int64, tags ...string) *StackData {
	root, leaf := frame.Chain(leafFirst)
	if weight <= 0 {
		weight = 1
	}
	return &StackData{
		Root:   root,
		Leaf:   leaf,
		Count:  1,
		Weight: weight,
		Tags:   tags,
	}
}

// DataType implements Data.
func (s *StackData) DataType() string { return "stack" }

func (s *StackData) values() (count, weight int64) {
	count, weight = s.Count, s.Weight
	if count <= 0 {
		count = 1
	}
	if weight <= 0 {
		weight = 1
	}
	return count, weight
}

// Kind identifies a model shape requested by an export format.
type Kind string

const (
	// KindTree is the merged weighted tree.
	KindTree Kind = "tree"
	// KindKeyed is the keyed-counter table.
	KindKeyed Kind = "keyed"
)

// Model accumulates data for one analyzer.
type Model interface {
	Kind() Kind
	// Add folds d into the model. Unsupported data is logged and ignored;
	// an error means the data was malformed and the run must stop.
	Add(d Data) error
	// Totals returns the summed count and weight of every accepted sample.
	Totals() (count, weight int64)
}

// Row is one (stack, tags) bucket of the keyed view.
type Row struct {
	// Stack lists frames leaf first. Tag frames are excluded.
	Stack  []frame.Ident
	Tags   []string
	Count  int64
	Weight int64
}

// RowSource is implemented by models that can be rendered as a table.
type RowSource interface {
	Rows() iter.Seq[Row]
}
