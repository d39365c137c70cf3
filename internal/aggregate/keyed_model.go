package aggregate

import (
	"iter"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/internal/graph"
	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/utils"
)

type bucket struct {
	stack  []frame.Ident
	tags   []string
	count  int64
	weight int64
}

// KeyedModel counts samples per exact (stack, tag set) key. Stacks compare
// frame by frame with module names folded; tag sets compare unordered.
type KeyedModel struct {
	logger    utils.Logger
	validator *graph.Validator[*frame.Frame]

	buckets map[uint64][]*bucket
	order   []*bucket
	scratch []frame.Ident
	ignored int64
}

// NewKeyedModel creates an empty keyed-counter model.
func NewKeyedModel(logger utils.Logger) *KeyedModel {
	return &KeyedModel{
		logger:    utils.Or(logger),
		validator: graph.NewValidator[*frame.Frame](),
		buckets:   make(map[uint64][]*bucket),
	}
}

// Kind implements Model.
func (m *KeyedModel) Kind() Kind { return KindKeyed }

// Add implements Model.
func (m *KeyedModel) Add(d Data) error {
	s, ok := d.(*StackData)
	if !ok {
		m.ignored++
		m.logger.Warn("Ignoring data of type %T that the keyed model cannot process", d)
		return nil
	}
	return m.AddStack(s)
}

// AddStack counts one sample.
func (m *KeyedModel) AddStack(s *StackData) error {
	leaf := s.Leaf
	if s.Root != nil && leaf == nil {
		leaf = graph.Leaf(s.Root)
	}
	if err := m.validator.Check(s.Root, leaf); err != nil {
		return apperrors.Wrap(apperrors.CodeMalformedChain, "reject stack sample", err)
	}

	m.scratch = m.scratch[:0]
	if leaf != nil {
		for f := range graph.Ancestors(leaf) {
			m.scratch = append(m.scratch, f.Ident())
		}
	}
	tags := frame.NormalizeTags(s.Tags)
	key := keyHash(m.scratch, tags)

	b := m.find(key, m.scratch, tags)
	if b == nil {
		b = &bucket{
			stack: append([]frame.Ident(nil), m.scratch...),
			tags:  tags,
		}
		m.buckets[key] = append(m.buckets[key], b)
		m.order = append(m.order, b)
	}
	count, weight := s.values()
	b.count += count
	b.weight += weight
	return nil
}

func (m *KeyedModel) find(key uint64, stack []frame.Ident, tags []string) *bucket {
	for _, b := range m.buckets[key] {
		if sameStack(b.stack, stack) && sameTags(b.tags, tags) {
			return b
		}
	}
	return nil
}

func keyHash(stack []frame.Ident, tags []string) uint64 {
	d := xxhash.New()
	for _, id := range stack {
		_, _ = d.WriteString(strings.ToLower(id.Module))
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(id.Method)
		_, _ = d.Write([]byte{1})
	}
	_, _ = d.Write([]byte{2})
	for _, t := range tags {
		_, _ = d.WriteString(strings.ToLower(t))
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

func sameStack(a, b []frame.Ident) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Method != b[i].Method || !strings.EqualFold(a[i].Module, b[i].Module) {
			return false
		}
	}
	return true
}

// sameTags compares normalized tag sets.
func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Len returns the number of distinct keys.
func (m *KeyedModel) Len() int { return len(m.order) }

// Ignored returns the number of rejected values.
func (m *KeyedModel) Ignored() int64 { return m.ignored }

// Totals implements Model.
func (m *KeyedModel) Totals() (count, weight int64) {
	for _, b := range m.order {
		count += b.count
		weight += b.weight
	}
	return count, weight
}

// Rows implements RowSource, in first-seen order.
func (m *KeyedModel) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, b := range m.order {
			if !yield(Row{Stack: b.stack, Tags: b.tags, Count: b.count, Weight: b.weight}) {
				return
			}
		}
	}
}
