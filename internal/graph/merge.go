package graph

import (
	"github.com/stack-analysis/pkg/collections"
)

// MergeFunc folds the metrics of src into the matched accumulator node dst.
type MergeFunc[T any] func(src, dst T)

// InsertFunc produces the accumulator copy of a source subtree that has no
// matching branch. The result must be unlinked.
type InsertFunc[T any] func(src T) T

type mergePair[T any] struct {
	src T
	dst T
}

// Merger folds source trees into an accumulator forest.
//
// Merger owns a free-list of work stacks and is not safe for concurrent use;
// one Merger belongs to one accumulator.
type Merger[T Node[T]] struct {
	cmp    Comparer[T]
	merge  MergeFunc[T]
	insert InsertFunc[T]
	stacks *collections.FreeList[*collections.Stack[mergePair[T]]]
}

// MergerOption configures a Merger.
type MergerOption[T Node[T]] func(*Merger[T])

// WithMergeFunc replaces the hook run on matched nodes.
func WithMergeFunc[T Node[T]](fn MergeFunc[T]) MergerOption[T] {
	return func(m *Merger[T]) {
		m.merge = fn
	}
}

// WithInsertFunc replaces the hook that copies unmatched source subtrees.
func WithInsertFunc[T Node[T]](fn InsertFunc[T]) MergerOption[T] {
	return func(m *Merger[T]) {
		m.insert = fn
	}
}

// NewMerger creates a merger. Without options matched nodes are left as-is
// and unmatched subtrees are deep-copied with Node.Clone.
func NewMerger[T Node[T]](cmp Comparer[T], opts ...MergerOption[T]) *Merger[T] {
	m := &Merger[T]{
		cmp:    cmp,
		merge:  func(T, T) {},
		insert: func(src T) T { return CloneSubtree(src, func(n T) T { return n.Clone() }) },
		stacks: collections.NewStackList[mergePair[T]](32),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge folds the tree rooted at source, including source's own siblings,
// into the forest whose first root is head. It returns the forest head,
// which only changes when head is the zero node.
func (m *Merger[T]) Merge(source, head T) T {
	if IsNil(source) {
		return head
	}
	if IsNil(head) {
		head = m.insert(source)
		source = source.Sibling()
		if IsNil(source) {
			return head
		}
	}

	work := m.stacks.Get()
	defer m.stacks.Put(work)

	work.Push(mergePair[T]{src: source, dst: head})
	for !work.IsEmpty() {
		p, _ := work.Pop()
		src, dst := p.src, p.dst

		matched := m.match(src, dst, head)
		if IsNil(matched) {
			AddSibling(dst, m.insert(src))
		} else {
			m.merge(src, matched)

			if sc := src.Child(); !IsNil(sc) {
				if tc := matched.Child(); IsNil(tc) {
					for c := sc; !IsNil(c); c = c.Sibling() {
						AddChild(matched, m.insert(c))
					}
				} else {
					work.Push(mergePair[T]{src: sc, dst: tc})
				}
			}
		}

		if ss := src.Sibling(); !IsNil(ss) {
			work.Push(mergePair[T]{src: ss, dst: dst})
		}
	}
	return head
}

// match returns the node on dst's level equal to src, or the zero node.
func (m *Merger[T]) match(src, dst, head T) T {
	h := m.cmp.Hash(src)
	if m.cmp.Hash(dst) == h && m.cmp.Equal(dst, src) {
		return dst
	}

	start := head
	if p := dst.Parent(); !IsNil(p) {
		start = p.Child()
	}
	for cur := start; !IsNil(cur); cur = cur.Sibling() {
		if cur == dst {
			continue
		}
		if m.cmp.Hash(cur) == h && m.cmp.Equal(cur, src) {
			return cur
		}
	}
	var zero T
	return zero
}
