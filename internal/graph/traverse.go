package graph

import (
	"iter"

	"github.com/stack-analysis/pkg/collections"
)

// Ancestors yields n, its parent, its parent's parent, and so on up to the root.
func Ancestors[T Node[T]](n T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for cur := n; !IsNil(cur); cur = cur.Parent() {
			if !yield(cur) {
				return
			}
		}
	}
}

// Children yields the direct children of n in chain order.
func Children[T Node[T]](n T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for cur := n.Child(); !IsNil(cur); cur = cur.Sibling() {
			if !yield(cur) {
				return
			}
		}
	}
}

// Siblings yields every node sharing n's parent, n included. For a
// parentless node the walk starts at n itself.
func Siblings[T Node[T]](n T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for cur := First(n); !IsNil(cur); cur = cur.Sibling() {
			if !yield(cur) {
				return
			}
		}
	}
}

// Walker runs depth-first and breadth-first walks with pooled buffers.
// A Walker is not safe for concurrent use.
type Walker[T Node[T]] struct {
	stacks *collections.FreeList[*collections.Stack[T]]
	queues *collections.FreeList[*collections.Queue[T]]
}

// NewWalker creates a walker with empty buffer pools.
func NewWalker[T Node[T]]() *Walker[T] {
	return &Walker[T]{
		stacks: collections.NewStackList[T](64),
		queues: collections.NewQueueList[T](64),
	}
}

// DepthFirst yields n and then its descendants in pre-order: a node, then
// the full subtree of its first child, then the next child. n's own siblings
// are not visited.
func (w *Walker[T]) DepthFirst(n T) iter.Seq[T] {
	return func(yield func(T) bool) {
		if IsNil(n) {
			return
		}
		stack := w.stacks.Get()
		defer w.stacks.Put(stack)

		stack.Push(n)
		for !stack.IsEmpty() {
			cur, _ := stack.Pop()
			if !yield(cur) {
				return
			}
			if cur != n {
				if s := cur.Sibling(); !IsNil(s) {
					stack.Push(s)
				}
			}
			if c := cur.Child(); !IsNil(c) {
				stack.Push(c)
			}
		}
	}
}

// BreadthFirst yields n and then its descendants level by level, children of
// one parent grouped together.
func (w *Walker[T]) BreadthFirst(n T) iter.Seq[T] {
	return func(yield func(T) bool) {
		if IsNil(n) {
			return
		}
		queue := w.queues.Get()
		defer w.queues.Put(queue)

		queue.Enqueue(n)
		for !queue.IsEmpty() {
			cur, _ := queue.Dequeue()
			if !yield(cur) {
				return
			}
			for c := cur.Child(); !IsNil(c); c = c.Sibling() {
				queue.Enqueue(c)
			}
		}
	}
}

// Forest yields the depth-first walk of every tree in the sibling chain
// starting at head.
func (w *Walker[T]) Forest(head T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for root := head; !IsNil(root); root = root.Sibling() {
			for n := range w.DepthFirst(root) {
				if !yield(n) {
					return
				}
			}
		}
	}
}

// DepthFirst walks n with a throwaway walker.
func DepthFirst[T Node[T]](n T) iter.Seq[T] {
	return NewWalker[T]().DepthFirst(n)
}

// BreadthFirst walks n level by level with a throwaway walker.
func BreadthFirst[T Node[T]](n T) iter.Seq[T] {
	return NewWalker[T]().BreadthFirst(n)
}

// CloneSubtree deep-copies n and its descendants using clone for each node.
// The copy has no parent and no sibling; child order is preserved.
func CloneSubtree[T Node[T]](n T, clone func(T) T) T {
	type pair struct{ src, dst T }

	root := clone(n)
	stack := collections.NewStack[pair](16)
	stack.Push(pair{n, root})
	for !stack.IsEmpty() {
		p, _ := stack.Pop()
		var prev T
		for c := p.src.Child(); !IsNil(c); c = c.Sibling() {
			cc := clone(c)
			cc.SetParent(p.dst)
			if IsNil(prev) {
				p.dst.SetChild(cc)
			} else {
				prev.SetSibling(cc)
			}
			prev = cc
			if !IsNil(c.Child()) {
				stack.Push(pair{c, cc})
			}
		}
	}
	return root
}

// CloneChain copies the path from leaf up to its root as a linear chain and
// returns the copied root and leaf. Siblings along the path are not copied.
func CloneChain[T Node[T]](leaf T, clone func(T) T) (root, copiedLeaf T) {
	var below T
	for cur := leaf; !IsNil(cur); cur = cur.Parent() {
		c := clone(cur)
		if IsNil(below) {
			copiedLeaf = c
		} else {
			c.SetChild(below)
			below.SetParent(c)
		}
		below = c
	}
	return below, copiedLeaf
}
