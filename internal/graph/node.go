// Package graph implements tree operations over intrusively linked nodes:
// traversal, structural cloning, validation and the merge of stack chains
// into an accumulator forest.
//
// A tree is encoded with three links per node. Parent points caller-ward,
// Child points at the first callee, and Sibling points at the next node
// sharing the same parent. The zero value of the node type means "no node".
package graph

// Node is the constraint satisfied by linkable tree nodes.
type Node[T any] interface {
	comparable

	Parent() T
	Child() T
	Sibling() T

	SetParent(T)
	SetChild(T)
	SetSibling(T)

	// Clone returns a copy of the node's identity and metrics without links.
	Clone() T
}

// Comparer decides whether two nodes represent the same call path element.
// Equal nodes must hash identically.
type Comparer[T any] interface {
	Hash(T) uint64
	Equal(a, b T) bool
}

// IsNil reports whether n is the zero node.
func IsNil[T comparable](n T) bool {
	var zero T
	return n == zero
}

// AddChild links child as the first child of parent. O(1).
func AddChild[T Node[T]](parent, child T) {
	child.SetParent(parent)
	child.SetSibling(parent.Child())
	parent.SetChild(child)
}

// AddSibling appends sibling at the end of node's sibling chain and gives it
// node's parent. O(chain length).
func AddSibling[T Node[T]](node, sibling T) {
	last := node
	for next := last.Sibling(); !IsNil(next); next = last.Sibling() {
		last = next
	}
	last.SetSibling(sibling)
	sibling.SetParent(node.Parent())
}

// First returns the head of the sibling chain containing n. Parentless
// nodes are their own head.
func First[T Node[T]](n T) T {
	if p := n.Parent(); !IsNil(p) {
		return p.Child()
	}
	return n
}

// Leaf follows first-child links from n to the bottom of its chain.
func Leaf[T Node[T]](n T) T {
	for c := n.Child(); !IsNil(c); c = n.Child() {
		n = c
	}
	return n
}

// Root follows parent links from n to the top of its tree.
func Root[T Node[T]](n T) T {
	for p := n.Parent(); !IsNil(p); p = n.Parent() {
		n = p
	}
	return n
}
