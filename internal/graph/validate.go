package graph

import (
	"errors"
	"fmt"
)

// ErrMalformedChain is returned when a source tree violates the link
// invariants: a cycle, a node reachable twice, or inconsistent parent links.
var ErrMalformedChain = errors.New("malformed chain")

// Validator checks source trees before they are merged.
// It reuses its visited set and is not safe for concurrent use.
type Validator[T Node[T]] struct {
	seen  map[T]struct{}
	stack []T
}

// NewValidator creates a validator.
func NewValidator[T Node[T]]() *Validator[T] {
	return &Validator[T]{
		seen:  make(map[T]struct{}, 64),
		stack: make([]T, 0, 64),
	}
}

// Check walks the tree rooted at root, including root's siblings, and
// reports the first structural violation. Every node in members must be
// part of the walked tree, so a nil root admits no members.
func (v *Validator[T]) Check(root T, members ...T) error {
	if IsNil(root) {
		for _, m := range members {
			if !IsNil(m) {
				return fmt.Errorf("%w: node is not part of the tree", ErrMalformedChain)
			}
		}
		return nil
	}
	defer func() {
		clear(v.seen)
		clear(v.stack)
		v.stack = v.stack[:0]
	}()

	if p := root.Parent(); !IsNil(p) {
		return fmt.Errorf("%w: root has a parent", ErrMalformedChain)
	}

	v.stack = append(v.stack, root)
	for len(v.stack) > 0 {
		n := v.stack[len(v.stack)-1]
		v.stack = v.stack[:len(v.stack)-1]

		if _, dup := v.seen[n]; dup {
			return fmt.Errorf("%w: node reached twice (cycle or shared node)", ErrMalformedChain)
		}
		v.seen[n] = struct{}{}

		if s := n.Sibling(); !IsNil(s) {
			if s.Parent() != n.Parent() {
				return fmt.Errorf("%w: sibling has a different parent", ErrMalformedChain)
			}
			v.stack = append(v.stack, s)
		}
		if c := n.Child(); !IsNil(c) {
			if c.Parent() != n {
				return fmt.Errorf("%w: child does not point back to its parent", ErrMalformedChain)
			}
			v.stack = append(v.stack, c)
		}
	}

	for _, m := range members {
		if _, ok := v.seen[m]; !IsNil(m) && !ok {
			return fmt.Errorf("%w: node is not part of the tree", ErrMalformedChain)
		}
	}
	return nil
}

// RootOf follows parent links from n to the top of its tree. A parent
// cycle is reported instead of looping.
func RootOf[T Node[T]](n T) (T, error) {
	slow, fast := n, n
	for {
		for range 2 {
			p := fast.Parent()
			if IsNil(p) {
				return fast, nil
			}
			fast = p
		}
		slow = slow.Parent()
		if slow == fast {
			var zero T
			return zero, fmt.Errorf("%w: parent links form a cycle", ErrMalformedChain)
		}
	}
}
