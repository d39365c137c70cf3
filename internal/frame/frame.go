// Package frame defines the stack frame node folded into accumulator trees.
package frame

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/stack-analysis/internal/graph"
)

// Kind distinguishes real call frames from synthetic ones.
type Kind uint8

const (
	// KindCall is a resolved call-stack entry.
	KindCall Kind = iota
	// KindTag is a synthetic ancestor materialized from a sample tag.
	KindTag
)

// Ident is the identity of a frame: module and method name.
type Ident struct {
	Module string
	Method string
}

// Frame is one node of a stack tree.
//
// Module names compare case-insensitively and method names case-sensitively.
type Frame struct {
	Module  string
	Method  string
	Kind    Kind
	Metrics []Metric

	fold string
	hash uint64

	parent  *Frame
	child   *Frame
	sibling *Frame
}

// New creates an unlinked call frame.
func New(module, method string) *Frame {
	f := &Frame{}
	f.init(module, method, KindCall)
	return f
}

// NewTag creates an unlinked tag frame.
func NewTag(tag string) *Frame {
	f := &Frame{}
	f.init(tag, "", KindTag)
	return f
}

func (f *Frame) init(module, method string, kind Kind) {
	f.Module = module
	f.Method = method
	f.Kind = kind
	f.fold = strings.ToLower(module)
	f.hash = identityHash(f.fold, method, kind)
}

func identityHash(fold, method string, kind Kind) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(fold)
	_, _ = d.Write([]byte{0, byte(kind)})
	_, _ = d.WriteString(method)
	return d.Sum64()
}

// Hash returns the precomputed identity hash.
func (f *Frame) Hash() uint64 { return f.hash }

// Equal reports whether f and o have the same identity.
func (f *Frame) Equal(o *Frame) bool {
	return f.hash == o.hash && f.Kind == o.Kind && f.Method == o.Method && f.fold == o.fold
}

// Ident returns the frame identity.
func (f *Frame) Ident() Ident { return Ident{Module: f.Module, Method: f.Method} }

// IsTag reports whether f is a synthetic tag frame.
func (f *Frame) IsTag() bool { return f.Kind == KindTag }

// String renders the frame as module!method, or module alone when the
// method is empty.
func (f *Frame) String() string {
	if f.Method == "" {
		return f.Module
	}
	return f.Module + "!" + f.Method
}

func (f *Frame) Parent() *Frame  { return f.parent }
func (f *Frame) Child() *Frame   { return f.child }
func (f *Frame) Sibling() *Frame { return f.sibling }

func (f *Frame) SetParent(p *Frame)  { f.parent = p }
func (f *Frame) SetChild(c *Frame)   { f.child = c }
func (f *Frame) SetSibling(s *Frame) { f.sibling = s }

// Clone copies identity and metrics. The copy is unlinked.
func (f *Frame) Clone() *Frame {
	c := &Frame{
		Module: f.Module,
		Method: f.Method,
		Kind:   f.Kind,
		fold:   f.fold,
		hash:   f.hash,
	}
	if len(f.Metrics) > 0 {
		c.Metrics = append([]Metric(nil), f.Metrics...)
	}
	return c
}

// AddChild inserts c at the front of f's children.
func (f *Frame) AddChild(c *Frame) { graph.AddChild(f, c) }

// AddSibling appends s at the end of f's sibling chain.
func (f *Frame) AddSibling(s *Frame) { graph.AddSibling(f, s) }

// Comparer matches frames by identity for the graph merger.
type Comparer struct{}

func (Comparer) Hash(f *Frame) uint64   { return f.hash }
func (Comparer) Equal(a, b *Frame) bool { return a.Equal(b) }

// Chain links idents, given leaf first, into a linear tree and returns its
// root and leaf. It returns nils for an empty stack.
func Chain(leafFirst []Ident) (root, leaf *Frame) {
	var below *Frame
	for i, id := range leafFirst {
		f := New(id.Module, id.Method)
		if i == 0 {
			leaf = f
		} else {
			f.AddChild(below)
		}
		below = f
	}
	return below, leaf
}
