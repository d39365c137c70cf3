package flamegraph

import (
	"context"
	"io"
	"iter"

	"github.com/stack-analysis/internal/frame"
)

// checkEvery is how many nodes are converted between context checks.
const checkEvery = 4096

// GeneratorOptions holds configuration options for the flame graph generator.
type GeneratorOptions struct {
	// MinPercent is the minimum percentage for a node to be included.
	MinPercent float64

	// IncludeTags keeps the tag branches at the top of the graph. When
	// false, each tag branch is skipped and its frames hang off the root.
	IncludeTags bool
}

// DefaultGeneratorOptions returns default generator options.
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		MinPercent:  0.01, // 0.01% minimum
		IncludeTags: true,
	}
}

// Generator generates flame graph data from a merged frame forest.
type Generator struct {
	opts *GeneratorOptions
}

// NewGenerator creates a new flame graph generator.
func NewGenerator(opts *GeneratorOptions) *Generator {
	if opts == nil {
		opts = DefaultGeneratorOptions()
	}
	return &Generator{opts: opts}
}

type pending struct {
	src *frame.Frame
	dst *Node
}

// Generate mirrors the forest rooted at roots into a flame graph. Node
// values are the weights of the frames; unit names them.
func (g *Generator) Generate(ctx context.Context, roots iter.Seq[*frame.Frame], unit string) (*FlameGraph, error) {
	fg := NewFlameGraph()
	fg.Unit = unit

	var work []pending
	for r := range roots {
		fg.Root.Value += r.Weight()
		fg.TotalSamples += r.Count()
		work = append(work, pending{r, fg.Root})
	}

	visited := 0
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]

		visited++
		if visited%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		parent := p.dst
		if !p.src.IsTag() || g.opts.IncludeTags {
			parent = g.appendNode(p.dst, p.src)
		}

		// Children are pushed in reverse so they pop in tree order.
		var children []*frame.Frame
		for c := p.src.Child(); c != nil; c = c.Sibling() {
			children = append(children, c)
		}
		for i := len(children) - 1; i >= 0; i-- {
			work = append(work, pending{children[i], parent})
		}
	}

	fg.TotalValue = fg.Root.Value
	fg.Cleanup(g.opts.MinPercent)
	fg.CalculateMaxDepth()

	return fg, nil
}

// appendNode adds f under parent, folding it into an existing child of the
// same name. Folding only happens when tag branches are flattened.
func (g *Generator) appendNode(parent *Node, f *frame.Frame) *Node {
	name := f.String()
	if !g.opts.IncludeTags {
		if existing := parent.GetChild(name); existing != nil {
			existing.Value += f.Weight()
			existing.Self += f.SelfWeight()
			return existing
		}
	}

	node := NewNode(f.Module, f.Method, f.Weight())
	node.Name = name
	node.Tag = f.IsTag()
	node.Self = f.SelfWeight()
	parent.AddChild(node)
	return node
}

// Writer defines the interface for writing flame graph output.
type Writer interface {
	Write(fg *FlameGraph, w io.Writer) error
}
