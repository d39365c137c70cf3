package callgraph

import (
	"context"
	"iter"
	"slices"

	"github.com/stack-analysis/internal/frame"
)

// checkEvery is how many frames are visited between context checks.
const checkEvery = 4096

// GeneratorOptions holds configuration options for the call graph generator.
type GeneratorOptions struct {
	// MinNodePct is the minimum inclusive percentage for a node to be included.
	MinNodePct float64

	// MinEdgePct is the minimum percentage for an edge to be included.
	MinEdgePct float64
}

// DefaultGeneratorOptions returns default generator options.
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		MinNodePct: 0.5, // 0.5% minimum for nodes
		MinEdgePct: 0.1, // 0.1% minimum for edges
	}
}

// Generator builds call graphs from merged frame forests.
type Generator struct {
	opts *GeneratorOptions
}

// NewGenerator creates a new call graph generator.
func NewGenerator(opts *GeneratorOptions) *Generator {
	if opts == nil {
		opts = DefaultGeneratorOptions()
	}
	return &Generator{opts: opts}
}

type step struct {
	f      *frame.Frame
	caller string
	// exit pops id off the current path.
	exit bool
	id   string
}

// Generate folds the forest rooted at roots into a call graph. Tag frames
// are transparent: the frames below a tag have no caller edge from it.
func (g *Generator) Generate(ctx context.Context, roots iter.Seq[*frame.Frame], unit string) (*CallGraph, error) {
	cg := NewCallGraph()
	cg.Unit = unit

	var work []step
	for r := range roots {
		cg.TotalWeight += r.Weight()
		work = append(work, step{f: r})
	}
	slices.Reverse(work)

	onPath := make(map[string]int)
	visited := 0
	for len(work) > 0 {
		s := work[len(work)-1]
		work = work[:len(work)-1]

		if s.exit {
			onPath[s.id]--
			continue
		}

		visited++
		if visited%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		caller := s.caller
		if !s.f.IsTag() {
			id := makeNodeID(s.f.Method, s.f.Module)
			var total int64
			if onPath[id] == 0 {
				total = s.f.Weight()
			}
			cg.AddNode(s.f.Method, s.f.Module, s.f.SelfWeight(), total)
			if caller != "" {
				cg.AddEdge(caller, id, s.f.Weight())
			}
			onPath[id]++
			work = append(work, step{exit: true, id: id})
			caller = id
		}

		mark := len(work)
		for c := s.f.Child(); c != nil; c = c.Sibling() {
			work = append(work, step{f: c, caller: caller})
		}
		slices.Reverse(work[mark:])
	}

	cg.CalculatePercentages()
	cg.Cleanup(g.opts.MinNodePct, g.opts.MinEdgePct)
	return cg, nil
}
