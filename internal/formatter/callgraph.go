package formatter

import (
	"context"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/callgraph"
)

// CallGraph writes the function-level call graph of the merged tree,
// either as Graphviz DOT or as JSON nodes and edges.
type CallGraph struct {
	name       string
	ext        string
	minPercent float64
}

// NewDOT creates the dot format.
func NewDOT(minPercent float64) *CallGraph {
	return &CallGraph{name: "dot", ext: ".dot", minPercent: minPercent}
}

// NewCallGraphJSON creates the callgraph format.
func NewCallGraphJSON(minPercent float64) *CallGraph {
	return &CallGraph{name: "callgraph", ext: ".callgraph.json", minPercent: minPercent}
}

func (c *CallGraph) Name() string        { return c.name }
func (c *CallGraph) Extension() string   { return c.ext }
func (*CallGraph) Needs() aggregate.Kind { return aggregate.KindTree }

// Save implements Format.
func (c *CallGraph) Save(ctx context.Context, t Target, m aggregate.Model) (string, error) {
	g, err := asGraph(m)
	if err != nil {
		return "", err
	}
	gen := callgraph.NewGenerator(&callgraph.GeneratorOptions{
		MinNodePct: c.minPercent,
		MinEdgePct: c.minPercent,
	})
	cg, err := gen.Generate(ctx, g.Roots(), g.Schema().WeightUnit())
	if err != nil {
		return "", exportError(t.Path(c.ext), err)
	}
	cg.Name = t.Analyzer

	f, path, err := create(t, c.ext)
	if err != nil {
		return path, err
	}
	if c.name == "dot" {
		err = callgraph.NewDOTWriter().Write(cg, f)
	} else {
		err = callgraph.NewJSONWriter().Write(cg, f)
	}
	if err == nil {
		stats := cg.GetStats()
		t.logger().Debug("Call graph for %s: %d nodes, %d edges", path, stats.NodeCount, stats.EdgeCount)
	}
	return finish(f, path, err)
}
