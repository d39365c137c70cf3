package formatter

import (
	"context"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/flamegraph"
)

// FlameGraph writes the merged tree as nested gzip-compressed flame graph
// JSON.
type FlameGraph struct {
	minPercent float64
}

// NewFlameGraph creates the flamegraph format. Nodes below minPercent of
// the total weight are pruned.
func NewFlameGraph(minPercent float64) *FlameGraph {
	return &FlameGraph{minPercent: minPercent}
}

func (*FlameGraph) Name() string          { return "flamegraph" }
func (*FlameGraph) Extension() string     { return ".flamegraph.json.gz" }
func (*FlameGraph) Needs() aggregate.Kind { return aggregate.KindTree }

// Save implements Format.
func (fm *FlameGraph) Save(ctx context.Context, t Target, m aggregate.Model) (string, error) {
	g, err := asGraph(m)
	if err != nil {
		return "", err
	}
	path := t.Path(fm.Extension())

	gen := flamegraph.NewGenerator(&flamegraph.GeneratorOptions{
		MinPercent:  fm.minPercent,
		IncludeTags: true,
	})
	fg, err := gen.Generate(ctx, g.Roots(), g.Schema().WeightUnit())
	if err != nil {
		return path, exportError(path, err)
	}

	if err := t.Fs.MkdirAll(t.Dir, 0o755); err != nil {
		return path, exportError(path, err)
	}
	size, err := flamegraph.NewGzipWriter().Save(t.Fs, path, fg)
	if err != nil {
		return path, exportError(path, err)
	}
	t.logger().Debug("Wrote flame graph (depth %d) to %s: %d bytes json, %.1f%% after gzip",
		fg.MaxDepth, path, size.JSON, size.Ratio())
	return path, nil
}

// Folded writes Brendan Gregg collapsed stacks, one line per node at which
// samples ended: frames root first, then the exclusive weight.
type Folded struct{}

// NewFolded creates the folded format.
func NewFolded() *Folded { return &Folded{} }

func (Folded) Name() string          { return "folded" }
func (Folded) Extension() string     { return ".folded" }
func (Folded) Needs() aggregate.Kind { return aggregate.KindTree }

// Save implements Format.
func (fo Folded) Save(ctx context.Context, t Target, m aggregate.Model) (string, error) {
	g, err := asGraph(m)
	if err != nil {
		return "", err
	}
	gen := flamegraph.NewGenerator(&flamegraph.GeneratorOptions{IncludeTags: true})
	fg, err := gen.Generate(ctx, g.Roots(), g.Schema().WeightUnit())
	if err != nil {
		return "", exportError(t.Path(fo.Extension()), err)
	}

	f, path, err := create(t, fo.Extension())
	if err != nil {
		return path, err
	}
	err = flamegraph.NewFoldedWriter().Write(fg, f)
	return finish(f, path, err)
}
