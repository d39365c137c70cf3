package formatter

import (
	"context"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/graphstore"
	"github.com/stack-analysis/pkg/compression"
)

// Graph writes the merged tree in the binary graph file layout, one
// breadth-first branch per forest root.
type Graph struct {
	compression compression.Type
}

// NewGraph creates the graph format with optional whole-file compression.
func NewGraph(c compression.Type) *Graph {
	return &Graph{compression: c}
}

func (*Graph) Name() string          { return "graph" }
func (g *Graph) Extension() string   { return ".graph" + g.compression.Extension() }
func (*Graph) Needs() aggregate.Kind { return aggregate.KindTree }

// Save implements Format.
func (g *Graph) Save(ctx context.Context, t Target, m aggregate.Model) (string, error) {
	gm, err := asGraph(m)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", exportError(t.Path(g.Extension()), err)
	}

	f, path, err := create(t, g.Extension())
	if err != nil {
		return path, err
	}
	cw, err := compression.NewWriter(f, g.compression, compression.LevelDefault)
	if err != nil {
		return finish(f, path, err)
	}
	dir, err := graphstore.NewWriter(cw, t.Walker).Write(gm.Head(), gm.Schema().Len())
	if cerr := cw.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		t.logger().Debug("Wrote %d graph branches to %s", len(dir), path)
	}
	return finish(f, path, err)
}
