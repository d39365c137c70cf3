// Package formatter exports accumulated models to files. Every format is
// registered by name in a static table and writes one file per analyzer.
package formatter

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"slices"
	"sort"

	"github.com/spf13/afero"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/internal/graph"
	"github.com/stack-analysis/pkg/compression"
	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/utils"
)

// checkEvery is how many nodes a format visits between context checks.
const checkEvery = 4096

// Target identifies the analyzer being exported and where its files go.
type Target struct {
	// Analyzer is the analyzer name; files are named after it.
	Analyzer string
	Fs       afero.Fs
	Dir      string
	Logger   utils.Logger
	// Walker is reused across the formats of one analyzer. Optional.
	Walker *graph.Walker[*frame.Frame]
}

// Path returns the output path for the given extension.
func (t Target) Path(ext string) string {
	return filepath.Join(t.Dir, t.Analyzer+ext)
}

func (t Target) walker() *graph.Walker[*frame.Frame] {
	if t.Walker != nil {
		return t.Walker
	}
	return graph.NewWalker[*frame.Frame]()
}

func (t Target) logger() utils.Logger {
	return utils.Or(t.Logger).WithField("analyzer", t.Analyzer)
}

// Format writes a model to one file.
type Format interface {
	Name() string
	// Extension is appended to the analyzer name to form the file name.
	Extension() string
	// Needs names the model shape Save expects.
	Needs() aggregate.Kind
	// Save writes the file and returns its path. A nil or empty model
	// produces a valid empty document.
	Save(ctx context.Context, t Target, m aggregate.Model) (string, error)
}

// Options configures format construction.
type Options struct {
	// CSVSource selects the model the csv format reads rows from.
	CSVSource aggregate.Kind
	// Compression applies to the graph format.
	Compression compression.Type
	// MinPercent prunes flame graph and call graph nodes below this share
	// of the total.
	MinPercent float64
}

// Factory creates a format.
type Factory func(opts Options) Format

var registry = map[string]Factory{
	"csv":        func(o Options) Format { return NewCSV(o.CSVSource) },
	"xml":        func(Options) Format { return NewPerfView() },
	"speedscope": func(Options) Format { return NewSpeedscope() },
	"folded":     func(Options) Format { return NewFolded() },
	"pprof":      func(Options) Format { return NewPprof() },
	"flamegraph": func(o Options) Format { return NewFlameGraph(o.MinPercent) },
	"graph":      func(o Options) Format { return NewGraph(o.Compression) },
	"dot":        func(o Options) Format { return NewDOT(o.MinPercent) },
	"callgraph":  func(o Options) Format { return NewCallGraphJSON(o.MinPercent) },
}

// Names returns the registered format names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is a registered format.
func Has(name string) bool {
	_, ok := registry[name]
	return ok
}

// New creates the format registered under name.
func New(name string, opts Options) (Format, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeUnknownFormat, "unknown output format %q (available: %v)", name, Names())
	}
	return factory(opts), nil
}

// create opens the output file for t, creating the directory as needed.
func create(t Target, ext string) (afero.File, string, error) {
	path := t.Path(ext)
	if err := t.Fs.MkdirAll(t.Dir, 0o755); err != nil {
		return nil, path, exportError(path, err)
	}
	f, err := t.Fs.Create(path)
	if err != nil {
		return nil, path, exportError(path, err)
	}
	return f, path, nil
}

// finish closes f, keeping the first error.
func finish(f afero.File, path string, err error) (string, error) {
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return path, exportError(path, err)
	}
	return path, nil
}

func exportError(path string, err error) error {
	if _, ok := err.(*apperrors.AppError); ok {
		return err
	}
	return apperrors.Wrap(apperrors.CodeExportError, fmt.Sprintf("write %s", path), err)
}

// asGraph returns the merged tree behind m. nil stands for an empty tree.
func asGraph(m aggregate.Model) (*aggregate.GraphModel, error) {
	switch gm := m.(type) {
	case nil:
		return aggregate.NewGraphModel(frame.CountWeight(""), nil), nil
	case *aggregate.GraphModel:
		if gm == nil {
			return aggregate.NewGraphModel(frame.CountWeight(""), nil), nil
		}
		return gm, nil
	default:
		return nil, apperrors.Newf(apperrors.CodeExportError, "format needs a merged tree, got %T", m)
	}
}

// asRows returns the keyed view of m. nil stands for an empty table.
func asRows(m aggregate.Model) (iter.Seq[aggregate.Row], error) {
	if m == nil {
		return func(func(aggregate.Row) bool) {}, nil
	}
	src, ok := m.(aggregate.RowSource)
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeExportError, "format needs a row source, got %T", m)
	}
	return src.Rows(), nil
}

// sampleLeaves yields the nodes of g at which samples ended, depth first.
func sampleLeaves(g *aggregate.GraphModel, w *graph.Walker[*frame.Frame]) iter.Seq[*frame.Frame] {
	return func(yield func(*frame.Frame) bool) {
		for n := range w.Forest(g.Head()) {
			if aggregate.IsSampleLeaf(n) && !yield(n) {
				return
			}
		}
	}
}

// pathOf returns the frames from the root down to leaf.
func pathOf(leaf *frame.Frame, buf []*frame.Frame) []*frame.Frame {
	buf = buf[:0]
	for f := range graph.Ancestors(leaf) {
		buf = append(buf, f)
	}
	slices.Reverse(buf)
	return buf
}

// frameTable interns frames by identity with sequential ids.
type frameTable struct {
	ids    map[uint64][]int
	frames []*frame.Frame
}

func newFrameTable() *frameTable {
	return &frameTable{ids: make(map[uint64][]int)}
}

func (t *frameTable) id(f *frame.Frame) int {
	for _, id := range t.ids[f.Hash()] {
		if t.frames[id].Equal(f) {
			return id
		}
	}
	id := len(t.frames)
	t.ids[f.Hash()] = append(t.ids[f.Hash()], id)
	t.frames = append(t.frames, f)
	return id
}
