package formatter

import (
	"bufio"
	"context"
	"strings"

	"github.com/google/pprof/profile"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/frame"
)

// TagLabel is the pprof sample label carrying the tag set of a sample.
const TagLabel = "tag"

// Pprof writes the merged tree as a gzip-compressed pprof profile with a
// count and a weight sample type. Tags become sample labels.
type Pprof struct{}

// NewPprof creates the pprof format.
func NewPprof() *Pprof { return &Pprof{} }

func (Pprof) Name() string          { return "pprof" }
func (Pprof) Extension() string     { return ".pb.gz" }
func (Pprof) Needs() aggregate.Kind { return aggregate.KindTree }

// Save implements Format.
func (p Pprof) Save(ctx context.Context, t Target, m aggregate.Model) (string, error) {
	g, err := asGraph(m)
	if err != nil {
		return "", err
	}
	prof, err := p.build(ctx, t, g)
	if err == nil {
		err = prof.CheckValid()
	}
	if err != nil {
		return "", exportError(t.Path(p.Extension()), err)
	}

	f, path, err := create(t, p.Extension())
	if err != nil {
		return path, err
	}
	bw := bufio.NewWriter(f)
	if err = prof.Write(bw); err == nil {
		err = bw.Flush()
	}
	t.logger().Debug("Wrote %d pprof samples to %s", len(prof.Sample), path)
	return finish(f, path, err)
}

func (Pprof) build(ctx context.Context, t Target, g *aggregate.GraphModel) (*profile.Profile, error) {
	unit := g.Schema().WeightUnit()
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "count", Unit: "count"},
			{Type: "weight", Unit: unit},
		},
		PeriodType:        &profile.ValueType{Type: "weight", Unit: unit},
		Period:            1,
		DefaultSampleType: "weight",
	}

	frames := newFrameTable()
	mappings := make(map[string]*profile.Mapping)
	var path []*frame.Frame

	for leaf := range sampleLeaves(g, t.walker()) {
		if len(prof.Sample)%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		sample := &profile.Sample{Value: []int64{leaf.SelfCount(), leaf.SelfWeight()}}
		path = pathOf(leaf, path)
		for i := len(path) - 1; i >= 0; i-- {
			f := path[i]
			if f.IsTag() {
				if sample.Label == nil {
					sample.Label = make(map[string][]string)
				}
				sample.Label[TagLabel] = append(sample.Label[TagLabel], f.Module)
				continue
			}

			id := frames.id(f)
			if id == len(prof.Location) {
				prof.Location = append(prof.Location, newLocation(prof, mappings, f, id))
			}
			sample.Location = append(sample.Location, prof.Location[id])
		}
		if sample.Label != nil {
			sample.Label[TagLabel] = frame.NormalizeTags(sample.Label[TagLabel])
		}
		prof.Sample = append(prof.Sample, sample)
	}
	return prof, nil
}

// newLocation adds the function and, when new, the mapping of f and
// returns a location for it. Locations, functions and frame ids share one
// numbering.
func newLocation(prof *profile.Profile, mappings map[string]*profile.Mapping, f *frame.Frame, id int) *profile.Location {
	key := strings.ToLower(f.Module)
	mapping, ok := mappings[key]
	if !ok {
		mapping = &profile.Mapping{
			ID:              uint64(len(prof.Mapping) + 1),
			File:            f.Module,
			HasFunctions:    true,
			HasFilenames:    true,
			HasLineNumbers:  false,
			HasInlineFrames: false,
		}
		mappings[key] = mapping
		prof.Mapping = append(prof.Mapping, mapping)
	}

	fn := &profile.Function{
		ID:         uint64(id + 1),
		Name:       f.String(),
		SystemName: f.Method,
		Filename:   f.Module,
	}
	prof.Function = append(prof.Function, fn)

	return &profile.Location{
		ID:      uint64(id + 1),
		Mapping: mapping,
		Line:    []profile.Line{{Function: fn}},
	}
}
