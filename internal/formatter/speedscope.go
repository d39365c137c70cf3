package formatter

import (
	"bufio"
	"context"

	"github.com/goccy/go-json"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/frame"
)

const (
	speedscopeSchema  = "https://www.speedscope.app/file-format-schema.json"
	speedscopeVersion = "0.0.1"

	profileTypeSampled = "sampled"
)

type (
	speedscopeFrame struct {
		Name string `json:"name"`
		File string `json:"file,omitempty"`
	}

	speedscopeShared struct {
		Frames []speedscopeFrame `json:"frames"`
	}

	speedscopeProfile struct {
		Type       string  `json:"type"`
		Name       string  `json:"name"`
		Unit       string  `json:"unit"`
		StartValue int64   `json:"startValue"`
		EndValue   int64   `json:"endValue"`
		Samples    [][]int `json:"samples"`
		Weights    []int64 `json:"weights"`
	}

	speedscopeFile struct {
		Schema             string              `json:"$schema"`
		Version            string              `json:"version"`
		Name               string              `json:"name"`
		Exporter           string              `json:"exporter"`
		ActiveProfileIndex int                 `json:"activeProfileIndex"`
		Shared             speedscopeShared    `json:"shared"`
		Profiles           []speedscopeProfile `json:"profiles"`
	}
)

// speedscopeUnit maps a weight unit onto the units speedscope accepts.
func speedscopeUnit(unit string) string {
	switch unit {
	case "nanoseconds", "microseconds", "milliseconds", "seconds", "bytes":
		return unit
	default:
		return "none"
	}
}

// Speedscope writes the merged tree as one sampled speedscope profile.
// Each sample lists frame indices root first and pairs with the exclusive
// weight of the node it ends at. Tag frames are kept as frames.
type Speedscope struct{}

// NewSpeedscope creates the speedscope format.
func NewSpeedscope() *Speedscope { return &Speedscope{} }

func (Speedscope) Name() string          { return "speedscope" }
func (Speedscope) Extension() string     { return ".json" }
func (Speedscope) Needs() aggregate.Kind { return aggregate.KindTree }

// Save implements Format.
func (s Speedscope) Save(ctx context.Context, t Target, m aggregate.Model) (string, error) {
	g, err := asGraph(m)
	if err != nil {
		return "", err
	}
	doc, err := s.build(ctx, t, g)
	if err != nil {
		return "", exportError(t.Path(s.Extension()), err)
	}

	f, path, err := create(t, s.Extension())
	if err != nil {
		return path, err
	}
	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if err = enc.Encode(doc); err == nil {
		err = bw.Flush()
	}
	t.logger().Debug("Wrote %d speedscope samples over %d frames to %s",
		len(doc.Profiles[0].Samples), len(doc.Shared.Frames), path)
	return finish(f, path, err)
}

func (Speedscope) build(ctx context.Context, t Target, g *aggregate.GraphModel) (*speedscopeFile, error) {
	frames := newFrameTable()
	shared := speedscopeShared{Frames: []speedscopeFrame{}}
	profile := speedscopeProfile{
		Type:    profileTypeSampled,
		Name:    t.Analyzer,
		Unit:    speedscopeUnit(g.Schema().WeightUnit()),
		Samples: [][]int{},
		Weights: []int64{},
	}

	var path []*frame.Frame
	for leaf := range sampleLeaves(g, t.walker()) {
		if len(profile.Samples)%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		path = pathOf(leaf, path)
		sample := make([]int, len(path))
		for i, f := range path {
			id := frames.id(f)
			if id == len(shared.Frames) {
				sf := speedscopeFrame{Name: f.String()}
				if !f.IsTag() {
					sf.File = f.Module
				}
				shared.Frames = append(shared.Frames, sf)
			}
			sample[i] = id
		}
		profile.Samples = append(profile.Samples, sample)
		profile.Weights = append(profile.Weights, leaf.SelfWeight())
		profile.EndValue += leaf.SelfWeight()
	}

	return &speedscopeFile{
		Schema:   speedscopeSchema,
		Version:  speedscopeVersion,
		Name:     t.Analyzer,
		Exporter: "stackagg",
		Shared:   shared,
		Profiles: []speedscopeProfile{profile},
	}, nil
}
