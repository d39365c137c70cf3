package formatter

import (
	"bufio"
	"context"
	"encoding/xml"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/frame"
)

type perfViewDocument struct {
	XMLName xml.Name       `xml:"StackWindow"`
	Source  perfViewSource `xml:"StackSource"`
}

type perfViewSource struct {
	Frames  perfViewFrames  `xml:"Frames"`
	Stacks  perfViewStacks  `xml:"Stacks"`
	Samples perfViewSamples `xml:"Samples"`
}

type perfViewFrames struct {
	Count  int             `xml:"Count,attr"`
	Frames []perfViewFrame `xml:"Frame"`
}

type perfViewFrame struct {
	ID   int    `xml:"ID,attr"`
	Name string `xml:",chardata"`
}

type perfViewStacks struct {
	Count  int             `xml:"Count,attr"`
	Stacks []perfViewStack `xml:"Stack"`
}

type perfViewStack struct {
	ID       int `xml:"ID,attr"`
	CallerID int `xml:"CallerID,attr"`
	FrameID  int `xml:"FrameID,attr"`
}

type perfViewSamples struct {
	Count   int              `xml:"Count,attr"`
	Samples []perfViewSample `xml:"Sample"`
}

type perfViewSample struct {
	ID      int   `xml:"ID,attr"`
	Count   int64 `xml:"Count,attr"`
	StackID int   `xml:"StackID,attr"`
	Metric  int64 `xml:"Metric,attr"`
}

// PerfView writes the merged tree as a PerfView stack source: a frame
// table, one stack per tree node referencing its caller's stack, and one
// sample per node at which samples ended. Ids follow depth-first visit
// order over every root of the forest.
type PerfView struct{}

// NewPerfView creates the xml format.
func NewPerfView() *PerfView { return &PerfView{} }

func (PerfView) Name() string          { return "xml" }
func (PerfView) Extension() string     { return ".xml" }
func (PerfView) Needs() aggregate.Kind { return aggregate.KindTree }

// Save implements Format.
func (p PerfView) Save(ctx context.Context, t Target, m aggregate.Model) (string, error) {
	g, err := asGraph(m)
	if err != nil {
		return "", err
	}
	doc, err := p.build(ctx, t, g)
	if err != nil {
		return "", exportError(t.Path(p.Extension()), err)
	}

	f, path, err := create(t, p.Extension())
	if err != nil {
		return path, err
	}
	bw := bufio.NewWriter(f)
	if _, err = bw.WriteString(xml.Header); err == nil {
		enc := xml.NewEncoder(bw)
		enc.Indent("", " ")
		err = enc.Encode(doc)
	}
	if err == nil {
		_, err = bw.WriteString("\n")
	}
	if err == nil {
		err = bw.Flush()
	}
	t.logger().Debug("Wrote %d frames, %d stacks, %d samples to %s",
		doc.Source.Frames.Count, doc.Source.Stacks.Count, doc.Source.Samples.Count, path)
	return finish(f, path, err)
}

func (PerfView) build(ctx context.Context, t Target, g *aggregate.GraphModel) (*perfViewDocument, error) {
	frames := newFrameTable()
	stackIDs := make(map[*frame.Frame]int, g.Size())
	src := perfViewSource{}

	for n := range t.walker().Forest(g.Head()) {
		if len(stackIDs)%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		stackID := len(stackIDs)
		stackIDs[n] = stackID

		frameID := frames.id(n)
		if frameID == len(src.Frames.Frames) {
			src.Frames.Frames = append(src.Frames.Frames, perfViewFrame{ID: frameID, Name: n.String()})
		}

		callerID := -1
		if p := n.Parent(); p != nil {
			if id, ok := stackIDs[p]; ok {
				callerID = id
			}
		}
		src.Stacks.Stacks = append(src.Stacks.Stacks, perfViewStack{ID: stackID, CallerID: callerID, FrameID: frameID})

		if aggregate.IsSampleLeaf(n) {
			src.Samples.Samples = append(src.Samples.Samples, perfViewSample{
				ID:      len(src.Samples.Samples),
				Count:   n.SelfCount(),
				StackID: stackID,
				Metric:  n.SelfWeight(),
			})
		}
	}

	src.Frames.Count = len(src.Frames.Frames)
	src.Stacks.Count = len(src.Stacks.Stacks)
	src.Samples.Count = len(src.Samples.Samples)
	return &perfViewDocument{Source: src}, nil
}
