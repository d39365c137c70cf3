package statistics

import (
	"github.com/stack-analysis/internal/aggregate"
)

// Summary describes the accumulated result of one analyzer.
type Summary struct {
	Analyzer     string                    `json:"analyzer"`
	Unit         string                    `json:"unit"`
	TotalCount   int64                     `json:"totalCount"`
	TotalWeight  int64                     `json:"totalWeight"`
	Samples      int64                     `json:"samples"`
	Ignored      int64                     `json:"ignored"`
	Nodes        int                       `json:"nodes"`
	SampleLeaves int                       `json:"sampleLeaves"`
	TopFuncs     []TopFuncEntry            `json:"topFuncs"`
	Callstacks   map[string]*CallStackInfo `json:"callstacks,omitempty"`
	Tags         []TagEntry                `json:"tags"`
	Files        []string                  `json:"files"`
}

// Summarize computes the summary of g keeping the topN heaviest frames.
func Summarize(analyzer string, g *aggregate.GraphModel, topN int) *Summary {
	top := NewTopFuncsCalculator(WithTopN(topN)).Calculate(g)
	tags := NewTagStatsCalculator().Calculate(g)

	return &Summary{
		Analyzer:     analyzer,
		Unit:         g.Schema().WeightUnit(),
		TotalCount:   top.TotalCount,
		TotalWeight:  top.TotalWeight,
		Samples:      g.Samples(),
		Ignored:      g.Ignored(),
		Nodes:        g.Size(),
		SampleLeaves: top.SampleLeaves,
		TopFuncs:     top.TopFuncs,
		Callstacks:   top.GetTopFuncsCallstacks(3),
		Tags:         tags.Tags,
		Files:        []string{},
	}
}
