// Package statistics computes summary statistics from a merged frame tree.
package statistics

import (
	"sort"
	"strings"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/internal/graph"
)

// TopFuncsCalculator ranks frames by the weight of samples ending in them.
type TopFuncsCalculator struct {
	topN        int
	includeTags bool
}

// TopFuncsOption configures the TopFuncsCalculator.
type TopFuncsOption func(*TopFuncsCalculator)

// WithTopN sets the number of top functions to return.
func WithTopN(n int) TopFuncsOption {
	return func(c *TopFuncsCalculator) {
		c.topN = n
	}
}

// WithTags includes tag frames in the ranking.
func WithTags(include bool) TopFuncsOption {
	return func(c *TopFuncsCalculator) {
		c.includeTags = include
	}
}

// NewTopFuncsCalculator creates a new TopFuncsCalculator.
func NewTopFuncsCalculator(opts ...TopFuncsOption) *TopFuncsCalculator {
	c := &TopFuncsCalculator{
		topN:        15,
		includeTags: false,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TopFuncEntry represents a function with its statistics.
type TopFuncEntry struct {
	Name         string  `json:"name"`
	SelfWeight   int64   `json:"self"`
	SelfPercent  float64 `json:"selfPercent"`
	TotalWeight  int64   `json:"total"`
	TotalPercent float64 `json:"totalPercent"`
}

type funcStats struct {
	self   int64
	total  int64
	stacks map[string]int64
}

// Calculate ranks the frames of g. A frame's total weight counts each
// sample once even when the frame recurses.
func (c *TopFuncsCalculator) Calculate(g *aggregate.GraphModel) *TopFuncsResult {
	result := &TopFuncsResult{
		TopFuncs:       make([]TopFuncEntry, 0),
		FuncCallstacks: make(map[string]map[string]int64),
	}
	result.TotalCount, result.TotalWeight = g.Totals()
	if g.Head() == nil {
		return result
	}

	byName := make(map[string]*funcStats)
	var sb strings.Builder
	for n := range g.Nodes() {
		if aggregate.IsSampleLeaf(n) {
			result.SampleLeaves++
		}
		if n.IsTag() && !c.includeTags {
			continue
		}
		name := n.String()
		st, ok := byName[name]
		if !ok {
			st = &funcStats{stacks: make(map[string]int64)}
			byName[name] = st
		}
		if !recursesAbove(n) {
			st.total += n.Weight()
		}
		if aggregate.IsSampleLeaf(n) {
			st.self += n.SelfWeight()
			st.stacks[joinCallStack(&sb, n)] += n.SelfWeight()
		}
	}

	entries := make([]TopFuncEntry, 0, len(byName))
	for name, st := range byName {
		if st.self == 0 && st.total == 0 {
			continue
		}
		entries = append(entries, TopFuncEntry{
			Name:         name,
			SelfWeight:   st.self,
			SelfPercent:  percent(st.self, result.TotalWeight),
			TotalWeight:  st.total,
			TotalPercent: percent(st.total, result.TotalWeight),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SelfWeight != entries[j].SelfWeight {
			return entries[i].SelfWeight > entries[j].SelfWeight
		}
		if entries[i].TotalWeight != entries[j].TotalWeight {
			return entries[i].TotalWeight > entries[j].TotalWeight
		}
		return entries[i].Name < entries[j].Name
	})

	topN := c.topN
	if topN <= 0 || topN > len(entries) {
		topN = len(entries)
	}
	result.TopFuncs = entries[:topN]

	for _, entry := range result.TopFuncs {
		if st := byName[entry.Name]; len(st.stacks) > 0 {
			result.FuncCallstacks[entry.Name] = st.stacks
		}
	}
	return result
}

// TopFuncsResult holds the calculation result.
type TopFuncsResult struct {
	TopFuncs       []TopFuncEntry
	TotalCount     int64
	TotalWeight    int64
	SampleLeaves   int
	FuncCallstacks map[string]map[string]int64
}

// CallStackInfo lists the heaviest stacks ending in one function.
type CallStackInfo struct {
	FunctionName string   `json:"function"`
	CallStacks   []string `json:"callStacks"`
	Count        int      `json:"count"`
}

// GetTopFuncsCallstacks returns call stack information for top functions.
func (r *TopFuncsResult) GetTopFuncsCallstacks(maxCallstacks int) map[string]*CallStackInfo {
	result := make(map[string]*CallStackInfo)

	for _, entry := range r.TopFuncs {
		callstacks, ok := r.FuncCallstacks[entry.Name]
		if !ok {
			continue
		}

		type csEntry struct {
			stack  string
			weight int64
		}
		csEntries := make([]csEntry, 0, len(callstacks))
		for stack, weight := range callstacks {
			csEntries = append(csEntries, csEntry{stack: stack, weight: weight})
		}

		sort.Slice(csEntries, func(i, j int) bool {
			if csEntries[i].weight != csEntries[j].weight {
				return csEntries[i].weight > csEntries[j].weight
			}
			return csEntries[i].stack < csEntries[j].stack
		})

		topStacks := make([]string, 0, maxCallstacks)
		for i := 0; i < len(csEntries) && i < maxCallstacks; i++ {
			topStacks = append(topStacks, csEntries[i].stack)
		}

		result[entry.Name] = &CallStackInfo{
			FunctionName: entry.Name,
			CallStacks:   topStacks,
			Count:        len(callstacks),
		}
	}

	return result
}

// Helper functions

// recursesAbove reports whether an ancestor of n has n's identity.
func recursesAbove(n *frame.Frame) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Equal(n) {
			return true
		}
	}
	return false
}

// joinCallStack renders the call frames above and including leaf, root
// first, separated by ";".
func joinCallStack(sb *strings.Builder, leaf *frame.Frame) string {
	var path []string
	for f := range graph.Ancestors(leaf) {
		if !f.IsTag() {
			path = append(path, f.String())
		}
	}
	sb.Reset()
	for i := len(path) - 1; i >= 0; i-- {
		sb.WriteString(path[i])
		if i > 0 {
			sb.WriteByte(';')
		}
	}
	return sb.String()
}

func percent(v, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(v) / float64(total) * 100
}
