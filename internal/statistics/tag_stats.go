package statistics

import (
	"sort"

	"github.com/stack-analysis/internal/aggregate"
)

// TagStatsCalculator calculates per-tag totals, such as the share of each
// process, from the tag branches of a merged tree.
type TagStatsCalculator struct {
	maxTags int
}

// TagStatsOption configures the TagStatsCalculator.
type TagStatsOption func(*TagStatsCalculator)

// WithMaxTags sets the maximum number of tags to return.
func WithMaxTags(n int) TagStatsOption {
	return func(c *TagStatsCalculator) {
		c.maxTags = n
	}
}

// NewTagStatsCalculator creates a new TagStatsCalculator.
func NewTagStatsCalculator(opts ...TagStatsOption) *TagStatsCalculator {
	c := &TagStatsCalculator{
		maxTags: 0, // 0 means no limit
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TagEntry represents a tag with its statistics.
type TagEntry struct {
	Tag        string  `json:"tag"`
	Count      int64   `json:"count"`
	Weight     int64   `json:"weight"`
	Percentage float64 `json:"percentage"`
}

// TagStatsResult holds the calculation result.
type TagStatsResult struct {
	Tags        []TagEntry
	TotalWeight int64
}

// Calculate sums count and weight beneath every tag frame of g. A tag
// appears on many branches when samples carry several tags; its entry adds
// them all up.
func (c *TagStatsCalculator) Calculate(g *aggregate.GraphModel) *TagStatsResult {
	result := &TagStatsResult{
		Tags: make([]TagEntry, 0),
	}
	_, result.TotalWeight = g.Totals()

	byTag := make(map[string]*TagEntry)
	for n := range g.Nodes() {
		if !n.IsTag() {
			continue
		}
		e, ok := byTag[n.Module]
		if !ok {
			e = &TagEntry{Tag: n.Module}
			byTag[n.Module] = e
		}
		e.Count += n.Count()
		e.Weight += n.Weight()
	}

	entries := make([]TagEntry, 0, len(byTag))
	for _, e := range byTag {
		e.Percentage = percent(e.Weight, result.TotalWeight)
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Weight != entries[j].Weight {
			return entries[i].Weight > entries[j].Weight
		}
		return entries[i].Tag < entries[j].Tag
	})

	if c.maxTags > 0 && len(entries) > c.maxTags {
		entries = entries[:c.maxTags]
	}
	result.Tags = entries
	return result
}

// GetTag returns the entry of a tag, or nil when absent.
func (r *TagStatsResult) GetTag(tag string) *TagEntry {
	for i := range r.Tags {
		if r.Tags[i].Tag == tag {
			return &r.Tags[i]
		}
	}
	return nil
}
