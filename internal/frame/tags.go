package frame

import (
	"slices"
	"strings"
)

// ProcessTag formats the tag that separates samples by process.
func ProcessTag(name string) string {
	return "process: " + name
}

// NormalizeTags returns the tag set sorted case-insensitively with empty and
// duplicate entries removed, so that equal sets always produce equal chains.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return slices.CompactFunc(out, strings.EqualFold)
}

// WithTags layers one tag frame per normalized tag above root and returns
// the new root. root must be parentless. A nil root yields the bare tag chain.
func WithTags(root *Frame, tags []string) *Frame {
	tags = NormalizeTags(tags)
	for i := len(tags) - 1; i >= 0; i-- {
		t := NewTag(tags[i])
		if root != nil {
			t.AddChild(root)
		}
		root = t
	}
	return root
}

// Tags collects the tag frames above f, outermost first.
func Tags(f *Frame) []string {
	var tags []string
	for cur := f; cur != nil; cur = cur.parent {
		if cur.IsTag() {
			tags = append(tags, cur.Module)
		}
	}
	slices.Reverse(tags)
	return tags
}
