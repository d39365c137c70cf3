// Package pprof reads pprof profiles as trace events.
package pprof

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/pprof/profile"

	"github.com/stack-analysis/internal/parser"
	"github.com/stack-analysis/pkg/model"
)

// SampleType represents the type of sample in a pprof profile.
type SampleType string

const (
	// CPU sample types
	SampleTypeCPU     SampleType = "cpu"
	SampleTypeSamples SampleType = "samples"

	// Heap sample types
	SampleTypeInuseSpace   SampleType = "inuse_space"
	SampleTypeInuseObjects SampleType = "inuse_objects"
	SampleTypeAllocSpace   SampleType = "alloc_space"
	SampleTypeAllocObjects SampleType = "alloc_objects"
)

// Sample labels read into event fields.
const (
	LabelProcess = "process"
	LabelThread  = "thread"
	LabelType    = "type"
	LabelPID     = "pid"
	LabelTID     = "tid"
)

// Parser reads pprof data. Every sample with a non-zero value for the
// selected sample type becomes one event weighted by that value.
type Parser struct {
	opts    *parser.ParseOptions
	profile *profile.Profile
}

// NewParser creates a new pprof parser.
func NewParser(opts *parser.ParseOptions) *Parser {
	if opts == nil {
		opts = parser.DefaultParseOptions()
	}
	return &Parser{opts: opts}
}

// NewFactory returns a parser.ParserFactory for pprof input.
func NewFactory() parser.ParserFactory {
	return func(opts ...parser.ParserOption) (parser.Parser, error) {
		return NewParser(parser.Apply(opts...)), nil
	}
}

// RegisterWithRegistry registers the pprof parser with the given registry.
func RegisterWithRegistry(registry *parser.Registry) {
	registry.Register("pprof", NewFactory())
}

// SupportedFormats returns the formats supported by this parser.
func (p *Parser) SupportedFormats() []string {
	return []string{"pprof"}
}

// Name returns the name of this parser.
func (p *Parser) Name() string {
	return "pprof"
}

// Profile returns the last parsed profile.
func (p *Parser) Profile() *profile.Profile {
	return p.profile
}

// Parse parses a gzip-compressed or raw pprof profile.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*model.ParseResult, error) {
	prof, err := profile.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse pprof: %v", parser.ErrInvalidFormat, err)
	}
	p.profile = prof

	idx := p.selectSampleType()
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q (available: %v)", parser.ErrSampleTypeNotFound, p.opts.SampleType, p.GetSampleTypes())
	}
	st := prof.SampleType[idx]
	kind := EventKindOf(SampleType(st.Type))

	result := model.NewParseResult()
	result.Units[kind] = st.Unit

	for i, sample := range prof.Sample {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if idx >= len(sample.Value) || sample.Value[idx] == 0 {
			result.Skipped++
			continue
		}

		stack := buildStack(sample.Location)
		if len(stack) == 0 {
			if p.opts.StrictMode {
				return nil, fmt.Errorf("sample %d: %w", i, parser.ErrInvalidStackFrame)
			}
			result.Skipped++
			continue
		}

		event := &model.Event{
			Kind:     kind,
			Process:  p.label(sample, LabelProcess, LabelThread),
			PID:      int(numLabel(sample, LabelPID, -1)),
			TID:      int(numLabel(sample, LabelTID, -1)),
			Stack:    stack,
			Weight:   sample.Value[idx],
			TypeName: firstLabel(sample, LabelType),
		}
		if event.Weight < 0 {
			event.Weight = -event.Weight
		}
		if err := p.opts.Deliver(result, event); err != nil {
			return nil, err
		}
		if p.opts.Limited(result) {
			break
		}
	}

	return result, nil
}

// EventKindOf maps a sample type onto the event kind it records.
func EventKindOf(sampleType SampleType) model.EventKind {
	s := string(sampleType)
	if strings.HasPrefix(s, "alloc_") || strings.HasPrefix(s, "inuse_") {
		return model.EventKindAlloc
	}
	return model.EventKindCPU
}

// GetSampleTypes returns available sample types in the profile.
func (p *Parser) GetSampleTypes() []string {
	if p.profile == nil {
		return nil
	}
	types := make([]string, 0, len(p.profile.SampleType))
	for _, st := range p.profile.SampleType {
		types = append(types, st.Type)
	}
	return types
}

// selectSampleType resolves the configured sample type to an index. With no
// configured type the profile default is used, falling back to the last
// sample type as pprof does.
func (p *Parser) selectSampleType() int {
	if len(p.profile.SampleType) == 0 {
		return -1
	}
	if p.opts.SampleType != "" {
		if idx := p.findSampleTypeIndex(p.opts.SampleType); idx >= 0 {
			return idx
		}
		return p.findAlternativeSampleTypeIndex(SampleType(p.opts.SampleType))
	}
	if p.profile.DefaultSampleType != "" {
		if idx := p.findSampleTypeIndex(p.profile.DefaultSampleType); idx >= 0 {
			return idx
		}
	}
	return len(p.profile.SampleType) - 1
}

// findSampleTypeIndex finds the index of a sample type by name.
func (p *Parser) findSampleTypeIndex(typeName string) int {
	for i, st := range p.profile.SampleType {
		if st.Type == typeName {
			return i
		}
	}
	return -1
}

// findAlternativeSampleTypeIndex tries to find alternative sample type names.
func (p *Parser) findAlternativeSampleTypeIndex(sampleType SampleType) int {
	alternatives := map[SampleType][]string{
		SampleTypeCPU:          {"cpu", "nanoseconds", "samples"},
		SampleTypeSamples:      {"samples", "count"},
		SampleTypeInuseSpace:   {"inuse_space", "inuse_bytes"},
		SampleTypeInuseObjects: {"inuse_objects", "inuse_count"},
		SampleTypeAllocSpace:   {"alloc_space", "alloc_bytes"},
		SampleTypeAllocObjects: {"alloc_objects", "alloc_count"},
	}

	alts, ok := alternatives[sampleType]
	if !ok {
		return -1
	}

	for _, alt := range alts {
		if idx := p.findSampleTypeIndex(alt); idx >= 0 {
			return idx
		}
	}
	return -1
}

// label returns the first present string label among keys, or the
// configured process name.
func (p *Parser) label(sample *profile.Sample, keys ...string) string {
	for _, key := range keys {
		if v := firstLabel(sample, key); v != "" {
			return v
		}
	}
	return p.opts.Process
}

func firstLabel(sample *profile.Sample, key string) string {
	if values := sample.Label[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func numLabel(sample *profile.Sample, key string, def int64) int64 {
	if values := sample.NumLabel[key]; len(values) > 0 {
		return values[0]
	}
	return def
}

// buildStack converts locations into frames, leaf first. Inlined lines of
// a location are listed innermost first, as pprof stores them.
func buildStack(locations []*profile.Location) []model.Frame {
	frames := make([]model.Frame, 0, len(locations))
	for _, loc := range locations {
		if len(loc.Line) == 0 {
			frames = append(frames, model.Frame{
				Module: mappingName(loc, ""),
				Method: fmt.Sprintf("0x%x", loc.Address),
			})
			continue
		}
		for _, line := range loc.Line {
			var funcName string
			if line.Function != nil {
				funcName = line.Function.Name
			}
			if funcName == "" {
				funcName = fmt.Sprintf("0x%x", loc.Address)
			}
			frames = append(frames, model.Frame{
				Module: mappingName(loc, funcName),
				Method: funcName,
			})
		}
	}
	return frames
}

// mappingName names the module of a location: the mapped binary when
// known, otherwise the package derived from the function name.
func mappingName(loc *profile.Location, funcName string) string {
	if loc.Mapping != nil && loc.Mapping.File != "" {
		return path.Base(loc.Mapping.File)
	}
	if funcName == "" {
		return "unknown"
	}
	return getModuleName(funcName)
}

// getModuleName extracts module name from function name.
func getModuleName(funcName string) string {
	// Go function names are like: github.com/pkg/errors.Wrap
	lastSlash := strings.LastIndex(funcName, "/")
	if lastSlash < 0 {
		// No slash, might be runtime or main
		dot := strings.Index(funcName, ".")
		if dot > 0 {
			return funcName[:dot]
		}
		return funcName
	}

	// Find the package name after the last slash
	remaining := funcName[lastSlash+1:]
	dot := strings.Index(remaining, ".")
	if dot > 0 {
		return funcName[:lastSlash+1+dot]
	}
	return funcName[:lastSlash+1] + remaining
}
