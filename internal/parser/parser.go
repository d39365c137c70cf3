// Package parser defines the interfaces for reading trace events.
package parser

import (
	"context"
	"io"
	"sort"

	"github.com/stack-analysis/pkg/model"
)

// Parser reads one input and returns its events in delivery order, each
// with a stack resolved to (module, method) frames.
type Parser interface {
	// Parse parses events from the reader.
	Parse(ctx context.Context, reader io.Reader) (*model.ParseResult, error)

	// SupportedFormats returns the formats supported by this parser.
	SupportedFormats() []string

	// Name returns the name of this parser.
	Name() string
}

// ParserFactory is a function that creates a new Parser instance.
type ParserFactory func(opts ...ParserOption) (Parser, error)

// Handler receives each event as soon as it is read. result holds the
// counters so far and the units the input declares. An error stops the
// parse and is returned from Parse unchanged.
type Handler func(result *model.ParseResult, e *model.Event) error

// ParserOption is a function that configures ParseOptions.
type ParserOption func(*ParseOptions)

// Registry holds registered parser factories.
type Registry struct {
	factories map[string]ParserFactory
}

// NewRegistry creates a new parser Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ParserFactory),
	}
}

// Register registers a parser factory with the given format name.
func (r *Registry) Register(format string, factory ParserFactory) {
	r.factories[format] = factory
}

// Get creates the parser registered for format.
func (r *Registry) Get(format string, opts ...ParserOption) (Parser, error) {
	factory, ok := r.factories[format]
	if !ok {
		return nil, ErrUnsupportedFormat
	}
	return factory(opts...)
}

// Has reports whether a parser is registered for format.
func (r *Registry) Has(format string) bool {
	_, ok := r.factories[format]
	return ok
}

// Formats returns the registered format names, sorted.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultProcess names the process of events whose input carries none.
const DefaultProcess = "unknown"

// ParseOptions holds common parsing options.
type ParseOptions struct {
	// StrictMode fails on the first malformed record instead of skipping it.
	StrictMode bool

	// MaxEvents limits the number of events read. Zero means no limit.
	MaxEvents int64

	// Process names the process of events that carry no process name.
	Process string

	// SampleType selects the pprof sample value used as the event weight.
	// Empty selects the profile's default sample type.
	SampleType string

	// Handler, when set, receives events instead of ParseResult.Events.
	Handler Handler
}

// DefaultParseOptions returns default parsing options.
func DefaultParseOptions() *ParseOptions {
	return &ParseOptions{
		StrictMode: false,
		MaxEvents:  0, // no limit
		Process:    DefaultProcess,
	}
}

// Apply returns default options with opts applied.
func Apply(opts ...ParserOption) *ParseOptions {
	o := DefaultParseOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.Process == "" {
		o.Process = DefaultProcess
	}
	return o
}

// WithStrictMode enables strict parsing.
func WithStrictMode(strict bool) ParserOption {
	return func(o *ParseOptions) { o.StrictMode = strict }
}

// WithMaxEvents limits the number of events read.
func WithMaxEvents(n int64) ParserOption {
	return func(o *ParseOptions) { o.MaxEvents = n }
}

// WithProcess sets the fallback process name.
func WithProcess(name string) ParserOption {
	return func(o *ParseOptions) { o.Process = name }
}

// WithSampleType selects the pprof sample type.
func WithSampleType(sampleType string) ParserOption {
	return func(o *ParseOptions) { o.SampleType = sampleType }
}

// WithHandler streams events to h. Parse then returns only counters and
// units.
func WithHandler(h Handler) ParserOption {
	return func(o *ParseOptions) { o.Handler = h }
}

// Deliver counts e in result and hands it to the handler, or keeps it in
// result.Events when no handler is set.
func (o *ParseOptions) Deliver(result *model.ParseResult, e *model.Event) error {
	if o.Handler == nil {
		result.Add(e)
		return nil
	}
	result.Count(e)
	return o.Handler(result, e)
}

// Limited reports whether result has reached the event limit of o.
func (o *ParseOptions) Limited(result *model.ParseResult) bool {
	return o.MaxEvents > 0 && result.TotalEvents >= o.MaxEvents
}
