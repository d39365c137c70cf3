package collapsed

import (
	"github.com/stack-analysis/internal/parser"
)

// Factory creates new Collapsed format parsers.
type Factory struct {
	includeSwapper bool
}

// NewFactory creates a new collapsed parser factory.
func NewFactory() *Factory {
	return &Factory{}
}

// WithIncludeSwapper keeps swapper thread samples in parsers created by f.
func (f *Factory) WithIncludeSwapper(include bool) *Factory {
	f.includeSwapper = include
	return f
}

// Create creates a new Collapsed format parser with the given options.
func (f *Factory) Create(opts ...parser.ParserOption) (parser.Parser, error) {
	return NewParser(&ParserOptions{
		ParseOptions:   *parser.Apply(opts...),
		IncludeSwapper: f.includeSwapper,
	}), nil
}

// RegisterWithRegistry registers the collapsed parser with the given registry.
func RegisterWithRegistry(registry *parser.Registry) {
	factory := NewFactory()
	registry.Register("collapsed", factory.Create)
	registry.Register("folded", factory.Create)
}
