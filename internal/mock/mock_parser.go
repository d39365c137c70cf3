// Package mock provides mock implementations for testing.
package mock

import (
	"context"
	"io"
	"maps"

	"github.com/stretchr/testify/mock"

	"github.com/stack-analysis/internal/parser"
	"github.com/stack-analysis/pkg/model"
)

// MockParser is a mock implementation of the Parser interface.
type MockParser struct {
	mock.Mock

	opts *parser.ParseOptions
}

// Parse mocks the Parse method. When the factory was given a handler, the
// expected result's events are delivered to it like a real parser would.
func (m *MockParser) Parse(ctx context.Context, reader io.Reader) (*model.ParseResult, error) {
	args := m.Called(ctx, reader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	result := args.Get(0).(*model.ParseResult)
	if m.opts == nil || m.opts.Handler == nil {
		return result, args.Error(1)
	}

	streamed := model.NewParseResult()
	streamed.Skipped = result.Skipped
	maps.Copy(streamed.Units, result.Units)
	for _, e := range result.Events {
		if err := m.opts.Deliver(streamed, e); err != nil {
			return nil, err
		}
	}
	return streamed, args.Error(1)
}

// SupportedFormats returns the single format the mock is registered under.
func (m *MockParser) SupportedFormats() []string {
	return []string{m.Name()}
}

// Name returns the format the mock is registered under.
func (m *MockParser) Name() string {
	return "mock"
}

// Factory returns a parser factory that always yields m.
func (m *MockParser) Factory() parser.ParserFactory {
	return func(opts ...parser.ParserOption) (parser.Parser, error) {
		m.opts = parser.Apply(opts...)
		return m, nil
	}
}

// ExpectParse sets up an expectation for Parse.
func (m *MockParser) ExpectParse(result *model.ParseResult, err error) *mock.Call {
	return m.On("Parse", mock.Anything, mock.Anything).Return(result, err)
}

// ExpectEvents makes Parse return events, declaring units per event kind.
func (m *MockParser) ExpectEvents(units map[model.EventKind]string, events ...*model.Event) *mock.Call {
	result := model.NewParseResult()
	for _, e := range events {
		result.Add(e)
	}
	for k, u := range units {
		result.Units[k] = u
	}
	return m.ExpectParse(result, nil)
}
