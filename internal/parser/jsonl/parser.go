// Package jsonl reads trace events written one JSON object per line:
//
//	{"kind":"cpu","process":"svc","pid":1,"tid":2,"timestamp":0,
//	 "stack":[{"module":"app","method":"leaf"},...],"weight":1,"type":""}
//
// Stacks are listed leaf first.
package jsonl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/stack-analysis/internal/parser"
	"github.com/stack-analysis/pkg/model"
)

const maxLineSize = 16 * 1024 * 1024

// Parser implements the jsonl event parser.
type Parser struct {
	opts *parser.ParseOptions
}

// NewParser creates a new jsonl parser.
func NewParser(opts *parser.ParseOptions) *Parser {
	if opts == nil {
		opts = parser.DefaultParseOptions()
	}
	return &Parser{opts: opts}
}

// NewFactory returns a parser.ParserFactory for jsonl input.
func NewFactory() parser.ParserFactory {
	return func(opts ...parser.ParserOption) (parser.Parser, error) {
		return NewParser(parser.Apply(opts...)), nil
	}
}

// RegisterWithRegistry registers the jsonl parser with the given registry.
func RegisterWithRegistry(registry *parser.Registry) {
	registry.Register("jsonl", NewFactory())
}

// SupportedFormats returns the formats supported by this parser.
func (p *Parser) SupportedFormats() []string {
	return []string{"jsonl"}
}

// Name returns the name of this parser.
func (p *Parser) Name() string {
	return "jsonl"
}

// Parse reads one event per non-empty line. Malformed lines and events
// with empty stacks are skipped unless strict mode is on.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) (*model.ParseResult, error) {
	result := model.NewParseResult()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		event, err := p.parseLine(line)
		if err != nil {
			if p.opts.StrictMode {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			result.Skipped++
			continue
		}

		if err := p.opts.Deliver(result, event); err != nil {
			return nil, err
		}
		if p.opts.Limited(result) {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return result, nil
}

func (p *Parser) parseLine(line string) (*model.Event, error) {
	var event model.Event
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return nil, fmt.Errorf("%w: %v", parser.ErrInvalidFormat, err)
	}
	if event.Kind == model.EventKindUnknown {
		return nil, fmt.Errorf("%w: missing event kind", parser.ErrInvalidFormat)
	}
	if len(event.Stack) == 0 {
		return nil, fmt.Errorf("%w: empty stack", parser.ErrInvalidStackFrame)
	}
	for i, f := range event.Stack {
		if f.Module == "" && f.Method == "" {
			return nil, fmt.Errorf("%w: frame %d has neither module nor method", parser.ErrInvalidStackFrame, i)
		}
	}
	if event.Process == "" {
		event.Process = p.opts.Process
	}
	return &event, nil
}
