package collapsed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stack-analysis/internal/parser"
	"github.com/stack-analysis/pkg/model"
)

// maxLineSize bounds a single line; deep Java stacks exceed the scanner
// default.
const maxLineSize = 16 * 1024 * 1024

// ErrInvalidFormat is returned for a line that is not "stack count".
var ErrInvalidFormat = fmt.Errorf("%w: expected \"stack count\"", parser.ErrInvalidFormat)

// errNoSample marks a well-formed line that yields no event.
var errNoSample = errors.New("no sample")

// ParserOptions holds configuration options for the collapsed parser.
type ParserOptions struct {
	parser.ParseOptions

	// IncludeSwapper keeps samples of the swapper (idle) thread.
	IncludeSwapper bool
}

// Parser reads collapsed stacks. Every line becomes one CPU event weighted
// by its count; the thread element names the process.
type Parser struct {
	opts *ParserOptions
}

// NewParser creates a new collapsed format parser.
func NewParser(opts *ParserOptions) *Parser {
	if opts == nil {
		opts = &ParserOptions{ParseOptions: *parser.DefaultParseOptions()}
	}
	return &Parser{opts: opts}
}

// Name returns the name of this parser.
func (p *Parser) Name() string { return "collapsed" }

// SupportedFormats returns the formats supported by this parser.
func (p *Parser) SupportedFormats() []string { return []string{"collapsed", "folded"} }

// Parse reads every line of r. Unusable lines are counted in Skipped, or
// abort the parse in strict mode.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*model.ParseResult, error) {
	result := model.NewParseResult()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for lineNum := 1; scanner.Scan(); lineNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		event, err := p.parseLine(line)
		switch {
		case err == nil:
			if err := p.opts.Deliver(result, event); err != nil {
				return nil, err
			}
		case errors.Is(err, errNoSample) || !p.opts.StrictMode:
			result.Skipped++
		default:
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
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
	sp := strings.LastIndexByte(line, ' ')
	if sp < 0 {
		return nil, ErrInvalidFormat
	}
	stack := strings.TrimSpace(line[:sp])
	count, err := strconv.ParseInt(line[sp+1:], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: count %q", ErrInvalidFormat, line[sp+1:])
	}
	if count <= 0 || stack == "" {
		return nil, errNoSample
	}

	if head, _, _ := strings.Cut(stack, ";"); sampleID.MatchString(head) {
		return nil, errNoSample
	}
	thread, frames := splitStack(stack)
	if len(frames) == 0 || (thread.Idle() && !p.opts.IncludeSwapper) {
		return nil, errNoSample
	}

	process := thread.Name
	if process == "" {
		process = p.opts.Process
	}
	return &model.Event{
		Kind:    model.EventKindCPU,
		Process: process,
		PID:     thread.PID,
		TID:     thread.TID,
		Stack:   frames,
		Weight:  count,
	}, nil
}
