package parser

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stack-analysis/pkg/model"
)

type stubParser struct {
	opts *ParseOptions
}

func (s *stubParser) Parse(context.Context, io.Reader) (*model.ParseResult, error) {
	return model.NewParseResult(), nil
}
func (s *stubParser) SupportedFormats() []string { return []string{"stub"} }
func (s *stubParser) Name() string               { return "stub" }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("b", func(opts ...ParserOption) (Parser, error) {
		return &stubParser{opts: Apply(opts...)}, nil
	})
	r.Register("a", func(...ParserOption) (Parser, error) { return &stubParser{}, nil })

	assert.Equal(t, []string{"a", "b"}, r.Formats())
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))

	p, err := r.Get("b", WithProcess("svc"), WithStrictMode(true))
	require.NoError(t, err)
	opts := p.(*stubParser).opts
	assert.Equal(t, "svc", opts.Process)
	assert.True(t, opts.StrictMode)

	_, err = r.Get("c")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestApply(t *testing.T) {
	o := Apply(WithProcess(""), WithMaxEvents(2), WithSampleType("cpu"))
	assert.Equal(t, DefaultProcess, o.Process)
	assert.Equal(t, "cpu", o.SampleType)

	result := model.NewParseResult()
	result.Add(&model.Event{})
	assert.False(t, o.Limited(result))
	result.Add(&model.Event{})
	assert.True(t, o.Limited(result))
	assert.False(t, DefaultParseOptions().Limited(result))
}

func TestParseOptions_Deliver(t *testing.T) {
	e := &model.Event{Kind: model.EventKindCPU, Process: "svc"}

	kept := model.NewParseResult()
	require.NoError(t, Apply().Deliver(kept, e))
	assert.Len(t, kept.Events, 1)
	assert.Equal(t, int64(1), kept.TotalEvents)

	var got []*model.Event
	streamed := model.NewParseResult()
	opts := Apply(WithHandler(func(_ *model.ParseResult, e *model.Event) error {
		got = append(got, e)
		return nil
	}))
	require.NoError(t, opts.Deliver(streamed, e))
	assert.Empty(t, streamed.Events)
	assert.Equal(t, int64(1), streamed.TotalEvents)
	assert.Equal(t, map[string]int64{"svc": 1}, streamed.Processes)
	assert.Equal(t, []*model.Event{e}, got)
}
