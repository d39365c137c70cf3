package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, run := Start(context.Background(), SpanRun, AttrTraceID.String("t1"))
	_, export := Start(ctx, ExportSpanName("cpu", "csv"), AttrAnalyzer.String("cpu"), AttrFormat.String("csv"))
	End(export, errors.New("disk full"))
	End(run, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "stackagg.export/cpu/csv", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "disk full", spans[0].Status().Description)
	assert.Len(t, spans[0].Events(), 1)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())

	assert.Equal(t, SpanRun, spans[1].Name())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}
