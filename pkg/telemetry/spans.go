package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracerName scopes the spans emitted by a run.
const TracerName = "github.com/stack-analysis"

// Span names.
const (
	SpanRun    = "stackagg.run"
	SpanIngest = "stackagg.ingest"
	SpanExport = "stackagg.export"
)

// Attribute keys attached to run spans.
const (
	AttrTraceID  = attribute.Key("stackagg.trace_id")
	AttrAnalyzer = attribute.Key("stackagg.analyzer")
	AttrFormat   = attribute.Key("stackagg.format")
	AttrEvents   = attribute.Key("stackagg.events")
	AttrFile     = attribute.Key("stackagg.file")
)

// Tracer returns the tracer of the global provider.
func Tracer() oteltrace.Tracer {
	return otel.Tracer(TracerName)
}

// Start opens a span named name under ctx.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return Tracer().Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

// ExportSpanName names the span of one analyzer/format export.
func ExportSpanName(analyzer, format string) string {
	return SpanExport + "/" + analyzer + "/" + format
}

// End records err on span, if any, and ends it.
func End(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
