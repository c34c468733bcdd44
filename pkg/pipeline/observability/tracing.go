package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sessionarc/pipeline"

// Tracer returns the pipeline tracer from the globally configured provider.
// When no provider is installed this is a no-op tracer, so callers never
// need to guard span creation.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartRecordingSpan starts a span covering the full processing of one
// recording. The returned context carries the span for downstream stages.
func StartRecordingSpan(ctx context.Context, title, source string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "pipeline.process_recording",
		trace.WithAttributes(
			attribute.String("recording.title", title),
			attribute.String("recording.source", source),
		))
}

// RecordOutcome annotates the span with the final status of the recording.
func RecordOutcome(span trace.Span, status, canonicalName string) {
	span.SetAttributes(
		attribute.String("pipeline.status", status),
		attribute.String("recording.canonical_name", canonicalName),
	)
}

// RecordFailure marks the span failed with the classified error code.
func RecordFailure(span trace.Span, code string, err error) {
	span.SetAttributes(attribute.String("error.code", code))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
