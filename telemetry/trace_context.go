package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rkayurveda/storefront/core"
)

// TraceContext identifies the active span for log correlation
type TraceContext struct {
	TraceID string
	SpanID  string
	Sampled bool
}

// GetTraceContext returns the zero value unless ctx holds a valid span
func GetTraceContext(ctx context.Context) TraceContext {
	if ctx == nil {
		return TraceContext{}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return TraceContext{
			TraceID: sc.TraceID().String(),
			SpanID:  sc.SpanID().String(),
			Sampled: sc.IsSampled(),
		}
	}
	return TraceContext{}
}

// LogFields returns fields plus whatever request identity ctx carries:
// trace_id and span_id from an active span, and correlation_id and
// request_id set by core.CorrelationMiddleware. fields may be nil.
func LogFields(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		out[k] = v
	}
	if ctx == nil {
		return out
	}
	if tc := GetTraceContext(ctx); tc.TraceID != "" {
		out["trace_id"] = tc.TraceID
		out["span_id"] = tc.SpanID
	}
	if id := core.CorrelationID(ctx); id != "" {
		out["correlation_id"] = id
	}
	if id := core.RequestID(ctx); id != "" {
		out["request_id"] = id
	}
	return out
}

// AddSpanEvent records a named event on the span in ctx. Non-recording
// spans ignore it.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if ctx == nil {
		return
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
