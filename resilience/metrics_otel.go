package resilience

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetricsCollector implements MetricsCollector on the global
// OpenTelemetry meter provider.
type OTelMetricsCollector struct {
	calls       metric.Int64Counter
	rejections  metric.Int64Counter
	transitions metric.Int64Counter
}

// NewOTelMetricsCollector registers the circuit breaker instruments.
func NewOTelMetricsCollector() (*OTelMetricsCollector, error) {
	meter := otel.Meter("github.com/rkayurveda/storefront/resilience")

	calls, err := meter.Int64Counter("circuit_breaker.calls",
		metric.WithDescription("Calls through the circuit breaker by result"))
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter("circuit_breaker.rejections",
		metric.WithDescription("Calls rejected while the circuit was open"))
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state transitions"))
	if err != nil {
		return nil, err
	}

	return &OTelMetricsCollector{
		calls:       calls,
		rejections:  rejections,
		transitions: transitions,
	}, nil
}

func (o *OTelMetricsCollector) RecordSuccess(name string) {
	o.calls.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("circuit_breaker", name),
		attribute.String("result", "success"),
	))
}

func (o *OTelMetricsCollector) RecordFailure(name string) {
	o.calls.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("circuit_breaker", name),
		attribute.String("result", "failure"),
	))
}

func (o *OTelMetricsCollector) RecordStateChange(name string, from, to string) {
	o.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("circuit_breaker", name),
		attribute.String("from_state", from),
		attribute.String("to_state", to),
	))
}

func (o *OTelMetricsCollector) RecordRejection(name string) {
	o.rejections.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("circuit_breaker", name),
	))
}
