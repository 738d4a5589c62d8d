package core

import (
	"context"
	"time"
)

// Logger takes a message and snake_case structured fields. Implementations
// must be safe for concurrent use.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ComponentAwareLogger can derive a child logger tagged with a component
// such as "commerce" or "auth".
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// ComponentLogger returns logger tagged with component when it supports
// that, logger unchanged when it does not, and a NoOpLogger for nil.
func ComponentLogger(logger Logger, component string) Logger {
	switch l := logger.(type) {
	case nil:
		return &NoOpLogger{}
	case ComponentAwareLogger:
		return l.WithComponent(component)
	default:
		return logger
	}
}

// Telemetry is the tracing and metrics surface the domain packages see.
// The telemetry package provides the OpenTelemetry implementation.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	RecordMetric(name string, value float64, labels map[string]string)
}

// Span is an in-flight trace span
type Span interface {
	SetAttribute(key string, value interface{})
	RecordError(err error)
	End()
}

// Memory stores short-lived string values such as one-time login codes.
// A zero ttl means no expiry.
type Memory interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// AIClient generates text for the advice and product-description features
type AIClient interface {
	GenerateResponse(ctx context.Context, prompt string, options *AIOptions) (*AIResponse, error)
}

// AIOptions override provider defaults for one call; zero values keep them
type AIOptions struct {
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

// AIResponse is a completed generation
type AIResponse struct {
	Content string
	Model   string
	Usage   TokenUsage
}

// TokenUsage as reported by the provider
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NoOpLogger discards everything
type NoOpLogger struct{}

func (*NoOpLogger) Debug(string, map[string]interface{}) {}
func (*NoOpLogger) Info(string, map[string]interface{})  {}
func (*NoOpLogger) Warn(string, map[string]interface{})  {}
func (*NoOpLogger) Error(string, map[string]interface{}) {}

// NoOpTelemetry hands out NoOpSpans and drops metrics
type NoOpTelemetry struct{}

func (*NoOpTelemetry) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, &NoOpSpan{}
}

func (*NoOpTelemetry) RecordMetric(string, float64, map[string]string) {}

// NoOpSpan ignores every call
type NoOpSpan struct{}

func (*NoOpSpan) SetAttribute(string, interface{}) {}
func (*NoOpSpan) RecordError(error)                {}
func (*NoOpSpan) End()                             {}
