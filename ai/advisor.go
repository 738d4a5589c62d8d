package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rkayurveda/storefront/core"
	"github.com/rkayurveda/storefront/resilience"
)

const (
	// FallbackAdvice is shown whenever the provider cannot answer
	FallbackAdvice = "I am currently unable to provide advice. Please try again later."

	adviceSystemPrompt = "You are a professional Ayurvedic consultant. Always suggest natural, herbal remedies and promote traditional Indian wellness."
)

// AdvicePrompt renders the user query into the expert-advice prompt.
func AdvicePrompt(query string) string {
	return fmt.Sprintf("You are an Ayurvedic expert for Radhe Krishna Ayurveda. Provide helpful advice for the user query: \"%s\". Keep it professional and centered on natural remedies.", query)
}

// DescriptionPrompt renders the product-description prompt.
func DescriptionPrompt(name, category string) string {
	return fmt.Sprintf("Write a compelling, short, and premium Ayurvedic product description for \"%s\" in the \"%s\" category. Focus on natural ingredients and traditional Indian benefits.", name, category)
}

// Advisor answers wellness questions and drafts product copy through an
// AI provider. It never returns provider errors to callers.
type Advisor struct {
	client    core.AIClient
	breaker   *resilience.CircuitBreaker
	logger    core.Logger
	telemetry core.Telemetry
}

// AdvisorOption customizes an Advisor
type AdvisorOption func(*Advisor)

// WithCircuitBreaker guards provider calls with cb
func WithCircuitBreaker(cb *resilience.CircuitBreaker) AdvisorOption {
	return func(a *Advisor) { a.breaker = cb }
}

// WithAdvisorLogger sets the advisor logger
func WithAdvisorLogger(logger core.Logger) AdvisorOption {
	return func(a *Advisor) { a.logger = core.ComponentLogger(logger, "advisor") }
}

// WithAdvisorTelemetry records spans and request metrics
func WithAdvisorTelemetry(t core.Telemetry) AdvisorOption {
	return func(a *Advisor) {
		if t != nil {
			a.telemetry = t
		}
	}
}

// NewAdvisor creates an advisor. A nil client is allowed and always yields the fallback.
func NewAdvisor(client core.AIClient, opts ...AdvisorOption) *Advisor {
	a := &Advisor{
		client:    client,
		logger:    &core.NoOpLogger{},
		telemetry: &core.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ask returns expert advice for query. A blank query returns "" without
// calling the provider. Any failure returns FallbackAdvice.
func (a *Advisor) Ask(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}

	ctx, span := a.telemetry.StartSpan(ctx, "advisor.ask")
	defer span.End()

	text, err := a.generate(ctx, "ask", AdvicePrompt(query), &core.AIOptions{SystemPrompt: adviceSystemPrompt})
	if err != nil {
		span.RecordError(err)
		return FallbackAdvice
	}
	return text
}

// DescribeProduct drafts marketing copy for a product. ok is false when
// the provider could not produce text.
func (a *Advisor) DescribeProduct(ctx context.Context, name, category string) (string, bool) {
	ctx, span := a.telemetry.StartSpan(ctx, "advisor.describe_product")
	defer span.End()
	span.SetAttribute("product.category", category)

	text, err := a.generate(ctx, "describe", DescriptionPrompt(name, category), nil)
	if err != nil {
		span.RecordError(err)
		return "", false
	}
	return text, true
}

func (a *Advisor) generate(ctx context.Context, kind, prompt string, options *core.AIOptions) (string, error) {
	start := time.Now()

	var resp *core.AIResponse
	call := func() error {
		if a.client == nil {
			return fmt.Errorf("no AI provider configured: %w", core.ErrAIUnavailable)
		}
		r, err := a.client.GenerateResponse(ctx, prompt, options)
		if err != nil {
			return err
		}
		if strings.TrimSpace(r.Content) == "" {
			return fmt.Errorf("empty response: %w", core.ErrAIUnavailable)
		}
		resp = r
		return nil
	}

	var err error
	if a.breaker != nil && a.client != nil {
		err = a.breaker.Execute(ctx, call)
	} else {
		err = call()
	}

	result := "success"
	if err != nil {
		result = "failure"
		if errors.Is(err, core.ErrCircuitOpen) {
			result = "rejected"
		}
		a.logger.Warn("Advice unavailable, using fallback", map[string]interface{}{
			"operation": "advisor_" + kind,
			"error":     err.Error(),
			"result":    result,
		})
	}
	a.telemetry.RecordMetric("advisor.requests", 1, map[string]string{"kind": kind, "result": result})
	a.telemetry.RecordMetric("advisor.duration_ms", float64(time.Since(start).Milliseconds()), map[string]string{"kind": kind})

	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
