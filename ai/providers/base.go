// Package providers holds the plumbing shared by AI provider clients.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rkayurveda/storefront/core"
	"github.com/rkayurveda/storefront/resilience"
)

// BaseClient provides common functionality for all AI providers
type BaseClient struct {
	HTTPClient *http.Client
	Logger     core.Logger
	Telemetry  core.Telemetry

	// MaxRetries is the number of extra attempts after the first; zero disables retries
	MaxRetries int
	RetryDelay time.Duration

	DefaultModel        string
	DefaultTemperature  float32
	DefaultMaxTokens    int
	DefaultSystemPrompt string
}

// NewBaseClient creates a new base client with defaults
func NewBaseClient(timeout time.Duration, logger core.Logger) *BaseClient {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	return &BaseClient{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Logger:             logger,
		Telemetry:          &core.NoOpTelemetry{},
		MaxRetries:         0,
		RetryDelay:         time.Second,
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   1024,
	}
}

// StartSpan opens a span on the configured telemetry
func (b *BaseClient) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	if b.Telemetry == nil {
		return ctx, &core.NoOpSpan{}
	}
	return b.Telemetry.StartSpan(ctx, name)
}

// ExecuteWithRetry sends the request, retrying transport errors, 429 and 5xx
// responses with exponential backoff. Other 4xx responses are returned as-is.
func (b *BaseClient) ExecuteWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response

	err := resilience.Retry(ctx, &resilience.RetryConfig{
		MaxAttempts:   b.MaxRetries + 1,
		InitialDelay:  b.RetryDelay,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			b.Logger.Warn("AI request failed, retrying", map[string]interface{}{
				"operation":      "ai_request_retry_wait",
				"attempt":        attempt,
				"max_retries":    b.MaxRetries,
				"retry_delay_ms": delay.Milliseconds(),
				"error":          err.Error(),
			})
		},
	}, func() error {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return err
			}
			attemptReq.Body = body
		}
		r, err := b.HTTPClient.Do(attemptReq)
		if err != nil {
			return err
		}
		if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
			if b.MaxRetries > 0 {
				_ = r.Body.Close()
				return fmt.Errorf("upstream status %d: %w", r.StatusCode, core.ErrAIUnavailable)
			}
		}
		resp = r
		return nil
	})
	if err != nil {
		b.Logger.Error("AI request failed", map[string]interface{}{
			"operation":      "ai_request_final_failure",
			"total_attempts": b.MaxRetries + 1,
			"error":          err.Error(),
			"error_type":     fmt.Sprintf("%T", err),
		})
		return nil, err
	}
	return resp, nil
}

// ApplyDefaults fills unset options from the client defaults
func (b *BaseClient) ApplyDefaults(options *core.AIOptions) *core.AIOptions {
	if options == nil {
		options = &core.AIOptions{}
	} else {
		copied := *options
		options = &copied
	}

	if options.Model == "" {
		options.Model = b.DefaultModel
	}
	if options.Temperature == 0 {
		options.Temperature = b.DefaultTemperature
	}
	if options.MaxTokens == 0 {
		options.MaxTokens = b.DefaultMaxTokens
	}
	if options.SystemPrompt == "" {
		options.SystemPrompt = b.DefaultSystemPrompt
	}

	return options
}

// HandleError maps an HTTP error status to a provider error
func (b *BaseClient) HandleError(statusCode int, body []byte, provider string) error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s API error: invalid or missing API key: %w", provider, core.ErrAIUnavailable)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s API error: rate limit exceeded: %w", provider, core.ErrAIUnavailable)
	case http.StatusBadRequest:
		return fmt.Errorf("%s API error: invalid request - %s", provider, string(body))
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%s API error: service temporarily unavailable (status %d): %w", provider, statusCode, core.ErrAIUnavailable)
	default:
		return fmt.Errorf("%s API error (status %d): %s", provider, statusCode, string(body))
	}
}

// LogRequest logs outgoing API requests
func (b *BaseClient) LogRequest(provider, model, prompt string) {
	b.Logger.Info("AI request initiated", map[string]interface{}{
		"operation":     "ai_request",
		"provider":      provider,
		"model":         model,
		"prompt_length": len(prompt),
	})
}

// LogResponse logs API responses
func (b *BaseClient) LogResponse(provider, model string, tokens core.TokenUsage, duration time.Duration) {
	b.Logger.Info("AI response received", map[string]interface{}{
		"operation":         "ai_response",
		"provider":          provider,
		"model":             model,
		"prompt_tokens":     tokens.PromptTokens,
		"completion_tokens": tokens.CompletionTokens,
		"total_tokens":      tokens.TotalTokens,
		"duration_ms":       duration.Milliseconds(),
	})
}
