// Package ai wires the advice provider and the expert advisor built on it.
package ai

import (
	"fmt"

	"github.com/rkayurveda/storefront/ai/providers/gemini"
	"github.com/rkayurveda/storefront/ai/providers/mock"
	"github.com/rkayurveda/storefront/core"
)

// Provider names accepted in AIConfig.Provider
const (
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// ClientOption customizes provider construction
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger    core.Logger
	telemetry core.Telemetry
}

// WithLogger sets the provider logger
func WithLogger(logger core.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = logger }
}

// WithTelemetry sets the telemetry used for provider spans
func WithTelemetry(t core.Telemetry) ClientOption {
	return func(o *clientOptions) { o.telemetry = t }
}

// NewClient builds the provider named by cfg. It returns a nil client and
// no error when AI is disabled; callers then fall back to canned text.
func NewClient(cfg core.AIConfig, opts ...ClientOption) (core.AIClient, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}
	logger := core.ComponentLogger(o.logger, "ai")

	if !cfg.Enabled {
		logger.Info("AI advice disabled", map[string]interface{}{
			"operation": "ai_client_creation",
		})
		return nil, nil
	}

	switch cfg.Provider {
	case ProviderMock:
		logger.Info("Using mock AI provider", map[string]interface{}{
			"operation": "ai_client_creation",
			"provider":  ProviderMock,
		})
		return mock.NewClient(), nil

	case ProviderGemini, "":
		client := gemini.NewClient(cfg.APIKey, cfg.BaseURL, logger)
		if cfg.Timeout > 0 {
			client.HTTPClient.Timeout = cfg.Timeout
		}
		if cfg.RetryAttempts > 0 {
			client.MaxRetries = cfg.RetryAttempts
		}
		if cfg.Model != "" {
			client.DefaultModel = cfg.Model
		}
		if cfg.Temperature > 0 {
			client.DefaultTemperature = cfg.Temperature
		}
		if cfg.MaxTokens > 0 {
			client.DefaultMaxTokens = cfg.MaxTokens
		}
		if o.telemetry != nil {
			client.Telemetry = o.telemetry
		}
		logger.Info("Using Gemini AI provider", map[string]interface{}{
			"operation": "ai_client_creation",
			"provider":  ProviderGemini,
			"model":     client.DefaultModel,
		})
		return client, nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q: %w", cfg.Provider, core.ErrInvalidConfiguration)
	}
}
