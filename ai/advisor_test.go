package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rkayurveda/storefront/ai/providers/mock"
	"github.com/rkayurveda/storefront/core"
	"github.com/rkayurveda/storefront/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMetric struct {
	name   string
	value  float64
	labels map[string]string
}

type recordingTelemetry struct {
	mu      sync.Mutex
	spans   []string
	metrics []recordedMetric
}

func (r *recordingTelemetry) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = append(r.spans, name)
	return ctx, &core.NoOpSpan{}
}

func (r *recordingTelemetry) RecordMetric(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, recordedMetric{name, value, labels})
}

func (r *recordingTelemetry) results(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.metrics {
		if m.name == name {
			out = append(out, m.labels["result"])
		}
	}
	return out
}

func TestAsk_ReturnsProviderText(t *testing.T) {
	client := mock.NewClient("Use bhringraj oil twice a week.")
	advisor := NewAdvisor(client)

	answer := advisor.Ask(context.Background(), "hair fall")
	assert.Equal(t, "Use bhringraj oil twice a week.", answer)

	assert.Equal(t, AdvicePrompt("hair fall"), client.LastPrompt())
	assert.Equal(t,
		`You are an Ayurvedic expert for Radhe Krishna Ayurveda. Provide helpful advice for the user query: "hair fall". Keep it professional and centered on natural remedies.`,
		client.LastPrompt())
	require.NotNil(t, client.LastOptions())
	assert.Equal(t, adviceSystemPrompt, client.LastOptions().SystemPrompt)
}

func TestAsk_BlankQuerySkipsProvider(t *testing.T) {
	client := mock.NewClient()
	advisor := NewAdvisor(client)

	for _, q := range []string{"", "   ", "\n\t"} {
		assert.Equal(t, "", advisor.Ask(context.Background(), q))
	}
	assert.Equal(t, 0, client.CallCount())
}

func TestAsk_FallbackOnError(t *testing.T) {
	client := mock.NewClient()
	client.SetError(errors.New("boom"))
	telemetry := &recordingTelemetry{}
	advisor := NewAdvisor(client, WithAdvisorTelemetry(telemetry))

	assert.Equal(t, FallbackAdvice, advisor.Ask(context.Background(), "acidity"))
	assert.Equal(t, []string{"failure"}, telemetry.results("advisor.requests"))
	assert.Contains(t, telemetry.spans, "advisor.ask")
}

func TestAsk_FallbackOnEmptyContent(t *testing.T) {
	advisor := NewAdvisor(mock.NewClient("   "))
	assert.Equal(t, FallbackAdvice, advisor.Ask(context.Background(), "sleep"))
}

func TestAsk_NilClientFallsBack(t *testing.T) {
	advisor := NewAdvisor(nil)
	assert.Equal(t, FallbackAdvice, advisor.Ask(context.Background(), "sleep"))

	text, ok := advisor.DescribeProduct(context.Background(), "Neem Soap", "Soaps")
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestDescribeProduct(t *testing.T) {
	client := mock.NewClient("A cooling soap made with neem.")
	advisor := NewAdvisor(client)

	text, ok := advisor.DescribeProduct(context.Background(), "Pure Neem & Aloe Soap", "Soaps")
	require.True(t, ok)
	assert.Equal(t, "A cooling soap made with neem.", text)
	assert.Equal(t,
		`Write a compelling, short, and premium Ayurvedic product description for "Pure Neem & Aloe Soap" in the "Soaps" category. Focus on natural ingredients and traditional Indian benefits.`,
		client.LastPrompt())
}

func TestDescribeProduct_Failure(t *testing.T) {
	client := mock.NewClient()
	client.SetError(core.ErrAIUnavailable)
	advisor := NewAdvisor(client)

	text, ok := advisor.DescribeProduct(context.Background(), "Dhoop", "Dhoop & Agarbatti")
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestAdvisor_CircuitBreakerOpens(t *testing.T) {
	client := mock.NewClient()
	client.SetError(core.ErrAIUnavailable)

	cb, err := resilience.NewCircuitBreaker(&resilience.CircuitBreakerConfig{
		Name:             "advisor",
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	})
	require.NoError(t, err)

	telemetry := &recordingTelemetry{}
	advisor := NewAdvisor(client, WithCircuitBreaker(cb), WithAdvisorTelemetry(telemetry))

	for i := 0; i < 4; i++ {
		assert.Equal(t, FallbackAdvice, advisor.Ask(context.Background(), "cough"))
	}

	assert.Equal(t, 2, client.CallCount(), "open circuit must stop provider calls")
	assert.Equal(t, "open", cb.GetState())
	assert.Equal(t, []string{"failure", "failure", "rejected", "rejected"}, telemetry.results("advisor.requests"))
}

func TestNewClient(t *testing.T) {
	t.Run("disabled returns nil client", func(t *testing.T) {
		client, err := NewClient(core.AIConfig{Enabled: false})
		require.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("mock provider", func(t *testing.T) {
		client, err := NewClient(core.AIConfig{Enabled: true, Provider: ProviderMock})
		require.NoError(t, err)
		_, ok := client.(*mock.Client)
		assert.True(t, ok)
	})

	t.Run("gemini provider applies config", func(t *testing.T) {
		client, err := NewClient(core.AIConfig{
			Enabled:       true,
			Provider:      ProviderGemini,
			APIKey:        "k",
			Model:         "gemini-1.5-pro",
			Temperature:   0.3,
			MaxTokens:     256,
			Timeout:       5 * time.Second,
			RetryAttempts: 2,
		}, WithLogger(&core.NoOpLogger{}))
		require.NoError(t, err)
		require.NotNil(t, client)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewClient(core.AIConfig{Enabled: true, Provider: "openai"})
		assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
	})
}
