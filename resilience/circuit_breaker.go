// Package resilience guards calls to external collaborators.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rkayurveda/storefront/core"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// StateClosed allows all requests through
	StateClosed CircuitState = iota
	// StateOpen blocks all requests
	StateOpen
	// StateHalfOpen allows a single probe request
	StateHalfOpen
)

// String returns the string representation of the state
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MetricsCollector receives circuit breaker events
type MetricsCollector interface {
	RecordSuccess(name string)
	RecordFailure(name string)
	RecordStateChange(name string, from, to string)
	RecordRejection(name string)
}

type noopMetrics struct{}

func (n *noopMetrics) RecordSuccess(name string)                      {}
func (n *noopMetrics) RecordFailure(name string)                      {}
func (n *noopMetrics) RecordStateChange(name string, from, to string) {}
func (n *noopMetrics) RecordRejection(name string)                    {}

// ErrorClassifier determines which errors count toward the failure threshold
type ErrorClassifier func(error) bool

// DefaultErrorClassifier ignores caller errors and cancellations.
func DefaultErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if core.IsConfigurationError(err) || core.IsNotFound(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	Name string

	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold int

	// OpenTimeout is how long the circuit stays open before a probe is allowed
	OpenTimeout time.Duration

	ErrorClassifier ErrorClassifier
	Logger          core.Logger
	Metrics         MetricsCollector
}

// DefaultConfig returns the breaker settings used for the advice provider
func DefaultConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:             "default",
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		ErrorClassifier:  DefaultErrorClassifier,
		Logger:           &core.NoOpLogger{},
		Metrics:          &noopMetrics{},
	}
}

// Validate checks the configuration
func (c *CircuitBreakerConfig) Validate() error {
	if c.FailureThreshold < 1 {
		return &core.StoreError{
			Op:      "CircuitBreakerConfig.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("failure threshold must be at least 1, got %d", c.FailureThreshold),
			Err:     core.ErrInvalidConfiguration,
		}
	}
	if c.OpenTimeout <= 0 {
		return &core.StoreError{
			Op:      "CircuitBreakerConfig.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("open timeout must be positive, got %s", c.OpenTimeout),
			Err:     core.ErrInvalidConfiguration,
		}
	}
	return nil
}

// CircuitBreaker opens after a run of consecutive failures and lets one
// probe through once the open timeout has elapsed.
type CircuitBreaker struct {
	config *CircuitBreakerConfig
	now    func() time.Time

	mu             sync.Mutex
	state          CircuitState
	failures       int
	openedAt       time.Time
	probeInFlight  bool
	totalRejected  uint64
	totalSuccesses uint64
	totalFailures  uint64
}

// NewCircuitBreaker creates a circuit breaker; a nil config uses DefaultConfig.
func NewCircuitBreaker(config *CircuitBreakerConfig) (*CircuitBreaker, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	if config.ErrorClassifier == nil {
		config.ErrorClassifier = DefaultErrorClassifier
	}
	if config.Logger == nil {
		config.Logger = &core.NoOpLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = &noopMetrics{}
	}

	cb := &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}

	config.Logger.Debug("Circuit breaker created", map[string]interface{}{
		"operation":         "circuit_breaker_created",
		"name":              config.Name,
		"failure_threshold": config.FailureThreshold,
		"open_timeout_ms":   config.OpenTimeout.Milliseconds(),
	})
	return cb, nil
}

// SetLogger tags the logger with the resilience component
func (cb *CircuitBreaker) SetLogger(logger core.Logger) {
	cb.config.Logger = core.ComponentLogger(logger, "resilience")
}

// Execute runs fn unless the circuit is open, in which case it returns
// core.ErrCircuitOpen without calling fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !cb.CanExecute() {
		return fmt.Errorf("circuit breaker %s: %w", cb.config.Name, core.ErrCircuitOpen)
	}

	err := fn()
	if err != nil && cb.config.ErrorClassifier(err) {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}
	return err
}

// CanExecute reports whether a call may proceed. Moving from open to
// half-open reserves the single probe slot for the caller.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.OpenTimeout {
			cb.reject()
			return false
		}
		cb.transition(StateHalfOpen)
		cb.probeInFlight = true
		return true
	default:
		if cb.probeInFlight {
			cb.reject()
			return false
		}
		cb.probeInFlight = true
		return true
	}
}

// RecordSuccess closes the circuit and resets the failure run
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalSuccesses++
	cb.failures = 0
	cb.probeInFlight = false
	if cb.state != StateClosed {
		cb.transition(StateClosed)
	}
	cb.config.Metrics.RecordSuccess(cb.config.Name)
}

// RecordFailure counts a failure and opens the circuit at the threshold.
// A failed probe reopens it immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalFailures++
	cb.failures++
	cb.probeInFlight = false
	cb.config.Metrics.RecordFailure(cb.config.Name)

	if cb.state == StateHalfOpen || (cb.state == StateClosed && cb.failures >= cb.config.FailureThreshold) {
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
	}
}

// GetState returns the current state name
func (cb *CircuitBreaker) GetState() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state.String()
}

// GetMetrics returns counters for diagnostics
func (cb *CircuitBreaker) GetMetrics() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return map[string]interface{}{
		"name":                 cb.config.Name,
		"state":                cb.state.String(),
		"consecutive_failures": cb.failures,
		"successes":            cb.totalSuccesses,
		"failures":             cb.totalFailures,
		"rejected":             cb.totalRejected,
	}
}

// Reset returns the breaker to closed with no recorded failures
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.probeInFlight = false
	if cb.state != StateClosed {
		cb.transition(StateClosed)
	}
}

// caller holds cb.mu
func (cb *CircuitBreaker) reject() {
	cb.totalRejected++
	cb.config.Metrics.RecordRejection(cb.config.Name)
}

// caller holds cb.mu
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	cb.config.Metrics.RecordStateChange(cb.config.Name, from.String(), to.String())

	fields := map[string]interface{}{
		"operation":            "circuit_breaker_state_change",
		"name":                 cb.config.Name,
		"from":                 from.String(),
		"to":                   to.String(),
		"consecutive_failures": cb.failures,
	}
	if to == StateOpen {
		cb.config.Logger.Warn("Circuit breaker opened", fields)
		return
	}
	cb.config.Logger.Info("Circuit breaker state changed", fields)
}
