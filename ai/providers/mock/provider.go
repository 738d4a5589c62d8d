// Package mock provides a canned AI provider for development and tests.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/rkayurveda/storefront/core"
)

// DefaultResponse is returned when no scripted responses are set
const DefaultResponse = "For everyday wellness, try a warm herbal oil massage, stay hydrated and favour fresh, seasonal food. Please consult a qualified practitioner for persistent concerns."

// Client implements core.AIClient without network calls.
// Scripted responses are returned in order; after they run out the last one repeats.
type Client struct {
	mu          sync.Mutex
	responses   []string
	index       int
	err         error
	callCount   int
	lastPrompt  string
	lastOptions *core.AIOptions
}

// NewClient creates a mock client; with no responses it answers DefaultResponse.
func NewClient(responses ...string) *Client {
	if len(responses) == 0 {
		responses = []string{DefaultResponse}
	}
	return &Client{responses: responses}
}

// GenerateResponse returns the next scripted response
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callCount++
	c.lastPrompt = prompt
	if options != nil {
		copied := *options
		c.lastOptions = &copied
	} else {
		c.lastOptions = nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return nil, errors.New("no mock responses configured")
	}

	response := c.responses[c.index]
	if c.index < len(c.responses)-1 {
		c.index++
	}

	model := "mock-model"
	if options != nil && options.Model != "" {
		model = options.Model
	}

	return &core.AIResponse{
		Content: response,
		Model:   model,
		Usage: core.TokenUsage{
			PromptTokens:     len(prompt) / 4, // rough estimate
			CompletionTokens: len(response) / 4,
			TotalTokens:      (len(prompt) + len(response)) / 4,
		},
	}, nil
}

// SetResponses replaces the scripted responses
func (c *Client) SetResponses(responses ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = responses
	c.index = 0
}

// SetError makes every call fail with err (nil clears it)
func (c *Client) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// CallCount returns how many times GenerateResponse was called
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callCount
}

// LastPrompt returns the most recent prompt
func (c *Client) LastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPrompt
}

// LastOptions returns a copy of the most recent options
func (c *Client) LastOptions() *core.AIOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOptions
}
