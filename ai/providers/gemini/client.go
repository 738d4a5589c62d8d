// Package gemini implements core.AIClient against Google's native
// GenerateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rkayurveda/storefront/ai/providers"
	"github.com/rkayurveda/storefront/core"
)

const (
	// DefaultBaseURL is the public v1beta endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel answers advice and description prompts
	DefaultModel = "gemini-1.5-flash"

	providerName = "gemini"
)

// Client talks to Gemini with an API key passed in the query string
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

// NewClient returns a client with a 30s timeout and no retries. An empty
// baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base := providers.NewBaseClient(30*time.Second, logger)
	base.DefaultModel = DefaultModel

	return &Client{
		BaseClient: base,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// GenerateResponse sends prompt as a single user turn. options.SystemPrompt,
// when set, becomes the systemInstruction.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "ai.generate_response")
	defer span.End()
	span.SetAttribute("ai.provider", providerName)
	span.SetAttribute("ai.prompt_length", len(prompt))

	fail := func(phase string, err error) (*core.AIResponse, error) {
		c.Logger.Error("Gemini request failed", map[string]interface{}{
			"operation": "ai_request_error",
			"provider":  providerName,
			"phase":     phase,
			"error":     err.Error(),
		})
		span.RecordError(err)
		return nil, err
	}

	if c.apiKey == "" {
		return fail("config", fmt.Errorf("gemini API key not configured: %w", core.ErrAIUnavailable))
	}

	options = c.ApplyDefaults(options)
	options.Model = resolveModel(options.Model)
	span.SetAttribute("ai.model", options.Model)

	req, err := c.newRequest(ctx, prompt, options)
	if err != nil {
		return fail("build", err)
	}

	c.LogRequest(providerName, options.Model, prompt)
	started := time.Now()

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		return fail("send", fmt.Errorf("failed to send request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail("read", fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		span.SetAttribute("http.status_code", resp.StatusCode)
		return fail("status", c.HandleError(resp.StatusCode, errorMessage(body), "Gemini"))
	}

	result, err := decodeResponse(body)
	if err != nil {
		return fail("decode", err)
	}
	result.Model = options.Model

	span.SetAttribute("ai.total_tokens", result.Usage.TotalTokens)
	span.SetAttribute("ai.response_length", len(result.Content))
	c.LogResponse(providerName, result.Model, result.Usage, time.Since(started))

	return result, nil
}

func (c *Client) newRequest(ctx context.Context, prompt string, options *core.AIOptions) (*http.Request, error) {
	payload := GeminiRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
		GenerationConfig: &GenerationConfig{
			Temperature:     options.Temperature,
			MaxOutputTokens: options.MaxTokens,
		},
	}
	if options.SystemPrompt != "" {
		payload.SystemInstruction = &SystemInstruction{Parts: []Part{{Text: options.SystemPrompt}}}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/models/" + url.PathEscape(options.Model) +
		":generateContent?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// decodeResponse joins the text parts of the first candidate. A blocked
// prompt or a candidate without text is reported as ErrAIUnavailable.
func decodeResponse(body []byte) (*core.AIResponse, error) {
	var parsed GeminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(parsed.Candidates) == 0 {
		if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("prompt blocked: %s: %w", parsed.PromptFeedback.BlockReason, core.ErrAIUnavailable)
		}
		return nil, fmt.Errorf("no candidates in Gemini response: %w", core.ErrAIUnavailable)
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no text content in Gemini response: %w", core.ErrAIUnavailable)
	}

	usage := parsed.UsageMetadata
	return &core.AIResponse{
		Content: text.String(),
		Usage: core.TokenUsage{
			PromptTokens:     usage.PromptTokenCount,
			CompletionTokens: usage.CandidatesTokenCount,
			TotalTokens:      usage.TotalTokenCount,
		},
	}, nil
}

// errorMessage prefers the message field of a Gemini error body
func errorMessage(body []byte) []byte {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return []byte(errResp.Error.Message)
	}
	return body
}
