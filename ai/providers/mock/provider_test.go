package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/rkayurveda/storefront/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DefaultResponse(t *testing.T) {
	c := NewClient()
	resp, err := c.GenerateResponse(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultResponse, resp.Content)
	assert.Equal(t, "mock-model", resp.Model)
	assert.Equal(t, 1, c.CallCount())
	assert.Equal(t, "hello", c.LastPrompt())
	assert.Nil(t, c.LastOptions())
}

func TestClient_ScriptedResponsesRepeatLast(t *testing.T) {
	c := NewClient("first", "second")
	ctx := context.Background()

	var got []string
	for i := 0; i < 3; i++ {
		resp, err := c.GenerateResponse(ctx, "q", &core.AIOptions{Model: "gemini-1.5-flash", SystemPrompt: "sys"})
		require.NoError(t, err)
		got = append(got, resp.Content)
		assert.Equal(t, "gemini-1.5-flash", resp.Model)
	}
	assert.Equal(t, []string{"first", "second", "second"}, got)
	assert.Equal(t, "sys", c.LastOptions().SystemPrompt)
}

func TestClient_Errors(t *testing.T) {
	c := NewClient()
	boom := errors.New("boom")
	c.SetError(boom)

	_, err := c.GenerateResponse(context.Background(), "q", nil)
	assert.ErrorIs(t, err, boom)

	c.SetError(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.GenerateResponse(ctx, "q", nil)
	assert.ErrorIs(t, err, context.Canceled)

	c.SetResponses()
	_, err = c.GenerateResponse(context.Background(), "q", nil)
	assert.Error(t, err)
}
