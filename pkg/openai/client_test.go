package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req["model"])

		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "refined script"}}],
			"usage": {"prompt_tokens": 900, "completion_tokens": 450}
		}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", WithBaseURL(srv.URL))
	out, err := c.Complete(context.Background(), "polish this draft")
	require.NoError(t, err)
	assert.Equal(t, "refined script", out.Text)
	assert.Equal(t, 900, out.InputTokens)
	assert.Equal(t, 450, out.OutputTokens)
}

func TestComplete_MissingKey(t *testing.T) {
	c := NewClient("")
	_, err := c.Complete(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}
