package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot12345:token/sendMessage", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(42), payload["chat_id"])
		assert.Equal(t, "job j-1 completed", payload["text"])

		_, _ = w.Write([]byte(`{"ok": true, "result": {}}`))
	}))
	defer srv.Close()

	c := NewClient("12345:token", WithBaseURL(srv.URL))
	require.NoError(t, c.SendMessage(context.Background(), 42, "job j-1 completed"))
}

func TestSendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "error_code": 403, "description": "bot was blocked"}`))
	}))
	defer srv.Close()

	c := NewClient("12345:token", WithBaseURL(srv.URL))
	err := c.SendMessage(context.Background(), 42, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot was blocked")
}

func TestSendMessage_MissingToken(t *testing.T) {
	c := NewClient("")
	err := c.SendMessage(context.Background(), 1, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot12345:token/getUpdates", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("offset"))

		_, _ = w.Write([]byte(`{"ok": true, "result": [
			{"update_id": 7, "message": {"message_id": 1, "from": {"id": 99, "username": "ops"}, "chat": {"id": 99}, "text": "/jobs"}}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("12345:token", WithBaseURL(srv.URL))
	updates, err := c.GetUpdates(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(7), updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, "/jobs", updates[0].Message.Text)
	assert.Equal(t, int64(99), updates[0].Message.From.ID)
}
