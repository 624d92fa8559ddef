// Package telegram is a minimal Bot API client: long-polled updates in,
// messages out. Command routing lives in internal/bot.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Bot API operations used by the admin bot.
type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
}

// Update is one long-poll result.
type Update struct {
	UpdateID int64            `json:"update_id"`
	Message  *IncomingMessage `json:"message"`
}

// IncomingMessage is the subset of the Bot API message we act on.
type IncomingMessage struct {
	MessageID int64  `json:"message_id"`
	From      User   `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// User identifies the sender.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Chat identifies the conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the Bot API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithPollTimeout sets the long-poll timeout passed to getUpdates.
func WithPollTimeout(d time.Duration) Option {
	return func(c *httpClient) { c.pollTimeout = d }
}

type httpClient struct {
	token       string
	baseURL     string
	pollTimeout time.Duration
	http        *http.Client
}

// NewClient creates a Bot API client. An empty token yields config errors
// on use.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:       token,
		baseURL:     "https://api.telegram.org",
		pollTimeout: 25 * time.Second,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type sendMessagePayload struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func (c *httpClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c.token == "" {
		return eris.New("telegram: bot token not configured")
	}

	body, err := json.Marshal(sendMessagePayload{
		ChatID:                chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return eris.Wrap(err, "telegram: marshal payload")
	}

	var resp apiResponse
	if err := c.call(ctx, "sendMessage", body, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return eris.Errorf("telegram: sendMessage failed: %d %s", resp.ErrorCode, resp.Description)
	}
	return nil
}

func (c *httpClient) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	if c.token == "" {
		return nil, eris.New("telegram: bot token not configured")
	}

	q := url.Values{}
	q.Set("timeout", strconv.Itoa(int(c.pollTimeout.Seconds())))
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}

	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", c.baseURL, c.token, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "telegram: create request")
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "telegram: send request")
	}
	defer httpResp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "telegram: read response")
	}

	var resp apiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, eris.Wrap(err, "telegram: unmarshal response")
	}
	if !resp.OK {
		return nil, eris.Errorf("telegram: getUpdates failed: %d %s", resp.ErrorCode, resp.Description)
	}

	var updates []Update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, eris.Wrap(err, "telegram: unmarshal updates")
	}
	return updates, nil
}

func (c *httpClient) call(ctx context.Context, method string, body []byte, out *apiResponse) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "telegram: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "telegram: send request")
	}
	defer httpResp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return eris.Wrap(err, "telegram: read response")
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "telegram: unmarshal response")
	}
	return nil
}
