// Package botapi pushes saved responses to the running bot.
package botapi

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

	"github.com/small-frappuccino/botdash/pkg/message"
)

const maxErrorBody = 4 << 10

// APIError is a non-2xx answer from the bot.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bot api: status %d", e.Status)
	}
	return fmt.Sprintf("bot api: status %d: %s", e.Status, e.Body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Client talks to the bot's response API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// NewClient creates a client for baseURL, authenticating with a bearer token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a bot endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// PushResponse uploads the record stored under (guildID, key).
// Transport errors are returned as-is; the caller owns retries.
func (c *Client) PushResponse(ctx context.Context, guildID, key string, rec message.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return c.do(ctx, http.MethodPut, c.responseURL(guildID, key), body)
}

// DeleteResponse removes the record from the bot. A 404 counts as success.
func (c *Client) DeleteResponse(ctx context.Context, guildID, key string) error {
	err := c.do(ctx, http.MethodDelete, c.responseURL(guildID, key), nil)
	if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) responseURL(guildID, key string) string {
	return fmt.Sprintf("%s/v1/guilds/%s/responses/%s", c.baseURL, url.PathEscape(guildID), url.PathEscape(key))
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) error {
	if !c.Enabled() {
		return fmt.Errorf("bot api: base url not configured")
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
