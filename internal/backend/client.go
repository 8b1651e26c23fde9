// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	// DefaultBaseURL is the backend API root used when none is configured.
	DefaultBaseURL = "http://localhost:5000/api"

	// maxErrorBody bounds how much of a failed response is kept for the error.
	maxErrorBody = 4 * 1024
)

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the API root (default: http://localhost:5000/api)
	BaseURL string

	// Timeout for buffered chat requests (default: 120s). Streaming requests
	// are bounded only by their context.
	Timeout time.Duration

	// HealthTimeout bounds the health probe (default: 5s)
	HealthTimeout time.Duration

	// HTTPClient overrides the underlying client. Its Timeout is ignored for
	// streaming requests.
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:       DefaultBaseURL,
		Timeout:       120 * time.Second,
		HealthTimeout: 5 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend. It is safe for concurrent use.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if config.HealthTimeout == 0 {
		config.HealthTimeout = 5 * time.Second
	}

	transport := http.DefaultTransport
	if config.HTTPClient != nil && config.HTTPClient.Transport != nil {
		transport = config.HTTPClient.Transport
	}

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout, Transport: transport},
		streamClient: &http.Client{Transport: transport},
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// CHAT
// =============================================================================

// SendTurn sends one chat turn.
//
// With streaming set, it posts to /chat/stream and returns as soon as the
// response headers arrive; the caller owns and must close result.Stream.
// Otherwise it posts to /chat and returns the decoded reply.
//
// Any non-2xx status or network failure is returned as *TransportError.
// The request is attempted once.
func (c *Client) SendTurn(ctx context.Context, messages []model.Message, agent model.Agent, temperature float64, streaming bool) (*TurnResult, error) {
	if temperature < 0 || temperature > 1 {
		return nil, ErrInvalidTemperature
	}

	body, err := json.Marshal(NewChatRequest(messages, agent, temperature))
	if err != nil {
		return nil, &TransportError{Type: ErrTypeInvalidRequest, Message: "failed to marshal request", Cause: err}
	}

	if streaming {
		stream, err := c.openStream(ctx, body)
		if err != nil {
			return nil, err
		}
		return &TurnResult{Stream: stream}, nil
	}

	reply, err := c.chat(ctx, body)
	if err != nil {
		return nil, err
	}
	return &TurnResult{Reply: reply}, nil
}

func (c *Client) openStream(ctx context.Context, body []byte) (io.ReadCloser, error) {
	req, err := c.newPost(ctx, "/chat/stream", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, classifyDoError(err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) chat(ctx context.Context, body []byte) (*BufferedReply, error) {
	req, err := c.newPost(ctx, "/chat", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyDoError(err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reply BufferedReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, &TransportError{
			Type:       ErrTypeInvalidResponse,
			StatusCode: resp.StatusCode,
			Message:    "failed to decode response",
			Cause:      err,
		}
	}
	return &reply, nil
}

func (c *Client) newPost(ctx context.Context, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Type: ErrTypeInvalidRequest, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckHealth reports whether GET /health answers with a 2xx status.
// Every failure, including timeouts and bad URLs, yields false.
func (c *Client) CheckHealth(ctx context.Context) (healthy bool) {
	defer func() {
		if recover() != nil {
			healthy = false
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.config.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	drainAndClose(resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// =============================================================================
// HELPERS
// =============================================================================

func classifyDoError(err error) *TransportError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &TransportError{Type: ErrTypeConnection, Message: ErrUnreachable.Message, Cause: err}
}

// checkStatus converts a non-2xx response into a TransportError and closes
// its body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer drainAndClose(resp.Body)

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := "request failed"

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	} else if text := strings.TrimSpace(string(data)); text != "" {
		msg = text
	}

	return &TransportError{
		Type:       ErrTypeStatus,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}

// Helper to drain response body
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(r, maxErrorBody))
	r.Close()
}
