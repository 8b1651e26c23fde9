// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultOpenRouterURL is the chat completions endpoint.
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

	// DefaultOpenRouterModel is the free DeepSeek chat model.
	DefaultOpenRouterModel = "deepseek/deepseek-chat:free"

	// DefaultUpstreamTimeout bounds buffered upstream calls.
	DefaultUpstreamTimeout = 60 * time.Second

	// maxUpstreamResponse caps buffered upstream bodies.
	maxUpstreamResponse = 10 * 1024 * 1024
)

var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("OpenRouter API key not configured")

	// ErrRateLimited indicates the upstream asked us to slow down.
	ErrRateLimited = errors.New("rate limited")
)

// UpstreamError is a non-2xx answer from the upstream API.
type UpstreamError struct {
	Code    string
	Message string
	Status  int
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type apiErrorResponse struct {
	Error struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// PROVIDER
// =============================================================================

// OpenRouterConfig configures the OpenRouter provider.
type OpenRouterConfig struct {
	APIKey  string
	URL     string
	Model   string
	Referer string
	Timeout time.Duration
}

// OpenRouterProvider relays prompts to an OpenAI-compatible chat endpoint.
type OpenRouterProvider struct {
	cfg          OpenRouterConfig
	httpClient   *http.Client
	streamClient *http.Client
}

// NewOpenRouterProvider creates the provider, filling defaults for zero fields.
func NewOpenRouterProvider(cfg OpenRouterConfig) *OpenRouterProvider {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.URL == "" {
		cfg.URL = DefaultOpenRouterURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenRouterModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultUpstreamTimeout
	}
	return &OpenRouterProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		// Streams are bounded by the request context only.
		streamClient: &http.Client{},
	}
}

func (p *OpenRouterProvider) Name() string  { return "openrouter" }
func (p *OpenRouterProvider) Model() string { return p.cfg.Model }

func (p *OpenRouterProvider) newRequest(ctx context.Context, prompt Prompt, stream bool) (*http.Request, error) {
	body, err := json.Marshal(completionRequest{
		Model:       p.cfg.Model,
		Messages:    prompt.Messages,
		Temperature: prompt.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", p.cfg.Referer)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	}
	return req, nil
}

// Complete performs a buffered completion. Upstream failures are returned
// as is; there is no retry.
func (p *OpenRouterProvider) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	if p.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	return p.complete(ctx, prompt)
}

func (p *OpenRouterProvider) complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	req, err := p.newRequest(ctx, prompt, false)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamResponse))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp.StatusCode, body)
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("upstream returned no choices")
	}
	model := out.Model
	if model == "" {
		model = p.cfg.Model
	}
	return &Completion{Content: out.Choices[0].Message.Content, Model: model}, nil
}

// Stream performs a streaming completion and forwards each content delta.
func (p *OpenRouterProvider) Stream(ctx context.Context, prompt Prompt, fn DeltaFunc) error {
	if p.cfg.APIKey == "" {
		return ErrNotConfigured
	}
	req, err := p.newRequest(ctx, prompt, true)
	if err != nil {
		return err
	}
	resp, err := p.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return upstreamError(resp.StatusCode, body)
	}

	reader := NewSSEReader(resp.Body)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("upstream stream failed: %w", err)
		}
		if string(data) == "[DONE]" {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return &UpstreamError{Message: chunk.Error.Message, Status: http.StatusBadGateway}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			if err := fn(content); err != nil {
				return err
			}
		}
		if chunk.Choices[0].FinishReason != "" {
			return nil
		}
	}
}

func upstreamError(status int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		code := ""
		if apiErr.Error.Code != nil {
			code = fmt.Sprint(apiErr.Error.Code)
		}
		if status == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error.Message)
		}
		return &UpstreamError{Code: code, Message: apiErr.Error.Message, Status: status}
	}
	if status == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return &UpstreamError{Message: strings.TrimSpace(string(body)), Status: status}
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events and returns the joined data lines of
// each event. Other fields are ignored.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates an SSE reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent returns the data of the next event, or io.EOF.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			if errors.Is(err, io.EOF) && len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			if err != nil {
				return nil, err
			}
			continue
		}
		if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// A final line without a newline ends the stream.
		if err != nil {
			return bytes.Join(dataLines, []byte("\n")), nil
		}
	}
}
