// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedTheFoxx/OraLLMStudio/internal/backend"
	"github.com/RedTheFoxx/OraLLMStudio/internal/config"
	"github.com/RedTheFoxx/OraLLMStudio/internal/metrics"
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
	"github.com/RedTheFoxx/OraLLMStudio/internal/stream"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// scriptedProvider replays fixed deltas and records the last prompt.
type scriptedProvider struct {
	deltas []string
	err    error
	last   Prompt
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-1" }

func (p *scriptedProvider) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	p.last = prompt
	if p.err != nil {
		return nil, p.err
	}
	return &Completion{Content: strings.Join(p.deltas, ""), Model: p.Model()}, nil
}

func (p *scriptedProvider) Stream(ctx context.Context, prompt Prompt, fn DeltaFunc) error {
	p.last = prompt
	for _, d := range p.deltas {
		if err := fn(d); err != nil {
			return err
		}
	}
	return p.err
}

func newTestServer(t *testing.T, p Provider, opts ...Option) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(p, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

// =============================================================================
// HANDLERS
// =============================================================================

func TestHealth(t *testing.T) {
	srv := newTestServer(t, NewEchoProvider(time.Millisecond))

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status backend.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "Backend is running", status.Message)
}

func TestChatBuffered(t *testing.T) {
	p := &scriptedProvider{deltas: []string{"Hello", " world"}}
	srv := newTestServer(t, p)

	resp := postJSON(t, srv.URL+"/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply backend.BufferedReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, "Hello world", reply.Message)
	assert.Equal(t, "scripted-1", reply.Model)

	// Defaults fill in for a missing system prompt and temperature.
	require.Len(t, p.last.Messages, 2)
	assert.Equal(t, Message{Role: RoleSystem, Content: DefaultSystemPrompt}, p.last.Messages[0])
	assert.Equal(t, DefaultTemperature, p.last.Temperature)
}

func TestChatKeepsZeroTemperature(t *testing.T) {
	p := &scriptedProvider{deltas: []string{"ok"}}
	srv := newTestServer(t, p)

	resp := postJSON(t, srv.URL+"/api/chat", `{"messages":[{"role":"user","content":"hi"}],"systemPrompt":"Be terse.","temperature":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, p.last.Temperature)
	assert.Equal(t, "Be terse.", p.last.System())
}

func TestChatUpstreamFailure(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{err: errors.New("boom")})

	resp := postJSON(t, srv.URL+"/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"API request failed: boom"}`, readAll(t, resp.Body))
}

func TestChatRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"messages":`},
		{"no messages", `{"messages":[]}`},
		{"system role", `{"messages":[{"role":"system","content":"x"}]}`},
		{"temperature too high", `{"messages":[{"role":"user","content":"x"}],"temperature":3}`},
		{"temperature negative", `{"messages":[{"role":"user","content":"x"}],"temperature":-0.1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/api/chat", "/api/chat/stream"} {
				resp := postJSON(t, srv.URL+path, tt.body)
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
				assert.Contains(t, readAll(t, resp.Body), `"error"`)
			}
		})
	}
}

func TestChatAppendsDocuments(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "faq.txt", "Opening hours are 9 to 5.")

	p := &scriptedProvider{deltas: []string{"ok"}}
	srv := newTestServer(t, p, WithDocuments(NewDocumentLoader(dir, 0, zerolog.Nop())))

	resp := postJSON(t, srv.URL+"/api/chat", `{"messages":[{"role":"user","content":"hi"}],"systemPrompt":"Help.","documents":["faq.txt"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	system := p.last.System()
	assert.True(t, strings.HasPrefix(system, "Help.\n\nThe following documents"))
	assert.Contains(t, system, "--- DOCUMENT 1 ---\nOpening hours are 9 to 5.")
}

func TestChatStreamFrames(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{deltas: []string{"Hel", "lo \"you\""}})

	resp := postJSON(t, srv.URL+"/api/chat/stream", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	assert.Equal(t,
		"data: {\"content\":\"Hel\"}\n\n"+
			"data: {\"content\":\"lo \\\"you\\\"\"}\n\n"+
			"data: {\"content\":\"[DONE]\"}\n\n",
		readAll(t, resp.Body))
}

func TestChatStreamUpstreamFailure(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{deltas: []string{"part"}, err: errors.New("upstream closed")})

	resp := postJSON(t, srv.URL+"/api/chat/stream", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"data: {\"content\":\"part\"}\n\n"+
			"data: {\"error\":\"upstream closed\"}\n\n",
		readAll(t, resp.Body))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/chat", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

// =============================================================================
// CLIENT ROUND TRIP
// =============================================================================

func TestClientStreamsFromRelay(t *testing.T) {
	srv := newTestServer(t, NewEchoProvider(time.Millisecond))
	client := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL + "/api"})

	assert.True(t, client.CheckHealth(context.Background()))

	msgs := []model.Message{model.NewUserMessage("hello relay", nil)}
	agent := model.Agent{ID: "a1", Name: "Echo", SystemPrompt: "Repeat."}

	res, err := client.SendTurn(context.Background(), msgs, agent, 0.2, true)
	require.NoError(t, err)
	require.True(t, res.IsStream())
	defer res.Stream.Close()

	var got strings.Builder
	completed := false
	stream.Consume(context.Background(), res.Stream, stream.Handler{
		OnDelta:    func(d string) { got.WriteString(d) },
		OnComplete: func() { completed = true },
		OnError:    func(err error) { t.Errorf("unexpected stream error: %v", err) },
	})
	assert.True(t, completed)
	assert.Equal(t, "You said: hello relay", got.String())

	res, err = client.SendTurn(context.Background(), msgs, agent, 0.2, false)
	require.NoError(t, err)
	require.NotNil(t, res.Reply)
	assert.Equal(t, "You said: hello relay", res.Reply.Message)
	assert.Equal(t, "echo", res.Reply.Model)
}

// =============================================================================
// METRICS
// =============================================================================

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	srv := newTestServer(t, &scriptedProvider{deltas: []string{"a", "b"}}, WithMetrics(m))

	resp := postJSON(t, srv.URL+"/api/chat/stream", `{"messages":[{"role":"user","content":"hi"}]}`)
	readAll(t, resp.Body)

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	body := readAll(t, mresp.Body)

	assert.Contains(t, body, `orallm_relay_stream_deltas_total{provider="scripted"} 2`)
	assert.Contains(t, body, `orallm_relay_http_requests_total{method="POST",route="/api/chat/stream",status="200"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// PROVIDERS
// =============================================================================

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), config.RelayConfig{Provider: config.ProviderEcho})
	require.NoError(t, err)
	assert.Equal(t, "echo", p.Name())

	_, err = NewProvider(context.Background(), config.RelayConfig{Provider: config.ProviderOpenRouter})
	assert.ErrorIs(t, err, ErrNotConfigured)

	p, err = NewProvider(context.Background(), config.RelayConfig{
		Provider:      config.ProviderOpenRouter,
		OpenRouterKey: "k",
		Model:         "deepseek/deepseek-chat:free",
	})
	require.NoError(t, err)
	assert.Equal(t, "deepseek/deepseek-chat:free", p.Model())

	_, err = NewProvider(context.Background(), config.RelayConfig{Provider: config.ProviderGemini})
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), config.RelayConfig{Provider: "llama"})
	assert.Error(t, err)
}

func TestEchoProvider(t *testing.T) {
	p := NewEchoProvider(time.Millisecond)

	c, err := p.Complete(context.Background(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "You said: hi", c.Content)

	var deltas []string
	require.NoError(t, p.Stream(context.Background(), Prompt{Messages: []Message{{Role: RoleUser, Content: "a b  c"}}},
		func(d string) error {
			deltas = append(deltas, d)
			return nil
		}))
	assert.Equal(t, []string{"You", " said:", " a", " b", " c"}, deltas)

	c, err = p.Complete(context.Background(), Prompt{})
	require.NoError(t, err)
	assert.Equal(t, "Nothing to echo.", c.Content)
}

func TestSplitGeminiPrompt(t *testing.T) {
	history, last, err := splitGeminiPrompt(Prompt{Messages: []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "q2"},
	}})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, "user", last.Role)

	_, _, err = splitGeminiPrompt(Prompt{Messages: []Message{{Role: RoleSystem, Content: "sys"}}})
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, _, err = splitGeminiPrompt(Prompt{Messages: []Message{{Role: RoleUser, Content: "q"}, {Role: RoleAssistant, Content: "a"}}})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}
