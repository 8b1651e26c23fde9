// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/RedTheFoxx/OraLLMStudio/internal/config"
)

// Role names used in provider prompts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prompt entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is a provider-neutral chat request. Messages start with the system
// message when one is set.
type Prompt struct {
	Messages    []Message
	Temperature float64
}

// System returns the system message content, if any.
func (p Prompt) System() string {
	if len(p.Messages) > 0 && p.Messages[0].Role == RoleSystem {
		return p.Messages[0].Content
	}
	return ""
}

// Conversation returns the messages after the system message.
func (p Prompt) Conversation() []Message {
	if len(p.Messages) > 0 && p.Messages[0].Role == RoleSystem {
		return p.Messages[1:]
	}
	return p.Messages
}

// Completion is a buffered provider reply.
type Completion struct {
	Content string
	Model   string
}

// DeltaFunc receives streamed content. A non-nil return aborts the stream.
type DeltaFunc func(delta string) error

// Provider produces assistant replies.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, p Prompt) (*Completion, error)
	Stream(ctx context.Context, p Prompt, fn DeltaFunc) error
}

// NewProvider builds the provider named by the relay configuration.
func NewProvider(ctx context.Context, cfg config.RelayConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderEcho, "":
		return NewEchoProvider(echoDelay), nil
	case config.ProviderOpenRouter:
		if cfg.OpenRouterKey == "" {
			return nil, ErrNotConfigured
		}
		return NewOpenRouterProvider(OpenRouterConfig{
			APIKey:  cfg.OpenRouterKey,
			URL:     cfg.OpenRouterURL,
			Model:   cfg.Model,
			Referer: "http://localhost" + cfg.Addr,
		}), nil
	case config.ProviderGemini:
		model := cfg.Model
		if strings.Contains(model, "/") {
			// OpenRouter-style names are meaningless to Gemini.
			model = DefaultGeminiModel
		}
		return NewGeminiProvider(ctx, cfg.GeminiKey, model)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// =============================================================================
// ECHO PROVIDER
// =============================================================================

const echoDelay = 30 * time.Millisecond

// EchoProvider answers locally by repeating the last user message. It needs
// no credentials and is the default.
type EchoProvider struct {
	delay time.Duration
}

// NewEchoProvider creates an echo provider that streams one word per delay.
func NewEchoProvider(delay time.Duration) *EchoProvider {
	if delay <= 0 {
		delay = time.Millisecond
	}
	return &EchoProvider{delay: delay}
}

func (e *EchoProvider) Name() string  { return "echo" }
func (e *EchoProvider) Model() string { return "echo" }

func (e *EchoProvider) reply(p Prompt) string {
	last := ""
	conv := p.Conversation()
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role == RoleUser {
			last = strings.TrimSpace(conv[i].Content)
			break
		}
	}
	if last == "" {
		return "Nothing to echo."
	}
	return fmt.Sprintf("You said: %s", last)
}

// Complete returns the echo reply at once.
func (e *EchoProvider) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Completion{Content: e.reply(p), Model: e.Model()}, nil
}

// Stream emits the echo reply word by word.
func (e *EchoProvider) Stream(ctx context.Context, p Prompt, fn DeltaFunc) error {
	limiter := rate.NewLimiter(rate.Every(e.delay), 1)
	for i, word := range strings.Fields(e.reply(p)) {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if i > 0 {
			word = " " + word
		}
		if err := fn(word); err != nil {
			return err
		}
	}
	return nil
}
