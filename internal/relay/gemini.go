// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash-latest"

// ErrEmptyPrompt means the prompt holds no user message to answer.
var ErrEmptyPrompt = errors.New("prompt has no trailing user message")

// GeminiProvider relays prompts to Google Generative AI.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini client for the given API key.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("Gemini API key not configured")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) Name() string  { return "gemini" }
func (g *GeminiProvider) Model() string { return g.model }

// Close releases the underlying client.
func (g *GeminiProvider) Close() error {
	return g.client.Close()
}

// session prepares a chat session holding every message but the last, and
// returns the parts of the last user message.
func (g *GeminiProvider) session(p Prompt) (*genai.ChatSession, []genai.Part, error) {
	history, last, err := splitGeminiPrompt(p)
	if err != nil {
		return nil, nil, err
	}

	model := g.client.GenerativeModel(g.model)
	if system := p.System(); system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	model.SetTemperature(float32(p.Temperature))

	cs := model.StartChat()
	cs.History = history
	return cs, last.Parts, nil
}

// Complete sends the prompt and waits for the whole answer.
func (g *GeminiProvider) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	cs, parts, err := g.session(p)
	if err != nil {
		return nil, err
	}
	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini SendMessage failed: %w", err)
	}
	return &Completion{Content: textOf(resp), Model: g.model}, nil
}

// Stream sends the prompt and forwards each streamed text chunk.
func (g *GeminiProvider) Stream(ctx context.Context, p Prompt, fn DeltaFunc) error {
	cs, parts, err := g.session(p)
	if err != nil {
		return err
	}
	iter := cs.SendMessageStream(ctx, parts...)
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini stream failed: %w", err)
		}
		if text := textOf(resp); text != "" {
			if err := fn(text); err != nil {
				return err
			}
		}
	}
}

// splitGeminiPrompt maps the conversation onto Gemini contents. Assistant
// turns use the "model" role. The last message must come from the user.
func splitGeminiPrompt(p Prompt) ([]*genai.Content, *genai.Content, error) {
	conv := p.Conversation()
	if len(conv) == 0 || conv[len(conv)-1].Role != RoleUser {
		return nil, nil, ErrEmptyPrompt
	}

	contents := make([]*genai.Content, 0, len(conv))
	for _, m := range conv {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return contents[:len(contents)-1], contents[len(contents)-1], nil
}

func textOf(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
