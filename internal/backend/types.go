// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"io"

	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// WireMessage is a message as transmitted: role and content only.
type WireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of both chat endpoints.
type ChatRequest struct {
	Messages     []WireMessage `json:"messages"`
	SystemPrompt string        `json:"systemPrompt"`
	Temperature  float64       `json:"temperature"`
	Documents    []string      `json:"documents"`
}

// BufferedReply is the decoded body of a non-streaming reply.
type BufferedReply struct {
	Message string `json:"message"`
	Model   string `json:"model"`
}

// HealthStatus is the optional body of the health endpoint.
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// TurnResult holds the outcome of SendTurn: Stream for streaming requests,
// Reply for buffered ones. Exactly one is set.
type TurnResult struct {
	Stream io.ReadCloser
	Reply  *BufferedReply
}

// IsStream returns true if the result carries a live stream.
func (r *TurnResult) IsStream() bool {
	return r != nil && r.Stream != nil
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// ToWireMessages reduces conversation messages to role and content.
// Attachments, votes and sources are stripped and only user and assistant
// roles are kept.
func ToWireMessages(messages []model.Message) []WireMessage {
	out := make([]WireMessage, 0, len(messages))
	for _, m := range messages {
		if !m.Role.Valid() {
			continue
		}
		out = append(out, WireMessage{
			Role:    m.Role.String(),
			Content: m.Content,
		})
	}
	return out
}

// NewChatRequest builds the request body for a turn.
func NewChatRequest(messages []model.Message, agent model.Agent, temperature float64) ChatRequest {
	docs := agent.Documents
	if docs == nil {
		docs = []string{}
	}
	return ChatRequest{
		Messages:     ToWireMessages(messages),
		SystemPrompt: agent.SystemPrompt,
		Temperature:  temperature,
		Documents:    docs,
	}
}
