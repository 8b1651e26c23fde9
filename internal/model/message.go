// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether r is a role that may be stored in a conversation.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// VOTE TYPE
// =============================================================================

// Vote is a thumbs-up or thumbs-down rating on an assistant message.
type Vote string

const (
	VoteNone Vote = ""
	VoteUp   Vote = "up"
	VoteDown Vote = "down"
)

// ParseVote converts user input into a Vote.
func ParseVote(s string) (Vote, error) {
	switch s {
	case "up", "+", "+1", "good":
		return VoteUp, nil
	case "down", "-", "-1", "bad":
		return VoteDown, nil
	}
	return VoteNone, fmt.Errorf("invalid vote %q: must be up or down", s)
}

// Symbol returns a compact glyph for display.
func (v Vote) Symbol() string {
	switch v {
	case VoteUp:
		return "+1"
	case VoteDown:
		return "-1"
	default:
		return ""
	}
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Attachment is an opaque reference to a file the user attached to a message.
// The payload itself stays with the caller and is never sent to the backend.
type Attachment struct {
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	Size      int64  `json:"size"`
	MediaType string `json:"media_type,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single utterance in a conversation.
type Message struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Vote       Vote        `json:"vote,omitempty"`
	Sources    []string    `json:"sources,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewID returns a new time-ordered identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewUserMessage creates a user message with an optional attachment.
func NewUserMessage(content string, attachment *Attachment) Message {
	return Message{
		ID:         NewID(),
		Role:       RoleUser,
		Content:    content,
		Attachment: attachment,
		CreatedAt:  time.Now(),
	}
}

// NewAssistantPlaceholder creates the empty assistant message that streaming
// deltas are appended to.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:        NewID(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
	}
}

// IsUser returns true if this is a user message.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true if this is an assistant message.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// HasSources returns true if the message carries source references.
func (m Message) HasSources() bool {
	return len(m.Sources) > 0
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Attachment != nil {
		att := *m.Attachment
		out.Attachment = &att
	}
	out.Sources = slices.Clone(m.Sources)
	return out
}
