// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"slices"
	"strings"
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered sequence of messages tied to one agent.
//
// A Conversation reachable from the session store must not be modified in
// place; use the With* helpers, which return an updated copy.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []Message  `json:"messages"`
	AgentID   string     `json:"agent_id"`
	CreatedAt time.Time  `json:"created_at"`
	Feedback  []Feedback `json:"feedback"`
}

// NewConversation creates an empty conversation bound to agentID.
func NewConversation(agentID, title string) Conversation {
	return Conversation{
		ID:        NewID(),
		Title:     title,
		Messages:  []Message{},
		AgentID:   agentID,
		CreatedAt: time.Now(),
		Feedback:  []Feedback{},
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// MessageCount returns the number of messages.
func (c Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if the conversation has no messages.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// LastMessage returns the last message and whether one exists.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// MessageByID returns the message with the given ID.
func (c Conversation) MessageByID(id string) (Message, bool) {
	for _, m := range c.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// FeedbackFor returns every feedback record submitted against messageID,
// oldest first.
func (c Conversation) FeedbackFor(messageID string) []Feedback {
	var out []Feedback
	for _, f := range c.Feedback {
		if f.MessageID == messageID {
			out = append(out, f)
		}
	}
	return out
}

// Preview returns the first user message truncated to maxLen runes, used in
// conversation lists.
func (c Conversation) Preview(maxLen int) string {
	for _, m := range c.Messages {
		if m.IsUser() && m.Content != "" {
			content := strings.Join(strings.Fields(m.Content), " ")
			runes := []rune(content)
			if len(runes) > maxLen && maxLen > 3 {
				return string(runes[:maxLen-3]) + "..."
			}
			return content
		}
	}
	return ""
}

// =============================================================================
// COPY-ON-WRITE HELPERS
// =============================================================================

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = m.Clone()
	}
	out.Feedback = slices.Clone(c.Feedback)
	if out.Feedback == nil {
		out.Feedback = []Feedback{}
	}
	return out
}

// WithMessage returns a copy with msg appended.
func (c Conversation) WithMessage(msg Message) Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages), len(c.Messages)+1)
	copy(out.Messages, c.Messages)
	out.Messages = append(out.Messages, msg)
	return out
}

// WithLastMessage returns a copy whose last message has been replaced by
// fn(last). The second result is false, and c is returned unchanged, when the
// conversation is empty.
func (c Conversation) WithLastMessage(fn func(Message) Message) (Conversation, bool) {
	if len(c.Messages) == 0 {
		return c, false
	}
	out := c
	out.Messages = slices.Clone(c.Messages)
	last := len(out.Messages) - 1
	out.Messages[last] = fn(out.Messages[last])
	return out, true
}

// WithMessageByID returns a copy where the message with the given ID has been
// replaced by fn(msg). The second result reports whether the ID was found.
func (c Conversation) WithMessageByID(id string, fn func(Message) Message) (Conversation, bool) {
	idx := slices.IndexFunc(c.Messages, func(m Message) bool { return m.ID == id })
	if idx < 0 {
		return c, false
	}
	out := c
	out.Messages = slices.Clone(c.Messages)
	out.Messages[idx] = fn(out.Messages[idx])
	return out, true
}

// WithTitle returns a copy with a new title. A blank title keeps the old one.
func (c Conversation) WithTitle(title string) Conversation {
	title = strings.TrimSpace(title)
	if title == "" {
		return c
	}
	out := c
	out.Title = title
	return out
}

// WithFeedback returns a copy with f appended to the feedback history.
func (c Conversation) WithFeedback(f Feedback) Conversation {
	out := c
	out.Feedback = make([]Feedback, len(c.Feedback), len(c.Feedback)+1)
	copy(out.Feedback, c.Feedback)
	out.Feedback = append(out.Feedback, f)
	return out
}
