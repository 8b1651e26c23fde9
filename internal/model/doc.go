// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// agents and feedback.
//
// Every type in this package is handled as an immutable snapshot once it has
// been published to the session store. Mutation helpers (WithMessage,
// WithLastMessage, WithTitle, WithFeedback, ...) return a modified copy and
// never touch the receiver's slices.
//
// # Key Types
//
//   - Conversation: ordered messages bound to one agent, plus feedback history
//   - Message: one utterance with role, content and optional vote/sources
//   - Agent: persona configuration (system prompt, documents, example prompts)
//   - Feedback: one vote event against a message
//
// # Usage
//
//	conv := model.NewConversation(agent.ID, "New conversation")
//	conv = conv.WithMessage(model.NewUserMessage("Hello!", nil))
//	conv = conv.WithMessage(model.NewAssistantPlaceholder())
//	conv = conv.WithLastMessage(func(m Message) Message {
//	    m.Content += "Hi"
//	    return m
//	})
package model
