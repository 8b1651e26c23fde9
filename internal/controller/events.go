// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"time"

	"github.com/RedTheFoxx/OraLLMStudio/internal/session"
)

// =============================================================================
// TURN STATE
// =============================================================================

// TurnState is the lifecycle position of a turn.
type TurnState int

const (
	StateIdle TurnState = iota
	StateAwaitingFirstByte
	StateStreaming
	StateSettled
)

// String returns the state name.
func (s TurnState) String() string {
	switch s {
	case StateAwaitingFirstByte:
		return "awaiting-first-byte"
	case StateStreaming:
		return "streaming"
	case StateSettled:
		return "settled"
	default:
		return "idle"
	}
}

// Mode is how the assistant reply is produced.
type Mode int

const (
	ModeStreaming Mode = iota
	ModeBuffered
	ModeSimulated
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBuffered:
		return "buffered"
	case ModeSimulated:
		return "simulated"
	default:
		return "streaming"
	}
}

// TurnStats summarizes a settled turn.
type TurnStats struct {
	Mode       Mode
	Model      string
	FirstDelta time.Duration // zero when no delta arrived
	Duration   time.Duration
	Deltas     int
	Chars      int
}

// =============================================================================
// NOTICES
// =============================================================================

// NoticeLevel grades a user-visible notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

// Notice is a transient, dismissible message for the user.
type Notice struct {
	Level NoticeLevel
	Text  string
	Err   error
}

// =============================================================================
// EVENTS
// =============================================================================

// Event is emitted by the controller to presentation collaborators.
type Event interface {
	event()
}

// TurnStarted follows the append of the user message and the placeholder.
type TurnStarted struct {
	ConversationID     string
	UserMessageID      string
	AssistantMessageID string
	Mode               Mode
}

// TurnStreaming marks the arrival of the stream handle.
type TurnStreaming struct {
	ConversationID string
	Latency        time.Duration
}

// DeltaApplied reports content appended to the placeholder.
type DeltaApplied struct {
	ConversationID string
	MessageID      string
	Delta          string
}

// TurnSettled ends a turn. Err is nil on success.
type TurnSettled struct {
	ConversationID string
	MessageID      string
	Err            error
	Stats          TurnStats
}

// NoticeRaised carries a notice for display.
type NoticeRaised struct {
	Notice Notice
}

// HealthChanged reports a transition of the backend status.
type HealthChanged struct {
	Previous session.BackendStatus
	Current  session.BackendStatus
}

func (TurnStarted) event()   {}
func (TurnStreaming) event() {}
func (DeltaApplied) event()  {}
func (TurnSettled) event()   {}
func (NoticeRaised) event()  {}
func (HealthChanged) event() {}

// EventSink receives controller events on the goroutine that produced them.
type EventSink func(Event)
