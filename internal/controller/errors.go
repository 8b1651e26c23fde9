// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"errors"

	"github.com/RedTheFoxx/OraLLMStudio/internal/session"
)

// Guard and turn errors. Transport and stream failures keep their own types
// (*backend.TransportError, *stream.StreamDecodeError, *stream.BackendError).
var (
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrTurnInFlight         = errors.New("a reply is still in progress for this conversation")
	ErrBackendOffline       = errors.New("backend is offline")
	ErrNoAgentSelected      = session.ErrNoAgentSelected
	ErrInvalidTemperature   = errors.New("temperature must be between 0 and 1")
)

// IsGuardError reports whether err rejected a turn before it started.
func IsGuardError(err error) bool {
	return errors.Is(err, ErrNoActiveConversation) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrTurnInFlight) ||
		errors.Is(err, ErrBackendOffline)
}
