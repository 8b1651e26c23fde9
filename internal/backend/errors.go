// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes transport errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeStatus
	ErrTypeInvalidRequest
	ErrTypeInvalidResponse
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeStatus:
		return "status"
	case ErrTypeInvalidRequest:
		return "invalid request"
	case ErrTypeInvalidResponse:
		return "invalid response"
	default:
		return "unknown"
	}
}

// TransportError is returned for any failed request. StatusCode is zero when
// no HTTP response was received.
type TransportError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Cause      error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d %s)", msg, e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrInvalidTemperature = &TransportError{Type: ErrTypeInvalidRequest, Message: "temperature must be between 0 and 1"}
	ErrUnreachable        = &TransportError{Type: ErrTypeConnection, Message: "backend is unreachable"}
)

// Is matches sentinels by type and message so wrapped copies compare equal.
func (e *TransportError) Is(target error) bool {
	t, ok := target.(*TransportError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message && t.StatusCode == 0
}

// IsTransportError checks if err is a *TransportError.
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// StatusCode extracts the HTTP status from a transport error, or 0.
func StatusCode(err error) int {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode
	}
	return 0
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Type == ErrTypeTimeout
	}
	return false
}
