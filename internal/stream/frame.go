// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// PROTOCOL CONSTANTS
// =============================================================================

const (
	// DataPrefix starts every frame the decoder acts on. Other SSE fields
	// (event:, id:, retry:, comments) are ignored.
	DataPrefix = "data: "

	// DoneSentinel is the content value that terminates a stream.
	DoneSentinel = "[DONE]"

	// FrameDelimiter separates frames.
	FrameDelimiter = "\n\n"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrMalformedFrame marks a frame that is not valid JSON or lacks the
// expected shape. The decoder drops such frames; it is exported so callers of
// ParseFrame can recognise it.
var ErrMalformedFrame = errors.New("malformed frame")

// StreamDecodeError wraps a failure reading the underlying stream.
type StreamDecodeError struct {
	Err error
}

func (e *StreamDecodeError) Error() string {
	return fmt.Sprintf("stream read failed: %v", e.Err)
}

func (e *StreamDecodeError) Unwrap() error {
	return e.Err
}

// BackendError is reported when the backend emits an error frame
// (data: {"error": "..."}) instead of content.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return "backend error: " + e.Message
}

// IsStreamDecodeError checks if an error came from reading the stream.
func IsStreamDecodeError(err error) bool {
	var decodeErr *StreamDecodeError
	return errors.As(err, &decodeErr)
}

// IsBackendError checks if an error was reported by the backend in-stream.
func IsBackendError(err error) bool {
	var backendErr *BackendError
	return errors.As(err, &backendErr)
}

// =============================================================================
// FRAME
// =============================================================================

// Frame is the validated payload of one data frame.
type Frame struct {
	Content *string `json:"content"`
	Error   *string `json:"error"`
}

// IsDone reports whether the frame is the terminal sentinel.
func (f Frame) IsDone() bool {
	return f.Content != nil && *f.Content == DoneSentinel
}

// Delta returns the content carried by the frame, or "" for none.
func (f Frame) Delta() string {
	if f.Content == nil || f.IsDone() {
		return ""
	}
	return *f.Content
}

// BackendError returns the in-stream error message, if the frame carries one
// and no content.
func (f Frame) BackendError() (string, bool) {
	if f.Content != nil || f.Error == nil || *f.Error == "" {
		return "", false
	}
	return *f.Error, true
}

// ParseFrame validates one raw frame (without its delimiter).
//
// A frame that does not start with DataPrefix, whose payload is not a JSON
// object, whose fields have the wrong types, or that carries neither content
// nor error returns ErrMalformedFrame.
func ParseFrame(raw string) (Frame, error) {
	raw = strings.TrimLeft(raw, "\n")
	if !strings.HasPrefix(raw, DataPrefix) {
		return Frame{}, fmt.Errorf("%w: missing %q prefix", ErrMalformedFrame, DataPrefix)
	}

	payload := strings.TrimSpace(raw[len(DataPrefix):])
	if !strings.HasPrefix(payload, "{") {
		return Frame{}, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedFrame)
	}

	var f Frame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Content == nil && f.Error == nil {
		return Frame{}, fmt.Errorf("%w: neither content nor error present", ErrMalformedFrame)
	}
	return f, nil
}
