// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// DECODER CONFIGURATION
// =============================================================================

const (
	// DefaultChunkSize is the size of each read from the underlying stream.
	DefaultChunkSize = 4 * 1024

	// MaxFrameSize bounds how much undelimited text is buffered. A frame
	// larger than this is dropped as malformed.
	MaxFrameSize = 1 << 20
)

// Handler receives decoder callbacks. Nil fields are ignored.
type Handler struct {
	OnDelta    func(content string)
	OnComplete func()
	OnError    func(err error)
}

func (h Handler) delta(s string) {
	if h.OnDelta != nil {
		h.OnDelta(s)
	}
}

func (h Handler) complete() {
	if h.OnComplete != nil {
		h.OnComplete()
	}
}

func (h Handler) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Decoder turns a byte stream into delta callbacks.
// A Decoder holds no per-stream state and may be shared.
type Decoder struct {
	chunkSize    int
	maxFrameSize int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithChunkSize sets the read size.
func WithChunkSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithMaxFrameSize sets the largest frame that will be buffered.
func WithMaxFrameSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxFrameSize = n
		}
	}
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		chunkSize:    DefaultChunkSize,
		maxFrameSize: MaxFrameSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Consume decodes r with a default Decoder.
func Consume(ctx context.Context, r io.Reader, h Handler) {
	NewDecoder().Consume(ctx, r, h)
}

// =============================================================================
// CONSUME
// =============================================================================

type frameResult int

const (
	frameSkipped frameResult = iota
	frameDelta
	frameDone
)

// Consume reads r until the sentinel, EOF, a read error or cancellation of
// ctx, invoking h as frames arrive. Exactly one of OnComplete or OnError is
// called. Consume does not close r.
func (d *Decoder) Consume(ctx context.Context, r io.Reader, h Handler) {
	// The UTF-8 decoder holds back an incomplete trailing sequence until the
	// next read supplies the rest of the rune.
	reader := transform.NewReader(r, unicode.UTF8.NewDecoder())
	buf := make([]byte, d.chunkSize)

	var pending string
	skipping := false

	for {
		if err := ctx.Err(); err != nil {
			h.fail(err)
			return
		}

		n, readErr := reader.Read(buf)
		if n > 0 {
			pending = strings.ReplaceAll(pending+string(buf[:n]), "\r\n", "\n")

			for {
				idx := strings.Index(pending, FrameDelimiter)
				if idx < 0 {
					break
				}
				raw := pending[:idx]
				pending = pending[idx+len(FrameDelimiter):]

				if skipping {
					skipping = false
					continue
				}
				if d.dispatch(raw, h) == frameDone {
					return
				}
			}

			if len(pending) > d.maxFrameSize {
				// Keep a trailing newline so a delimiter split across reads
				// still ends the oversized frame.
				if strings.HasSuffix(pending, "\n") {
					pending = "\n"
				} else {
					pending = ""
				}
				skipping = true
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if !skipping && strings.TrimSpace(pending) != "" {
					if d.dispatch(strings.TrimRight(pending, "\n"), h) == frameDone {
						return
					}
				}
				h.complete()
				return
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				h.fail(ctxErr)
				return
			}
			h.fail(&StreamDecodeError{Err: readErr})
			return
		}
	}
}

// dispatch handles one frame. frameDone means a terminal callback has been
// invoked and decoding must stop.
func (d *Decoder) dispatch(raw string, h Handler) frameResult {
	frame, err := ParseFrame(raw)
	if err != nil {
		return frameSkipped
	}

	if frame.IsDone() {
		h.complete()
		return frameDone
	}
	if msg, ok := frame.BackendError(); ok {
		h.fail(&BackendError{Message: msg})
		return frameDone
	}
	if delta := frame.Delta(); delta != "" {
		h.delta(delta)
		return frameDelta
	}
	return frameSkipped
}
