// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RedTheFoxx/OraLLMStudio/internal/controller"
	"github.com/RedTheFoxx/OraLLMStudio/internal/session"
)

// Bridge forwards controller events and store changes into a Bubble Tea
// program. Sink and StateChanged never block, so they are safe to call from
// the program's own Update.
type Bridge struct {
	mu     sync.Mutex
	events []controller.Event
	dirty  bool
	wake   chan struct{}
}

// NewBridge creates an idle bridge. Events queue until Run is started.
func NewBridge() *Bridge {
	return &Bridge{wake: make(chan struct{}, 1)}
}

// Sink is a controller.EventSink.
func (b *Bridge) Sink(ev controller.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	b.signal()
}

// StateChanged is a session.Store subscriber. Changes are coalesced.
func (b *Bridge) StateChanged(*session.State) {
	b.mu.Lock()
	b.dirty = true
	b.mu.Unlock()
	b.signal()
}

func (b *Bridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// drain takes everything queued since the last call.
func (b *Bridge) drain() (BridgeMsg, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 && !b.dirty {
		return BridgeMsg{}, false
	}
	msg := BridgeMsg{Events: b.events, StateChanged: b.dirty}
	b.events = nil
	b.dirty = false
	return msg, true
}

// Run delivers queued items through send until ctx is done. Pass
// (*tea.Program).Send.
func (b *Bridge) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.wake:
			if msg, ok := b.drain(); ok {
				send(msg)
			}
		}
	}
}
