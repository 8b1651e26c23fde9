// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI on the alternate screen and blocks until it exits.
// bridge must be the sink the controller was built with. Leaving the TUI
// cancels every turn still running.
func Run(ctx context.Context, deps Deps, bridge *Bridge) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, deps)
	unsubscribe := m.store.Subscribe(bridge.StateChanged)
	defer unsubscribe()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	go bridge.Run(ctx, p.Send)

	_, err := p.Run()
	return err
}
