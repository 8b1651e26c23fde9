// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/RedTheFoxx/OraLLMStudio/internal/controller"
	"github.com/RedTheFoxx/OraLLMStudio/internal/session"
)

// BridgeMsg delivers queued controller events and reports whether the store
// changed since the previous delivery.
type BridgeMsg struct {
	Events       []controller.Event
	StateChanged bool
}

// sendDoneMsg reports the end of a turn started from the input.
type sendDoneMsg struct {
	err error
}

// healthCheckedMsg carries the result of a health probe.
type healthCheckedMsg struct {
	status session.BackendStatus
	// manual probes (/health) do not schedule the next tick.
	manual bool
}

// healthTickMsg schedules the next periodic probe.
type healthTickMsg struct{}

// exportDoneMsg reports an export started with /export.
type exportDoneMsg struct {
	path string
	err  error
}
