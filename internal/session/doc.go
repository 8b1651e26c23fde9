// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the in-memory chat state: the conversation list, the
// active conversation, the agents and the last known backend health.
//
// # State Replacement
//
// Store never edits published state. Every mutation copies the current
// *State, applies the change to the copy and swaps it in, so a *State
// returned by Snapshot can be read freely without locks and never changes.
//
// # Usage
//
//	store := session.NewStore(agents.Defaults())
//	conv, err := store.SelectAgent("1")
//	store.AppendMessage(conv.ID, model.NewUserMessage("Hello", nil))
//
//	snap := store.Snapshot()
//	active, ok := snap.Active()
package session
