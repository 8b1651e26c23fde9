// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller orchestrates chat turns between the session store and
// the backend.
//
// A turn moves through Idle, AwaitingFirstByte, Streaming and Settled. Send
// appends the user message and an empty assistant placeholder, then fills the
// placeholder from one of three sources:
//
//   - a live stream decoded by package stream, one delta at a time
//   - a buffered reply that replaces the placeholder content at once
//   - a simulated reply typed out locally when no backend is configured
//
// Every delta re-resolves the target conversation by ID in the current store
// snapshot and is dropped if the conversation is gone. Failures never abort
// the process; they settle the turn, keep any partial content and raise a
// notice through the EventSink.
//
// A turn keeps running when the user switches to another conversation and
// lands in the conversation it was started on. Deleting that conversation, or
// discarding it by selecting another agent, cancels the turn.
package controller
