// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea front-end of the chat session controller.
//
// The model never mutates session state itself. Input is turned into
// controller calls, and the screen is redrawn from store snapshots. Controller
// events and store changes reach the program through a Bridge, which queues
// them so that producers (including Update itself) never block on the
// program loop.
package chat
