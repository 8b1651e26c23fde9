// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the agents file, the config file,
// exports and the terminal views.
//
//	// Crash-safe write
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Fit a conversation title into a sidebar column
//	title := util.TruncateWidth(conv.Title, 24)
package util
