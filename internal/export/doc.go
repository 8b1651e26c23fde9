// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a single conversation to a file on demand.
//
// # Supported Formats
//
//   - Markdown: human-readable, with YAML frontmatter, votes, sources and
//     the feedback log
//   - JSON: the full conversation with its agent, for tooling
//
// # Usage
//
//	doc := export.Document{Conversation: conv, Agent: agent}
//	path, err := export.ExportConversation(doc, "md", export.DefaultOptions())
//
// Exports are explicit user actions; conversations are never persisted
// otherwise.
package export
