// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles holds the palette and the lipgloss styles of the chat TUI.

Colors are lipgloss AdaptiveColor values. NewTheme resolves the background
either from the terminal (mode "auto", via termenv) or from the configured
mode, and pins lipgloss to it so every adaptive color follows.

	theme := styles.NewTheme(cfg.UI.Theme)
	label := theme.AssistantLabel.Render("Code Expert")

GlamourStyle names the matching glamour standard style for markdown
rendering of assistant replies.
*/
package styles
