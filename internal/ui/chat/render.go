// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders assistant replies with glamour. The term renderer
// is rebuilt only when the wrap width changes.
type markdownRenderer struct {
	style string
	wrap  int
	width int
	r     *glamour.TermRenderer
}

func newMarkdownRenderer(style string, wrap int) *markdownRenderer {
	return &markdownRenderer{style: style, wrap: wrap}
}

// Render returns content as styled terminal text, or content unchanged when
// glamour fails.
func (mr *markdownRenderer) Render(content string, width int) string {
	if mr.wrap > 0 && mr.wrap < width {
		width = mr.wrap
	}
	width = max(width, 20)
	if mr.r == nil || mr.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(mr.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		mr.r, mr.width = r, width
	}
	out, err := mr.r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
