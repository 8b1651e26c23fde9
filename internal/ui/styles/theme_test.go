// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTheme_ExplicitModes(t *testing.T) {
	dark := NewTheme("dark")
	assert.True(t, dark.IsDark)
	assert.Equal(t, ModeDark, dark.Mode)
	assert.Equal(t, "dark", dark.GlamourStyle())

	light := NewTheme(" LIGHT ")
	assert.False(t, light.IsDark)
	assert.Equal(t, ModeLight, light.Mode)
	assert.Equal(t, "light", light.GlamourStyle())
}

func TestNewTheme_UnknownModeIsAuto(t *testing.T) {
	theme := NewTheme("solarized")
	assert.Equal(t, ModeAuto, theme.Mode)
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewTheme("dark")
	for name, render := range map[string]func(...string) string{
		"Header":         theme.Header.Render,
		"SidebarItem":    theme.SidebarItem.Render,
		"UserLabel":      theme.UserLabel.Render,
		"AssistantLabel": theme.AssistantLabel.Render,
		"InputContainer": theme.InputContainer.Render,
		"StatusBar":      theme.StatusBar.Render,
		"Panel":          theme.Panel.Render,
	} {
		assert.Contains(t, render("text"), "text", name)
	}
}

func TestNoticeStyle(t *testing.T) {
	theme := NewTheme("dark")
	tests := []struct {
		level  string
		marker string
	}{
		{"info", StatusIndicators.Info},
		{"success", StatusIndicators.Success},
		{"warning", StatusIndicators.Warning},
		{"error", StatusIndicators.Error},
		{"bogus", StatusIndicators.Info},
	}
	for _, tt := range tests {
		_, marker := theme.NoticeStyle(tt.level)
		assert.Equal(t, tt.marker, marker, tt.level)
	}
}
