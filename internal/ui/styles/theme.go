// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
type Theme struct {
	Mode         string
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderAgent lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar           lipgloss.Style
	SidebarTitle      lipgloss.Style
	SidebarItem       lipgloss.Style
	SidebarItemActive lipgloss.Style
	SidebarBusy       lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	Timestamp      lipgloss.Style
	Attachment     lipgloss.Style
	Vote           lipgloss.Style
	Placeholder    lipgloss.Style

	// ==========================================================================
	// NOTICES
	// ==========================================================================

	NoticeInfo    lipgloss.Style
	NoticeSuccess lipgloss.Style
	NoticeWarning lipgloss.Style
	NoticeError   lipgloss.Style

	// ==========================================================================
	// INPUT AND PANELS
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	Panel          lipgloss.Style
	PanelTitle     lipgloss.Style
	Confirm        lipgloss.Style

	// ==========================================================================
	// STATUS BAR
	// ==========================================================================

	StatusBar      lipgloss.Style
	StatusOnline   lipgloss.Style
	StatusOffline  lipgloss.Style
	StatusChecking lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style

	Muted   lipgloss.Style
	Spinner lipgloss.Style
}

// NewTheme creates a theme for mode. Unknown modes behave like "auto".
func NewTheme(mode string) *Theme {
	mode = strings.ToLower(strings.TrimSpace(mode))
	profile := termenv.ColorProfile()

	var isDark bool
	switch mode {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		mode = ModeAuto
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		Mode:         mode,
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// GlamourStyle returns the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// NoticeStyle returns the style and marker for a notice level name
// ("info", "success", "warning", "error").
func (t *Theme) NoticeStyle(level string) (lipgloss.Style, string) {
	switch level {
	case "success":
		return t.NoticeSuccess, StatusIndicators.Success
	case "warning":
		return t.NoticeWarning, StatusIndicators.Warning
	case "error":
		return t.NoticeError, StatusIndicators.Error
	default:
		return t.NoticeInfo, StatusIndicators.Info
	}
}

// BackendStyle returns the status bar style for a backend status name
// ("online", "offline", anything else is treated as checking).
func (t *Theme) BackendStyle(status string) lipgloss.Style {
	switch status {
	case "online":
		return t.StatusOnline
	case "offline":
		return t.StatusOffline
	default:
		return t.StatusChecking
	}
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextPrimary).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().Bold(true).Foreground(Orange)
	t.HeaderAgent = lipgloss.NewStyle().Foreground(Purple)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)
	t.SidebarTitle = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary)
	t.SidebarItem = lipgloss.NewStyle().Foreground(TextSecondary)
	t.SidebarItemActive = lipgloss.NewStyle().Bold(true).Foreground(Orange)
	t.SidebarBusy = lipgloss.NewStyle().Foreground(Amber)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.UserText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Attachment = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.Vote = lipgloss.NewStyle().Foreground(Emerald)
	t.Placeholder = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.NoticeInfo = lipgloss.NewStyle().Foreground(Blue)
	t.NoticeSuccess = lipgloss.NewStyle().Foreground(Emerald)
	t.NoticeWarning = lipgloss.NewStyle().Foreground(Amber)
	t.NoticeError = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Orange)
	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)
	t.PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.Confirm = lipgloss.NewStyle().Bold(true).Foreground(TextInverse).Background(Rose).Padding(0, 1)

	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Background(SurfaceDim)
	t.StatusOnline = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.StatusOffline = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.StatusChecking = lipgloss.NewStyle().Foreground(Amber)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().Foreground(Orange)
}
