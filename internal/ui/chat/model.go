// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/RedTheFoxx/OraLLMStudio/internal/config"
	"github.com/RedTheFoxx/OraLLMStudio/internal/controller"
	"github.com/RedTheFoxx/OraLLMStudio/internal/feedback"
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
	"github.com/RedTheFoxx/OraLLMStudio/internal/session"
	"github.com/RedTheFoxx/OraLLMStudio/internal/ui/styles"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	defaultSidebarWidth = 28
	minSidebarWidth     = 16
	// Below this width the sidebar is hidden regardless of the setting.
	narrowWidth = 70

	inputCharLimit = 4096
)

// confirmAction is an action awaiting a y/n answer.
type confirmAction int

const (
	confirmNone confirmAction = iota
	confirmDeleteAll
)

// panel is an informational overlay shown in place of the conversation.
type panel struct {
	title string
	body  string
}

// =============================================================================
// MODEL
// =============================================================================

// Deps are the collaborators of the chat model.
type Deps struct {
	Controller *controller.Controller
	Feedback   *feedback.Recorder
	Theme      *styles.Theme
	UI         config.UIConfig
	// VoterName is recorded with votes.
	VoterName string
	// HealthInterval is the probe period; zero probes only at startup.
	HealthInterval time.Duration
	Log            zerolog.Logger
}

// Model is the chat screen.
type Model struct {
	ctx      context.Context
	ctrl     *controller.Controller
	store    *session.Store
	feedback *feedback.Recorder
	theme    *styles.Theme
	keys     KeyMap
	log      zerolog.Logger

	ui             config.UIConfig
	voterName      string
	healthInterval time.Duration

	// Latest store snapshot; the screen is always drawn from it.
	state *session.State

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	spinning bool

	width       int
	height      int
	ready       bool
	showSidebar bool

	notice  *controller.Notice
	panel   *panel
	confirm confirmAction
	pending *model.Attachment

	renderer *markdownRenderer

	// clipboardWrite is swapped in tests.
	clipboardWrite func(string) error
}

// New creates the chat model. ctx bounds every turn started from the UI.
func New(ctx context.Context, deps Deps) Model {
	theme := deps.Theme
	if theme == nil {
		theme = styles.NewTheme(deps.UI.Theme)
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.Placeholder = "Type a message or /help..."
	ti.CharLimit = inputCharLimit
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	m := Model{
		ctx:            ctx,
		ctrl:           deps.Controller,
		store:          deps.Controller.Store(),
		feedback:       deps.Feedback,
		theme:          theme,
		keys:           DefaultKeyMap(),
		log:            deps.Log,
		ui:             deps.UI,
		voterName:      deps.VoterName,
		healthInterval: deps.HealthInterval,
		viewport:       vp,
		input:          ti,
		spinner:        sp,
		showSidebar:    deps.UI.ShowSidebar,
		renderer:       newMarkdownRenderer(theme.GlamourStyle(), deps.UI.WordWrap),
		clipboardWrite: clipboard.WriteAll,
	}
	if m.feedback == nil {
		m.feedback = feedback.NewRecorder(m.store, deps.Log)
	}
	m.state = m.store.Snapshot()
	return m
}

// Init starts the cursor blink and the first health probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.checkHealth())
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) checkHealth() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return healthCheckedMsg{status: ctrl.RefreshHealth(ctx)}
	}
}

func (m Model) scheduleHealth() tea.Cmd {
	if m.healthInterval <= 0 {
		return nil
	}
	return tea.Tick(m.healthInterval, func(time.Time) tea.Msg {
		return healthTickMsg{}
	})
}

func (m Model) send(req controller.SendRequest) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return sendDoneMsg{err: ctrl.Send(ctx, req)}
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

func (m Model) activeConversation() (model.Conversation, bool) {
	return m.state.Active()
}

func (m Model) sidebarVisible() bool {
	return m.showSidebar && m.width >= narrowWidth
}

func (m Model) sidebarWidth() int {
	w := m.ui.SidebarWidth
	if w <= 0 {
		w = defaultSidebarWidth
	}
	return max(w, minSidebarWidth)
}
