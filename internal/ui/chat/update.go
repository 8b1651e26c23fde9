// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/RedTheFoxx/OraLLMStudio/internal/controller"
)

// chromeHeight is the number of rows used by header, notice line, input box
// and status bar.
const chromeHeight = 6

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case BridgeMsg:
		return m.handleBridge(msg)

	case sendDoneMsg:
		if msg.err != nil && !controller.IsGuardError(msg.err) {
			m.log.Debug().Err(msg.err).Msg("turn ended with error")
		}
		return m.refreshed()

	case healthCheckedMsg:
		cmd := m.refresh()
		if msg.manual {
			m.setNotice(controller.NoticeInfo, fmt.Sprintf("Backend is %s.", msg.status))
			return m, cmd
		}
		return m, tea.Batch(cmd, m.scheduleHealth())

	case healthTickMsg:
		return m, m.checkHealth()

	case exportDoneMsg:
		if msg.err != nil {
			m.setNotice(controller.NoticeError, "Export failed: "+msg.err.Error())
		} else {
			m.setNotice(controller.NoticeSuccess, "Exported to "+msg.path)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.spinning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.ready = true
	m.layout()
	m.updateViewport()
	return m, nil
}

func (m Model) handleBridge(msg BridgeMsg) (tea.Model, tea.Cmd) {
	for _, ev := range msg.Events {
		switch ev := ev.(type) {
		case controller.NoticeRaised:
			n := ev.Notice
			m.notice = &n
		case controller.TurnStarted:
			if ev.ConversationID == m.state.ActiveID {
				m.viewport.GotoBottom()
			}
		}
	}
	return m.refreshed()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != confirmNone {
		return m.handleConfirm(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.handleCancel()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.NewConversation):
		m.ctrl.NewConversation()
		return m.refreshed()

	case key.Matches(msg, m.keys.NextConversation):
		m.cycleConversation(1)
		return m.refreshed()

	case key.Matches(msg, m.keys.PrevConversation):
		m.cycleConversation(-1)
		return m.refreshed()

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		m.layout()
		m.updateViewport()
		return m, nil

	case key.Matches(msg, m.keys.CopyLast):
		m.copyLastReply()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.setPanel(m.helpPanel())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.confirm
	m.confirm = confirmNone
	if strings.EqualFold(msg.String(), "y") && action == confirmDeleteAll {
		n := m.ctrl.DeleteAll()
		if n == 0 {
			m.setNotice(controller.NoticeInfo, "No conversations to delete.")
		}
		return m.refreshed()
	}
	m.setNotice(controller.NoticeInfo, "Cancelled.")
	return m, nil
}

// handleCancel closes the innermost thing: a panel, then the active turn,
// then the notice.
func (m *Model) handleCancel() {
	if m.panel != nil {
		m.setPanel(nil)
		return
	}
	if conv, ok := m.activeConversation(); ok && m.ctrl.Cancel(conv.ID) {
		return
	}
	m.notice = nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if c, ok := parseCommand(text); ok {
		m.input.Reset()
		return m.runCommand(c)
	}
	if text == "" && m.pending == nil {
		return m, nil
	}
	if conv, ok := m.activeConversation(); ok && m.ctrl.State(conv.ID) != controller.StateIdle {
		// Keep the draft; the controller would reject it.
		m.setNotice(controller.NoticeWarning, "Please wait for the current reply to finish.")
		return m, nil
	}

	req := controller.SendRequest{Text: text, Attachment: m.pending}
	m.input.Reset()
	m.pending = nil
	m.notice = nil
	m.setPanel(nil)
	return m, m.send(req)
}

func (m *Model) cycleConversation(delta int) {
	convs := m.state.Conversations
	if len(convs) < 2 {
		return
	}
	idx := 0
	for i, c := range convs {
		if c.ID == m.state.ActiveID {
			idx = i
		}
	}
	next := ((idx+delta)%len(convs) + len(convs)) % len(convs)
	if err := m.ctrl.SetActive(convs[next].ID); err != nil {
		m.setNotice(controller.NoticeWarning, err.Error())
	}
}

func (m *Model) copyLastReply() {
	conv, ok := m.activeConversation()
	if !ok {
		m.setNotice(controller.NoticeWarning, "No active conversation.")
		return
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		msg := conv.Messages[i]
		if msg.IsAssistant() && msg.Content != "" {
			m.copyText(msg.Content, "Reply copied to clipboard.")
			return
		}
	}
	m.setNotice(controller.NoticeWarning, "No reply to copy yet.")
}

func (m *Model) copyText(text, done string) {
	if err := m.clipboardWrite(text); err != nil {
		m.setNotice(controller.NoticeError, "Clipboard unavailable: "+err.Error())
		return
	}
	m.setNotice(controller.NoticeSuccess, done)
}

// =============================================================================
// STATE SYNC
// =============================================================================

// refresh reloads the snapshot, redraws the conversation and starts the
// spinner when a turn is running.
func (m *Model) refresh() tea.Cmd {
	m.state = m.store.Snapshot()
	m.updateViewport()

	busy := m.ctrl.InFlight()
	switch {
	case busy && !m.spinning:
		m.spinning = true
		return m.spinner.Tick
	case !busy:
		m.spinning = false
	}
	return nil
}

// refreshed is refresh for handlers returning the model.
func (m Model) refreshed() (tea.Model, tea.Cmd) {
	cmd := m.refresh()
	return m, cmd
}

func (m *Model) setNotice(level controller.NoticeLevel, text string) {
	m.notice = &controller.Notice{Level: level, Text: text}
}

func (m *Model) setNoticeErr(err error) {
	var level controller.NoticeLevel = controller.NoticeWarning
	if !errors.Is(err, errUsage) {
		level = controller.NoticeError
	}
	m.notice = &controller.Notice{Level: level, Text: err.Error(), Err: err}
}

func (m *Model) setPanel(p *panel) {
	m.panel = p
	m.updateViewport()
	if p == nil {
		m.viewport.GotoBottom()
	} else {
		m.viewport.GotoTop()
	}
}

func (m *Model) layout() {
	m.viewport.Width = m.mainWidth()
	m.viewport.Height = max(m.height-chromeHeight, 3)
	// Border, padding and the "> " prompt.
	m.input.Width = max(m.width-7, 10)
}

func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	if m.panel != nil {
		m.viewport.SetContent(m.renderPanel())
		return
	}
	follow := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) mainWidth() int {
	if !m.sidebarVisible() {
		return m.width
	}
	// Sidebar border and padding.
	return max(m.width-m.sidebarWidth()-2, 20)
}
