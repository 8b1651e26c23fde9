// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RedTheFoxx/OraLLMStudio/internal/controller"
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
	"github.com/RedTheFoxx/OraLLMStudio/internal/ui/styles"
	"github.com/RedTheFoxx/OraLLMStudio/internal/util"
)

const brand = "OraLLM Studio"

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	body := m.viewport.View()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), body)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderNotice(),
		m.theme.InputContainer.Width(max(m.width-2, 10)).Render(m.input.View()),
		m.renderStatusBar(),
	)
}

// =============================================================================
// HEADER AND SIDEBAR
// =============================================================================

func (m Model) renderHeader() string {
	parts := []string{m.theme.HeaderBrand.Render(brand)}
	if agent, ok := m.state.SelectedAgent(); ok {
		parts = append(parts, m.theme.HeaderAgent.Render(agent.Name))
	}
	if conv, ok := m.activeConversation(); ok {
		parts = append(parts, conv.Title)
	}
	line := util.TruncateWidth(strings.Join(parts, " | "), max(m.width-2, 1))
	return m.theme.Header.Width(m.width).Render(line)
}

func (m Model) renderSidebar() string {
	width := m.sidebarWidth()
	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render("Conversations"))
	sb.WriteString("\n")

	if len(m.state.Conversations) == 0 {
		sb.WriteString(m.theme.Muted.Render("(none)"))
	}
	for i, conv := range m.state.Conversations {
		marker := " "
		if m.ctrl.State(conv.ID) != controller.StateIdle {
			marker = m.theme.SidebarBusy.Render("*")
		}
		label := util.TruncateWidth(fmt.Sprintf("%d. %s", i+1, conv.Title), width-2)
		style := m.theme.SidebarItem
		if conv.ID == m.state.ActiveID {
			style = m.theme.SidebarItemActive
		}
		sb.WriteString(marker + " " + style.Render(label) + "\n")
	}

	return m.theme.Sidebar.
		Width(width).
		Height(m.viewport.Height).
		MaxHeight(m.viewport.Height).
		Render(strings.TrimRight(sb.String(), "\n"))
}

// =============================================================================
// CONVERSATION
// =============================================================================

func (m Model) renderConversation() string {
	conv, ok := m.activeConversation()
	if !ok {
		return m.renderEmptyState()
	}
	if conv.IsEmpty() {
		return m.renderWelcome()
	}

	agentName := "Assistant"
	if agent, ok := m.state.Agent(conv.AgentID); ok {
		agentName = agent.Name
	}
	busy := m.ctrl.State(conv.ID) != controller.StateIdle
	width := max(m.viewport.Width-2, 20)

	blocks := make([]string, 0, len(conv.Messages))
	for i, msg := range conv.Messages {
		last := i == len(conv.Messages)-1
		blocks = append(blocks, m.renderMessage(i+1, msg, agentName, busy && last, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(n int, msg model.Message, agentName string, pending bool, width int) string {
	t := m.theme
	var label string
	if msg.IsUser() {
		label = t.UserLabel.Render("You")
	} else {
		label = t.AssistantLabel.Render(agentName)
	}
	header := fmt.Sprintf("%s %s", label, t.Timestamp.Render(fmt.Sprintf("#%d %s", n, msg.CreatedAt.Format("15:04"))))
	if sym := msg.Vote.Symbol(); sym != "" {
		header += " " + t.Vote.Render(sym)
	}

	lines := []string{header}
	if msg.Attachment != nil {
		lines = append(lines, t.Attachment.Render(fmt.Sprintf("Attachment: %s (%s)", msg.Attachment.Name, formatSize(msg.Attachment.Size))))
	}

	switch {
	case msg.IsUser():
		if msg.Content != "" {
			lines = append(lines, t.UserText.Width(width).Render(msg.Content))
		}
	case msg.Content == "" && pending:
		lines = append(lines, t.Placeholder.Render("thinking..."))
	case msg.Content == "":
		lines = append(lines, t.Placeholder.Render("(no content)"))
	default:
		lines = append(lines, m.renderer.Render(msg.Content, width))
	}

	if msg.HasSources() {
		lines = append(lines, t.Muted.Render("Sources: "+strings.Join(msg.Sources, ", ")))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEmptyState() string {
	var sb strings.Builder
	if _, ok := m.state.SelectedAgent(); !ok {
		sb.WriteString("No agent selected. Pick one with /agent <n>:\n\n")
		sb.WriteString(m.agentList())
		return sb.String()
	}
	sb.WriteString("No conversation. Press C-n or type /new to start one.")
	return sb.String()
}

func (m Model) renderWelcome() string {
	agent, ok := m.state.SelectedAgent()
	if !ok {
		return m.renderEmptyState()
	}
	var sb strings.Builder
	sb.WriteString(m.theme.AssistantLabel.Render(agent.Name))
	sb.WriteString("\n")
	if agent.Description != "" {
		sb.WriteString(m.theme.Muted.Render(agent.Description))
		sb.WriteString("\n")
	}
	if len(agent.ExamplePrompts) > 0 {
		sb.WriteString("\nTry one of these (/example <n>):\n")
		for i, ex := range agent.ExamplePrompts {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, ex)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// =============================================================================
// NOTICE AND STATUS BAR
// =============================================================================

func (m Model) renderNotice() string {
	width := max(m.width, 1)
	switch {
	case m.confirm == confirmDeleteAll:
		return m.theme.Confirm.Render("Delete all conversations? (y/n)")
	case m.notice != nil:
		style, marker := m.theme.NoticeStyle(noticeLevelName(m.notice.Level))
		return style.Render(util.TruncateWidth(marker+" "+util.SingleLine(m.notice.Text), width))
	case m.pending != nil:
		return m.theme.Attachment.Render(util.TruncateWidth(
			fmt.Sprintf("Attached: %s (%s), /attach to remove", m.pending.Name, formatSize(m.pending.Size)), width))
	}
	return ""
}

func noticeLevelName(l controller.NoticeLevel) string {
	switch l {
	case controller.NoticeSuccess:
		return "success"
	case controller.NoticeWarning:
		return "warning"
	case controller.NoticeError:
		return "error"
	default:
		return "info"
	}
}

func (m Model) renderStatusBar() string {
	t := m.theme
	backend := m.state.Backend.String()
	mode := "buffered"
	switch {
	case m.ctrl.Simulated():
		mode = "simulated"
	case m.ctrl.Streaming():
		mode = "streaming"
	}

	left := []string{
		t.BackendStyle(backend).Render("backend: " + backend),
		fmt.Sprintf("%s  temp %.2f", mode, m.ctrl.Temperature()),
	}
	if m.spinning {
		left = append(left, m.spinner.View()+" replying")
	}

	var help []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		help = append(help, t.ShortcutKey.Render(h.Key)+" "+t.ShortcutDesc.Render(h.Desc))
	}

	leftStr := strings.Join(left, "  ")
	rightStr := strings.Join(help, "  ")
	gap := m.width - lipgloss.Width(leftStr) - lipgloss.Width(rightStr) - 2
	line := leftStr
	if gap > 0 {
		line += strings.Repeat(" ", gap) + rightStr
	}
	return t.StatusBar.Width(m.width).Render(" " + line)
}

// =============================================================================
// PANELS
// =============================================================================

func (m Model) renderPanel() string {
	t := m.theme
	content := t.PanelTitle.Render(m.panel.title) + "\n\n" + m.panel.body +
		"\n\n" + t.Muted.Render("Esc to close")
	return t.Panel.Width(max(m.viewport.Width-4, 20)).Render(content)
}

func (m Model) helpPanel() *panel {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, c := range commandSpecs {
		usage := "/" + c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(&sb, "  %s  %s\n", m.theme.ShortcutKey.Render(util.PadRight(usage, 34)), m.theme.Muted.Render(c.desc))
	}
	sb.WriteString("\nKeys:\n")
	for _, group := range m.keys.FullHelp() {
		for _, b := range group {
			h := b.Help()
			fmt.Fprintf(&sb, "  %s %s\n", m.theme.ShortcutKey.Render(h.Key), m.theme.Muted.Render(h.Desc))
		}
	}
	return &panel{title: "Help", body: strings.TrimRight(sb.String(), "\n")}
}

func (m Model) agentList() string {
	active := m.state.ActiveAgents()
	if len(active) == 0 {
		return m.theme.Muted.Render("No active agents. Add one with `orallm agents add`.")
	}
	var sb strings.Builder
	for i, a := range active {
		marker := " "
		if a.ID == m.state.SelectedAgentID {
			marker = styles.StatusIndicators.Active
		}
		fmt.Fprintf(&sb, "%s %d. %s\n", marker, i+1, m.theme.AssistantLabel.Render(a.Name))
		if a.Description != "" {
			fmt.Fprintf(&sb, "      %s\n", m.theme.Muted.Render(a.Description))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) agentsPanel() *panel {
	body := m.agentList() + "\n\nSelecting an agent discards the current conversations."
	return &panel{title: "Agents", body: body}
}

func (m Model) sourcesPanel() *panel {
	msgs := m.feedback.Sources()
	if len(msgs) == 0 {
		return &panel{title: "Sources", body: "No sources in this conversation."}
	}
	var sb strings.Builder
	for _, msg := range msgs {
		fmt.Fprintf(&sb, "%s\n", util.TruncateRunes(util.SingleLine(msg.Content), 60))
		for _, src := range msg.Sources {
			fmt.Fprintf(&sb, "  - %s\n", src)
		}
	}
	return &panel{title: "Sources", body: strings.TrimRight(sb.String(), "\n")}
}

func (m Model) feedbackPanel(convID string) *panel {
	history := m.feedback.History(convID)
	if len(history) == 0 {
		return &panel{title: "Feedback", body: "No feedback yet. Rate a reply with /vote up|down."}
	}
	var sb strings.Builder
	for _, f := range history {
		line := fmt.Sprintf("%s %s", f.SubmittedAt.Format("15:04:05"), f.Vote.Symbol())
		if f.VoterName != "" {
			line += " by " + f.VoterName
		}
		if f.Reason != "" {
			line += ": " + util.SingleLine(f.Reason)
		}
		sb.WriteString(line + "\n")
	}
	return &panel{title: "Feedback", body: strings.TrimRight(sb.String(), "\n")}
}
