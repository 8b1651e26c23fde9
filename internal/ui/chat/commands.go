// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RedTheFoxx/OraLLMStudio/internal/controller"
	"github.com/RedTheFoxx/OraLLMStudio/internal/export"
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

// =============================================================================
// COMMAND PARSING
// =============================================================================

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

// command is a parsed slash command.
type command struct {
	name string
	args []string
	// rest is the raw text after the name.
	rest string
}

// arg returns the i-th argument or "".
func (c command) arg(i int) string {
	if i < len(c.args) {
		return c.args[i]
	}
	return ""
}

// after returns the raw text following the first n arguments.
func (c command) after(n int) string {
	s := c.rest
	for i := 0; i < n; i++ {
		s = strings.TrimSpace(s)
		if j := strings.IndexAny(s, " \t"); j >= 0 {
			s = s[j:]
		} else {
			return ""
		}
	}
	return strings.TrimSpace(s)
}

// parseCommand recognizes input starting with "/".
func parseCommand(input string) (command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return command{}, false
	}
	body := input[1:]
	name, rest, _ := strings.Cut(body, " ")
	rest = strings.TrimSpace(rest)
	return command{
		name: strings.ToLower(name),
		args: strings.Fields(rest),
		rest: rest,
	}, true
}

type commandSpec struct {
	name string
	args string
	desc string
}

var commandSpecs = []commandSpec{
	{"new", "", "start a new conversation"},
	{"switch", "<n|title>", "switch to a conversation"},
	{"rename", "<title>", "rename the active conversation"},
	{"delete", "[n]", "delete the active or the n-th conversation"},
	{"delete-all", "", "delete every conversation"},
	{"agent", "[n|name]", "select an agent (resets conversations)"},
	{"agents", "", "list available agents"},
	{"examples", "", "list example prompts of the agent"},
	{"example", "<n>", "put an example prompt into the input"},
	{"copy", "[n | example <n>]", "copy a message or example prompt"},
	{"vote", "<up|down> [reason]", "rate the last reply"},
	{"sources", "[add <source>]", "list sources or add one to the last reply"},
	{"feedback", "", "show the feedback of this conversation"},
	{"attach", "[path]", "attach a file to the next message (no path clears)"},
	{"export", "[markdown|json]", "export the active conversation"},
	{"temp", "[value]", "show or set the temperature"},
	{"stream", "[on|off]", "toggle streaming replies"},
	{"health", "", "check the backend now"},
	{"help", "", "show commands and keys"},
	{"quit", "", "exit"},
}

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

func (m Model) runCommand(c command) (tea.Model, tea.Cmd) {
	var (
		cmd tea.Cmd
		err error
	)
	switch c.name {
	case "new":
		m.ctrl.NewConversation()
	case "switch":
		err = m.cmdSwitch(c)
	case "rename":
		err = m.cmdRename(c)
	case "delete":
		err = m.cmdDelete(c)
	case "delete-all":
		m.cmdDeleteAll()
	case "agent":
		err = m.cmdAgent(c)
	case "agents":
		m.setPanel(m.agentsPanel())
	case "examples":
		err = m.cmdExamples()
	case "example":
		err = m.cmdExample(c)
	case "copy":
		err = m.cmdCopy(c)
	case "vote":
		err = m.cmdVote(c)
	case "sources":
		err = m.cmdSources(c)
	case "feedback":
		err = m.cmdFeedback()
	case "attach":
		err = m.cmdAttach(c)
	case "export":
		cmd, err = m.cmdExport(c)
	case "temp":
		err = m.cmdTemp(c)
	case "stream":
		err = m.cmdStream(c)
	case "health":
		ctrl, ctx := m.ctrl, m.ctx
		cmd = func() tea.Msg {
			return healthCheckedMsg{status: ctrl.RefreshHealth(ctx), manual: true}
		}
	case "help":
		m.setPanel(m.helpPanel())
	case "quit", "exit":
		return m, tea.Quit
	default:
		err = fmt.Errorf("%w: unknown command /%s, try /help", errUsage, c.name)
	}
	if err != nil {
		m.setNoticeErr(err)
	}
	refresh := m.refresh()
	return m, tea.Batch(cmd, refresh)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// conversationIndex resolves a 1-based index or a case-insensitive title
// prefix.
func (m *Model) conversationIndex(ref string) (int, bool) {
	convs := m.state.Conversations
	if n, err := strconv.Atoi(ref); err == nil {
		return n - 1, n >= 1 && n <= len(convs)
	}
	ref = strings.ToLower(ref)
	for i, c := range convs {
		if strings.HasPrefix(strings.ToLower(c.Title), ref) {
			return i, true
		}
	}
	return -1, false
}

func (m *Model) cmdSwitch(c command) error {
	if c.rest == "" {
		return usage("/switch <n|title>")
	}
	i, ok := m.conversationIndex(c.rest)
	if !ok {
		return fmt.Errorf("no conversation matches %q", c.rest)
	}
	return m.ctrl.SetActive(m.state.Conversations[i].ID)
}

func (m *Model) cmdRename(c command) error {
	if c.rest == "" {
		return usage("/rename <title>")
	}
	conv, ok := m.activeConversation()
	if !ok {
		return controller.ErrNoActiveConversation
	}
	if err := m.ctrl.Rename(conv.ID, c.rest); err != nil {
		return err
	}
	m.setNotice(controller.NoticeSuccess, "Conversation renamed.")
	return nil
}

func (m *Model) cmdDelete(c command) error {
	var id string
	if ref := c.rest; ref != "" {
		i, ok := m.conversationIndex(ref)
		if !ok {
			return fmt.Errorf("no conversation matches %q", ref)
		}
		id = m.state.Conversations[i].ID
	} else {
		conv, ok := m.activeConversation()
		if !ok {
			return controller.ErrNoActiveConversation
		}
		id = conv.ID
	}
	return m.ctrl.DeleteConversation(id)
}

func (m *Model) cmdDeleteAll() {
	if len(m.state.Conversations) == 0 {
		m.setNotice(controller.NoticeInfo, "No conversations to delete.")
		return
	}
	m.confirm = confirmDeleteAll
}

// =============================================================================
// AGENTS
// =============================================================================

// findAgent resolves an ID, a case-insensitive name or a 1-based index into
// the selectable agents.
func (m *Model) findAgent(ref string) (model.Agent, bool) {
	active := m.state.ActiveAgents()
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(active) {
			return active[n-1], true
		}
		return model.Agent{}, false
	}
	for _, a := range active {
		if a.ID == ref || strings.EqualFold(a.Name, ref) {
			return a, true
		}
	}
	return model.Agent{}, false
}

func (m *Model) cmdAgent(c command) error {
	if c.rest == "" {
		m.setPanel(m.agentsPanel())
		return nil
	}
	agent, ok := m.findAgent(c.rest)
	if !ok {
		return fmt.Errorf("no active agent matches %q, see /agents", c.rest)
	}
	if _, err := m.ctrl.SelectAgent(agent.ID); err != nil {
		return err
	}
	m.setPanel(nil)
	m.setNotice(controller.NoticeSuccess, "Now chatting with "+agent.Name+".")
	return nil
}

func (m *Model) selectedExamples() ([]string, error) {
	agent, ok := m.state.SelectedAgent()
	if !ok {
		return nil, controller.ErrNoAgentSelected
	}
	if len(agent.ExamplePrompts) == 0 {
		return nil, fmt.Errorf("%s has no example prompts", agent.Name)
	}
	return agent.ExamplePrompts, nil
}

func (m *Model) exampleAt(ref string) (string, error) {
	examples, err := m.selectedExamples()
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(ref)
	if err != nil || n < 1 || n > len(examples) {
		return "", fmt.Errorf("example must be between 1 and %d", len(examples))
	}
	return examples[n-1], nil
}

func (m *Model) cmdExamples() error {
	examples, err := m.selectedExamples()
	if err != nil {
		return err
	}
	var sb strings.Builder
	for i, ex := range examples {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, ex)
	}
	sb.WriteString("\nUse /example <n> to edit one, /copy example <n> to copy it.")
	m.setPanel(&panel{title: "Example prompts", body: sb.String()})
	return nil
}

func (m *Model) cmdExample(c command) error {
	if len(c.args) != 1 {
		return usage("/example <n>")
	}
	text, err := m.exampleAt(c.arg(0))
	if err != nil {
		return err
	}
	m.input.SetValue(text)
	m.input.CursorEnd()
	m.setPanel(nil)
	return nil
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m *Model) cmdCopy(c command) error {
	switch {
	case len(c.args) == 0:
		m.copyLastReply()
		return nil
	case c.arg(0) == "example":
		text, err := m.exampleAt(c.arg(1))
		if err != nil {
			return err
		}
		m.copyText(text, "Example prompt copied to clipboard.")
		return nil
	}

	conv, ok := m.activeConversation()
	if !ok {
		return controller.ErrNoActiveConversation
	}
	n, err := strconv.Atoi(c.arg(0))
	if err != nil || n < 1 || n > len(conv.Messages) {
		return usage("/copy [n | example <n>]")
	}
	m.copyText(conv.Messages[n-1].Content, fmt.Sprintf("Message %d copied to clipboard.", n))
	return nil
}

// lastReply returns the newest assistant message with content.
func (m *Model) lastReply() (model.Message, error) {
	conv, ok := m.activeConversation()
	if !ok {
		return model.Message{}, controller.ErrNoActiveConversation
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if msg := conv.Messages[i]; msg.IsAssistant() && msg.Content != "" {
			return msg, nil
		}
	}
	return model.Message{}, errors.New("no reply yet")
}

func (m *Model) cmdVote(c command) error {
	if len(c.args) == 0 {
		return usage("/vote <up|down> [reason]")
	}
	vote, err := model.ParseVote(strings.ToLower(c.arg(0)))
	if err != nil {
		return err
	}
	reply, err := m.lastReply()
	if err != nil {
		return err
	}
	if err := m.feedback.SubmitVote(reply.ID, vote, c.after(1), m.voterName); err != nil {
		return err
	}
	m.setNotice(controller.NoticeSuccess, "Thanks for the feedback.")
	return nil
}

func (m *Model) cmdSources(c command) error {
	if len(c.args) == 0 {
		m.setPanel(m.sourcesPanel())
		return nil
	}
	src := c.after(1)
	if c.arg(0) != "add" || src == "" {
		return usage("/sources [add <source>]")
	}
	reply, err := m.lastReply()
	if err != nil {
		return err
	}
	sources := append(append([]string(nil), reply.Sources...), src)
	if !m.feedback.AttachSources(reply.ID, sources) {
		return errors.New("reply is no longer available")
	}
	m.setNotice(controller.NoticeSuccess, "Source added.")
	return nil
}

func (m *Model) cmdFeedback() error {
	conv, ok := m.activeConversation()
	if !ok {
		return controller.ErrNoActiveConversation
	}
	m.setPanel(m.feedbackPanel(conv.ID))
	return nil
}

func (m *Model) cmdAttach(c command) error {
	if c.rest == "" {
		if m.pending != nil {
			m.pending = nil
			m.setNotice(controller.NoticeInfo, "Attachment removed.")
		}
		return nil
	}
	att, err := LoadAttachment(c.rest)
	if err != nil {
		return err
	}
	m.pending = att
	m.setNotice(controller.NoticeInfo, fmt.Sprintf("Attached %s (%s).", att.Name, formatSize(att.Size)))
	return nil
}

func (m *Model) cmdExport(c command) (tea.Cmd, error) {
	conv, ok := m.activeConversation()
	if !ok {
		return nil, controller.ErrNoActiveConversation
	}
	format := c.arg(0)
	if _, err := export.ForFormat(format, nil); err != nil {
		return nil, err
	}
	agent, _ := m.state.Agent(conv.AgentID)
	doc := export.Document{Conversation: conv.Clone(), Agent: agent}
	opts := export.DefaultOptions()
	if m.ui.ExportDir != "" {
		opts.OutputDir = m.ui.ExportDir
	}

	m.setNotice(controller.NoticeInfo, "Exporting conversation...")
	return func() tea.Msg {
		path, err := export.ExportConversation(doc, format, opts)
		return exportDoneMsg{path: path, err: err}
	}, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Model) cmdTemp(c command) error {
	if len(c.args) == 0 {
		m.setNotice(controller.NoticeInfo, fmt.Sprintf("Temperature is %.2f.", m.ctrl.Temperature()))
		return nil
	}
	t, err := strconv.ParseFloat(c.arg(0), 64)
	if err != nil {
		return usage("/temp <0..1>")
	}
	if err := m.ctrl.SetTemperature(t); err != nil {
		return err
	}
	m.setNotice(controller.NoticeSuccess, fmt.Sprintf("Temperature set to %.2f.", t))
	return nil
}

func (m *Model) cmdStream(c command) error {
	on := !m.ctrl.Streaming()
	switch strings.ToLower(c.arg(0)) {
	case "":
	case "on", "true", "1":
		on = true
	case "off", "false", "0":
		on = false
	default:
		return usage("/stream [on|off]")
	}
	m.ctrl.SetStreaming(on)
	state := "off"
	if on {
		state = "on"
	}
	m.setNotice(controller.NoticeInfo, "Streaming "+state+".")
	return nil
}
