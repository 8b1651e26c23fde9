// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedTheFoxx/OraLLMStudio/internal/agents"
	"github.com/RedTheFoxx/OraLLMStudio/internal/config"
	"github.com/RedTheFoxx/OraLLMStudio/internal/controller"
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
	"github.com/RedTheFoxx/OraLLMStudio/internal/session"
	"github.com/RedTheFoxx/OraLLMStudio/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

type harness struct {
	m       Model
	ctrl    *controller.Controller
	store   *session.Store
	copied  string
	exports string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := session.NewStore(agents.Defaults())
	_, err := store.SelectAgent("general")
	require.NoError(t, err)

	ctrl := controller.New(store,
		controller.WithSimulatedDelay(time.Millisecond),
		controller.WithLogger(zerolog.Nop()),
	)
	h := &harness{ctrl: ctrl, store: store, exports: t.TempDir()}
	m := New(context.Background(), Deps{
		Controller: ctrl,
		Theme:      styles.NewTheme("dark"),
		UI:         config.UIConfig{ShowSidebar: true, SidebarWidth: 24, ExportDir: h.exports},
		VoterName:  "Ana",
		Log:        zerolog.Nop(),
	})
	m.clipboardWrite = func(s string) error {
		h.copied = s
		return nil
	}
	h.m = m
	h.update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

// submit types text and presses Enter.
func (h *harness) submit(text string) tea.Cmd {
	h.m.input.SetValue(text)
	return h.update(tea.KeyMsg{Type: tea.KeyEnter})
}

func (h *harness) key(k tea.KeyMsg) tea.Cmd {
	return h.update(k)
}

func (h *harness) active(t *testing.T) model.Conversation {
	t.Helper()
	conv, ok := h.store.Snapshot().Active()
	require.True(t, ok)
	return conv
}

func (h *harness) addReply(t *testing.T, content string) model.Message {
	t.Helper()
	msg := model.NewAssistantPlaceholder()
	msg.Content = content
	require.NoError(t, h.store.AppendMessage(h.active(t).ID, msg))
	h.update(BridgeMsg{StateChanged: true})
	return msg
}

// collect runs cmd and any batched commands, returning the produced messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseCommand(t *testing.T) {
	c, ok := parseCommand("  /Rename  Go basics  ")
	require.True(t, ok)
	assert.Equal(t, "rename", c.name)
	assert.Equal(t, "Go basics", c.rest)
	assert.Equal(t, []string{"Go", "basics"}, c.args)

	c, ok = parseCommand("/vote down  missed the point entirely")
	require.True(t, ok)
	assert.Equal(t, "down", c.arg(0))
	assert.Equal(t, "missed the point entirely", c.after(1))
	assert.Equal(t, "", c.arg(5))

	c, ok = parseCommand("/new")
	require.True(t, ok)
	assert.Empty(t, c.args)
	assert.Equal(t, "", c.after(1))

	_, ok = parseCommand("hello /there")
	assert.False(t, ok)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func TestCommands_NewSwitchRename(t *testing.T) {
	h := newHarness(t)
	first := h.active(t)

	h.submit("/new")
	snap := h.store.Snapshot()
	require.Len(t, snap.Conversations, 2)
	assert.NotEqual(t, first.ID, snap.ActiveID)

	h.submit("/switch 2")
	assert.Equal(t, first.ID, h.store.Snapshot().ActiveID)

	h.submit("/rename Go basics")
	assert.Equal(t, "Go basics", h.active(t).Title)

	h.submit("/switch go")
	assert.Equal(t, first.ID, h.store.Snapshot().ActiveID)

	h.submit("/switch 9")
	require.NotNil(t, h.m.notice)
	assert.Contains(t, h.m.notice.Text, "no conversation matches")
}

func TestKeys_CycleConversations(t *testing.T) {
	h := newHarness(t)
	first := h.active(t)
	h.key(tea.KeyMsg{Type: tea.KeyCtrlN})
	second := h.active(t)
	require.NotEqual(t, first.ID, second.ID)

	h.key(tea.KeyMsg{Type: tea.KeyCtrlDown})
	assert.Equal(t, first.ID, h.active(t).ID)
	h.key(tea.KeyMsg{Type: tea.KeyCtrlDown})
	assert.Equal(t, second.ID, h.active(t).ID)
	h.key(tea.KeyMsg{Type: tea.KeyCtrlUp})
	assert.Equal(t, first.ID, h.active(t).ID)
}

func TestCommands_DeleteAllNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	h.submit("/new")

	h.submit("/delete-all")
	assert.Equal(t, confirmDeleteAll, h.m.confirm)
	assert.Contains(t, h.m.View(), "Delete all conversations? (y/n)")

	h.key(runes("n"))
	assert.Equal(t, confirmNone, h.m.confirm)
	assert.Len(t, h.store.Snapshot().Conversations, 2)

	h.submit("/delete-all")
	h.key(runes("y"))
	assert.Empty(t, h.store.Snapshot().Conversations)
	assert.Empty(t, h.store.Snapshot().ActiveID)
}

func TestCommands_DeleteOne(t *testing.T) {
	h := newHarness(t)
	first := h.active(t)
	h.submit("/new")

	h.submit("/delete")
	snap := h.store.Snapshot()
	require.Len(t, snap.Conversations, 1)
	assert.Equal(t, first.ID, snap.Conversations[0].ID)
}

// =============================================================================
// AGENTS AND EXAMPLES
// =============================================================================

func TestCommands_SelectAgent(t *testing.T) {
	h := newHarness(t)
	h.submit("/new")

	h.submit("/agent 2")
	snap := h.store.Snapshot()
	assert.Equal(t, "code", snap.SelectedAgentID)
	assert.Len(t, snap.Conversations, 1)
	assert.Contains(t, h.m.notice.Text, "Code Expert")

	h.submit("/agent data analyst")
	assert.Equal(t, "data", h.store.Snapshot().SelectedAgentID)

	h.submit("/agent nobody")
	assert.Equal(t, controller.NoticeError, h.m.notice.Level)
	assert.Equal(t, "data", h.store.Snapshot().SelectedAgentID)

	h.submit("/agents")
	require.NotNil(t, h.m.panel)
	assert.Contains(t, h.m.panel.body, "General Assistant")
}

func TestCommands_Examples(t *testing.T) {
	h := newHarness(t)
	examples := agents.Defaults()[0].ExamplePrompts

	h.submit("/examples")
	require.NotNil(t, h.m.panel)
	assert.Contains(t, h.m.panel.body, examples[0])

	h.submit("/example 1")
	assert.Equal(t, examples[0], h.m.input.Value())
	assert.Nil(t, h.m.panel)

	h.m.input.Reset()
	h.submit("/copy example 2")
	assert.Equal(t, examples[1], h.copied)

	h.submit("/example 7")
	assert.Contains(t, h.m.notice.Text, "between 1 and 3")
}

// =============================================================================
// MESSAGES
// =============================================================================

func TestSubmit_RunsTurn(t *testing.T) {
	h := newHarness(t)
	cmd := h.submit("hello")
	require.NotNil(t, cmd)
	assert.Empty(t, h.m.input.Value())

	for _, msg := range collect(cmd) {
		h.update(msg)
	}
	conv := h.active(t)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "hello", conv.Messages[0].Content)
	assert.True(t, conv.Messages[1].IsAssistant())
	assert.NotEmpty(t, conv.Messages[1].Content)
	assert.False(t, h.m.spinning)
}

func TestSubmit_EmptyInputDoesNothing(t *testing.T) {
	h := newHarness(t)
	assert.Nil(t, h.submit("   "))
	assert.True(t, h.active(t).IsEmpty())
}

func TestCommands_VoteAndSources(t *testing.T) {
	h := newHarness(t)

	h.submit("/vote up")
	assert.Contains(t, h.m.notice.Text, "no reply yet")

	reply := h.addReply(t, "Use a map.")
	h.submit("/vote up clear and short")
	conv := h.active(t)
	got, ok := conv.MessageByID(reply.ID)
	require.True(t, ok)
	assert.Equal(t, model.VoteUp, got.Vote)
	require.Len(t, conv.Feedback, 1)
	assert.Equal(t, "clear and short", conv.Feedback[0].Reason)
	assert.Equal(t, "Ana", conv.Feedback[0].VoterName)

	h.submit("/vote sideways")
	assert.Contains(t, h.m.notice.Text, "invalid vote")

	h.submit("/sources add docs/maps.md")
	h.submit("/sources add https://go.dev/blog/maps")
	got, _ = h.active(t).MessageByID(reply.ID)
	assert.Equal(t, []string{"docs/maps.md", "https://go.dev/blog/maps"}, got.Sources)

	h.submit("/sources")
	require.NotNil(t, h.m.panel)
	assert.Contains(t, h.m.panel.body, "docs/maps.md")

	h.submit("/feedback")
	assert.Contains(t, h.m.panel.body, "by Ana: clear and short")
}

func TestCopy(t *testing.T) {
	h := newHarness(t)
	h.key(tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Equal(t, controller.NoticeWarning, h.m.notice.Level)

	h.addReply(t, "first reply")
	h.key(tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Equal(t, "first reply", h.copied)

	h.submit("/copy 1")
	assert.Equal(t, "first reply", h.copied)

	h.submit("/copy 4")
	assert.Equal(t, controller.NoticeWarning, h.m.notice.Level)
}

func TestCommands_Attach(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# notes"), 0o644))

	h.submit("/attach " + path)
	require.NotNil(t, h.m.pending)
	assert.Equal(t, "notes.md", h.m.pending.Name)
	assert.EqualValues(t, 7, h.m.pending.Size)

	h.submit("/attach")
	assert.Nil(t, h.m.pending)

	h.submit("/attach " + filepath.Join(t.TempDir(), "missing.txt"))
	assert.Nil(t, h.m.pending)
	assert.Equal(t, controller.NoticeError, h.m.notice.Level)
}

func TestCommands_Export(t *testing.T) {
	h := newHarness(t)
	h.addReply(t, "exported reply")

	cmd := h.submit("/export json")
	var done *exportDoneMsg
	for _, msg := range collect(cmd) {
		if d, ok := msg.(exportDoneMsg); ok {
			done = &d
		}
	}
	require.NotNil(t, done)
	require.NoError(t, done.err)
	assert.Equal(t, h.exports, filepath.Dir(done.path))
	assert.FileExists(t, done.path)

	h.update(*done)
	assert.Equal(t, controller.NoticeSuccess, h.m.notice.Level)

	h.submit("/export pdf")
	assert.Contains(t, h.m.notice.Text, "unsupported")
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestCommands_TempAndStream(t *testing.T) {
	h := newHarness(t)

	h.submit("/temp 0.7")
	assert.InDelta(t, 0.7, h.ctrl.Temperature(), 1e-9)

	h.submit("/temp 3")
	assert.Equal(t, controller.NoticeError, h.m.notice.Level)
	assert.InDelta(t, 0.7, h.ctrl.Temperature(), 1e-9)

	h.submit("/stream off")
	assert.False(t, h.ctrl.Streaming())
	h.submit("/stream")
	assert.True(t, h.ctrl.Streaming())
}

func TestCommands_Unknown(t *testing.T) {
	h := newHarness(t)
	h.submit("/frobnicate")
	require.NotNil(t, h.m.notice)
	assert.Equal(t, controller.NoticeWarning, h.m.notice.Level)
	assert.Contains(t, h.m.notice.Text, "unknown command /frobnicate")
}

func TestCommands_Quit(t *testing.T) {
	h := newHarness(t)
	cmd := h.submit("/quit")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

// =============================================================================
// EVENTS AND VIEW
// =============================================================================

func TestEscClosesPanelThenNotice(t *testing.T) {
	h := newHarness(t)
	h.submit("/help")
	require.NotNil(t, h.m.panel)
	h.submit("/temp")
	require.NotNil(t, h.m.notice)

	h.key(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, h.m.panel)
	assert.NotNil(t, h.m.notice)

	h.key(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, h.m.notice)
}

func TestBridgeMsg_ShowsNotice(t *testing.T) {
	h := newHarness(t)
	h.update(BridgeMsg{Events: []controller.Event{
		controller.NoticeRaised{Notice: controller.Notice{Level: controller.NoticeError, Text: "Backend is offline."}},
	}})
	require.NotNil(t, h.m.notice)
	assert.Contains(t, h.m.View(), "Backend is offline.")
}

func TestHealthCheck(t *testing.T) {
	h := newHarness(t)
	msgs := collect(h.m.checkHealth())
	require.Len(t, msgs, 1)
	h.update(msgs[0])
	assert.Equal(t, session.BackendOnline, h.m.state.Backend)
	assert.Contains(t, h.m.View(), "backend: online")
}

func TestView(t *testing.T) {
	h := newHarness(t)
	h.addReply(t, "**bold** answer")

	view := h.m.View()
	assert.Contains(t, view, brand)
	assert.Contains(t, view, "General Assistant")
	assert.Contains(t, view, "Conversations")
	assert.Contains(t, view, "answer")

	h.key(tea.KeyMsg{Type: tea.KeyCtrlB})
	assert.NotContains(t, h.m.View(), "Conversations")
}

func TestBridge_CoalescesAndDelivers(t *testing.T) {
	b := NewBridge()
	b.Sink(controller.HealthChanged{Current: session.BackendOnline})
	b.StateChanged(nil)
	b.StateChanged(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan tea.Msg, 4)
	go b.Run(ctx, func(msg tea.Msg) { got <- msg })

	select {
	case msg := <-got:
		bm, ok := msg.(BridgeMsg)
		require.True(t, ok)
		assert.Len(t, bm.Events, 1)
		assert.True(t, bm.StateChanged)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not deliver")
	}

	_, pending := b.drain()
	assert.False(t, pending)
}
