// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedTheFoxx/OraLLMStudio/internal/config"
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

// scriptedInput replays lines, then reports EOF.
type scriptedInput struct {
	lines   []string
	history []string
}

func (s *scriptedInput) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedInput) AppendHistory(line string) {
	s.history = append(s.history, line)
}

type replHarness struct {
	repl    *REPL
	app     *App
	in      *scriptedInput
	out     *bytes.Buffer
	copied  string
	exports string
}

func newREPLHarness(t *testing.T, lines ...string) *replHarness {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Backend.URL = ""
	cfg.Chat.SimulatedDelayMs = 1
	cfg.Chat.VoterName = "Ana"
	cfg.Agents.File = filepath.Join(dir, "agents.yaml")
	cfg.Agents.Watch = false
	cfg.Logging.File = filepath.Join(dir, "orallm.log")
	cfg.UI.ExportDir = filepath.Join(dir, "exports")

	h := &replHarness{in: &scriptedInput{lines: lines}, out: &bytes.Buffer{}, exports: cfg.UI.ExportDir}
	h.repl = NewREPL(h.in, h.out)
	h.repl.clipboardWrite = func(s string) error {
		h.copied = s
		return nil
	}

	app, err := NewApp(context.Background(), cfg, Args{}, h.repl.OnEvent)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	h.repl.app = app
	h.app = app
	return h
}

func (h *replHarness) run(t *testing.T) string {
	t.Helper()
	require.NoError(t, h.repl.Run(context.Background()))
	return h.out.String()
}

func (h *replHarness) active(t *testing.T) model.Conversation {
	t.Helper()
	conv, ok := h.app.Store.Snapshot().Active()
	require.True(t, ok)
	return conv
}

func TestREPL_WelcomeAndEOF(t *testing.T) {
	h := newREPLHarness(t)

	out := h.run(t)
	assert.Contains(t, out, "simulated replies")
	assert.Contains(t, out, "Chatting with General Assistant")
}

func TestREPL_SendStreamsReply(t *testing.T) {
	h := newREPLHarness(t, "hello there", "/quit")

	out := h.run(t)
	assert.Contains(t, out, "General Assistant> As a helpful assistant")
	assert.Equal(t, []string{"hello there", "/quit"}, h.in.history)

	conv := h.active(t)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "hello there", conv.Messages[0].Content)
	assert.Contains(t, conv.Messages[1].Content, "As a helpful assistant")
}

func TestREPL_VoteAndCopy(t *testing.T) {
	h := newREPLHarness(t, "hi", "/vote up very clear", "/copy")

	out := h.run(t)
	assert.Contains(t, out, "Thanks for the feedback.")
	assert.Contains(t, out, "Copied to clipboard.")

	conv := h.active(t)
	require.Len(t, conv.Feedback, 1)
	assert.Equal(t, model.VoteUp, conv.Feedback[0].Vote)
	assert.Equal(t, "very clear", conv.Feedback[0].Reason)
	assert.Equal(t, "Ana", conv.Feedback[0].VoterName)
	assert.Equal(t, conv.Messages[1].Content, h.copied)
}

func TestREPL_VoteWithoutReply(t *testing.T) {
	h := newREPLHarness(t, "/vote up", "/vote sideways")

	out := h.run(t)
	assert.Contains(t, out, "no reply yet")
	assert.Contains(t, out, `invalid vote "sideways"`)
}

func TestREPL_Conversations(t *testing.T) {
	h := newREPLHarness(t, "/new", "/rename Go basics", "/list", "/switch 2", "/delete 1", "/list")

	out := h.run(t)
	assert.Contains(t, out, "* 1. Go basics (0 messages)")

	convs := h.app.Store.Snapshot().Conversations
	require.Len(t, convs, 1)
	assert.NotEqual(t, "Go basics", convs[0].Title)
}

func TestREPL_DeleteAllConfirm(t *testing.T) {
	h := newREPLHarness(t, "/new", "/delete-all", "n", "/delete-all", "y")

	out := h.run(t)
	assert.Contains(t, out, "Cancelled.")
	assert.Empty(t, h.app.Store.Snapshot().Conversations)
}

func TestREPL_AgentSwitch(t *testing.T) {
	h := newREPLHarness(t, "/agents", "/agent 2", "/examples", "/agent nobody")

	out := h.run(t)
	assert.Contains(t, out, "* 1. General Assistant")
	assert.Contains(t, out, "Now chatting with Code Expert.")
	assert.Contains(t, out, "active agent not found: nobody")

	snap := h.app.Store.Snapshot()
	assert.Equal(t, "code", snap.SelectedAgentID)
}

func TestREPL_TemperatureAndStreaming(t *testing.T) {
	h := newREPLHarness(t, "/temp 0.7", "/temp 5", "/temp warm", "/temp", "/stream off")

	out := h.run(t)
	assert.Contains(t, out, "Temperature is 0.70.")
	assert.Contains(t, out, "invalid temperature")
	assert.Contains(t, out, "Streaming off.")
	assert.InDelta(t, 0.7, h.app.Controller.Temperature(), 1e-9)
	assert.False(t, h.app.Controller.Streaming())
}

func TestREPL_AttachAndExport(t *testing.T) {
	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("some notes"), 0o644))

	h := newREPLHarness(t, "/attach "+file, "summarize", "/export markdown", "/export pdf")

	out := h.run(t)
	assert.Contains(t, out, "Attached notes.txt")
	assert.Contains(t, out, "Exported to ")
	assert.Contains(t, out, "unsupported export format")

	conv := h.active(t)
	require.NotNil(t, conv.Messages[0].Attachment)
	assert.Equal(t, "notes.txt", conv.Messages[0].Attachment.Name)
	assert.Nil(t, h.repl.pending)

	entries, err := os.ReadDir(h.exports)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestREPL_UnknownCommand(t *testing.T) {
	h := newREPLHarness(t, "/bogus", "/help")

	out := h.run(t)
	assert.Contains(t, out, "unknown command /bogus, try /help")
	assert.Contains(t, out, "/delete-all")
}
