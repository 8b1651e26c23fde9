// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedTheFoxx/OraLLMStudio/internal/agents"
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

func newTestRegistry(t *testing.T) *agents.Registry {
	t.Helper()
	reg := agents.NewRegistry(filepath.Join(t.TempDir(), "agents.yaml"), nil, zerolog.Nop())
	require.NoError(t, reg.Load())
	return reg
}

func runAgentsCmd(t *testing.T, reg *agents.Registry, raw ...string) (string, error) {
	t.Helper()
	_, args := ParseArgs(append([]string{"agents"}, raw...))
	var buf bytes.Buffer
	err := runAgents(&buf, args, reg)
	return buf.String(), err
}

func findAgent(t *testing.T, reg *agents.Registry, name string) model.Agent {
	t.Helper()
	a, ok := reg.Find(name)
	require.True(t, ok, "agent %s", name)
	return a
}

func TestAgentsCmd_List(t *testing.T) {
	reg := newTestRegistry(t)

	out, err := runAgentsCmd(t, reg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "General Assistant")
	assert.Contains(t, out, "Code Expert")
	assert.Contains(t, out, "example 1:")

	out, err = runAgentsCmd(t, reg, "list", "--json")
	require.NoError(t, err)
	var decoded []model.Agent
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Len(t, decoded, 3)
}

func TestAgentsCmd_AddToggleRemove(t *testing.T) {
	reg := newTestRegistry(t)

	out, err := runAgentsCmd(t, reg, "add", "Tech", "Writer", "--prompt", "You write docs.", "--description", "Prose help")
	require.NoError(t, err)
	assert.Contains(t, out, "Created agent Tech Writer")

	a := findAgent(t, reg, "tech writer")
	assert.True(t, a.Active)
	assert.Equal(t, "Prose help", a.Description)

	// Persisted to disk.
	onDisk, err := agents.LoadFile(reg.Path())
	require.NoError(t, err)
	assert.Len(t, onDisk, 4)

	out, err = runAgentsCmd(t, reg, "toggle", "Tech Writer")
	require.NoError(t, err)
	assert.Contains(t, out, "is now inactive")
	assert.False(t, findAgent(t, reg, "Tech Writer").Active)

	_, err = runAgentsCmd(t, reg, "remove", "Tech Writer")
	require.NoError(t, err)
	_, ok := reg.Find("Tech Writer")
	assert.False(t, ok)
}

func TestAgentsCmd_AddInactive(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := runAgentsCmd(t, reg, "add", "Quiet", "--prompt", "Say little.", "--inactive")
	require.NoError(t, err)
	assert.False(t, findAgent(t, reg, "Quiet").Active)
}

func TestAgentsCmd_AddRequiresPrompt(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := runAgentsCmd(t, reg, "add", "Nameless")
	require.Error(t, err)
	assert.ErrorIs(t, err, agents.ErrSystemPromptRequired)
	assert.Len(t, reg.List(), 3)
}

func TestAgentsCmd_ExamplePrompts(t *testing.T) {
	reg := newTestRegistry(t)
	before := len(findAgent(t, reg, "general").ExamplePrompts)

	_, err := runAgentsCmd(t, reg, "prompt", "add", "general", "Draft", "a", "memo")
	require.NoError(t, err)
	prompts := findAgent(t, reg, "general").ExamplePrompts
	require.Len(t, prompts, before+1)
	assert.Equal(t, "Draft a memo", prompts[before])

	_, err = runAgentsCmd(t, reg, "prompt", "remove", "general", "1")
	require.NoError(t, err)
	assert.Len(t, findAgent(t, reg, "general").ExamplePrompts, before)

	_, err = runAgentsCmd(t, reg, "prompt", "remove", "general", "99")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestAgentsCmd_ExamplePromptLimit(t *testing.T) {
	reg := newTestRegistry(t)
	a := findAgent(t, reg, "general")
	for i := len(a.ExamplePrompts); i < model.MaxExamplePrompts; i++ {
		_, err := runAgentsCmd(t, reg, "prompt", "add", "general", "filler")
		require.NoError(t, err)
	}

	_, err := runAgentsCmd(t, reg, "prompt", "add", "general", "one too many")
	assert.ErrorIs(t, err, agents.ErrTooManyExamplePrompts)
}

func TestAgentsCmd_Documents(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := runAgentsCmd(t, reg, "doc", "add", "code", "style-guide.md")
	require.NoError(t, err)
	assert.Contains(t, findAgent(t, reg, "code").Documents, "style-guide.md")

	_, err = runAgentsCmd(t, reg, "doc", "remove", "code", "style-guide.md")
	require.NoError(t, err)
	assert.NotContains(t, findAgent(t, reg, "code").Documents, "style-guide.md")
}

func TestAgentsCmd_Errors(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := runAgentsCmd(t, reg, "toggle", "nobody")
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))

	_, err = runAgentsCmd(t, reg, "toggle")
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, err = runAgentsCmd(t, reg, "frobnicate")
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, err = runAgentsCmd(t, reg, "doc", "rename", "code", "x")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}
