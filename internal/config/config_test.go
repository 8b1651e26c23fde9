// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 0.2, cfg.Chat.Temperature, 1e-9)
	assert.True(t, cfg.Chat.Streaming)
	assert.Equal(t, 50*time.Millisecond, cfg.Chat.SimulatedDelay())
	assert.False(t, cfg.Backend.Simulated())
}

func TestLoadFromPath_MissingFileGivesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Backend.URL, cfg.Backend.URL)
}

func TestLoadFromPath_PartialFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[backend]
url = ""

[chat]
temperature = 0.7
streaming = false

[ui]
theme = "dark"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.True(t, cfg.Backend.Simulated())
	assert.InDelta(t, 0.7, cfg.Chat.Temperature, 1e-9)
	assert.False(t, cfg.Chat.Streaming)
	assert.Equal(t, "dark", cfg.UI.Theme)
	// Untouched sections keep their defaults.
	assert.Equal(t, 28, cfg.UI.SidebarWidth)
	assert.Equal(t, ProviderEcho, cfg.Relay.Provider)
}

func TestLoadFromPath_InvalidTOML(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[chat\ntemperature = ")

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Backend.URL = "ftp://example.com"
	cfg.Chat.Temperature = 1.5
	cfg.UI.Theme = "neon"
	cfg.Relay.Provider = "ollama"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"backend.url", "chat.temperature", "ui.theme", "relay.provider"}, fields)
	assert.Contains(t, err.Error(), "chat.temperature")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ORALLM_BACKEND_URL", "none")
	t.Setenv("ORALLM_TEMPERATURE", "0.9")
	t.Setenv("ORALLM_STREAMING", "off")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("ORALLM_PROVIDER", ProviderOpenRouter)

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.True(t, cfg.Backend.Simulated())
	assert.InDelta(t, 0.9, cfg.Chat.Temperature, 1e-9)
	assert.False(t, cfg.Chat.Streaming)
	assert.Equal(t, "sk-test", cfg.Relay.OpenRouterKey)
	assert.Equal(t, ProviderOpenRouter, cfg.Relay.Provider)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ORALLM_HOME", filepath.Join(dir, "home"))
	t.Setenv("ORALLM_GEMINI_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")
	writeFile(t, filepath.Join(dir, ".env"), "GEMINI_API_KEY=from-dotenv\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Relay.GeminiKey)
}

func TestSaveTOML_RoundTripAndPermissions(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Chat.DefaultAgent = "2"
	cfg.Relay.OpenRouterKey = "secret"

	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# OraLLM Studio configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "2", loaded.Chat.DefaultAgent)
	assert.Equal(t, "secret", loaded.Relay.OpenRouterKey)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("chat.temperature", "0.5"))
	require.NoError(t, cfg.Set("ui.show_sidebar", "false"))
	require.NoError(t, cfg.Set("relay.addr", ":8080"))

	v, err := cfg.Get("chat.temperature")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)
	assert.False(t, cfg.UI.ShowSidebar)
	assert.Equal(t, ":8080", cfg.Relay.Addr)

	assert.Error(t, cfg.Set("chat.temperature", "warm"))
	assert.Error(t, cfg.Set("chat.missing", "1"))
	_, err = cfg.Get("chat")
	assert.Error(t, err)

	assert.Contains(t, Keys(), "backend.health_interval_secs")
}

func TestString_RedactsKeys(t *testing.T) {
	cfg := Default()
	cfg.Relay.GeminiKey = "AIza-secret"
	out := cfg.String()
	assert.NotContains(t, out, "AIza-secret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "AIza-secret", cfg.Relay.GeminiKey)
}
