// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/RedTheFoxx/OraLLMStudio/internal/backend"
	"github.com/RedTheFoxx/OraLLMStudio/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete application configuration.
type Config struct {
	Version string `toml:"version"`

	Backend BackendConfig `toml:"backend"`
	Chat    ChatConfig    `toml:"chat"`
	Agents  AgentsConfig  `toml:"agents"`
	UI      UIConfig      `toml:"ui"`
	Logging LoggingConfig `toml:"logging"`
	Relay   RelayConfig   `toml:"relay"`
}

// BackendConfig points the client at a chat backend.
type BackendConfig struct {
	// URL is the API base, e.g. http://localhost:5000/api. Empty selects the
	// simulated mode.
	URL string `toml:"url"`
	// TimeoutSecs bounds buffered requests. Streams are unbounded.
	TimeoutSecs int `toml:"timeout_secs"`
	// HealthTimeoutSecs bounds a health probe.
	HealthTimeoutSecs int `toml:"health_timeout_secs"`
	// HealthIntervalSecs is the period of background health probes; 0 disables them.
	HealthIntervalSecs int `toml:"health_interval_secs"`
}

// ChatConfig holds per-turn defaults.
type ChatConfig struct {
	Temperature float64 `toml:"temperature"`
	Streaming   bool    `toml:"streaming"`
	// SimulatedDelayMs paces simulated replies.
	SimulatedDelayMs int `toml:"simulated_delay_ms"`
	// DefaultAgent is selected at startup when set.
	DefaultAgent string `toml:"default_agent"`
	// VoterName is recorded with feedback.
	VoterName string `toml:"voter_name"`
}

// AgentsConfig locates the agents file.
type AgentsConfig struct {
	// File is the YAML agents file. Empty means <config dir>/agents.yaml.
	File  string `toml:"file"`
	Watch bool   `toml:"watch"`
}

// UIConfig holds terminal preferences.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme        string `toml:"theme"`
	ShowSidebar  bool   `toml:"show_sidebar"`
	SidebarWidth int    `toml:"sidebar_width"`
	WordWrap     int    `toml:"word_wrap"`
	ExportDir    string `toml:"export_dir"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level string `toml:"level"`
	// File receives TUI logs. Empty means <config dir>/orallm.log.
	File   string `toml:"file"`
	Pretty bool   `toml:"pretty"`
}

// RelayConfig configures cmd/relay.
type RelayConfig struct {
	Addr string `toml:"addr"`
	// Provider is "echo", "openrouter" or "gemini".
	Provider        string `toml:"provider"`
	Model           string `toml:"model"`
	OpenRouterKey   string `toml:"openrouter_key"`
	OpenRouterURL   string `toml:"openrouter_url"`
	GeminiKey       string `toml:"gemini_key"`
	MaxContextToken int    `toml:"max_context_tokens"`
	DocumentsDir    string `toml:"documents_dir"`
	Metrics         bool   `toml:"metrics"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Providers accepted by the relay.
const (
	ProviderEcho       = "echo"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Backend: BackendConfig{
			URL:                backend.DefaultBaseURL,
			TimeoutSecs:        120,
			HealthTimeoutSecs:  5,
			HealthIntervalSecs: 30,
		},
		Chat: ChatConfig{
			Temperature:      0.2,
			Streaming:        true,
			SimulatedDelayMs: 50,
		},
		Agents: AgentsConfig{
			Watch: true,
		},
		UI: UIConfig{
			Theme:        "auto",
			ShowSidebar:  true,
			SidebarWidth: 28,
			WordWrap:     80,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Relay: RelayConfig{
			Addr:            ":5000",
			Provider:        ProviderEcho,
			Model:           "deepseek/deepseek-chat:free",
			OpenRouterURL:   "https://openrouter.ai/api/v1/chat/completions",
			MaxContextToken: 4000,
			Metrics:         true,
		},
	}
}

// fillDefaults fills zero values left by a partial file.
func fillDefaults(cfg *Config) {
	d := Default()
	if cfg.Version == "" {
		cfg.Version = d.Version
	}
	if cfg.Backend.TimeoutSecs == 0 {
		cfg.Backend.TimeoutSecs = d.Backend.TimeoutSecs
	}
	if cfg.Backend.HealthTimeoutSecs == 0 {
		cfg.Backend.HealthTimeoutSecs = d.Backend.HealthTimeoutSecs
	}
	if cfg.Chat.SimulatedDelayMs == 0 {
		cfg.Chat.SimulatedDelayMs = d.Chat.SimulatedDelayMs
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = d.UI.Theme
	}
	if cfg.UI.SidebarWidth == 0 {
		cfg.UI.SidebarWidth = d.UI.SidebarWidth
	}
	if cfg.UI.WordWrap == 0 {
		cfg.UI.WordWrap = d.UI.WordWrap
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Relay.Addr == "" {
		cfg.Relay.Addr = d.Relay.Addr
	}
	if cfg.Relay.Provider == "" {
		cfg.Relay.Provider = d.Relay.Provider
	}
	if cfg.Relay.Model == "" {
		cfg.Relay.Model = d.Relay.Model
	}
	if cfg.Relay.OpenRouterURL == "" {
		cfg.Relay.OpenRouterURL = d.Relay.OpenRouterURL
	}
	if cfg.Relay.MaxContextToken == 0 {
		cfg.Relay.MaxContextToken = d.Relay.MaxContextToken
	}
}

// ClientConfig converts the backend section for backend.NewClientWithConfig.
func (b BackendConfig) ClientConfig() *backend.ClientConfig {
	cc := backend.DefaultConfig()
	cc.BaseURL = b.URL
	if b.TimeoutSecs > 0 {
		cc.Timeout = time.Duration(b.TimeoutSecs) * time.Second
	}
	if b.HealthTimeoutSecs > 0 {
		cc.HealthTimeout = time.Duration(b.HealthTimeoutSecs) * time.Second
	}
	return cc
}

// Simulated reports whether no backend URL is configured.
func (b BackendConfig) Simulated() bool {
	return strings.TrimSpace(b.URL) == ""
}

// HealthInterval returns the probe period, or 0 when disabled.
func (b BackendConfig) HealthInterval() time.Duration {
	return time.Duration(b.HealthIntervalSecs) * time.Second
}

// SimulatedDelay returns the simulated token pacing.
func (c ChatConfig) SimulatedDelay() time.Duration {
	return time.Duration(c.SimulatedDelayMs) * time.Millisecond
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the configuration directory. ORALLM_HOME overrides it.
func ConfigDir() (string, error) {
	if dir := os.Getenv("ORALLM_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".orallmstudio"), nil
}

// ConfigPath returns the path of config.toml.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// AgentsPath resolves the agents file location.
func (c *Config) AgentsPath() (string, error) {
	if c.Agents.File != "" {
		return c.Agents.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "agents.yaml"), nil
}

// LogPath resolves the TUI log file location.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File != "" {
		return c.Logging.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "orallm.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads .env (if present) and config.toml (if present), applies
// environment overrides and validates the result.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit config file. A missing file yields
// defaults.
func LoadFromPath(path string) (*Config, error) {
	loadDotEnv()

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg and fills remaining defaults.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	fillDefaults(cfg)
	return nil
}

// loadDotEnv loads .env from the working directory without overriding
// variables already set.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with owner-only permissions, since the relay
// section may carry API keys.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# OraLLM Studio configuration file\n")
	buf.WriteString("# Environment variables ORALLM_* override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// Validate checks every section and returns ValidateErrors when any field is
// invalid.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !c.Backend.Simulated() {
		u, err := url.Parse(c.Backend.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("backend.url", "must be an http(s) URL, got %q", c.Backend.URL)
		}
	}
	if c.Backend.TimeoutSecs < 0 {
		add("backend.timeout_secs", "must not be negative")
	}
	if c.Backend.HealthTimeoutSecs < 0 {
		add("backend.health_timeout_secs", "must not be negative")
	}
	if c.Backend.HealthIntervalSecs < 0 {
		add("backend.health_interval_secs", "must not be negative")
	}

	if c.Chat.Temperature < 0 || c.Chat.Temperature > 1 {
		add("chat.temperature", "must be between 0 and 1, got %g", c.Chat.Temperature)
	}
	if c.Chat.SimulatedDelayMs < 0 {
		add("chat.simulated_delay_ms", "must not be negative")
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "must be auto, dark or light, got %q", c.UI.Theme)
	}
	if c.UI.SidebarWidth < 10 || c.UI.SidebarWidth > 80 {
		add("ui.sidebar_width", "must be between 10 and 80")
	}
	if c.UI.WordWrap < 20 {
		add("ui.word_wrap", "must be at least 20")
	}

	if !validLevels[strings.ToLower(c.Logging.Level)] {
		add("logging.level", "unknown level %q", c.Logging.Level)
	}

	switch c.Relay.Provider {
	case ProviderEcho, ProviderOpenRouter, ProviderGemini:
	default:
		add("relay.provider", "must be echo, openrouter or gemini, got %q", c.Relay.Provider)
	}
	if c.Relay.MaxContextToken <= 0 {
		add("relay.max_context_tokens", "must be positive")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - ORALLM_BACKEND_URL: backend.url ("none" selects simulated mode)
//   - ORALLM_TEMPERATURE: chat.temperature
//   - ORALLM_STREAMING: chat.streaming
//   - ORALLM_AGENTS_FILE: agents.file
//   - ORALLM_LOG_LEVEL: logging.level
//   - ORALLM_RELAY_ADDR: relay.addr
//   - ORALLM_PROVIDER: relay.provider
//   - ORALLM_MODEL: relay.model
//   - OPENROUTER_API_KEY, ORALLM_OPENROUTER_KEY: relay.openrouter_key
//   - GEMINI_API_KEY, ORALLM_GEMINI_KEY: relay.gemini_key
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ORALLM_BACKEND_URL"); v != "" {
		if strings.EqualFold(v, "none") {
			v = ""
		}
		c.Backend.URL = v
	}
	if v := os.Getenv("ORALLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			c.Chat.Temperature = t
		}
	}
	if v := os.Getenv("ORALLM_STREAMING"); v != "" {
		c.Chat.Streaming = parseBool(v)
	}
	if v := os.Getenv("ORALLM_AGENTS_FILE"); v != "" {
		c.Agents.File = v
	}
	if v := os.Getenv("ORALLM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ORALLM_RELAY_ADDR"); v != "" {
		c.Relay.Addr = v
	}
	if v := os.Getenv("ORALLM_PROVIDER"); v != "" {
		c.Relay.Provider = v
	}
	if v := os.Getenv("ORALLM_MODEL"); v != "" {
		c.Relay.Model = v
	}
	if v := firstEnv("ORALLM_OPENROUTER_KEY", "OPENROUTER_API_KEY"); v != "" {
		c.Relay.OpenRouterKey = v
	}
	if v := firstEnv("ORALLM_GEMINI_KEY", "GEMINI_API_KEY"); v != "" {
		c.Relay.GeminiKey = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its TOML key path, e.g. "chat.temperature".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by its TOML key path, converting strings to the field
// type.
func (c *Config) Set(key string, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, value)
		}
		field.SetInt(int64(n))
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", key, value)
		}
		field.SetFloat(f)
	case reflect.Bool:
		field.SetBool(parseBool(value))
	default:
		return fmt.Errorf("%s: unsupported type %s", key, field.Type())
	}
	return nil
}

// lookup walks the struct by toml tags.
func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(strings.TrimSpace(key), ".")
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("%q is not a section", strings.Join(parts[:i], "."))
		}
		next, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
		v = next
	}
	if v.Kind() == reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%q is a section, not a value", key)
	}
	return v, nil
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]; tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Keys lists every settable key in dot notation.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := prefix + strings.Split(f.Tag.Get("toml"), ",")[0]
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, name+".")
				continue
			}
			keys = append(keys, name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// =============================================================================
// DISPLAY
// =============================================================================

// Redacted returns a copy with API keys masked.
func (c *Config) Redacted() *Config {
	safe := *c
	if safe.Relay.OpenRouterKey != "" {
		safe.Relay.OpenRouterKey = "[REDACTED]"
	}
	if safe.Relay.GeminiKey != "" {
		safe.Relay.GeminiKey = "[REDACTED]"
	}
	return &safe
}

// String renders the redacted config as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
