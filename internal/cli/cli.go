// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information, overridden at build time with -ldflags.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdREPL
	CmdAgents
	CmdConfig
	CmdHealth
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config
	Backend    string // --backend, overrides backend.url
	Agent      string // --agent, selected at startup
	Verbose    bool
	Plain      bool // --plain forces the REPL
	NoStream   bool
	JSON       bool

	// Name is the command word as typed.
	Name string
	// Subcommand is the first argument after the command.
	Subcommand string
	// Positional holds the arguments after the subcommand.
	Positional []string

	Parser *ArgParser
}

// boolFlags never take a value.
var boolFlags = []string{"verbose", "v", "plain", "no-stream", "json", "help", "h", "version", "force", "inactive"}

const usageText = `orallm - chat with agent personas from the terminal

Usage:
  orallm [chat]                    Start the chat TUI (default)
  orallm repl                      Plain line-based chat
  orallm agents [subcommand]       Manage agents
  orallm config [subcommand]       Show or edit configuration
  orallm health                    Probe the backend
  orallm version                   Show version

Agents:
  orallm agents list [--json]
  orallm agents add <name> --prompt <system prompt> [--description <text>] [--inactive]
  orallm agents remove <id|name>
  orallm agents toggle <id|name>
  orallm agents prompt add <agent> <example prompt>
  orallm agents prompt remove <agent> <n>
  orallm agents doc add <agent> <document>
  orallm agents doc remove <agent> <document>

Config:
  orallm config show               Print the effective config (keys redacted)
  orallm config init [--force]     Write a default config file
  orallm config get <key>          Print one value, e.g. chat.temperature
  orallm config set <key> <value>  Change one value and save
  orallm config keys               List settable keys
  orallm config path               Print the config file location

Global flags:
  --config <path>     Config file (default ~/.orallmstudio/config.toml)
  --backend <url>     Backend API base, e.g. http://localhost:5000/api
  --agent <id|name>   Agent selected at startup
  --no-stream         Use buffered replies
  --plain             Use the REPL even on a terminal
  -v, --verbose       Debug logging
  -h, --help          Show this help
`

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses raw arguments (without the program name).
func ParseArgs(raw []string) (Command, Args) {
	p := NewArgParser(raw, boolFlags...)
	args := Args{
		ConfigPath: p.Flag("config"),
		Backend:    p.Flag("backend"),
		Agent:      p.Flag("agent"),
		Verbose:    p.BoolFlag("verbose", "v"),
		Plain:      p.BoolFlag("plain"),
		NoStream:   p.BoolFlag("no-stream"),
		JSON:       p.BoolFlag("json"),
		Name:       strings.ToLower(p.Subcommand()),
		Subcommand: strings.ToLower(p.Positional(1)),
		Positional: p.PositionalFrom(2),
		Parser:     p,
	}

	if p.BoolFlag("help", "h") {
		return CmdHelp, args
	}
	if p.BoolFlag("version") {
		return CmdVersion, args
	}

	switch args.Name {
	case "", "chat", "tui":
		if args.Plain {
			return CmdREPL, args
		}
		return CmdChat, args
	case "repl":
		return CmdREPL, args
	case "agents", "agent":
		return CmdAgents, args
	case "config":
		return CmdConfig, args
	case "health", "status":
		return CmdHealth, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		return CmdUnknown, args
	}
}

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// HandleVersion prints version information.
func HandleVersion(w io.Writer) {
	fmt.Fprintf(w, "orallm %s\n", Version)
	fmt.Fprintf(w, "  commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  built:  %s\n", BuildDate)
	fmt.Fprintf(w, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
