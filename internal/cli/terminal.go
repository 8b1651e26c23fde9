// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// DefaultTerminalWidth is the fallback width when detection fails.
const DefaultTerminalWidth = 80

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStderrTTY returns true if stderr is a terminal.
func IsStderrTTY() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Interactive reports whether the full-screen TUI can run.
func Interactive() bool {
	return IsTTY() && IsStdoutTTY()
}

// GetTerminalWidth returns the stdout width or DefaultTerminalWidth.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	return width
}

// ConfigureColors disables color output when NO_COLOR is set or stdout is
// not a terminal. FORCE_COLOR wins over both.
func ConfigureColors() {
	switch {
	case os.Getenv("FORCE_COLOR") != "":
		color.NoColor = false
	case os.Getenv("NO_COLOR") != "":
		color.NoColor = true
	default:
		color.NoColor = !IsStdoutTTY()
	}
}
