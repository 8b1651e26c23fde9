// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the command line and implements the non-TUI commands:
// the plain REPL, agent administration, config inspection, health probing
// and version output. It also assembles the application (config, logging,
// session store, agent registry, controller) shared by the TUI and the REPL.
package cli
