// OraLLM Studio - chat with agent personas from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/RedTheFoxx/OraLLMStudio/internal/cli"
)

func main() {
	cli.ConfigureColors()
	cmd, args := cli.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	err := dispatch(ctx, cmd, args)
	stop()

	if err != nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

// dispatch runs one command. Ctrl+C is left to the front-ends: the TUI reads
// it as a key and the REPL cancels the turn in flight.
func dispatch(ctx context.Context, cmd cli.Command, args cli.Args) error {
	switch cmd {
	case cli.CmdChat:
		if !cli.Interactive() {
			return cli.HandleREPL(ctx, args)
		}
		return cli.HandleChat(ctx, args)
	case cli.CmdREPL:
		return cli.HandleREPL(ctx, args)
	case cli.CmdAgents:
		return cli.HandleAgents(args)
	case cli.CmdConfig:
		return cli.HandleConfig(args)
	case cli.CmdHealth:
		hctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
		defer cancel()
		return cli.HandleHealth(hctx, args)
	case cli.CmdVersion:
		cli.HandleVersion(os.Stdout)
		return nil
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return nil
	default:
		cli.PrintUsage(os.Stderr)
		return cli.NewValidationErrorWithExample("command", args.Name, "unknown command", "orallm help")
	}
}
