// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command relay serves the chat backend API in front of a hosted model.
//
// Usage:
//
//	relay [--config path] [--addr :5000] [--provider echo|openrouter|gemini] [--model name] [-v]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/RedTheFoxx/OraLLMStudio/internal/cli"
	"github.com/RedTheFoxx/OraLLMStudio/internal/config"
	"github.com/RedTheFoxx/OraLLMStudio/internal/logging"
	"github.com/RedTheFoxx/OraLLMStudio/internal/metrics"
	"github.com/RedTheFoxx/OraLLMStudio/internal/relay"
)

const usage = `relay - chat backend for OraLLM Studio

Usage:
  relay [flags]

Flags:
  --config <path>      Config file (default ~/.orallmstudio/config.toml)
  --addr <addr>        Listen address (default from relay.addr)
  --provider <name>    echo, openrouter or gemini
  --model <name>       Upstream model
  -v, --verbose        Debug logging
`

func main() {
	cli.ConfigureColors()
	if err := run(); err != nil {
		cli.DisplayError(os.Stderr, err, false)
		os.Exit(cli.GetExitCode(err))
	}
}

func run() error {
	p := cli.NewArgParser(os.Args[1:], "verbose", "v", "help", "h")
	if p.BoolFlag("help", "h") {
		fmt.Print(usage)
		return nil
	}

	var (
		cfg *config.Config
		err error
	)
	if path := p.Flag("config"); path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	rc := cfg.Relay
	rc.Addr = p.FlagOrDefault("addr", rc.Addr)
	rc.Provider = p.FlagOrDefault("provider", rc.Provider)
	rc.Model = p.FlagOrDefault("model", rc.Model)
	if p.BoolFlag("verbose", "v") {
		cfg.Logging.Level = "debug"
	}

	log := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		Pretty:  cli.IsStderrTTY(),
		Output:  os.Stderr,
		Service: "relay",
	})
	logging.InitGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := relay.NewProvider(ctx, rc)
	if err != nil {
		return cli.NewCommandError("relay", "start", "provider "+rc.Provider+" unavailable", err)
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}

	opts := []relay.Option{
		relay.WithLogger(logging.Component(log, "relay")),
		relay.WithDocuments(relay.NewDocumentLoader(rc.DocumentsDir, rc.MaxContextToken, logging.Component(log, "documents"))),
	}
	if rc.Metrics {
		opts = append(opts, relay.WithMetrics(metrics.New()))
	}
	return relay.NewServer(provider, opts...).ListenAndServe(ctx, rc.Addr)
}
