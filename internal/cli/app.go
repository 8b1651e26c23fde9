// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/RedTheFoxx/OraLLMStudio/internal/agents"
	"github.com/RedTheFoxx/OraLLMStudio/internal/backend"
	"github.com/RedTheFoxx/OraLLMStudio/internal/config"
	"github.com/RedTheFoxx/OraLLMStudio/internal/controller"
	"github.com/RedTheFoxx/OraLLMStudio/internal/feedback"
	"github.com/RedTheFoxx/OraLLMStudio/internal/logging"
	"github.com/RedTheFoxx/OraLLMStudio/internal/session"
)

// =============================================================================
// APPLICATION ASSEMBLY
// =============================================================================

// App wires the chat core for one front-end run.
type App struct {
	Config     *config.Config
	Log        zerolog.Logger
	Store      *session.Store
	Agents     *agents.Registry
	Controller *controller.Controller
	Feedback   *feedback.Recorder

	logFile io.Closer
	cancel  context.CancelFunc
}

// LoadConfig loads the config file named by args (or the default one) and
// applies command-line overrides.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if args.Backend != "" {
		cfg.Backend.URL = args.Backend
	}
	if args.NoStream {
		cfg.Chat.Streaming = false
	}
	if args.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// NewApp builds the application. Logs go to the configured log file, since
// both front-ends own the terminal. sink receives controller events.
func NewApp(ctx context.Context, cfg *config.Config, args Args, sink controller.EventSink) (*App, error) {
	ctx, cancel := context.WithCancel(ctx)
	app := &App{Config: cfg, cancel: cancel}

	logPath, err := cfg.LogPath()
	if err != nil {
		cancel()
		return nil, err
	}
	var out io.Writer = io.Discard
	if f, err := logging.OpenFile(logPath); err == nil {
		out = f
		app.logFile = f
	} else {
		fmt.Fprintf(os.Stderr, "warning: %v; logging disabled\n", err)
	}
	app.Log = logging.New(logging.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty, Output: out, Service: "orallm"})
	logging.InitGlobal(app.Log)

	agentsPath, err := cfg.AgentsPath()
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = session.NewStore(nil)
	app.Agents = agents.NewRegistry(agentsPath, app.Store, logging.Component(app.Log, "agents"))
	if err := app.Agents.Load(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load agents: %w", err)
	}
	if cfg.Agents.Watch {
		if err := app.Agents.Watch(ctx, agents.DefaultDebounce); err != nil {
			app.Log.Warn().Err(err).Msg("agents hot reload disabled")
		}
	}

	opts := []controller.Option{
		controller.WithTemperature(cfg.Chat.Temperature),
		controller.WithStreaming(cfg.Chat.Streaming),
		controller.WithSimulatedDelay(cfg.Chat.SimulatedDelay()),
		controller.WithEventSink(sink),
		controller.WithLogger(logging.Component(app.Log, "controller")),
	}
	if !cfg.Backend.Simulated() {
		opts = append(opts, controller.WithTransport(backend.NewClientWithConfig(cfg.Backend.ClientConfig())))
	}
	app.Controller = controller.New(app.Store, opts...)
	app.Feedback = feedback.NewRecorder(app.Store, logging.Component(app.Log, "feedback"))

	ref := args.Agent
	if ref == "" {
		ref = cfg.Chat.DefaultAgent
	}
	if err := app.selectStartupAgent(ref); err != nil {
		app.Close()
		return nil, err
	}

	app.Log.Info().
		Str("backend", cfg.Backend.URL).
		Bool("simulated", cfg.Backend.Simulated()).
		Int("agents", len(app.Agents.List())).
		Msg("application started")
	return app, nil
}

// selectStartupAgent selects ref, or the first active agent when ref is
// empty. Having no active agent at all is not an error.
func (a *App) selectStartupAgent(ref string) error {
	var id string
	if ref != "" {
		found, ok := a.Agents.Find(ref)
		if !ok || !found.Active {
			return NewNotFoundError("active agent", ref)
		}
		id = found.ID
	} else if active := a.Agents.Active(); len(active) > 0 {
		id = active[0].ID
	}
	if id == "" {
		return nil
	}
	_, err := a.Controller.SelectAgent(id)
	return err
}

// Close stops background work and flushes the log file.
func (a *App) Close() {
	a.cancel()
	if a.logFile != nil {
		a.logFile.Close()
	}
}
