// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/RedTheFoxx/OraLLMStudio/internal/logging"
	"github.com/RedTheFoxx/OraLLMStudio/internal/ui/chat"
	"github.com/RedTheFoxx/OraLLMStudio/internal/ui/styles"
)

// HandleChat runs the full-screen chat TUI.
func HandleChat(ctx context.Context, args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	bridge := chat.NewBridge()
	app, err := NewApp(ctx, cfg, args, bridge.Sink)
	if err != nil {
		return err
	}
	defer app.Close()

	deps := chat.Deps{
		Controller:     app.Controller,
		Feedback:       app.Feedback,
		Theme:          styles.NewTheme(cfg.UI.Theme),
		UI:             cfg.UI,
		VoterName:      cfg.Chat.VoterName,
		HealthInterval: cfg.Backend.HealthInterval(),
		Log:            logging.Component(app.Log, "tui"),
	}
	return chat.Run(ctx, deps, bridge)
}
