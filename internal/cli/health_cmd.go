// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/RedTheFoxx/OraLLMStudio/internal/backend"
)

// HealthResult is the JSON shape of the health command.
type HealthResult struct {
	Backend   string `json:"backend"`
	Healthy   bool   `json:"healthy"`
	Simulated bool   `json:"simulated"`
	LatencyMs int64  `json:"latency_ms"`
}

// HandleHealth probes the backend once.
func HandleHealth(ctx context.Context, args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	if cfg.Backend.Simulated() {
		return printHealth(os.Stdout, HealthResult{Simulated: true, Healthy: true}, args.JSON)
	}

	client := backend.NewClientWithConfig(cfg.Backend.ClientConfig())
	start := time.Now()
	res := HealthResult{
		Backend: client.BaseURL(),
		Healthy: client.CheckHealth(ctx),
	}
	res.LatencyMs = time.Since(start).Milliseconds()

	if err := printHealth(os.Stdout, res, args.JSON); err != nil {
		return err
	}
	if !res.Healthy {
		return ErrBackendUnhealthy
	}
	return nil
}

func printHealth(w io.Writer, res HealthResult, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	switch {
	case res.Simulated:
		fmt.Fprintf(w, "%s No backend configured, replies are simulated\n", color.CyanString("[i]"))
	case res.Healthy:
		fmt.Fprintf(w, "%s %s is online (%dms)\n", color.GreenString("[OK]"), res.Backend, res.LatencyMs)
	default:
		fmt.Fprintf(w, "%s %s is offline\n", color.RedString("[X]"), res.Backend)
	}
	return nil
}
