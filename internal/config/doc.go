// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves OraLLM Studio settings.
//
// # Configuration Precedence
//
//   - Environment variables (ORALLM_*), including those from a .env file
//   - ~/.orallmstudio/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := backend.NewClientWithConfig(cfg.Backend.ClientConfig())
package config
