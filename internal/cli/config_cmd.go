// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/RedTheFoxx/OraLLMStudio/internal/config"
)

// HandleConfig shows or edits the config file.
func HandleConfig(args Args) error {
	return runConfig(os.Stdout, args)
}

// configPath is the file the config command reads and writes.
func configPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPath()
}

func runConfig(w io.Writer, args Args) error {
	path, err := configPath(args)
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "", "show":
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		if args.JSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg.Redacted())
		}
		fmt.Fprint(w, cfg.String())
		return nil

	case "path":
		fmt.Fprintln(w, path)
		return nil

	case "keys":
		for _, k := range config.Keys() {
			fmt.Fprintln(w, k)
		}
		return nil

	case "init":
		if _, err := os.Stat(path); err == nil && !args.Parser.BoolFlag("force") {
			return NewCommandError("config", "init", "config file already exists at "+path+" (use --force to overwrite)", nil)
		}
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s Wrote default config to %s\n", color.GreenString("[OK]"), path)
		return nil

	case "get":
		key := args.Parser.Positional(2)
		if key == "" {
			return NewValidationErrorWithExample("key", "", "is required", "orallm config get chat.temperature")
		}
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		v, err := cfg.Get(key)
		if err != nil {
			return NewValidationErrorWithExample("key", key, err.Error(), "orallm config keys")
		}
		fmt.Fprintln(w, v)
		return nil

	case "set":
		key, value := args.Parser.Positional(2), JoinPositionalArgs(args.Parser, 3)
		if key == "" {
			return NewValidationErrorWithExample("key", "", "is required", "orallm config set chat.temperature 0.5")
		}
		return configSet(w, path, key, value)

	default:
		return NewValidationErrorWithExample("config subcommand", args.Subcommand,
			"must be show, init, get, set, keys or path", "orallm config show")
	}
}

// configSet edits the file itself, so environment overrides are not
// written back.
func configSet(w io.Writer, path, key, value string) error {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := cfg.Set(key, value); err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "orallm config keys")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s = %s\n", color.GreenString("[OK]"), key, value)
	return nil
}
