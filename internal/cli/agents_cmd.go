// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/RedTheFoxx/OraLLMStudio/internal/agents"
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
	"github.com/RedTheFoxx/OraLLMStudio/internal/util"
)

// HandleAgents manages agent definitions without starting a chat.
func HandleAgents(args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	path, err := cfg.AgentsPath()
	if err != nil {
		return err
	}
	reg := agents.NewRegistry(path, nil, zerolog.Nop())
	if err := reg.Load(); err != nil {
		return fmt.Errorf("failed to load agents: %w", err)
	}
	return runAgents(os.Stdout, args, reg)
}

func runAgents(w io.Writer, args Args, reg *agents.Registry) error {
	switch args.Subcommand {
	case "", "list", "ls":
		return agentsList(w, reg, args.JSON)
	case "add", "create":
		return agentsAdd(w, args, reg)
	case "remove", "rm", "delete":
		return agentsRemove(w, args, reg)
	case "toggle":
		return agentsToggle(w, args, reg)
	case "prompt", "prompts":
		return agentsPrompt(w, args, reg)
	case "doc", "docs":
		return agentsDoc(w, args, reg)
	default:
		return NewValidationErrorWithExample("agents subcommand", args.Subcommand,
			"must be list, add, remove, toggle, prompt or doc", "orallm agents list")
	}
}

// resolveAgent finds an agent by ID, name or position.
func resolveAgent(reg *agents.Registry, ref string) (model.Agent, error) {
	if ref == "" {
		return model.Agent{}, NewValidationErrorWithExample("agent", "", "is required", "orallm agents toggle \"Code Expert\"")
	}
	a, ok := reg.Find(ref)
	if !ok {
		return model.Agent{}, NewNotFoundError("agent", ref)
	}
	return a, nil
}

func agentsList(w io.Writer, reg *agents.Registry, jsonOut bool) error {
	list := reg.List()
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No agents defined. Add one with: orallm agents add <name> --prompt <text>")
		return nil
	}

	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	for i, a := range list {
		state := color.GreenString("active")
		if !a.Active {
			state = color.YellowString("inactive")
		}
		fmt.Fprintf(w, "%2d. %s  [%s]  %s\n", i+1, bold.Sprint(a.Name), state, dim.Sprint(a.ID))
		if a.Description != "" {
			fmt.Fprintf(w, "    %s\n", a.Description)
		}
		fmt.Fprintf(w, "    prompt: %s\n", util.TruncateRunes(util.SingleLine(a.SystemPrompt), 70))
		for j, ex := range a.ExamplePrompts {
			fmt.Fprintf(w, "    example %d: %s\n", j+1, ex)
		}
		for _, doc := range a.Documents {
			fmt.Fprintf(w, "    document: %s\n", doc)
		}
	}
	return nil
}

func agentsAdd(w io.Writer, args Args, reg *agents.Registry) error {
	name := JoinPositionalArgs(args.Parser, 2)
	a, err := reg.Create(model.Agent{
		Name:         name,
		Description:  args.Parser.Flag("description"),
		SystemPrompt: args.Parser.Flag("prompt"),
	})
	if err != nil {
		return NewCommandError("agents", "add", "invalid agent", err)
	}
	if args.Parser.BoolFlag("inactive") {
		if _, err := reg.ToggleActive(a.ID); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "%s Created agent %s (%s)\n", color.GreenString("[OK]"), a.Name, a.ID)
	return nil
}

func agentsRemove(w io.Writer, args Args, reg *agents.Registry) error {
	a, err := resolveAgent(reg, JoinPositionalArgs(args.Parser, 2))
	if err != nil {
		return err
	}
	if err := reg.Delete(a.ID); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s Removed agent %s\n", color.GreenString("[OK]"), a.Name)
	return nil
}

func agentsToggle(w io.Writer, args Args, reg *agents.Registry) error {
	a, err := resolveAgent(reg, JoinPositionalArgs(args.Parser, 2))
	if err != nil {
		return err
	}
	active, err := reg.ToggleActive(a.ID)
	if err != nil {
		return err
	}
	state := "inactive"
	if active {
		state = "active"
	}
	fmt.Fprintf(w, "%s %s is now %s\n", color.GreenString("[OK]"), a.Name, state)
	return nil
}

// agentsPrompt handles "prompt add <agent> <text>" and "prompt remove <agent> <n>".
func agentsPrompt(w io.Writer, args Args, reg *agents.Registry) error {
	action := args.Parser.Positional(2)
	a, err := resolveAgent(reg, args.Parser.Positional(3))
	if err != nil {
		return err
	}
	switch action {
	case "add":
		text := JoinPositionalArgs(args.Parser, 4)
		if err := reg.AddExamplePrompt(a.ID, text); err != nil {
			return NewCommandError("agents", "prompt add", a.Name, err)
		}
		fmt.Fprintf(w, "%s Added example prompt to %s\n", color.GreenString("[OK]"), a.Name)
	case "remove", "rm":
		ref := args.Parser.Positional(4)
		n, err := strconv.Atoi(ref)
		if err != nil || n < 1 || n > len(a.ExamplePrompts) {
			return NewValidationErrorWithExample("example prompt number", ref,
				fmt.Sprintf("must be between 1 and %d", len(a.ExamplePrompts)), "orallm agents prompt remove general 1")
		}
		if err := reg.RemoveExamplePrompt(a.ID, n-1); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s Removed example prompt %d from %s\n", color.GreenString("[OK]"), n, a.Name)
	default:
		return NewValidationErrorWithExample("prompt action", action, "must be add or remove",
			"orallm agents prompt add general \"Summarize this text\"")
	}
	return nil
}

// agentsDoc handles "doc add|remove <agent> <document>".
func agentsDoc(w io.Writer, args Args, reg *agents.Registry) error {
	action := args.Parser.Positional(2)
	a, err := resolveAgent(reg, args.Parser.Positional(3))
	if err != nil {
		return err
	}
	doc := JoinPositionalArgs(args.Parser, 4)
	switch action {
	case "add":
		if err := reg.AddDocument(a.ID, doc); err != nil {
			return NewCommandError("agents", "doc add", a.Name, err)
		}
		fmt.Fprintf(w, "%s Added document %s to %s\n", color.GreenString("[OK]"), doc, a.Name)
	case "remove", "rm":
		if err := reg.RemoveDocument(a.ID, doc); err != nil {
			return NewCommandError("agents", "doc remove", a.Name, err)
		}
		fmt.Fprintf(w, "%s Removed document %s from %s\n", color.GreenString("[OK]"), doc, a.Name)
	default:
		return NewValidationErrorWithExample("doc action", action, "must be add or remove",
			"orallm agents doc add code handbook.pdf")
	}
	return nil
}
