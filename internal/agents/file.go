// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agents

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
	"github.com/RedTheFoxx/OraLLMStudio/internal/util"
)

const fileHeader = "# OraLLM Studio agent definitions\n# Edited by the agents command; hand edits are reloaded automatically.\n"

type agentsFile struct {
	Agents []model.Agent `yaml:"agents"`
}

// LoadFile reads agent definitions from path. Entries without an ID get one,
// blank names or system prompts are rejected, and example prompts beyond
// MaxExamplePrompts are an error.
func LoadFile(path string) ([]model.Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f agentsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Agents))
	out := make([]model.Agent, 0, len(f.Agents))
	for i, a := range f.Agents {
		a = normalize(a)
		if err := validate(a); err != nil {
			return nil, fmt.Errorf("agent %d in %s: %w", i+1, path, err)
		}
		if a.ID == "" || seen[a.ID] {
			a.ID = model.NewID()
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	return out, nil
}

// Save writes agent definitions to path atomically.
func Save(path string, agents []model.Agent) error {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(agentsFile{Agents: agents}); err != nil {
		return fmt.Errorf("failed to encode agents: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode agents: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write agents file: %w", err)
	}
	return nil
}

// Load fills the registry from its file. A missing file installs Defaults and
// writes them out so they can be edited.
func (r *Registry) Load() error {
	if r.path == "" {
		r.replace(Defaults())
		return nil
	}

	agents, err := LoadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		agents = Defaults()
		if err := Save(r.path, agents); err != nil {
			r.log.Warn().Err(err).Str("path", r.path).Msg("could not write default agents")
		}
	} else if err != nil {
		return err
	}

	r.replace(agents)
	r.log.Debug().Str("path", r.path).Int("agents", len(agents)).Msg("agents loaded")
	return nil
}
