// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "slices"

// MaxExamplePrompts is the number of example prompts an agent may carry.
// It is enforced where prompts are added, not by the Agent type.
const MaxExamplePrompts = 5

// Agent is a persona configuration. Its system prompt and documents are
// forwarded with every turn of conversations bound to it.
type Agent struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description" yaml:"description"`
	SystemPrompt   string   `json:"system_prompt" yaml:"system_prompt"`
	Documents      []string `json:"documents" yaml:"documents"`
	Active         bool     `json:"active" yaml:"active"`
	ExamplePrompts []string `json:"example_prompts" yaml:"example_prompts"`
}

// Clone returns a deep copy of the agent.
func (a Agent) Clone() Agent {
	out := a
	out.Documents = slices.Clone(a.Documents)
	out.ExamplePrompts = slices.Clone(a.ExamplePrompts)
	return out
}

// CanAddExamplePrompt reports whether another example prompt fits.
func (a Agent) CanAddExamplePrompt() bool {
	return len(a.ExamplePrompts) < MaxExamplePrompts
}
