// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agents

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrAgentNotFound is returned for an unknown agent ID.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrNameRequired is returned when an agent has a blank name.
	ErrNameRequired = errors.New("agent name is required")

	// ErrSystemPromptRequired is returned when an agent has a blank system prompt.
	ErrSystemPromptRequired = errors.New("agent system prompt is required")

	// ErrTooManyExamplePrompts is returned when adding beyond MaxExamplePrompts.
	ErrTooManyExamplePrompts = fmt.Errorf("an agent holds at most %d example prompts", model.MaxExamplePrompts)

	// ErrEmptyValue is returned when adding a blank prompt or document.
	ErrEmptyValue = errors.New("value must not be blank")
)

// =============================================================================
// REGISTRY
// =============================================================================

// Sink receives the agent list after every change.
type Sink interface {
	SetAgents(agents []model.Agent)
}

// Registry is the mutation boundary for agent definitions. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents []model.Agent
	path   string
	sink   Sink
	log    zerolog.Logger
}

// NewRegistry creates a registry persisted at path. An empty path keeps the
// agents in memory only. sink may be nil.
func NewRegistry(path string, sink Sink, log zerolog.Logger) *Registry {
	return &Registry{path: path, sink: sink, log: log}
}

// Path returns the agents file location.
func (r *Registry) Path() string {
	return r.path
}

// List returns every agent in definition order.
func (r *Registry) List() []model.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.agents)
}

// Active returns the agents that can be selected.
func (r *Registry) Active() []model.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Agent
	for _, a := range r.agents {
		if a.Active {
			out = append(out, a.Clone())
		}
	}
	return out
}

// Get returns the agent with the given ID.
func (r *Registry) Get(id string) (model.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.agents[i].Clone(), true
	}
	return model.Agent{}, false
}

// Find resolves ref as an ID, a case-insensitive name or a 1-based position.
func (r *Registry) Find(ref string) (model.Agent, bool) {
	ref = strings.TrimSpace(ref)
	if a, ok := r.Get(ref); ok {
		return a, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		if strings.EqualFold(a.Name, ref) {
			return a.Clone(), true
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(r.agents) {
		return r.agents[n-1].Clone(), true
	}
	return model.Agent{}, false
}

// Create validates and adds a new active agent with a fresh ID.
func (r *Registry) Create(a model.Agent) (model.Agent, error) {
	a = normalize(a)
	if err := validate(a); err != nil {
		return model.Agent{}, err
	}
	a.ID = model.NewID()
	a.Active = true

	err := r.commit(func(agents []model.Agent) ([]model.Agent, error) {
		return append(agents, a), nil
	})
	if err != nil {
		return model.Agent{}, err
	}
	r.log.Info().Str("agent", a.ID).Str("name", a.Name).Msg("agent created")
	return a.Clone(), nil
}

// Update replaces the agent with the same ID.
func (r *Registry) Update(a model.Agent) error {
	a = normalize(a)
	if err := validate(a); err != nil {
		return err
	}
	return r.mutate(a.ID, nil, func(model.Agent) model.Agent { return a })
}

// Delete removes an agent. Conversations bound to it can no longer send.
func (r *Registry) Delete(id string) error {
	err := r.commit(func(agents []model.Agent) ([]model.Agent, error) {
		i := slices.IndexFunc(agents, func(a model.Agent) bool { return a.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
		}
		return slices.Delete(agents, i, i+1), nil
	})
	if err == nil {
		r.log.Info().Str("agent", id).Msg("agent deleted")
	}
	return err
}

// ToggleActive flips the Active flag and returns the new value.
func (r *Registry) ToggleActive(id string) (bool, error) {
	var active bool
	err := r.mutate(id, nil, func(a model.Agent) model.Agent {
		a.Active = !a.Active
		active = a.Active
		return a
	})
	return active, err
}

// AddExamplePrompt appends a prompt unless the agent already holds
// MaxExamplePrompts.
func (r *Registry) AddExamplePrompt(id, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrEmptyValue
	}
	return r.mutate(id, func(a *model.Agent) error {
		if !a.CanAddExamplePrompt() {
			return ErrTooManyExamplePrompts
		}
		return nil
	}, func(a model.Agent) model.Agent {
		a.ExamplePrompts = append(a.ExamplePrompts, prompt)
		return a
	})
}

// RemoveExamplePrompt removes the prompt at the 0-based index.
func (r *Registry) RemoveExamplePrompt(id string, index int) error {
	return r.mutate(id, func(a *model.Agent) error {
		if index < 0 || index >= len(a.ExamplePrompts) {
			return fmt.Errorf("example prompt %d out of range (agent has %d)", index+1, len(a.ExamplePrompts))
		}
		return nil
	}, func(a model.Agent) model.Agent {
		a.ExamplePrompts = slices.Delete(a.ExamplePrompts, index, index+1)
		return a
	})
}

// AddDocument attaches a document name or path. Duplicates are ignored.
func (r *Registry) AddDocument(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyValue
	}
	return r.mutate(id, nil, func(a model.Agent) model.Agent {
		if !slices.Contains(a.Documents, name) {
			a.Documents = append(a.Documents, name)
		}
		return a
	})
}

// RemoveDocument detaches a document. Removing an unknown one is a no-op.
func (r *Registry) RemoveDocument(id, name string) error {
	return r.mutate(id, nil, func(a model.Agent) model.Agent {
		a.Documents = slices.DeleteFunc(a.Documents, func(d string) bool { return d == name })
		return a
	})
}

// =============================================================================
// INTERNALS
// =============================================================================

// mutate applies fn to a copy of one agent after check accepts it.
func (r *Registry) mutate(id string, check func(*model.Agent) error, fn func(model.Agent) model.Agent) error {
	return r.commit(func(agents []model.Agent) ([]model.Agent, error) {
		i := slices.IndexFunc(agents, func(a model.Agent) bool { return a.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
		}
		current := agents[i].Clone()
		if check != nil {
			if err := check(&current); err != nil {
				return nil, err
			}
		}
		next := fn(current)
		next.ID = id
		agents[i] = next
		return agents, nil
	})
}

// commit runs fn on a copy of the list, persists the result and publishes it.
func (r *Registry) commit(fn func([]model.Agent) ([]model.Agent, error)) error {
	r.mu.Lock()
	next, err := fn(cloneAll(r.agents))
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if r.path != "" {
		if err := Save(r.path, next); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	r.agents = next
	published := cloneAll(next)
	r.mu.Unlock()

	r.publish(published)
	return nil
}

// replace swaps the whole list without persisting it.
func (r *Registry) replace(agents []model.Agent) {
	r.mu.Lock()
	r.agents = cloneAll(agents)
	r.mu.Unlock()
	r.publish(cloneAll(agents))
}

func (r *Registry) publish(agents []model.Agent) {
	if r.sink != nil {
		r.sink.SetAgents(agents)
	}
}

func (r *Registry) indexOf(id string) int {
	return slices.IndexFunc(r.agents, func(a model.Agent) bool { return a.ID == id })
}

func normalize(a model.Agent) model.Agent {
	a = a.Clone()
	a.Name = strings.TrimSpace(a.Name)
	a.Description = strings.TrimSpace(a.Description)
	a.SystemPrompt = strings.TrimSpace(a.SystemPrompt)
	if a.Documents == nil {
		a.Documents = []string{}
	}
	if a.ExamplePrompts == nil {
		a.ExamplePrompts = []string{}
	}
	return a
}

func validate(a model.Agent) error {
	if a.Name == "" {
		return ErrNameRequired
	}
	if a.SystemPrompt == "" {
		return ErrSystemPromptRequired
	}
	if len(a.ExamplePrompts) > model.MaxExamplePrompts {
		return ErrTooManyExamplePrompts
	}
	return nil
}

func cloneAll(agents []model.Agent) []model.Agent {
	out := make([]model.Agent, len(agents))
	for i, a := range agents {
		out[i] = a.Clone()
	}
	return out
}
