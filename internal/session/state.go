// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

// =============================================================================
// BACKEND STATUS
// =============================================================================

// BackendStatus is the last known result of the health probe.
type BackendStatus int

const (
	BackendUnknown BackendStatus = iota
	BackendOnline
	BackendOffline
)

// String returns the display form of the status.
func (s BackendStatus) String() string {
	switch s {
	case BackendOnline:
		return "online"
	case BackendOffline:
		return "offline"
	default:
		return "checking"
	}
}

// =============================================================================
// STATE SNAPSHOT
// =============================================================================

// State is one immutable snapshot of the session.
type State struct {
	// Conversations in display order, newest first.
	Conversations []model.Conversation

	// ActiveID is the ID of the displayed conversation, or "".
	ActiveID string

	Agents          []model.Agent
	SelectedAgentID string
	Backend         BackendStatus

	// Version increases with every replacement.
	Version uint64
}

// Active returns the active conversation.
func (s *State) Active() (model.Conversation, bool) {
	if s.ActiveID == "" {
		return model.Conversation{}, false
	}
	return s.Conversation(s.ActiveID)
}

// Conversation looks up a conversation by ID.
func (s *State) Conversation(id string) (model.Conversation, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.Conversations[i], true
	}
	return model.Conversation{}, false
}

// Agent looks up an agent by ID.
func (s *State) Agent(id string) (model.Agent, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return model.Agent{}, false
}

// SelectedAgent returns the agent chosen for new conversations.
func (s *State) SelectedAgent() (model.Agent, bool) {
	if s.SelectedAgentID == "" {
		return model.Agent{}, false
	}
	return s.Agent(s.SelectedAgentID)
}

// ActiveAgents returns the agents visible in the selector.
func (s *State) ActiveAgents() []model.Agent {
	var out []model.Agent
	for _, a := range s.Agents {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}

func (s *State) indexOf(id string) int {
	for i, c := range s.Conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// clone returns a copy whose slices can be modified without affecting s.
// Conversations and agents are values whose own slices are copy-on-write.
func (s *State) clone() *State {
	next := *s
	next.Conversations = append([]model.Conversation(nil), s.Conversations...)
	next.Agents = append([]model.Agent(nil), s.Agents...)
	return &next
}
