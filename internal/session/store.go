// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

const (
	// DefaultTitle names the conversation created when an agent is selected.
	DefaultTitle = "New conversation"
)

// Sentinel errors.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrAgentNotFound        = errors.New("agent not found")
	ErrNoAgentSelected      = errors.New("no agent selected")
)

// =============================================================================
// STORE
// =============================================================================

// Store owns the session state. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[State]

	subMu  sync.RWMutex
	subs   map[int]func(*State)
	nextID int
}

// NewStore creates a store holding agents and no conversations.
func NewStore(agents []model.Agent) *Store {
	s := &Store{subs: make(map[int]func(*State))}
	s.current.Store(&State{
		Conversations: []model.Conversation{},
		Agents:        cloneAgents(agents),
	})
	return s
}

// Snapshot returns the current immutable state.
func (s *Store) Snapshot() *State {
	return s.current.Load()
}

// Subscribe registers fn to be called with every new snapshot. The returned
// function removes the subscription. fn runs on the writer's goroutine and
// must not block.
func (s *Store) Subscribe(fn func(*State)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// update applies fn to a copy of the current state and publishes it when fn
// reports a change.
func (s *Store) update(fn func(next *State) (bool, error)) error {
	s.mu.Lock()
	next := s.current.Load().clone()
	changed, err := fn(next)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	next.Version++
	s.current.Store(next)
	s.mu.Unlock()

	s.notify(next)
	return nil
}

func (s *Store) notify(st *State) {
	s.subMu.RLock()
	subs := make([]func(*State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(st)
	}
}

// =============================================================================
// AGENTS
// =============================================================================

// SetAgents replaces the agent list. Existing conversations keep their
// AgentID even if the agent disappears; sending on them then fails with
// ErrNoAgentSelected.
func (s *Store) SetAgents(agents []model.Agent) {
	s.update(func(next *State) (bool, error) {
		next.Agents = cloneAgents(agents)
		return true, nil
	})
}

// Agent looks up an agent in the current snapshot.
func (s *Store) Agent(id string) (model.Agent, bool) {
	return s.Snapshot().Agent(id)
}

// SelectAgent makes id the selected agent and resets the conversation list to
// a single fresh conversation bound to it. An unknown id clears the selection
// and the active conversation and returns ErrAgentNotFound.
func (s *Store) SelectAgent(id string) (model.Conversation, error) {
	var conv model.Conversation
	found := false
	s.update(func(next *State) (bool, error) {
		agent, ok := next.Agent(id)
		if !ok {
			changed := next.SelectedAgentID != "" || next.ActiveID != ""
			next.SelectedAgentID = ""
			next.ActiveID = ""
			return changed, nil
		}
		found = true
		conv = model.NewConversation(agent.ID, DefaultTitle)
		next.SelectedAgentID = agent.ID
		next.Conversations = []model.Conversation{conv}
		next.ActiveID = conv.ID
		return true, nil
	})
	if !found {
		return model.Conversation{}, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return conv, nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// NewConversation prepends an empty conversation bound to the selected agent
// and makes it active.
func (s *Store) NewConversation() (model.Conversation, error) {
	var conv model.Conversation
	err := s.update(func(next *State) (bool, error) {
		agent, ok := next.SelectedAgent()
		if !ok {
			return false, ErrNoAgentSelected
		}
		title := fmt.Sprintf("%s %d", DefaultTitle, len(next.Conversations)+1)
		conv = model.NewConversation(agent.ID, title)
		next.Conversations = append([]model.Conversation{conv}, next.Conversations...)
		next.ActiveID = conv.ID
		return true, nil
	})
	return conv, err
}

// SetActive switches the displayed conversation.
func (s *Store) SetActive(id string) error {
	return s.update(func(next *State) (bool, error) {
		if next.indexOf(id) < 0 {
			return false, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
		if next.ActiveID == id {
			return false, nil
		}
		next.ActiveID = id
		return true, nil
	})
}

// DeleteConversation removes a conversation. When it was active, the first
// remaining conversation in display order becomes active, or none.
func (s *Store) DeleteConversation(id string) error {
	return s.update(func(next *State) (bool, error) {
		idx := next.indexOf(id)
		if idx < 0 {
			return false, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
		next.Conversations = slices.Delete(next.Conversations, idx, idx+1)
		if next.ActiveID == id {
			next.ActiveID = ""
			if len(next.Conversations) > 0 {
				next.ActiveID = next.Conversations[0].ID
			}
		}
		return true, nil
	})
}

// DeleteAll removes every conversation and returns the removed IDs.
func (s *Store) DeleteAll() []string {
	var ids []string
	s.update(func(next *State) (bool, error) {
		for _, c := range next.Conversations {
			ids = append(ids, c.ID)
		}
		next.Conversations = []model.Conversation{}
		next.ActiveID = ""
		return len(ids) > 0, nil
	})
	return ids
}

// Rename changes a conversation title. A blank title keeps the old one.
func (s *Store) Rename(id, title string) error {
	return s.UpdateConversation(id, func(c model.Conversation) model.Conversation {
		return c.WithTitle(title)
	})
}

// UpdateConversation replaces conversation id with fn(conv).
func (s *Store) UpdateConversation(id string, fn func(model.Conversation) model.Conversation) error {
	return s.update(func(next *State) (bool, error) {
		idx := next.indexOf(id)
		if idx < 0 {
			return false, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
		next.Conversations[idx] = fn(next.Conversations[idx])
		return true, nil
	})
}

// =============================================================================
// MESSAGES
// =============================================================================

// AppendMessage appends msg to conversation convID.
func (s *Store) AppendMessage(convID string, msg model.Message) error {
	return s.UpdateConversation(convID, func(c model.Conversation) model.Conversation {
		return c.WithMessage(msg)
	})
}

// UpdateLastAssistant applies fn to the last message of convID if that
// message is an assistant message. It reports whether fn was applied; a
// missing conversation or a non-assistant last message is a no-op.
func (s *Store) UpdateLastAssistant(convID string, fn func(model.Message) model.Message) bool {
	applied := false
	s.update(func(next *State) (bool, error) {
		idx := next.indexOf(convID)
		if idx < 0 {
			return false, nil
		}
		conv := next.Conversations[idx]
		last, ok := conv.LastMessage()
		if !ok || !last.IsAssistant() {
			return false, nil
		}
		next.Conversations[idx], applied = conv.WithLastMessage(fn)
		return applied, nil
	})
	return applied
}

// UpdateMessage applies fn to message msgID in conversation convID and
// reports whether the message was found.
func (s *Store) UpdateMessage(convID, msgID string, fn func(model.Message) model.Message) bool {
	applied := false
	s.update(func(next *State) (bool, error) {
		idx := next.indexOf(convID)
		if idx < 0 {
			return false, nil
		}
		next.Conversations[idx], applied = next.Conversations[idx].WithMessageByID(msgID, fn)
		return applied, nil
	})
	return applied
}

// =============================================================================
// BACKEND STATUS
// =============================================================================

// SetBackendStatus records the health probe result and returns the previous
// status.
func (s *Store) SetBackendStatus(status BackendStatus) BackendStatus {
	var prev BackendStatus
	s.update(func(next *State) (bool, error) {
		prev = next.Backend
		if prev == status {
			return false, nil
		}
		next.Backend = status
		return true, nil
	})
	return prev
}

// BackendStatus returns the last recorded health status.
func (s *Store) BackendStatus() BackendStatus {
	return s.Snapshot().Backend
}

func cloneAgents(agents []model.Agent) []model.Agent {
	out := make([]model.Agent, len(agents))
	for i, a := range agents {
		out[i] = a.Clone()
	}
	return out
}
