// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

func testAgents() []model.Agent {
	return []model.Agent{
		{ID: "1", Name: "General Assistant", SystemPrompt: "You are helpful.", Active: true},
		{ID: "2", Name: "Code Expert", SystemPrompt: "You write code.", Active: false},
	}
}

func newSelectedStore(t *testing.T) (*Store, model.Conversation) {
	t.Helper()
	store := NewStore(testAgents())
	conv, err := store.SelectAgent("1")
	require.NoError(t, err)
	return store, conv
}

// =============================================================================
// AGENT SELECTION
// =============================================================================

func TestSelectAgent_ResetsConversations(t *testing.T) {
	store, first := newSelectedStore(t)
	_, err := store.NewConversation()
	require.NoError(t, err)

	conv, err := store.SelectAgent("2")
	require.NoError(t, err)

	snap := store.Snapshot()
	require.Len(t, snap.Conversations, 1)
	assert.Equal(t, conv.ID, snap.ActiveID)
	assert.Equal(t, "2", conv.AgentID)
	assert.Equal(t, DefaultTitle, conv.Title)
	assert.NotEqual(t, first.ID, conv.ID)
}

func TestSelectAgent_Unknown(t *testing.T) {
	store, _ := newSelectedStore(t)

	_, err := store.SelectAgent("missing")
	assert.ErrorIs(t, err, ErrAgentNotFound)

	snap := store.Snapshot()
	_, ok := snap.Active()
	assert.False(t, ok)
	assert.Empty(t, snap.SelectedAgentID)
}

func TestNewConversation_RequiresAgent(t *testing.T) {
	store := NewStore(testAgents())
	_, err := store.NewConversation()
	assert.ErrorIs(t, err, ErrNoAgentSelected)
}

func TestNewConversation_PrependsAndActivates(t *testing.T) {
	store, first := newSelectedStore(t)

	conv, err := store.NewConversation()
	require.NoError(t, err)

	snap := store.Snapshot()
	require.Len(t, snap.Conversations, 2)
	assert.Equal(t, conv.ID, snap.Conversations[0].ID)
	assert.Equal(t, first.ID, snap.Conversations[1].ID)
	assert.Equal(t, conv.ID, snap.ActiveID)
	assert.Equal(t, "New conversation 2", conv.Title)
}

// =============================================================================
// DELETION
// =============================================================================

func TestDeleteConversation_ActiveMovesToNextRemaining(t *testing.T) {
	store, first := newSelectedStore(t)
	second, _ := store.NewConversation()
	third, _ := store.NewConversation()
	// display order: third, second, first; active: third

	require.NoError(t, store.DeleteConversation(third.ID))
	assert.Equal(t, second.ID, store.Snapshot().ActiveID)

	require.NoError(t, store.DeleteConversation(second.ID))
	assert.Equal(t, first.ID, store.Snapshot().ActiveID)

	require.NoError(t, store.DeleteConversation(first.ID))
	snap := store.Snapshot()
	assert.Empty(t, snap.ActiveID)
	assert.Empty(t, snap.Conversations)
}

func TestDeleteConversation_InactiveKeepsActive(t *testing.T) {
	store, first := newSelectedStore(t)
	second, _ := store.NewConversation()

	require.NoError(t, store.DeleteConversation(first.ID))
	assert.Equal(t, second.ID, store.Snapshot().ActiveID)
}

func TestDeleteConversation_Unknown(t *testing.T) {
	store, _ := newSelectedStore(t)
	assert.ErrorIs(t, store.DeleteConversation("nope"), ErrConversationNotFound)
}

func TestDeleteAll(t *testing.T) {
	store, first := newSelectedStore(t)
	second, _ := store.NewConversation()

	ids := store.DeleteAll()

	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
	snap := store.Snapshot()
	assert.Empty(t, snap.Conversations)
	assert.Empty(t, snap.ActiveID)
	assert.Nil(t, store.DeleteAll())
}

// =============================================================================
// MESSAGES
// =============================================================================

func TestUpdateLastAssistant_RoleCheck(t *testing.T) {
	store, conv := newSelectedStore(t)
	require.NoError(t, store.AppendMessage(conv.ID, model.NewUserMessage("hi", nil)))

	applied := store.UpdateLastAssistant(conv.ID, func(m model.Message) model.Message {
		m.Content += "x"
		return m
	})
	assert.False(t, applied, "delta must not touch a user message")

	require.NoError(t, store.AppendMessage(conv.ID, model.NewAssistantPlaceholder()))
	for _, d := range []string{"Hel", "lo"} {
		d := d
		assert.True(t, store.UpdateLastAssistant(conv.ID, func(m model.Message) model.Message {
			m.Content += d
			return m
		}))
	}

	got, _ := store.Snapshot().Conversation(conv.ID)
	last, _ := got.LastMessage()
	assert.Equal(t, "Hello", last.Content)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestUpdateLastAssistant_MissingConversation(t *testing.T) {
	store, conv := newSelectedStore(t)
	require.NoError(t, store.DeleteConversation(conv.ID))

	applied := store.UpdateLastAssistant(conv.ID, func(m model.Message) model.Message { return m })
	assert.False(t, applied)
}

func TestSnapshotsAreImmutable(t *testing.T) {
	store, conv := newSelectedStore(t)
	require.NoError(t, store.AppendMessage(conv.ID, model.NewAssistantPlaceholder()))

	before := store.Snapshot()
	store.UpdateLastAssistant(conv.ID, func(m model.Message) model.Message {
		m.Content = "changed"
		return m
	})
	require.NoError(t, store.Rename(conv.ID, "Renamed"))

	old, _ := before.Conversation(conv.ID)
	last, _ := old.LastMessage()
	assert.Empty(t, last.Content)
	assert.Equal(t, DefaultTitle, old.Title)
	assert.Greater(t, store.Snapshot().Version, before.Version)
}

func TestRename(t *testing.T) {
	store, conv := newSelectedStore(t)

	require.NoError(t, store.Rename(conv.ID, "Budget review"))
	require.NoError(t, store.Rename(conv.ID, "   "))

	got, _ := store.Snapshot().Conversation(conv.ID)
	assert.Equal(t, "Budget review", got.Title)
	assert.ErrorIs(t, store.Rename("missing", "x"), ErrConversationNotFound)
}

// =============================================================================
// MISC
// =============================================================================

func TestSetBackendStatus(t *testing.T) {
	store := NewStore(nil)
	assert.Equal(t, BackendUnknown, store.BackendStatus())

	prev := store.SetBackendStatus(BackendOffline)
	assert.Equal(t, BackendUnknown, prev)
	assert.Equal(t, BackendOffline, store.BackendStatus())
	assert.Equal(t, "offline", store.BackendStatus().String())
}

func TestSubscribe(t *testing.T) {
	store := NewStore(testAgents())

	var mu sync.Mutex
	var versions []uint64
	unsubscribe := store.Subscribe(func(st *State) {
		mu.Lock()
		versions = append(versions, st.Version)
		mu.Unlock()
	})

	_, err := store.SelectAgent("1")
	require.NoError(t, err)
	store.SetBackendStatus(BackendOnline)
	unsubscribe()
	store.SetBackendStatus(BackendOffline)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1, 2}, versions)
}

func TestActiveAgents(t *testing.T) {
	store := NewStore(testAgents())
	active := store.Snapshot().ActiveAgents()
	require.Len(t, active, 1)
	assert.Equal(t, "1", active[0].ID)
}

func TestConcurrentUpdates(t *testing.T) {
	store, conv := newSelectedStore(t)
	require.NoError(t, store.AppendMessage(conv.ID, model.NewAssistantPlaceholder()))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.UpdateLastAssistant(conv.ID, func(m model.Message) model.Message {
				m.Content += "x"
				return m
			})
			_ = store.Snapshot()
		}()
	}
	wg.Wait()

	got, _ := store.Snapshot().Conversation(conv.ID)
	last, _ := got.LastMessage()
	assert.Len(t, last.Content, 50)
}
