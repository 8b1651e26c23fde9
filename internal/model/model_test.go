// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
)

// =============================================================================
// CONVERSATION COPY-ON-WRITE TESTS
// =============================================================================

func TestConversation_WithMessageDoesNotAlias(t *testing.T) {
	base := NewConversation("agent-1", "First")
	base = base.WithMessage(NewUserMessage("hello", nil))

	a := base.WithMessage(NewAssistantPlaceholder())
	b := base.WithMessage(NewUserMessage("other", nil))

	if base.MessageCount() != 1 {
		t.Fatalf("base.MessageCount() = %d, want 1", base.MessageCount())
	}
	if a.Messages[1].Role != RoleAssistant {
		t.Errorf("a.Messages[1].Role = %q, want %q", a.Messages[1].Role, RoleAssistant)
	}
	if b.Messages[1].Role != RoleUser {
		t.Errorf("b.Messages[1].Role = %q, want %q", b.Messages[1].Role, RoleUser)
	}
}

func TestConversation_WithLastMessage(t *testing.T) {
	conv := NewConversation("agent-1", "t").
		WithMessage(NewUserMessage("hi", nil)).
		WithMessage(NewAssistantPlaceholder())

	updated, ok := conv.WithLastMessage(func(m Message) Message {
		m.Content += "Hello"
		return m
	})
	if !ok {
		t.Fatal("WithLastMessage returned ok = false")
	}

	last, _ := updated.LastMessage()
	if last.Content != "Hello" {
		t.Errorf("last.Content = %q, want %q", last.Content, "Hello")
	}
	orig, _ := conv.LastMessage()
	if orig.Content != "" {
		t.Errorf("original last.Content = %q, want empty", orig.Content)
	}
}

func TestConversation_WithLastMessageEmpty(t *testing.T) {
	conv := NewConversation("agent-1", "t")
	_, ok := conv.WithLastMessage(func(m Message) Message { return m })
	if ok {
		t.Error("WithLastMessage on empty conversation returned ok = true")
	}
}

func TestConversation_WithMessageByID(t *testing.T) {
	msg := NewUserMessage("hi", nil)
	conv := NewConversation("agent-1", "t").WithMessage(msg)

	updated, ok := conv.WithMessageByID(msg.ID, func(m Message) Message {
		m.Vote = VoteUp
		return m
	})
	if !ok {
		t.Fatal("WithMessageByID did not find message")
	}
	if got := updated.Messages[0].Vote; got != VoteUp {
		t.Errorf("Vote = %q, want %q", got, VoteUp)
	}
	if conv.Messages[0].Vote != VoteNone {
		t.Error("original message was mutated")
	}

	if _, ok := conv.WithMessageByID("missing", func(m Message) Message { return m }); ok {
		t.Error("WithMessageByID(missing) returned ok = true")
	}
}

func TestConversation_WithTitle(t *testing.T) {
	conv := NewConversation("agent-1", "Old")

	if got := conv.WithTitle("  ").Title; got != "Old" {
		t.Errorf("blank title: Title = %q, want %q", got, "Old")
	}
	if got := conv.WithTitle(" New ").Title; got != "New" {
		t.Errorf("Title = %q, want %q", got, "New")
	}
}

func TestConversation_FeedbackAccumulates(t *testing.T) {
	conv := NewConversation("agent-1", "t")
	conv = conv.WithFeedback(Feedback{MessageID: "m1", Vote: VoteDown, Reason: "unhelpful"})
	conv = conv.WithFeedback(Feedback{MessageID: "m1", Vote: VoteUp})
	conv = conv.WithFeedback(Feedback{MessageID: "m2", Vote: VoteUp})

	if len(conv.Feedback) != 3 {
		t.Fatalf("len(Feedback) = %d, want 3", len(conv.Feedback))
	}
	history := conv.FeedbackFor("m1")
	if len(history) != 2 || history[0].Vote != VoteDown || history[1].Vote != VoteUp {
		t.Errorf("FeedbackFor(m1) = %+v", history)
	}
}

func TestConversation_Preview(t *testing.T) {
	conv := NewConversation("agent-1", "t").
		WithMessage(NewUserMessage("  what is\nresponsive   design about?", nil))

	if got := conv.Preview(100); got != "what is responsive design about?" {
		t.Errorf("Preview = %q", got)
	}
	if got := conv.Preview(10); got != "what is..." {
		t.Errorf("Preview(10) = %q, want %q", got, "what is...")
	}
}

func TestConversation_CloneIsDeep(t *testing.T) {
	msg := NewUserMessage("hi", &Attachment{Name: "a.txt", Size: 3})
	msg.Sources = []string{"doc1"}
	conv := NewConversation("agent-1", "t").WithMessage(msg)

	clone := conv.Clone()
	clone.Messages[0].Sources[0] = "changed"
	clone.Messages[0].Attachment.Name = "b.txt"

	if conv.Messages[0].Sources[0] != "doc1" {
		t.Error("Clone shares Sources with original")
	}
	if conv.Messages[0].Attachment.Name != "a.txt" {
		t.Error("Clone shares Attachment with original")
	}
}

// =============================================================================
// MESSAGE / VOTE TESTS
// =============================================================================

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestParseVote(t *testing.T) {
	tests := []struct {
		in      string
		want    Vote
		wantErr bool
	}{
		{"up", VoteUp, false},
		{"+1", VoteUp, false},
		{"down", VoteDown, false},
		{"bad", VoteDown, false},
		{"sideways", VoteNone, true},
	}

	for _, tt := range tests {
		got, err := ParseVote(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVote(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseVote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAgent_CanAddExamplePrompt(t *testing.T) {
	a := Agent{ExamplePrompts: []string{"1", "2", "3", "4"}}
	if !a.CanAddExamplePrompt() {
		t.Error("CanAddExamplePrompt with 4 prompts = false, want true")
	}
	a.ExamplePrompts = append(a.ExamplePrompts, "5")
	if a.CanAddExamplePrompt() {
		t.Error("CanAddExamplePrompt with 5 prompts = true, want false")
	}
}
