// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package feedback records votes and reference sources on assistant messages.
package feedback

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
	"github.com/RedTheFoxx/OraLLMStudio/internal/session"
)

// Recorder writes feedback into the session store.
type Recorder struct {
	store *session.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewRecorder creates a Recorder bound to store.
func NewRecorder(store *session.Store, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, log: log, now: time.Now}
}

// SubmitVote records a vote on messageID in the active conversation and
// appends a Feedback record. An unknown message or a missing active
// conversation is ignored. Only up and down are accepted.
func (r *Recorder) SubmitVote(messageID string, vote model.Vote, reason, voterName string) error {
	if vote != model.VoteUp && vote != model.VoteDown {
		return fmt.Errorf("invalid vote %q", vote)
	}
	conv, ok := r.store.Snapshot().Active()
	if !ok {
		return nil
	}
	if _, ok := conv.MessageByID(messageID); !ok {
		return nil
	}

	record := model.Feedback{
		MessageID:   messageID,
		Vote:        vote,
		Reason:      strings.TrimSpace(reason),
		VoterName:   strings.TrimSpace(voterName),
		SubmittedAt: r.now(),
	}
	err := r.store.UpdateConversation(conv.ID, func(c model.Conversation) model.Conversation {
		c, _ = c.WithMessageByID(messageID, func(m model.Message) model.Message {
			m.Vote = vote
			return m
		})
		return c.WithFeedback(record)
	})
	if err != nil {
		// Deleted between snapshot and update.
		return nil
	}
	r.log.Info().
		Str("conversation", conv.ID).
		Str("message", messageID).
		Str("vote", string(vote)).
		Msg("feedback recorded")
	return nil
}

// AttachSources sets the reference sources of messageID in the active
// conversation. It reports whether the message was found.
func (r *Recorder) AttachSources(messageID string, sources []string) bool {
	conv, ok := r.store.Snapshot().Active()
	if !ok {
		return false
	}
	return r.store.UpdateMessage(conv.ID, messageID, func(m model.Message) model.Message {
		m.Sources = slices.Clone(sources)
		return m
	})
}

// History returns the feedback records of a conversation in submission order.
func (r *Recorder) History(convID string) []model.Feedback {
	conv, ok := r.store.Snapshot().Conversation(convID)
	if !ok {
		return nil
	}
	return slices.Clone(conv.Feedback)
}

// Sources returns the messages of the active conversation that carry
// reference sources.
func (r *Recorder) Sources() []model.Message {
	conv, ok := r.store.Snapshot().Active()
	if !ok {
		return nil
	}
	var out []model.Message
	for _, m := range conv.Messages {
		if m.HasSources() {
			out = append(out, m.Clone())
		}
	}
	return out
}
