// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/RedTheFoxx/OraLLMStudio/internal/backend"
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
	"github.com/RedTheFoxx/OraLLMStudio/internal/session"
	"github.com/RedTheFoxx/OraLLMStudio/internal/stream"
)

// run carries one turn from start to settlement.
type run struct {
	c      *Controller
	convID string
	msgID  string
	mode   Mode
	start  time.Time
	log    zerolog.Logger
	stats  TurnStats
}

func (r *run) execute(ctx context.Context, text string, att *model.Attachment, temperature float64) error {
	c := r.c
	user := model.NewUserMessage(text, att)
	placeholder := model.NewAssistantPlaceholder()
	r.msgID = placeholder.ID
	r.stats.Mode = r.mode

	if err := c.store.AppendMessage(r.convID, user); err != nil {
		return r.settle(err, noticeSendFailed)
	}
	if err := c.store.AppendMessage(r.convID, placeholder); err != nil {
		return r.settle(err, noticeSendFailed)
	}
	c.emit(TurnStarted{
		ConversationID:     r.convID,
		UserMessageID:      user.ID,
		AssistantMessageID: placeholder.ID,
		Mode:               r.mode,
	})
	r.log.Debug().Str("message", placeholder.ID).Msg("turn started")

	snap := c.store.Snapshot()
	conv, ok := snap.Conversation(r.convID)
	if !ok {
		return r.settle(session.ErrConversationNotFound, "")
	}
	agent, ok := snap.Agent(conv.AgentID)
	if !ok {
		return r.settle(ErrNoAgentSelected, noticeNoAgent)
	}

	if c.transport == nil {
		return r.simulate(ctx, agent, text)
	}

	result, err := c.transport.SendTurn(ctx, historyBefore(conv, placeholder.ID), agent, temperature, r.mode == ModeStreaming)
	if err != nil {
		return r.settle(err, noticeSendFailed)
	}
	if result.IsStream() {
		return r.consume(ctx, result.Stream)
	}
	if result.Reply == nil {
		return r.settle(&backend.TransportError{Type: backend.ErrTypeInvalidResponse, Message: "empty reply"}, noticeRecvFailed)
	}
	r.stats.Model = result.Reply.Model
	r.replace(result.Reply.Message)
	return r.settle(nil, "")
}

// consume pumps a live stream into the placeholder.
func (r *run) consume(ctx context.Context, body io.ReadCloser) error {
	defer body.Close()
	// A blocked Read only returns once the body is closed.
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	r.enterStreaming()

	var failure error
	r.c.decoder.Consume(ctx, body, stream.Handler{
		OnDelta: r.append,
		OnError: func(err error) { failure = err },
	})
	if failure != nil {
		return r.settle(failure, noticeRecvFailed)
	}
	return r.settle(nil, "")
}

// simulate types a canned reply into the placeholder at a fixed pace.
func (r *run) simulate(ctx context.Context, agent model.Agent, text string) error {
	r.enterStreaming()
	limiter := rate.NewLimiter(rate.Every(r.c.simDelay), 1)
	for _, tok := range SimulatedTokens(SimulatedReply(agent, text)) {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return r.settle(err, noticeRecvFailed)
		}
		r.append(tok)
	}
	return r.settle(nil, "")
}

func (r *run) enterStreaming() {
	r.c.setState(r.convID, StateStreaming)
	r.c.emit(TurnStreaming{ConversationID: r.convID, Latency: time.Since(r.start)})
}

// append adds delta to the last message of the turn's conversation. The
// conversation is looked up again on every call; deltas for a conversation
// that no longer exists, or whose last message is not an assistant message,
// are dropped.
func (r *run) append(delta string) {
	applied := r.c.store.UpdateLastAssistant(r.convID, func(m model.Message) model.Message {
		m.Content += delta
		return m
	})
	if !applied {
		return
	}
	if r.stats.Deltas == 0 {
		r.stats.FirstDelta = time.Since(r.start)
	}
	r.stats.Deltas++
	r.stats.Chars += len(delta)
	r.c.emit(DeltaApplied{ConversationID: r.convID, MessageID: r.msgID, Delta: delta})
}

// replace sets the placeholder content wholesale.
func (r *run) replace(content string) {
	applied := r.c.store.UpdateMessage(r.convID, r.msgID, func(m model.Message) model.Message {
		m.Content = content
		return m
	})
	if !applied {
		return
	}
	r.stats.FirstDelta = time.Since(r.start)
	r.stats.Deltas = 1
	r.stats.Chars = len(content)
	r.c.emit(DeltaApplied{ConversationID: r.convID, MessageID: r.msgID, Delta: content})
}

// settle records the outcome, clears the in-flight flag and reports it.
// Partial content stays in the conversation.
func (r *run) settle(err error, notice string) error {
	c := r.c
	r.stats.Duration = time.Since(r.start)

	c.mu.Lock()
	if t, ok := c.inflight[r.convID]; ok {
		t.state = StateSettled
	}
	delete(c.inflight, r.convID)
	c.mu.Unlock()

	ev := r.log.Info()
	if err != nil {
		ev = r.log.Warn().Err(err)
	}
	ev.Int("deltas", r.stats.Deltas).
		Int("chars", r.stats.Chars).
		Dur("first_delta", r.stats.FirstDelta).
		Dur("duration", r.stats.Duration).
		Msg("turn settled")

	c.emit(TurnSettled{ConversationID: r.convID, MessageID: r.msgID, Err: err, Stats: r.stats})

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		c.notify(NoticeInfo, "Reply cancelled.", err)
	case notice != "":
		c.notify(NoticeError, notice, err)
	}
	return err
}

// historyBefore returns the messages preceding msgID, without empty
// assistant messages.
func historyBefore(conv model.Conversation, msgID string) []model.Message {
	out := make([]model.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		if m.ID == msgID {
			break
		}
		if m.IsAssistant() && m.Content == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
