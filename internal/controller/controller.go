// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/RedTheFoxx/OraLLMStudio/internal/backend"
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
	"github.com/RedTheFoxx/OraLLMStudio/internal/session"
	"github.com/RedTheFoxx/OraLLMStudio/internal/stream"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTemperature is the sampling temperature sent with each turn.
	DefaultTemperature = 0.2

	// DefaultSimulatedDelay paces simulated tokens.
	DefaultSimulatedDelay = 50 * time.Millisecond
)

// User-visible notice texts.
const (
	noticeOffline     = "The backend is not available. Please try again later."
	noticeSendFailed  = "An error occurred while sending your message."
	noticeRecvFailed  = "An error occurred while receiving the response."
	noticeNoAgent     = "No agent selected. Pick an agent before chatting."
	noticeNoActive    = "No active conversation. Start a new one first."
	noticeEmpty       = "Type a message or attach a file."
	noticeInFlight    = "Please wait for the current reply to finish."
	noticeOnline      = "Backend connection restored."
	noticeWentOffline = "Backend is offline. Messages cannot be sent."
)

// =============================================================================
// TRANSPORT
// =============================================================================

// Transport delivers turns to the backend. *backend.Client satisfies it.
type Transport interface {
	SendTurn(ctx context.Context, messages []model.Message, agent model.Agent, temperature float64, streaming bool) (*backend.TurnResult, error)
	CheckHealth(ctx context.Context) bool
}

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Controller.
type Option func(*Controller)

// WithTransport sets the backend. Without one, replies are simulated.
func WithTransport(t Transport) Option {
	return func(c *Controller) { c.transport = t }
}

// WithTemperature sets the initial temperature. Out-of-range values are ignored.
func WithTemperature(t float64) Option {
	return func(c *Controller) {
		if t >= 0 && t <= 1 {
			c.temperature = t
		}
	}
}

// WithStreaming selects streaming or buffered replies.
func WithStreaming(on bool) Option {
	return func(c *Controller) { c.streaming = on }
}

// WithSimulatedDelay sets the pacing of simulated tokens.
func WithSimulatedDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.simDelay = d
		}
	}
}

// WithEventSink sets the event receiver.
func WithEventSink(sink EventSink) Option {
	return func(c *Controller) { c.sink = sink }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithDecoder overrides the stream decoder.
func WithDecoder(d *stream.Decoder) Option {
	return func(c *Controller) {
		if d != nil {
			c.decoder = d
		}
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// turn is the bookkeeping for one in-flight turn.
type turn struct {
	state  TurnState
	cancel context.CancelFunc
}

// Controller runs chat turns against a session store.
type Controller struct {
	store     *session.Store
	transport Transport
	decoder   *stream.Decoder
	sink      EventSink
	log       zerolog.Logger
	simDelay  time.Duration

	mu          sync.Mutex
	temperature float64
	streaming   bool
	inflight    map[string]*turn
}

// SendRequest is one user submission.
type SendRequest struct {
	Text       string
	Attachment *model.Attachment
}

// New creates a Controller bound to store.
func New(store *session.Store, opts ...Option) *Controller {
	c := &Controller{
		store:       store,
		decoder:     stream.NewDecoder(),
		log:         zerolog.Nop(),
		simDelay:    DefaultSimulatedDelay,
		temperature: DefaultTemperature,
		streaming:   true,
		inflight:    make(map[string]*turn),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the session store.
func (c *Controller) Store() *session.Store {
	return c.store
}

// Simulated reports whether replies are produced locally.
func (c *Controller) Simulated() bool {
	return c.transport == nil
}

// Temperature returns the current temperature.
func (c *Controller) Temperature() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.temperature
}

// SetTemperature changes the temperature for subsequent turns.
func (c *Controller) SetTemperature(t float64) error {
	if t < 0 || t > 1 {
		return ErrInvalidTemperature
	}
	c.mu.Lock()
	c.temperature = t
	c.mu.Unlock()
	return nil
}

// Streaming reports whether turns request a stream.
func (c *Controller) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// SetStreaming toggles streaming for subsequent turns.
func (c *Controller) SetStreaming(on bool) {
	c.mu.Lock()
	c.streaming = on
	c.mu.Unlock()
}

// State returns the turn state of a conversation.
func (c *Controller) State(convID string) TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.inflight[convID]; ok {
		return t.state
	}
	return StateIdle
}

// InFlight reports whether any turn is running.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight) > 0
}

// Cancel aborts the in-flight turn of convID, if any. The turn settles with
// context.Canceled and keeps its partial content.
func (c *Controller) Cancel(convID string) bool {
	c.mu.Lock()
	t, ok := c.inflight[convID]
	c.mu.Unlock()
	if ok {
		t.cancel()
	}
	return ok
}

func (c *Controller) cancelAll() {
	c.mu.Lock()
	for _, t := range c.inflight {
		t.cancel()
	}
	c.mu.Unlock()
}

func (c *Controller) setState(convID string, st TurnState) {
	c.mu.Lock()
	if t, ok := c.inflight[convID]; ok {
		t.state = st
	}
	c.mu.Unlock()
}

func (c *Controller) emit(ev Event) {
	if c.sink != nil {
		c.sink(ev)
	}
}

func (c *Controller) notify(level NoticeLevel, text string, err error) {
	c.emit(NoticeRaised{Notice: Notice{Level: level, Text: text, Err: err}})
}

// =============================================================================
// SEND
// =============================================================================

// Send runs one turn on the active conversation and blocks until it settles.
// A guard error is returned without touching the conversation. Once the turn
// starts, its outcome is returned and also reported as TurnSettled.
func (c *Controller) Send(ctx context.Context, req SendRequest) error {
	snap := c.store.Snapshot()
	conv, ok := snap.Active()
	if !ok {
		c.notify(NoticeWarning, noticeNoActive, ErrNoActiveConversation)
		return ErrNoActiveConversation
	}
	text := strings.TrimSpace(req.Text)
	if text == "" && req.Attachment == nil {
		c.notify(NoticeWarning, noticeEmpty, ErrEmptyMessage)
		return ErrEmptyMessage
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if _, busy := c.inflight[conv.ID]; busy {
		c.mu.Unlock()
		c.notify(NoticeWarning, noticeInFlight, ErrTurnInFlight)
		return ErrTurnInFlight
	}
	if c.transport != nil && c.store.BackendStatus() == session.BackendOffline {
		c.mu.Unlock()
		c.notify(NoticeError, noticeOffline, ErrBackendOffline)
		return ErrBackendOffline
	}
	c.inflight[conv.ID] = &turn{state: StateAwaitingFirstByte, cancel: cancel}
	temperature, streaming := c.temperature, c.streaming
	c.mu.Unlock()

	mode := ModeSimulated
	if c.transport != nil {
		mode = ModeBuffered
		if streaming {
			mode = ModeStreaming
		}
	}

	r := &run{
		c:      c,
		convID: conv.ID,
		mode:   mode,
		start:  time.Now(),
		log:    c.log.With().Str("conversation", conv.ID).Str("mode", mode.String()).Logger(),
	}
	return r.execute(ctx, text, req.Attachment, temperature)
}

// =============================================================================
// HEALTH
// =============================================================================

// RefreshHealth probes the backend and records the result. Transitions raise
// a notice and a HealthChanged event.
func (c *Controller) RefreshHealth(ctx context.Context) session.BackendStatus {
	status := session.BackendOnline
	if c.transport != nil && !c.transport.CheckHealth(ctx) {
		status = session.BackendOffline
	}
	prev := c.store.SetBackendStatus(status)
	if prev == status {
		return status
	}
	c.log.Info().Str("previous", prev.String()).Str("current", status.String()).Msg("backend status changed")
	c.emit(HealthChanged{Previous: prev, Current: status})
	switch {
	case status == session.BackendOffline:
		c.notify(NoticeError, noticeWentOffline, ErrBackendOffline)
	case prev == session.BackendOffline:
		c.notify(NoticeSuccess, noticeOnline, nil)
	}
	return status
}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// NewConversation starts a conversation with the selected agent.
func (c *Controller) NewConversation() (model.Conversation, error) {
	conv, err := c.store.NewConversation()
	if err != nil {
		c.notify(NoticeWarning, noticeNoAgent, err)
		return conv, err
	}
	c.notify(NoticeInfo, "New conversation created.", nil)
	return conv, nil
}

// SetActive switches the displayed conversation. In-flight turns elsewhere
// keep running.
func (c *Controller) SetActive(id string) error {
	return c.store.SetActive(id)
}

// Rename retitles a conversation.
func (c *Controller) Rename(id, title string) error {
	return c.store.Rename(id, title)
}

// DeleteConversation removes a conversation and cancels its in-flight turn.
func (c *Controller) DeleteConversation(id string) error {
	c.Cancel(id)
	if err := c.store.DeleteConversation(id); err != nil {
		return err
	}
	c.notify(NoticeInfo, "Conversation deleted.", nil)
	return nil
}

// DeleteAll removes every conversation and cancels all in-flight turns.
func (c *Controller) DeleteAll() int {
	c.cancelAll()
	n := len(c.store.DeleteAll())
	if n > 0 {
		c.notify(NoticeInfo, "All conversations deleted.", nil)
	}
	return n
}

// SelectAgent switches agent, which discards every conversation and cancels
// all in-flight turns.
func (c *Controller) SelectAgent(id string) (model.Conversation, error) {
	c.cancelAll()
	conv, err := c.store.SelectAgent(id)
	if err != nil {
		c.notify(NoticeWarning, noticeNoAgent, err)
		return conv, err
	}
	return conv, nil
}
