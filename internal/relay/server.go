// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/RedTheFoxx/OraLLMStudio/internal/backend"
	"github.com/RedTheFoxx/OraLLMStudio/internal/metrics"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultSystemPrompt is used when a request carries none.
	DefaultSystemPrompt = "You are a helpful assistant."

	// DefaultTemperature is used when a request carries none.
	DefaultTemperature = 0.2

	// MaxRequestBytes caps a chat request body.
	MaxRequestBytes = 1 << 20

	// MaxMessages caps the history length of one request.
	MaxMessages = 100

	doneSentinel    = "[DONE]"
	shutdownTimeout = 30 * time.Second
)

// =============================================================================
// SERVER
// =============================================================================

// Server serves the chat protocol on top of a Provider.
type Server struct {
	provider Provider
	docs     *DocumentLoader
	metrics  *metrics.Metrics
	log      zerolog.Logger
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics enables collection and mounts GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithDocuments sets the loader for agent documents.
func WithDocuments(d *DocumentLoader) Option {
	return func(s *Server) { s.docs = d }
}

// NewServer builds the router for the given provider.
func NewServer(p Provider, opts ...Option) *Server {
	s := &Server{provider: p, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.docs == nil {
		s.docs = NewDocumentLoader("", DefaultMaxContextTokens, s.log)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/chat", s.handleChat)
		r.Post("/chat/stream", s.handleChatStream)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("provider", s.provider.Name()).
			Str("model", s.provider.Model()).Msg("relay listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("relay shutdown failed: %w", err)
	}
	return nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

// requestLogger logs each request and records HTTP metrics.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		if s.metrics != nil {
			s.metrics.RequestsInFlight.Inc()
			defer s.metrics.RequestsInFlight.Dec()
		}

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, r.Method, strconv.Itoa(status), elapsed)
		}

		ev := s.log.Info()
		if status >= http.StatusInternalServerError {
			ev = s.log.Error()
		}
		ev.Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", elapsed).
			Msg("request")
	})
}

// cors allows browser front-ends on other origins.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, backend.HealthStatus{
		Status:  "healthy",
		Message: "Backend is running",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	prompt, err := s.decodePrompt(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	completion, err := s.provider.Complete(r.Context(), prompt)
	if err != nil {
		s.upstreamFailed(err, "buffered")
		writeJSON(w, http.StatusInternalServerError, errorBody("API request failed: "+err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, backend.BufferedReply{
		Message: completion.Content,
		Model:   completion.Model,
	})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	prompt, err := s.decodePrompt(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	writeFrame := func(key, value string) error {
		data, err := json.Marshal(map[string]string{key: value})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	provider := s.provider.Name()
	if s.metrics != nil {
		s.metrics.StreamsActive.Inc()
		defer s.metrics.StreamsActive.Dec()
	}

	start := time.Now()
	first := true
	err = s.provider.Stream(r.Context(), prompt, func(delta string) error {
		if s.metrics != nil {
			if first {
				s.metrics.TimeToFirstDelta.WithLabelValues(provider).Observe(time.Since(start).Seconds())
			}
			s.metrics.StreamDeltasTotal.WithLabelValues(provider).Inc()
		}
		first = false
		return writeFrame("content", delta)
	})
	if err != nil {
		s.upstreamFailed(err, "stream")
		_ = writeFrame("error", err.Error())
		return
	}
	_ = writeFrame("content", doneSentinel)
}

// decodePrompt reads a ChatRequest and builds the provider prompt: the
// system prompt, extended with any documents, followed by the messages.
func (s *Server) decodePrompt(w http.ResponseWriter, r *http.Request) (Prompt, error) {
	var req struct {
		backend.ChatRequest
		Temperature *float64 `json:"temperature"`
	}
	body := http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return Prompt{}, fmt.Errorf("invalid request body: %w", err)
	}

	if len(req.Messages) == 0 {
		return Prompt{}, errors.New("messages must not be empty")
	}
	if len(req.Messages) > MaxMessages {
		return Prompt{}, fmt.Errorf("too many messages (max %d)", MaxMessages)
	}

	temperature := DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if temperature < 0 || temperature > 2 {
		return Prompt{}, fmt.Errorf("temperature %.2f out of range [0, 2]", temperature)
	}

	system := req.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	system, n := s.docs.SystemPrompt(system, req.Documents)
	if s.metrics != nil {
		s.metrics.DocumentsAttached.Observe(float64(n))
	}

	messages := make([]Message, 0, len(req.Messages)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: system})
	for i, m := range req.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return Prompt{}, fmt.Errorf("message %d: invalid role %q", i, m.Role)
		}
		messages = append(messages, Message{Role: m.Role, Content: m.Content})
	}

	return Prompt{Messages: messages, Temperature: temperature}, nil
}

func (s *Server) upstreamFailed(err error, mode string) {
	if s.metrics != nil {
		s.metrics.UpstreamErrorsTotal.WithLabelValues(s.provider.Name(), mode).Inc()
	}
	if errors.Is(err, context.Canceled) {
		s.log.Debug().Str("mode", mode).Msg("client went away")
		return
	}
	s.log.Error().Err(err).Str("provider", s.provider.Name()).Str("mode", mode).Msg("upstream request failed")
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
