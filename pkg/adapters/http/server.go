// Package http exposes the dialogue engine as a JSON API, streams transcript
// diffs over SSE and proxies every other path through the offline cache.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/carpintaria"
	"github.com/aretw0/carpintaria/internal/logging"
	"github.com/aretw0/carpintaria/pkg/adapters/memory"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
	"github.com/aretw0/carpintaria/pkg/runner"
	"github.com/aretw0/carpintaria/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Server serves the chat API.
type Server struct {
	engine   ports.DialogueEngine
	sessions *session.Manager
	streams  *StreamManager
	proxy    http.Handler
	metrics  http.Handler
	logger   *slog.Logger
}

// StepResponse is the outcome of a transition. Deferred renders are already
// applied; TypingDelayMs tells clients how long to animate before showing them.
type StepResponse struct {
	State         *domain.ConversationState `json:"state"`
	Actions       []domain.ActionRequest    `json:"actions,omitempty"`
	TypingDelayMs int64                     `json:"typing_delay_ms,omitempty"`
}

type Option func(*Server)

// WithSessions sets the session manager. Defaults to an in-memory store.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// WithProxy serves every path outside the API through h.
func WithProxy(h http.Handler) Option {
	return func(s *Server) {
		s.proxy = h
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine ports.DialogueEngine, opts ...Option) (http.Handler, error) {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(memory.NewStore(), session.WithLogger(s.logger))
	}
	s.streams = NewStreamManager(s.logger)

	doc, err := Spec()
	if err != nil {
		return nil, err
	}
	router, err := newRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build openapi router: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.getHealth)
	r.Get("/info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"app":         "carpintaria-http",
			"version":     strings.TrimSpace(carpintaria.Version),
			"api_version": doc.Info.Version,
		})
	})
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(enableCORS)
		r.Use(s.validateRequests(router))

		r.Post("/sessions", s.createSession)
		r.Get("/sessions/{id}", s.getSession)
		r.Delete("/sessions/{id}", s.deleteSession)
		r.Post("/sessions/{id}/open", s.openSession)
		r.Post("/sessions/{id}/close", s.closeSession)
		r.Post("/sessions/{id}/select", s.selectOption)
		r.Post("/sessions/{id}/messages", s.sendMessage)
		r.Get("/graph", s.getGraph)
		r.Get("/events", s.subscribeEvents)
	})

	if s.proxy != nil {
		r.NotFound(s.proxy.ServeHTTP)
		r.MethodNotAllowed(s.proxy.ServeHTTP)
	}
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	resp, err := s.step(r.Context(), id, true, func(state *domain.ConversationState) (*ports.Step, error) {
		return s.engine.Open(r.Context(), state)
	})
	if err != nil {
		s.fail(w, "createSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "getSession", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, "deleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	s.existing(w, r, "openSession", func(state *domain.ConversationState) (*ports.Step, error) {
		return s.engine.Open(r.Context(), state)
	})
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	s.existing(w, r, "closeSession", func(state *domain.ConversationState) (*ports.Step, error) {
		return s.engine.Close(r.Context(), state)
	})
}

func (s *Server) selectOption(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.existing(w, r, "selectOption", func(state *domain.ConversationState) (*ports.Step, error) {
		return s.engine.Select(r.Context(), state, body.Index)
	})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text, err := runner.SanitizeInput(body.Text)
	if err != nil {
		s.logger.Warn("sendMessage: input rejected", "error", err, "size", len(body.Text))
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err))
		return
	}
	s.existing(w, r, "sendMessage", func(state *domain.ConversationState) (*ports.Step, error) {
		return s.engine.Submit(r.Context(), state, text)
	})
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Graph())
}

// existing runs a transition on a session that must already exist.
func (s *Server) existing(w http.ResponseWriter, r *http.Request, op string, fn func(*domain.ConversationState) (*ports.Step, error)) {
	id := chi.URLParam(r, "id")
	resp, err := s.step(r.Context(), id, false, fn)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// step applies fn under the session lock and broadcasts the resulting diff.
// Unless create is set, a missing session fails with domain.ErrSessionNotFound.
func (s *Server) step(ctx context.Context, id string, create bool, fn func(*domain.ConversationState) (*ports.Step, error)) (*StepResponse, error) {
	transition := s.sessions.TransitionExisting
	if create {
		transition = s.sessions.Transition
	}
	res, err := transition(ctx, s.engine, id, fn)
	if err != nil {
		return nil, err
	}

	if diff := domain.Diff(res.Prev, res.State); diff != nil {
		if payload, err := json.Marshal(diff); err == nil {
			s.streams.Broadcast(id, string(payload))
		}
	}
	return &StepResponse{
		State:         res.State,
		Actions:       res.Actions,
		TypingDelayMs: res.TypingDelay.Milliseconds(),
	}, nil
}

func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	sessionID := r.URL.Query().Get("session_id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	s.logger.Debug("SSE: subscribed", "session_id", sessionID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrOptionNotAvailable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
