// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package server exposes the knowledge base over HTTP: POST /chat answers
// questions, GET /health reports component status.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/docent/answer"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vector"
)

// Asker answers questions within a conversation.
// *answer.Answerer satisfies it; tests substitute lighter fakes.
type Asker interface {
	Ask(ctx context.Context, question, conversationID string) (*core.Answer, error)
}

var _ Asker = (*answer.Answerer)(nil)

// Server handles the HTTP chat API.
type Server struct {
	asker   Asker
	vectors vector.Store
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a server over an asker and the vector store backing it.
// The vector store is only used for health reporting.
func New(asker Asker, vectors vector.Store, opts ...Option) (*Server, error) {
	if asker == nil {
		return nil, ErrAskerRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}

	s := &Server{
		asker:   asker,
		vectors: vectors,
		logger:  slog.Default().With("component", "server"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Run serves the API on addr until ctx is cancelled, then shuts down
// gracefully, draining in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown failed", "err", err)
		}
	}()

	s.logger.Info("serving chat API", "addr", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type chatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id"`
}

type chatResponse struct {
	Answer         string              `json:"answer"`
	ConversationID string              `json:"conversation_id"`
	Sources        []core.ScoredSource `json:"sources"`
	ProcessingTime float64             `json:"processing_time"`
	Cached         bool                `json:"cached"`
	Status         string              `json:"status"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}

	result, err := s.asker.Ask(r.Context(), req.Query, req.ConversationID)
	if err != nil {
		if errors.Is(err, answer.ErrEmptyQuestion) {
			s.writeError(w, http.StatusBadRequest, "query cannot be empty")
			return
		}
		// Internal detail stays in the log, not the response.
		s.logger.Error("answering question failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "an error occurred processing your request")
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []core.ScoredSource{}
	}
	s.writeJSON(w, http.StatusOK, chatResponse{
		Answer:         result.Text,
		ConversationID: result.ConversationID,
		Sources:        sources,
		ProcessingTime: result.ProcessingTime.Seconds(),
		Cached:         result.Cached,
		Status:         "success",
	})
}

type healthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:   "healthy",
		Services: map[string]string{"vector_store": "ok"},
	}
	status := http.StatusOK

	if _, err := s.vectors.ListCollections(ctx); err != nil {
		s.logger.Warn("vector store health check failed", "err", err)
		resp.Status = "degraded"
		resp.Services["vector_store"] = "unreachable"
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, resp)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message, Status: "error"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encoding response failed", "err", err)
	}
}
