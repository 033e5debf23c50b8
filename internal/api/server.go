package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harborline/quartermast/internal/bus"
	"github.com/harborline/quartermast/internal/thread"
)

// Ingestor accepts an inbound email for processing, satisfied by
// *orchestrator.Orchestrator. The HTTP path exists for testing and manual
// injection; production traffic arrives over NATS.
type Ingestor interface {
	HandleInbound(ctx context.Context, evt bus.InboundEmail) error
}

type Server struct {
	router *chi.Mux
	port   int
	store  thread.Store
	ingest Ingestor
}

func NewServer(port int, apiToken string, store thread.Store, ingest Ingestor) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		store:  store,
		ingest: ingest,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/status", s.status)
	router.Get("/api/v1/threads", s.listThreads)
	router.Get("/api/v1/threads/{id}", s.getThread)

	router.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/api/v1/messages", s.postMessage)
		r.Post("/api/v1/threads/{id}/close", s.closeThread)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without the configured bearer token.
// An empty token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
				if got != token {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "quartermast",
		"status":  "ok",
	})
}

func (s *Server) listThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list threads")
		return
	}
	if threads == nil {
		threads = []*thread.Thread{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads, "count": len(threads)})
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.store.Get(r.Context(), id)
	if errors.Is(err, thread.ErrNotFound) {
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load thread")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// postMessage injects one inbound email into the pipeline. Duplicate message
// ids are already handled inside the pipeline, so a replayed POST is safe.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var evt bus.InboundEmail
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if evt.ThreadID == "" || evt.MessageID == "" {
		writeError(w, http.StatusBadRequest, "thread_id and message_id are required")
		return
	}

	if err := s.ingest.HandleInbound(r.Context(), evt); err != nil {
		slog.Error("message injection failed", "thread_id", evt.ThreadID, "message_id", evt.MessageID, "error", err)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"thread_id":  evt.ThreadID,
		"message_id": evt.MessageID,
		"status":     "processed",
	})
}

// closeThread archives a thread. Closed threads stay readable; a later
// message on the same thread id still processes against the stored context.
func (s *Server) closeThread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.Archive(r.Context(), id)
	if errors.Is(err, thread.ErrNotFound) {
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to archive thread")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"thread_id": id, "status": "closed"})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
