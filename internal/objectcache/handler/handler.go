// Package handler serves read-only views of open session caches.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks SessionSource

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"causeway/internal/objectcache/service"
	dErrors "causeway/pkg/domain-errors"
	"causeway/pkg/platform/httputil"
)

// SessionSource exposes the caches of open sessions.
type SessionSource interface {
	SessionIDs() []string
	SessionSnapshot(id string) ([]service.AdapterView, bool)
}

type Handler struct {
	sessions SessionSource
	logger   *slog.Logger
}

func New(sessions SessionSource, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, logger: logger}
}

// Register mounts the diagnostics routes under /debug.
func (h *Handler) Register(r chi.Router) {
	r.Route("/debug", func(r chi.Router) {
		r.Get("/sessions", h.handleListSessions)
		r.Get("/sessions/{sessionID}/adapters", h.handleSessionAdapters)
	})
}

type sessionSummary struct {
	ID       string `json:"id"`
	Adapters int    `json:"adapters"`
}

type adaptersResponse struct {
	SessionID string                `json:"session_id"`
	Count     int                   `json:"count"`
	Adapters  []service.AdapterView `json:"adapters"`
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := h.sessions.SessionIDs()
	summaries := make([]sessionSummary, 0, len(ids))
	for _, id := range ids {
		views, ok := h.sessions.SessionSnapshot(id)
		if !ok {
			// closed since listing
			continue
		}
		summaries = append(summaries, sessionSummary{ID: id, Adapters: len(views)})
	}
	httputil.WriteJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleSessionAdapters(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	views, ok := h.sessions.SessionSnapshot(id)
	if !ok {
		if h.logger != nil {
			h.logger.DebugContext(r.Context(), "snapshot of unknown session", "session_id", id)
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "session not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, adaptersResponse{SessionID: id, Count: len(views), Adapters: views})
}
