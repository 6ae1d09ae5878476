// Package stream exposes the push boundary: a long-lived SSE channel where
// each frame is one JSON-serialized insight.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fraudlens/internal/hub"
)

// Handler wires the stream endpoints to the hub.
type Handler struct {
	hub        *hub.Hub
	sourceKind string
	logger     *slog.Logger
}

// New constructs the stream handler.
func New(h *hub.Hub, sourceKind string, logger *slog.Logger) *Handler {
	return &Handler{hub: h, sourceKind: sourceKind, logger: logger}
}

// NewRouter mounts all public endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Register mounts the stream endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ws", h.HandleStream)
	r.Get("/healthz", h.HandleHealth)
}

// HandleStream serves one subscriber connection. Catch-up frames are queued
// by Subscribe before any live insight can reach the connection, so the
// client always sees them first and in original order. The subscriber is
// torn down when the request context ends or the hub drops it.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-sub.Frames():
			if !ok {
				// Hub already dropped this connection.
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
				h.logger.Debug("subscriber write failed", "subscriber", sub.ID(), "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// HandleHealth reports liveness and basic stream stats.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "healthy",
		"service":     "fraudlens",
		"source":      h.sourceKind,
		"subscribers": h.hub.Len(),
	})
}
