// Package handler exposes the registry connection probe.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gtind/pkg/platform/httputil"
	"gtind/pkg/requestcontext"
)

// Prober checks connectivity and credentials against the registry.
type Prober interface {
	Status(ctx context.Context) error
}

// Handler wires the registry status endpoint.
type Handler struct {
	prober Prober
	mode   string
	logger *slog.Logger
}

func New(prober Prober, mode string, logger *slog.Logger) *Handler {
	return &Handler{prober: prober, mode: mode, logger: logger}
}

// Register mounts the status endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/registry/status", h.HandleStatus)
}

// HandleStatus handles GET /registry/status requests. It exercises the full
// auth path, so a passing probe means credentials and connectivity are good.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.prober.Status(ctx); err != nil {
		h.logger.WarnContext(ctx, "registry probe failed",
			"request_id", requestcontext.RequestID(ctx),
			"mode", h.mode,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "connected",
		"mode":   h.mode,
	})
}
