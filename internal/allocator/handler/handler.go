// Package handler exposes the contract range administration endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gtind/internal/allocator/models"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/platform/httputil"
	"gtind/pkg/requestcontext"
)

// Service defines the allocator operations the handler exposes.
type Service interface {
	ListRanges(ctx context.Context) ([]*models.Range, error)
	ResetLastUsed(ctx context.Context, contractNumber string) error
	SetLastUsed(ctx context.Context, contractNumber, value string) error
}

// Syncer refreshes the ranges from the registry.
type Syncer interface {
	SyncRanges(ctx context.Context) ([]*models.Range, error)
}

// Handler wires range endpoints to the allocator.
type Handler struct {
	service Service
	syncer  Syncer
	logger  *slog.Logger
}

// New constructs a range handler with its dependencies.
func New(service Service, syncer Syncer, logger *slog.Logger) *Handler {
	return &Handler{service: service, syncer: syncer, logger: logger}
}

// Register mounts range endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ranges", h.HandleList)
	r.Post("/ranges/sync", h.HandleSync)
	r.Post("/ranges/{contract}/reset", h.HandleReset)
	r.Put("/ranges/{contract}/last-used", h.HandleSetLastUsed)
}

// RangeResponse is the HTTP representation of one contract range.
type RangeResponse struct {
	ContractNumber string    `json:"contract_number"`
	StartNumber    string    `json:"start_number"`
	EndNumber      string    `json:"end_number"`
	LastUsed       *string   `json:"last_used,omitempty"`
	Capacity       int64     `json:"capacity"`
	Used           int64     `json:"used"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func fromRange(r *models.Range) *RangeResponse {
	return &RangeResponse{
		ContractNumber: r.ContractNumber,
		StartNumber:    r.StartNumber,
		EndNumber:      r.EndNumber,
		LastUsed:       r.LastUsed,
		Capacity:       r.Capacity,
		Used:           r.Used(),
		UpdatedAt:      r.UpdatedAt,
	}
}

func fromRanges(ranges []*models.Range) []*RangeResponse {
	out := make([]*RangeResponse, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, fromRange(r))
	}
	return out
}

// HandleList handles GET /ranges requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ranges, err := h.service.ListRanges(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRanges(ranges))
}

// HandleSync handles POST /ranges/sync requests.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ranges, err := h.syncer.SyncRanges(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "range sync failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRanges(ranges))
}

// HandleReset handles POST /ranges/{contract}/reset requests. Clearing the
// high-water mark bypasses collision checks; future allocations may collide
// if assignments in the range still exist.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contract := chi.URLParam(r, "contract")
	if contract == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "contract number is required"))
		return
	}
	if err := h.service.ResetLastUsed(ctx, contract); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "range counter reset",
		"request_id", requestcontext.RequestID(ctx),
		"contract", contract,
	)
	w.WriteHeader(http.StatusNoContent)
}

// SetLastUsedRequest is the HTTP request body for PUT /ranges/{contract}/last-used.
type SetLastUsedRequest struct {
	Value string `json:"value"`
}

// HandleSetLastUsed handles PUT /ranges/{contract}/last-used requests.
func (h *Handler) HandleSetLastUsed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contract := chi.URLParam(r, "contract")
	if contract == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "contract number is required"))
		return
	}

	req, ok := httputil.Decode[SetLastUsedRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if req.Value == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "value is required"))
		return
	}

	if err := h.service.SetLastUsed(ctx, contract, req.Value); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "range counter overridden",
		"request_id", requestcontext.RequestID(ctx),
		"contract", contract,
		"value", req.Value,
	)
	w.WriteHeader(http.StatusNoContent)
}
