// Package handler exposes the reference data and category mapping CRUD
// endpoints. The models already carry JSON tags and validation, so this
// layer stays thin.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gtind/internal/refdata/models"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/platform/httputil"
	"gtind/pkg/requestcontext"
)

// Service defines the reference data operations the handler exposes.
type Service interface {
	List(ctx context.Context, category models.Category, activeOnly bool) ([]*models.Item, error)
	Save(ctx context.Context, item *models.Item) (int64, error)
	Delete(ctx context.Context, id int64) error
	Mapping(ctx context.Context, categoryRef string) (*models.CategoryMapping, error)
	SaveMapping(ctx context.Context, m *models.CategoryMapping) (int64, error)
	ListMappings(ctx context.Context) ([]*models.CategoryMapping, error)
	DeleteMapping(ctx context.Context, categoryRef string) error
}

// Handler wires reference data endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a reference data handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts reference data endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/reference-data", h.HandleList)
	r.Post("/reference-data", h.HandleSave)
	r.Delete("/reference-data/{id}", h.HandleDelete)
	r.Get("/reference-data/mappings", h.HandleListMappings)
	r.Post("/reference-data/mappings", h.HandleSaveMapping)
	r.Get("/reference-data/mappings/{categoryRef}", h.HandleGetMapping)
	r.Delete("/reference-data/mappings/{categoryRef}", h.HandleDeleteMapping)
}

// HandleList handles GET /reference-data requests. Category is required;
// active=true narrows to items submissions may use.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	category := models.Category(r.URL.Query().Get("category"))
	if !category.Valid() {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unknown reference category %q", category))
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	items, err := h.service.List(r.Context(), category, activeOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

// HandleSave handles POST /reference-data requests.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	item, ok := httputil.Decode[models.Item](w, r, h.logger, requestID)
	if !ok {
		return
	}

	id, err := h.service.Save(ctx, &item)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "reference item saved",
		"request_id", requestID,
		"id", id,
		"category", item.Category,
		"label", item.LabelNL,
	)
	httputil.WriteJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// HandleDelete handles DELETE /reference-data/{id} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id must be numeric"))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListMappings handles GET /reference-data/mappings requests.
func (h *Handler) HandleListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.service.ListMappings(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, mappings)
}

// HandleGetMapping handles GET /reference-data/mappings/{categoryRef} requests.
func (h *Handler) HandleGetMapping(w http.ResponseWriter, r *http.Request) {
	categoryRef := chi.URLParam(r, "categoryRef")
	mapping, err := h.service.Mapping(r.Context(), categoryRef)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, mapping)
}

// HandleSaveMapping handles POST /reference-data/mappings requests.
func (h *Handler) HandleSaveMapping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	mapping, ok := httputil.Decode[models.CategoryMapping](w, r, h.logger, requestID)
	if !ok {
		return
	}

	id, err := h.service.SaveMapping(ctx, &mapping)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// HandleDeleteMapping handles DELETE /reference-data/mappings/{categoryRef} requests.
func (h *Handler) HandleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMapping(r.Context(), chi.URLParam(r, "categoryRef")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
