package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"gtind/internal/registration/ports"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/platform/httputil"
	"gtind/pkg/requestcontext"
)

// CatalogHandler accepts product metadata pushed by the upstream catalog
// system. Deployments that pull from a live catalog instead simply do not
// mount it.
type CatalogHandler struct {
	catalog *ports.StaticCatalog
	logger  *slog.Logger
}

func NewCatalog(catalog *ports.StaticCatalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// Register mounts the catalog feed endpoint on the router.
func (h *CatalogHandler) Register(r chi.Router) {
	r.Put("/catalog/products/{productRef}", h.HandlePut)
}

// ProductRequest is the HTTP request body for PUT /catalog/products/{productRef}.
type ProductRequest struct {
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	ImageURL    string   `json:"image_url"`
	CategoryRef string   `json:"category_ref"`
	WeightKG    *float64 `json:"weight_kg"`
}

// HandlePut handles PUT /catalog/products/{productRef} requests.
func (h *CatalogHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productRef := chi.URLParam(r, "productRef")

	req, ok := httputil.Decode[ProductRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name is required"))
		return
	}

	h.catalog.Put(productRef, ports.ProductInfo{
		Name:        req.Name,
		Brand:       req.Brand,
		ImageURL:    req.ImageURL,
		CategoryRef: req.CategoryRef,
		WeightKG:    req.WeightKG,
	})
	w.WriteHeader(http.StatusNoContent)
}
