// Package handler wires the GTIN assignment and registration endpoints to
// the orchestrator.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gtind/internal/registration/models"
	regservice "gtind/internal/registration/service"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/platform/httputil"
	"gtind/pkg/requestcontext"
)

// Service defines the orchestrator operations the handler exposes.
type Service interface {
	AssignBulk(ctx context.Context, productRefs []string, contractNumber string, external bool) *regservice.AssignReport
	Unassign(ctx context.Context, productRefs []string) (*regservice.UnassignReport, error)
	MarkExternal(ctx context.Context, productRef, gtinRaw, contractNumber string) (*models.Assignment, error)
	Assignment(ctx context.Context, productRef string) (*models.Assignment, error)
	ListAssignments(ctx context.Context) ([]*models.Assignment, error)
	SubmitRegistration(ctx context.Context, productRefs []string) (*regservice.SubmitReport, error)
	ReconcileResults(ctx context.Context, invocationID string) (*regservice.ReconcileReport, error)
	PendingInvocations(ctx context.Context) ([]string, error)
	ForceUpdate(ctx context.Context, productRef string, m models.Metadata, force bool) (*regservice.SubmitReport, error)
}

// Handler wires registration endpoints to the orchestrator.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registration handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registration endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/gtin/assign", h.HandleAssign)
	r.Post("/gtin/unassign", h.HandleUnassign)
	r.Post("/gtin/external", h.HandleExternal)
	r.Get("/gtin", h.HandleList)
	r.Get("/gtin/{productRef}", h.HandleGet)
	r.Post("/registration/submit", h.HandleSubmit)
	r.Post("/registration/check", h.HandleCheck)
	r.Get("/registration/pending", h.HandlePending)
	r.Post("/registration/force-update", h.HandleForceUpdate)
}

// HandleAssign handles POST /gtin/assign requests.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[AssignRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	report := h.service.AssignBulk(ctx, req.ProductRefs, req.ContractNumber, req.External)
	status := http.StatusOK
	if len(report.Assigned) == 0 {
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteJSON(w, status, report)
}

// HandleUnassign handles POST /gtin/unassign requests.
func (h *Handler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[UnassignRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.Unassign(ctx, req.ProductRefs)
	if err != nil {
		h.logger.ErrorContext(ctx, "unassign failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleExternal handles POST /gtin/external requests.
func (h *Handler) HandleExternal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[ExternalRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	a, err := h.service.MarkExternal(ctx, req.ProductRef, req.GTIN, req.ContractNumber)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromAssignment(a))
}

// HandleList handles GET /gtin requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.ListAssignments(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, FromAssignment(a))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /gtin/{productRef} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	productRef := chi.URLParam(r, "productRef")
	if productRef == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "product reference is required"))
		return
	}
	a, err := h.service.Assignment(r.Context(), productRef)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssignment(a))
}

// HandleSubmit handles POST /registration/submit requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[SubmitRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.SubmitRegistration(ctx, req.ProductRefs)
	if err != nil {
		h.logger.ErrorContext(ctx, "registration submit failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, report)
}

// HandleCheck handles POST /registration/check requests.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[CheckRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.ReconcileResults(ctx, req.InvocationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandlePending handles GET /registration/pending requests.
func (h *Handler) HandlePending(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.PendingInvocations(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, PendingResponse{InvocationIDs: ids})
}

// HandleForceUpdate handles POST /registration/force-update requests.
func (h *Handler) HandleForceUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[ForceUpdateRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.ForceUpdate(ctx, req.ProductRef, req.Data.ToMetadata(), req.Force)
	if err != nil {
		h.logger.ErrorContext(ctx, "force update failed",
			"request_id", requestID,
			"product_ref", req.ProductRef,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, report)
}
