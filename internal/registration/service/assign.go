package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"gtind/internal/registration/models"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/platform/sentinel"
	"gtind/pkg/requestcontext"
)

// AssignReport is the per-item outcome of a bulk assignment.
type AssignReport struct {
	Assigned []AssignedItem `json:"assigned"`
	Failed   []FailedItem   `json:"failed"`
}

type AssignedItem struct {
	ProductRef string `json:"product_ref"`
	GTIN       string `json:"gtin"`
}

type FailedItem struct {
	ProductRef string `json:"product_ref"`
	Reason     string `json:"reason"`
}

// Assign issues the next free identifier for the contract and binds it to
// the product. With external set, the record is created directly in the
// terminal registered state and will never be submitted.
func (s *Service) Assign(ctx context.Context, productRef, contractNumber string, external bool) (*models.Assignment, error) {
	if contractNumber == "" {
		contractNumber = s.defaultContract
	}
	if contractNumber == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no contract number available")
	}

	if _, err := s.store.FindByProductRef(ctx, productRef); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "product %s already has a GTIN assigned", productRef)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment lookup failed")
	}

	gtin12, err := s.allocator.AllocateNext(ctx, contractNumber)
	if err != nil {
		s.metrics.IncrementAssignment("rejected")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var a *models.Assignment
	if external {
		a, err = models.NewExternalAssignment(uuid.NewString(), productRef, gtin12, contractNumber, now)
	} else {
		a, err = models.NewAssignment(uuid.NewString(), productRef, gtin12, contractNumber, now)
	}
	if err != nil {
		return nil, err
	}

	s.fillCatalogDefaults(ctx, a)

	if err := s.store.Create(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeDuplicateIdentifier, "GTIN %s is already assigned", gtin12)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment create failed")
	}

	outcome := "assigned"
	if external {
		outcome = "external"
	}
	s.metrics.IncrementAssignment(outcome)
	s.logger.InfoContext(ctx, "gtin assigned",
		"request_id", requestcontext.RequestID(ctx),
		"product_ref", productRef,
		"gtin", a.GTIN,
		"contract", contractNumber,
		"external", external,
	)
	s.emitAudit(ctx, "gtin_assigned", map[string]any{
		"product_ref": productRef,
		"gtin":        a.GTIN,
		"contract":    contractNumber,
		"external":    external,
	})
	return a, nil
}

// AssignBulk assigns identifiers to several products, reporting each outcome
// individually. One failure never aborts the rest of the batch.
func (s *Service) AssignBulk(ctx context.Context, productRefs []string, contractNumber string, external bool) *AssignReport {
	report := &AssignReport{}
	for _, ref := range productRefs {
		a, err := s.Assign(ctx, ref, contractNumber, external)
		if err != nil {
			report.Failed = append(report.Failed, FailedItem{ProductRef: ref, Reason: err.Error()})
			continue
		}
		report.Assigned = append(report.Assigned, AssignedItem{ProductRef: ref, GTIN: a.GTIN})
	}
	s.logger.InfoContext(ctx, "bulk assignment finished",
		"request_id", requestcontext.RequestID(ctx),
		"assigned", len(report.Assigned),
		"failed", len(report.Failed),
	)
	return report
}

// MarkExternal backfills an identifier that was registered through a channel
// outside this system. The caller supplies the identifier; nothing is
// allocated and nothing will ever be submitted for it.
func (s *Service) MarkExternal(ctx context.Context, productRef, gtinRaw, contractNumber string) (*models.Assignment, error) {
	if contractNumber == "" {
		contractNumber = s.defaultContract
	}
	if _, err := s.store.FindByProductRef(ctx, productRef); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "product %s already has a GTIN assigned", productRef)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment lookup failed")
	}

	now := requestcontext.Now(ctx)
	a, err := models.NewExternalAssignment(uuid.NewString(), productRef, gtinRaw, contractNumber, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeDuplicateIdentifier, "GTIN %s is already assigned", a.GTIN)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment create failed")
	}

	s.metrics.IncrementAssignment("external")
	s.emitAudit(ctx, "gtin_marked_external", map[string]any{
		"product_ref": productRef,
		"gtin":        a.GTIN,
		"contract":    a.ContractNumber,
	})
	return a, nil
}

// UnassignReport is the per-item outcome of a bulk unassignment.
type UnassignReport struct {
	Removed []string `json:"removed"`
	Missing []string `json:"missing"`
}

// Unassign deletes the assignments. The identifiers are not returned to
// their ranges; an unassigned number is simply never reissued automatically.
func (s *Service) Unassign(ctx context.Context, productRefs []string) (*UnassignReport, error) {
	report := &UnassignReport{}
	for _, ref := range productRefs {
		err := s.store.Delete(ctx, ref)
		switch {
		case err == nil:
			report.Removed = append(report.Removed, ref)
		case errors.Is(err, sentinel.ErrNotFound):
			report.Missing = append(report.Missing, ref)
		default:
			return report, dErrors.Wrap(err, dErrors.CodeInternal, "assignment delete failed")
		}
	}
	s.emitAudit(ctx, "gtin_unassigned", map[string]any{
		"removed": report.Removed,
		"missing": report.Missing,
	})
	return report, nil
}

// Assignment returns one product's assignment.
func (s *Service) Assignment(ctx context.Context, productRef string) (*models.Assignment, error) {
	a, err := s.store.FindByProductRef(ctx, productRef)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "product %s has no GTIN assigned", productRef)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment lookup failed")
	}
	return a, nil
}

// ListAssignments returns every assignment ordered by identifier.
func (s *Service) ListAssignments(ctx context.Context) ([]*models.Assignment, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment list failed")
	}
	return out, nil
}

// UpdateMetadata merges the mutable submission fields onto the assignment.
// The input type carries no identifier or contract field, so neither can
// change through this path.
func (s *Service) UpdateMetadata(ctx context.Context, productRef string, m models.Metadata) (*models.Assignment, error) {
	a, err := s.Assignment(ctx, productRef)
	if err != nil {
		return nil, err
	}
	prev := a.Status
	a.ApplyMetadata(m, requestcontext.Now(ctx))
	if err := s.store.Update(ctx, a, prev); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "assignment for %s changed concurrently", productRef)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment update failed")
	}
	return a, nil
}

// fillCatalogDefaults seeds the submission fields from product metadata when
// the catalog knows the product. A missing catalog entry is not an error;
// fields stay empty until updated or submitted.
func (s *Service) fillCatalogDefaults(ctx context.Context, a *models.Assignment) {
	info, err := s.catalog.Product(ctx, a.ProductRef)
	if err != nil {
		return
	}
	a.NetContent = info.WeightKG
	if info.WeightKG != nil {
		a.MeasurementUnit = measurementKilogram
	}
	if info.CategoryRef != "" {
		if mapping, err := s.refdata.Mapping(ctx, info.CategoryRef); err == nil {
			code := mapping.GPCCode
			a.GPCCode = &code
		}
	}
}
