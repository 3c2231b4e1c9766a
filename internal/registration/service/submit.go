package service

import (
	"context"
	"errors"

	"gtind/internal/registration/models"
	"gtind/internal/registry"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/platform/sentinel"
	"gtind/pkg/requestcontext"
)

// Provider vocabulary for submission payloads. The registry expects the
// Dutch labels, not codes or booleans.
const (
	statusActive          = "Actief"
	languageDutch         = "Nederlands"
	countryNetherlands    = "Nederland"
	consumerUnitYes       = "Ja"
	consumerUnitNo        = "Nee"
	packagingDefault      = "Doos"
	measurementKilogram   = "Kilogram (1 kg)"
	measurementGram       = "Gram (0.001 kg)"
	descriptionMaxLength  = 300
	gramsPerKilogram      = 1000
)

// SubmitReport distinguishes what was sent from what was rejected locally.
// Rejected items were never transmitted and stay in their current state.
type SubmitReport struct {
	InvocationID string       `json:"invocation_id,omitempty"`
	Submitted    []string     `json:"submitted"`
	Rejected     []FailedItem `json:"rejected"`
	Skipped      []string     `json:"skipped"`
}

type batchItem struct {
	assignment *models.Assignment
	product    registry.Product
}

// SubmitRegistration assembles a batch for the product references and
// submits it to the registry. Assignments that fail local validation are
// dropped from the batch and reported, not fatal to the rest. On success
// every included assignment is stamped with the invocation handle and moved
// to pending_registration; on submit failure nothing transitions.
func (s *Service) SubmitRegistration(ctx context.Context, productRefs []string) (*SubmitReport, error) {
	report := &SubmitReport{}
	var batch []batchItem

	for _, ref := range productRefs {
		a, err := s.store.FindByProductRef(ctx, ref)
		if err != nil {
			report.Rejected = append(report.Rejected, FailedItem{ProductRef: ref, Reason: "no GTIN assigned"})
			continue
		}
		if a.ExternalRegistration {
			s.metrics.IncrementSubmission("skipped_external")
			report.Skipped = append(report.Skipped, ref)
			continue
		}
		if !a.Status.CanTransitionTo(models.StatusPendingRegistration) {
			report.Rejected = append(report.Rejected, FailedItem{
				ProductRef: ref,
				Reason:     "already awaiting registration results",
			})
			continue
		}

		product, err := s.buildProduct(ctx, a)
		if err != nil {
			s.metrics.IncrementSubmission("validation_rejected")
			report.Rejected = append(report.Rejected, FailedItem{ProductRef: ref, Reason: err.Error()})
			continue
		}
		batch = append(batch, batchItem{assignment: a, product: product})
	}

	if len(batch) == 0 {
		return report, dErrors.New(dErrors.CodeValidationFailed, "no products eligible for submission")
	}

	products := make([]registry.Product, len(batch))
	for i, item := range batch {
		item.product.Index = i + 1
		products[i] = item.product
	}

	invocationID, err := s.registry.SubmitBatch(ctx, products)
	if err != nil {
		s.logger.ErrorContext(ctx, "batch submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"batch_size", len(products),
			"error", err,
		)
		return report, err
	}

	now := requestcontext.Now(ctx)
	report.InvocationID = invocationID
	for _, item := range batch {
		a := item.assignment
		prev := a.Status
		if err := a.MarkSubmitted(invocationID, now); err != nil {
			return report, err
		}
		if err := s.store.Update(ctx, a, prev); err != nil {
			return report, dErrors.Wrap(err, dErrors.CodeInternal, "assignment update after submit failed")
		}
		s.metrics.IncrementSubmission("submitted")
		report.Submitted = append(report.Submitted, a.ProductRef)
	}

	s.logger.InfoContext(ctx, "registration batch submitted",
		"request_id", requestcontext.RequestID(ctx),
		"invocation_id", invocationID,
		"submitted", len(report.Submitted),
		"rejected", len(report.Rejected),
	)
	s.emitAudit(ctx, "registration_submitted", map[string]any{
		"invocation_id": invocationID,
		"submitted":     report.Submitted,
		"rejected":      len(report.Rejected),
	})
	return report, nil
}

// ForceUpdate re-submits an already-registered product's data to correct it
// at the registry. Externally registered assignments are refused unless
// force is set.
func (s *Service) ForceUpdate(ctx context.Context, productRef string, m models.Metadata, force bool) (*SubmitReport, error) {
	a, err := s.Assignment(ctx, productRef)
	if err != nil {
		return nil, err
	}
	if a.ExternalRegistration && !force {
		return nil, dErrors.Newf(dErrors.CodeBadRequest,
			"product %s is externally registered; set force to update it anyway", productRef)
	}

	if _, err := s.UpdateMetadata(ctx, productRef, m); err != nil {
		return nil, err
	}
	a, err = s.Assignment(ctx, productRef)
	if err != nil {
		return nil, err
	}

	if !a.Status.CanTransitionTo(models.StatusPendingRegistration) {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation,
			"product %s is %s and cannot be re-submitted", productRef, a.Status)
	}

	product, err := s.buildProduct(ctx, a)
	if err != nil {
		return nil, err
	}
	product.Index = 1

	invocationID, err := s.registry.SubmitBatch(ctx, []registry.Product{product})
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	prev := a.Status
	if err := a.MarkSubmitted(invocationID, now); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, a, prev); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment update after submit failed")
	}

	s.emitAudit(ctx, "registration_forced", map[string]any{
		"product_ref":   productRef,
		"gtin":          a.GTIN,
		"invocation_id": invocationID,
		"force":         force,
	})
	return &SubmitReport{InvocationID: invocationID, Submitted: []string{productRef}}, nil
}

// buildProduct merges the assignment's stored fields with fresh catalog
// metadata into one wire entry, translating to the provider vocabulary and
// validating the enumerated fields against active reference items.
func (s *Service) buildProduct(ctx context.Context, a *models.Assignment) (registry.Product, error) {
	info, err := s.catalog.Product(ctx, a.ProductRef)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return registry.Product{}, dErrors.Newf(dErrors.CodeValidationFailed,
				"no product metadata for %s", a.ProductRef)
		}
		return registry.Product{}, dErrors.Wrap(err, dErrors.CodeInternal, "catalog lookup failed")
	}

	packaging := a.PackagingType
	if packaging == "" {
		packaging = packagingDefault
	}

	netContent, unit := normalizeNetContent(a.NetContent, info.WeightKG)

	if err := s.refdata.ValidateSubmission(ctx, packaging, unit); err != nil {
		return registry.Product{}, err
	}

	consumerUnit := consumerUnitNo
	if a.ConsumerUnit {
		consumerUnit = consumerUnitYes
	}

	description := info.Name
	if len(description) > descriptionMaxLength {
		description = description[:descriptionMaxLength]
	}

	product := registry.Product{
		GTIN:                a.GTIN,
		Status:              statusActive,
		Description:         description,
		BrandName:           info.Brand,
		Language:            languageDutch,
		TargetMarketCountry: countryNetherlands,
		ConsumerUnit:        consumerUnit,
		PackagingType:       packaging,
		ContractNumber:      a.ContractNumber,
		ImageURL:            info.ImageURL,
	}
	if a.GPCCode != nil {
		product.GPC = *a.GPCCode
	} else if info.CategoryRef != "" {
		if mapping, err := s.refdata.Mapping(ctx, info.CategoryRef); err == nil {
			product.GPC = mapping.GPCCode
		}
	}
	if netContent != nil {
		product.NetContent = netContent
		product.MeasurementUnit = unit
	}
	return product, nil
}

// normalizeNetContent prefers the stored weight over the catalog's and
// converts sub-kilogram values to grams, the unit granularity the provider
// expects for light products.
func normalizeNetContent(stored, fromCatalog *float64) (*float64, string) {
	value := stored
	if value == nil {
		value = fromCatalog
	}
	if value == nil || *value <= 0 {
		return nil, measurementKilogram
	}
	v := *value
	if v < 1 {
		v *= gramsPerKilogram
		return &v, measurementGram
	}
	return &v, measurementKilogram
}
