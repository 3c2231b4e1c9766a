// Package service manages the curated reference data (packaging types,
// measurement units, target-market countries) and the category-to-GPC
// mappings that registration payloads are validated and translated against.
package service

import (
	"context"
	"errors"
	"log/slog"

	"gtind/internal/refdata/models"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/platform/sentinel"
	"gtind/pkg/requestcontext"
)

// Store is the persistence contract for reference items and mappings.
type Store interface {
	List(ctx context.Context, category models.Category, activeOnly bool) ([]*models.Item, error)
	Save(ctx context.Context, item *models.Item) (int64, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)

	FindMapping(ctx context.Context, categoryRef string) (*models.CategoryMapping, error)
	SaveMapping(ctx context.Context, m *models.CategoryMapping) (int64, error)
	ListMappings(ctx context.Context) ([]*models.CategoryMapping, error)
	DeleteMapping(ctx context.Context, categoryRef string) error
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns reference items, optionally filtered by category and active
// flag, in stable category/label order.
func (s *Service) List(ctx context.Context, category models.Category, activeOnly bool) ([]*models.Item, error) {
	if category != "" && !category.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown reference category %q", category)
	}
	items, err := s.store.List(ctx, category, activeOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reference items")
	}
	return items, nil
}

// Save validates and persists an item, returning its id.
func (s *Service) Save(ctx context.Context, item *models.Item) (int64, error) {
	if err := item.Validate(); err != nil {
		return 0, err
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = requestcontext.Now(ctx)
	}
	id, err := s.store.Save(ctx, item)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.Newf(dErrors.CodeNotFound, "reference item %d not found", item.ID)
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save reference item")
	}
	s.logger.InfoContext(ctx, "reference item saved",
		"request_id", requestcontext.RequestID(ctx),
		"category", item.Category,
		"label", item.LabelNL,
	)
	return id, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "reference item %d not found", id)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete reference item")
	}
	return nil
}

// ValidateSubmission checks that the given packaging type and measurement
// unit name active reference items. Submissions referencing unknown or
// inactive labels must never reach the registry.
func (s *Service) ValidateSubmission(ctx context.Context, packagingType, measurementUnit string) error {
	if err := s.requireActive(ctx, models.CategoryPackaging, packagingType); err != nil {
		return err
	}
	return s.requireActive(ctx, models.CategoryMeasurement, measurementUnit)
}

func (s *Service) requireActive(ctx context.Context, category models.Category, label string) error {
	if label == "" {
		return dErrors.Newf(dErrors.CodeValidationFailed, "%s value is required", category)
	}
	items, err := s.store.List(ctx, category, true)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reference items")
	}
	for _, item := range items {
		if item.LabelNL == label || item.LabelEN == label {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeValidationFailed, "%q is not an active %s value", label, category)
}

// Mapping resolves the GPC mapping for a product category reference.
func (s *Service) Mapping(ctx context.Context, categoryRef string) (*models.CategoryMapping, error) {
	m, err := s.store.FindMapping(ctx, categoryRef)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no GPC mapping for category %s", categoryRef)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load GPC mapping")
	}
	return m, nil
}

func (s *Service) SaveMapping(ctx context.Context, m *models.CategoryMapping) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = requestcontext.Now(ctx)
	}
	id, err := s.store.SaveMapping(ctx, m)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save GPC mapping")
	}
	return id, nil
}

func (s *Service) ListMappings(ctx context.Context) ([]*models.CategoryMapping, error) {
	mappings, err := s.store.ListMappings(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list GPC mappings")
	}
	return mappings, nil
}

func (s *Service) DeleteMapping(ctx context.Context, categoryRef string) error {
	if err := s.store.DeleteMapping(ctx, categoryRef); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "no GPC mapping for category %s", categoryRef)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete GPC mapping")
	}
	return nil
}
