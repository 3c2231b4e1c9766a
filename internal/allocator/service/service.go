// Package service implements the exclusive sequence allocator. It is the
// single writer to a contract's high-water mark; everything else in the
// system treats issued GTINs as immutable facts.
package service

import (
	"context"
	"log/slog"

	allocatormetrics "gtind/internal/allocator/metrics"
	"gtind/internal/allocator/models"
)

// RangeStore is the persistence contract the allocator needs. Advance must
// serialize callbacks per contract (mutex or SELECT ... FOR UPDATE) so that
// candidate computation and the last-used write are one atomic step.
type RangeStore interface {
	FindByContract(ctx context.Context, contractNumber string) (*models.Range, error)
	List(ctx context.Context) ([]*models.Range, error)
	ReplaceAll(ctx context.Context, ranges []*models.Range) error
	Advance(ctx context.Context, contractNumber string, fn func(r *models.Range) (string, error)) (string, error)
	SetLastUsed(ctx context.Context, contractNumber string, lastUsed *string) error
}

// AssignmentIndex answers existence questions about issued GTINs. The
// registration module implements it; the allocator only reads.
type AssignmentIndex interface {
	GTINExists(ctx context.Context, gtin12 string) (bool, error)
	MaxAssignedInRange(ctx context.Context, contractNumber, start12, end12 string) (string, error)
}

// Service issues the next unused identifier from a contract-scoped range.
type Service struct {
	ranges      RangeStore
	assignments AssignmentIndex
	logger      *slog.Logger
	metrics     *allocatormetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *allocatormetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(ranges RangeStore, assignments AssignmentIndex, opts ...Option) *Service {
	s := &Service{
		ranges:      ranges,
		assignments: assignments,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
