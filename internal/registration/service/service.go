// Package service implements the registration orchestrator: it assigns
// issued GTINs to products, assembles registry submission batches, and
// reconciles asynchronous results back onto individual assignments.
package service

import (
	"context"
	"log/slog"

	allocmodels "gtind/internal/allocator/models"
	"gtind/internal/audit"
	refmodels "gtind/internal/refdata/models"
	registrationmetrics "gtind/internal/registration/metrics"
	"gtind/internal/registration/models"
	"gtind/internal/registration/ports"
	"gtind/internal/registry"
)

// AssignmentStore is the persistence contract for assignments. Update is a
// compare-and-swap on the stored status.
type AssignmentStore interface {
	Create(ctx context.Context, a *models.Assignment) error
	FindByProductRef(ctx context.Context, productRef string) (*models.Assignment, error)
	FindByGTIN(ctx context.Context, gtin12 string) (*models.Assignment, error)
	FindByGTINAndInvocation(ctx context.Context, gtin12, invocationID string) (*models.Assignment, error)
	FindPendingByContractAndInvocation(ctx context.Context, contractNumber, invocationID string) (*models.Assignment, error)
	Update(ctx context.Context, a *models.Assignment, expect models.Status) error
	Delete(ctx context.Context, productRef string) error
	List(ctx context.Context) ([]*models.Assignment, error)
	PendingInvocations(ctx context.Context) ([]string, error)
}

// Allocator issues identifiers and maintains the contract ranges.
type Allocator interface {
	AllocateNext(ctx context.Context, contractNumber string) (string, error)
	ReplaceRanges(ctx context.Context, ranges []*allocmodels.Range) error
}

// ReferenceData validates submission vocabulary and resolves category
// mappings to the external taxonomy.
type ReferenceData interface {
	ValidateSubmission(ctx context.Context, packagingType, measurementUnit string) error
	Mapping(ctx context.Context, categoryRef string) (*refmodels.CategoryMapping, error)
}

// RegistryClient is the remote registration authority.
type RegistryClient interface {
	FetchRanges(ctx context.Context) ([]registry.CodeRange, error)
	SubmitBatch(ctx context.Context, products []registry.Product) (string, error)
	FetchResults(ctx context.Context, invocationID string) (*registry.ResultSet, error)
}

// Service is the registration orchestrator.
type Service struct {
	store           AssignmentStore
	allocator       Allocator
	refdata         ReferenceData
	registry        RegistryClient
	catalog         ports.Catalog
	audit           *audit.Publisher
	defaultContract string
	logger          *slog.Logger
	metrics         *registrationmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *registrationmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithDefaultContract sets the contract used when an assignment request does
// not name one.
func WithDefaultContract(contractNumber string) Option {
	return func(s *Service) { s.defaultContract = contractNumber }
}

func New(store AssignmentStore, allocator Allocator, refdata ReferenceData, client RegistryClient, catalog ports.Catalog, opts ...Option) *Service {
	s := &Service{
		store:     store,
		allocator: allocator,
		refdata:   refdata,
		registry:  client,
		catalog:   catalog,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) emitAudit(ctx context.Context, action string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, audit.Event{Action: action, Detail: detail}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}
