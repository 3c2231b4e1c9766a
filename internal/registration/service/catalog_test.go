package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	allocservice "gtind/internal/allocator/service"
	allocstore "gtind/internal/allocator/store"
	refservice "gtind/internal/refdata/service"
	refstore "gtind/internal/refdata/store"
	"gtind/internal/registration/ports"
	"gtind/internal/registration/ports/mocks"
	"gtind/internal/registration/store"
	"gtind/internal/registry"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/platform/sentinel"
	"gtind/pkg/requestcontext"
)

func newServiceWithCatalog(t *testing.T, catalog ports.Catalog) (*Service, context.Context) {
	t.Helper()
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC))

	assignments := store.NewInMemory()
	allocator := allocservice.New(allocstore.NewInMemory(), assignments)

	refSvc := refservice.New(refstore.NewInMemory())
	if err := refSvc.Seed(ctx); err != nil {
		t.Fatalf("failed to seed reference data: %v", err)
	}

	reg := newFakeRegistry()
	reg.ranges = []registry.CodeRange{
		{StartNumber: "0000000002000", EndNumber: "0000000002009", ContractNumber: "C-9"},
	}

	svc := New(assignments, allocator, refSvc, reg, catalog, WithDefaultContract("C-9"))
	if _, err := svc.SyncRanges(ctx); err != nil {
		t.Fatalf("failed to sync ranges: %v", err)
	}
	return svc, ctx
}

func TestAssignToleratesCatalogOutage(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	catalog := mocks.NewMockCatalog(ctrl)
	catalog.EXPECT().Product(gomock.Any(), "prod-1").Return(nil, errors.New("catalog unreachable"))

	svc, ctx := newServiceWithCatalog(t, catalog)

	a, err := svc.Assign(ctx, "prod-1", "", false)
	if err != nil {
		t.Fatalf("assign should not depend on the catalog: %v", err)
	}
	if a.NetContent != nil || a.GPCCode != nil || a.MeasurementUnit != "" {
		t.Fatalf("expected no catalog defaults, got %+v", a)
	}
}

func TestSubmitRejectsProductsUnknownToCatalog(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	catalog := mocks.NewMockCatalog(ctrl)
	// Looked up once at assignment time, once when the batch is assembled.
	catalog.EXPECT().Product(gomock.Any(), "prod-ghost").Return(nil, sentinel.ErrNotFound).Times(2)

	svc, ctx := newServiceWithCatalog(t, catalog)

	if _, err := svc.Assign(ctx, "prod-ghost", "", false); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	_, err := svc.SubmitRegistration(ctx, []string{"prod-ghost"})
	if !dErrors.HasCode(err, dErrors.CodeValidationFailed) {
		t.Fatalf("expected validation failure for product missing from catalog, got %v", err)
	}
}
