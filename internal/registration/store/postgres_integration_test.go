//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	platformpg "gtind/internal/platform/postgres"
	"gtind/internal/registration/models"
	"gtind/internal/registration/store"
	"gtind/pkg/platform/sentinel"
	"gtind/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(platformpg.EnsureSchema(context.Background(), s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "gtin_assignments"))
}

func (s *PostgresStoreSuite) newAssignment(ref, gtin12 string) *models.Assignment {
	a, err := models.NewAssignment(uuid.NewString(), ref, gtin12, "C-1",
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	return a
}

func (s *PostgresStoreSuite) TestUniqueConstraints() {
	ctx := context.Background()

	s.Require().NoError(s.store.Create(ctx, s.newAssignment("p1", "000000000100")))

	err := s.store.Create(ctx, s.newAssignment("p1", "000000000101"))
	s.Require().ErrorIs(err, sentinel.ErrConflict, "duplicate product ref")

	err = s.store.Create(ctx, s.newAssignment("p2", "000000000100"))
	s.Require().ErrorIs(err, sentinel.ErrConflict, "duplicate gtin")
}

// TestConcurrentStatusUpdateSingleWinner verifies the compare-and-swap
// UPDATE under real concurrency: many writers racing the same pending
// snapshot produce exactly one transition.
func (s *PostgresStoreSuite) TestConcurrentStatusUpdateSingleWinner() {
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	a := s.newAssignment("p1", "000000000100")
	s.Require().NoError(s.store.Create(ctx, a))

	const writers = 20
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cp := *a
			if err := cp.MarkSubmitted("inv-1", now); err != nil {
				return
			}
			err := s.store.Update(ctx, &cp, models.StatusPending)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(writers-1), conflicts.Load())

	stored, err := s.store.FindByProductRef(ctx, "p1")
	s.Require().NoError(err)
	s.Equal(models.StatusPendingRegistration, stored.Status)
	s.Require().NotNil(stored.InvocationID)
	s.Equal("inv-1", *stored.InvocationID)
}

func (s *PostgresStoreSuite) TestUpdateNeverRewritesIdentifier() {
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	a := s.newAssignment("p1", "000000000100")
	s.Require().NoError(s.store.Create(ctx, a))

	tampered := *a
	tampered.GTIN = "000000000999"
	tampered.ContractNumber = "C-other"
	s.Require().NoError(tampered.MarkSubmitted("inv-1", now))
	s.Require().NoError(s.store.Update(ctx, &tampered, models.StatusPending))

	stored, err := s.store.FindByProductRef(ctx, "p1")
	s.Require().NoError(err)
	s.Equal("000000000100", stored.GTIN)
	s.Equal("C-1", stored.ContractNumber)
}

func (s *PostgresStoreSuite) TestPendingInvocationLookups() {
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	for i, ref := range []string{"p1", "p2", "p3"} {
		a := s.newAssignment(ref, "00000000010"+string(rune('0'+i)))
		s.Require().NoError(s.store.Create(ctx, a))
		if ref == "p3" {
			continue // stays pending, never submitted
		}
		s.Require().NoError(a.MarkSubmitted("inv-1", now))
		s.Require().NoError(s.store.Update(ctx, a, models.StatusPending))
	}

	pending, err := s.store.PendingInvocations(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"inv-1"}, pending)

	// Lowest GTIN first, so error messages land on a stable record.
	match, err := s.store.FindPendingByContractAndInvocation(ctx, "C-1", "inv-1")
	s.Require().NoError(err)
	s.Equal("p1", match.ProductRef)

	byGTIN, err := s.store.FindByGTINAndInvocation(ctx, "000000000101", "inv-1")
	s.Require().NoError(err)
	s.Equal("p2", byGTIN.ProductRef)
}

func (s *PostgresStoreSuite) TestRangeScanHelpers() {
	ctx := context.Background()

	for i, ref := range []string{"p1", "p2"} {
		a := s.newAssignment(ref, "00000000010"+string(rune('0'+i)))
		s.Require().NoError(s.store.Create(ctx, a))
	}

	exists, err := s.store.GTINExists(ctx, "000000000100")
	s.Require().NoError(err)
	s.True(exists)

	highest, err := s.store.MaxAssignedInRange(ctx, "C-1", "000000000100", "000000000199")
	s.Require().NoError(err)
	s.Equal("000000000101", highest)

	highest, err = s.store.MaxAssignedInRange(ctx, "C-1", "000000000200", "000000000299")
	s.Require().NoError(err)
	s.Equal("", highest)
}
