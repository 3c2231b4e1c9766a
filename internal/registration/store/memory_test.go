package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtind/internal/registration/models"
	"gtind/pkg/platform/sentinel"
)

func newAssignment(t *testing.T, ref, gtin12, contract string) *models.Assignment {
	t.Helper()
	a, err := models.NewAssignment("id-"+ref, ref, gtin12, contract, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return a
}

func TestCreateRejectsDuplicates(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newAssignment(t, "p1", "000000000100", "C-1")))

	err := s.Create(ctx, newAssignment(t, "p1", "000000000101", "C-1"))
	assert.ErrorIs(t, err, sentinel.ErrConflict, "duplicate product ref")

	err = s.Create(ctx, newAssignment(t, "p2", "000000000100", "C-1"))
	assert.ErrorIs(t, err, sentinel.ErrConflict, "duplicate gtin")
}

func TestUpdateIsCompareAndSwap(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	a := newAssignment(t, "p1", "000000000100", "C-1")
	require.NoError(t, s.Create(ctx, a))

	require.NoError(t, a.MarkSubmitted("inv-1", now))
	require.NoError(t, s.Update(ctx, a, models.StatusPending))

	// A second writer still holding the pending snapshot loses the race.
	stale := newAssignment(t, "p1", "000000000100", "C-1")
	err := s.Update(ctx, stale, models.StatusPending)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestUpdateNeverRewritesIdentifier(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	a := newAssignment(t, "p1", "000000000100", "C-1")
	require.NoError(t, s.Create(ctx, a))

	// Tamper with the in-memory copy; the store must keep its own columns.
	tampered := *a
	tampered.GTIN = "000000000999"
	tampered.ContractNumber = "C-9"
	require.NoError(t, s.Update(ctx, &tampered, models.StatusPending))

	stored, err := s.FindByProductRef(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "000000000100", stored.GTIN)
	assert.Equal(t, "C-1", stored.ContractNumber)
}

func TestPendingInvocations(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	for i, inv := range []string{"inv-b", "inv-a", "inv-b"} {
		a := newAssignment(t, string(rune('x'+i)), "00000000010"+string(rune('0'+i)), "C-1")
		require.NoError(t, s.Create(ctx, a))
		require.NoError(t, a.MarkSubmitted(inv, now))
		require.NoError(t, s.Update(ctx, a, models.StatusPending))
	}

	ids, err := s.PendingInvocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"inv-a", "inv-b"}, ids)
}

func TestMaxAssignedInRange(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newAssignment(t, "p1", "000000000100", "C-1")))
	require.NoError(t, s.Create(ctx, newAssignment(t, "p2", "000000000105", "C-1")))
	require.NoError(t, s.Create(ctx, newAssignment(t, "p3", "000000000250", "C-2")))

	highest, err := s.MaxAssignedInRange(ctx, "C-1", "000000000100", "000000000199")
	require.NoError(t, err)
	assert.Equal(t, "000000000105", highest)

	highest, err = s.MaxAssignedInRange(ctx, "C-1", "000000000300", "000000000399")
	require.NoError(t, err)
	assert.Empty(t, highest)

	exists, err := s.GTINExists(ctx, "000000000250")
	require.NoError(t, err)
	assert.True(t, exists)
}
