package store

import (
	"context"
	"sort"
	"sync"

	"gtind/internal/allocator/models"
	"gtind/pkg/platform/sentinel"
)

// InMemory keeps ranges in a map guarded by a mutex. The Advance callback
// runs while the lock is held, which gives the allocator its per-contract
// serialization for free. Used by unit tests and single-node deployments.
type InMemory struct {
	mu     sync.Mutex
	ranges map[string]*models.Range // keyed by contract number
	nextID int64
}

func NewInMemory() *InMemory {
	return &InMemory{ranges: make(map[string]*models.Range), nextID: 1}
}

func (s *InMemory) FindByContract(ctx context.Context, contractNumber string) (*models.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.ranges[contractNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemory) List(ctx context.Context) ([]*models.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Range, 0, len(s.ranges))
	for _, r := range s.ranges {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContractNumber != out[j].ContractNumber {
			return out[i].ContractNumber < out[j].ContractNumber
		}
		return out[i].StartNumber < out[j].StartNumber
	})
	return out, nil
}

// ReplaceAll drops every cached range and installs the given set. Range sync
// treats the registry as authoritative, so this is a replace, never a merge.
func (s *InMemory) ReplaceAll(ctx context.Context, ranges []*models.Range) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ranges = make(map[string]*models.Range, len(ranges))
	for _, r := range ranges {
		cp := *r
		cp.ID = s.nextID
		s.nextID++
		s.ranges[cp.ContractNumber] = &cp
	}
	return nil
}

// Advance runs fn with the contract's range while holding the store lock and
// persists the last-used value fn returns. Two concurrent callers for the
// same contract observe strictly sequential range states.
func (s *InMemory) Advance(ctx context.Context, contractNumber string, fn func(r *models.Range) (string, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.ranges[contractNumber]
	if !ok {
		return "", sentinel.ErrNotFound
	}

	cp := *r
	issued, err := fn(&cp)
	if err != nil {
		return "", err
	}
	r.LastUsed = &issued
	r.UpdatedAt = cp.UpdatedAt
	return issued, nil
}

// SetLastUsed overwrites the high-water mark. A nil value clears it so the
// next allocation restarts from the range start.
func (s *InMemory) SetLastUsed(ctx context.Context, contractNumber string, lastUsed *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.ranges[contractNumber]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.LastUsed = lastUsed
	return nil
}
