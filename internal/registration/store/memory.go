// Package store persists GTIN assignments. Both implementations expose the
// same contract: lookups by product reference, GTIN, and invocation handle,
// plus a compare-and-swap update keyed on the current status so two in-flight
// operations never clobber the same record.
package store

import (
	"context"
	"sort"
	"sync"

	"gtind/internal/registration/models"
	"gtind/pkg/platform/sentinel"
)

// InMemory keeps assignments in maps guarded by a mutex. Used by unit tests
// and single-node deployments.
type InMemory struct {
	mu     sync.Mutex
	byRef  map[string]*models.Assignment
	byGTIN map[string]string // gtin12 -> product ref
}

func NewInMemory() *InMemory {
	return &InMemory{
		byRef:  make(map[string]*models.Assignment),
		byGTIN: make(map[string]string),
	}
}

func (s *InMemory) Create(ctx context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byRef[a.ProductRef]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byGTIN[a.GTIN]; ok {
		return sentinel.ErrConflict
	}
	cp := *a
	s.byRef[a.ProductRef] = &cp
	s.byGTIN[a.GTIN] = a.ProductRef
	return nil
}

func (s *InMemory) FindByProductRef(ctx context.Context, productRef string) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byRef[productRef]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *InMemory) FindByGTIN(ctx context.Context, gtin12 string) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.byGTIN[gtin12]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byRef[ref]
	return &cp, nil
}

func (s *InMemory) FindByGTINAndInvocation(ctx context.Context, gtin12, invocationID string) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.byGTIN[gtin12]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	a := s.byRef[ref]
	if a.InvocationID == nil || *a.InvocationID != invocationID {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// FindPendingByContractAndInvocation returns one assignment still awaiting
// results for the contract/invocation pairing. Registry error entries carry
// only a contract number, so this is the best available match.
func (s *InMemory) FindPendingByContractAndInvocation(ctx context.Context, contractNumber, invocationID string) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []*models.Assignment
	for _, a := range s.byRef {
		if a.Status != models.StatusPendingRegistration {
			continue
		}
		if a.ContractNumber != contractNumber {
			continue
		}
		if a.InvocationID == nil || *a.InvocationID != invocationID {
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return nil, sentinel.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].GTIN < candidates[j].GTIN })
	cp := *candidates[0]
	return &cp, nil
}

// Update persists the record if its stored status still equals expect.
// The GTIN and contract columns are never written after Create.
func (s *InMemory) Update(ctx context.Context, a *models.Assignment, expect models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byRef[a.ProductRef]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != expect {
		return sentinel.ErrConflict
	}
	cp := *a
	cp.GTIN = current.GTIN
	cp.ContractNumber = current.ContractNumber
	s.byRef[a.ProductRef] = &cp
	return nil
}

func (s *InMemory) Delete(ctx context.Context, productRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byRef[productRef]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byGTIN, a.GTIN)
	delete(s.byRef, productRef)
	return nil
}

func (s *InMemory) List(ctx context.Context) ([]*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Assignment, 0, len(s.byRef))
	for _, a := range s.byRef {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GTIN < out[j].GTIN })
	return out, nil
}

// PendingInvocations lists the distinct invocation handles still awaiting
// reconciliation, ordered for deterministic polling.
func (s *InMemory) PendingInvocations(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for _, a := range s.byRef {
		if a.Status != models.StatusPendingRegistration || a.InvocationID == nil {
			continue
		}
		seen[*a.InvocationID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// GTINExists reports whether the identifier has already been issued.
func (s *InMemory) GTINExists(ctx context.Context, gtin12 string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byGTIN[gtin12]
	return ok, nil
}

// MaxAssignedInRange returns the highest issued identifier inside the
// contract's range, or empty when none exists. Identifiers are fixed-width
// zero-padded, so string order is numeric order.
func (s *InMemory) MaxAssignedInRange(ctx context.Context, contractNumber, start12, end12 string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	highest := ""
	for g, ref := range s.byGTIN {
		if s.byRef[ref].ContractNumber != contractNumber {
			continue
		}
		if g < start12 || g > end12 {
			continue
		}
		if g > highest {
			highest = g
		}
	}
	return highest, nil
}
