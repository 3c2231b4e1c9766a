package store

import (
	"context"
	"sort"
	"sync"

	"gtind/internal/refdata/models"
	"gtind/pkg/platform/sentinel"
)

// InMemory keeps reference items and category mappings in maps. Used by unit
// tests and as the default store when no database is configured.
type InMemory struct {
	mu       sync.RWMutex
	items    map[int64]*models.Item
	mappings map[string]*models.CategoryMapping // keyed by category ref
	nextID   int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		items:    make(map[int64]*models.Item),
		mappings: make(map[string]*models.CategoryMapping),
		nextID:   1,
	}
}

func (s *InMemory) List(ctx context.Context, category models.Category, activeOnly bool) ([]*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Item
	for _, item := range s.items {
		if category != "" && item.Category != category {
			continue
		}
		if activeOnly && !item.IsActive {
			continue
		}
		cp := *item
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].LabelNL < out[j].LabelNL
	})
	return out, nil
}

func (s *InMemory) Save(ctx context.Context, item *models.Item) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == 0 {
		item.ID = s.nextID
		s.nextID++
	} else if _, ok := s.items[item.ID]; !ok {
		return 0, sentinel.ErrNotFound
	}
	cp := *item
	s.items[item.ID] = &cp
	return item.ID, nil
}

func (s *InMemory) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// Count reports the number of stored items. Seeding checks it to stay
// idempotent.
func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *InMemory) FindMapping(ctx context.Context, categoryRef string) (*models.CategoryMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[categoryRef]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *InMemory) SaveMapping(ctx context.Context, m *models.CategoryMapping) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.mappings[m.CategoryRef]; ok {
		m.ID = existing.ID
	} else {
		m.ID = s.nextID
		s.nextID++
	}
	cp := *m
	s.mappings[m.CategoryRef] = &cp
	return m.ID, nil
}

func (s *InMemory) ListMappings(ctx context.Context) ([]*models.CategoryMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.CategoryMapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryRef < out[j].CategoryRef })
	return out, nil
}

func (s *InMemory) DeleteMapping(ctx context.Context, categoryRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mappings[categoryRef]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.mappings, categoryRef)
	return nil
}
