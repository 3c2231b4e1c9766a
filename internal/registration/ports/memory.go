package ports

import (
	"context"
	"sync"

	"gtind/pkg/platform/sentinel"
)

// StaticCatalog serves product metadata from a map. Useful for tests and for
// deployments that push catalog data in over HTTP instead of pulling it.
type StaticCatalog struct {
	mu       sync.RWMutex
	products map[string]ProductInfo
}

func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{products: make(map[string]ProductInfo)}
}

func (c *StaticCatalog) Put(productRef string, info ProductInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[productRef] = info
}

func (c *StaticCatalog) Product(ctx context.Context, productRef string) (*ProductInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.products[productRef]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := info
	return &cp, nil
}
