package tokencache

import (
	"context"
	"sync"

	"gtind/internal/registry"
)

// InMemory is a process-local token cache. The default when no Redis is
// configured; fine for single-replica deployments.
type InMemory struct {
	mu     sync.RWMutex
	tokens map[registry.Mode]registry.Token
}

func NewInMemory() *InMemory {
	return &InMemory{tokens: make(map[registry.Mode]registry.Token)}
}

func (c *InMemory) Get(ctx context.Context, mode registry.Mode) (registry.Token, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	token, ok := c.tokens[mode]
	return token, ok, nil
}

func (c *InMemory) Set(ctx context.Context, mode registry.Mode, token registry.Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[mode] = token
	return nil
}
