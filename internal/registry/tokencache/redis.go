package tokencache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gtind/internal/registry"
)

// Redis shares cached bearer tokens across replicas. Entries expire with the
// token itself, so the cache never hands out a token the provider has already
// invalidated.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func key(mode registry.Mode) string {
	return fmt.Sprintf("gtind:registry-token:%s", mode)
}

func (c *Redis) Get(ctx context.Context, mode registry.Mode) (registry.Token, bool, error) {
	raw, err := c.client.Get(ctx, key(mode)).Result()
	if err == redis.Nil {
		return registry.Token{}, false, nil
	}
	if err != nil {
		return registry.Token{}, false, fmt.Errorf("token cache get: %w", err)
	}

	var token registry.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return registry.Token{}, false, fmt.Errorf("token cache decode: %w", err)
	}
	return token, true, nil
}

func (c *Redis) Set(ctx context.Context, mode registry.Mode, token registry.Token) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("token cache encode: %w", err)
	}
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, key(mode), payload, ttl).Err(); err != nil {
		return fmt.Errorf("token cache set: %w", err)
	}
	return nil
}
