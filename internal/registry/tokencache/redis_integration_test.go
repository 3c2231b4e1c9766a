//go:build integration

package tokencache_test

import (
	"context"
	"testing"
	"time"

	"gtind/internal/registry"
	"gtind/internal/registry/tokencache"
	"gtind/pkg/testutil/containers"
)

func TestRedisTokenCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	t.Run("token round trip", func(t *testing.T) {
		if err := rc.FlushAll(ctx); err != nil {
			t.Fatalf("flush: %v", err)
		}
		cache := tokencache.NewRedis(rc.Client)

		token := registry.Token{
			AccessToken: "tok-abc",
			ExpiresAt:   time.Now().Add(time.Hour).Truncate(time.Millisecond),
		}
		if err := cache.Set(ctx, registry.ModeSandbox, token); err != nil {
			t.Fatalf("set: %v", err)
		}

		got, ok, err := cache.Get(ctx, registry.ModeSandbox)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !ok {
			t.Fatalf("expected cache hit")
		}
		if got.AccessToken != "tok-abc" {
			t.Fatalf("expected cached token, got %q", got.AccessToken)
		}
		if !got.ExpiresAt.Equal(token.ExpiresAt) {
			t.Fatalf("expected expiry %v, got %v", token.ExpiresAt, got.ExpiresAt)
		}
	})

	t.Run("modes are isolated", func(t *testing.T) {
		if err := rc.FlushAll(ctx); err != nil {
			t.Fatalf("flush: %v", err)
		}
		cache := tokencache.NewRedis(rc.Client)

		token := registry.Token{AccessToken: "tok-sandbox", ExpiresAt: time.Now().Add(time.Hour)}
		if err := cache.Set(ctx, registry.ModeSandbox, token); err != nil {
			t.Fatalf("set: %v", err)
		}

		_, ok, err := cache.Get(ctx, registry.ModeLive)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if ok {
			t.Fatalf("expected no live token after sandbox set")
		}
	})

	t.Run("expired token is never stored", func(t *testing.T) {
		if err := rc.FlushAll(ctx); err != nil {
			t.Fatalf("flush: %v", err)
		}
		cache := tokencache.NewRedis(rc.Client)

		stale := registry.Token{AccessToken: "tok-old", ExpiresAt: time.Now().Add(-time.Minute)}
		if err := cache.Set(ctx, registry.ModeSandbox, stale); err != nil {
			t.Fatalf("set: %v", err)
		}

		_, ok, err := cache.Get(ctx, registry.ModeSandbox)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if ok {
			t.Fatalf("expected expired token to be dropped")
		}
	})

	t.Run("shared across cache instances", func(t *testing.T) {
		if err := rc.FlushAll(ctx); err != nil {
			t.Fatalf("flush: %v", err)
		}
		writer := tokencache.NewRedis(rc.Client)
		reader := tokencache.NewRedis(rc.Client)

		token := registry.Token{AccessToken: "tok-shared", ExpiresAt: time.Now().Add(time.Hour)}
		if err := writer.Set(ctx, registry.ModeSandbox, token); err != nil {
			t.Fatalf("set: %v", err)
		}

		got, ok, err := reader.Get(ctx, registry.ModeSandbox)
		if err != nil || !ok {
			t.Fatalf("expected hit from second instance, ok=%v err=%v", ok, err)
		}
		if got.AccessToken != "tok-shared" {
			t.Fatalf("expected shared token, got %q", got.AccessToken)
		}
	})
}
