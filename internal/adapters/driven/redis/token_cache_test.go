package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

func TestTokenCache_SetGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewTokenCache(client)
	ctx := context.Background()

	err := cache.Set(ctx, "notesync:token:1", "bearer-abc", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := cache.Get(ctx, "notesync:token:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "bearer-abc" {
		t.Errorf("expected bearer-abc, got %q", got)
	}
}

func TestTokenCache_GetMissing(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewTokenCache(client)

	_, err := cache.Get(context.Background(), "notesync:token:99")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenCache_Delete(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewTokenCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "notesync:token:1", "bearer-abc", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cache.Delete(ctx, "notesync:token:1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := cache.Get(ctx, "notesync:token:1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestTokenCache_DeleteMissing(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewTokenCache(client)

	if err := cache.Delete(context.Background(), "notesync:token:99"); err != nil {
		t.Errorf("unexpected error deleting missing key: %v", err)
	}
}

func TestTokenCache_TTLExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewTokenCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "notesync:token:1", "bearer-abc", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := cache.Get(ctx, "notesync:token:1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after TTL expiry, got %v", err)
	}
}

func TestTokenCache_Ping(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewTokenCache(client)

	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}
