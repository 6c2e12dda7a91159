package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"daily-quiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNonceSingleUse(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, time.Minute)

	nonce, err := store.Generate(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !mr.Exists("auth:nonce:" + nonce) {
		t.Fatalf("expected nonce key in redis")
	}

	if err := store.Validate(ctx, nonce); err != nil {
		t.Fatalf("first validate: %v", err)
	}
	if err := store.Validate(ctx, nonce); !errors.Is(err, domain.ErrInvalidNonce) {
		t.Fatalf("expected ErrInvalidNonce on replay, got %v", err)
	}
}

func TestNonceUnknownValueRejected(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)

	if err := store.Validate(context.Background(), "123456"); !errors.Is(err, domain.ErrInvalidNonce) {
		t.Fatalf("expected ErrInvalidNonce, got %v", err)
	}
}

func TestNonceExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, 5*time.Minute)

	nonce, err := store.Generate(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	mr.FastForward(6 * time.Minute)

	if err := store.Validate(ctx, nonce); !errors.Is(err, domain.ErrInvalidNonce) {
		t.Fatalf("expected expired nonce to be rejected, got %v", err)
	}
}

func newTestStore(t *testing.T, ttl time.Duration) (*NonceStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewNonceStore(client, ttl), mr
}
