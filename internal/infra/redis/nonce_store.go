package redis

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"daily-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// NonceStore keeps login nonces in Redis so that nonce generation and
// validation can land on different service instances. Expiry is Redis TTL;
// single-use redemption is GETDEL, which checks and deletes in one atomic
// command.
type NonceStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewNonceStore(client *redis.Client, ttl time.Duration) *NonceStore {
	return &NonceStore{client: client, ttl: ttl}
}

var nonceMax = big.NewInt(1_000_000_000)

func (s *NonceStore) Generate(ctx context.Context) (string, error) {
	n, err := rand.Int(rand.Reader, nonceMax)
	if err != nil {
		return "", err
	}
	nonce := n.String()

	if err := s.client.Set(ctx, s.key(nonce), "1", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store nonce: %w", err)
	}
	return nonce, nil
}

func (s *NonceStore) Validate(ctx context.Context, nonce string) error {
	err := s.client.GetDel(ctx, s.key(nonce)).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return domain.ErrInvalidNonce
	case err != nil:
		return fmt.Errorf("redeem nonce: %w", err)
	}
	return nil
}

func (s *NonceStore) key(nonce string) string {
	return "auth:nonce:" + nonce
}
