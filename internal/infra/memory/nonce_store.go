package memory

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"daily-quiz-service/internal/domain"
)

// NonceStore is the process-local nonce store: a mutex-guarded map with TTL
// eviction. Validate is atomic check-and-delete, so every nonce is redeemable
// at most once. Suitable for a single instance; multi-instance deployments use
// the Redis store instead.
type NonceStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu     sync.Mutex
	nonces map[string]time.Time
}

func NewNonceStore(ttl time.Duration) *NonceStore {
	return &NonceStore{
		ttl:    ttl,
		clock:  time.Now,
		nonces: make(map[string]time.Time),
	}
}

// NewNonceStoreWithClock is test-only for deterministic expiry.
func NewNonceStoreWithClock(ttl time.Duration, clock func() time.Time) *NonceStore {
	s := NewNonceStore(ttl)
	s.clock = clock
	return s
}

var nonceMax = big.NewInt(1_000_000_000)

// Generate issues a random numeric nonce and remembers its issue time.
// Expired entries are swept on the way in, so the map stays bounded by the
// nonce TTL times the login rate.
func (s *NonceStore) Generate(_ context.Context) (string, error) {
	n, err := rand.Int(rand.Reader, nonceMax)
	if err != nil {
		return "", err
	}
	nonce := n.String()

	now := s.clock()
	s.mu.Lock()
	for value, issuedAt := range s.nonces {
		if now.Sub(issuedAt) > s.ttl {
			delete(s.nonces, value)
		}
	}
	s.nonces[nonce] = now
	s.mu.Unlock()
	return nonce, nil
}

// Validate consumes the nonce. Unknown, expired, or already redeemed nonces
// all fail identically.
func (s *NonceStore) Validate(_ context.Context, nonce string) error {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	issuedAt, ok := s.nonces[nonce]
	if !ok {
		return domain.ErrInvalidNonce
	}
	delete(s.nonces, nonce)

	if now.Sub(issuedAt) > s.ttl {
		return domain.ErrInvalidNonce
	}
	return nil
}
