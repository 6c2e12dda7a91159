package memory

import (
	"context"
	"sync"

	"daily-quiz-service/internal/domain"
)

// Bus is an in-process stand-in for the message bus: published reward-granted
// events are retained for inspection, and reward-applied events can be pushed
// straight into a handler. It exists for tests and broker-less local runs.
type Bus struct {
	mu      sync.Mutex
	granted []domain.RewardGranted
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) PublishRewardGranted(_ context.Context, event domain.RewardGranted) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.granted = append(b.granted, event)
	return nil
}

// Granted returns a snapshot of everything published so far.
func (b *Bus) Granted() []domain.RewardGranted {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.RewardGranted, len(b.granted))
	copy(out, b.granted)
	return out
}
