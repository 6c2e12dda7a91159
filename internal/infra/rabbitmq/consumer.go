package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"daily-quiz-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RewardConfirmations is the application hook a consumed reward-applied event
// lands on. Implementations must be idempotent: the bus will deliver
// duplicates.
type RewardConfirmations interface {
	MarkRewardSent(ctx context.Context, userID int64, quizID int) error
}

// Consumer drains the reward-applied queue and confirms rewards.
type Consumer struct {
	client  *Client
	rewards RewardConfirmations
	logger  *slog.Logger
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewConsumer(client *Client, rewards RewardConfirmations, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		client:  client,
		rewards: rewards,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start binds the confirmation queue and begins consuming in the background.
func (c *Consumer) Start(ctx context.Context) error {
	channel := c.client.channel

	if _, err := channel.QueueDeclare(appliedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := channel.QueueBind(appliedQueue, rewardAppliedKey, rewardsExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	if err := channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := channel.Consume(appliedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.wg.Add(1)
	go c.loop(ctx, deliveries)
	return nil
}

func (c *Consumer) loop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(ctx, delivery)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	var event domain.RewardApplied
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		// A malformed payload will never parse on redelivery; drop it.
		c.logger.Error("reward-applied payload invalid, dropping", "err", err)
		_ = delivery.Ack(false)
		return
	}

	err := c.rewards.MarkRewardSent(ctx, event.UserID, event.QuizID)
	switch {
	case errors.Is(err, domain.ErrRewardNotFound):
		// Confirmation for a reward we never issued; requeueing cannot fix it.
		c.logger.Error("reward-applied for unknown reward, dropping",
			"user_id", event.UserID, "quiz_id", event.QuizID)
		_ = delivery.Ack(false)
	case err != nil:
		c.logger.Error("reward confirmation failed, requeueing",
			"user_id", event.UserID, "quiz_id", event.QuizID, "err", err)
		_ = delivery.Nack(false, true)
	default:
		_ = delivery.Ack(false)
	}
}

// Close stops the consume loop and waits for in-flight handling.
func (c *Consumer) Close() {
	close(c.done)
	c.wg.Wait()
}
