package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"daily-quiz-service/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher emits reward-granted events. Delivery is at-least-once: messages
// are persistent and the caller retries on error, so the consumer side must
// dedupe on (user_id, quiz_id).
type Publisher struct {
	client *Client
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishRewardGranted(ctx context.Context, event domain.RewardGranted) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal reward-granted: %w", err)
	}

	err = p.client.channel.PublishWithContext(ctx,
		rewardsExchange,
		rewardGrantedKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Headers:      amqp.Table{"key": event.Key()},
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish reward-granted: %w", err)
	}
	return nil
}
