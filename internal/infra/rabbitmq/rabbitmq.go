package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// rewardsExchange carries both directions of the reward flow.
	rewardsExchange = "quiz-rewards"
	// rewardGrantedKey routes issued rewards to the token-transfer worker.
	rewardGrantedKey = "reward.granted"
	// rewardAppliedKey routes transfer confirmations back to this service.
	rewardAppliedKey = "reward.applied"
	// appliedQueue is this service's confirmation queue.
	appliedQueue = "quiz-reward-applied"
)

// Client owns one AMQP connection and channel with the reward exchange
// declared.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		rewardsExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Client{conn: conn, channel: channel}, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
