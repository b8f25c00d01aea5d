package kafka

import (
	"context"
	"errors"

	"github.com/IBM/sarama"
)

// MessageHandler processes one record. Returning an error leaves the offset
// unmarked so the record is retried on the next rebalance or restart.
type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: group, handler: handler}, nil
}

// Run blocks consuming the given topics until ctx is cancelled. Consume
// returns between rebalances, so it loops until the context ends.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	claims := groupClaims{handler: c.handler}
	for {
		err := c.group.Consume(ctx, topics, claims)
		if err != nil && !errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupClaims struct {
	handler MessageHandler
}

func (groupClaims) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (groupClaims) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (g groupClaims) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := g.handler.Handle(sess.Context(), msg); err != nil {
			continue
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
