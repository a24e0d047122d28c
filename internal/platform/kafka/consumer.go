// Package kafka wraps the confluent consumer for the optional event-driven
// intake path. Deliveries are committed only after the handler accepts them
// (at-least-once).
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Message represents a received Kafka message.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Handler processes consumed messages.
type Handler interface {
	// Handle processes a message. Return error to skip commit (message will be redelivered).
	Handle(ctx context.Context, msg *Message) error
}

// Config holds consumer configuration.
type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

// Consumer wraps the confluent-kafka-go consumer.
type Consumer struct {
	consumer *kafka.Consumer
	handler  Handler
	logger   *slog.Logger
	topic    string

	mu     sync.Mutex
	closed bool
}

// New creates a new Kafka consumer subscribed to the configured topic.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer group ID not configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic not configured")
	}

	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.GroupID,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false, // manual commits for at-least-once delivery
	}

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	if err := consumer.SubscribeTopics([]string{cfg.Topic}, nil); err != nil {
		consumer.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("subscribe to topic %s: %w", cfg.Topic, err)
	}

	return &Consumer{
		consumer: consumer,
		handler:  handler,
		logger:   logger,
		topic:    cfg.Topic,
	}, nil
}

// Run polls for messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.Close() //nolint:errcheck // shutdown path

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev := c.consumer.Poll(500)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			msg := &Message{
				Topic:     *e.TopicPartition.Topic,
				Partition: e.TopicPartition.Partition,
				Offset:    int64(e.TopicPartition.Offset),
				Key:       e.Key,
				Value:     e.Value,
				Timestamp: e.Timestamp,
			}
			if err := c.handler.Handle(ctx, msg); err != nil {
				c.logger.ErrorContext(ctx, "kafka message handling failed, will redeliver",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
				continue
			}
			if _, err := c.consumer.CommitMessage(e); err != nil {
				c.logger.ErrorContext(ctx, "kafka commit failed",
					"topic", msg.Topic,
					"offset", msg.Offset,
					"error", err,
				)
			}
		case kafka.Error:
			c.logger.ErrorContext(ctx, "kafka consumer error", "code", e.Code().String(), "error", e.Error())
		}
	}
}

// Close shuts the consumer down once.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.consumer.Close()
}
