// Package kafka publishes lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/eventstream"
)

// MessageWriter is the part of *kafkago.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Publisher.
type Config struct {
	Brokers []string
	Topic   string

	// BatchTimeout bounds how long messages wait to fill a batch.
	BatchTimeout time.Duration

	// Writer replaces the network writer built from Brokers and Topic.
	Writer MessageWriter

	Logger *zap.Logger
}

// Publisher writes each event as one JSON message keyed by its term.
type Publisher struct {
	writer MessageWriter
	topic  string
	logger *zap.Logger
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(c *Config) (*Publisher, error) {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	w := c.Writer
	if w == nil {
		if len(c.Brokers) == 0 {
			return nil, errors.New("kafka: at least one broker is required")
		}
		if c.Topic == "" {
			return nil, errors.New("kafka: topic is required")
		}
		batch := c.BatchTimeout
		if batch == 0 {
			batch = 50 * time.Millisecond
		}
		w = &kafkago.Writer{
			Addr:         kafkago.TCP(c.Brokers...),
			Topic:        c.Topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireOne,
			BatchTimeout: batch,
		}
	}

	return &Publisher{writer: w, topic: c.Topic, logger: c.Logger}, nil
}

// Publish encodes and writes event.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.LifecycleEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Key()),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to kafka topic %q: %w", p.topic, err)
	}

	p.logger.Debug("published event",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID),
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
