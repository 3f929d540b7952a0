package sse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/reckon/pkg/eventstream"
)

// Publisher adapts a Broker to eventstream.Publisher so lifecycle events
// can be bridged straight to SSE clients.
type Publisher struct {
	broker *Broker
}

// NewPublisher publishes to broker.
func NewPublisher(broker *Broker) *Publisher {
	return &Publisher{broker: broker}
}

// Publish encodes the event as JSON and hands it to the broker.
func (p *Publisher) Publish(_ context.Context, event *eventstream.LifecycleEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.broker.Publish(Event{
		Type: event.EventType,
		ID:   event.EventID,
		Data: string(data),
	})
	return nil
}

// Close closes the broker, ending every stream.
func (p *Publisher) Close() error {
	p.broker.Close()
	return nil
}
