// internal/adapter/events/nats.go

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"rendezvous/internal/domain/event"
)

// NATSPublisher publishes events as JSON on <topic>.<event type>
type NATSPublisher struct {
	conn  *nats.Conn
	topic string
}

// NewNATSPublisher creates a publisher on an open connection
func NewNATSPublisher(conn *nats.Conn, topic string) *NATSPublisher {
	if topic == "" {
		topic = "rendezvous"
	}

	return &NATSPublisher{
		conn:  conn,
		topic: topic,
	}
}

// Subject returns the NATS subject an event is published on
func (p *NATSPublisher) Subject(e event.Event) string {
	return fmt.Sprintf("%s.%s", p.topic, e.Type)
}

// Publish serializes and publishes an event
func (p *NATSPublisher) Publish(ctx context.Context, e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}

	if err := p.conn.Publish(p.Subject(e), data); err != nil {
		return fmt.Errorf("error publishing event: %w", err)
	}
	return nil
}

// Nop discards every event
type Nop struct{}

// Publish does nothing
func (Nop) Publish(ctx context.Context, e event.Event) error {
	return nil
}
