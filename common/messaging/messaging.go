// Package messaging provides abstractions for message broker communication.
// Services publish notifications through Publisher without being coupled to
// a specific broker implementation.
package messaging

import (
	"context"
)

// Message is a message sent to a message broker.
type Message struct {
	// Subject is the topic the message is published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value pairs sent as message headers.
	Metadata map[string]string
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// PublishMsg sends a Message with headers. Delivery is fire-and-forget.
	PublishMsg(ctx context.Context, msg *Message) error

	// Close releases any resources held by the publisher.
	Close() error
}

// NoopPublisher discards every message. It is used when no broker is
// configured.
type NoopPublisher struct{}

// PublishMsg implements Publisher.
func (NoopPublisher) PublishMsg(ctx context.Context, msg *Message) error {
	return ctx.Err()
}

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }
