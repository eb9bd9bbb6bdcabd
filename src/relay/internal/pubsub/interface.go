package pubsub

import (
	"context"
	"errors"
)

var (
	ErrChannelClosed = errors.New("pubsub channel closed")
	ErrPublishFailed = errors.New("pubsub publish failed")
)

// Handler receives every notification published on a subscribed topic.
type Handler func(topic string, payload any)

// Channel is the publish/subscribe transport the relay emits notifications on.
// Delivery guarantees are those of the implementation; the relay only names topics.
type Channel interface {
	// Publish sends payload to every subscriber of topic.
	Publish(ctx context.Context, topic string, payload any) error

	// Subscribe registers handler for topic. Several handlers may share a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Unsubscribe drops every handler registered for topic.
	Unsubscribe(ctx context.Context, topic string) error

	// Close releases the transport. Further calls fail with ErrChannelClosed.
	Close() error
}
