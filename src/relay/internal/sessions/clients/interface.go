package clients

import (
	"context"
	"errors"
)

var ErrSessionDestroyed = errors.New("session destroyed")

// NotificationEmitter publishes notifications on the relay's shared channel.
type NotificationEmitter interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Consumer receives the messages destined to a client.
type Consumer interface {
	// Flush receives, in a single call, every message buffered while the session was paused.
	Flush(batch []string)

	// Deliver receives one message published while the session is streaming.
	Deliver(msg string)
}

// ConsumerFuncs adapts a pair of functions to Consumer. Nil functions drop the messages.
type ConsumerFuncs struct {
	OnFlush   func(batch []string)
	OnDeliver func(msg string)
}

func (c ConsumerFuncs) Flush(batch []string) {
	if c.OnFlush != nil {
		c.OnFlush(batch)
	}
}

func (c ConsumerFuncs) Deliver(msg string) {
	if c.OnDeliver != nil {
		c.OnDeliver(msg)
	}
}

// ClientSession buffers or streams the outbound messages of one connection.
type ClientSession interface {
	// ID returns the connection id the session belongs to.
	ID() string

	// Consume attaches consumer and starts streaming. Any buffered messages are
	// handed to consumer in a single Flush call and the buffer is cleared.
	Consume(consumer Consumer) error

	// Publish buffers msg while paused, or delivers it to the consumer while streaming.
	Publish(msg string) error

	// Pause goes back to buffering. The consumer is remembered but receives nothing
	// until Consume is called again.
	Pause() error

	// Destroy drops the buffer and consumer. The session is unusable afterwards.
	Destroy()

	IsPaused() bool
	IsDestroyed() bool

	// Buffered returns the amount of messages waiting for a consumer.
	Buffered() int

	// Count increments the transport request counter of the client and returns it.
	Count(ctx context.Context) (int64, error)

	// Get and Set are reserved for per-client state and currently do nothing.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error

	// OnMessage relays a message received from the client to the shared channel.
	OnMessage(ctx context.Context, msg string) error
}
