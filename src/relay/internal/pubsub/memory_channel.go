package pubsub

import (
	"context"
	"slices"
	"sync"
)

// memoryChannel delivers synchronously inside Publish, in subscription order.
type memoryChannel struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
}

func NewMemoryChannel() Channel {
	return &memoryChannel{
		handlers: make(map[string][]Handler),
	}
}

func (c *memoryChannel) Publish(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrChannelClosed
	}
	handlers := slices.Clone(c.handlers[topic])
	c.mu.RUnlock()

	for _, h := range handlers {
		h(topic, payload)
	}
	return nil
}

func (c *memoryChannel) Subscribe(_ context.Context, topic string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	c.handlers[topic] = append(c.handlers[topic], handler)
	return nil
}

func (c *memoryChannel) Unsubscribe(_ context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	delete(c.handlers, topic)
	return nil
}

func (c *memoryChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	clear(c.handlers)
	return nil
}
