package pubsub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/maxogod/session-relay/src/common/logger"
	"github.com/maxogod/session-relay/src/common/middleware"
)

type topicSubscription struct {
	mw       middleware.MessageMiddleware
	mu       sync.RWMutex
	handlers []Handler
}

func (s *topicSubscription) dispatch(topic string, payload any) {
	s.mu.RLock()
	handlers := slices.Clone(s.handlers)
	s.mu.RUnlock()

	for _, h := range handlers {
		h(topic, payload)
	}
}

// amqpChannel publishes every notification on one exchange using the topic as routing key.
// Each subscribed topic gets its own exclusive queue on a shared connection.
type amqpChannel struct {
	exchange       string
	deleteExchange bool
	conn           middleware.MiddlewareConnection
	publisher      middleware.MessageMiddleware

	mu            sync.Mutex
	subscriptions map[string]*topicSubscription
	closed        bool
}

// NewAMQPChannel dials url and publishes on exchange. When deleteExchange is set,
// Close removes the exchange from the broker.
func NewAMQPChannel(url, exchange string, deleteExchange bool) (Channel, error) {
	conn, err := middleware.DialRelayConnection(url)
	if err != nil {
		return nil, err
	}

	publisher, err := middleware.GetRelayPublisher(conn, exchange)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create relay publisher: %w", err)
	}

	return &amqpChannel{
		exchange:       exchange,
		deleteExchange: deleteExchange,
		conn:           conn,
		publisher:      publisher,
		subscriptions:  make(map[string]*topicSubscription),
	}, nil
}

func (c *amqpChannel) Publish(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isClosed() {
		return ErrChannelClosed
	}

	data, err := encodeNotification(topic, payload)
	if err != nil {
		return err
	}

	if e := c.publisher.SendTo(topic, data); e != middleware.MessageMiddlewareSuccess {
		return fmt.Errorf("%w: topic %s: %s", ErrPublishFailed, topic, e)
	}
	return nil
}

func (c *amqpChannel) Subscribe(_ context.Context, topic string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}

	if sub, ok := c.subscriptions[topic]; ok {
		sub.mu.Lock()
		sub.handlers = append(sub.handlers, handler)
		sub.mu.Unlock()
		return nil
	}

	mw, err := middleware.GetTopicSubscriber(c.conn, c.exchange, topic)
	if err != nil {
		return fmt.Errorf("failed to create subscriber for topic %s: %w", topic, err)
	}

	sub := &topicSubscription{mw: mw, handlers: []Handler{handler}}
	e := mw.StartConsuming(func(consumeChannel middleware.ConsumeChannel, done chan error) {
		for msg := range consumeChannel {
			gotTopic, payload, err := decodeNotification(msg.Body)
			if err != nil {
				logger.Logger.Warnf("action: decode_notification | result: fail | topic: %s | error: %v", topic, err)
				msg.Nack(false, false)
				continue
			}
			sub.dispatch(gotTopic, payload)
			msg.Ack(false)
		}
		done <- nil
	})
	if e != middleware.MessageMiddlewareSuccess {
		mw.Close()
		return fmt.Errorf("failed to consume topic %s: %s", topic, e)
	}

	c.subscriptions[topic] = sub
	return nil
}

func (c *amqpChannel) Unsubscribe(_ context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}

	sub, ok := c.subscriptions[topic]
	if !ok {
		return nil
	}
	delete(c.subscriptions, topic)

	return closeSubscription(topic, sub)
}

func (c *amqpChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	for topic, sub := range c.subscriptions {
		if err := closeSubscription(topic, sub); err != nil {
			logger.Logger.Warnf("action: close_subscription | result: fail | topic: %s | error: %v", topic, err)
		}
	}
	clear(c.subscriptions)

	var errs []error
	if c.deleteExchange {
		if e := c.publisher.Delete(); e != middleware.MessageMiddlewareSuccess {
			errs = append(errs, fmt.Errorf("failed to delete exchange %s: %s", c.exchange, e))
		}
	}
	if e := c.publisher.Close(); e != middleware.MessageMiddlewareSuccess {
		errs = append(errs, fmt.Errorf("failed to close relay publisher: %s", e))
	}
	if err := c.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close relay connection: %w", err))
	}
	return errors.Join(errs...)
}

func (c *amqpChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func closeSubscription(topic string, sub *topicSubscription) error {
	if e := sub.mw.StopConsuming(); e != middleware.MessageMiddlewareSuccess {
		sub.mw.Close()
		return fmt.Errorf("failed to stop consuming topic %s: %s", topic, e)
	}
	if e := sub.mw.Close(); e != middleware.MessageMiddlewareSuccess {
		return fmt.Errorf("failed to close subscriber for topic %s: %s", topic, e)
	}
	return nil
}
