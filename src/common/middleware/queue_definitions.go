package middleware

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const MIDDLEWARE_CONNECTION_RETRIES = 10
const WAIT_INTERVAL = 1 * time.Second

// RELAY_EXCHANGE_TYPE routes each notification to the subscribers bound to its exact topic.
const RELAY_EXCHANGE_TYPE = "direct"

// DialRelayConnection connects to the broker, retrying while it is still coming up.
func DialRelayConnection(url string) (MiddlewareConnection, error) {
	return retryMiddlewareCreation(MIDDLEWARE_CONNECTION_RETRIES, WAIT_INTERVAL, func() (MiddlewareConnection, error) {
		return amqp.Dial(url)
	})
}

// GetRelayPublisher retrieves the middleware used to publish notifications to any topic via SendTo.
func GetRelayPublisher(conn MiddlewareConnection, exchangeName string) (MessageMiddleware, error) {
	return NewExchangeMiddlewareOnConnection(conn, exchangeName, RELAY_EXCHANGE_TYPE, nil)
}

// GetTopicSubscriber retrieves the middleware that consumes the notifications of a single topic.
func GetTopicSubscriber(conn MiddlewareConnection, exchangeName, topic string) (MessageMiddleware, error) {
	return NewExchangeMiddlewareOnConnection(conn, exchangeName, RELAY_EXCHANGE_TYPE, []string{topic})
}

/* --- Utils --- */

func retryMiddlewareCreation[T any](retries int, waitInterval time.Duration, newMiddleware func() (T, error)) (T, error) {
	var m T
	var err error
	for i := 0; i < retries; i++ {
		m, err = newMiddleware()
		if err != nil {
			time.Sleep(waitInterval)
			continue
		}
		break
	}

	if err != nil {
		return m, fmt.Errorf("could not connect to remote middleware after %d retries: %w", retries, err)
	}

	return m, nil
}
