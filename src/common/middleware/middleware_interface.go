package middleware

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

type MiddlewareConnection = *amqp.Connection
type MiddlewareChannel = *amqp.Channel
type MessageDelivery = amqp.Delivery
type ConsumeChannel = <-chan MessageDelivery

type MessageMiddlewareError int

const (
	MessageMiddlewareSuccess MessageMiddlewareError = iota
	MessageMiddlewareMessageError
	MessageMiddlewareDisconnectedError
	MessageMiddlewareCloseError
	MessageMiddlewareDeleteError
)

func (e MessageMiddlewareError) String() string {
	switch e {
	case MessageMiddlewareSuccess:
		return "success"
	case MessageMiddlewareMessageError:
		return "message error"
	case MessageMiddlewareDisconnectedError:
		return "disconnected"
	case MessageMiddlewareCloseError:
		return "close error"
	case MessageMiddlewareDeleteError:
		return "delete error"
	default:
		return "unknown middleware error"
	}
}

type onMessageCallback func(consumeChannel ConsumeChannel, done chan error)

type MessageMiddleware interface {
	/*
	   Starts listening to the exchange on the routing keys given at construction and
	   invokes the onMessageCallback with the delivery channel.
	   If the connection to the middleware is lost, it raises MessageMiddlewareDisconnectedError.
	   If an internal error occurs that cannot be resolved, it raises MessageMiddlewareMessageError.
	*/
	StartConsuming(onMessageCallback onMessageCallback) (e MessageMiddlewareError)

	/*
	   If it was consuming from the exchange, it stops listening and drops the consumer queue.
	   If it was not consuming, it has no effect and does not raise any error.
	   If the connection to the middleware is lost, it raises MessageMiddlewareDisconnectedError.
	*/
	StopConsuming() (e MessageMiddlewareError)

	/*
	   Sends a message to a single routing key, regardless of the keys given at construction.
	   If the connection to the middleware is lost, it raises MessageMiddlewareDisconnectedError.
	   If an internal error occurs that cannot be resolved, it raises MessageMiddlewareMessageError.
	*/
	SendTo(routingKey string, message []byte) (e MessageMiddlewareError)

	/*
	   Disconnects from the exchange. The underlying connection stays open.
	   If an internal error occurs that cannot be resolved, it raises MessageMiddlewareCloseError.
	*/
	Close() (e MessageMiddlewareError)

	/*
	   Forces the remote deletion of the exchange.
	   If the connection to the middleware is lost, it raises MessageMiddlewareDisconnectedError.
	   If an internal error occurs that cannot be resolved, it raises MessageMiddlewareDeleteError.
	*/
	Delete() (e MessageMiddlewareError)
}
