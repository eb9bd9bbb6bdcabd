package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/maxogod/session-relay/src/common/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

type messageMiddlewareExchange struct {
	exchangeName string
	routeKeys    []string
	conn         MiddlewareConnection
	channel      MiddlewareChannel

	consumeChannel    ConsumeChannel
	consumerTag       string
	consumerQueueName string
}

// NewExchangeMiddlewareOnConnection opens a channel on an already dialed connection.
// Closing the middleware leaves the connection open; the dialer owns it.
func NewExchangeMiddlewareOnConnection(conn MiddlewareConnection, exchangeName, exchangeType string, routingKeys []string) (MessageMiddleware, error) {
	m, err := newExchange(conn, exchangeName, exchangeType, routingKeys)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func newExchange(conn MiddlewareConnection, exchangeName, exchangeType string, routingKeys []string) (*messageMiddlewareExchange, error) {
	if len(routingKeys) == 0 {
		routingKeys = []string{""} // Default
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Logger.Errorln("Failed to open a channel:", err)
		return nil, err
	}

	err = ch.ExchangeDeclare(
		exchangeName, // name
		exchangeType, // type
		false,        // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		logger.Logger.Errorln("Failed to declare an exchange:", err)
		ch.Close()
		return nil, err
	}

	return &messageMiddlewareExchange{
		exchangeName: exchangeName,
		routeKeys:    routingKeys,
		conn:         conn,
		channel:      ch,
	}, nil
}

func (me *messageMiddlewareExchange) StartConsuming(onMessageCallback onMessageCallback) (e MessageMiddlewareError) {
	if me.conn.IsClosed() {
		return MessageMiddlewareDisconnectedError
	}

	q, err := me.channel.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		logger.Logger.Errorln("Failed to declare consumer queue:", err)
		return MessageMiddlewareMessageError
	}

	for _, key := range me.routeKeys {
		logger.Logger.Debugf("Binding queue %s to exchange %s with routing key %s", q.Name, me.exchangeName, key)
		err = me.channel.QueueBind(
			q.Name,          // queue name
			key,             // routing key
			me.exchangeName, // exchange
			false,           // no-wait
			nil,
		)
		if err != nil {
			logger.Logger.Errorln("Failed to bind consumer queue to exchange:", err)
			return MessageMiddlewareMessageError
		}
	}

	consumerTag := uuid.New().String()

	consumeChannel, err := me.channel.Consume(
		q.Name,      // queue
		consumerTag, // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		logger.Logger.Errorln("Failed to register a consumer:", err)
		return MessageMiddlewareMessageError
	}

	me.consumerTag = consumerTag
	me.consumeChannel = consumeChannel
	me.consumerQueueName = q.Name

	done := make(chan error, 1)
	go onMessageCallback(me.consumeChannel, done)

	return MessageMiddlewareSuccess
}

func (me *messageMiddlewareExchange) StopConsuming() (e MessageMiddlewareError) {
	if me.consumerTag == "" {
		return MessageMiddlewareSuccess
	}
	if me.conn.IsClosed() {
		return MessageMiddlewareDisconnectedError
	}

	err := me.channel.Cancel(me.consumerTag, false)
	if err != nil {
		logger.Logger.Errorln("Failed to cancel the consumer:", err)
		return MessageMiddlewareMessageError
	}
	me.consumerTag = ""

	_, err = me.channel.QueueDelete(
		me.consumerQueueName, // name
		false,                // ifUnused
		false,                // ifEmpty
		false,                // noWait
	)
	if err != nil {
		logger.Logger.Errorln("Failed to delete queue:", err)
		return MessageMiddlewareDeleteError
	}

	return MessageMiddlewareSuccess
}

func (me *messageMiddlewareExchange) SendTo(routingKey string, message []byte) MessageMiddlewareError {
	if me.conn.IsClosed() {
		logger.Logger.Errorln("Connection is closed")
		return MessageMiddlewareDisconnectedError
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err := me.channel.PublishWithContext(ctx,
		me.exchangeName, // exchange
		routingKey,      // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Transient,
			ContentType:  "application/x-protobuf",
			Body:         message,
		})
	if err != nil {
		logger.Logger.Errorf("Failed to publish a message to route %s: %v", routingKey, err)
		return MessageMiddlewareMessageError
	}

	return MessageMiddlewareSuccess
}

func (me *messageMiddlewareExchange) Close() (e MessageMiddlewareError) {
	if !me.channel.IsClosed() {
		if err := me.channel.Close(); err != nil {
			logger.Logger.Errorln("Failed to close channel:", err)
			return MessageMiddlewareCloseError
		}
	}

	return MessageMiddlewareSuccess
}

func (me *messageMiddlewareExchange) Delete() (e MessageMiddlewareError) {
	if me.conn.IsClosed() {
		return MessageMiddlewareDisconnectedError
	}

	err := me.channel.ExchangeDelete(
		me.exchangeName, // name
		false,           // ifUnused
		false,           // noWait
	)
	if err != nil {
		logger.Logger.Errorln("Failed to delete exchange:", err)
		return MessageMiddlewareDeleteError
	}

	logger.Logger.Debugln("Deleted exchange:", me.exchangeName)

	return MessageMiddlewareSuccess
}
