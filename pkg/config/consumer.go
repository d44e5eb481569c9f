package config

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ErrDiscard tells the consumer to acknowledge and drop a message that can
// never be processed.
var ErrDiscard = errors.New("discard message")

// Delivery is the part of an AMQP delivery a handler sees.
type Delivery struct {
	Body        []byte
	Redelivered bool
}

// MessageHandler processes one message. Returning nil acks it, an error
// wrapping ErrDiscard acks and drops it, any other error requeues it.
type MessageHandler func(ctx context.Context, d Delivery) error

type Consumer struct {
	channel  *amqp.Channel
	queue    string
	prefetch int
}

func NewConsumer(conn *amqp.Connection, queueName string, prefetch int) (*Consumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection not initialized")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	q, err := declareQueue(ch, queueName)
	if err != nil {
		ch.Close()
		return nil, err
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, err
	}

	return &Consumer{
		channel:  ch,
		queue:    q.Name,
		prefetch: prefetch,
	}, nil
}

// Consume delivers messages to handler until ctx is cancelled or the channel
// closes.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return err
	}

	logrus.WithField("queue", c.queue).Info("Consumer is running")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("consumer channel closed")
			}
			c.dispatch(ctx, msg, handler)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg amqp.Delivery, handler MessageHandler) {
	err := handler(ctx, Delivery{Body: msg.Body, Redelivered: msg.Redelivered})
	logger := logrus.WithFields(logrus.Fields{
		"queue":        c.queue,
		"delivery_tag": msg.DeliveryTag,
		"redelivered":  msg.Redelivered,
	})
	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			logger.WithError(ackErr).Error("Ack failed")
		}
	case errors.Is(err, ErrDiscard):
		logger.WithError(err).Warn("Dropping message")
		if ackErr := msg.Ack(false); ackErr != nil {
			logger.WithError(ackErr).Error("Ack failed")
		}
	default:
		logger.WithError(err).Error("Handle msg failed, requeueing")
		if nackErr := msg.Nack(false, true); nackErr != nil {
			logger.WithError(nackErr).Error("Nack failed")
		}
	}
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
