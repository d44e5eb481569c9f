package config

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

var RabbitMQ *amqp.Connection

const (
	rabbitMaxRetries = 10
	rabbitRetryDelay = 3 * time.Second
)

// InitRabbitMQ connects to RabbitMQ with retry logic and stores the
// connection in RabbitMQ.
func InitRabbitMQ(ctx context.Context, s RabbitMQSettings) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < rabbitMaxRetries; i++ {
		conn, err = amqp.Dial(s.URL())
		if err == nil {
			RabbitMQ = conn
			logrus.WithField("host", s.Host).Info("Successfully connected to RabbitMQ")
			return conn, nil
		}

		if i < rabbitMaxRetries-1 {
			logrus.WithFields(logrus.Fields{
				"attempt": i + 1,
				"max":     rabbitMaxRetries,
				"error":   err.Error(),
			}).Warn("Failed to connect to RabbitMQ, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(rabbitRetryDelay):
			}
		}
	}
	return nil, fmt.Errorf("connect to RabbitMQ after %d attempts: %w", rabbitMaxRetries, err)
}

// CloseRabbitMQ closes the shared connection if it is open.
func CloseRabbitMQ() error {
	if RabbitMQ == nil || RabbitMQ.IsClosed() {
		return nil
	}
	return RabbitMQ.Close()
}

// PurgeQueue removes all messages from a queue without deleting the queue itself
func PurgeQueue(conn *amqp.Connection, queueName string) (int, error) {
	if conn == nil {
		return 0, fmt.Errorf("RabbitMQ connection not initialized")
	}

	ch, err := conn.Channel()
	if err != nil {
		return 0, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	n, err := ch.QueuePurge(queueName, false)
	if err != nil {
		return 0, fmt.Errorf("failed to purge queue %s: %w", queueName, err)
	}
	logrus.WithFields(logrus.Fields{"queue": queueName, "purged": n}).Info("Purged RabbitMQ queue")
	return n, nil
}

func declareQueue(ch *amqp.Channel, queueName string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
}
