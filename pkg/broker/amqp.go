package broker

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpConnection adapts *amqp.Connection to the Connection interface.
type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &amqpChannel{ch: ch}, nil
}

func (c *amqpConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return c.conn.NotifyClose(receiver)
}

func (c *amqpConnection) IsClosed() bool {
	return c.conn.IsClosed()
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}

// amqpChannel adapts *amqp.Channel to the Channel interface.
type amqpChannel struct {
	ch *amqp.Channel
}

// DeclareQueue declares a durable queue. Safe to call repeatedly from any
// number of services and channels; the broker treats re-declaration of an
// identical queue as a no-op.
func (c *amqpChannel) DeclareQueue(name string) error {
	_, err := c.ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	return err
}

// Publish enqueues a persistent message directly to the named queue.
func (c *amqpChannel) Publish(ctx context.Context, queue string, body []byte) error {
	return c.ch.PublishWithContext(ctx,
		"",    // default exchange routes by queue name
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Consume registers a manual-acknowledge consumer. Unacked messages are
// redelivered if the channel closes or the process crashes.
func (c *amqpChannel) Consume(queue, consumerTag string) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(
		queue,
		consumerTag,
		false, // auto-ack off, handlers decide
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
}

func (c *amqpChannel) Qos(prefetch int) error {
	return c.ch.Qos(prefetch, 0, false)
}

func (c *amqpChannel) Close() error {
	return c.ch.Close()
}
