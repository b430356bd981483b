package consumer

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"shopflow/internal/config"
	"shopflow/internal/monitor"
	"shopflow/pkg/broker"
	"shopflow/pkg/log"
)

// HandlerFunc processes one delivery and reports what to do with it.
type HandlerFunc func(ctx context.Context, d amqp.Delivery) Result

// Consumer pulls deliveries off one durable queue and dispatches them to a
// handler, one at a time. Deliveries are acked only after the handler reports
// an outcome; a crash before that leaves the message on the queue for
// redelivery. Messages the handler gives up on go to the queue's dead-letter
// sibling ("<queue>.dlq") instead of being lost or blocking the queue.
type Consumer struct {
	manager *broker.Manager
	queue   string
	tag     string
	handler HandlerFunc

	maxAttempts int
	retryDelay  time.Duration
	prefetch    int
}

// New creates a consumer for queue
func New(manager *broker.Manager, queue, tag string, handler HandlerFunc, cfg config.ConsumerConfig) *Consumer {
	return &Consumer{
		manager:     manager,
		queue:       queue,
		tag:         tag,
		handler:     handler,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		prefetch:    cfg.Prefetch,
	}
}

// Start runs the consume loop in the background until ctx is cancelled. When
// the broker connection drops, the loop waits for the manager to reconnect
// and then re-establishes the channel and subscription.
func (c *Consumer) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Consumer) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if !c.manager.IsReady() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		if err := c.consume(ctx); err != nil {
			log.WithFields(map[string]interface{}{
				"queue": c.queue,
				"error": err.Error(),
			}).Warn("Consume session ended, will retry")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retryDelay):
		}
	}
}

// consume opens a channel, declares the queue and its dead-letter sibling,
// and blocks draining deliveries until the channel dies or ctx is cancelled.
func (c *Consumer) consume(ctx context.Context) error {
	ch, err := c.manager.OpenChannel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.DeclareQueue(c.queue); err != nil {
		return err
	}
	if err := ch.DeclareQueue(c.queue + ".dlq"); err != nil {
		return err
	}
	if err := ch.Qos(c.prefetch); err != nil {
		return err
	}

	deliveries, err := ch.Consume(c.queue, c.tag)
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"queue": c.queue,
		"tag":   c.tag,
	}).Info("Consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.dispatch(ctx, ch, d)
		}
	}
}

// dispatch maps the handler result onto the delivery: Ack acknowledges,
// Retry re-invokes the handler up to the attempt budget and then
// dead-letters, Drop dead-letters immediately. The message leaves the main
// queue exactly once either way, so one poison message never wedges the
// queue. Dispatch is synchronous, preserving delivery order.
func (c *Consumer) dispatch(ctx context.Context, ch broker.Channel, d amqp.Delivery) {
	res := c.invoke(ctx, d)

	attempt := 1
	for res == ResultRetry && attempt < c.maxAttempts {
		attempt++
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retryDelay):
		}
		res = c.invoke(ctx, d)
	}

	switch res {
	case ResultAck:
		if err := d.Ack(false); err != nil {
			log.WithFields(map[string]interface{}{
				"queue": c.queue,
				"error": err.Error(),
			}).Error("Failed to ack delivery")
		}
	case ResultRetry:
		log.WithFields(map[string]interface{}{
			"queue":    c.queue,
			"attempts": attempt,
		}).Error("Handler attempts exhausted, dead-lettering message")
		c.deadLetter(ctx, ch, d)
	case ResultDrop:
		c.deadLetter(ctx, ch, d)
	}

	monitor.MessagesConsumedTotal.WithLabelValues(c.queue, res.String()).Inc()
}

// invoke runs the handler, converting a panic into a Drop so one bad message
// cannot take the consumer down.
func (c *Consumer) invoke(ctx context.Context, d amqp.Delivery) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"queue": c.queue,
				"panic": r,
			}).Error("Handler panicked")
			res = ResultDrop
		}
	}()
	return c.handler(ctx, d)
}

// deadLetter copies the body to the dead-letter queue, then acks the
// original. If the copy itself fails the original is requeued so the
// message is not silently lost.
func (c *Consumer) deadLetter(ctx context.Context, ch broker.Channel, d amqp.Delivery) {
	if err := ch.Publish(ctx, c.queue+".dlq", d.Body); err != nil {
		log.WithFields(map[string]interface{}{
			"queue": c.queue,
			"error": err.Error(),
		}).Error("Failed to dead-letter message, requeueing")
		if err := d.Nack(false, true); err != nil {
			log.WithError(err).Error("Failed to nack delivery")
		}
		return
	}
	if err := d.Ack(false); err != nil {
		log.WithError(err).Error("Failed to ack dead-lettered delivery")
	}
}
