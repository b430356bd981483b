package job

import (
	"context"
	"errors"
	"time"

	"shopflow/internal/config"
	"shopflow/internal/model"
	"shopflow/internal/monitor"
	"shopflow/internal/repository"
	"shopflow/pkg/broker"
	"shopflow/pkg/log"
)

// Publisher pushes a message body onto a durable queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// OutboxRelay drains committed outbox rows for one queue to the broker. Rows
// are published oldest-first; a row that fails to publish keeps its pending
// status and is retried on the next tick, so broker downtime delays messages
// instead of losing them. Only real publish rejections burn the retry budget;
// "not connected" ticks while the connection manager is still retrying leave
// the rows untouched. A row that keeps being rejected past the budget is
// marked failed and left in the table for inspection.
type OutboxRelay struct {
	outbox    repository.OutboxRepository
	publisher Publisher
	queue     string

	interval   time.Duration
	batchSize  int
	maxRetries int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewOutboxRelay creates a relay draining the given queue's outbox rows
func NewOutboxRelay(outbox repository.OutboxRepository, publisher Publisher, queue string, cfg config.OutboxConfig) *OutboxRelay {
	return &OutboxRelay{
		outbox:     outbox,
		publisher:  publisher,
		queue:      queue,
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		done:       make(chan struct{}),
	}
}

// Start runs the relay loop in the background
func (r *OutboxRelay) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.ProcessPending(ctx)
			}
		}
	}()

	log.WithFields(map[string]interface{}{
		"queue":      r.queue,
		"interval":   r.interval.String(),
		"batch_size": r.batchSize,
	}).Info("Outbox relay started")
}

// Stop cancels the loop and waits for it to drain
func (r *OutboxRelay) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	<-r.done
}

// ProcessPending publishes one batch of pending rows. The batch stops at the
// first "broker not connected" error; the remaining rows stay pending for the
// next tick.
func (r *OutboxRelay) ProcessPending(ctx context.Context) {
	messages, err := r.outbox.GetPendingMessages(ctx, r.queue, r.batchSize)
	if err != nil {
		log.WithError(err).Error("Failed to load pending outbox messages")
		return
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			return
		}
		if !r.send(ctx, msg) {
			return
		}
	}
}

// send publishes one row. Returns false when the broker is unreachable, which
// defers the whole batch without touching any row's retry budget; the
// connection manager is already running its own bounded reconnect.
func (r *OutboxRelay) send(ctx context.Context, msg *model.OutboxMessage) bool {
	err := r.publisher.Publish(ctx, msg.Queue, []byte(msg.Payload))
	if err == nil {
		if err := r.outbox.MarkSent(ctx, msg.ID); err != nil {
			// The message may be published again on the next tick.
			// Consumers tolerate duplicates; losing it would be worse.
			log.WithError(err).Error("Failed to mark outbox message sent")
		}
		monitor.OutboxPublishedTotal.WithLabelValues(msg.Queue, "sent").Inc()
		return true
	}

	if errors.Is(err, broker.ErrNotConnected) {
		log.WithFields(map[string]interface{}{
			"queue": msg.Queue,
		}).Debug("Broker not connected, deferring outbox publish")
		monitor.OutboxPublishedTotal.WithLabelValues(msg.Queue, "deferred").Inc()
		return false
	}

	log.WithFields(map[string]interface{}{
		"message_id":  msg.ID,
		"message_key": msg.MessageKey,
		"queue":       msg.Queue,
		"retry_count": msg.RetryCount,
		"error":       err.Error(),
	}).Warn("Failed to publish outbox message")

	if msg.RetryCount+1 >= r.maxRetries {
		if err := r.outbox.MarkFailed(ctx, msg.ID); err != nil {
			log.WithError(err).Error("Failed to mark outbox message failed")
		}
		monitor.OutboxPublishedTotal.WithLabelValues(msg.Queue, "failed").Inc()
		return true
	}

	if err := r.outbox.IncrementRetryCount(ctx, msg.ID); err != nil {
		log.WithError(err).Error("Failed to bump outbox retry count")
	}
	monitor.OutboxPublishedTotal.WithLabelValues(msg.Queue, "retry").Inc()
	return true
}
