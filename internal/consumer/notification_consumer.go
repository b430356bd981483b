package consumer

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"shopflow/internal/config"
	"shopflow/internal/model"
	"shopflow/internal/service/notification"
	"shopflow/pkg/broker"
	"shopflow/pkg/log"
)

// NewNotificationConsumer consumes payment notifications and broadcasts them
// to connected websocket clients. The broadcast is best effort, so the
// delivery is acked regardless of how many clients received it.
func NewNotificationConsumer(manager *broker.Manager, svc notification.Service, cfg config.ConsumerConfig) *Consumer {
	return New(manager, model.QueueNotification, "notification-service", notificationHandler(svc), cfg)
}

func notificationHandler(svc notification.Service) HandlerFunc {
	return func(ctx context.Context, d amqp.Delivery) Result {
		var msg model.NotificationMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Error("Malformed notification message")
			return ResultDrop
		}

		svc.Notify(&msg)
		return ResultAck
	}
}
