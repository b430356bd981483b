package consumer

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"shopflow/internal/config"
	"shopflow/internal/model"
	"shopflow/internal/service/payment"
	"shopflow/pkg/broker"
	"shopflow/pkg/log"
	"shopflow/pkg/utils"
)

// NewPaymentConsumer consumes checkout payment requests and turns each into
// a payment record plus a staged notification.
func NewPaymentConsumer(manager *broker.Manager, svc payment.Service, cfg config.ConsumerConfig) *Consumer {
	return New(manager, model.QueuePayment, "payment-service", paymentHandler(svc), cfg)
}

func paymentHandler(svc payment.Service) HandlerFunc {
	return func(ctx context.Context, d amqp.Delivery) Result {
		var msg model.PaymentMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Error("Malformed payment message")
			return ResultDrop
		}

		if _, err := svc.ProcessPayment(ctx, &msg); err != nil {
			log.WithFields(map[string]interface{}{
				"user_id":    msg.UserID,
				"product_id": msg.ProductID,
				"error":      utils.GetErrorMessage(err),
			}).Error("Failed to process payment")
			return ResultRetry
		}

		return ResultAck
	}
}
