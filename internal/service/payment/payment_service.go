package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shopflow/internal/model"
	"shopflow/internal/repository"
	"shopflow/pkg/log"
)

// Service payment service interface
type Service interface {
	// ProcessPayment persists a payment record for the message and stages
	// the follow-up notification, all in one database transaction.
	ProcessPayment(ctx context.Context, msg *model.PaymentMessage) (*model.PaymentRecord, error)
}

type service struct {
	db       *gorm.DB
	payments repository.PaymentRepository
	outbox   repository.OutboxRepository
}

// NewService creates a payment service
func NewService(db *gorm.DB, payments repository.PaymentRepository, outbox repository.OutboxRepository) Service {
	return &service{
		db:       db,
		payments: payments,
		outbox:   outbox,
	}
}

// ProcessPayment handles one delivered payment message. The notification is
// only ever published after the payment record commit, and both are written
// atomically, so a crash between insert and publish cannot lose the
// notification.
func (s *service) ProcessPayment(ctx context.Context, msg *model.PaymentMessage) (*model.PaymentRecord, error) {
	bill := msg.Price * int64(msg.Qty)

	record := &model.PaymentRecord{
		PaidAt:    time.Now(),
		UserID:    msg.UserID,
		ProductID: msg.ProductID,
		Price:     msg.Price,
		Qty:       msg.Qty,
		Bill:      bill,
	}

	notification := model.NotificationMessage{
		UserID:    msg.UserID,
		ProductID: msg.ProductID,
		Qty:       msg.Qty,
		Bill:      bill,
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification message: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.payments.Create(ctx, tx, record); err != nil {
			return err
		}
		return s.outbox.Create(ctx, tx, &model.OutboxMessage{
			MessageKey: uuid.New().String(),
			Queue:      model.QueueNotification,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process payment: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"payment_id": record.ID,
		"user_id":    record.UserID,
		"product_id": record.ProductID,
		"bill":       record.Bill,
	}).Info("Payment recorded, notification staged")

	return record, nil
}
