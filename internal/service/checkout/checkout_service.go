package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shopflow/internal/model"
	"shopflow/internal/monitor"
	"shopflow/internal/repository"
	"shopflow/pkg/log"
	"shopflow/pkg/utils"
)

// CheckoutRequest checkout request payload
type CheckoutRequest struct {
	UserID    uint64 `json:"userId"`
	ProductID uint64 `json:"productId" binding:"required"`
	Qty       int    `json:"qty" binding:"required,gt=0"`
}

// Service checkout service interface
type Service interface {
	// Checkout validates stock, decrements it and stages a payment
	// message, all in one database transaction.
	Checkout(ctx context.Context, req *CheckoutRequest) error
}

type service struct {
	db       *gorm.DB
	products repository.ProductRepository
	outbox   repository.OutboxRepository
}

// NewService creates a checkout service
func NewService(db *gorm.DB, products repository.ProductRepository, outbox repository.OutboxRepository) Service {
	return &service{
		db:       db,
		products: products,
		outbox:   outbox,
	}
}

// Checkout runs the checkout pipeline entry point. The stock decrement and
// the outbox row commit together, so a payment message can only reach the
// broker after the decrement is durable. The HTTP response never waits on
// broker availability; the relay picks the row up asynchronously.
func (s *service) Checkout(ctx context.Context, req *CheckoutRequest) error {
	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		monitor.CheckoutTotal.WithLabelValues("not_found").Inc()
		return err
	}

	if !product.HasStock(req.Qty) {
		monitor.CheckoutTotal.WithLabelValues("insufficient_stock").Inc()
		return utils.ErrStockNotEnough
	}

	msg := model.PaymentMessage{
		UserID:      req.UserID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Qty:         req.Qty,
		Price:       product.Price,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal payment message: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.products.DecrStock(ctx, tx, product.ID, req.Qty); err != nil {
			return err
		}
		return s.outbox.Create(ctx, tx, &model.OutboxMessage{
			MessageKey: uuid.New().String(),
			Queue:      model.QueuePayment,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		})
	})
	if err != nil {
		if appErr, ok := utils.IsAppError(err); ok {
			monitor.CheckoutTotal.WithLabelValues("insufficient_stock").Inc()
			return appErr
		}
		monitor.CheckoutTotal.WithLabelValues("error").Inc()
		return utils.WrapError(err, utils.CodeDatabaseError, "checkout transaction failed")
	}

	log.WithFields(map[string]interface{}{
		"user_id":    req.UserID,
		"product_id": product.ID,
		"qty":        req.Qty,
		"price":      product.Price,
	}).Info("Checkout committed, payment message staged")

	monitor.CheckoutTotal.WithLabelValues("ok").Inc()
	return nil
}
