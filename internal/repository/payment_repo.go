package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopflow/internal/model"
	"shopflow/pkg/utils"
)

// PaymentRepository payment record repository interface
type PaymentRepository interface {
	// Create inserts a payment record. Runs on tx when given so the
	// insert can share a transaction with the outbox write.
	Create(ctx context.Context, tx *gorm.DB, record *model.PaymentRecord) error

	GetByID(ctx context.Context, id uint64) (*model.PaymentRecord, error)
	List(ctx context.Context) ([]*model.PaymentRecord, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, tx *gorm.DB, record *model.PaymentRecord) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(record).Error
}

func (r *paymentRepository) GetByID(ctx context.Context, id uint64) (*model.PaymentRecord, error) {
	var record model.PaymentRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrPaymentNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *paymentRepository) List(ctx context.Context) ([]*model.PaymentRecord, error) {
	var records []*model.PaymentRecord
	err := r.db.WithContext(ctx).Order("id DESC").Find(&records).Error
	return records, err
}
