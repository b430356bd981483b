package repository

import (
	"context"

	"gorm.io/gorm"

	"shopflow/internal/model"
)

// OutboxRepository outbox message repository interface
type OutboxRepository interface {
	// Create inserts an outbox row, on tx when given. Committing the row
	// together with the business write is what makes the later publish
	// at-least-once instead of fire-and-forget.
	Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error

	GetPendingMessages(ctx context.Context, queue string, limit int) ([]*model.OutboxMessage, error)
	MarkSent(ctx context.Context, id int64) error
	IncrementRetryCount(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
}

type outboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository creates an outbox repository
func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(msg).Error
}

// GetPendingMessages returns pending rows for one queue oldest-first,
// preserving publish order. Filtering by queue keeps each service's relay on
// the rows it owns, so two relays over the shared table do not publish the
// same message.
func (r *outboxRepository) GetPendingMessages(ctx context.Context, queue string, limit int) ([]*model.OutboxMessage, error) {
	var messages []*model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ? AND queue = ?", model.OutboxStatusPending, queue).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *outboxRepository) MarkSent(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Update("status", model.OutboxStatusSent).Error
}

func (r *outboxRepository) IncrementRetryCount(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.OutboxStatusFailed,
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
}
