package model

import (
	"time"
)

// PaymentRecord payment record model. Created exactly once per processed
// payment message and never mutated after insert.
type PaymentRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PaidAt    time.Time `gorm:"not null" json:"paid_at"`
	UserID    uint64    `gorm:"type:bigint;not null;index" json:"user_id"`
	ProductID uint64    `gorm:"type:bigint;not null;index" json:"product_id"`
	Price     int64     `gorm:"type:bigint;not null" json:"price"`
	Qty       int       `gorm:"type:int;not null" json:"qty"`
	Bill      int64     `gorm:"type:bigint;not null" json:"bill"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName set name
func (PaymentRecord) TableName() string {
	return "payments"
}
