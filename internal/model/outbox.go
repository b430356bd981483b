package model

import (
	"time"
)

// Outbox message status
const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage is a queued publish committed in the same transaction as the
// business write it belongs to. The relay job picks up PENDING rows and
// publishes them to the broker, so a message is only ever handed to the
// broker after its side effect is durable.
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Queue      string    `gorm:"type:varchar(64);not null" json:"queue"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName set name
func (OutboxMessage) TableName() string {
	return "outbox_messages"
}
