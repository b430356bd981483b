package model

import (
	"time"
)

// Product product model
type Product struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	Qty       int       `gorm:"type:int;not null;default:0" json:"qty"`
	Price     int64     `gorm:"type:bigint;not null" json:"price"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (Product) TableName() string {
	return "products"
}

// HasStock check if at least qty units are available
func (p *Product) HasStock(qty int) bool {
	return p.Qty >= qty
}
