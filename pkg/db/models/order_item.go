package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots a purchased line. PriceEach is the product price
// at order creation; later price edits must not affect it.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	PriceEach decimal.Decimal `gorm:"column:price_each;type:numeric(10,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// LineTotal returns quantity times the snapshotted unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceEach.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
