package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tupmarket/marketplace-backend/pkg/enums"
)

// Order is created in pending status once the invoice gateway accepts
// the checkout. ExternalID is assigned at creation and never changes;
// it is the only key webhook notifications are reconciled against.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	ExternalID    *string           `gorm:"column:external_id;uniqueIndex"`
	PlacedAt      time.Time         `gorm:"column:placed_at;autoCreateTime"`
	Total         decimal.Decimal   `gorm:"column:total;type:numeric(10,2);not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	InvoiceID     *string           `gorm:"column:invoice_id"`
	PaymentMethod *string           `gorm:"column:payment_method"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
