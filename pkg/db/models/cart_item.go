package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tupmarket/marketplace-backend/pkg/enums"
)

// CartItem is a buyer's staged purchase line. Rows live until checkout
// is confirmed by the payment webhook or the buyer removes them.
type CartItem struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID      uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	Quantity       int                  `gorm:"column:quantity;not null;default:1"`
	ShippingMethod enums.ShippingMethod `gorm:"column:shipping_method;type:text"`
	Product        *Product             `gorm:"foreignKey:ProductID"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
