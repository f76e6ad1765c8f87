package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerProfile carries seller aggregates. TotalSales counts units sold
// and is incremented only when an order's payment is confirmed.
type SellerProfile struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	ShopName   string    `gorm:"column:shop_name"`
	TotalSales int       `gorm:"column:total_sales;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
