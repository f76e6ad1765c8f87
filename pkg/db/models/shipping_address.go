package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingAddress is a saved delivery destination in the buyer's
// address book.
type ShippingAddress struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	FullName    string    `gorm:"column:full_name;not null"`
	Address     string    `gorm:"column:address;not null"`
	City        string    `gorm:"column:city"`
	Province    string    `gorm:"column:province"`
	PostalCode  string    `gorm:"column:postal_code"`
	Country     string    `gorm:"column:country;not null;default:'Philippines'"`
	PhoneNumber string    `gorm:"column:phone_number;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
