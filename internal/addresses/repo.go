package addresses

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
)

// Repository exposes persistence operations for saved shipping
// addresses.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an address repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByUser loads the user's address book, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ShippingAddress, error) {
	var rows []models.ShippingAddress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindDuplicate looks for an identical saved address.
func (r *Repository) FindDuplicate(ctx context.Context, address *models.ShippingAddress) (*models.ShippingAddress, error) {
	var existing models.ShippingAddress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND full_name = ? AND address = ? AND city = ? AND postal_code = ? AND phone_number = ?",
			address.UserID, address.FullName, address.Address, address.City, address.PostalCode, address.PhoneNumber).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// Create inserts a saved address.
func (r *Repository) Create(ctx context.Context, address *models.ShippingAddress) (*models.ShippingAddress, error) {
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(address).Error; err != nil {
		return nil, err
	}
	return address, nil
}

// Delete removes one saved address scoped to its owner.
func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.ShippingAddress{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

// FindByIDForUser loads one saved address scoped to its owner.
func (r *Repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.ShippingAddress, error) {
	var address models.ShippingAddress
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, err
	}
	return &address, nil
}
