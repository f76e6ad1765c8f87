package sellers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
)

// Repository exposes persistence operations for seller profiles.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a seller repository bound to the provided DB.
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

// FindByUserID loads the seller profile owned by a user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.SellerProfile, error) {
	var profile models.SellerProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller profile not found")
		}
		return nil, err
	}
	return &profile, nil
}

// IncrementTotalSales adds confirmed units to the seller's lifetime
// counter. Missing profiles are skipped; aggregates never block a
// payment confirmation.
func (r *Repository) IncrementTotalSales(ctx context.Context, sellerUserID uuid.UUID, units int) error {
	if units <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.SellerProfile{}).
		Where("user_id = ?", sellerUserID).
		UpdateColumn("total_sales", gorm.Expr("total_sales + ?", units)).Error
}
