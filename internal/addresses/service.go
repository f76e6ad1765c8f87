package addresses

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

// Service implements address book operations.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService wires the address service.
func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// List returns the user's saved addresses.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.ShippingAddress, error) {
	return s.repo.ListByUser(ctx, userID)
}

// SaveParams describes one address to save.
type SaveParams struct {
	FullName    string
	Address     string
	City        string
	Province    string
	PostalCode  string
	Country     string
	PhoneNumber string
}

// Save stores a new address. Saving an address identical to an existing
// one returns the existing row instead of duplicating it.
func (s *Service) Save(ctx context.Context, userID uuid.UUID, params SaveParams) (*models.ShippingAddress, error) {
	if params.FullName == "" || params.Address == "" || params.PhoneNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name, address and phone number are required")
	}

	address := &models.ShippingAddress{
		UserID:      userID,
		FullName:    params.FullName,
		Address:     params.Address,
		City:        params.City,
		Province:    params.Province,
		PostalCode:  params.PostalCode,
		Country:     params.Country,
		PhoneNumber: params.PhoneNumber,
	}
	if address.Country == "" {
		address.Country = "Philippines"
	}

	existing, err := s.repo.FindDuplicate(ctx, address)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := s.repo.Create(ctx, address)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "shipping address saved")
	}
	return created, nil
}

// Get loads one saved address scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, addressID uuid.UUID) (*models.ShippingAddress, error) {
	return s.repo.FindByIDForUser(ctx, addressID, userID)
}

// Delete removes one saved address.
func (s *Service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	return s.repo.Delete(ctx, addressID, userID)
}
