package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	"github.com/tupmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

// ProductFinder is the product lookup surface the service depends on.
type ProductFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service implements cart staging operations.
type Service struct {
	repo     *Repository
	products ProductFinder
	logg     *logger.Logger
}

// NewService wires the cart service.
func NewService(repo *Repository, products ProductFinder, logg *logger.Logger) *Service {
	return &Service{repo: repo, products: products, logg: logg}
}

// List returns the user's cart with product details.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.repo.ListByUser(ctx, userID)
}

// AddParams describes one add-to-cart request.
type AddParams struct {
	ProductID      uuid.UUID
	Quantity       int
	ShippingMethod enums.ShippingMethod
}

// Add stages a product in the cart. Adding a product already staged
// merges into the existing line's quantity.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, params AddParams) (*models.CartItem, error) {
	if params.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	method := params.ShippingMethod
	if method == "" {
		method = enums.ShippingMethodStandard
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
	}

	product, err := s.products.FindByID(ctx, params.ProductID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByUserAndProduct(ctx, userID, params.ProductID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	requested := params.Quantity
	if existing != nil {
		requested += existing.Quantity
	}
	if requested > product.Stock {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "requested quantity exceeds available stock")
	}

	if existing != nil {
		existing.Quantity = requested
		existing.ShippingMethod = method
		return s.repo.Update(ctx, existing)
	}

	item := &models.CartItem{
		UserID:         userID,
		ProductID:      params.ProductID,
		Quantity:       params.Quantity,
		ShippingMethod: method,
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "product_id", params.ProductID.String()), "cart item staged")
	}
	return created, nil
}

// UpdateParams describes one cart line edit.
type UpdateParams struct {
	Quantity       int
	ShippingMethod enums.ShippingMethod
}

// Update edits an existing cart line's quantity or shipping method.
func (s *Service) Update(ctx context.Context, userID, itemID uuid.UUID, params UpdateParams) (*models.CartItem, error) {
	item, err := s.repo.FindByIDForUser(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}

	if params.Quantity > 0 {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if params.Quantity > product.Stock {
			return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "requested quantity exceeds available stock")
		}
		item.Quantity = params.Quantity
	}
	if params.ShippingMethod != "" {
		if !params.ShippingMethod.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
		}
		item.ShippingMethod = params.ShippingMethod
	}

	return s.repo.Update(ctx, item)
}

// Remove deletes one cart line.
func (s *Service) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.repo.Delete(ctx, itemID, userID)
}
