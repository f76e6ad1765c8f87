package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	"github.com/tupmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

// ProductLookup resolves order line products, used to authorize seller
// fulfillment actions.
type ProductLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

// Service implements order queries and fulfillment transitions.
type Service struct {
	repo     *Repository
	products ProductLookup
	logg     *logger.Logger
}

// NewService wires the order service.
func NewService(repo *Repository, products ProductLookup, logg *logger.Logger) *Service {
	return &Service{repo: repo, products: products, logg: logg}
}

// ListForUser returns the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetForUser loads one order scoped to its buyer.
func (s *Service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// PaymentStatus reports the current status for a provider reference.
// Buyers poll this after being redirected back from the hosted invoice.
func (s *Service) PaymentStatus(ctx context.Context, userID uuid.UUID, externalID string) (*models.Order, error) {
	order, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// fulfillmentNext defines the only legal seller-driven moves.
var fulfillmentNext = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusConfirmed: enums.OrderStatusShipped,
	enums.OrderStatusShipped:   enums.OrderStatusDelivered,
}

// AdvanceFulfillment moves a confirmed order along the
// confirmed -> shipped -> delivered chain. Only a seller who owns a
// product on the order may advance it, and target must be the next
// status in the chain.
func (s *Service) AdvanceFulfillment(ctx context.Context, sellerUserID, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	authorized, err := s.sellerOnOrder(ctx, sellerUserID, order)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a seller on this order")
	}

	next, ok := fulfillmentNext[order.Status]
	if !ok || next != target {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order cannot move to the requested status")
	}

	transitioned, err := s.repo.TransitionStatus(ctx, order.ID, target, nil)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order cannot move to the requested status")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"status":   target.String(),
		})
		s.logg.Info(logCtx, "order fulfillment advanced")
	}
	return s.repo.FindByID(ctx, orderID)
}

func (s *Service) sellerOnOrder(ctx context.Context, sellerUserID uuid.UUID, order *models.Order) (bool, error) {
	if len(order.Items) == 0 {
		return false, nil
	}
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return false, err
	}
	for _, product := range products {
		if product.SellerID == sellerUserID {
			return true, nil
		}
	}
	return false, nil
}
