package invoicewebhook

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tupmarket/marketplace-backend/internal/cart"
	"github.com/tupmarket/marketplace-backend/internal/orders"
	"github.com/tupmarket/marketplace-backend/internal/products"
	"github.com/tupmarket/marketplace-backend/internal/sellers"
	"github.com/tupmarket/marketplace-backend/pkg/db"
	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	"github.com/tupmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
	"github.com/tupmarket/marketplace-backend/pkg/metrics"
	"github.com/tupmarket/marketplace-backend/pkg/xendit"
)

// Event is one provider notification after the transport layer has
// checked the callback token and decoded the body.
type Event struct {
	ExternalID string
	Status     enums.InvoiceStatus
	InvoiceID  string
}

// Guard deduplicates notifications while a first delivery is in flight.
type Guard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	TransactionRunner db.TxRunner
	OrderRepo         *orders.Repository
	ProductRepo       *products.Repository
	SellerRepo        *sellers.Repository
	CartRepo          *cart.Repository
	Guard             Guard
	Logger            *logger.Logger
	Metrics           *metrics.PaymentMetrics
}

// Service reconciles invoice notifications into order-state
// transitions. Every transition is a conditional update, so the
// handler stays safe under provider retries and concurrent duplicate
// deliveries.
type Service struct {
	tx       db.TxRunner
	orders   *orders.Repository
	products *products.Repository
	sellers  *sellers.Repository
	cart     *cart.Repository
	guard    Guard
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics
}

// NewService validates and wires the reconciliation service.
func NewService(params ServiceParams) (*Service, error) {
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repo required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repo required")
	}
	if params.SellerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "seller repo required")
	}
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repo required")
	}
	return &Service{
		tx:       params.TransactionRunner,
		orders:   params.OrderRepo,
		products: params.ProductRepo,
		sellers:  params.SellerRepo,
		cart:     params.CartRepo,
		guard:    params.Guard,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// HandleCallback applies one provider notification. A nil return means
// the notification is acknowledged; the caller replies 200 and the
// provider stops retrying.
func (s *Service) HandleCallback(ctx context.Context, event Event) error {
	if event.ExternalID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external_id is required")
	}
	if event.Status == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "status is required")
	}

	eventID := fmt.Sprintf("%s:%s", event.ExternalID, event.Status)
	if s.guard != nil {
		duplicate, err := s.guard.CheckAndMark(ctx, eventID)
		if err == nil && duplicate {
			s.metrics.ObserveWebhook(event.Status.String(), "duplicate")
			return nil
		}
		// A guard outage must not block reconciliation; the
		// conditional status update still deduplicates.
	}

	err := s.apply(ctx, event)
	if err != nil && s.guard != nil {
		// Unmark so the provider's retry is processed again.
		_ = s.guard.Delete(ctx, eventID)
	}
	return err
}

func (s *Service) apply(ctx context.Context, event Event) error {
	order, err := s.orders.FindByExternalID(ctx, event.ExternalID)
	if err != nil {
		s.metrics.ObserveWebhook(event.Status.String(), "unknown_order")
		return err
	}

	switch {
	case event.Status == enums.InvoiceStatusPaid:
		return s.confirm(ctx, order, event)
	case event.Status.IsCancellation():
		return s.cancel(ctx, order, event)
	case event.Status == enums.InvoiceStatusRefunded:
		return s.refund(ctx, order)
	default:
		// Providers add statuses over time; unknown ones are
		// acknowledged and skipped.
		s.metrics.ObserveWebhook(event.Status.String(), "ignored")
		return nil
	}
}

// confirm handles PAID: the pending -> confirmed transition plus its
// side effects run in one transaction, so a lost stock race rolls
// everything back and the provider retries later.
func (s *Service) confirm(ctx context.Context, order *models.Order, event Event) error {
	applied := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)

		paymentMethod := xendit.PaymentMethodName
		updates := map[string]any{"payment_method": paymentMethod}
		if event.InvoiceID != "" {
			updates["invoice_id"] = event.InvoiceID
		}

		won, err := ordersTx.TransitionStatusFrom(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusConfirmed, updates)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		applied = true

		productsTx := s.products.WithTx(tx)
		sellersTx := s.sellers.WithTx(tx)
		for _, item := range order.Items {
			if err := productsTx.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			product, err := productsTx.FindByID(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err := sellersTx.IncrementTotalSales(ctx, product.SellerID, item.Quantity); err != nil {
				return err
			}
		}

		return s.cart.WithTx(tx).ClearByUser(ctx, order.UserID)
	})
	if err != nil {
		s.metrics.ObserveWebhook(event.Status.String(), "error")
		return err
	}

	if applied {
		s.metrics.ObserveWebhook(event.Status.String(), "applied")
		s.logConfirmed(ctx, order)
	} else {
		s.metrics.ObserveWebhook(event.Status.String(), "replay")
	}
	return nil
}

func (s *Service) cancel(ctx context.Context, order *models.Order, event Event) error {
	var updates map[string]any
	if event.InvoiceID != "" {
		updates = map[string]any{"invoice_id": event.InvoiceID}
	}

	applied := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		won, err := s.orders.WithTx(tx).TransitionStatusFrom(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, updates)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		applied = true
		return s.cart.WithTx(tx).ClearByUser(ctx, order.UserID)
	})
	if err != nil {
		s.metrics.ObserveWebhook("cancellation", "error")
		return err
	}

	if applied {
		s.metrics.ObserveWebhook("cancellation", "applied")
	} else {
		s.metrics.ObserveWebhook("cancellation", "replay")
	}
	return nil
}

// refund applies unconditionally: a refund is authoritative regardless
// of what state the order reached before it.
func (s *Service) refund(ctx context.Context, order *models.Order) error {
	_, err := s.orders.TransitionStatus(ctx, order.ID, enums.OrderStatusRefunded, nil)
	if err != nil {
		s.metrics.ObserveWebhook(enums.InvoiceStatusRefunded.String(), "error")
		return err
	}
	s.metrics.ObserveWebhook(enums.InvoiceStatusRefunded.String(), "applied")
	return nil
}

func (s *Service) logConfirmed(ctx context.Context, order *models.Order) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"user_id":  order.UserID.String(),
	})
	s.logg.Info(logCtx, "order payment confirmed")
}
