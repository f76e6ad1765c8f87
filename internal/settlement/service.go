package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tupmarket/marketplace-backend/internal/delivery"
	"github.com/tupmarket/marketplace-backend/internal/orders"
	"github.com/tupmarket/marketplace-backend/pkg/config"
	"github.com/tupmarket/marketplace-backend/pkg/db"
	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	"github.com/tupmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
	"github.com/tupmarket/marketplace-backend/pkg/metrics"
	"github.com/tupmarket/marketplace-backend/pkg/xendit"
)

// CartReader loads the buyer's staged cart.
type CartReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
}

// UserReader loads payer details for invoice creation.
type UserReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AddressReader resolves a saved dropoff address for courier quotes.
type AddressReader interface {
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.ShippingAddress, error)
}

// Quoter prices courier delivery for this checkout attempt.
type Quoter interface {
	GetQuote(ctx context.Context, dropoffAddress string) (*delivery.Quote, error)
}

// InvoiceCreator opens a hosted invoice with the provider.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, params xendit.CreateInvoiceParams) (*xendit.Invoice, error)
}


// Service is the order settlement engine. It recomputes totals from
// authoritative storage, opens the hosted invoice, and persists the
// pending order. Client-submitted totals and fees are advisory only and
// never enter the computation.
type Service struct {
	tx        db.TxRunner
	cart      CartReader
	users     UserReader
	addresses AddressReader
	quoter    Quoter
	invoices  InvoiceCreator
	orders    *orders.Repository
	cfg       config.CheckoutConfig
	logg      *logger.Logger
	metrics   *metrics.PaymentMetrics
	now       func() time.Time
}

// NewService wires the settlement engine.
func NewService(
	tx db.TxRunner,
	cart CartReader,
	users UserReader,
	addresses AddressReader,
	quoter Quoter,
	invoices InvoiceCreator,
	ordersRepo *orders.Repository,
	cfg config.CheckoutConfig,
	logg *logger.Logger,
	pm *metrics.PaymentMetrics,
) *Service {
	return &Service{
		tx:        tx,
		cart:      cart,
		users:     users,
		addresses: addresses,
		quoter:    quoter,
		invoices:  invoices,
		orders:    ordersRepo,
		cfg:       cfg,
		logg:      logg,
		metrics:   pm,
		now:       time.Now,
	}
}

// SettleInput carries the buyer's checkout selection. ClientTotal and
// ClientDeliveryFee are advisory; the engine recomputes both.
type SettleInput struct {
	ShippingMethod    enums.ShippingMethod
	AddressID         *uuid.UUID
	ClientDeliveryFee decimal.Decimal
	ClientTotal       decimal.Decimal
}

// SettleResult is returned to the caller for redirecting the buyer to
// the hosted invoice.
type SettleResult struct {
	OrderID     uuid.UUID
	ExternalID  string
	RedirectURL string
	Total       decimal.Decimal
}

// Settle runs one checkout settlement for the user.
func (s *Service) Settle(ctx context.Context, userID uuid.UUID, input SettleInput) (*SettleResult, error) {
	result, err := s.settle(ctx, userID, input)
	if err != nil {
		s.metrics.ObserveCheckout("error")
		return nil, err
	}
	s.metrics.ObserveCheckout("ok")
	return result, nil
}

func (s *Service) settle(ctx context.Context, userID uuid.UUID, input SettleInput) (*SettleResult, error) {
	method := input.ShippingMethod
	if method == "" {
		method = enums.ShippingMethodStandard
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
	}

	items, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	subtotal := decimal.Zero
	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		if item.Product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal,
				fmt.Sprintf("cart item %s has no product", item.ID))
		}
		line := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		orderItems = append(orderItems, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			PriceEach: item.Product.Price,
		})
	}

	tax := subtotal.Mul(s.cfg.TaxRate)

	deliveryFee := decimal.Zero
	if method == enums.ShippingMethodCourier {
		quote, err := s.courierFee(ctx, userID, input.AddressID)
		if err != nil {
			return nil, err
		}
		deliveryFee = quote.Fee
	}

	total := subtotal.Add(tax).Add(deliveryFee).Round(2)
	externalID := fmt.Sprintf("ORDER-%s-%d", userID, s.now().UnixMilli())

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoices.CreateInvoice(ctx, xendit.CreateInvoiceParams{
		ExternalID:         externalID,
		Amount:             total,
		Currency:           s.cfg.Currency,
		Description:        fmt.Sprintf("Marketplace order %s", externalID),
		PayerEmail:         user.Email,
		GivenNames:         user.FirstName,
		Surname:            user.LastName,
		SuccessRedirectURL: s.cfg.PublicBaseURL + "/payment/success",
		FailureRedirectURL: s.cfg.PublicBaseURL + "/payment/failed",
		CallbackURL:        s.cfg.PublicBaseURL + "/payment/webhook/",
	})
	if err != nil {
		// Nothing has been persisted at this point; surface the
		// failure without leaking provider details.
		return nil, pkgerrors.Wrap(pkgerrors.CodeCheckoutFailed, err, "invoice creation failed")
	}

	order := &models.Order{
		UserID:     userID,
		ExternalID: &externalID,
		Total:      total,
		Status:     enums.OrderStatusPending,
		Items:      orderItems,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.orders.WithTx(tx).Create(ctx, order)
		return err
	})
	if err != nil {
		// The orphaned invoice expires provider-side; no partial
		// local state is left behind.
		return nil, pkgerrors.Wrap(pkgerrors.CodeCheckoutFailed, err, "persist pending order")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":  order.ID.String(),
			"order_ref": externalID,
			"total":     total.String(),
		})
		s.logg.Info(logCtx, "checkout settled, awaiting payment")
	}

	return &SettleResult{
		OrderID:     order.ID,
		ExternalID:  externalID,
		RedirectURL: invoice.InvoiceURL,
		Total:       total,
	}, nil
}

func (s *Service) courierFee(ctx context.Context, userID uuid.UUID, addressID *uuid.UUID) (*delivery.Quote, error) {
	if addressID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier shipping requires a saved address")
	}
	address, err := s.addresses.FindByIDForUser(ctx, *addressID, userID)
	if err != nil {
		return nil, err
	}
	return s.quoter.GetQuote(ctx, address.Address+", "+address.City)
}
