package invoicewebhook

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tupmarket/marketplace-backend/internal/cart"
	"github.com/tupmarket/marketplace-backend/internal/orders"
	"github.com/tupmarket/marketplace-backend/internal/products"
	"github.com/tupmarket/marketplace-backend/internal/sellers"
	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	"github.com/tupmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
)

func setupWebhookTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS seller_profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  shop_name TEXT,
  total_sales INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  shipping_method TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  external_id TEXT UNIQUE,
  placed_at DATETIME,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  invoice_id TEXT,
  payment_method TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price_each NUMERIC NOT NULL,
  created_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

type memoryGuard struct {
	marked  map[string]bool
	deleted []string
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{marked: map[string]bool{}}
}

func (g *memoryGuard) CheckAndMark(_ context.Context, eventID string) (bool, error) {
	if g.marked[eventID] {
		return true, nil
	}
	g.marked[eventID] = true
	return false, nil
}

func (g *memoryGuard) Delete(_ context.Context, eventID string) error {
	delete(g.marked, eventID)
	g.deleted = append(g.deleted, eventID)
	return nil
}

type webhookFixture struct {
	db      *gorm.DB
	svc     *Service
	guard   *memoryGuard
	orders  *orders.Repository
	user    uuid.UUID
	seller  uuid.UUID
	product *models.Product
	order   *models.Order
}

func newWebhookFixture(t *testing.T, stock, quantity int) *webhookFixture {
	t.Helper()

	db := setupWebhookTestDB(t)
	userID := uuid.New()
	sellerID := uuid.New()

	product := &models.Product{
		ID:       uuid.New(),
		SellerID: sellerID,
		Name:     "Lab Gown",
		Price:    decimal.RequireFromString("100.00"),
		Stock:    stock,
	}
	require.NoError(t, db.Create(product).Error)
	require.NoError(t, db.Create(&models.SellerProfile{
		ID:     uuid.New(),
		UserID: sellerID,
	}).Error)
	require.NoError(t, db.Create(&models.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: product.ID,
		Quantity:  quantity,
	}).Error)

	externalID := "ORDER-" + userID.String() + "-" + uuid.NewString()
	ordersRepo := orders.NewRepository(db)
	order, err := ordersRepo.Create(context.Background(), &models.Order{
		UserID:     userID,
		ExternalID: &externalID,
		Total:      decimal.RequireFromString("210.00"),
		Status:     enums.OrderStatusPending,
		Items: []models.OrderItem{
			{ProductID: product.ID, Quantity: quantity, PriceEach: product.Price},
		},
	})
	require.NoError(t, err)

	guard := newMemoryGuard()
	svc, err := NewService(ServiceParams{
		TransactionRunner: &testTxRunner{db: db},
		OrderRepo:         ordersRepo,
		ProductRepo:       products.NewRepository(db),
		SellerRepo:        sellers.NewRepository(db),
		CartRepo:          cart.NewRepository(db),
		Guard:             guard,
	})
	require.NoError(t, err)

	return &webhookFixture{
		db:      db,
		svc:     svc,
		guard:   guard,
		orders:  ordersRepo,
		user:    userID,
		seller:  sellerID,
		product: product,
		order:   order,
	}
}

func (f *webhookFixture) paidEvent() Event {
	return Event{
		ExternalID: *f.order.ExternalID,
		Status:     enums.InvoiceStatusPaid,
		InvoiceID:  "inv_123",
	}
}

func (f *webhookFixture) reloadOrder(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.orders.FindByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	return order
}

func (f *webhookFixture) cartCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("user_id = ?", f.user).Count(&count).Error)
	return count
}

func TestHandleCallbackPaidConfirmsOrder(t *testing.T) {
	f := newWebhookFixture(t, 5, 2)

	require.NoError(t, f.svc.HandleCallback(context.Background(), f.paidEvent()))

	order := f.reloadOrder(t)
	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)
	require.NotNil(t, order.InvoiceID)
	assert.Equal(t, "inv_123", *order.InvoiceID)
	require.NotNil(t, order.PaymentMethod)
	assert.Equal(t, "xendit", *order.PaymentMethod)

	var product models.Product
	require.NoError(t, f.db.Where("id = ?", f.product.ID).First(&product).Error)
	assert.Equal(t, 3, product.Stock)

	var profile models.SellerProfile
	require.NoError(t, f.db.Where("user_id = ?", f.seller).First(&profile).Error)
	assert.Equal(t, 2, profile.TotalSales)

	assert.Zero(t, f.cartCount(t))
}

func TestHandleCallbackPaidReplayIsNoOp(t *testing.T) {
	f := newWebhookFixture(t, 5, 2)

	require.NoError(t, f.svc.HandleCallback(context.Background(), f.paidEvent()))

	// Simulate a redelivery after the guard marker expired.
	f.guard.marked = map[string]bool{}
	require.NoError(t, f.svc.HandleCallback(context.Background(), f.paidEvent()))

	order := f.reloadOrder(t)
	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)

	// Side effects applied exactly once.
	var product models.Product
	require.NoError(t, f.db.Where("id = ?", f.product.ID).First(&product).Error)
	assert.Equal(t, 3, product.Stock)
	assert.Zero(t, f.cartCount(t))
}

func TestHandleCallbackDuplicateInFlightIsDropped(t *testing.T) {
	f := newWebhookFixture(t, 5, 2)

	event := f.paidEvent()
	_, err := f.guard.CheckAndMark(context.Background(), event.ExternalID+":"+event.Status.String())
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleCallback(context.Background(), event))

	// The guard dropped it before any state change.
	assert.Equal(t, enums.OrderStatusPending, f.reloadOrder(t).Status)
}

func TestHandleCallbackPaidStockRaceRollsBack(t *testing.T) {
	f := newWebhookFixture(t, 1, 2)

	event := f.paidEvent()
	err := f.svc.HandleCallback(context.Background(), event)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock))

	// Transition rolled back so the provider retry gets a clean slate.
	order := f.reloadOrder(t)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.EqualValues(t, 1, f.cartCount(t))

	// Marker released for the retry.
	assert.Contains(t, f.guard.deleted, event.ExternalID+":"+event.Status.String())
}

func TestHandleCallbackExpiredCancelsAndClearsCart(t *testing.T) {
	f := newWebhookFixture(t, 5, 2)

	event := Event{ExternalID: *f.order.ExternalID, Status: enums.InvoiceStatusExpired}
	require.NoError(t, f.svc.HandleCallback(context.Background(), event))

	order := f.reloadOrder(t)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
	assert.Zero(t, f.cartCount(t))

	// Stock untouched; it was never reserved.
	var product models.Product
	require.NoError(t, f.db.Where("id = ?", f.product.ID).First(&product).Error)
	assert.Equal(t, 5, product.Stock)
}

func TestHandleCallbackPaidAfterCancelIsNoOp(t *testing.T) {
	f := newWebhookFixture(t, 5, 2)

	require.NoError(t, f.svc.HandleCallback(context.Background(), Event{
		ExternalID: *f.order.ExternalID,
		Status:     enums.InvoiceStatusExpired,
	}))
	require.NoError(t, f.svc.HandleCallback(context.Background(), f.paidEvent()))

	assert.Equal(t, enums.OrderStatusCancelled, f.reloadOrder(t).Status)
}

func TestHandleCallbackRefundedAppliesUnconditionally(t *testing.T) {
	f := newWebhookFixture(t, 5, 2)

	require.NoError(t, f.svc.HandleCallback(context.Background(), f.paidEvent()))
	require.NoError(t, f.svc.HandleCallback(context.Background(), Event{
		ExternalID: *f.order.ExternalID,
		Status:     enums.InvoiceStatusRefunded,
	}))

	assert.Equal(t, enums.OrderStatusRefunded, f.reloadOrder(t).Status)
}

func TestHandleCallbackUnknownStatusIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t, 5, 2)

	require.NoError(t, f.svc.HandleCallback(context.Background(), Event{
		ExternalID: *f.order.ExternalID,
		Status:     enums.InvoiceStatus("SETTLING"),
	}))

	assert.Equal(t, enums.OrderStatusPending, f.reloadOrder(t).Status)
}

func TestHandleCallbackUnknownOrder(t *testing.T) {
	f := newWebhookFixture(t, 5, 2)

	err := f.svc.HandleCallback(context.Background(), Event{
		ExternalID: "ORDER-unknown-" + uuid.NewString(),
		Status:     enums.InvoiceStatusPaid,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewIdempotencyGuardValidation(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Minute, "invoice")
	assert.Error(t, err)
}
