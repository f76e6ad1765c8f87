package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	"github.com/tupmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ordersTable := `
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
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price_each NUMERIC NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ordersTable).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	return db
}

func mustCreateOrder(t *testing.T, repo *Repository, userID uuid.UUID, externalID string) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:     userID,
		ExternalID: &externalID,
		Total:      decimal.RequireFromString("210.00"),
		Status:     enums.OrderStatusPending,
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Quantity: 2, PriceEach: decimal.RequireFromString("100.00")},
		},
	}
	created, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	return created
}

func TestCreateAssignsIDsAndLinksItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := mustCreateOrder(t, repo, uuid.New(), "ORDER-1-"+uuid.NewString())

	assert.NotEqual(t, uuid.Nil, order.ID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, order.ID, order.Items[0].OrderID)

	loaded, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.True(t, loaded.Items[0].LineTotal().Equal(decimal.RequireFromString("200.00")))
}

func TestFindByExternalID(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	externalID := "ORDER-2-" + uuid.NewString()
	order := mustCreateOrder(t, repo, uuid.New(), externalID)

	found, err := repo.FindByExternalID(context.Background(), externalID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindByExternalID(context.Background(), "ORDER-unknown")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTransitionStatusFirstWriterWins(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := mustCreateOrder(t, repo, uuid.New(), "ORDER-3-"+uuid.NewString())

	invoiceID := "inv_abc"
	updates := map[string]any{"invoice_id": invoiceID, "payment_method": "xendit"}

	first, err := repo.TransitionStatus(context.Background(), order.ID, enums.OrderStatusConfirmed, updates)
	require.NoError(t, err)
	second, err := repo.TransitionStatus(context.Background(), order.ID, enums.OrderStatusConfirmed, updates)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)

	loaded, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, loaded.Status)
	require.NotNil(t, loaded.InvoiceID)
	assert.Equal(t, invoiceID, *loaded.InvoiceID)
}

type stubProductLookup struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProductLookup) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := map[uuid.UUID]*models.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func TestAdvanceFulfillmentChain(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	sellerID := uuid.New()

	order := mustCreateOrder(t, repo, uuid.New(), "ORDER-4-"+uuid.NewString())
	_, err := repo.TransitionStatus(context.Background(), order.ID, enums.OrderStatusConfirmed, nil)
	require.NoError(t, err)

	lookup := &stubProductLookup{products: map[uuid.UUID]*models.Product{
		order.Items[0].ProductID: {ID: order.Items[0].ProductID, SellerID: sellerID},
	}}
	svc := NewService(repo, lookup, nil)

	shipped, err := svc.AdvanceFulfillment(context.Background(), sellerID, order.ID, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, shipped.Status)

	delivered, err := svc.AdvanceFulfillment(context.Background(), sellerID, order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Status)

	_, err = svc.AdvanceFulfillment(context.Background(), sellerID, order.ID, enums.OrderStatusShipped)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestAdvanceFulfillmentRequiresSellerOnOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := mustCreateOrder(t, repo, uuid.New(), "ORDER-5-"+uuid.NewString())
	_, err := repo.TransitionStatus(context.Background(), order.ID, enums.OrderStatusConfirmed, nil)
	require.NoError(t, err)

	lookup := &stubProductLookup{products: map[uuid.UUID]*models.Product{
		order.Items[0].ProductID: {ID: order.Items[0].ProductID, SellerID: uuid.New()},
	}}
	svc := NewService(repo, lookup, nil)

	_, err = svc.AdvanceFulfillment(context.Background(), uuid.New(), order.ID, enums.OrderStatusShipped)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestAdvanceFulfillmentSkipIsRejected(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	sellerID := uuid.New()

	order := mustCreateOrder(t, repo, uuid.New(), "ORDER-6-"+uuid.NewString())
	_, err := repo.TransitionStatus(context.Background(), order.ID, enums.OrderStatusConfirmed, nil)
	require.NoError(t, err)

	lookup := &stubProductLookup{products: map[uuid.UUID]*models.Product{
		order.Items[0].ProductID: {ID: order.Items[0].ProductID, SellerID: sellerID},
	}}
	svc := NewService(repo, lookup, nil)

	_, err = svc.AdvanceFulfillment(context.Background(), sellerID, order.ID, enums.OrderStatusDelivered)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}
