package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sondaumoi/storechain-backend/internal/cart"
	"github.com/sondaumoi/storechain-backend/internal/orders"
	"github.com/sondaumoi/storechain-backend/pkg/db/models"
	"github.com/sondaumoi/storechain-backend/pkg/enums"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
	"github.com/sondaumoi/storechain-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (o *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	o.events = append(o.events, event)
	return nil
}

type allowAllStores struct{}

func (allowAllStores) Get(_ context.Context, id uuid.UUID) (*models.Store, error) {
	return &models.Store{ID: id}, nil
}

type stubCapturer struct {
	cents int
	err   error
	calls int
}

func (c *stubCapturer) Capture(context.Context, string) (int, error) {
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	return c.cents, nil
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	cartSvc  *cart.Service
	capturer *stubCapturer
	storeID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newCheckoutTestDB(t)
	storeID := uuid.New()

	cartRepo := cart.NewRepository(db)
	selection := cart.NewSelectionRepository(db)
	cartSvc, err := cart.NewService(cartRepo, selection)
	require.NoError(t, err)

	orderSvc, err := orders.NewService(
		orders.NewRepository(db),
		gormTxRunner{db: db},
		&recordingOutbox{},
		allowAllStores{},
		cart.NewClearer(cartRepo, selection),
		nil,
		nil,
		nil,
	)
	require.NoError(t, err)

	capturer := &stubCapturer{}
	svc, err := NewService(selection, orderSvc, capturer, nil, nil)
	require.NoError(t, err)

	return &fixture{
		db:       db,
		svc:      svc,
		cartSvc:  cartSvc,
		capturer: capturer,
		storeID:  storeID,
	}
}

func (f *fixture) seedProduct(t *testing.T, storeID uuid.UUID, name string, priceCents, stockQty int) uuid.UUID {
	t.Helper()
	productID := uuid.New()
	require.NoError(t, f.db.Exec(
		`INSERT INTO products (id, store_id, sku, name, unit_price_cents, is_active) VALUES (?, ?, ?, ?, ?, 1)`,
		productID, storeID, uuid.NewString()[:8], name, priceCents,
	).Error)
	record := models.StockRecord{StoreID: storeID, ProductID: productID, Quantity: stockQty}
	require.NoError(t, f.db.Create(&record).Error)
	return productID
}

func (f *fixture) fillSelection(t *testing.T, customerID, productID uuid.UUID, qty int) {
	t.Helper()
	ctx := context.Background()
	_, err := f.cartSvc.AddLine(ctx, customerID, f.storeID, productID, qty)
	require.NoError(t, err)
	require.NoError(t, f.cartSvc.SetSelected(ctx, customerID, productID, true))
}

func TestCheckoutDerivesDiscountFromCapture(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	productID := f.seedProduct(t, f.storeID, "Pu-erh Tea", 2500, 10)
	f.fillSelection(t, customerID, productID, 2)

	// Captured less than the cart total: the gap becomes the discount.
	f.capturer.cents = 4500

	order, err := f.svc.CheckoutFromCart(context.Background(), Input{
		CustomerID: customerID,
		PaymentRef: "PAYPAL-REF-1",
	})
	require.NoError(t, err)
	require.Equal(t, 5000, order.TotalPriceCents)
	require.Equal(t, 500, order.DiscountCents)
	require.Equal(t, 4500, order.FinalPriceCents)
	require.Equal(t, enums.PaymentMethodPayPal, order.PaymentMethod)
	require.Equal(t, enums.OrderStatusPending, order.Status)

	// The selection is consumed; unselected cart lines would survive.
	selected, err := f.cartSvc.ListSelected(context.Background(), customerID)
	require.NoError(t, err)
	require.Empty(t, selected)

	var record models.StockRecord
	require.NoError(t, f.db.
		Where("store_id = ? AND product_id = ?", f.storeID, productID).
		First(&record).Error)
	require.Equal(t, 8, record.Quantity)
}

func TestCheckoutNegativeDiscountAllowed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	productID := f.seedProduct(t, f.storeID, "Pu-erh Tea", 2500, 10)
	f.fillSelection(t, customerID, productID, 1)

	// Captured more than the cart total: negative discount, captured amount
	// still wins.
	f.capturer.cents = 2600

	order, err := f.svc.CheckoutFromCart(context.Background(), Input{
		CustomerID: customerID,
		PaymentRef: "PAYPAL-REF-2",
	})
	require.NoError(t, err)
	require.Equal(t, -100, order.DiscountCents)
	require.Equal(t, 2600, order.FinalPriceCents)
}

func TestCheckoutEmptySelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.CheckoutFromCart(context.Background(), Input{
		CustomerID: uuid.New(),
		PaymentRef: "PAYPAL-REF-3",
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeEmptyCheckout))
	require.Equal(t, 0, f.capturer.calls)
}

func TestCheckoutCapturedButCreationFailed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	productID := f.seedProduct(t, f.storeID, "Pu-erh Tea", 2500, 1)
	f.fillSelection(t, customerID, productID, 1)

	// Someone else takes the last unit between selection and capture.
	require.NoError(t, f.db.Model(&models.StockRecord{}).
		Where("store_id = ? AND product_id = ?", f.storeID, productID).
		Update("quantity", 0).Error)

	f.capturer.cents = 2500

	_, err := f.svc.CheckoutFromCart(context.Background(), Input{
		CustomerID: customerID,
		PaymentRef: "PAYPAL-REF-4",
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeReconciliation))
	require.Equal(t, 1, f.capturer.calls)

	// No order was committed and the selection stays intact for review.
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 0, count)

	selected, err := f.cartSvc.ListSelected(context.Background(), customerID)
	require.NoError(t, err)
	require.Len(t, selected, 1)
}

func TestCheckoutCaptureFailureIsNotReconciliation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	productID := f.seedProduct(t, f.storeID, "Pu-erh Tea", 2500, 5)
	f.fillSelection(t, customerID, productID, 1)

	f.capturer.err = pkgerrors.New(pkgerrors.CodeDependency, "paypal unavailable")

	_, err := f.svc.CheckoutFromCart(context.Background(), Input{
		CustomerID: customerID,
		PaymentRef: "PAYPAL-REF-5",
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
	require.False(t, pkgerrors.Is(err, pkgerrors.CodeReconciliation))
}

func TestCheckoutRejectsMultiStoreSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	otherStore := uuid.New()
	productA := f.seedProduct(t, f.storeID, "Pu-erh Tea", 2500, 5)
	productB := f.seedProduct(t, otherStore, "Gift Box", 5000, 5)

	ctx := context.Background()
	_, err := f.cartSvc.AddLine(ctx, customerID, f.storeID, productA, 1)
	require.NoError(t, err)
	_, err = f.cartSvc.AddLine(ctx, customerID, otherStore, productB, 1)
	require.NoError(t, err)
	require.NoError(t, f.cartSvc.SetSelected(ctx, customerID, productA, true))
	require.NoError(t, f.cartSvc.SetSelected(ctx, customerID, productB, true))

	_, err = f.svc.CheckoutFromCart(ctx, Input{CustomerID: customerID, PaymentRef: "PAYPAL-REF-6"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	require.Equal(t, 0, f.capturer.calls)
}

func newCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.StockRecord{}))

	statements := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  unit_price_cents INTEGER NOT NULL,
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_lines (
  customer_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  selected_for_checkout INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  PRIMARY KEY (customer_id, product_id)
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  staff_id TEXT,
  total_quantity INTEGER NOT NULL,
  total_price_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  final_price_cents INTEGER NOT NULL,
  payment_method TEXT NOT NULL DEFAULT 'cash',
  status TEXT NOT NULL DEFAULT 'pending',
  order_time DATETIME NOT NULL,
  shipping_method TEXT,
  carrier TEXT,
  tracking_code TEXT,
  shipping_fee_cents INTEGER,
  shipper_name TEXT,
  shipper_phone TEXT,
  shipped_at DATETIME,
  delivered_at DATETIME,
  declined_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
