package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sondaumoi/storechain-backend/internal/cart"
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

func (o *recordingOutbox) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit outside transaction")
	}
	o.events = append(o.events, event)
	return nil
}

type stubStoreChecker struct {
	known map[uuid.UUID]bool
}

func (s stubStoreChecker) Get(_ context.Context, id uuid.UUID) (*models.Store, error) {
	if !s.known[id] {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return &models.Store{ID: id}, nil
}

type noopCartClearer struct {
	clearedAll      int
	clearedSelected int
}

func (c *noopCartClearer) ClearAll(context.Context, *gorm.DB, uuid.UUID) error {
	c.clearedAll++
	return nil
}

func (c *noopCartClearer) ClearSelected(context.Context, *gorm.DB, uuid.UUID) error {
	c.clearedSelected++
	return nil
}

type stubBooker struct {
	booking *ShipmentBooking
	err     error
	calls   int
}

func (b *stubBooker) CreateShipment(context.Context, ShipmentRequest) (*ShipmentBooking, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return b.booking, nil
}

type fixture struct {
	db      *gorm.DB
	svc     Service
	outbox  *recordingOutbox
	cart    *noopCartClearer
	booker  *stubBooker
	storeID uuid.UUID
	staff   Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newOrdersTestDB(t)
	storeID := uuid.New()
	recorder := &recordingOutbox{}
	clearer := &noopCartClearer{}
	booker := &stubBooker{booking: &ShipmentBooking{
		Carrier:      "GHN",
		TrackingCode: "GHN123",
		FeeCents:     3500,
	}}

	svc, err := NewService(
		NewRepository(db),
		gormTxRunner{db: db},
		recorder,
		stubStoreChecker{known: map[uuid.UUID]bool{storeID: true}},
		clearer,
		booker,
		nil,
		nil,
	)
	require.NoError(t, err)

	staffStore := storeID
	return &fixture{
		db:      db,
		svc:     svc,
		outbox:  recorder,
		cart:    clearer,
		booker:  booker,
		storeID: storeID,
		staff: Actor{
			UserID:  uuid.New(),
			StoreID: &staffStore,
			Role:    enums.ActorRoleStaff,
		},
	}
}

func (f *fixture) seedStock(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()
	record := models.StockRecord{StoreID: f.storeID, ProductID: productID, Quantity: qty}
	require.NoError(t, f.db.Create(&record).Error)
}

func (f *fixture) seedProduct(t *testing.T, name string, priceCents, qty int) uuid.UUID {
	t.Helper()
	productID := uuid.New()
	require.NoError(t, f.db.Exec(
		`INSERT INTO products (id, store_id, sku, name, unit_price_cents, is_active) VALUES (?, ?, ?, ?, ?, 1)`,
		productID, f.storeID, uuid.NewString()[:8], name, priceCents,
	).Error)
	f.seedStock(t, productID, qty)
	return productID
}

func (f *fixture) stockQty(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var record models.StockRecord
	require.NoError(t, f.db.
		Where("store_id = ? AND product_id = ?", f.storeID, productID).
		First(&record).Error)
	return record.Quantity
}

func (f *fixture) createOrder(t *testing.T, productID uuid.UUID, qty, priceCents int) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), CreateOrderInput{
		StoreID:       f.storeID,
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		Lines: []LineInput{
			{ProductID: productID, Quantity: qty, UnitPriceCents: priceCents},
		},
	})
	require.NoError(t, err)
	return order
}

func TestCreateReservesStockAndSnapshotsLines(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Earl Grey", 1500, 2)

	order := f.createOrder(t, productID, 2, 1500)

	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Equal(t, 2, order.TotalQuantity)
	require.Equal(t, 3000, order.TotalPriceCents)
	require.Equal(t, 0, order.DiscountCents)
	require.Equal(t, 3000, order.FinalPriceCents)
	require.Equal(t, 0, f.stockQty(t, productID))

	loaded, err := f.svc.Get(context.Background(), order.ID, Actor{UserID: order.CustomerID, Role: enums.ActorRoleCustomer})
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 1)
	require.Equal(t, "Earl Grey", loaded.Lines[0].Name)
	require.Equal(t, 3000, loaded.Lines[0].LineTotalCents)

	require.Len(t, f.outbox.events, 1)
	require.Equal(t, enums.EventOrderCreated, f.outbox.events[0].EventType)
}

func TestCreateInsufficientStockLeavesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Earl Grey", 1500, 2)
	f.createOrder(t, productID, 2, 1500)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		StoreID:       f.storeID,
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		Lines: []LineInput{
			{ProductID: productID, Quantity: 1, UnitPriceCents: 1500},
		},
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientStock))
	require.Equal(t, 0, f.stockQty(t, productID))

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCreateAtomicAcrossLines(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productA := f.seedProduct(t, "Oolong", 1200, 5)
	productB := f.seedProduct(t, "Sencha", 1000, 1)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		StoreID:       f.storeID,
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		Lines: []LineInput{
			{ProductID: productA, Quantity: 3, UnitPriceCents: 1200},
			{ProductID: productB, Quantity: 2, UnitPriceCents: 1000},
		},
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientStock))

	// The first line's decrement must be rolled back with the rest.
	require.Equal(t, 5, f.stockQty(t, productA))
	require.Equal(t, 1, f.stockQty(t, productB))

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
	require.Empty(t, f.outbox.events)
}

func TestCreateUnknownStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		StoreID:       uuid.New(),
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		Lines: []LineInput{
			{ProductID: uuid.New(), Quantity: 1, UnitPriceCents: 100},
		},
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestCreateDiscountPolicy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Matcha", 2000, 10)

	order, err := f.svc.Create(context.Background(), CreateOrderInput{
		StoreID:       f.storeID,
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodPayPal,
		Discount:      func(total int) int { return total - 3500 },
		Lines: []LineInput{
			{ProductID: productID, Quantity: 2, UnitPriceCents: 2000},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 4000, order.TotalPriceCents)
	require.Equal(t, 500, order.DiscountCents)
	require.Equal(t, 3500, order.FinalPriceCents)
	require.Equal(t, order.FinalPriceCents, order.TotalPriceCents-order.DiscountCents)
}

func TestCreateClearsWholeCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.db.AutoMigrate(&models.CartLine{}))
	productID := f.seedProduct(t, "Jasmine", 1800, 4)

	clearer := cart.NewClearer(cart.NewRepository(f.db), cart.NewSelectionRepository(f.db))
	svc, err := NewService(
		NewRepository(f.db),
		gormTxRunner{db: f.db},
		f.outbox,
		stubStoreChecker{known: map[uuid.UUID]bool{f.storeID: true}},
		clearer,
		nil,
		nil,
		nil,
	)
	require.NoError(t, err)

	customerID := uuid.New()
	require.NoError(t, f.db.Create(&models.CartLine{
		CustomerID:     customerID,
		ProductID:      productID,
		StoreID:        f.storeID,
		ProductName:    "Jasmine",
		UnitPriceCents: 1800,
		Quantity:       1,
	}).Error)

	_, err = svc.Create(context.Background(), CreateOrderInput{
		StoreID:       f.storeID,
		CustomerID:    customerID,
		PaymentMethod: enums.PaymentMethodCash,
		ClearCart:     ClearAll,
		Lines: []LineInput{
			{ProductID: productID, Quantity: 1, UnitPriceCents: 1800},
		},
	})
	require.NoError(t, err)

	var remaining int64
	require.NoError(t, f.db.Model(&models.CartLine{}).
		Where("customer_id = ?", customerID).
		Count(&remaining).Error)
	require.EqualValues(t, 0, remaining)
}

func TestCreateCartClearModes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Hojicha", 900, 6)

	f.createOrder(t, productID, 1, 900)
	require.Equal(t, 0, f.cart.clearedAll)
	require.Equal(t, 0, f.cart.clearedSelected)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		StoreID:       f.storeID,
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		ClearCart:     ClearAll,
		Lines: []LineInput{
			{ProductID: productID, Quantity: 1, UnitPriceCents: 900},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.cart.clearedAll)

	_, err = f.svc.Create(context.Background(), CreateOrderInput{
		StoreID:       f.storeID,
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		ClearCart:     ClearSelected,
		Lines: []LineInput{
			{ProductID: productID, Quantity: 1, UnitPriceCents: 900},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.cart.clearedSelected)
}

func TestCreateEventCarriesTypedActor(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Genmaicha", 1100, 3)
	customerID := uuid.New()

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		StoreID:       f.storeID,
		CustomerID:    customerID,
		PaymentMethod: enums.PaymentMethodCash,
		Actor:         Actor{UserID: customerID, Role: enums.ActorRoleCustomer},
		Lines: []LineInput{
			{ProductID: productID, Quantity: 1, UnitPriceCents: 1100},
		},
	})
	require.NoError(t, err)

	require.Len(t, f.outbox.events, 1)
	actor := f.outbox.events[0].Actor
	require.NotNil(t, actor)
	require.Equal(t, customerID, actor.UserID)
	require.Equal(t, enums.ActorRoleCustomer, actor.Role)
}

func TestAcceptSetsStaffAndStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Earl Grey", 1500, 5)
	order := f.createOrder(t, productID, 1, 1500)

	accepted, err := f.svc.Accept(context.Background(), TransitionInput{OrderID: order.ID, Actor: f.staff})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusProcessing, accepted.Status)
	require.NotNil(t, accepted.StaffID)
	require.Equal(t, f.staff.UserID, *accepted.StaffID)
}

func TestDeclineRestoresStockExactly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Earl Grey", 1500, 2)
	order := f.createOrder(t, productID, 2, 1500)
	require.Equal(t, 0, f.stockQty(t, productID))

	declined, err := f.svc.Decline(context.Background(), TransitionInput{OrderID: order.ID, Actor: f.staff})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDeclined, declined.Status)
	require.NotNil(t, declined.DeclinedAt)

	// Round trip: create then decline is a no-op on stock.
	require.Equal(t, 2, f.stockQty(t, productID))
}

func TestDeclineMissingStockRecordAborts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Earl Grey", 1500, 2)
	order := f.createOrder(t, productID, 2, 1500)

	require.NoError(t, f.db.
		Where("store_id = ? AND product_id = ?", f.storeID, productID).
		Delete(&models.StockRecord{}).Error)

	_, err := f.svc.Decline(context.Background(), TransitionInput{OrderID: order.ID, Actor: f.staff})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	reloaded, err := f.svc.Get(context.Background(), order.ID, f.staff)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, reloaded.Status)
}

func TestTransitionGuards(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Earl Grey", 1500, 10)
	order := f.createOrder(t, productID, 1, 1500)

	otherStore := uuid.New()
	outsider := Actor{UserID: uuid.New(), StoreID: &otherStore, Role: enums.ActorRoleStaff}
	_, err := f.svc.Accept(context.Background(), TransitionInput{OrderID: order.ID, Actor: outsider})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	customer := Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	_, err = f.svc.Accept(context.Background(), TransitionInput{OrderID: order.ID, Actor: customer})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Accept(context.Background(), TransitionInput{OrderID: uuid.New(), Actor: f.staff})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	// Complete straight from processing skips shipping and must fail.
	_, err = f.svc.Accept(context.Background(), TransitionInput{OrderID: order.ID, Actor: f.staff})
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), TransitionInput{OrderID: order.ID, Actor: f.staff})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	reloaded, err := f.svc.Get(context.Background(), order.ID, f.staff)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusProcessing, reloaded.Status)

	// Declining an already-processing order is equally illegal.
	_, err = f.svc.Decline(context.Background(), TransitionInput{OrderID: order.ID, Actor: f.staff})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	require.Equal(t, 9, f.stockQty(t, productID))
}

func TestShipLocalDispatchThenComplete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Earl Grey", 1500, 10)
	order := f.createOrder(t, productID, 1, 1500)

	_, err := f.svc.Accept(context.Background(), TransitionInput{OrderID: order.ID, Actor: f.staff})
	require.NoError(t, err)

	shipped, err := f.svc.Ship(context.Background(), ShipOrderInput{
		OrderID:          order.ID,
		Actor:            f.staff,
		Method:           enums.ShippingMethodLocalDispatch,
		ShipperName:      "Binh",
		ShipperPhone:     "+84901234567",
		ShippingFeeCents: 2000,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusShipping, shipped.Status)
	require.NotNil(t, shipped.ShipperName)
	require.Equal(t, "Binh", *shipped.ShipperName)
	require.NotNil(t, shipped.ShippedAt)

	completed, err := f.svc.Complete(context.Background(), TransitionInput{OrderID: order.ID, Actor: f.staff})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDelivered, completed.Status)
	require.NotNil(t, completed.DeliveredAt)

	types := make([]enums.OutboxEventType, 0, len(f.outbox.events))
	for _, event := range f.outbox.events {
		types = append(types, event.EventType)
	}
	require.Equal(t, []enums.OutboxEventType{
		enums.EventOrderCreated,
		enums.EventOrderAccepted,
		enums.EventOrderShipped,
		enums.EventOrderCompleted,
	}, types)
}

func TestShipCarrierBookingFailureLeavesProcessing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Earl Grey", 1500, 10)
	order := f.createOrder(t, productID, 1, 1500)

	_, err := f.svc.Accept(context.Background(), TransitionInput{OrderID: order.ID, Actor: f.staff})
	require.NoError(t, err)

	f.booker.err = pkgerrors.New(pkgerrors.CodeDependency, "carrier unavailable")
	_, err = f.svc.Ship(context.Background(), ShipOrderInput{
		OrderID:     order.ID,
		Actor:       f.staff,
		Method:      enums.ShippingMethodCarrier,
		Destination: "12 Tran Phu, Da Nang",
		WeightGrams: 400,
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))

	reloaded, err := f.svc.Get(context.Background(), order.ID, f.staff)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusProcessing, reloaded.Status)
	require.Nil(t, reloaded.Carrier)
	require.Nil(t, reloaded.TrackingCode)
	require.Nil(t, reloaded.ShippedAt)
}

func TestShipCarrierBookingSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Earl Grey", 1500, 10)
	order := f.createOrder(t, productID, 1, 1500)

	_, err := f.svc.Accept(context.Background(), TransitionInput{OrderID: order.ID, Actor: f.staff})
	require.NoError(t, err)

	shipped, err := f.svc.Ship(context.Background(), ShipOrderInput{
		OrderID:     order.ID,
		Actor:       f.staff,
		Method:      enums.ShippingMethodCarrier,
		Destination: "12 Tran Phu, Da Nang",
		WeightGrams: 400,
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.booker.calls)
	require.NotNil(t, shipped.Carrier)
	require.Equal(t, "GHN", *shipped.Carrier)
	require.NotNil(t, shipped.TrackingCode)
	require.Equal(t, "GHN123", *shipped.TrackingCode)
	require.NotNil(t, shipped.ShippingFeeCents)
	require.Equal(t, 3500, *shipped.ShippingFeeCents)
}

func TestShipCarrierGuardBeforeBooking(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Earl Grey", 1500, 10)
	order := f.createOrder(t, productID, 1, 1500)

	// Still pending: the carrier must never be contacted.
	_, err := f.svc.Ship(context.Background(), ShipOrderInput{
		OrderID: order.ID,
		Actor:   f.staff,
		Method:  enums.ShippingMethodCarrier,
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	require.Equal(t, 0, f.booker.calls)
}

func TestGetVisibility(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "Earl Grey", 1500, 10)
	order := f.createOrder(t, productID, 1, 1500)

	_, err := f.svc.Get(context.Background(), order.ID, f.staff)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func newOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.StockRecord{}))

	products := `
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
);`
	ordersTable := `
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
);`
	orderLines := `
CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(ordersTable).Error)
	require.NoError(t, db.Exec(orderLines).Error)
	return db
}
