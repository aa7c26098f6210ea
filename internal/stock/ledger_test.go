package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sondaumoi/storechain-backend/pkg/db/models"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
)

func TestReserveDecrementsGuarded(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	storeID := uuid.New()
	productA := uuid.New()
	productB := uuid.New()

	seedStock(t, db, storeID, productA, 5)
	seedStock(t, db, storeID, productB, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, storeID, []ReservationRequest{
			{ProductID: productA, Qty: 3},
			{ProductID: productB, Qty: 1},
		})
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if got := loadQty(t, db, storeID, productA); got != 2 {
		t.Fatalf("product a quantity = %d, want 2", got)
	}
	if got := loadQty(t, db, storeID, productB); got != 0 {
		t.Fatalf("product b quantity = %d, want 0", got)
	}
}

func TestReserveInsufficientAbortsWhole(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	storeID := uuid.New()
	productA := uuid.New()
	productB := uuid.New()

	seedStock(t, db, storeID, productA, 5)
	seedStock(t, db, storeID, productB, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, storeID, []ReservationRequest{
			{ProductID: productA, Qty: 3},
			{ProductID: productB, Qty: 2},
		})
	})
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// Rollback must undo the first decrement too.
	if got := loadQty(t, db, storeID, productA); got != 5 {
		t.Fatalf("product a quantity = %d, want 5", got)
	}
	if got := loadQty(t, db, storeID, productB); got != 1 {
		t.Fatalf("product b quantity = %d, want 1", got)
	}
}

func TestReserveUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	storeID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, storeID, []ReservationRequest{
			{ProductID: uuid.New(), Qty: 1},
		})
	})
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	storeID := uuid.New()
	product := uuid.New()
	seedStock(t, db, storeID, product, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, storeID, []ReservationRequest{
			{ProductID: product, Qty: 0},
		})
	})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := loadQty(t, db, storeID, product); got != 5 {
		t.Fatalf("quantity = %d, want 5", got)
	}
}

func TestReleaseIncrements(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	storeID := uuid.New()
	product := uuid.New()
	seedStock(t, db, storeID, product, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Release(ctx, tx, storeID, product, 2)
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := loadQty(t, db, storeID, product); got != 2 {
		t.Fatalf("quantity = %d, want 2", got)
	}
}

func TestReleaseMissingRecordFails(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		return Release(ctx, tx, uuid.New(), uuid.New(), 1)
	})
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCheckAvailable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	storeID := uuid.New()
	product := uuid.New()
	seedStock(t, db, storeID, product, 3)

	ok, err := CheckAvailable(ctx, db, storeID, product, 3)
	if err != nil || !ok {
		t.Fatalf("expected available, got ok=%v err=%v", ok, err)
	}
	ok, err = CheckAvailable(ctx, db, storeID, product, 4)
	if err != nil || ok {
		t.Fatalf("expected unavailable, got ok=%v err=%v", ok, err)
	}
	ok, err = CheckAvailable(ctx, db, storeID, uuid.New(), 1)
	if err != nil || ok {
		t.Fatalf("expected unknown product unavailable, got ok=%v err=%v", ok, err)
	}
}

func TestRepositoryAvailable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	storeID := uuid.New()
	product := uuid.New()
	seedStock(t, db, storeID, product, 2)

	repo := NewRepository(db)
	ok, err := repo.Available(ctx, storeID, product, 2)
	if err != nil || !ok {
		t.Fatalf("expected available, got ok=%v err=%v", ok, err)
	}
	ok, err = repo.Available(ctx, storeID, product, 3)
	if err != nil || ok {
		t.Fatalf("expected unavailable, got ok=%v err=%v", ok, err)
	}
	if _, err = repo.Available(ctx, storeID, product, 0); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.StockRecord{}); err != nil {
		t.Fatalf("migrate stock_records: %v", err)
	}
	return db
}

func seedStock(t *testing.T, db *gorm.DB, storeID, productID uuid.UUID, qty int) {
	t.Helper()
	record := models.StockRecord{StoreID: storeID, ProductID: productID, Quantity: qty}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func loadQty(t *testing.T, db *gorm.DB, storeID, productID uuid.UUID) int {
	t.Helper()
	var record models.StockRecord
	err := db.Where("store_id = ? AND product_id = ?", storeID, productID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			t.Fatalf("stock record missing for %s", productID)
		}
		t.Fatalf("load stock: %v", err)
	}
	return record.Quantity
}
