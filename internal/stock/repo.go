package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sondaumoi/storechain-backend/pkg/db/models"
)

// Repository reads stock records outside the reservation path.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to stock reads.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindRecord loads the stock row for one (store, product) pair.
func (r *Repository) FindRecord(ctx context.Context, storeID, productID uuid.UUID) (*models.StockRecord, error) {
	var record models.StockRecord
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Available reports whether the store can satisfy qty units of the product.
func (r *Repository) Available(ctx context.Context, storeID, productID uuid.UUID, qty int) (bool, error) {
	return CheckAvailable(ctx, r.db, storeID, productID, qty)
}

// ListByStore returns every stock row for a store.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.StockRecord, error) {
	var out []models.StockRecord
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("product_id ASC").
		Find(&out).Error
	return out, err
}
