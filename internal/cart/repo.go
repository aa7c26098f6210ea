package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sondaumoi/storechain-backend/pkg/db/models"
)

// Repository handles the durable cart lines of a customer.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to cart operations.
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

// FindLine loads one cart line by its composite key.
func (r *Repository) FindLine(ctx context.Context, customerID, productID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ListByCustomer returns every cart line a customer holds.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&lines).Error
	return lines, err
}

// Create inserts a new cart line.
func (r *Repository) Create(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// UpdateQuantity sets the quantity of an existing line.
func (r *Repository) UpdateQuantity(ctx context.Context, customerID, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Update("quantity", qty).Error
}

// DeleteLine removes one cart line.
func (r *Repository) DeleteLine(ctx context.Context, customerID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Delete(&models.CartLine{}).Error
}

// DeleteAll removes every cart line a customer holds.
func (r *Repository) DeleteAll(ctx context.Context, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&models.CartLine{}).Error
}

// FindProductForSnapshot reads the catalog row whose name and price get
// copied onto the cart line at add time.
func (r *Repository) FindProductForSnapshot(ctx context.Context, storeID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND store_id = ? AND is_active = ?", productID, storeID, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}
