package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sondaumoi/storechain-backend/pkg/db/models"
)

// SelectionRepository manages the ephemeral checkout selection: the subset of
// a customer's cart flagged for immediate purchase. It is a separate surface
// from Repository so ordinary cart edits never touch in-flight checkout state,
// even though both are backed by the same table.
type SelectionRepository struct {
	db *gorm.DB
}

// NewSelectionRepository binds a GORM DB to checkout-selection operations.
func NewSelectionRepository(db *gorm.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *SelectionRepository) WithTx(tx *gorm.DB) *SelectionRepository {
	if tx == nil {
		return r
	}
	return &SelectionRepository{db: tx}
}

// ListSelected returns the cart lines flagged for checkout.
func (r *SelectionRepository) ListSelected(ctx context.Context, customerID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND selected_for_checkout = ?", customerID, true).
		Order("created_at ASC").
		Find(&lines).Error
	return lines, err
}

// SetSelected flags or unflags one line for checkout.
func (r *SelectionRepository) SetSelected(ctx context.Context, customerID, productID uuid.UUID, selected bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Update("selected_for_checkout", selected)
	return res.RowsAffected, res.Error
}

// ClearSelected deletes the flagged lines once their order has committed.
func (r *SelectionRepository) ClearSelected(ctx context.Context, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ? AND selected_for_checkout = ?", customerID, true).
		Delete(&models.CartLine{}).Error
}
