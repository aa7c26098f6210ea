package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Clearer removes cart lines inside an order-creation transaction. It is the
// only cart surface the order path touches.
type Clearer struct {
	repo      *Repository
	selection *SelectionRepository
}

// NewClearer builds a Clearer over the shared cart repositories.
func NewClearer(repo *Repository, selection *SelectionRepository) *Clearer {
	return &Clearer{repo: repo, selection: selection}
}

// ClearAll drops every cart line the customer holds.
func (c *Clearer) ClearAll(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error {
	return c.repo.WithTx(tx).DeleteAll(ctx, customerID)
}

// ClearSelected drops only the lines flagged for the in-flight checkout.
func (c *Clearer) ClearSelected(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error {
	return c.selection.WithTx(tx).ClearSelected(ctx, customerID)
}
