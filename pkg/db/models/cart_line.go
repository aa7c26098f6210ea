package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one durable cart row, keyed by (customer, product). Price and
// name are captured at add time so the cart renders stably while the catalog
// mutates underneath it.
//
// SelectedForCheckout marks the line as part of the ephemeral checkout
// selection ("buy now"). Cart edits and checkout never share code paths even
// though both are backed by this table; see internal/cart.
type CartLine struct {
	CustomerID          uuid.UUID `gorm:"column:customer_id;type:uuid;primaryKey"`
	ProductID           uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	StoreID             uuid.UUID `gorm:"column:store_id;type:uuid;not null"`
	ProductName         string    `gorm:"column:product_name;not null"`
	UnitPriceCents      int       `gorm:"column:unit_price_cents;not null"`
	Quantity            int       `gorm:"column:quantity;not null"`
	SelectedForCheckout bool      `gorm:"column:selected_for_checkout;not null;default:false"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
