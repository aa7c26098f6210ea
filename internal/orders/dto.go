package orders

import (
	"github.com/google/uuid"

	"github.com/sondaumoi/storechain-backend/pkg/enums"
)

// Actor is the authenticated identity attached to every order operation.
// Auth issues it; the core only enforces store scoping with it.
type Actor struct {
	UserID  uuid.UUID
	StoreID *uuid.UUID
	Role    enums.ActorRole
}

// LineInput is one requested line at order creation. Name may be empty for
// the direct path, in which case it is snapshotted from the catalog.
type LineInput struct {
	ProductID      uuid.UUID
	Quantity       int
	UnitPriceCents int
	Name           string
}

// CartClearMode selects which cart lines are removed when the order commits.
type CartClearMode int

const (
	ClearNone CartClearMode = iota
	ClearAll
	ClearSelected
)

// DiscountFn computes the discount in cents from the order total. The direct
// path uses ZeroDiscount; checkout reconciliation derives it from the amount
// the processor actually captured.
type DiscountFn func(totalPriceCents int) int

// ZeroDiscount is the direct-order discount policy.
func ZeroDiscount(int) int { return 0 }

// CreateOrderInput carries everything needed to commit a new order.
type CreateOrderInput struct {
	StoreID       uuid.UUID
	CustomerID    uuid.UUID
	Lines         []LineInput
	PaymentMethod enums.PaymentMethod
	Discount      DiscountFn
	ClearCart     CartClearMode
	EntryPath     string
	Actor         Actor
}

// TransitionInput identifies the order and the staff member driving a
// state-machine move.
type TransitionInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

// ShipOrderInput carries the processing -> shipping move. Exactly one of the
// two method blocks applies: local dispatch fields, or a carrier booking
// request built from Destination/WeightGrams.
type ShipOrderInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Method  enums.ShippingMethod

	ShipperName      string
	ShipperPhone     string
	ShippingFeeCents int

	Destination string
	WeightGrams int
}

// OrderEvent is the payload shape shared by the order lifecycle events.
type OrderEvent struct {
	OrderID         uuid.UUID         `json:"order_id"`
	StoreID         uuid.UUID         `json:"store_id"`
	CustomerID      uuid.UUID         `json:"customer_id"`
	Status          enums.OrderStatus `json:"status"`
	TotalQuantity   int               `json:"total_quantity"`
	FinalPriceCents int               `json:"final_price_cents"`
}
