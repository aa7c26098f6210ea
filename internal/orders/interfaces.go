package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sondaumoi/storechain-backend/pkg/db/models"
	"github.com/sondaumoi/storechain-backend/pkg/enums"
	"github.com/sondaumoi/storechain-backend/pkg/pagination"
)

// Repository persists order aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListByStore(ctx context.Context, storeID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, string, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	FindProductNames(ctx context.Context, storeID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

// CartClearer removes the customer's cart lines inside the order transaction.
// The direct path clears everything; checkout-from-cart clears only the lines
// flagged for the in-flight selection.
type CartClearer interface {
	ClearAll(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error
	ClearSelected(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error
}

// StoreChecker resolves a store before any order is written against it.
type StoreChecker interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// ShipmentBooker books a shipment with an external carrier. Failure must
// leave the order untouched in processing.
type ShipmentBooker interface {
	CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentBooking, error)
}

// ShipmentRequest is the carrier booking input built from an order.
type ShipmentRequest struct {
	OrderID         uuid.UUID
	Destination     string
	WeightGrams     int
	CODAmountCents  int
	ItemDescription string
}

// ShipmentBooking is what the carrier hands back on success.
type ShipmentBooking struct {
	Carrier      string
	TrackingCode string
	FeeCents     int
	ETA          string
}
