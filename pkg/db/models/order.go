package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sondaumoi/storechain-backend/pkg/enums"
)

// Order is the order header. FinalPriceCents equals
// TotalPriceCents - DiscountCents at creation and is never recomputed.
// Shipping fields stay nil until the processing -> shipping transition.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID         uuid.UUID           `gorm:"column:store_id;type:uuid;not null"`
	CustomerID      uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	StaffID         *uuid.UUID          `gorm:"column:staff_id;type:uuid"`
	TotalQuantity   int                 `gorm:"column:total_quantity;not null"`
	TotalPriceCents int                 `gorm:"column:total_price_cents;not null"`
	DiscountCents   int                 `gorm:"column:discount_cents;not null;default:0"`
	FinalPriceCents int                 `gorm:"column:final_price_cents;not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cash'"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	OrderTime       time.Time           `gorm:"column:order_time;not null"`

	ShippingMethod   *enums.ShippingMethod `gorm:"column:shipping_method;type:text"`
	Carrier          *string               `gorm:"column:carrier"`
	TrackingCode     *string               `gorm:"column:tracking_code"`
	ShippingFeeCents *int                  `gorm:"column:shipping_fee_cents"`
	ShipperName      *string               `gorm:"column:shipper_name"`
	ShipperPhone     *string               `gorm:"column:shipper_phone"`
	ShippedAt        *time.Time            `gorm:"column:shipped_at"`
	DeliveredAt      *time.Time            `gorm:"column:delivered_at"`
	DeclinedAt       *time.Time            `gorm:"column:declined_at"`

	Lines     []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
