package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog listing the core snapshots from at order time.
// Catalog CRUD itself lives outside the core; only (id, storeId, name,
// unitPriceCents) are read here.
type Product struct {
	ID             uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID        uuid.UUID    `gorm:"column:store_id;type:uuid;not null"`
	SKU            string       `gorm:"column:sku;not null"`
	Name           string       `gorm:"column:name;not null"`
	Description    *string      `gorm:"column:description"`
	UnitPriceCents int          `gorm:"column:unit_price_cents;not null"`
	ImageURL       *string      `gorm:"column:image_url"`
	IsActive       bool         `gorm:"column:is_active;not null;default:true"`
	Stock          *StockRecord `gorm:"foreignKey:ProductID,StoreID;references:ID,StoreID"`
	CreatedAt      time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
