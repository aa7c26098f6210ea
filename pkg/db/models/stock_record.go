package models

import (
	"time"

	"github.com/google/uuid"
)

// StockRecord is the stock ledger row: the authoritative available-to-sell
// count for one product at one store. Quantity never goes negative; every
// decrement is guarded by a conditional UPDATE inside the order transaction.
type StockRecord struct {
	StoreID   uuid.UUID `gorm:"column:store_id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Quantity  int       `gorm:"column:quantity;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the ledger table name explicit.
func (StockRecord) TableName() string {
	return "stock_records"
}
