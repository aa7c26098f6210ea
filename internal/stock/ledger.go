package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sondaumoi/storechain-backend/pkg/db/models"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
)

// ReservationRequest asks for qty units of one product at one store.
type ReservationRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// CheckAvailable reports whether the store holds at least qty units of the product.
func CheckAvailable(ctx context.Context, db *gorm.DB, storeID, productID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	var record models.StockRecord
	err := db.WithContext(ctx).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock record")
	}
	return record.Quantity >= qty, nil
}

// Reserve decrements stock for every request inside the caller's transaction.
// The decrement is guarded by the current quantity, so two transactions racing
// for the last unit cannot both commit. The first request that cannot be
// satisfied aborts the whole call; the caller's transaction must roll back.
func Reserve(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	for _, req := range requests {
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
		}
		if req.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation product id required")
		}
	}

	for _, req := range requests {
		res := tx.WithContext(ctx).Exec(`
			UPDATE stock_records
			SET quantity = quantity - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE store_id = ? AND product_id = ? AND quantity >= ?
		`, req.Qty, storeID, req.ProductID, req.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
		}
		if res.RowsAffected == 0 {
			return classifyReservationFailure(ctx, tx, storeID, req)
		}
	}
	return nil
}

// Release re-credits stock for one product. Used when a pending order is
// declined. A missing stock record fails the call rather than silently
// dropping the increment, so a decline never half-restocks.
func Release(ctx context.Context, tx *gorm.DB, storeID, productID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE stock_records
		SET quantity = quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE store_id = ? AND product_id = ?
	`, qty, storeID, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	return nil
}

// classifyReservationFailure tells a sold-out product apart from one the
// store never stocked. Runs inside the same transaction as the failed update.
func classifyReservationFailure(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, req ReservationRequest) error {
	var record models.StockRecord
	err := tx.WithContext(ctx).
		Where("store_id = ? AND product_id = ?", storeID, req.ProductID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not stocked at store").
				WithDetails(map[string]any{"product_id": req.ProductID.String()})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect stock record")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for product %s", req.ProductID)).
		WithDetails(map[string]any{
			"product_id": req.ProductID.String(),
			"requested":  req.Qty,
			"available":  record.Quantity,
		})
}
