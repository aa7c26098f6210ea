package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/sondaumoi/storechain-backend/pkg/db"
	"github.com/sondaumoi/storechain-backend/pkg/db/models"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
)

// Service exposes cart editing and checkout-selection toggling.
type Service struct {
	repo      *Repository
	selection *SelectionRepository
}

// NewService builds a cart service.
func NewService(repo *Repository, selection *SelectionRepository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if selection == nil {
		return nil, fmt.Errorf("selection repository required")
	}
	return &Service{repo: repo, selection: selection}, nil
}

// AddLine puts qty units of a product into the customer's cart, snapshotting
// name and unit price from the catalog. Adding a product already in the cart
// raises its quantity instead of duplicating the line.
func (s *Service) AddLine(ctx context.Context, customerID, storeID, productID uuid.UUID, qty int) (*models.CartLine, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	existing, err := s.repo.FindLine(ctx, customerID, productID)
	if err == nil {
		newQty := existing.Quantity + qty
		if err := s.repo.UpdateQuantity(ctx, customerID, productID, newQty); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		existing.Quantity = newQty
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}

	product, err := s.repo.FindProductForSnapshot(ctx, storeID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	line := &models.CartLine{
		CustomerID:     customerID,
		ProductID:      productID,
		StoreID:        storeID,
		ProductName:    product.Name,
		UnitPriceCents: product.UnitPriceCents,
		Quantity:       qty,
	}
	if err := s.repo.Create(ctx, line); err != nil {
		// Concurrent adds can race the FindLine check into the
		// (customer_id, product_id) unique index.
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart line already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
	}
	return line, nil
}

// Increment raises a line's quantity by one.
func (s *Service) Increment(ctx context.Context, customerID, productID uuid.UUID) (*models.CartLine, error) {
	line, err := s.loadLine(ctx, customerID, productID)
	if err != nil {
		return nil, err
	}
	line.Quantity++
	if err := s.repo.UpdateQuantity(ctx, customerID, productID, line.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return line, nil
}

// Decrement lowers a line's quantity by one, deleting the line at zero.
func (s *Service) Decrement(ctx context.Context, customerID, productID uuid.UUID) (*models.CartLine, error) {
	line, err := s.loadLine(ctx, customerID, productID)
	if err != nil {
		return nil, err
	}
	line.Quantity--
	if line.Quantity <= 0 {
		if err := s.repo.DeleteLine(ctx, customerID, productID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
		}
		return nil, nil
	}
	if err := s.repo.UpdateQuantity(ctx, customerID, productID, line.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return line, nil
}

// RemoveLine deletes a cart line outright.
func (s *Service) RemoveLine(ctx context.Context, customerID, productID uuid.UUID) error {
	if err := s.repo.DeleteLine(ctx, customerID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	return nil
}

// List returns the customer's full cart.
func (s *Service) List(ctx context.Context, customerID uuid.UUID) ([]models.CartLine, error) {
	lines, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}
	return lines, nil
}

// SetSelected toggles a line's buy-now flag for the next checkout.
func (s *Service) SetSelected(ctx context.Context, customerID, productID uuid.UUID, selected bool) error {
	affected, err := s.selection.SetSelected(ctx, customerID, productID, selected)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update checkout selection")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return nil
}

// ListSelected returns the lines flagged for checkout.
func (s *Service) ListSelected(ctx context.Context, customerID uuid.UUID) ([]models.CartLine, error) {
	lines, err := s.selection.ListSelected(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list checkout selection")
	}
	return lines, nil
}

func (s *Service) loadLine(ctx context.Context, customerID, productID uuid.UUID) (*models.CartLine, error) {
	line, err := s.repo.FindLine(ctx, customerID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	return line, nil
}
