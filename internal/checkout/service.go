package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sondaumoi/storechain-backend/internal/cart"
	"github.com/sondaumoi/storechain-backend/internal/orders"
	"github.com/sondaumoi/storechain-backend/pkg/db/models"
	"github.com/sondaumoi/storechain-backend/pkg/enums"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
	"github.com/sondaumoi/storechain-backend/pkg/logger"
	"github.com/sondaumoi/storechain-backend/pkg/metrics"
)

// PaymentCapturer captures an externally approved payment and returns the
// amount taken, in cents. Money has moved once this returns successfully.
type PaymentCapturer interface {
	Capture(ctx context.Context, paymentRef string) (int, error)
}

// Input starts a checkout from the customer's buy-now selection. PaymentRef
// identifies the approved payment at the processor.
type Input struct {
	CustomerID uuid.UUID
	PaymentRef string
	Actor      orders.Actor
}

// Service reconciles an external payment capture into the same order-creation
// transaction the direct path uses. The captured amount is authoritative:
// discount is derived so the final price always equals what was captured.
type Service struct {
	selection *cart.SelectionRepository
	orders    orders.Service
	capturer  PaymentCapturer
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger
}

// NewService builds the checkout reconciliation service.
func NewService(
	selection *cart.SelectionRepository,
	orderSvc orders.Service,
	capturer PaymentCapturer,
	orderMetrics *metrics.OrderMetrics,
	logg *logger.Logger,
) (*Service, error) {
	if selection == nil {
		return nil, fmt.Errorf("selection repository required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if capturer == nil {
		return nil, fmt.Errorf("payment capturer required")
	}
	return &Service{
		selection: selection,
		orders:    orderSvc,
		capturer:  capturer,
		metrics:   orderMetrics,
		logg:      logg,
	}, nil
}

// CheckoutFromCart captures the payment, then commits an order from the
// flagged cart lines. A creation failure after the capture succeeded is a
// reconciliation inconsistency: money moved but no order exists. It is never
// silently recovered; it is logged, counted and surfaced for manual review.
func (s *Service) CheckoutFromCart(ctx context.Context, input Input) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	lines, err := s.selection.ListSelected(ctx, input.CustomerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list checkout selection")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCheckout, "no cart lines selected for checkout")
	}
	storeID, err := singleStore(lines)
	if err != nil {
		return nil, err
	}

	totalPrice := 0
	lineInputs := make([]orders.LineInput, 0, len(lines))
	for _, line := range lines {
		totalPrice += line.Quantity * line.UnitPriceCents
		lineInputs = append(lineInputs, orders.LineInput{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			Name:           line.ProductName,
		})
	}

	capturedCents, err := s.capturer.Capture(ctx, input.PaymentRef)
	if err != nil {
		return nil, err
	}

	// The derived discount may be negative; that is a customer-favorable
	// price match and the final price still equals the captured amount.
	discount := totalPrice - capturedCents

	order, err := s.orders.Create(ctx, orders.CreateOrderInput{
		StoreID:       storeID,
		CustomerID:    input.CustomerID,
		Lines:         lineInputs,
		PaymentMethod: enums.PaymentMethodPayPal,
		Discount:      func(int) int { return discount },
		ClearCart:     orders.ClearSelected,
		EntryPath:     "checkout",
		Actor:         input.Actor,
	})
	if err != nil {
		s.metrics.IncReconciliationInconsistency()
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"customer_id":    input.CustomerID.String(),
				"payment_ref":    input.PaymentRef,
				"captured_cents": capturedCents,
			})
			s.logg.Error(logCtx, "payment captured but order creation failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeReconciliation, err,
			"payment captured but order creation failed")
	}
	return order, nil
}

// singleStore requires every selected line to target one store; an order is
// owned by exactly one store.
func singleStore(lines []models.CartLine) (uuid.UUID, error) {
	storeID := lines[0].StoreID
	for _, line := range lines[1:] {
		if line.StoreID != storeID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation,
				"checkout selection spans multiple stores")
		}
	}
	return storeID, nil
}
