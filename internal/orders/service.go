package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sondaumoi/storechain-backend/internal/stock"
	"github.com/sondaumoi/storechain-backend/pkg/db/models"
	"github.com/sondaumoi/storechain-backend/pkg/enums"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
	"github.com/sondaumoi/storechain-backend/pkg/logger"
	"github.com/sondaumoi/storechain-backend/pkg/metrics"
	"github.com/sondaumoi/storechain-backend/pkg/outbox"
	"github.com/sondaumoi/storechain-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives the order lifecycle: creation with stock reservation, and
// the staff-operated transitions accept, decline, ship and complete.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Accept(ctx context.Context, input TransitionInput) (*models.Order, error)
	Decline(ctx context.Context, input TransitionInput) (*models.Order, error)
	Ship(ctx context.Context, input ShipOrderInput) (*models.Order, error)
	Complete(ctx context.Context, input TransitionInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	ListForStore(ctx context.Context, actor Actor, status *enums.OrderStatus, params pagination.Params) ([]models.Order, string, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	stores  StoreChecker
	cart    CartClearer
	booker  ShipmentBooker
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
}

// NewService builds an order service with the required dependencies. The
// shipment booker may be nil when carrier shipping is disabled.
func NewService(
	repo Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	stores StoreChecker,
	cart CartClearer,
	booker ShipmentBooker,
	orderMetrics *metrics.OrderMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store checker required")
	}
	if cart == nil {
		return nil, fmt.Errorf("cart clearer required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		stores:  stores,
		cart:    cart,
		booker:  booker,
		metrics: orderMetrics,
		logg:    logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line product id required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if line.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line unit price must not be negative")
		}
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	discount := input.Discount
	if discount == nil {
		discount = ZeroDiscount
	}

	totalQty := 0
	totalPrice := 0
	for _, line := range input.Lines {
		totalQty += line.Quantity
		totalPrice += line.Quantity * line.UnitPriceCents
	}
	discountCents := discount(totalPrice)
	finalPrice := totalPrice - discountCents

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.stores.Get(ctx, input.StoreID); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)

		names, err := s.resolveLineNames(ctx, repo, input.StoreID, input.Lines)
		if err != nil {
			return err
		}

		requests := make([]stock.ReservationRequest, 0, len(input.Lines))
		for _, line := range input.Lines {
			requests = append(requests, stock.ReservationRequest{
				ProductID: line.ProductID,
				Qty:       line.Quantity,
			})
		}
		if err := stock.Reserve(ctx, tx, input.StoreID, requests); err != nil {
			return err
		}

		order := &models.Order{
			ID:              uuid.New(),
			StoreID:         input.StoreID,
			CustomerID:      input.CustomerID,
			TotalQuantity:   totalQty,
			TotalPriceCents: totalPrice,
			DiscountCents:   discountCents,
			FinalPriceCents: finalPrice,
			PaymentMethod:   input.PaymentMethod,
			Status:          enums.OrderStatusPending,
			OrderTime:       time.Now(),
		}
		for _, line := range input.Lines {
			order.Lines = append(order.Lines, models.OrderLine{
				ID:             uuid.New(),
				OrderID:        order.ID,
				ProductID:      line.ProductID,
				Name:           names[line.ProductID],
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitPriceCents,
				LineTotalCents: line.Quantity * line.UnitPriceCents,
			})
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		switch input.ClearCart {
		case ClearAll:
			if err := s.cart.ClearAll(ctx, tx, input.CustomerID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
			}
		case ClearSelected:
			if err := s.cart.ClearSelected(ctx, tx, input.CustomerID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear checkout selection")
			}
		}

		created = order
		return s.emit(ctx, tx, enums.EventOrderCreated, order, input.Actor)
	})
	if err != nil {
		s.countReservationDenial(err)
		return nil, err
	}

	s.metrics.IncCreated(input.EntryPath)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, created.ID.String())
		s.logg.Info(logCtx, "order created")
	}
	return created, nil
}

func (s *service) Accept(ctx context.Context, input TransitionInput) (*models.Order, error) {
	var accepted *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadGuarded(ctx, repo, input.OrderID, input.Actor, enums.OrderStatusProcessing)
		if err != nil {
			return err
		}

		staffID := input.Actor.UserID
		updates := map[string]any{
			"status":   enums.OrderStatusProcessing,
			"staff_id": staffID,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusProcessing
		order.StaffID = &staffID

		accepted = order
		return s.emit(ctx, tx, enums.EventOrderAccepted, order, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

func (s *service) Decline(ctx context.Context, input TransitionInput) (*models.Order, error) {
	var declined *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadGuarded(ctx, repo, input.OrderID, input.Actor, enums.OrderStatusDeclined)
		if err != nil {
			return err
		}

		// Every line item re-credits stock or the whole decline aborts.
		for _, line := range order.Lines {
			if err := stock.Release(ctx, tx, order.StoreID, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		now := time.Now()
		updates := map[string]any{
			"status":      enums.OrderStatusDeclined,
			"declined_at": now,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusDeclined
		order.DeclinedAt = &now

		declined = order
		return s.emit(ctx, tx, enums.EventOrderDeclined, order, input.Actor)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncDeclined()
	return declined, nil
}

func (s *service) Ship(ctx context.Context, input ShipOrderInput) (*models.Order, error) {
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping method")
	}

	var booking *ShipmentBooking
	if input.Method == enums.ShippingMethodCarrier {
		if s.booker == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier shipping not configured")
		}

		// Guards run before the carrier is contacted so an obviously bad
		// request never books a shipment. A booking failure returns here
		// with no order mutation.
		order, err := s.repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return nil, mapOrderLookup(err)
		}
		if err := guardTransition(order, input.Actor, enums.OrderStatusShipping); err != nil {
			return nil, err
		}

		booking, err = s.booker.CreateShipment(ctx, ShipmentRequest{
			OrderID:         order.ID,
			Destination:     input.Destination,
			WeightGrams:     input.WeightGrams,
			CODAmountCents:  codAmount(order),
			ItemDescription: describeLines(order.Lines),
		})
		if err != nil {
			return nil, err
		}
	} else {
		if input.ShipperName == "" || input.ShipperPhone == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipper name and phone required for local dispatch")
		}
	}

	var shipped *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadGuarded(ctx, repo, input.OrderID, input.Actor, enums.OrderStatusShipping)
		if err != nil {
			return err
		}

		now := time.Now()
		method := input.Method
		updates := map[string]any{
			"status":          enums.OrderStatusShipping,
			"shipping_method": method,
			"shipped_at":      now,
		}
		if booking != nil {
			updates["carrier"] = booking.Carrier
			updates["tracking_code"] = booking.TrackingCode
			updates["shipping_fee_cents"] = booking.FeeCents
			order.Carrier = &booking.Carrier
			order.TrackingCode = &booking.TrackingCode
			order.ShippingFeeCents = &booking.FeeCents
		} else {
			updates["shipper_name"] = input.ShipperName
			updates["shipper_phone"] = input.ShipperPhone
			updates["shipping_fee_cents"] = input.ShippingFeeCents
			name, phone, fee := input.ShipperName, input.ShipperPhone, input.ShippingFeeCents
			order.ShipperName = &name
			order.ShipperPhone = &phone
			order.ShippingFeeCents = &fee
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusShipping
		order.ShippingMethod = &method
		order.ShippedAt = &now

		shipped = order
		return s.emit(ctx, tx, enums.EventOrderShipped, order, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return shipped, nil
}

func (s *service) Complete(ctx context.Context, input TransitionInput) (*models.Order, error) {
	var completed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadGuarded(ctx, repo, input.OrderID, input.Actor, enums.OrderStatusDelivered)
		if err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": now,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusDelivered
		order.DeliveredAt = &now

		completed = order
		return s.emit(ctx, tx, enums.EventOrderCompleted, order, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderLookup(err)
	}
	if !canView(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order not visible to actor")
	}
	return order, nil
}

func (s *service) ListForStore(ctx context.Context, actor Actor, status *enums.OrderStatus, params pagination.Params) ([]models.Order, string, error) {
	if !actor.Role.IsStoreOperator() && actor.Role != enums.ActorRoleAdmin {
		return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "store staff only")
	}
	if actor.StoreID == nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	rows, next, err := s.repo.ListByStore(ctx, *actor.StoreID, status, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list store orders")
	}
	return rows, next, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	if customerID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	rows, next, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return rows, next, nil
}

// loadGuarded loads an order inside the transaction and applies the shared
// transition guards: existence, store scoping, then legality of the move.
func (s *service) loadGuarded(ctx context.Context, repo Repository, orderID uuid.UUID, actor Actor, target enums.OrderStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderLookup(err)
	}
	if err := guardTransition(order, actor, target); err != nil {
		return nil, err
	}
	return order, nil
}

// guardTransition is the single authorization-and-state check evaluated at
// the top of every state-machine operation.
func guardTransition(order *models.Order, actor Actor, target enums.OrderStatus) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.IsStoreOperator() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "store staff only")
	}
	if actor.StoreID == nil || *actor.StoreID != order.StoreID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to store")
	}
	if !order.Status.CanTransitionTo(target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, target)).
			WithDetails(map[string]any{
				"current": order.Status.String(),
				"target":  target.String(),
			})
	}
	return nil
}

func (s *service) resolveLineNames(ctx context.Context, repo Repository, storeID uuid.UUID, lines []LineInput) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(lines))
	var missing []uuid.UUID
	for _, line := range lines {
		if line.Name != "" {
			names[line.ProductID] = line.Name
			continue
		}
		missing = append(missing, line.ProductID)
	}
	if len(missing) == 0 {
		return names, nil
	}

	found, err := repo.FindProductNames(ctx, storeID, missing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product names")
	}
	for _, id := range missing {
		name, ok := found[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id.String()})
		}
		names[id] = name
	}
	return names, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order, actor Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor: &outbox.ActorRef{
			UserID:  actor.UserID,
			StoreID: actor.StoreID,
			Role:    actor.Role,
		},
		Data: OrderEvent{
			OrderID:         order.ID,
			StoreID:         order.StoreID,
			CustomerID:      order.CustomerID,
			Status:          order.Status,
			TotalQuantity:   order.TotalQuantity,
			FinalPriceCents: order.FinalPriceCents,
		},
	})
}

func (s *service) countReservationDenial(err error) {
	switch {
	case pkgerrors.Is(err, pkgerrors.CodeInsufficientStock):
		s.metrics.IncReservationDenied("insufficient_stock")
	case pkgerrors.Is(err, pkgerrors.CodeNotFound):
		s.metrics.IncReservationDenied("unknown_product")
	}
}

func canView(order *models.Order, actor Actor) bool {
	if actor.UserID == order.CustomerID {
		return true
	}
	if actor.Role == enums.ActorRoleAdmin {
		return true
	}
	return actor.Role.IsStoreOperator() && actor.StoreID != nil && *actor.StoreID == order.StoreID
}

func codAmount(order *models.Order) int {
	if order.PaymentMethod == enums.PaymentMethodCash {
		return order.FinalPriceCents
	}
	return 0
}

func describeLines(lines []models.OrderLine) string {
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return fmt.Sprintf("%d items", total)
}

func mapOrderLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
