package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sondaumoi/storechain-backend/api/responses"
	"github.com/sondaumoi/storechain-backend/api/validators"
	internalorders "github.com/sondaumoi/storechain-backend/internal/orders"
	"github.com/sondaumoi/storechain-backend/pkg/db/models"
	"github.com/sondaumoi/storechain-backend/pkg/enums"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
	"github.com/sondaumoi/storechain-backend/pkg/logger"
	"github.com/sondaumoi/storechain-backend/pkg/pagination"
)

type orderLineRequest struct {
	ProductID      string `json:"product_id" validate:"required,uuid4"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	UnitPriceCents int    `json:"unit_price_cents" validate:"gte=0"`
}

type createOrderRequest struct {
	StoreID       string             `json:"store_id" validate:"required,uuid4"`
	Lines         []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
	PaymentMethod string             `json:"payment_method" validate:"required"`
}

type shipOrderRequest struct {
	Method           string `json:"method" validate:"required"`
	ShipperName      string `json:"shipper_name"`
	ShipperPhone     string `json:"shipper_phone"`
	ShippingFeeCents int    `json:"shipping_fee_cents" validate:"gte=0"`
	Destination      string `json:"destination"`
	WeightGrams      int    `json:"weight_grams" validate:"gte=0"`
}

type orderListResponse struct {
	Orders     any    `json:"orders"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// OrderCreate commits a direct order: stock reservation, snapshot lines, the
// pending record and the customer's cart wipe in one transaction.
func OrderCreate(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		storeID, err := uuid.Parse(req.StoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id"))
			return
		}
		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		lines := make([]internalorders.LineInput, 0, len(req.Lines))
		for _, line := range req.Lines {
			productID, parseErr := uuid.Parse(line.ProductID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid product id"))
				return
			}
			lines = append(lines, internalorders.LineInput{
				ProductID:      productID,
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitPriceCents,
			})
		}

		order, err := svc.Create(r.Context(), internalorders.CreateOrderInput{
			StoreID:       storeID,
			CustomerID:    actor.UserID,
			Lines:         lines,
			PaymentMethod: method,
			Discount:      internalorders.ZeroDiscount,
			ClearCart:     internalorders.ClearAll,
			EntryPath:     "direct",
			Actor:         actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderAccept moves a pending order to processing.
func OrderAccept(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.Accept, logg)
}

// OrderDecline terminates a pending order and restores the reserved stock.
func OrderDecline(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.Decline, logg)
}

// OrderComplete marks a shipping order delivered.
func OrderComplete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.Complete, logg)
}

// OrderShip moves a processing order to shipping, via either local dispatch
// details or an external carrier booking.
func OrderShip(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req shipOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParseShippingMethod(req.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping method"))
			return
		}

		order, err := svc.Ship(r.Context(), internalorders.ShipOrderInput{
			OrderID:          orderID,
			Actor:            actor,
			Method:           method,
			ShipperName:      req.ShipperName,
			ShipperPhone:     req.ShipperPhone,
			ShippingFeeCents: req.ShippingFeeCents,
			Destination:      req.Destination,
			WeightGrams:      req.WeightGrams,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderDetail returns a single order with its lines, scoped to the viewer.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrdersForStore pages the active store's orders, optionally filtered by status.
func OrdersForStore(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, parseErr := enums.ParseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			status = &parsed
		}

		rows, next, err := svc.ListForStore(r.Context(), actor, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderListResponse{Orders: rows, NextCursor: next})
	}
}

// OrdersMine pages the calling customer's own orders.
func OrdersMine(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.ListForCustomer(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderListResponse{Orders: rows, NextCursor: next})
	}
}

func transition(op func(context.Context, internalorders.TransitionInput) (*models.Order, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := op(r.Context(), internalorders.TransitionInput{OrderID: orderID, Actor: actor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
