package controllers

import (
	"net/http"

	"github.com/sondaumoi/storechain-backend/api/responses"
	"github.com/sondaumoi/storechain-backend/api/validators"
	"github.com/sondaumoi/storechain-backend/internal/checkout"
	"github.com/sondaumoi/storechain-backend/pkg/logger"
)

type checkoutRequest struct {
	PaymentRef string `json:"payment_ref" validate:"required,min=1,max=64"`
}

// Checkout converts the customer's buy-now selection into an order, capturing
// the referenced payment first and reconciling the captured amount into the
// order's discount.
func Checkout(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CheckoutFromCart(r.Context(), checkout.Input{
			CustomerID: actor.UserID,
			PaymentRef: req.PaymentRef,
			Actor:      actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
