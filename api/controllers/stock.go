package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sondaumoi/storechain-backend/api/middleware"
	"github.com/sondaumoi/storechain-backend/api/responses"
	"github.com/sondaumoi/storechain-backend/api/validators"
	"github.com/sondaumoi/storechain-backend/internal/stock"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
	"github.com/sondaumoi/storechain-backend/pkg/logger"
)

// StockForStore lists the active store's ledger rows. Operator-only; the
// store scope comes from the token, never the URL.
func StockForStore(repo *stock.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawStore := middleware.StoreIDFromContext(r.Context())
		storeID, err := uuid.Parse(rawStore)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "store context missing"))
			return
		}

		records, err := repo.ListByStore(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock"))
			return
		}
		responses.WriteSuccess(w, records)
	}
}

type availabilityResponse struct {
	Available bool `json:"available"`
	Quantity  int  `json:"quantity"`
}

// StockAvailability is the customer pre-flight check: can the store satisfy
// qty units right now? Advisory only; the order path re-checks under the
// reservation guard.
func StockAvailability(repo *stock.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "storeId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id"))
			return
		}
		productID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "productId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}
		qty, err := validators.ParseQueryInt(r, "qty", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ok, err := repo.Available(r.Context(), storeID, productID, qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, availabilityResponse{Available: ok, Quantity: qty})
	}
}

// StockRecordDetail returns one ledger row for the active store.
func StockRecordDetail(repo *stock.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawStore := middleware.StoreIDFromContext(r.Context())
		storeID, err := uuid.Parse(rawStore)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "store context missing"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "productId"))
		productID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		record, err := repo.FindRecord(r.Context(), storeID, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found"))
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock record"))
			return
		}
		responses.WriteSuccess(w, record)
	}
}
