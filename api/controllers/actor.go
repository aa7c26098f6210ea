package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sondaumoi/storechain-backend/api/middleware"
	"github.com/sondaumoi/storechain-backend/internal/orders"
	"github.com/sondaumoi/storechain-backend/pkg/enums"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
)

// actorFromRequest rebuilds the authenticated actor from the context values
// the auth middleware seeded.
func actorFromRequest(r *http.Request) (orders.Actor, error) {
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}

	actor := orders.Actor{UserID: userID}

	if rawRole := middleware.RoleFromContext(r.Context()); rawRole != "" {
		role, parseErr := enums.ParseActorRole(rawRole)
		if parseErr != nil {
			return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, parseErr, "invalid role")
		}
		actor.Role = role
	}

	if rawStore := middleware.StoreIDFromContext(r.Context()); rawStore != "" {
		storeID, parseErr := uuid.Parse(rawStore)
		if parseErr != nil {
			return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, parseErr, "invalid store id")
		}
		actor.StoreID = &storeID
	}

	return actor, nil
}
