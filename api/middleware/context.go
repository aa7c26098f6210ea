package middleware

import "context"

type contextKey string

const (
	ctxUserID  contextKey = "auth.user_id"
	ctxRole    contextKey = "auth.role"
	ctxStoreID contextKey = "auth.store_id"
)

// WithUserID stamps the authenticated user id onto the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole stamps the actor role onto the context.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxRole, role)
}

// WithStoreID stamps the operator's store id onto the context.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, ctxStoreID, storeID)
}

// UserIDFromContext returns the authenticated user id, or "" when the
// request never passed the auth middleware.
func UserIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUserID)
}

// RoleFromContext returns the actor role seeded by the auth middleware.
func RoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRole)
}

// StoreIDFromContext returns the store id from the token, "" for customers.
func StoreIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxStoreID)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if value, ok := ctx.Value(key).(string); ok {
		return value
	}
	return ""
}
