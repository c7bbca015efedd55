package internal

import (
	"context"
)

type contextKey string

// AdminContextKey stores the token id of the authenticated admin session.
const AdminContextKey contextKey = "admin"

// WithAdminToken returns a copy of ctx that carries the admin token id.
func WithAdminToken(ctx context.Context, tokenID string) context.Context {
	return context.WithValue(ctx, AdminContextKey, tokenID)
}

// GetAdminTokenFromContext extracts the authenticated admin token id from request context
func GetAdminTokenFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(AdminContextKey).(string)
	if !ok || tokenID == "" {
		return "", false
	}

	return tokenID, true
}
