package middleware

import (
	"context"

	"github.com/dermafill/storefront-backend/internal/gate"
)

type contextKey string

const (
	ctxUserID     contextKey = "user_id"
	ctxRole       contextKey = "actor_role"
	ctxVisitorID  contextKey = "visitor_id"
	ctxResolution contextKey = "gate_resolution"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func VisitorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxVisitorID).(string); ok {
		return v
	}
	return ""
}

// ResolutionFromContext returns the caller resolution stored by Auth, OptionalAuth or Gate.
func ResolutionFromContext(ctx context.Context) (gate.Resolution, bool) {
	if ctx == nil {
		return gate.Resolution{}, false
	}
	res, ok := ctx.Value(ctxResolution).(gate.Resolution)
	return res, ok
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithVisitorID injects the visitor identifier into the context.
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxVisitorID, visitorID)
}

// WithResolution stores the caller resolution and, when authenticated, its user id and role.
func WithResolution(ctx context.Context, res gate.Resolution) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxResolution, res)
	if res.Authenticated() {
		ctx = context.WithValue(ctx, ctxUserID, res.User.ID.String())
		ctx = context.WithValue(ctx, ctxRole, string(res.User.Role))
	}
	return ctx
}
