package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dermafill/storefront-backend/api/responses"
	"github.com/dermafill/storefront-backend/api/validators"
	"github.com/dermafill/storefront-backend/internal/gate"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
)

type identityResolver interface {
	Identify(ctx context.Context, token string) gate.Resolution
}

// Auth requires a bearer token backed by a live session and an active user.
func Auth(resolver identityResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity resolver unavailable"))
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			token, err := validators.BearerToken(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid credentials"))
				return
			}

			res := resolver.Identify(r.Context(), token)
			if !res.Authenticated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), res, logg)))
		})
	}
}

// OptionalAuth resolves the bearer token when present and never rejects.
func OptionalAuth(resolver identityResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				next.ServeHTTP(w, r)
				return
			}
			token, _ := validators.BearerToken(r.Header.Get("Authorization"))
			res := resolver.Identify(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), res, logg)))
		})
	}
}

// RequireIdentity rejects requests whose resolution carries no authenticated user.
// It runs after Gate on routes that act on behalf of a user.
func RequireIdentity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := ResolutionFromContext(r.Context())
			if !ok || !res.Authenticated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withIdentity(ctx context.Context, res gate.Resolution, logg *logger.Logger) context.Context {
	ctx = WithResolution(ctx, res)
	if logg != nil && res.Authenticated() {
		ctx = logg.WithUserID(ctx, res.User.ID.String())
		ctx = logg.WithActorRole(ctx, string(res.User.Role))
	}
	return ctx
}
