package controllers

import (
	"net/http"

	"github.com/dermafill/storefront-backend/api/middleware"
	"github.com/dermafill/storefront-backend/api/responses"
	"github.com/dermafill/storefront-backend/api/validators"
	"github.com/dermafill/storefront-backend/internal/auth"
	"github.com/dermafill/storefront-backend/internal/users"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdminLogin(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type statusResponse struct {
	User *users.StatusDTO `json:"user"`
}

// AuthStatus reports the caller's identity. Anonymous callers get a null user
// rather than 401 so the storefront can settle its auth state.
func AuthStatus(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		res, ok := middleware.ResolutionFromContext(r.Context())
		if !ok || !res.Authenticated() {
			responses.WriteSuccess(w, statusResponse{})
			return
		}
		responses.WriteSuccess(w, statusResponse{User: users.StatusFromModel(res.User)})
	}
}
