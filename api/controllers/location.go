package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/dermafill/storefront-backend/api/middleware"
	"github.com/dermafill/storefront-backend/api/responses"
	"github.com/dermafill/storefront-backend/api/validators"
	"github.com/dermafill/storefront-backend/internal/gate"
	"github.com/dermafill/storefront-backend/internal/location"
	"github.com/dermafill/storefront-backend/pkg/access"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
)

type locationService interface {
	Get(ctx context.Context, visitorID string) (location.Preference, error)
	Set(ctx context.Context, visitorID string, req location.UpdateRequest) (location.Preference, error)
	Clear(ctx context.Context, visitorID string) error
}

type accessResolver interface {
	Resolve(ctx context.Context, visitorID, token string) gate.Resolution
}

func LocationGet(svc locationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "location service unavailable"))
			return
		}

		pref, err := svc.Get(r.Context(), middleware.VisitorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pref)
	}
}

// LocationUpdate stores the visitor's region. International visitors must
// confirm they are medical professionals before the choice takes effect.
func LocationUpdate(svc locationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "location service unavailable"))
			return
		}

		var body location.UpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pref, err := svc.Set(r.Context(), middleware.VisitorIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "location", string(pref.Resolved)), "location.updated")
		}
		responses.WriteSuccess(w, pref)
	}
}

func LocationClear(svc locationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "location service unavailable"))
			return
		}

		if err := svc.Clear(r.Context(), middleware.VisitorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type accessDecision struct {
	Level    access.ProtectionLevel     `json:"level"`
	Outcome  access.Outcome             `json:"outcome"`
	Location access.Location            `json:"location"`
	Auth     string                     `json:"auth"`
	Support  *middleware.SupportContact `json:"support,omitempty"`
}

// AccessCheck evaluates the gate for a page the storefront is about to render.
func AccessCheck(resolver accessResolver, support middleware.SupportContact, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access resolver unavailable"))
			return
		}

		level, err := access.ParseProtectionLevel(strings.TrimSpace(r.URL.Query().Get("level")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid protection level").
				WithDetails(map[string]any{"field": "level"}))
			return
		}

		token, _ := validators.BearerToken(r.Header.Get("Authorization"))
		res := resolver.Resolve(r.Context(), middleware.VisitorIDFromContext(r.Context()), token)
		outcome := access.Decide(res.Access, level)

		decision := accessDecision{
			Level:    level,
			Outcome:  outcome,
			Location: res.Access.Location,
			Auth:     res.Access.Auth.String(),
		}
		if outcome.Kind == access.OutcomeInterstitial && outcome.Interstitial == access.InterstitialRejected {
			decision.Support = &support
		}

		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, decision)
	}
}
