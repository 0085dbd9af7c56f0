package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dermafill/storefront-backend/api/responses"
	"github.com/dermafill/storefront-backend/api/validators"
	"github.com/dermafill/storefront-backend/internal/gate"
	"github.com/dermafill/storefront-backend/pkg/access"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
)

type accessResolver interface {
	Resolve(ctx context.Context, visitorID, token string) gate.Resolution
}

type gateRecorder interface {
	IncGateDecision(level, outcome string)
}

// SupportContact is shown to rejected applicants.
type SupportContact struct {
	Email string `json:"support_email,omitempty"`
	Phone string `json:"support_phone,omitempty"`
}

type GateParams struct {
	Resolver  accessResolver
	Metrics   gateRecorder
	LoginPath string
	Support   SupportContact
	Logger    *logger.Logger
}

// Gate enforces a protection level. Render passes through with the
// resolution in context; every other outcome ends the request.
func Gate(level access.ProtectionLevel, params GateParams) func(http.Handler) http.Handler {
	logg := params.Logger
	loginPath := strings.TrimSpace(params.LoginPath)
	if loginPath == "" {
		loginPath = access.LoginPath
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if params.Resolver == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access resolver unavailable"))
				return
			}

			token, _ := validators.BearerToken(r.Header.Get("Authorization"))
			res := params.Resolver.Resolve(r.Context(), VisitorIDFromContext(r.Context()), token)
			outcome := access.Decide(res.Access, level)

			if params.Metrics != nil {
				params.Metrics.IncGateDecision(string(level), outcome.Label())
			}

			ctx := withIdentity(r.Context(), res, logg)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"gate_level":   string(level),
					"gate_outcome": outcome.Label(),
					"location":     string(res.Access.Location),
				})
			}

			if outcome.Kind == access.OutcomeRender {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			writeOutcome(ctx, w, r, outcome, loginPath, params.Support, logg)
		})
	}
}

func writeOutcome(ctx context.Context, w http.ResponseWriter, r *http.Request, outcome access.Outcome, loginPath string, support SupportContact, logg *logger.Logger) {
	switch outcome.Kind {
	case access.OutcomeLoading:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeLocationRequired, "select your location to continue").
			WithDetails(map[string]any{"location_required": true}))
	case access.OutcomeRedirect:
		if acceptsHTML(r) {
			w.Header().Set("Cache-Control", "no-store")
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to continue").
			WithDetails(map[string]any{"redirect": loginPath, "hard": outcome.Hard}))
	case access.OutcomeInterstitial:
		switch outcome.Interstitial {
		case access.InterstitialRejected:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeApprovalRejected, "your application was not approved").
				WithDetails(support))
		case access.InterstitialRestricted:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "administrator access required").
				WithDetails(map[string]any{"layout": "restricted"}))
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeApprovalPending, "your account is awaiting approval"))
		}
	default:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "unknown gate outcome"))
	}
}

func acceptsHTML(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if strings.EqualFold(mediaType, "text/html") {
			return true
		}
	}
	return false
}
