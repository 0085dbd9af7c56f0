package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dermafill/storefront-backend/pkg/logger"
)

const (
	VisitorHeader      = "X-Visitor-Id"
	visitorCookieTTL   = 365 * 24 * time.Hour
	defaultVisitorName = "sf_visitor"
)

// Visitor identifies the browser across requests. The id comes from the
// X-Visitor-Id header, then the visitor cookie; a new one is issued otherwise.
func Visitor(cookieName string, secure bool, logg *logger.Logger) func(http.Handler) http.Handler {
	if strings.TrimSpace(cookieName) == "" {
		cookieName = defaultVisitorName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID := parseVisitorID(r.Header.Get(VisitorHeader))
			if visitorID == "" {
				if cookie, err := r.Cookie(cookieName); err == nil {
					visitorID = parseVisitorID(cookie.Value)
				}
			}
			if visitorID == "" {
				visitorID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    visitorID,
					Path:     "/",
					MaxAge:   int(visitorCookieTTL.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(VisitorHeader, visitorID)

			ctx := WithVisitorID(r.Context(), visitorID)
			if logg != nil {
				ctx = logg.WithVisitorID(ctx, visitorID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseVisitorID(raw string) string {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return id.String()
}
