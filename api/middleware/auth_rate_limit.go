package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dermafill/storefront-backend/api/responses"
	"github.com/dermafill/storefront-backend/api/validators"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
)

// maxCredentialBody bounds how much of a login or register body is buffered
// to find the email.
const maxCredentialBody = 16 << 10

// RateLimiter counts hits in fixed windows. pkg/redis.Client stores them
// under sf:rate_limit:<scope>.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one credential endpoint per client IP and per
// account email.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{
		name:       name,
		window:     window,
		ipLimit:    ipLimit,
		emailLimit: emailLimit,
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// scope yields keys like "login:ip:10.0.0.1" or "register:email:<sha256>".
func (p AuthRateLimitPolicy) scope(kind, value string) string {
	return p.name + ":" + kind + ":" + value
}

// AuthRateLimit rejects credential attempts once either counter passes its
// limit. Emails are hashed before they reach Redis or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if ip := clientIP(r); policy.ipLimit > 0 && ip != "" {
				if !checkLimit(ctx, w, limiter, policy, "ip", ip, policy.ipLimit, logg) {
					return
				}
			}

			if policy.emailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxCredentialBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if email := validators.NormalizeEmail(extractEmail(body)); email != "" {
					if !checkLimit(ctx, w, limiter, policy, "email", hashValue(email), policy.emailLimit, logg) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func checkLimit(ctx context.Context, w http.ResponseWriter, limiter RateLimiter, policy AuthRateLimitPolicy, kind, value string, limit int, logg *logger.Logger) bool {
	allowed, count, err := limiter.FixedWindowAllow(ctx, policy.scope(kind, value), int64(limit), policy.window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if allowed {
		return true
	}

	retryAfter := int(policy.window.Seconds())
	if logg != nil {
		fields := map[string]any{
			"scope":          kind,
			"policy":         policy.name,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": retryAfter,
		}
		if kind == "ip" {
			fields["ip"] = value
		} else {
			fields["email_hash"] = value
		}
		logg.Warn(logg.WithFields(ctx, fields), "auth.rate_limit.blocked")
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later").
		WithDetails(map[string]any{
			"scope":               kind,
			"retry_after_seconds": retryAfter,
		}))
	return false
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Email
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
