// Package gate builds the access context for a request from the visitor's
// stored location and optional bearer token.
package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dermafill/storefront-backend/internal/location"
	"github.com/dermafill/storefront-backend/pkg/access"
	pkgAuth "github.com/dermafill/storefront-backend/pkg/auth"
	"github.com/dermafill/storefront-backend/pkg/config"
	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/logger"
)

type locationReader interface {
	Get(ctx context.Context, visitorID string) (location.Preference, error)
}

type sessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Resolution is everything known about the caller for one request.
type Resolution struct {
	Access access.Context
	// User is set only when Access.Auth is authenticated.
	User   *models.User
	Claims *pkgAuth.AccessTokenClaims
}

// Authenticated reports whether a live user backs the request.
func (r Resolution) Authenticated() bool {
	return r.Access.Auth == access.AuthAuthenticated && r.User != nil
}

type ResolverParams struct {
	Locations locationReader
	Sessions  sessionChecker
	Users     userFinder
	JWTConfig config.JWTConfig
	Logger    *logger.Logger
}

// Resolver never fails: lookups that error resolve to anonymous or unknown.
type Resolver struct {
	locations locationReader
	sessions  sessionChecker
	users     userFinder
	jwtCfg    config.JWTConfig
	logg      *logger.Logger
}

func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Locations == nil {
		return nil, fmt.Errorf("location reader is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session checker is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user finder is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{
		locations: params.Locations,
		sessions:  params.Sessions,
		users:     params.Users,
		jwtCfg:    params.JWTConfig,
		logg:      logg,
	}, nil
}

// Resolve combines location and identity. token may be empty.
func (r *Resolver) Resolve(ctx context.Context, visitorID, token string) Resolution {
	res := r.Identify(ctx, token)
	res.Access.Location = r.location(ctx, visitorID)
	return res
}

// Identify resolves only the bearer token.
func (r *Resolver) Identify(ctx context.Context, token string) Resolution {
	anonymous := Resolution{Access: access.Context{Auth: access.AuthAnonymous}}

	token = strings.TrimSpace(token)
	if token == "" {
		return anonymous
	}

	claims, err := pkgAuth.ParseAccessToken(r.jwtCfg, token)
	if err != nil {
		r.logg.Debug(ctx, "gate.token_rejected")
		return anonymous
	}

	active, err := r.sessions.HasSession(ctx, claims.ID)
	if err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "gate.session_lookup_failed")
		return anonymous
	}
	if !active {
		return anonymous
	}

	user, err := r.users.FindByID(ctx, claims.UserID)
	if err != nil || user == nil || !user.IsActive {
		return anonymous
	}

	return Resolution{
		Access: access.Context{
			Auth:           access.AuthAuthenticated,
			ApprovalStatus: access.ApprovalStatus(user.ApprovalStatus),
			IsAdmin:        user.IsAdmin(),
		},
		User:   user,
		Claims: claims,
	}
}

func (r *Resolver) location(ctx context.Context, visitorID string) access.Location {
	pref, err := r.locations.Get(ctx, visitorID)
	if err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "gate.location_lookup_failed")
		return access.LocationUnknown
	}
	return pref.Resolved
}
