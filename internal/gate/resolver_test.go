package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/internal/location"
	"github.com/dermafill/storefront-backend/pkg/access"
	pkgAuth "github.com/dermafill/storefront-backend/pkg/auth"
	"github.com/dermafill/storefront-backend/pkg/config"
	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
)

var jwtCfg = config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30}

type stubLocations struct {
	pref location.Preference
	err  error
}

func (s stubLocations) Get(context.Context, string) (location.Preference, error) {
	return s.pref, s.err
}

type stubSessions struct {
	active bool
	err    error
}

func (s stubSessions) HasSession(context.Context, string) (bool, error) {
	return s.active, s.err
}

type stubUsers map[uuid.UUID]*models.User

func (s stubUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func mint(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(jwtCfg, time.Now(), pkgAuth.AccessTokenPayload{UserID: user.ID, Role: user.Role, JTI: "jti-1"})
	require.NoError(t, err)
	return token
}

func newResolver(t *testing.T, loc stubLocations, sess stubSessions, users stubUsers) *Resolver {
	t.Helper()
	r, err := NewResolver(ResolverParams{Locations: loc, Sessions: sess, Users: users, JWTConfig: jwtCfg})
	require.NoError(t, err)
	return r
}

func TestResolveAuthenticatedReloadsStatus(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: enums.UserRoleCustomer, ApprovalStatus: enums.ApprovalStatusPending, IsActive: true}
	r := newResolver(t,
		stubLocations{pref: location.Preference{Resolved: access.LocationPortugal}},
		stubSessions{active: true},
		stubUsers{user.ID: user},
	)
	token := mint(t, user)

	res := r.Resolve(context.Background(), "v1", token)
	assert.True(t, res.Authenticated())
	assert.Equal(t, access.LocationPortugal, res.Access.Location)
	assert.Equal(t, access.ApprovalPending, res.Access.ApprovalStatus)

	user.ApprovalStatus = enums.ApprovalStatusApproved
	res = r.Resolve(context.Background(), "v1", token)
	assert.Equal(t, access.ApprovalApproved, res.Access.ApprovalStatus)
	assert.Equal(t, access.Render(), access.Decide(res.Access, access.LevelApprovedPortugalOnly))
}

func TestResolveAdminFromDatabaseRole(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: enums.UserRoleAdmin, ApprovalStatus: enums.ApprovalStatusApproved, IsActive: true}
	r := newResolver(t, stubLocations{}, stubSessions{active: true}, stubUsers{user.ID: user})

	res := r.Identify(context.Background(), mint(t, user))
	assert.True(t, res.Access.IsAdmin)

	user.Role = enums.UserRoleCustomer
	res = r.Identify(context.Background(), mint(t, user))
	assert.False(t, res.Access.IsAdmin)
}

func TestResolveFailsClosed(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: enums.UserRoleCustomer, ApprovalStatus: enums.ApprovalStatusApproved, IsActive: true}
	token := mint(t, user)

	cases := map[string]struct {
		sessions stubSessions
		users    stubUsers
		token    string
	}{
		"no token":        {sessions: stubSessions{active: true}, users: stubUsers{user.ID: user}},
		"garbage token":   {sessions: stubSessions{active: true}, users: stubUsers{user.ID: user}, token: "nope"},
		"revoked session": {sessions: stubSessions{active: false}, users: stubUsers{user.ID: user}, token: token},
		"session error":   {sessions: stubSessions{err: errors.New("redis down")}, users: stubUsers{user.ID: user}, token: token},
		"missing user":    {sessions: stubSessions{active: true}, users: stubUsers{}, token: token},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := newResolver(t, stubLocations{pref: location.Preference{Resolved: access.LocationPortugal}}, tc.sessions, tc.users)
			res := r.Resolve(context.Background(), "v1", tc.token)
			assert.Equal(t, access.AuthAnonymous, res.Access.Auth)
			assert.Nil(t, res.User)
			assert.Equal(t, access.RedirectToLogin(), access.Decide(res.Access, access.LevelAuthenticatedPortugalOnly))
		})
	}
}

func TestResolveLocationFailureIsUnknown(t *testing.T) {
	r := newResolver(t, stubLocations{err: errors.New("redis down")}, stubSessions{}, stubUsers{})
	res := r.Resolve(context.Background(), "v1", "")
	assert.Equal(t, access.LocationUnknown, res.Access.Location)
	assert.Equal(t, access.Loading(), access.Decide(res.Access, access.LevelApprovedPortugalOnly))
}
