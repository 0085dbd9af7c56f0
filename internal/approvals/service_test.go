package approvals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dermafill/storefront-backend/internal/users"
	"github.com/dermafill/storefront-backend/pkg/db"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/pagination"
)

type fixture struct {
	svc   *Service
	repo  *users.Repository
	admin uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.OpenSQLite("file:approvals_" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	repo := users.NewRepository(conn)
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	f := &fixture{svc: svc, repo: repo}
	f.admin = f.create(t, "admin@dermafill.pt", enums.UserRoleAdmin, enums.LocationPortugal)
	return f
}

func (f *fixture) create(t *testing.T, email string, role enums.UserRole, location enums.Location) uuid.UUID {
	t.Helper()
	user, err := f.repo.Create(context.Background(), users.CreateUserDTO{
		Email:         email,
		PasswordHash:  "hash",
		FirstName:     "Rita",
		LastName:      "Costa",
		Profession:    "nurse",
		LicenseNumber: "OE-99",
		Location:      location,
		Role:          role,
	})
	require.NoError(t, err)
	return user.ID
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, code, typed.Code())
}

func TestApproveAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, "a@clinic.pt", enums.UserRoleCustomer, enums.LocationPortugal)
	second := f.create(t, "b@clinic.pt", enums.UserRoleCustomer, enums.LocationPortugal)

	pending, err := f.svc.ListPending(ctx, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, pending.Items, 2)

	approved, err := f.svc.Approve(ctx, f.admin, first)
	require.NoError(t, err)
	assert.Equal(t, enums.ApprovalStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedAt)

	_, err = f.svc.Reject(ctx, f.admin, second, "  ")
	assertCode(t, err, pkgerrors.CodeValidation)

	rejected, err := f.svc.Reject(ctx, f.admin, second, "License number could not be verified")
	require.NoError(t, err)
	assert.Equal(t, enums.ApprovalStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)

	reapproved, err := f.svc.Approve(ctx, f.admin, second)
	require.NoError(t, err)
	assert.Equal(t, enums.ApprovalStatusApproved, reapproved.Status)
	assert.Nil(t, reapproved.RejectionReason)

	pending, err = f.svc.ListPending(ctx, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, pending.Items)

	summary, err := f.svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Approved)
	assert.Equal(t, int64(0), summary.Pending)
}

func TestDecisionsOnlyTouchCustomers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	otherAdmin := f.create(t, "ops@dermafill.pt", enums.UserRoleAdmin, enums.LocationPortugal)

	_, err := f.svc.Approve(ctx, f.admin, otherAdmin)
	assertCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.Approve(ctx, f.admin, f.admin)
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Approve(ctx, f.admin, uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.GetCustomer(ctx, otherAdmin)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestListCustomersFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "pt@clinic.pt", enums.UserRoleCustomer, enums.LocationPortugal)
	f.create(t, "intl@clinic.es", enums.UserRoleCustomer, enums.LocationInternational)

	intl := enums.LocationInternational
	page, err := f.svc.ListCustomers(ctx, users.ListFilter{Location: &intl}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "intl@clinic.es", page.Items[0].Email)

	page, err = f.svc.ListCustomers(ctx, users.ListFilter{Search: " pt@ "}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	bad := enums.ApprovalStatus("maybe")
	_, err = f.svc.ListCustomers(ctx, users.ListFilter{Status: &bad}, pagination.Params{})
	assertCode(t, err, pkgerrors.CodeValidation)
}
