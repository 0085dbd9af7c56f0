package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/pkg/db"
	"github.com/dermafill/storefront-backend/pkg/enums"
	"github.com/dermafill/storefront-backend/pkg/pagination"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	conn, err := db.OpenSQLite("file:users_" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	return NewRepository(conn)
}

func createUser(t *testing.T, repo *Repository, email string, status enums.ApprovalStatus) uuid.UUID {
	t.Helper()
	user, err := repo.Create(context.Background(), CreateUserDTO{
		Email:          email,
		PasswordHash:   "hash",
		FirstName:      "Ana",
		LastName:       "Silva",
		Profession:     "dermatologist",
		LicenseNumber:  "OM-1234",
		Location:       enums.LocationPortugal,
		ApprovalStatus: status,
	})
	require.NoError(t, err)
	return user.ID
}

func TestCreateDefaultsToPendingCustomer(t *testing.T) {
	repo := newTestRepo(t)
	id := createUser(t, repo, "ana@clinic.pt", "")

	user, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, enums.ApprovalStatusPending, user.ApprovalStatus)
	assert.Equal(t, enums.UserRoleCustomer, user.Role)
	assert.True(t, user.IsActive)

	found, err := repo.FindByEmail(context.Background(), "ana@clinic.pt")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)

	_, err = repo.FindByEmail(context.Background(), "missing@clinic.pt")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSetApproval(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := createUser(t, repo, "rita@clinic.pt", enums.ApprovalStatusPending)
	admin := uuid.New()
	reason := "license could not be verified"

	user, err := repo.SetApproval(ctx, id, ApprovalDecision{
		Status:     enums.ApprovalStatusRejected,
		Reason:     &reason,
		ReviewedBy: admin,
		ReviewedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ApprovalStatusRejected, user.ApprovalStatus)
	require.NotNil(t, user.RejectionReason)
	assert.Equal(t, reason, *user.RejectionReason)
	require.NotNil(t, user.ReviewedBy)
	assert.Equal(t, admin, *user.ReviewedBy)

	_, err = repo.SetApproval(ctx, uuid.New(), ApprovalDecision{Status: enums.ApprovalStatusApproved})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListFiltersAndPaginates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createUser(t, repo, "a@clinic.pt", enums.ApprovalStatusPending)
	createUser(t, repo, "b@clinic.pt", enums.ApprovalStatusPending)
	createUser(t, repo, "c@clinic.pt", enums.ApprovalStatusPending)
	createUser(t, repo, "d@clinic.pt", enums.ApprovalStatusApproved)

	pending := enums.ApprovalStatusPending
	page, err := repo.List(ctx, ListFilter{Status: &pending}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := repo.List(ctx, ListFilter{Status: &pending}, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, next.Items, 1)
	assert.Empty(t, next.NextCursor)

	search, err := repo.List(ctx, ListFilter{Search: "d@clinic"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	assert.Equal(t, enums.ApprovalStatusApproved, search.Items[0].ApprovalStatus)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[enums.ApprovalStatusPending])
	assert.Equal(t, int64(1), counts[enums.ApprovalStatusApproved])
	assert.Equal(t, int64(0), counts[enums.ApprovalStatusRejected])
}
