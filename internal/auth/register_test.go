package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
)

func strPtr(v string) *string { return &v }

func buildRegisterService(t *testing.T, repo *stubUserRepo) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{UserRepo: repo, Hasher: testHasher()})
	require.NoError(t, err)
	return svc
}

func portugueseRequest() RegisterRequest {
	return RegisterRequest{
		FirstName:     "Ana",
		LastName:      "Silva",
		Email:         "Ana@Clinic.pt",
		Password:      "secret123",
		Profession:    "dermatologist",
		LicenseNumber: "OM-1234",
		ClinicName:    strPtr("  Clinica Lisboa "),
		NIF:           strPtr("123 456 789"),
		Location:      enums.LocationPortugal,
	}
}

func TestRegisterCreatesPendingCustomer(t *testing.T) {
	repo := newStubUserRepo()
	svc := buildRegisterService(t, repo)

	user, err := svc.Register(context.Background(), portugueseRequest())
	require.NoError(t, err)
	assert.Equal(t, "ana@clinic.pt", user.Email)
	assert.Equal(t, enums.ApprovalStatusPending, user.Status)
	assert.Equal(t, enums.UserRoleCustomer, user.Role)

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.Equal(t, "123456789", *created.NIF)
	assert.Equal(t, "Clinica Lisboa", *created.ClinicName)
	assert.NotEqual(t, "secret123", created.PasswordHash)
}

func TestRegisterRequiresNIFInPortugal(t *testing.T) {
	req := portugueseRequest()
	req.NIF = nil
	_, err := buildRegisterService(t, newStubUserRepo()).Register(context.Background(), req)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestRegisterInternationalNeedsSelfCertification(t *testing.T) {
	req := portugueseRequest()
	req.Location = enums.LocationInternational
	req.NIF = nil

	svc := buildRegisterService(t, newStubUserRepo())
	_, err := svc.Register(context.Background(), req)
	assertCode(t, err, pkgerrors.CodeValidation)

	req.MedicalProfessionalConfirmed = true
	user, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, enums.LocationInternational, user.Location)
}

func TestRegisterRejectsDuplicateAndWeakPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := buildRegisterService(t, repo)

	_, err := svc.Register(context.Background(), portugueseRequest())
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), portugueseRequest())
	assertCode(t, err, pkgerrors.CodeConflict)

	weak := portugueseRequest()
	weak.Email = "other@clinic.pt"
	weak.Password = "onlyletters"
	_, err = svc.Register(context.Background(), weak)
	assertCode(t, err, pkgerrors.CodeValidation)
}
