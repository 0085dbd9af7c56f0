package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/internal/users"
	"github.com/dermafill/storefront-backend/pkg/db"
	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/security"
)

// RegisterService handles professional sign-up.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type registrationRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

type passwordHasher interface {
	Hash(password string) (string, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	UserRepo registrationRepository
	Hasher   passwordHasher
}

type registerService struct {
	users  registrationRepository
	hasher passwordHasher
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	if params.Hasher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "password hasher required")
	}
	return &registerService{users: params.UserRepo, hasher: params.Hasher}, nil
}

// Register creates a pending customer account. Portuguese registrants must
// provide a tax id; international registrants must self-certify.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !req.Location.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid location")
	}
	if err := security.CheckStrength(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
			WithDetails(map[string]string{"password": err.Error()})
	}

	nif := normalizeNIF(req.NIF)
	switch req.Location {
	case enums.LocationPortugal:
		if nif == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"nif": "is required for accounts in Portugal"})
		}
	case enums.LocationInternational:
		if !req.MedicalProfessionalConfirmed {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"medical_professional_confirmed": "must be true"})
		}
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:          email,
		PasswordHash:   hash,
		FirstName:      clip(req.FirstName, 100),
		LastName:       clip(req.LastName, 100),
		Phone:          trimmedPtr(req.Phone, 32),
		Profession:     clip(req.Profession, 100),
		LicenseNumber:  clip(req.LicenseNumber, 64),
		ClinicName:     trimmedPtr(req.ClinicName, 200),
		NIF:            nif,
		Location:       req.Location,
		Role:           enums.UserRoleCustomer,
		ApprovalStatus: enums.ApprovalStatusPending,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return users.FromModel(user), nil
}

func normalizeNIF(value *string) *string {
	if value == nil {
		return nil
	}
	clean := strings.ReplaceAll(strings.TrimSpace(*value), " ", "")
	if clean == "" {
		return nil
	}
	return &clean
}

func trimmedPtr(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	clean := clip(*value, maxLen)
	if clean == "" {
		return nil
	}
	return &clean
}

func clip(value string, maxLen int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	return string(runes)
}
