package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID              uuid.UUID            `json:"id"`
	Email           string               `json:"email"`
	FirstName       string               `json:"first_name"`
	LastName        string               `json:"last_name"`
	Phone           *string              `json:"phone,omitempty"`
	Profession      string               `json:"profession"`
	LicenseNumber   string               `json:"license_number"`
	ClinicName      *string              `json:"clinic_name,omitempty"`
	NIF             *string              `json:"nif,omitempty"`
	Location        enums.Location       `json:"location"`
	Role            enums.UserRole       `json:"role"`
	Status          enums.ApprovalStatus `json:"status"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
	ReviewedAt      *time.Time           `json:"reviewed_at,omitempty"`
	LastLoginAt     *time.Time           `json:"last_login_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// StatusDTO is the minimal identity the storefront polls to drive its gate.
type StatusDTO struct {
	ID       uuid.UUID            `json:"id"`
	Email    string               `json:"email"`
	Status   enums.ApprovalStatus `json:"status"`
	Role     enums.UserRole       `json:"role"`
	Location enums.Location       `json:"location"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Phone          *string
	Profession     string
	LicenseNumber  string
	ClinicName     *string
	NIF            *string
	Location       enums.Location
	Role           enums.UserRole
	ApprovalStatus enums.ApprovalStatus
}

// ApprovalDecision records an admin review of an account.
type ApprovalDecision struct {
	Status     enums.ApprovalStatus
	Reason     *string
	ReviewedBy uuid.UUID
	ReviewedAt time.Time
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Phone:           u.Phone,
		Profession:      u.Profession,
		LicenseNumber:   u.LicenseNumber,
		ClinicName:      u.ClinicName,
		NIF:             u.NIF,
		Location:        u.Location,
		Role:            u.Role,
		Status:          u.ApprovalStatus,
		RejectionReason: u.RejectionReason,
		ReviewedAt:      u.ReviewedAt,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func StatusFromModel(u *models.User) *StatusDTO {
	if u == nil {
		return nil
	}
	return &StatusDTO{
		ID:       u.ID,
		Email:    u.Email,
		Status:   u.ApprovalStatus,
		Role:     u.Role,
		Location: u.Location,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	status := c.ApprovalStatus
	if status == "" {
		status = enums.ApprovalStatusPending
	}

	return &models.User{
		Email:          c.Email,
		PasswordHash:   c.PasswordHash,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Phone:          c.Phone,
		Profession:     c.Profession,
		LicenseNumber:  c.LicenseNumber,
		ClinicName:     c.ClinicName,
		NIF:            c.NIF,
		Location:       c.Location,
		Role:           role,
		ApprovalStatus: status,
		IsActive:       true,
	}
}
