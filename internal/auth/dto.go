package auth

import (
	"github.com/dermafill/storefront-backend/internal/users"
	"github.com/dermafill/storefront-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the professional sign-up form.
type RegisterRequest struct {
	FirstName                    string         `json:"first_name" validate:"required,max=100"`
	LastName                     string         `json:"last_name" validate:"required,max=100"`
	Email                        string         `json:"email" validate:"required,email,max=254"`
	Password                     string         `json:"password" validate:"required,min=8,max=128"`
	Phone                        *string        `json:"phone,omitempty" validate:"omitempty,max=32"`
	Profession                   string         `json:"profession" validate:"required,max=100"`
	LicenseNumber                string         `json:"license_number" validate:"required,max=64"`
	ClinicName                   *string        `json:"clinic_name,omitempty" validate:"omitempty,max=200"`
	NIF                          *string        `json:"nif,omitempty" validate:"omitempty,nif"`
	Location                     enums.Location `json:"location" validate:"required,oneof=portugal international"`
	MedicalProfessionalConfirmed bool           `json:"medical_professional_confirmed"`
}

// RefreshRequest carries the refresh token paired with the presented access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is the credential bundle returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}
