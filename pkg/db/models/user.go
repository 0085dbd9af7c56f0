package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/pkg/enums"
)

// User is a professional customer or a back-office admin.
type User struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Email           string               `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash    string               `gorm:"column:password_hash;not null"`
	FirstName       string               `gorm:"column:first_name;not null"`
	LastName        string               `gorm:"column:last_name;not null"`
	Phone           *string              `gorm:"column:phone"`
	Profession      string               `gorm:"column:profession;not null"`
	LicenseNumber   string               `gorm:"column:license_number;not null"`
	ClinicName      *string              `gorm:"column:clinic_name"`
	NIF             *string              `gorm:"column:nif"`
	Location        enums.Location       `gorm:"column:location;not null;default:'portugal'"`
	Role            enums.UserRole       `gorm:"column:role;not null;default:'customer'"`
	ApprovalStatus  enums.ApprovalStatus `gorm:"column:approval_status;not null;default:'pending'"`
	RejectionReason *string              `gorm:"column:rejection_reason"`
	ReviewedAt      *time.Time           `gorm:"column:reviewed_at"`
	ReviewedBy      *uuid.UUID           `gorm:"column:reviewed_by;type:uuid"`
	IsActive        bool                 `gorm:"column:is_active;not null"`
	LastLoginAt     *time.Time           `gorm:"column:last_login_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the account carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == enums.UserRoleAdmin
}
