package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/pkg/enums"
)

// Payment tracks one provider attempt to collect an order.
type Payment struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	Provider      enums.PaymentProvider `gorm:"column:provider;not null"`
	ExternalID    string                `gorm:"column:external_id;not null;index"`
	Status        enums.PaymentStatus   `gorm:"column:status;not null;default:'pending'"`
	Amount        decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      enums.Currency        `gorm:"column:currency;not null;default:'EUR'"`
	Entity        *string               `gorm:"column:entity"`
	Reference     *string               `gorm:"column:reference"`
	FailureReason *string               `gorm:"column:failure_reason"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
