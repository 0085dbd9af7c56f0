package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/pkg/enums"
)

// Order is a placed checkout with its priced lines frozen at creation time.
type Order struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber        string                `gorm:"column:order_number;not null;uniqueIndex"`
	UserID             uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Status             enums.OrderStatus     `gorm:"column:status;not null;default:'pending_payment'"`
	PaymentProvider    enums.PaymentProvider `gorm:"column:payment_provider;not null"`
	PaymentReference   *string               `gorm:"column:payment_reference;index"`
	Subtotal           decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Savings            decimal.Decimal       `gorm:"column:savings;type:numeric(12,2);not null"`
	Total              decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	Currency           enums.Currency        `gorm:"column:currency;not null;default:'EUR'"`
	ShippingName       string                `gorm:"column:shipping_name;not null"`
	ShippingAddress    string                `gorm:"column:shipping_address;not null"`
	ShippingCity       string                `gorm:"column:shipping_city;not null"`
	ShippingPostalCode string                `gorm:"column:shipping_postal_code;not null"`
	ShippingCountry    string                `gorm:"column:shipping_country;not null"`
	ContactPhone       *string               `gorm:"column:contact_phone"`
	Notes              *string               `gorm:"column:notes"`
	PaidAt             *time.Time            `gorm:"column:paid_at"`
	ShippedAt          *time.Time            `gorm:"column:shipped_at"`
	CancelledAt        *time.Time            `gorm:"column:cancelled_at"`
	Items              []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem snapshots the pricing applied to one product line.
type OrderItem struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID          uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	SKU                string          `gorm:"column:sku;not null"`
	Name               string          `gorm:"column:name;not null"`
	Quantity           int             `gorm:"column:quantity;not null"`
	BasePrice          decimal.Decimal `gorm:"column:base_price;type:numeric(12,2);not null"`
	UnitPrice          decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal          decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	AppliedMinQuantity *int            `gorm:"column:applied_min_quantity"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
