package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
)

// OrderDTO is the order payload shared by customer and admin views.
type OrderDTO struct {
	ID               uuid.UUID             `json:"id"`
	OrderNumber      string                `json:"order_number"`
	UserID           uuid.UUID             `json:"user_id"`
	Status           enums.OrderStatus     `json:"status"`
	PaymentProvider  enums.PaymentProvider `json:"payment_provider"`
	PaymentReference *string               `json:"payment_reference,omitempty"`
	Subtotal         decimal.Decimal       `json:"subtotal"`
	Savings          decimal.Decimal       `json:"savings"`
	Total            decimal.Decimal       `json:"total"`
	Currency         enums.Currency        `json:"currency"`
	Shipping         ShippingDTO           `json:"shipping"`
	Notes            *string               `json:"notes,omitempty"`
	Items            []ItemDTO             `json:"items"`
	PaidAt           *time.Time            `json:"paid_at,omitempty"`
	ShippedAt        *time.Time            `json:"shipped_at,omitempty"`
	CancelledAt      *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

type ShippingDTO struct {
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

type ItemDTO struct {
	ProductID          uuid.UUID       `json:"product_id"`
	SKU                string          `json:"sku"`
	Name               string          `json:"name"`
	Quantity           int             `json:"quantity"`
	BasePrice          decimal.Decimal `json:"base_price"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	LineTotal          decimal.Decimal `json:"line_total"`
	AppliedMinQuantity *int            `json:"applied_min_quantity,omitempty"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
}

// UpdateStatusRequest is the admin payload to move an order along.
type UpdateStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		UserID:           order.UserID,
		Status:           order.Status,
		PaymentProvider:  order.PaymentProvider,
		PaymentReference: order.PaymentReference,
		Subtotal:         order.Subtotal,
		Savings:          order.Savings,
		Total:            order.Total,
		Currency:         order.Currency,
		Shipping: ShippingDTO{
			Name:       order.ShippingName,
			Address:    order.ShippingAddress,
			City:       order.ShippingCity,
			PostalCode: order.ShippingPostalCode,
			Country:    order.ShippingCountry,
			Phone:      order.ContactPhone,
		},
		Notes:       order.Notes,
		Items:       make([]ItemDTO, 0, len(order.Items)),
		PaidAt:      order.PaidAt,
		ShippedAt:   order.ShippedAt,
		CancelledAt: order.CancelledAt,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ProductID:          item.ProductID,
			SKU:                item.SKU,
			Name:               item.Name,
			Quantity:           item.Quantity,
			BasePrice:          item.BasePrice,
			UnitPrice:          item.UnitPrice,
			LineTotal:          item.LineTotal,
			AppliedMinQuantity: item.AppliedMinQuantity,
		})
	}
	return dto
}
