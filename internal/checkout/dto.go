package checkout

import (
	"github.com/dermafill/storefront-backend/internal/orders"
	"github.com/dermafill/storefront-backend/internal/payments"
	"github.com/dermafill/storefront-backend/pkg/enums"
)

// ShippingInput is the delivery address captured at checkout.
type ShippingInput struct {
	Name       string `json:"name" validate:"required,max=200"`
	Address    string `json:"address" validate:"required,max=500"`
	City       string `json:"city" validate:"required,max=120"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,len=2"`
}

// Request is the checkout body.
type Request struct {
	Provider enums.PaymentProvider `json:"provider" validate:"required,oneof=stripe paypal eupago_multibanco eupago_mbway"`
	Shipping ShippingInput         `json:"shipping" validate:"required"`
	Phone    string                `json:"phone" validate:"omitempty,max=32"`
	Notes    string                `json:"notes" validate:"omitempty,max=1000"`
}

// Result pairs the created order with the provider instructions.
type Result struct {
	Order   *orders.OrderDTO     `json:"order"`
	Payment *payments.Initiation `json:"payment"`
}
