package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dermafill/storefront-backend/pkg/enums"
	"github.com/dermafill/storefront-backend/pkg/pricing"
)

// ItemInput is one requested line.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=0"`
}

// QuoteRequest prices a guest cart without persisting it.
type QuoteRequest struct {
	Items []ItemInput `json:"items" validate:"required,min=1,max=100,dive"`
}

// LineDTO is a priced cart line.
type LineDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	ImageURL  *string   `json:"image_url,omitempty"`
	pricing.Line
}

// WarningType explains why a line cannot be checked out as-is.
type WarningType string

const (
	WarningProductUnavailable WarningType = "product_unavailable"
	WarningInsufficientStock  WarningType = "insufficient_stock"
)

type Warning struct {
	ProductID uuid.UUID   `json:"product_id"`
	Type      WarningType `json:"type"`
	Available int         `json:"available,omitempty"`
}

// CartDTO is the priced view of a cart. Line totals are exact; Total is
// rounded to cents.
type CartDTO struct {
	Lines     []LineDTO       `json:"lines"`
	Warnings  []Warning       `json:"warnings"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Savings   decimal.Decimal `json:"savings"`
	Total     decimal.Decimal `json:"total"`
	Currency  enums.Currency  `json:"currency"`
}

// Checkoutable reports whether every line can be ordered.
func (c *CartDTO) Checkoutable() bool {
	return c != nil && len(c.Lines) > 0 && len(c.Warnings) == 0
}
