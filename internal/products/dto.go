package product

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
	"github.com/dermafill/storefront-backend/pkg/pricing"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID             uuid.UUID             `json:"id"`
	SKU            string                `json:"sku"`
	Name           string                `json:"name"`
	Slug           string                `json:"slug"`
	Brand          *string               `json:"brand,omitempty"`
	Description    *string               `json:"description,omitempty"`
	Category       enums.ProductCategory `json:"category"`
	BasePrice      decimal.Decimal       `json:"base_price"`
	Currency       enums.Currency        `json:"currency"`
	Stock          int                   `json:"stock"`
	ImageURL       *string               `json:"image_url,omitempty"`
	IsActive       bool                  `json:"is_active"`
	PromotionRules []PromotionRuleDTO    `json:"promotion_rules"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// PromotionRuleDTO is one row of the tier table, listed by ascending quantity.
type PromotionRuleDTO struct {
	MinQuantity  int             `json:"min_quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// PriceQuoteDTO answers "what would N units cost".
type PriceQuoteDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	pricing.Line
}

// PromotionRuleInput is the admin payload for one tier.
type PromotionRuleInput struct {
	MinQuantity  int             `json:"min_quantity" validate:"min=1"`
	PricePerUnit decimal.Decimal `json:"price_per_unit" validate:"money"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU            string                `json:"sku" validate:"required,max=64"`
	Name           string                `json:"name" validate:"required,max=200"`
	Slug           string                `json:"slug,omitempty" validate:"omitempty,max=200"`
	Brand          *string               `json:"brand,omitempty" validate:"omitempty,max=100"`
	Description    *string               `json:"description,omitempty"`
	Category       enums.ProductCategory `json:"category" validate:"required"`
	BasePrice      decimal.Decimal       `json:"base_price" validate:"money"`
	Stock          int                   `json:"stock" validate:"min=0"`
	ImageURL       *string               `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive       *bool                 `json:"is_active,omitempty"`
	PromotionRules []PromotionRuleInput  `json:"promotion_rules" validate:"dive"`
}

// UpdateProductInput holds optional mutation values for a product. A non-nil
// PromotionRules replaces the whole tier table.
type UpdateProductInput struct {
	SKU            *string                `json:"sku,omitempty" validate:"omitempty,max=64"`
	Name           *string                `json:"name,omitempty" validate:"omitempty,max=200"`
	Slug           *string                `json:"slug,omitempty" validate:"omitempty,max=200"`
	Brand          *string                `json:"brand,omitempty" validate:"omitempty,max=100"`
	Description    *string                `json:"description,omitempty"`
	Category       *enums.ProductCategory `json:"category,omitempty"`
	BasePrice      *decimal.Decimal       `json:"base_price,omitempty"`
	Stock          *int                   `json:"stock,omitempty" validate:"omitempty,min=0"`
	ImageURL       *string                `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive       *bool                  `json:"is_active,omitempty"`
	PromotionRules *[]PromotionRuleInput  `json:"promotion_rules,omitempty" validate:"omitempty,dive"`
}

// ListProductsInput filters catalog listings.
type ListProductsInput struct {
	Category        *enums.ProductCategory
	Search          string
	IncludeInactive bool
	Limit           int
	Cursor          string
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:             product.ID,
		SKU:            product.SKU,
		Name:           product.Name,
		Slug:           product.Slug,
		Brand:          product.Brand,
		Description:    product.Description,
		Category:       product.Category,
		BasePrice:      product.BasePrice,
		Currency:       product.Currency,
		Stock:          product.Stock,
		ImageURL:       product.ImageURL,
		IsActive:       product.IsActive,
		PromotionRules: make([]PromotionRuleDTO, 0, len(product.PromotionRules)),
		CreatedAt:      product.CreatedAt,
		UpdatedAt:      product.UpdatedAt,
	}
	for _, rule := range product.PromotionRules {
		dto.PromotionRules = append(dto.PromotionRules, PromotionRuleDTO{
			MinQuantity:  rule.MinQuantity,
			PricePerUnit: rule.PricePerUnit,
		})
	}
	sort.SliceStable(dto.PromotionRules, func(i, j int) bool {
		return dto.PromotionRules[i].MinQuantity < dto.PromotionRules[j].MinQuantity
	})
	return dto
}
