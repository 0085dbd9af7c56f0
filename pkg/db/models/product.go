package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/pkg/enums"
	"github.com/dermafill/storefront-backend/pkg/pricing"
)

// Product is a catalog entry sold per unit.
type Product struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	SKU            string                `gorm:"column:sku;not null;uniqueIndex"`
	Name           string                `gorm:"column:name;not null"`
	Slug           string                `gorm:"column:slug;not null;uniqueIndex"`
	Brand          *string               `gorm:"column:brand"`
	Description    *string               `gorm:"column:description"`
	Category       enums.ProductCategory `gorm:"column:category;not null"`
	BasePrice      decimal.Decimal       `gorm:"column:base_price;type:numeric(12,2);not null"`
	Currency       enums.Currency        `gorm:"column:currency;not null;default:'EUR'"`
	Stock          int                   `gorm:"column:stock;not null;default:0"`
	ImageURL       *string               `gorm:"column:image_url"`
	IsActive       bool                  `gorm:"column:is_active;not null"`
	PromotionRules []PromotionRule       `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PricingRules converts the persisted tiers into pricing rules.
func (p *Product) PricingRules() []pricing.PromotionRule {
	if p == nil || len(p.PromotionRules) == 0 {
		return nil
	}
	rules := make([]pricing.PromotionRule, 0, len(p.PromotionRules))
	for _, r := range p.PromotionRules {
		rules = append(rules, r.Rule())
	}
	return rules
}

// PromotionRule captures a quantity tier for a product.
type PromotionRule struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	MinQuantity  int             `gorm:"column:min_quantity;not null"`
	PricePerUnit decimal.Decimal `gorm:"column:price_per_unit;type:numeric(12,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (PromotionRule) TableName() string {
	return "product_promotion_rules"
}

func (r *PromotionRule) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r PromotionRule) Rule() pricing.PromotionRule {
	return pricing.PromotionRule{MinQuantity: r.MinQuantity, PricePerUnit: r.PricePerUnit}
}
