package product

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/pkg/db"
	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/pagination"
	"github.com/dermafill/storefront-backend/pkg/pricing"
)

// Service exposes the catalog to shoppers and the back-office.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*pagination.Page[ProductDTO], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	QuotePrice(ctx context.Context, id uuid.UUID, quantity int) (*PriceQuoteDTO, error)

	AdminGetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo        *Repository
	tx          txRunner
	maxQuantity int
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, maxQuantity int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if maxQuantity <= 0 {
		return nil, fmt.Errorf("max quantity must be positive")
	}
	return &service{repo: repo, tx: tx, maxQuantity: maxQuantity}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*pagination.Page[ProductDTO], error) {
	if _, err := pagination.ParseCursor(input.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := &pagination.Page[ProductDTO]{
		Items:      make([]ProductDTO, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Items {
		out.Items = append(out.Items, *NewProductDTO(&page.Items[i]))
	}
	return out, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) AdminGetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

// QuotePrice prices quantity units of an active product.
func (s *service) QuotePrice(ctx context.Context, id uuid.UUID, quantity int) (*PriceQuoteDTO, error) {
	if quantity < 1 || quantity > s.maxQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range").
			WithDetails(map[string]any{"quantity": quantity, "min": 1, "max": s.maxQuantity})
	}
	product, err := s.load(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return &PriceQuoteDTO{
		ProductID: product.ID,
		Line:      pricing.PriceLine(quantity, product.BasePrice, product.PricingRules()),
	}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if err := validateBasePrice(input.BasePrice); err != nil {
		return nil, err
	}
	rules, err := buildRules(input.PromotionRules)
	if err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	slug := input.Slug
	if strings.TrimSpace(slug) == "" {
		slug = input.Name
	}

	product := &models.Product{
		SKU:            strings.TrimSpace(input.SKU),
		Name:           strings.TrimSpace(input.Name),
		Slug:           Slugify(slug),
		Brand:          input.Brand,
		Description:    input.Description,
		Category:       input.Category,
		BasePrice:      pricing.RoundCurrency(input.BasePrice),
		Currency:       enums.CurrencyEUR,
		Stock:          input.Stock,
		ImageURL:       input.ImageURL,
		IsActive:       active,
		PromotionRules: rules,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, mapWriteError(err, "insert product")
	}
	return s.AdminGetProduct(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var rules []models.PromotionRule
	if input.PromotionRules != nil {
		built, err := buildRules(*input.PromotionRules)
		if err != nil {
			return nil, err
		}
		rules = built
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, id, false)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if err := applyUpdate(product, input); err != nil {
			return err
		}
		if err := repo.Update(ctx, product); err != nil {
			return mapWriteError(err, "update product")
		}
		if input.PromotionRules != nil {
			if err := repo.ReplaceRules(ctx, product.ID, rules); err != nil {
				return mapWriteError(err, "replace promotion rules")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.AdminGetProduct(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID, activeOnly bool) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id, activeOnly)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) error {
	if input.SKU != nil {
		product.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		product.Slug = Slugify(*input.Slug)
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		product.Category = *input.Category
	}
	if input.BasePrice != nil {
		if err := validateBasePrice(*input.BasePrice); err != nil {
			return err
		}
		product.BasePrice = pricing.RoundCurrency(*input.BasePrice)
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if product.SKU == "" || product.Name == "" || product.Slug == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku, name and slug cannot be empty")
	}
	return nil
}

func validateBasePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"base_price": "must be greater than zero"})
	}
	return nil
}

// buildRules rejects duplicate quantities and non-positive prices.
func buildRules(inputs []PromotionRuleInput) ([]models.PromotionRule, error) {
	seen := make(map[int]struct{}, len(inputs))
	rules := make([]models.PromotionRule, 0, len(inputs))
	for _, in := range inputs {
		if in.MinQuantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion min_quantity must be at least 1")
		}
		if !in.PricePerUnit.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion price_per_unit must be greater than zero")
		}
		if _, dup := seen[in.MinQuantity]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate promotion min_quantity").
				WithDetails(map[string]any{"min_quantity": in.MinQuantity})
		}
		seen[in.MinQuantity] = struct{}{}
		rules = append(rules, models.PromotionRule{
			MinQuantity:  in.MinQuantity,
			PricePerUnit: pricing.RoundCurrency(in.PricePerUnit),
		})
	}
	return rules, nil
}

func mapWriteError(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku or slug already in use")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: "+action)
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases and hyphenates a product name for URLs.
func Slugify(value string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	return strings.Trim(slug, "-")
}
