package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/pagination"
)

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the product together with its promotion rules.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update persists scalar columns; promotion rules are left untouched.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(product).
		Select("sku", "name", "slug", "brand", "description", "category", "base_price", "stock", "image_url", "is_active", "updated_at").
		Updates(product).Error
}

// ReplaceRules swaps the tier table of a product.
func (r *Repository) ReplaceRules(ctx context.Context, productID uuid.UUID, rules []models.PromotionRule) error {
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&models.PromotionRule{}).Error; err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	for i := range rules {
		rules[i].ProductID = productID
	}
	return r.db.WithContext(ctx).Create(&rules).Error
}

// Delete removes the product and its rules.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.db.WithContext(ctx).Where("product_id = ?", id).Delete(&models.PromotionRule{}).Error
}

// FindByID loads a product with its rules. activeOnly hides disabled products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID, activeOnly bool) (*models.Product, error) {
	query := r.db.WithContext(ctx).Preload("PromotionRules")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var product models.Product
	if err := query.First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads products keyed by id. Missing ids are absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Preload("PromotionRules").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// List returns products newest first using cursor pagination.
func (r *Repository) List(ctx context.Context, input ListProductsInput) (pagination.Page[models.Product], error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Preload("PromotionRules")
	if !input.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if input.Category != nil {
		query = query.Where("category = ?", *input.Category)
	}
	if search := strings.TrimSpace(input.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(COALESCE(brand, '')) LIKE ?)", like, like, like)
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return pagination.Page[models.Product]{}, err
	}
	if cursor != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(input.Limit)).
		Find(&rows).Error; err != nil {
		return pagination.Page[models.Product]{}, err
	}
	return pagination.BuildPage(rows, input.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

// ReserveStock takes quantity units if enough stock remains. It reports false
// when the product is short.
func (r *Repository) ReserveStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
