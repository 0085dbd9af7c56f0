package settings

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dermafill/storefront-backend/pkg/db/models"
)

// Repository persists settings rows keyed by name.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, key string) (*models.Setting, error) {
	var row models.Setting
	if err := r.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Upsert(ctx context.Context, key, value string) error {
	row := models.Setting{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}
