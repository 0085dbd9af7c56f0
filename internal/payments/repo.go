package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
)

// Repository stores provider payment attempts.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// FindByExternalID looks up the attempt a provider refers to.
func (r *Repository) FindByExternalID(ctx context.Context, externalID string, providers ...enums.PaymentProvider) (*models.Payment, error) {
	query := r.db.WithContext(ctx).Where("external_id = ?", externalID)
	if len(providers) > 0 {
		query = query.Where("provider IN ?", providers)
	}
	var payment models.Payment
	if err := query.Order("created_at DESC").First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) FindLatestForOrder(ctx context.Context, orderID uuid.UUID, providers ...enums.PaymentProvider) (*models.Payment, error) {
	query := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if len(providers) > 0 {
		query = query.Where("provider IN ?", providers)
	}
	var payment models.Payment
	if err := query.Order("created_at DESC").First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, failureReason *string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "failure_reason": failureReason})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
