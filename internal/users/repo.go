package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
	"github.com/dermafill/storefront-backend/pkg/pagination"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows the customer listing used by the back-office.
type ListFilter struct {
	Status   *enums.ApprovalStatus
	Location *enums.Location
	Search   string
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// SetApproval stores an admin decision. Only customer accounts are touched.
func (r *Repository) SetApproval(ctx context.Context, id uuid.UUID, decision ApprovalDecision) (*models.User, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND role = ?", id, enums.UserRoleCustomer).
		Updates(map[string]any{
			"approval_status":  decision.Status,
			"rejection_reason": decision.Reason,
			"reviewed_by":      decision.ReviewedBy,
			"reviewed_at":      decision.ReviewedAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// List returns customers ordered newest first using cursor pagination.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.User], error) {
	query := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", enums.UserRoleCustomer)

	if filter.Status != nil {
		query = query.Where("approval_status = ?", *filter.Status)
	}
	if filter.Location != nil {
		query = query.Where("location = ?", *filter.Location)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(email LIKE ? OR first_name LIKE ? OR last_name LIKE ? OR clinic_name LIKE ?)", like, like, like, like)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.User]{}, err
	}
	if cursor != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.User
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return pagination.Page[models.User]{}, err
	}

	return pagination.BuildPage(rows, params.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	}), nil
}

// CountByStatus reports how many customers sit in each approval state.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.ApprovalStatus]int64, error) {
	type row struct {
		ApprovalStatus enums.ApprovalStatus
		Total          int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("approval_status, COUNT(*) AS total").
		Where("role = ?", enums.UserRoleCustomer).
		Group("approval_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := map[enums.ApprovalStatus]int64{
		enums.ApprovalStatusPending:  0,
		enums.ApprovalStatusApproved: 0,
		enums.ApprovalStatusRejected: 0,
	}
	for _, r := range rows {
		counts[r.ApprovalStatus] = r.Total
	}
	return counts, nil
}
