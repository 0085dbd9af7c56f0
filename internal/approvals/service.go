package approvals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/internal/users"
	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
	"github.com/dermafill/storefront-backend/pkg/pagination"
)

const maxReasonLength = 1000

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetApproval(ctx context.Context, id uuid.UUID, decision users.ApprovalDecision) (*models.User, error)
	List(ctx context.Context, filter users.ListFilter, params pagination.Params) (pagination.Page[models.User], error)
	CountByStatus(ctx context.Context) (map[enums.ApprovalStatus]int64, error)
}

// RejectRequest is the admin payload for a rejection.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// Summary counts customers per approval state.
type Summary struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// Service is the back-office review queue for professional accounts.
type Service struct {
	users userStore
	logg  *logger.Logger
	clock func() time.Time
}

func NewService(store userStore, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("user store required")
	}
	return &Service{users: store, logg: logg, clock: time.Now}, nil
}

// ListPending returns customers awaiting review.
func (s *Service) ListPending(ctx context.Context, params pagination.Params) (*pagination.Page[users.UserDTO], error) {
	pending := enums.ApprovalStatusPending
	return s.ListCustomers(ctx, users.ListFilter{Status: &pending}, params)
}

func (s *Service) ListCustomers(ctx context.Context, filter users.ListFilter, params pagination.Params) (*pagination.Page[users.UserDTO], error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid approval status")
	}
	if filter.Location != nil && !filter.Location.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid location")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	params.Limit = pagination.NormalizeLimit(params.Limit)

	page, err := s.users.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	items := make([]users.UserDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, *users.FromModel(&page.Items[i]))
	}
	return &pagination.Page[users.UserDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, mapUserError(err)
	}
	if user.Role != enums.UserRoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return users.FromModel(user), nil
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	counts, err := s.users.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customers")
	}
	return &Summary{
		Pending:  counts[enums.ApprovalStatusPending],
		Approved: counts[enums.ApprovalStatusApproved],
		Rejected: counts[enums.ApprovalStatusRejected],
	}, nil
}

// Approve grants access. Approving an already approved account is a no-op.
func (s *Service) Approve(ctx context.Context, adminID, userID uuid.UUID) (*users.UserDTO, error) {
	return s.decide(ctx, adminID, userID, enums.ApprovalStatusApproved, nil)
}

// Reject denies access with a reason shown to the customer.
func (s *Service) Reject(ctx context.Context, adminID, userID uuid.UUID, reason string) (*users.UserDTO, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required").
			WithDetails(map[string]string{"reason": "required"})
	}
	if len(reason) > maxReasonLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason too long")
	}
	return s.decide(ctx, adminID, userID, enums.ApprovalStatusRejected, &reason)
}

func (s *Service) decide(ctx context.Context, adminID, userID uuid.UUID, status enums.ApprovalStatus, reason *string) (*users.UserDTO, error) {
	if adminID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admins cannot review their own account")
	}
	current, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, mapUserError(err)
	}
	if current.Role != enums.UserRoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if status == enums.ApprovalStatusApproved && current.ApprovalStatus == enums.ApprovalStatusApproved {
		return users.FromModel(current), nil
	}

	updated, err := s.users.SetApproval(ctx, userID, users.ApprovalDecision{
		Status:     status,
		Reason:     reason,
		ReviewedBy: adminID,
		ReviewedAt: s.clock().UTC(),
	})
	if err != nil {
		return nil, mapUserError(err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"customer_id": userID.String(),
			"admin_id":    adminID.String(),
			"status":      status,
		})
		s.logg.Info(logCtx, "approval.decided")
	}
	return users.FromModel(updated), nil
}

func mapUserError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
}
