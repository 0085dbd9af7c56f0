package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
	"github.com/dermafill/storefront-backend/pkg/pagination"
)

const orderNumberPrefix = "DF"

// ErrCancelledBeforePayment marks a settlement that arrived after the order
// was already cancelled, usually by the unpaid-order sweep.
var ErrCancelledBeforePayment = errors.New("order cancelled before payment settled")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order reads and status changes.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)

	AdminList(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (*pagination.Page[OrderDTO], error)
	AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error)

	MarkPaid(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	AttachPaymentReference(ctx context.Context, orderID uuid.UUID, reference string) error

	ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	ExpireUnpaid(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Logger *logger.Logger
	Clock  func() time.Time
}

type service struct {
	repo  Repository
	tx    txRunner
	logg  *logger.Logger
	clock func() time.Time
}

// NewService builds an order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{repo: params.Repo, tx: params.Tx, logg: params.Logger, clock: clock}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	return s.list(ctx, ListFilter{UserID: &userID}, params)
}

// GetForUser hides orders of other customers behind NOT_FOUND.
func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return NewOrderDTO(order), nil
}

func (s *service) AdminList(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	return s.list(ctx, ListFilter{Status: status}, params)
}

func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

// UpdateStatus applies an admin transition. Cancelling returns the stock.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapFindError(err)
		}
		if !order.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
				WithDetails(map[string]any{"from": order.Status, "to": next})
		}
		if err := repo.UpdateStatus(ctx, orderID, next, s.clock().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if next == enums.OrderStatusCancelled {
			if err := repo.ReleaseStock(ctx, order.Items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
			}
		}
		updated, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": orderID.String(), "status": next})
		s.logg.Info(logCtx, "order.status_updated")
	}
	return NewOrderDTO(updated), nil
}

// MarkPaid is safe to call repeatedly: orders already past payment are
// returned unchanged.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	return s.settle(ctx, orderID, enums.OrderStatusPaid)
}

// MarkPaymentFailed only moves orders still awaiting payment.
func (s *service) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	return s.settle(ctx, orderID, enums.OrderStatusPaymentFailed)
}

// AttachPaymentReference records the provider id customers and support quote.
func (s *service) AttachPaymentReference(ctx context.Context, orderID uuid.UUID, reference string) error {
	if err := s.repo.SetPaymentReference(ctx, orderID, reference); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment reference")
	}
	return nil
}

func (s *service) ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	rows, err := s.repo.FindUnpaidBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unpaid orders")
	}
	return rows, nil
}

// ExpireUnpaid cancels an order that never settled and returns its stock.
// Orders that were paid in the meantime are left alone and report false.
func (s *service) ExpireUnpaid(ctx context.Context, orderID uuid.UUID) (bool, error) {
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapFindError(err)
		}
		if order.Status != enums.OrderStatusPendingPayment && order.Status != enums.OrderStatusPaymentFailed {
			return nil
		}
		if err := repo.UpdateStatus(ctx, orderID, enums.OrderStatusCancelled, s.clock().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel unpaid order")
		}
		if err := repo.ReleaseStock(ctx, order.Items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
		}
		expired = true
		return nil
	})
	return expired, err
}

func (s *service) settle(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapFindError(err)
		}
		if order.Status == next || !order.Status.CanTransitionTo(next) {
			if next == enums.OrderStatusPaid && order.Status == enums.OrderStatusCancelled {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrCancelledBeforePayment, "order was cancelled before payment settled")
			}
			result = order
			return nil
		}
		if err := repo.UpdateStatus(ctx, orderID, next, s.clock().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		result, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(result), nil
}

func (s *service) list(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	params.Limit = pagination.NormalizeLimit(params.Limit)

	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	items := make([]OrderDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, *NewOrderDTO(&page.Items[i]))
	}
	return &pagination.Page[OrderDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapFindError(err)
	}
	return order, nil
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

// NewOrderNumber formats DF-YYYYMMDD-XXXXXX from the creation date and a
// random suffix.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.UTC().Format("20060102"), suffix)
}
