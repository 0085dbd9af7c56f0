package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/logger"
)

const (
	defaultUnpaidTTL   = 72 * time.Hour
	defaultBatchSize   = 100
	unpaidOrderJobName = "unpaid_order_expiry"
)

type unpaidOrders interface {
	ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	ExpireUnpaid(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type intentCanceller interface {
	CancelForOrder(ctx context.Context, orderID uuid.UUID) error
}

type UnpaidOrderJobParams struct {
	Orders unpaidOrders
	// Payments withdraws the open Stripe intent of each expired order.
	// Optional; without it intents lapse on Stripe's side.
	Payments  intentCanceller
	Logger    *logger.Logger
	TTL       time.Duration
	BatchSize int
	Clock     func() time.Time
}

// unpaidOrderJob cancels orders whose payment never settled and puts their
// reserved stock back on sale.
type unpaidOrderJob struct {
	orders    unpaidOrders
	payments  intentCanceller
	logg      *logger.Logger
	ttl       time.Duration
	batchSize int
	clock     func() time.Time
}

func NewUnpaidOrderJob(params UnpaidOrderJobParams) (Job, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultUnpaidTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &unpaidOrderJob{
		orders:    params.Orders,
		payments:  params.Payments,
		logg:      params.Logger,
		ttl:       ttl,
		batchSize: batch,
		clock:     clock,
	}, nil
}

func (j *unpaidOrderJob) Name() string { return unpaidOrderJobName }

// Run handles one batch per cycle; the next tick picks up the rest.
func (j *unpaidOrderJob) Run(ctx context.Context) error {
	cutoff := j.clock().UTC().Add(-j.ttl)
	stale, err := j.orders.ListUnpaidBefore(ctx, cutoff, j.batchSize)
	if err != nil {
		return err
	}

	var errs error
	expired := 0
	for _, order := range stale {
		ok, err := j.orders.ExpireUnpaid(ctx, order.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if !ok {
			continue
		}
		expired++
		orderCtx := j.logg.WithFields(ctx, map[string]any{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		})
		j.logg.Info(orderCtx, "order.expired_unpaid")
		if j.payments != nil {
			if err := j.payments.CancelForOrder(ctx, order.ID); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("order %s: cancel payment: %w", order.ID, err))
			}
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"expired":    expired,
	}), "cron.unpaid_orders_swept")
	return errs
}
