package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dermafill/storefront-backend/internal/cron"
	"github.com/dermafill/storefront-backend/internal/orders"
	"github.com/dermafill/storefront-backend/internal/payments"
	"github.com/dermafill/storefront-backend/pkg/config"
	"github.com/dermafill/storefront-backend/pkg/db"
	"github.com/dermafill/storefront-backend/pkg/logger"
	"github.com/dermafill/storefront-backend/pkg/metrics"
	"github.com/dermafill/storefront-backend/pkg/migrate"
	"github.com/dermafill/storefront-backend/pkg/redis"
	pkgstripe "github.com/dermafill/storefront-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:   orders.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to create stripe client", err)
		os.Exit(1)
	}
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:          payments.NewRepository(dbClient.DB()),
		Orders:        ordersService,
		Stripe:        pkgstripe.NewPaymentIntentClient(stripeClient),
		PublicBaseURL: cfg.Storefront.PublicBaseURL,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create payments service", err)
		os.Exit(1)
	}

	unpaidJob, err := cron.NewUnpaidOrderJob(cron.UnpaidOrderJobParams{
		Orders:    ordersService,
		Payments:  paymentsService,
		Logger:    logg,
		TTL:       cfg.Cron.UnpaidOrderTTL,
		BatchSize: cfg.Cron.BatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create unpaid order job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, "cron-worker:"+envOrLocal(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(unpaidJob),
		Lock:     lock,
		Metrics:  metrics.NewStorefront(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"interval":   cfg.Cron.Interval.String(),
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(context.Background(), "cron worker shutting down gracefully")
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
