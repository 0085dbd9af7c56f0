package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dermafill/storefront-backend/api/routes"
	"github.com/dermafill/storefront-backend/internal/approvals"
	"github.com/dermafill/storefront-backend/internal/auth"
	"github.com/dermafill/storefront-backend/internal/cart"
	"github.com/dermafill/storefront-backend/internal/checkout"
	"github.com/dermafill/storefront-backend/internal/gate"
	"github.com/dermafill/storefront-backend/internal/location"
	"github.com/dermafill/storefront-backend/internal/orders"
	"github.com/dermafill/storefront-backend/internal/payments"
	products "github.com/dermafill/storefront-backend/internal/products"
	"github.com/dermafill/storefront-backend/internal/settings"
	"github.com/dermafill/storefront-backend/internal/users"
	"github.com/dermafill/storefront-backend/pkg/auth/session"
	"github.com/dermafill/storefront-backend/pkg/config"
	"github.com/dermafill/storefront-backend/pkg/db"
	"github.com/dermafill/storefront-backend/pkg/eupago"
	"github.com/dermafill/storefront-backend/pkg/logger"
	"github.com/dermafill/storefront-backend/pkg/metrics"
	"github.com/dermafill/storefront-backend/pkg/migrate"
	"github.com/dermafill/storefront-backend/pkg/paypal"
	"github.com/dermafill/storefront-backend/pkg/redis"
	"github.com/dermafill/storefront-backend/pkg/security"
	pkgstripe "github.com/dermafill/storefront-backend/pkg/stripe"
)

const (
	webhookDedupeTTL = 72 * time.Hour
	shutdownTimeout  = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefront(registry)

	conn := dbClient.DB()
	hasher := security.NewHasher(cfg.Password)
	usersRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		Passwords:      hasher,
		JWTConfig:      cfg.JWT,
	})
	must(ctx, logg, "auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		UserRepo: usersRepo,
		Hasher:   hasher,
	})
	must(ctx, logg, "register service", err)

	locationService, err := location.NewService(redisClient, cfg.Storefront.LocationTTL)
	must(ctx, logg, "location service", err)

	resolver, err := gate.NewResolver(gate.ResolverParams{
		Locations: locationService,
		Sessions:  sessionManager,
		Users:     usersRepo,
		JWTConfig: cfg.JWT,
		Logger:    logg,
	})
	must(ctx, logg, "access resolver", err)

	productService, err := products.NewService(productRepo, dbClient, cfg.Storefront.MaxLineQuantity)
	must(ctx, logg, "products service", err)

	cartService, err := cart.NewService(cartRepo, productRepo, cfg.Storefront.MaxLineQuantity)
	must(ctx, logg, "cart service", err)

	ordersRepo := orders.NewRepository(conn)
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:   ordersRepo,
		Tx:     dbClient,
		Logger: logg,
	})
	must(ctx, logg, "orders service", err)

	settingsService, err := settings.NewService(settings.NewRepository(conn), cfg.PayPal)
	must(ctx, logg, "settings service", err)

	approvalsService, err := approvals.NewService(usersRepo, logg)
	must(ctx, logg, "approvals service", err)

	paymentParams := payments.ServiceParams{
		Repo:          payments.NewRepository(conn),
		Orders:        ordersService,
		PublicBaseURL: cfg.Storefront.PublicBaseURL,
		Logger:        logg,
	}

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	must(ctx, logg, "stripe client", err)
	if stripeClient != nil {
		paymentParams.Stripe = pkgstripe.NewPaymentIntentClient(stripeClient)
	}
	if cfg.PayPal.ClientSecret != "" {
		paymentParams.PayPal = paypal.NewClient(settingsService.PayPalCredentials, cfg.PayPal.Timeout)
	} else {
		logg.Warn(ctx, "paypal disabled: no client secret configured")
	}
	if cfg.EuPago.Enabled() {
		paymentParams.EuPago = eupago.NewClient(cfg.EuPago)
	} else {
		logg.Warn(ctx, "eupago disabled: no api key configured")
	}

	paymentsService, err := payments.NewService(paymentParams)
	must(ctx, logg, "payments service", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:          dbClient,
		CartRepo:    cartRepo,
		ProductRepo: productRepo,
		OrdersRepo:  ordersRepo,
		Orders:      ordersService,
		Payments:    paymentsService,
		Metrics:     storefrontMetrics,
		Logger:      logg,
	})
	must(ctx, logg, "checkout service", err)

	stripeGuard, err := payments.NewWebhookGuard(redisClient, webhookDedupeTTL, "stripe")
	must(ctx, logg, "stripe webhook guard", err)
	eupagoGuard, err := payments.NewWebhookGuard(redisClient, webhookDedupeTTL, "eupago")
	must(ctx, logg, "eupago webhook guard", err)

	deps := routes.Dependencies{
		DB:       dbClient,
		Store:    redisClient,
		Resolver: resolver,
		Metrics:  storefrontMetrics,
		Gatherer: registry,

		Auth:      authService,
		Register:  registerService,
		Location:  locationService,
		Products:  productService,
		Cart:      cartService,
		Checkout:  checkoutService,
		Orders:    ordersService,
		Payments:  paymentsService,
		Approvals: approvalsService,
		Settings:  settingsService,

		StripeGuard: stripeGuard,
		EuPagoGuard: eupagoGuard,
	}
	if stripeClient != nil {
		deps.Stripe = stripeClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   id,
		"stripe_env": stripeClient.Environment(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server stopped")
}

func must(ctx context.Context, logg *logger.Logger, component string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to create "+component, err)
	os.Exit(1)
}
