package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v84"

	"github.com/dermafill/storefront-backend/api/controllers"
	cartcontrollers "github.com/dermafill/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/dermafill/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/dermafill/storefront-backend/api/controllers/webhooks"
	"github.com/dermafill/storefront-backend/api/middleware"
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
	"github.com/dermafill/storefront-backend/pkg/access"
	"github.com/dermafill/storefront-backend/pkg/config"
	"github.com/dermafill/storefront-backend/pkg/enums"
	"github.com/dermafill/storefront-backend/pkg/logger"
	"github.com/dermafill/storefront-backend/pkg/metrics"
	"github.com/dermafill/storefront-backend/pkg/pagination"
	pkgredis "github.com/dermafill/storefront-backend/pkg/redis"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is the Redis surface the HTTP layer needs.
type Store interface {
	pkgredis.IdempotencyStore
	middleware.RateLimiter
	Ping(ctx context.Context) error
}

// Resolver builds the access context of a request.
type Resolver interface {
	Resolve(ctx context.Context, visitorID, token string) gate.Resolution
	Identify(ctx context.Context, token string) gate.Resolution
}

type LocationService interface {
	Get(ctx context.Context, visitorID string) (location.Preference, error)
	Set(ctx context.Context, visitorID string, req location.UpdateRequest) (location.Preference, error)
	Clear(ctx context.Context, visitorID string) error
}

type PaymentsService interface {
	CapturePayPal(ctx context.Context, userID, orderID uuid.UUID) (*payments.CaptureResult, error)
	HandleStripeEvent(ctx context.Context, event *stripe.Event) error
	HandleEuPagoCallback(ctx context.Context, cb payments.EuPagoCallback) error
	CancelForOrder(ctx context.Context, orderID uuid.UUID) error
}

type ApprovalsService interface {
	ListPending(ctx context.Context, params pagination.Params) (*pagination.Page[users.UserDTO], error)
	ListCustomers(ctx context.Context, filter users.ListFilter, params pagination.Params) (*pagination.Page[users.UserDTO], error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*users.UserDTO, error)
	Summary(ctx context.Context) (*approvals.Summary, error)
	Approve(ctx context.Context, adminID, userID uuid.UUID) (*users.UserDTO, error)
	Reject(ctx context.Context, adminID, userID uuid.UUID, reason string) (*users.UserDTO, error)
}

type SettingsService interface {
	PayPal(ctx context.Context) (settings.PayPalSettings, error)
	UpdatePayPal(ctx context.Context, in settings.PayPalSettings) (settings.PayPalSettings, error)
	Notifications(ctx context.Context) (settings.NotificationSettings, error)
	UpdateNotifications(ctx context.Context, in settings.NotificationSettings) (settings.NotificationSettings, error)
}

type WebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type StripeSigner interface {
	SigningSecret() string
}

// Dependencies groups everything the router wires into handlers.
type Dependencies struct {
	DB       Pinger
	Store    Store
	Resolver Resolver
	Metrics  *metrics.Storefront
	Gatherer prometheus.Gatherer

	Auth      auth.Service
	Register  auth.RegisterService
	Location  LocationService
	Products  products.Service
	Cart      cart.Service
	Checkout  checkout.Service
	Orders    orders.Service
	Payments  PaymentsService
	Approvals ApprovalsService
	Settings  SettingsService

	Stripe      StripeSigner
	StripeGuard WebhookGuard
	EuPagoGuard WebhookGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.CORS(cfg.Storefront.CORSOrigins),
		middleware.Visitor(cfg.Storefront.VisitorCookie, cfg.App.IsProd(), logg),
	)

	var (
		rateStore   middleware.RateLimiter
		idemStore   pkgredis.IdempotencyStore
		redisPinger Pinger
	)
	if deps.Store != nil {
		rateStore, idemStore, redisPinger = deps.Store, deps.Store, deps.Store
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	loginLimit := middleware.AuthRateLimit(loginPolicy, rateStore, logg)
	registerLimit := middleware.AuthRateLimit(registerPolicy, rateStore, logg)
	idempotent := middleware.Idempotency(idemStore, logg)
	identified := middleware.RequireIdentity(logg)

	support := middleware.SupportContact{
		Email: cfg.Storefront.SupportEmail,
		Phone: cfg.Storefront.SupportPhone,
	}
	resolver := deps.Resolver
	gateFor := func(level access.ProtectionLevel) func(http.Handler) http.Handler {
		return middleware.Gate(level, middleware.GateParams{
			Resolver:  resolver,
			Metrics:   deps.Metrics,
			LoginPath: cfg.Storefront.LoginPath,
			Support:   support,
			Logger:    logg,
		})
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.Dependency{Name: "database", Pinger: deps.DB},
			controllers.Dependency{Name: "redis", Pinger: redisPinger},
		))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimit).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
			r.With(loginLimit).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.With(middleware.Auth(resolver, logg)).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.With(middleware.OptionalAuth(resolver, logg)).Get("/status", controllers.AuthStatus(logg))
		})

		r.Get("/location", controllers.LocationGet(deps.Location, logg))
		r.Put("/location", controllers.LocationUpdate(deps.Location, logg))
		r.Delete("/location", controllers.LocationClear(deps.Location, logg))
		r.Get("/access", controllers.AccessCheck(resolver, support, logg))

		r.Group(func(r chi.Router) {
			r.Use(gateFor(access.LevelApprovedPortugalOnly))
			r.Post("/cart/quote", cartcontrollers.CartQuote(deps.Cart, logg))
			r.Get("/products", controllers.ProductList(deps.Products, logg))
			r.Get("/products/{id}", controllers.ProductDetail(deps.Products, logg))
			r.Get("/products/{id}/price", controllers.ProductPrice(deps.Products, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(gateFor(access.LevelAuthenticatedPortugalOnly), identified)
			r.Get("/cart", cartcontrollers.CartFetch(deps.Cart, logg))
			r.With(idempotent).Put("/cart", cartcontrollers.CartSetItem(deps.Cart, logg))
			r.Delete("/cart", cartcontrollers.CartClear(deps.Cart, logg))
			r.Delete("/cart/items/{productId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Get("/orders/{id}", ordercontrollers.Detail(deps.Orders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(gateFor(access.LevelApprovedPortugalOnly), identified)
			r.With(idempotent).Post("/checkout", controllers.Checkout(deps.Checkout, logg))
			r.With(idempotent).Post("/payments/paypal/{orderId}/capture", controllers.PayPalCapture(deps.Payments, logg))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.Payments, deps.Stripe, deps.StripeGuard, deps.Metrics, logg))
			eupago := webhookcontrollers.EuPagoWebhook(deps.Payments, deps.EuPagoGuard, deps.Metrics, logg)
			r.Get("/eupago", eupago)
			r.Post("/eupago", eupago)
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(loginLimit).Post("/auth/login", controllers.AdminAuthLogin(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(gateFor(access.LevelAdminOnly), middleware.RequireRole(string(enums.UserRoleAdmin), logg))

			r.Get("/approvals", controllers.AdminPendingApprovals(deps.Approvals, logg))
			r.Get("/approvals/summary", controllers.AdminApprovalSummary(deps.Approvals, logg))
			r.Post("/approvals/{userId}/approve", controllers.AdminApprove(deps.Approvals, logg))
			r.Post("/approvals/{userId}/reject", controllers.AdminReject(deps.Approvals, logg))
			r.Get("/customers", controllers.AdminCustomers(deps.Approvals, logg))
			r.Get("/customers/{userId}", controllers.AdminCustomerDetail(deps.Approvals, logg))

			r.Get("/orders", ordercontrollers.AdminList(deps.Orders, logg))
			r.Get("/orders/{id}", ordercontrollers.AdminDetail(deps.Orders, logg))
			r.With(idempotent).Patch("/orders/{id}/status", ordercontrollers.AdminUpdateStatus(deps.Orders, deps.Payments, logg))

			r.Get("/products", controllers.AdminProductList(deps.Products, logg))
			r.Post("/products", controllers.AdminProductCreate(deps.Products, logg))
			r.Get("/products/{id}", controllers.AdminProductDetail(deps.Products, logg))
			r.Put("/products/{id}", controllers.AdminProductUpdate(deps.Products, logg))
			r.Delete("/products/{id}", controllers.AdminProductDelete(deps.Products, logg))

			r.Get("/settings/paypal", controllers.AdminPayPalSettings(deps.Settings, logg))
			r.Put("/settings/paypal", controllers.AdminUpdatePayPalSettings(deps.Settings, logg))
			r.Get("/settings/notifications", controllers.AdminNotificationSettings(deps.Settings, logg))
			r.Put("/settings/notifications", controllers.AdminUpdateNotificationSettings(deps.Settings, logg))
		})
	})

	return r
}
