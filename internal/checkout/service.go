package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/internal/cart"
	"github.com/dermafill/storefront-backend/internal/orders"
	"github.com/dermafill/storefront-backend/internal/payments"
	product "github.com/dermafill/storefront-backend/internal/products"
	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
	"github.com/dermafill/storefront-backend/pkg/pricing"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentStarter interface {
	Available(provider enums.PaymentProvider) bool
	Initiate(ctx context.Context, req payments.InitiateRequest) (*payments.Initiation, error)
}

type orderFailer interface {
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error)
}

type checkoutRecorder interface {
	IncCheckout(provider, result string)
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, req Request) (*Result, error)
}

type ServiceParams struct {
	Tx          txRunner
	CartRepo    *cart.Repository
	ProductRepo *product.Repository
	OrdersRepo  orders.Repository
	Orders      orderFailer
	Payments    paymentStarter
	Metrics     checkoutRecorder
	Logger      *logger.Logger
	Clock       func() time.Time
}

type service struct {
	tx          txRunner
	cartRepo    *cart.Repository
	productRepo *product.Repository
	ordersRepo  orders.Repository
	orders      orderFailer
	payments    paymentStarter
	metrics     checkoutRecorder
	logg        *logger.Logger
	clock       func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.ProductRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		tx:          params.Tx,
		cartRepo:    params.CartRepo,
		productRepo: params.ProductRepo,
		ordersRepo:  params.OrdersRepo,
		orders:      params.Orders,
		payments:    params.Payments,
		metrics:     params.Metrics,
		logg:        params.Logger,
		clock:       clock,
	}, nil
}

// Execute turns the caller's saved cart into an order, reserves stock, clears
// the cart and then asks the chosen provider to collect the total. A provider
// failure leaves the order in payment_failed.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, req Request) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !req.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment provider")
	}
	if !s.payments.Available(req.Provider) {
		s.record(req.Provider, "provider_unavailable")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment provider %s is not available", req.Provider))
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		rows, err := cartRepo.ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(rows) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		items := make([]cart.ItemInput, 0, len(rows))
		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			items = append(items, cart.ItemInput{ProductID: row.ProductID, Quantity: row.Quantity})
			ids = append(ids, row.ProductID)
		}
		products, err := productRepo.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		priced := cart.PriceItems(items, products)
		if !priced.Checkoutable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart has unavailable items").
				WithDetails(map[string]any{"warnings": priced.Warnings})
		}

		for _, line := range priced.Lines {
			ok, err := productRepo.ReserveStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
		}

		order := buildOrder(userID, req, priced, s.clock())
		if err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := cartRepo.Clear(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		created = order
		return nil
	})
	if err != nil {
		s.record(req.Provider, "rejected")
		return nil, err
	}

	initiation, err := s.payments.Initiate(ctx, payments.InitiateRequest{
		OrderID:     created.ID,
		OrderNumber: created.OrderNumber,
		Amount:      created.Total,
		Currency:    created.Currency,
		Provider:    created.PaymentProvider,
		Phone:       req.Phone,
	})
	if err != nil {
		s.record(req.Provider, "payment_error")
		if _, markErr := s.orders.MarkPaymentFailed(ctx, created.ID); markErr != nil && s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "order_id", created.ID.String()), "checkout.mark_failed_error", markErr)
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed.WithDetails(map[string]any{"order_id": created.ID, "order_number": created.OrderNumber})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initiate payment").
			WithDetails(map[string]any{"order_id": created.ID, "order_number": created.OrderNumber})
	}

	reloaded, err := s.ordersRepo.FindByID(ctx, created.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	s.record(req.Provider, "created")
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     created.ID.String(),
			"order_number": created.OrderNumber,
			"provider":     req.Provider,
			"total":        created.Total.StringFixed(2),
		})
		s.logg.Info(logCtx, "checkout.completed")
	}
	return &Result{Order: orders.NewOrderDTO(reloaded), Payment: initiation}, nil
}

func (s *service) record(provider enums.PaymentProvider, result string) {
	if s.metrics != nil {
		s.metrics.IncCheckout(string(provider), result)
	}
}

func buildOrder(userID uuid.UUID, req Request, priced *cart.CartDTO, now time.Time) *models.Order {
	order := &models.Order{
		OrderNumber:        orders.NewOrderNumber(now),
		UserID:             userID,
		Status:             enums.OrderStatusPendingPayment,
		PaymentProvider:    req.Provider,
		Currency:           priced.Currency,
		ShippingName:       strings.TrimSpace(req.Shipping.Name),
		ShippingAddress:    strings.TrimSpace(req.Shipping.Address),
		ShippingCity:       strings.TrimSpace(req.Shipping.City),
		ShippingPostalCode: strings.TrimSpace(req.Shipping.PostalCode),
		ShippingCountry:    strings.ToUpper(strings.TrimSpace(req.Shipping.Country)),
		Items:              make([]models.OrderItem, 0, len(priced.Lines)),
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		order.ContactPhone = &phone
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		order.Notes = &notes
	}

	lines := make([]pricing.Line, 0, len(priced.Lines))
	for _, line := range priced.Lines {
		rounded := line.Line
		rounded.UnitPrice = pricing.RoundCurrency(line.UnitPrice)
		rounded.LineTotal = pricing.RoundCurrency(line.LineTotal)
		lines = append(lines, rounded)

		item := models.OrderItem{
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Name:      line.Name,
			Quantity:  line.Quantity,
			BasePrice: line.BasePrice,
			UnitPrice: rounded.UnitPrice,
			LineTotal: rounded.LineTotal,
		}
		if line.AppliedRule != nil {
			minQty := line.AppliedRule.MinQuantity
			item.AppliedMinQuantity = &minQty
		}
		order.Items = append(order.Items, item)
	}
	order.Subtotal = pricing.Subtotal(lines)
	order.Savings = pricing.RoundCurrency(priced.Savings)
	order.Total = order.Subtotal
	return order
}
