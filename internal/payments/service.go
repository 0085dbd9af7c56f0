package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/internal/orders"
	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/eupago"
	"github.com/dermafill/storefront-backend/pkg/logger"
	"github.com/dermafill/storefront-backend/pkg/paypal"
	pkgstripe "github.com/dermafill/storefront-backend/pkg/stripe"
)

// refundRequiredReason is stored on payments that settled after their order
// was cancelled.
const refundRequiredReason = "refund required: order cancelled before payment settled"

type orderSettler interface {
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*orders.OrderDTO, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error)
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error)
	AttachPaymentReference(ctx context.Context, orderID uuid.UUID, reference string) error
}

type paypalAPI interface {
	CreateOrder(ctx context.Context, req paypal.CreateOrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, paypalOrderID, requestID string) (*paypal.Order, error)
}

type eupagoAPI interface {
	CreateMultibanco(ctx context.Context, identifier string, amount decimal.Decimal) (*eupago.MultibancoReference, error)
	CreateMBWay(ctx context.Context, identifier string, amount decimal.Decimal, phone, description string) (*eupago.MBWayRequest, error)
	VerifyCallbackKey(key string) bool
}

type ServiceParams struct {
	Repo          *Repository
	Orders        orderSettler
	Stripe        pkgstripe.PaymentIntentClient
	PayPal        paypalAPI
	EuPago        eupagoAPI
	PublicBaseURL string
	Logger        *logger.Logger
}

// Service starts provider payments and applies their outcomes to orders.
type Service struct {
	repo    *Repository
	orders  orderSettler
	stripe  pkgstripe.PaymentIntentClient
	paypal  paypalAPI
	eupago  eupagoAPI
	baseURL string
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repo required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	return &Service{
		repo:    params.Repo,
		orders:  params.Orders,
		stripe:  params.Stripe,
		paypal:  params.PayPal,
		eupago:  params.EuPago,
		baseURL: strings.TrimRight(params.PublicBaseURL, "/"),
		logg:    params.Logger,
	}, nil
}

// Available reports whether provider can currently be offered at checkout.
func (s *Service) Available(provider enums.PaymentProvider) bool {
	switch provider {
	case enums.PaymentProviderStripe:
		return s.stripe != nil
	case enums.PaymentProviderPayPal:
		return s.paypal != nil
	case enums.PaymentProviderMultibanco, enums.PaymentProviderMBWay:
		return s.eupago != nil
	default:
		return false
	}
}

// Initiate opens a payment with the order's provider and records the attempt.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*Initiation, error) {
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if !s.Available(req.Provider) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment provider %s is not available", req.Provider))
	}
	amount := req.Amount.Round(2)
	init := &Initiation{
		Provider: req.Provider,
		Status:   enums.PaymentStatusPending,
		Amount:   amount,
		Currency: req.Currency,
	}

	var externalID string
	switch req.Provider {
	case enums.PaymentProviderStripe:
		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(amount.Shift(2).IntPart()),
			Currency: stripe.String(strings.ToLower(string(req.Currency))),
			AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
				Enabled: stripe.Bool(true),
			},
			Description: stripe.String(req.OrderNumber),
		}
		params.AddMetadata("order_id", req.OrderID.String())
		params.AddMetadata("order_number", req.OrderNumber)
		params.SetIdempotencyKey("order-" + req.OrderID.String())
		intent, err := s.stripe.Create(ctx, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe payment intent")
		}
		externalID = intent.ID
		init.ClientSecret = intent.ClientSecret

	case enums.PaymentProviderPayPal:
		order, err := s.paypal.CreateOrder(ctx, paypal.CreateOrderRequest{
			ReferenceID: req.OrderID.String(),
			InvoiceID:   req.OrderNumber,
			Amount:      paypal.Amount{CurrencyCode: string(req.Currency), Value: amount.StringFixed(2)},
			ReturnURL:   s.returnURL("/checkout/paypal/return", req.OrderID),
			CancelURL:   s.returnURL("/checkout/paypal/cancel", req.OrderID),
		})
		if err != nil {
			return nil, mapProviderError(err, "create paypal order")
		}
		externalID = order.ID
		init.ApprovalURL = order.ApprovalURL()
		if init.ApprovalURL == "" {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal order has no approval link")
		}

	case enums.PaymentProviderMultibanco:
		ref, err := s.eupago.CreateMultibanco(ctx, req.OrderID.String(), amount)
		if err != nil {
			return nil, mapProviderError(err, "create multibanco reference")
		}
		externalID = ref.Reference
		init.Entity = ref.Entity
		init.Reference = ref.Reference
		init.Amount = ref.Amount

	case enums.PaymentProviderMBWay:
		phone := normalizePhone(req.Phone)
		if phone == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone required for MB WAY").
				WithDetails(map[string]string{"phone": "required"})
		}
		mbway, err := s.eupago.CreateMBWay(ctx, req.OrderID.String(), amount, phone, req.OrderNumber)
		if err != nil {
			return nil, mapProviderError(err, "create mb way request")
		}
		externalID = mbway.Reference
		init.Reference = mbway.Reference
		init.Phone = mbway.Phone
	}

	payment := &models.Payment{
		OrderID:    req.OrderID,
		Provider:   req.Provider,
		ExternalID: externalID,
		Status:     enums.PaymentStatusPending,
		Amount:     init.Amount,
		Currency:   req.Currency,
	}
	if init.Entity != "" {
		payment.Entity = &init.Entity
	}
	if init.Reference != "" {
		payment.Reference = &init.Reference
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
	}
	if err := s.orders.AttachPaymentReference(ctx, req.OrderID, externalID); err != nil {
		return nil, err
	}
	init.PaymentID = payment.ID

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":    req.OrderID.String(),
			"provider":    req.Provider,
			"external_id": externalID,
		})
		s.logg.Info(logCtx, "payment.initiated")
	}
	return init, nil
}

// CapturePayPal captures the buyer-approved PayPal order of one of the
// caller's orders. Orders already paid are returned unchanged.
func (s *Service) CapturePayPal(ctx context.Context, userID, orderID uuid.UUID) (*CaptureResult, error) {
	if s.paypal == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal is not available")
	}
	order, err := s.orders.GetForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentProvider != enums.PaymentProviderPayPal {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid with paypal")
	}

	payment, err := s.repo.FindLatestForOrder(ctx, orderID, enums.PaymentProviderPayPal)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no paypal payment started for order")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status == enums.PaymentStatusSucceeded {
		return &CaptureResult{PaymentStatus: payment.Status, Order: order}, nil
	}
	if order.Status != enums.OrderStatusPendingPayment && order.Status != enums.OrderStatusPaymentFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	captured, err := s.paypal.CaptureOrder(ctx, payment.ExternalID, orderID.String())
	if err != nil {
		return nil, mapProviderError(err, "capture paypal order")
	}

	if captured.Status != paypal.StatusCompleted {
		reason := "paypal capture status " + captured.Status
		return s.fail(ctx, payment, &reason)
	}
	updated, err := s.succeed(ctx, payment)
	if err != nil {
		return nil, err
	}
	return &CaptureResult{PaymentStatus: enums.PaymentStatusSucceeded, Order: updated}, nil
}

// HandleStripeEvent applies PaymentIntent outcomes. Other event types and
// intents this shop did not create are acknowledged and ignored.
func (s *Service) HandleStripeEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:
	default:
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	payment, err := s.repo.FindByExternalID(ctx, intent.ID, enums.PaymentProviderStripe)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "payment_intent", intent.ID), "payment.stripe_intent_unknown")
		}
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		_, err = s.succeed(ctx, payment)
	case stripe.EventTypePaymentIntentPaymentFailed:
		_, err = s.fail(ctx, payment, optional(stripeFailureReason(&intent)))
	case stripe.EventTypePaymentIntentCanceled:
		err = s.cancel(ctx, payment)
	}
	return err
}

// CancelForOrder withdraws the order's open Stripe intent after the order is
// cancelled so the customer can no longer pay it. Orders paid through other
// providers, or without an open intent, are left alone.
func (s *Service) CancelForOrder(ctx context.Context, orderID uuid.UUID) error {
	payment, err := s.repo.FindLatestForOrder(ctx, orderID, enums.PaymentProviderStripe)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil
	}
	if s.stripe == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "stripe is not configured")
	}
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	if _, err := s.stripe.Cancel(ctx, payment.ExternalID, params); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel stripe payment intent")
	}
	if err := s.cancel(ctx, payment); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id":       orderID.String(),
			"payment_intent": payment.ExternalID,
		}), "payment.stripe_intent_cancelled")
	}
	return nil
}

func stripeFailureReason(intent *stripe.PaymentIntent) string {
	if intent == nil || intent.LastPaymentError == nil {
		return ""
	}
	if intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return string(intent.LastPaymentError.Code)
}

// HandleEuPagoCallback marks the referenced Multibanco or MB WAY payment paid.
func (s *Service) HandleEuPagoCallback(ctx context.Context, cb EuPagoCallback) error {
	if s.eupago == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "eupago is not enabled")
	}
	if !s.eupago.VerifyCallbackKey(cb.Key) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid callback key")
	}
	if cb.Reference == "" && cb.Identifier == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "callback reference missing")
	}

	payment, err := s.findEuPagoPayment(ctx, cb)
	if err != nil {
		return err
	}

	if cb.Amount != "" {
		paid, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(cb.Amount), ",", "."))
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid callback amount")
		}
		if !paid.Round(2).Equal(payment.Amount.Round(2)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "callback amount does not match payment").
				WithDetails(map[string]string{"expected": payment.Amount.StringFixed(2), "received": paid.StringFixed(2)})
		}
	}

	_, err = s.succeed(ctx, payment)
	return err
}

func (s *Service) findEuPagoPayment(ctx context.Context, cb EuPagoCallback) (*models.Payment, error) {
	providers := []enums.PaymentProvider{enums.PaymentProviderMultibanco, enums.PaymentProviderMBWay}
	if cb.Reference != "" {
		payment, err := s.repo.FindByExternalID(ctx, cb.Reference, providers...)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
	}
	if orderID, err := uuid.Parse(cb.Identifier); err == nil {
		payment, err := s.repo.FindLatestForOrder(ctx, orderID, providers...)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (s *Service) succeed(ctx context.Context, payment *models.Payment) (*orders.OrderDTO, error) {
	if payment.Status != enums.PaymentStatusSucceeded {
		if err := s.repo.UpdateStatus(ctx, payment.ID, enums.PaymentStatusSucceeded, nil); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		payment.Status = enums.PaymentStatusSucceeded
	}
	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithFields(ctx, map[string]any{
			"order_id":    payment.OrderID.String(),
			"provider":    payment.Provider,
			"external_id": payment.ExternalID,
		})
	}
	order, err := s.orders.MarkPaid(ctx, payment.OrderID)
	if errors.Is(err, orders.ErrCancelledBeforePayment) {
		// Money arrived for a cancelled order: keep the payment, flag it for refund.
		reason := refundRequiredReason
		if err := s.repo.UpdateStatus(ctx, payment.ID, enums.PaymentStatusSucceeded, &reason); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag payment for refund")
		}
		payment.FailureReason = &reason
		if s.logg != nil {
			s.logg.Warn(logCtx, "payment.refund_required")
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(logCtx, "payment.succeeded")
	}
	return order, nil
}

func (s *Service) fail(ctx context.Context, payment *models.Payment, reason *string) (*CaptureResult, error) {
	if payment.Status == enums.PaymentStatusSucceeded {
		return &CaptureResult{PaymentStatus: payment.Status}, nil
	}
	if err := s.repo.UpdateStatus(ctx, payment.ID, enums.PaymentStatusFailed, reason); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
	}
	order, err := s.orders.MarkPaymentFailed(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}
	return &CaptureResult{PaymentStatus: enums.PaymentStatusFailed, Order: order}, nil
}

func (s *Service) cancel(ctx context.Context, payment *models.Payment) error {
	if payment.Status != enums.PaymentStatusPending {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, payment.ID, enums.PaymentStatusCancelled, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
	}
	return nil
}

func (s *Service) returnURL(path string, orderID uuid.UUID) string {
	q := url.Values{}
	q.Set("order_id", orderID.String())
	return s.baseURL + path + "?" + q.Encode()
}

func mapProviderError(err error, message string) error {
	if errors.Is(err, paypal.ErrDisabled) || errors.Is(err, eupago.ErrDisabled) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment provider is not available")
	}
	var paypalErr *paypal.APIError
	if errors.As(err, &paypalErr) && paypalErr.StatusCode == http.StatusUnprocessableEntity {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "paypal order is not approved")
	}
	var eupagoErr *eupago.APIError
	if errors.As(err, &eupagoErr) && eupagoErr.StatusCode < http.StatusInternalServerError && eupagoErr.State != 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, eupagoErr.Message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

// normalizePhone keeps the nine national digits MB WAY expects.
func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	digits = strings.TrimPrefix(digits, "00351")
	if len(digits) == 12 && strings.HasPrefix(digits, "351") {
		digits = digits[3:]
	}
	if len(digits) != 9 {
		return ""
	}
	return digits
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
