package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dermafill/storefront-backend/api/middleware"
	"github.com/dermafill/storefront-backend/internal/checkout"
	"github.com/dermafill/storefront-backend/internal/orders"
	"github.com/dermafill/storefront-backend/internal/payments"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
)

type stubCheckoutService struct {
	gotUser uuid.UUID
	gotReq  checkout.Request
	err     error
}

func (s *stubCheckoutService) Execute(_ context.Context, userID uuid.UUID, req checkout.Request) (*checkout.Result, error) {
	s.gotUser = userID
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &checkout.Result{
		Order: &orders.OrderDTO{ID: uuid.New(), Status: enums.OrderStatusPendingPayment},
		Payment: &payments.Initiation{
			Provider:  req.Provider,
			Status:    enums.PaymentStatusPending,
			Amount:    decimal.RequireFromString("320.00"),
			Currency:  enums.CurrencyEUR,
			Entity:    "12345",
			Reference: "123 456 789",
		},
	}, nil
}

type stubCapturer struct {
	gotOrder uuid.UUID
	err      error
}

func (s *stubCapturer) CapturePayPal(_ context.Context, _ uuid.UUID, orderID uuid.UUID) (*payments.CaptureResult, error) {
	s.gotOrder = orderID
	if s.err != nil {
		return nil, s.err
	}
	return &payments.CaptureResult{PaymentStatus: enums.PaymentStatusSucceeded}, nil
}

const checkoutBody = `{"provider":"eupago_multibanco","shipping":{"name":"Clinica Porto","address":"Rua de Santa Catarina 10","city":"Porto","postal_code":"4000-442","country":"PT"}}`

func TestCheckoutCreatesOrder(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()

	Checkout(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, userID, svc.gotUser)
	assert.Equal(t, enums.PaymentProviderMultibanco, svc.gotReq.Provider)
	assert.Equal(t, "Porto", svc.gotReq.Shipping.City)

	var env struct {
		Data struct {
			Payment struct {
				Entity    string `json:"entity"`
				Reference string `json:"reference"`
			} `json:"payment"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "12345", env.Data.Payment.Entity)
	assert.Equal(t, "123 456 789", env.Data.Payment.Reference)
}

func TestCheckoutRejectsUnknownProvider(t *testing.T) {
	svc := &stubCheckoutService{}
	body := strings.Replace(checkoutBody, "eupago_multibanco", "bitcoin", 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	Checkout(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, uuid.Nil, svc.gotUser, "service not reached")
}

func TestCheckoutEmptyCartConflicts(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	Checkout(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "cart is empty")
}

func TestCheckoutWithoutIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody))
	rec := httptest.NewRecorder()

	Checkout(&stubCheckoutService{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPayPalCapture(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCapturer{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/paypal/"+orderID.String()+"/capture", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	req = withURLParam(req, "orderId", orderID.String())
	rec := httptest.NewRecorder()

	PayPalCapture(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, orderID, svc.gotOrder)
	assert.Contains(t, rec.Body.String(), `"payment_status":"succeeded"`)
}

func TestPayPalCaptureRejectsBadOrderID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/paypal/nope/capture", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	req = withURLParam(req, "orderId", "nope")
	rec := httptest.NewRecorder()

	PayPalCapture(&stubCapturer{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
