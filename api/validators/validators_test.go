package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
)

type sampleBody struct {
	Email    string          `json:"email" validate:"required,email"`
	Quantity int             `json:"quantity" validate:"min=1"`
	NIF      string          `json:"nif" validate:"omitempty,nif"`
	Price    decimal.Decimal `json:"price" validate:"money"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.pt","quantity":2,"nif":"123456789","price":"10.50"}`))
	var body sampleBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, 2, body.Quantity)
	assert.True(t, body.Price.Equal(decimal.RequireFromString("10.5")))
}

func TestDecodeJSONBodyValidationDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","quantity":0,"nif":"123456780","price":"1.234"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	details := typed.Details().(map[string]string)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be at least 1", details["quantity"])
	assert.Equal(t, "must be a valid Portuguese NIF", details["nif"])
	assert.Contains(t, details["price"], "at most 2 decimals")
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.pt","quantity":1,"extra":true}`))
	var body sampleBody
	assert.Error(t, DecodeJSONBody(req, &body))
}

func TestIsValidNIF(t *testing.T) {
	assert.True(t, IsValidNIF("123456789"))
	assert.True(t, IsValidNIF("501964843"))
	assert.False(t, IsValidNIF("123456780"))
	assert.False(t, IsValidNIF("423456789"))
	assert.False(t, IsValidNIF("12345678"))
	assert.False(t, IsValidNIF("12345678a"))
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = BearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	_, err = BearerToken("Basic abc")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = BearerToken("Bearer ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseQueryIntAndURLUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?quantity=5&bad=x", nil)
	v, err := ParseQueryInt(req, "quantity", 1, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	_, err = ParseQueryInt(req, "bad", 1, 1, 100)
	assert.Error(t, err)

	v, err = ParseQueryInt(req, "missing", 1, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req = req.WithContext(contextWithRoute(req, rctx))
	_, err = ParseURLUUID(req, "id")
	assert.Error(t, err)
}

func TestSanitizeHelpers(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "a@b.pt", NormalizeEmail(" A@B.pt "))
	assert.Nil(t, OptionalString("   ", 10))
	assert.Equal(t, "x", *OptionalString(" x ", 10))
}

func contextWithRoute(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}
