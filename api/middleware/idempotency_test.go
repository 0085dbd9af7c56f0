package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func checkoutRequest(body, key, userID string) *http.Request {
	req := requestWithPattern(http.MethodPost, "/api/v1/checkout", "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	if userID != "" {
		req = req.WithContext(WithUserID(req.Context(), userID))
	}
	return req
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"checkout", http.MethodPost, "/api/v1/checkout", criticalIdempotencyTTL, true},
		{"paypal capture", http.MethodPost, "/api/v1/payments/paypal/{orderId}/capture", criticalIdempotencyTTL, true},
		{"cart replace", http.MethodPut, "/api/v1/cart", defaultIdempotencyTTL, true},
		{"admin order status", http.MethodPatch, "/api/admin/v1/orders/{id}/status", defaultIdempotencyTTL, true},
		{"login", http.MethodPost, "/api/v1/auth/login", 0, false},
		{"cart read", http.MethodGet, "/api/v1/cart", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ttl, ok := routeTTL(tt.method, tt.pattern)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, ttl)
			}
		})
	}
}

func TestIdempotencyWithoutHeaderRunsEveryTime(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, checkoutRequest(`{"provider":"stripe"}`, "", "user-1"))
		require.Equal(t, http.StatusCreated, resp.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"order":"DF-1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest(`{"provider":"stripe"}`, "abc", "user-1"))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, checkoutRequest(`{"provider":"stripe"}`, "abc", "user-1"))
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"order":"DF-1"}}`, replay.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "shared", "user-1"))
	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "shared", "user-2"))
	assert.Equal(t, 2, calls)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{"provider":"stripe"}`, "xyz", "user-1"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, checkoutRequest(`{"provider":"paypal"}`, "xyz", "user-1"))
	require.Equal(t, http.StatusConflict, resp.Code)

	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, string(pkgerrors.CodeIdempotency), payload.Error.Code)
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "retry", "user-1"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, checkoutRequest(`{}`, "retry", "user-1"))

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, 2, calls)
}
