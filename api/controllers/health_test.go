package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dermafill/storefront-backend/pkg/config"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, Dependency{Name: "database", Pinger: up}, Dependency{Name: "redis", Pinger: up}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Storefront-Env"))
	assert.JSONEq(t, `{"data":{"status":"ready","checks":{"database":"up","redis":"up"}}}`, resp.Body.String())

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, Dependency{Name: "database", Pinger: up}, Dependency{Name: "redis", Pinger: down}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), `"redis":"down"`)
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{}
	resp := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}
