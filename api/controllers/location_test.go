package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dermafill/storefront-backend/api/middleware"
	"github.com/dermafill/storefront-backend/internal/gate"
	"github.com/dermafill/storefront-backend/internal/location"
	"github.com/dermafill/storefront-backend/pkg/access"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
)

type stubLocationService struct {
	visitor string
	set     location.UpdateRequest
	cleared bool
	setErr  error
}

func (s *stubLocationService) Get(ctx context.Context, visitorID string) (location.Preference, error) {
	s.visitor = visitorID
	return location.Preference{}, nil
}

func (s *stubLocationService) Set(ctx context.Context, visitorID string, req location.UpdateRequest) (location.Preference, error) {
	s.visitor = visitorID
	s.set = req
	if s.setErr != nil {
		return location.Preference{}, s.setErr
	}
	region := req.Region
	return location.Preference{Region: &region, InternationalConfirmed: req.InternationalConfirmed, Resolved: access.Location(region)}, nil
}

func (s *stubLocationService) Clear(ctx context.Context, visitorID string) error {
	s.visitor = visitorID
	s.cleared = true
	return nil
}

type stubAccessResolver struct {
	res       gate.Resolution
	lastToken string
}

func (s *stubAccessResolver) Resolve(ctx context.Context, visitorID, token string) gate.Resolution {
	s.lastToken = token
	return s.res
}

func visitorRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithVisitorID(req.Context(), "visitor-1"))
}

func TestLocationUpdate(t *testing.T) {
	svc := &stubLocationService{}

	resp := httptest.NewRecorder()
	LocationUpdate(svc, nil).ServeHTTP(resp, visitorRequest(http.MethodPut, "/api/v1/location", `{"region":"portugal"}`))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "visitor-1", svc.visitor)
	assert.Equal(t, enums.LocationPortugal, svc.set.Region)
	assert.JSONEq(t, `{"data":{"region":"portugal","international_confirmed":false,"resolved":"portugal"}}`, resp.Body.String())
}

func TestLocationUpdateValidation(t *testing.T) {
	resp := httptest.NewRecorder()
	LocationUpdate(&stubLocationService{}, nil).ServeHTTP(resp, visitorRequest(http.MethodPut, "/api/v1/location", `{"region":"spain"}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	svc := &stubLocationService{setErr: pkgerrors.New(pkgerrors.CodeValidation, "confirmation required")}
	resp = httptest.NewRecorder()
	LocationUpdate(svc, nil).ServeHTTP(resp, visitorRequest(http.MethodPut, "/api/v1/location", `{"region":"international"}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLocationClear(t *testing.T) {
	svc := &stubLocationService{}
	resp := httptest.NewRecorder()
	LocationClear(svc, nil).ServeHTTP(resp, visitorRequest(http.MethodDelete, "/api/v1/location", ""))

	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.True(t, svc.cleared)
}

func TestAccessCheck(t *testing.T) {
	support := middleware.SupportContact{Email: "support@dermafill.pt", Phone: "+351 210 000 000"}

	t.Run("rejected customer gets support contact", func(t *testing.T) {
		resolver := &stubAccessResolver{res: gate.Resolution{Access: access.Context{
			Location:       access.LocationPortugal,
			Auth:           access.AuthAuthenticated,
			ApprovalStatus: access.ApprovalRejected,
		}}}
		req := visitorRequest(http.MethodGet, "/api/v1/access?level=approved-portugal-only", "")
		req.Header.Set("Authorization", "Bearer token-1")
		resp := httptest.NewRecorder()
		AccessCheck(resolver, support, nil).ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "token-1", resolver.lastToken)
		assert.Equal(t, "no-store", resp.Header().Get("Cache-Control"))

		var envelope struct {
			Data struct {
				Outcome access.Outcome             `json:"outcome"`
				Auth    string                     `json:"auth"`
				Support *middleware.SupportContact `json:"support"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
		assert.Equal(t, access.OutcomeInterstitial, envelope.Data.Outcome.Kind)
		assert.Equal(t, access.InterstitialRejected, envelope.Data.Outcome.Interstitial)
		assert.Equal(t, "authenticated", envelope.Data.Auth)
		require.NotNil(t, envelope.Data.Support)
		assert.Equal(t, support, *envelope.Data.Support)
	})

	t.Run("unknown location loads", func(t *testing.T) {
		resolver := &stubAccessResolver{res: gate.Resolution{Access: access.Context{Auth: access.AuthAnonymous}}}
		resp := httptest.NewRecorder()
		AccessCheck(resolver, support, nil).ServeHTTP(resp, visitorRequest(http.MethodGet, "/api/v1/access?level=authenticated-portugal-only", ""))

		require.Equal(t, http.StatusOK, resp.Code)
		var envelope struct {
			Data struct {
				Outcome access.Outcome             `json:"outcome"`
				Support *middleware.SupportContact `json:"support"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
		assert.Equal(t, access.OutcomeLoading, envelope.Data.Outcome.Kind)
		assert.Nil(t, envelope.Data.Support)
	})

	t.Run("invalid level", func(t *testing.T) {
		resp := httptest.NewRecorder()
		AccessCheck(&stubAccessResolver{}, support, nil).ServeHTTP(resp, visitorRequest(http.MethodGet, "/api/v1/access?level=vip", ""))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
