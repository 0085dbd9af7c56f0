package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dermafill/storefront-backend/api/responses"
	"github.com/dermafill/storefront-backend/api/validators"
	"github.com/dermafill/storefront-backend/internal/checkout"
	"github.com/dermafill/storefront-backend/internal/payments"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
)

type paypalCapturer interface {
	CapturePayPal(ctx context.Context, userID, orderID uuid.UUID) (*payments.CaptureResult, error)
}

// Checkout converts the caller's cart into an order and starts payment.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkout.Request
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteCreated(w, result)
	}
}

// PayPalCapture finalizes a PayPal order after the buyer approved it.
func PayPalCapture(svc paypalCapturer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CapturePayPal(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
