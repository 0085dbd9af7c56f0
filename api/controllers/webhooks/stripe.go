package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/dermafill/storefront-backend/api/responses"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
)

const maxWebhookBytes = 64 << 10

type StripeEventHandler interface {
	HandleStripeEvent(ctx context.Context, event *stripe.Event) error
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

type webhookRecorder interface {
	IncWebhook(provider, result string)
}

// StripeWebhook applies PaymentIntent events to their orders.
func StripeWebhook(svc StripeEventHandler, client stripeClient, guard eventGuard, metrics webhookRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			record(metrics, "stripe", "rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			record(metrics, "stripe", "rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "verify signature"))
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			record(metrics, "stripe", "duplicate")
			responses.WriteSuccess(w, nil)
			return
		}

		handled := false
		defer releaseUnlessHandled(ctx, guard, "stripe", event.ID, &handled, logg)

		if err := svc.HandleStripeEvent(ctx, &event); err != nil {
			record(metrics, "stripe", "error")
			responses.WriteError(ctx, logg, w, err)
			return
		}
		handled = true

		record(metrics, "stripe", "processed")
		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"event_id":   event.ID,
				"event_type": string(event.Type),
			}), "webhook.stripe_processed")
		}
		responses.WriteSuccess(w, nil)
	}
}

// releaseUnlessHandled drops the dedupe mark of an event that did not finish,
// panics included, so the provider's redelivery is processed again.
func releaseUnlessHandled(ctx context.Context, guard eventGuard, provider, eventID string, handled *bool, logg *logger.Logger) {
	if *handled {
		return
	}
	if err := guard.Delete(context.WithoutCancel(ctx), eventID); err != nil && logg != nil {
		logg.Error(logg.WithFields(ctx, map[string]any{
			"provider": provider,
			"event_id": eventID,
		}), "webhook.guard_release_failed", err)
	}
}

func record(metrics webhookRecorder, provider, result string) {
	if metrics != nil {
		metrics.IncWebhook(provider, result)
	}
}
