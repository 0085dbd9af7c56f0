package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/dermafill/storefront-backend/api/responses"
	"github.com/dermafill/storefront-backend/internal/payments"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
)

type EuPagoCallbackHandler interface {
	HandleEuPagoCallback(ctx context.Context, cb payments.EuPagoCallback) error
}

// EuPagoWebhook settles Multibanco and MB WAY payments. EuPago calls it with
// query parameters on GET, or with a form or JSON body on POST.
func EuPagoWebhook(svc EuPagoCallbackHandler, guard eventGuard, metrics webhookRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		cb, err := parseEuPagoCallback(w, r)
		if err != nil {
			record(metrics, "eupago", "rejected")
			responses.WriteError(ctx, logg, w, err)
			return
		}
		eventID := cb.EventID()
		if eventID == "" {
			record(metrics, "eupago", "rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "callback reference missing"))
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			record(metrics, "eupago", "duplicate")
			responses.WriteSuccess(w, nil)
			return
		}

		handled := false
		defer releaseUnlessHandled(ctx, guard, "eupago", eventID, &handled, logg)

		if err := svc.HandleEuPagoCallback(ctx, cb); err != nil {
			record(metrics, "eupago", "error")
			responses.WriteError(ctx, logg, w, err)
			return
		}
		handled = true

		record(metrics, "eupago", "processed")
		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"reference": cb.Reference,
				"channel":   cb.Channel,
			}), "webhook.eupago_processed")
		}
		responses.WriteSuccess(w, nil)
	}
}

func parseEuPagoCallback(w http.ResponseWriter, r *http.Request) (payments.EuPagoCallback, error) {
	if r.Method == http.MethodGet {
		return callbackFromValues(r.URL.Query()), nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var cb payments.EuPagoCallback
		body := io.LimitReader(r.Body, maxWebhookBytes)
		if err := json.NewDecoder(body).Decode(&cb); err != nil {
			return payments.EuPagoCallback{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body")
		}
		return trimCallback(cb), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	if err := r.ParseForm(); err != nil {
		return payments.EuPagoCallback{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback form")
	}
	return callbackFromValues(r.Form), nil
}

func callbackFromValues(values url.Values) payments.EuPagoCallback {
	return trimCallback(payments.EuPagoCallback{
		Amount:      values.Get("valor"),
		Channel:     values.Get("canal"),
		Reference:   values.Get("referencia"),
		Transaction: values.Get("transacao"),
		Identifier:  values.Get("identificador"),
		Method:      values.Get("mp"),
		Key:         values.Get("chave_api"),
		Date:        values.Get("data"),
		Entity:      values.Get("entidade"),
	})
}

func trimCallback(cb payments.EuPagoCallback) payments.EuPagoCallback {
	cb.Amount = strings.TrimSpace(cb.Amount)
	cb.Channel = strings.TrimSpace(cb.Channel)
	cb.Reference = strings.TrimSpace(cb.Reference)
	cb.Transaction = strings.TrimSpace(cb.Transaction)
	cb.Identifier = strings.TrimSpace(cb.Identifier)
	cb.Method = strings.TrimSpace(cb.Method)
	cb.Key = strings.TrimSpace(cb.Key)
	cb.Date = strings.TrimSpace(cb.Date)
	cb.Entity = strings.TrimSpace(cb.Entity)
	return cb
}
