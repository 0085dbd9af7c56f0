package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
)

// PaymentIntentClient exposes the subset of Stripe operations checkout needs.
type PaymentIntentClient interface {
	Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Cancel(ctx context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type paymentIntentWrapper struct{}

// NewPaymentIntentClient wraps the package-level Stripe API so callers can stub it in tests.
func NewPaymentIntentClient(api *Client) PaymentIntentClient {
	if api == nil {
		return nil
	}
	return &paymentIntentWrapper{}
}

func (w *paymentIntentWrapper) Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

func (w *paymentIntentWrapper) Cancel(ctx context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.Cancel(id, params)
}
