package payments

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type webhookStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookEventKey(provider, eventID string) string
}

// WebhookGuard remembers delivered provider events so redeliveries are acked
// without being applied twice.
type WebhookGuard struct {
	store    webhookStore
	ttl      time.Duration
	provider string
}

func NewWebhookGuard(store webhookStore, ttl time.Duration, provider string) (*WebhookGuard, error) {
	if store == nil {
		return nil, errors.New("webhook store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if provider == "" {
		return nil, errors.New("provider is required")
	}
	return &WebhookGuard{store: store, ttl: ttl, provider: provider}, nil
}

// CheckAndMark reports true when eventID was already seen.
func (g *WebhookGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.WebhookEventKey(g.provider, eventID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("mark webhook event: %w", err)
	}
	return !set, nil
}

// Delete forgets eventID so a failed delivery can be retried.
func (g *WebhookGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.WebhookEventKey(g.provider, eventID))
}
