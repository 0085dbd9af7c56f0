package stripe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dermafill/storefront-backend/pkg/config"
)

func TestNewClientDisabledWithoutKey(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.Nil(t, NewPaymentIntentClient(client))
	assert.Equal(t, "", client.SigningSecret())
}

func TestNewClientValidatesKeyForEnvironment(t *testing.T) {
	_, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec", Env: "test"}, nil)
	assert.Error(t, err)

	_, err = NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_123", Env: "test"}, nil)
	assert.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec", Env: "staging"}, nil)
	assert.ErrorIs(t, err, errInvalidStripeEnv)
}

func TestNewClientAcceptsTestKey(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_abc", Env: "test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", client.Environment())
	assert.Equal(t, "whsec_abc", client.SigningSecret())
	assert.NotNil(t, NewPaymentIntentClient(client))
}
