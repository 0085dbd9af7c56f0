package settings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dermafill/storefront-backend/pkg/config"
	"github.com/dermafill/storefront-backend/pkg/db"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T, cfg config.PayPalConfig) *Service {
	t.Helper()
	conn, err := db.OpenSQLite("file:settings_" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), cfg)
	require.NoError(t, err)
	return svc
}

func TestPayPalDefaultsFromEnvironment(t *testing.T) {
	svc := newTestService(t, config.PayPalConfig{ClientID: "env-client", ClientSecret: "secret", Mode: "LIVE"})

	got, err := svc.PayPal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-client", got.ClientID)
	assert.Equal(t, enums.PayPalModeLive, got.Mode)
	assert.True(t, got.Enabled)
}

func TestPayPalDisabledWithoutSecret(t *testing.T) {
	svc := newTestService(t, config.PayPalConfig{ClientID: "env-client", Mode: "sandbox"})

	got, err := svc.PayPal(context.Background())
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestUpdatePayPalOverridesDefaults(t *testing.T) {
	svc := newTestService(t, config.PayPalConfig{ClientID: "env-client", ClientSecret: "secret", Mode: "sandbox"})
	ctx := context.Background()

	saved, err := svc.UpdatePayPal(ctx, PayPalSettings{ClientID: " admin-client ", Mode: enums.PayPalModeLive, Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, "admin-client", saved.ClientID)
	assert.Equal(t, enums.PayPalModeLive, saved.Mode)
	assert.False(t, saved.Enabled)

	saved, err = svc.UpdatePayPal(ctx, PayPalSettings{Mode: enums.PayPalModeSandbox, Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, "env-client", saved.ClientID)
	assert.True(t, saved.Enabled)

	_, err = svc.UpdatePayPal(ctx, PayPalSettings{Mode: "staging"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdatePayPalRequiresClientID(t *testing.T) {
	svc := newTestService(t, config.PayPalConfig{})

	_, err := svc.UpdatePayPal(context.Background(), PayPalSettings{Mode: enums.PayPalModeSandbox, Enabled: true})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestNotificationsRoundTrip(t *testing.T) {
	svc := newTestService(t, config.PayPalConfig{})
	ctx := context.Background()

	empty, err := svc.Notifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.AdminEmails)
	assert.NotNil(t, empty.AdminEmails)

	_, err = svc.UpdateNotifications(ctx, NotificationSettings{
		AdminEmails:   []string{" Ops@Clinic.pt", "ops@clinic.pt", "", "sales@clinic.pt"},
		NotifyOnOrder: true,
	})
	require.NoError(t, err)

	got, err := svc.Notifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@clinic.pt", "sales@clinic.pt"}, got.AdminEmails)
	assert.True(t, got.NotifyOnOrder)
	assert.False(t, got.NotifyOnRegistration)
}

func TestPayPalCredentialsFollowSavedSettings(t *testing.T) {
	svc := newTestService(t, config.PayPalConfig{ClientID: "env-client", ClientSecret: "secret", Mode: "sandbox"})
	ctx := context.Background()

	creds, err := svc.PayPalCredentials(ctx)
	require.NoError(t, err)
	assert.True(t, creds.Enabled)
	assert.Equal(t, "secret", creds.ClientSecret)

	_, err = svc.UpdatePayPal(ctx, PayPalSettings{ClientID: "admin-client", Mode: enums.PayPalModeLive, Enabled: false})
	require.NoError(t, err)

	creds, err = svc.PayPalCredentials(ctx)
	require.NoError(t, err)
	assert.False(t, creds.Enabled)
	assert.Equal(t, "admin-client", creds.ClientID)
	assert.Equal(t, enums.PayPalModeLive, creds.Mode)
}
