package location

import (
	"context"
	"errors"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dermafill/storefront-backend/pkg/access"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
)

type memoryStore struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) LocationKey(id string) string { return "loc:" + id }

func (m *memoryStore) InternationalConfirmedKey(id string) string { return "conf:" + id }

func TestResolve(t *testing.T) {
	pt := enums.LocationPortugal
	intl := enums.LocationInternational

	assert.Equal(t, access.LocationUnknown, Resolve(nil, true))
	assert.Equal(t, access.LocationPortugal, Resolve(&pt, false))
	assert.Equal(t, access.LocationPortugal, Resolve(&pt, true))
	assert.Equal(t, access.LocationUnknown, Resolve(&intl, false))
	assert.Equal(t, access.LocationInternational, Resolve(&intl, true))
}

func TestSetAndGet(t *testing.T) {
	store := newMemoryStore()
	svc, err := NewService(store, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	pref, err := svc.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Nil(t, pref.Region)
	assert.Equal(t, access.LocationUnknown, pref.Resolved)

	pref, err = svc.Set(ctx, "v1", UpdateRequest{Region: enums.LocationInternational, InternationalConfirmed: true})
	require.NoError(t, err)
	assert.Equal(t, access.LocationInternational, pref.Resolved)
	assert.Equal(t, time.Hour, store.ttls["loc:v1"])

	pref, err = svc.Get(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, pref.Region)
	assert.Equal(t, enums.LocationInternational, *pref.Region)
	assert.True(t, pref.InternationalConfirmed)

	pref, err = svc.Set(ctx, "v1", UpdateRequest{Region: enums.LocationPortugal, InternationalConfirmed: true})
	require.NoError(t, err)
	assert.False(t, pref.InternationalConfirmed)
	assert.Equal(t, access.LocationPortugal, pref.Resolved)

	require.NoError(t, svc.Clear(ctx, "v1"))
	pref, err = svc.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, access.LocationUnknown, pref.Resolved)
}

func TestSetValidatesInput(t *testing.T) {
	svc, err := NewService(newMemoryStore(), time.Hour)
	require.NoError(t, err)

	_, err = svc.Set(context.Background(), "", UpdateRequest{Region: enums.LocationPortugal})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Set(context.Background(), "v1", UpdateRequest{Region: "spain"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetSurfacesStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("redis down")
	svc, err := NewService(store, time.Hour)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "v1")
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}
