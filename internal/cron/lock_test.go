package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	data map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryLockStore) CounterKey(name string) string { return "sf:counter:" + name }

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memoryLockStore{data: map[string]string{}}
	a, err := NewRedisLock(store, "unpaid_orders", time.Minute)
	require.NoError(t, err)
	b, err := NewRedisLock(store, "unpaid_orders", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, store.data, "sf:counter:lock:unpaid_orders")

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Release(ctx))
	assert.Contains(t, store.data, "sf:counter:lock:unpaid_orders", "non-owner release keeps the lock")

	require.NoError(t, a.Release(ctx))
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockValidatesInput(t *testing.T) {
	_, err := NewRedisLock(nil, "x", 0)
	require.Error(t, err)
	_, err = NewRedisLock(&memoryLockStore{}, "", 0)
	require.Error(t, err)
}
