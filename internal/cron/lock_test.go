package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeLockStore struct {
	values map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockAcquireIsExclusive(t *testing.T) {
	store := newFakeLockStore()

	first, err := NewRedisLock(store, "at:cron-worker:lock:test", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "at:cron-worker:lock:test", 0)
	require.NoError(t, err)

	claimed, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = second.Acquire(context.Background())
	require.NoError(t, err)
	require.False(t, claimed)
}

func TestRedisLockReleaseOnlyDropsOwnToken(t *testing.T) {
	store := newFakeLockStore()
	key := "at:cron-worker:lock:test"

	lock, err := NewRedisLock(store, key, 0)
	require.NoError(t, err)

	claimed, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, claimed)

	// Simulate the key expiring and another replica claiming it.
	store.values[key] = "someone-else"
	require.NoError(t, lock.Release(context.Background()))
	require.Equal(t, "someone-else", store.values[key])
}

func TestRedisLockReleaseRemovesHeldKey(t *testing.T) {
	store := newFakeLockStore()
	key := "at:cron-worker:lock:test"

	lock, err := NewRedisLock(store, key, 0)
	require.NoError(t, err)

	_, err = lock.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, lock.Release(context.Background()))
	require.Empty(t, store.values)
}
