package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore() (*MemoryStore, *time.Time) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemoryStore()
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemoryStore_GetSetDelete(t *testing.T) {
	m, _ := newTestMemoryStore()
	ctx := context.Background()

	v, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, m.Set(ctx, "otp:9876543210", "4321", 0))
	v, err = m.Get(ctx, "otp:9876543210")
	require.NoError(t, err)
	assert.Equal(t, "4321", v)

	ok, err := m.Exists(ctx, "otp:9876543210")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.Set(ctx, "otp:9876543210", "1111", 0))
	v, _ = m.Get(ctx, "otp:9876543210")
	assert.Equal(t, "1111", v, "set overwrites")

	require.NoError(t, m.Delete(ctx, "otp:9876543210"))
	ok, _ = m.Exists(ctx, "otp:9876543210")
	assert.False(t, ok)

	assert.NoError(t, m.Delete(ctx, "never-set"))
}

func TestMemoryStore_TTL(t *testing.T) {
	m, now := newTestMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "short", "x", time.Minute))
	require.NoError(t, m.Set(ctx, "forever", "y", 0))

	*now = now.Add(59 * time.Second)
	v, _ := m.Get(ctx, "short")
	assert.Equal(t, "x", v)

	*now = now.Add(2 * time.Second)
	v, _ = m.Get(ctx, "short")
	assert.Empty(t, v, "expired entry reads as missing")
	ok, _ := m.Exists(ctx, "short")
	assert.False(t, ok)

	v, _ = m.Get(ctx, "forever")
	assert.Equal(t, "y", v)

	assert.Equal(t, 1, m.Cleanup())
	assert.Equal(t, 0, m.Cleanup())
	ok, _ = m.Exists(ctx, "forever")
	assert.True(t, ok)
}

func TestMemoryStore_StartCleanup(t *testing.T) {
	m := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, m.Set(ctx, "k", "v", time.Millisecond))
	m.StartCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return len(m.store) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_ = m.Set(ctx, key, fmt.Sprint(i), time.Minute)
			_, _ = m.Get(ctx, key)
			_, _ = m.Exists(ctx, key)
			if i%7 == 0 {
				_ = m.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}

func TestNewMemory(t *testing.T) {
	mem, err := NewMemory(MemoryConfig{Provider: "inmemory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	_, err = NewMemory(MemoryConfig{Provider: "etcd"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	mem, err = NewMemory(MemoryConfig{Provider: "redis"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Nil(t, mem)
}
