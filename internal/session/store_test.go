package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrStateNotFound)

	state := State{ID: "a", Parameters: smallParameters(), Seed: 12}
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, State{ID: "a"}))

	now = now.Add(59 * time.Second)
	_, err := store.Load(ctx, "a")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = store.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore(0)
	assert.ErrorIs(t, store.Save(ctx, State{ID: "a"}), context.Canceled)
	_, err := store.Load(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisStoreKey(t *testing.T) {
	store := NewRedisStore(nil, "galaxy:", time.Hour, discardLogger())
	assert.Equal(t, "galaxy:session:abc", store.key("abc"))
}
