package history

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetMiss(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	_, err := store.Get(context.Background(), "example.com", "sign in")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpsertThenGet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "example.com", "Sign In", "#login"))

	entry, err := store.Get(ctx, "example.com", "sign in")
	require.NoError(t, err)
	assert.Equal(t, "#login", entry.Selector)
	assert.Equal(t, int64(1), entry.SuccessCount)
	assert.False(t, entry.LastSuccess.IsZero())
}

func TestMemoryStore_UpsertIncrementsAndReplacesSelector(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "example.com", "sign in", "#login"))
	require.NoError(t, store.Upsert(ctx, "example.com", "sign in", "#login"))
	require.NoError(t, store.Upsert(ctx, "example.com", "sign in", ".btn-login"))

	entry, err := store.Get(ctx, "example.com", "sign in")
	require.NoError(t, err)
	assert.Equal(t, ".btn-login", entry.Selector, "latest winning selector is kept")
	assert.Equal(t, int64(3), entry.SuccessCount)
}

func TestMemoryStore_KeysAreOriginScoped(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "a.example.com", "sign in", "#a"))
	require.NoError(t, store.Upsert(ctx, "b.example.com", "sign in", "#b"))

	a, err := store.Get(ctx, "a.example.com", "sign in")
	require.NoError(t, err)
	b, err := store.Get(ctx, "b.example.com", "sign in")
	require.NoError(t, err)
	assert.Equal(t, "#a", a.Selector)
	assert.Equal(t, "#b", b.Selector)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStore_InvalidInput(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, "", "sign in", "#x"), ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, "example.com", "", "#x"), ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, "example.com", "sign in", ""), ErrInvalidInput)
}

func TestMemoryStore_ClosedStoreErrors(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())
	ctx := context.Background()

	_, err := store.Get(ctx, "example.com", "sign in")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Upsert(ctx, "example.com", "sign in", "#x"), ErrStoreClosed)
	assert.ErrorIs(t, store.Ping(ctx), ErrStoreClosed)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "example.com", "sign in", "#login"))

	entry, err := store.Get(ctx, "example.com", "sign in")
	require.NoError(t, err)
	entry.Selector = "mutated"

	again, err := store.Get(ctx, "example.com", "sign in")
	require.NoError(t, err)
	assert.Equal(t, "#login", again.Selector)
}

func TestMemoryStore_ConcurrentUpserts(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	const workers = 16
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = store.Upsert(ctx, "example.com", "sign in", fmt.Sprintf("#sel-%d", w))
			}
		}(w)
	}
	wg.Wait()

	entry, err := store.Get(ctx, "example.com", "sign in")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), entry.SuccessCount)
}
