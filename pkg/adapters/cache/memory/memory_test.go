package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ExpiryAtReadTime(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v1"), time.Hour))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	now = now.Add(time.Hour)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry must be a miss at its expiry instant")

	// A set replaces the value and resets expiry.
	require.NoError(t, c.Set(ctx, "k", []byte("v2"), time.Minute))
	got, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), got)
}

func TestCache_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c := NewCache()

	in := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", in, time.Minute))
	in[0] = 'z'

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), got)
}

func TestCache_ConcurrentSets(t *testing.T) {
	ctx := context.Background()
	c := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			assert.NoError(t, c.Set(ctx, key, []byte(fmt.Sprint(i)), time.Minute))
			_, _, err := c.Get(ctx, key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		_, ok, err := c.Get(ctx, fmt.Sprintf("k%d", i))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
