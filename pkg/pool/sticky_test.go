package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStickyCache(t *testing.T) {
	c := newStickyCache(time.Minute)

	_, ok := c.Get("k")
	require.False(t, ok)

	c.Set("k1", "id-1")
	c.Set("k2", "id-1")
	c.Set("k3", "id-2")
	id, ok := c.Get("k1")
	require.True(t, ok)
	require.Equal(t, "id-1", id)

	c.DeleteID("id-1")
	require.Equal(t, 1, c.Len())
	_, ok = c.Get("k2")
	require.False(t, ok)

	c.Delete("k3")
	require.Zero(t, c.Len())
}

func TestStickyCacheExpires(t *testing.T) {
	c := newStickyCache(20 * time.Millisecond)
	c.Set("k", "id")

	require.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestStickyCacheWithoutTTL(t *testing.T) {
	c := newStickyCache(0)
	c.Set("k", "id")
	id, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "id", id)
}
