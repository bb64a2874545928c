package lru

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvictsOldestFirst(t *testing.T) {
	c := New[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "a was least recently used and must be evicted")

	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, c.Len())
}

func TestGetRefreshesRecency(t *testing.T) {
	c := New[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// Touching a makes b the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Put("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestPutOverwriteRefreshes(t *testing.T) {
	c := New[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 10)
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestKeysInRecencyOrder(t *testing.T) {
	c := New[string, int](3)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Get("a")

	assert.Equal(t, []string{"a", "c", "b"}, c.Keys())
}

func TestClear(t *testing.T) {
	c := New[string, int](4)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Keys())
	_, ok := c.Get("a")
	assert.False(t, ok)

	// The cache is reusable after a clear.
	c.Put("x", 9)
	v, ok := c.Get("x")
	require.True(t, ok)
	assert.Equal(t, 9, v)
}

func TestSetCapacityShrinkEvicts(t *testing.T) {
	c := New[int, string](4)
	for i := range 4 {
		c.Put(i, "v")
	}
	c.Get(0)

	c.SetCapacity(2)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, c.Capacity())

	// The two most recently used entries survive: 0 (touched) and 3.
	_, ok := c.Get(0)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestCapacityClampedToOne(t *testing.T) {
	c := New[string, int](0)
	assert.Equal(t, 1, c.Capacity())

	c.Put("a", 1)
	c.Put("b", 2)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.SetCapacity(-5)
	assert.Equal(t, 1, c.Capacity())
}

func TestGetMissingReturnsZero(t *testing.T) {
	c := New[string, *int](2)
	v, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, v)
}
