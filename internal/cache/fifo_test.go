package cache

import (
	"sync"
	"testing"

	"github.com/hupe1980/seqloc/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO_EvictsInInsertionOrder(t *testing.T) {
	c, err := NewFIFO[string](2)
	require.NoError(t, err)

	c.Add(0, "a")
	c.Add(1, "b")
	_, ok := c.Get(0) // reads do not refresh
	require.True(t, ok)
	c.Add(3, "d")

	assert.False(t, c.Contains(0))
	assert.True(t, c.Contains(1))
	assert.True(t, c.Contains(3))
	assert.Equal(t, []int{1, 3}, c.IDs())
	assert.Equal(t, 2, c.Len())

	_, _, evictions := c.Stats()
	assert.Equal(t, int64(1), evictions)
}

func TestFIFO_Overwrite(t *testing.T) {
	c, err := NewFIFO[int](2)
	require.NoError(t, err)

	assert.False(t, c.Add(0, 10))
	assert.False(t, c.Add(1, 11))
	assert.True(t, c.Add(0, 20))

	v, ok := c.Get(0)
	require.True(t, ok)
	assert.Equal(t, 20, v)

	// 0 keeps its position as the oldest entry.
	c.Add(2, 12)
	assert.Equal(t, []int{1, 2}, c.IDs())

	// Re-adding an evicted id is a fresh insertion.
	assert.False(t, c.Add(0, 30))
	assert.Equal(t, []int{2, 0}, c.IDs())
}

func TestFIFO_ZeroCapacity(t *testing.T) {
	c, err := NewFIFO[int](0)
	require.NoError(t, err)

	c.Add(1, 1)
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Contains(1))
}

func TestFIFO_NegativeCapacity(t *testing.T) {
	_, err := NewFIFO[int](-1)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestFIFO_Concurrent(t *testing.T) {
	c, err := NewFIFO[int](16)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Add(g*100+i, i)
				c.Get(i)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), c.Cap())
}
