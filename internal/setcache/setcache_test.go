package setcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchMiss(t *testing.T) {
	c := New[int, string](64, 4)
	_, ok := c.Fetch(7)
	assert.False(t, ok)
}

func TestInsertFetch(t *testing.T) {
	c := New[int, string](64, 4)
	c.Insert(7, "seven")
	got, ok := c.Fetch(7)
	require.True(t, ok)
	assert.Equal(t, "seven", got)
}

// The cache must never change observed values, only whether a fetch
// hits: interleave inserts and fetches and compare every hit against a
// plain map.
func TestTransparencyAgainstMap(t *testing.T) {
	c := New[int, int](32, 4)
	ref := make(map[int]int)

	// Enough keys to force evictions many times over.
	for i := 0; i < 10000; i++ {
		key := (i * 7919) % 500
		if v, ok := c.Fetch(key); ok {
			want, inRef := ref[key]
			require.True(t, inRef, "cache returned a key never inserted")
			require.Equal(t, want, v, "cache returned stale value for key %d", key)
		} else {
			ref[key] = i
			c.Insert(key, i)
		}
	}
}

func TestRoundRobinEviction(t *testing.T) {
	c := New[int, int](2, 2) // 2 buckets x 2 ways after prime rounding

	// Inserting far more keys than slots must stay within capacity;
	// the rotor guarantees every slot is reused.
	for i := 0; i < 100; i++ {
		c.Insert(i, i)
	}
	assert.LessOrEqual(t, c.Len(), 4)
}

func TestFetchAdvancesRotorPastHit(t *testing.T) {
	// Single-way cache: every insert to a bucket evicts the occupant,
	// and a fetch hit leaves the rotor pointing at the same sole slot.
	c := New[string, int](1, 1)
	c.Insert("a", 1)
	if _, ok := c.Fetch("a"); ok {
		c.Insert("b", 2) // may or may not share the bucket
		// "a" is only still present if it hashed to a different bucket
		// than "b"; either way the cached value must be right.
		if v, ok := c.Fetch("a"); ok {
			assert.Equal(t, 1, v)
		}
	}
}

func TestNextPrime(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 2}, {1, 2}, {2, 2}, {3, 3}, {4, 5}, {8, 11}, {100, 101}, {1024, 1031},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextPrime(tt.in), "nextPrime(%d)", tt.in)
	}
}
