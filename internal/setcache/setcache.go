// Package setcache implements a fixed-size N-way set-associative cache
// with round-robin in-bucket replacement.
//
// There is no LRU bookkeeping: lookups cost O(N) with N small, and a
// Fetch hit advances the bucket's replacement rotor to just past the
// hit, so recently used entries survive the next insert. Callers must
// Fetch before Insert; duplicate keys in one bucket are not detected.
package setcache

import (
	"hash/maphash"
)

type entry[K comparable, V any] struct {
	key  K
	val  V
	used bool
}

// Cache is an N-way set-associative cache. Not safe for concurrent use.
type Cache[K comparable, V any] struct {
	seed    maphash.Seed
	ways    int
	buckets int
	entries []entry[K, V]
	rotor   []uint8
}

// New returns a cache with the given total capacity and associativity.
// The bucket count is the next prime at or above capacity/ways.
func New[K comparable, V any](capacity, ways int) *Cache[K, V] {
	if ways < 1 {
		ways = 1
	}
	if ways > 255 {
		ways = 255
	}
	if capacity < ways {
		capacity = ways
	}
	buckets := nextPrime(capacity / ways)
	return &Cache[K, V]{
		seed:    maphash.MakeSeed(),
		ways:    ways,
		buckets: buckets,
		entries: make([]entry[K, V], buckets*ways),
		rotor:   make([]uint8, buckets),
	}
}

func (c *Cache[K, V]) bucket(key K) int {
	return int(maphash.Comparable(c.seed, key) % uint64(c.buckets))
}

// Fetch looks up a key. On a hit the bucket rotor advances past the
// hit slot, crediting the entry against the next eviction.
func (c *Cache[K, V]) Fetch(key K) (V, bool) {
	b := c.bucket(key)
	base := b * c.ways
	for i := 0; i < c.ways; i++ {
		e := &c.entries[base+i]
		if e.used && e.key == key {
			c.rotor[b] = uint8((i + 1) % c.ways)
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

// Insert stores a key/value pair in the slot under the bucket rotor,
// evicting whatever was there, then advances the rotor.
func (c *Cache[K, V]) Insert(key K, val V) {
	b := c.bucket(key)
	slot := int(c.rotor[b]) % c.ways
	c.entries[b*c.ways+slot] = entry[K, V]{key: key, val: val, used: true}
	c.rotor[b] = uint8((slot + 1) % c.ways)
}

// Len reports the number of live entries.
func (c *Cache[K, V]) Len() int {
	n := 0
	for i := range c.entries {
		if c.entries[i].used {
			n++
		}
	}
	return n
}

func nextPrime(n int) int {
	if n < 2 {
		return 2
	}
	for {
		if isPrime(n) {
			return n
		}
		n++
	}
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}
