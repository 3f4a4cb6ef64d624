// Package cache keeps recent query results keyed by index name and query.
package cache

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/twmb/murmur3"
)

// LRUCache is a thread-safe least recently used cache. A nil *LRUCache is a
// valid, always-empty cache.
type LRUCache[V any] struct {
	lru *lru.Cache[string, V]
}

// NewLRUCache creates a cache holding at most maxSize entries. A maxSize of
// zero or less disables caching and returns nil.
func NewLRUCache[V any](maxSize int) (*LRUCache[V], error) {
	if maxSize <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, V](maxSize)
	if err != nil {
		return nil, err
	}
	return &LRUCache[V]{lru: c}, nil
}

// Set adds or updates a key-value pair
func (l *LRUCache[V]) Set(key string, value V) {
	if l == nil {
		return
	}
	l.lru.Add(key, value)
}

// Get retrieves a value and marks it recently used
func (l *LRUCache[V]) Get(key string) (V, bool) {
	if l == nil {
		var zero V
		return zero, false
	}
	return l.lru.Get(key)
}

// Remove deletes a key
func (l *LRUCache[V]) Remove(key string) {
	if l == nil {
		return
	}
	l.lru.Remove(key)
}

// PurgeIndex drops every entry recorded for an index.
func (l *LRUCache[V]) PurgeIndex(index string) {
	if l == nil {
		return
	}
	prefix := index + "/"
	for _, k := range l.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			l.lru.Remove(k)
		}
	}
}

// Len returns the number of cached entries
func (l *LRUCache[V]) Len() int {
	if l == nil {
		return 0
	}
	return l.lru.Len()
}

// Key builds a cache key "index/op/hash" where hash is the murmur3 128-bit
// digest of the vector bits and the numeric arguments of the query.
func Key(index, op string, vector []float32, args ...float64) string {
	buf := make([]byte, 0, 4*len(vector)+8*len(args))
	for _, v := range vector {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	for _, a := range args {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(a))
	}
	h1, h2 := murmur3.Sum128(buf)
	return index + "/" + op + "/" + strconv.FormatUint(h1, 16) + strconv.FormatUint(h2, 16)
}
