package extract

import (
	"context"
	"crypto/sha256"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStrategy memoizes another strategy's results by the SHA-256 of the
// source text. Errors are not cached.
type CachedStrategy struct {
	inner  Strategy
	cache  *lru.Cache[[sha256.Size]byte, TypeSet]
	hits   atomic.Int64
	misses atomic.Int64
}

// Cached wraps s with an LRU holding up to size results. A size <= 0
// returns s unchanged.
func Cached(s Strategy, size int) Strategy {
	if size <= 0 {
		return s
	}
	cache, err := lru.New[[sha256.Size]byte, TypeSet](size)
	if err != nil {
		return s
	}
	return &CachedStrategy{inner: s, cache: cache}
}

// Method returns the wrapped strategy's method.
func (c *CachedStrategy) Method() Method { return c.inner.Method() }

// ExtractReferencedTypes returns a cached result or computes and stores one.
// Callers receive their own copy of the set.
func (c *CachedStrategy) ExtractReferencedTypes(ctx context.Context, source string) (TypeSet, error) {
	key := sha256.Sum256([]byte(source))
	if set, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return set.Clone(), nil
	}
	c.misses.Add(1)

	set, err := c.inner.ExtractReferencedTypes(ctx, source)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, set.Clone())
	return set, nil
}

// Stats returns the cache hit and miss counts.
func (c *CachedStrategy) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
