package extract

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStrategy struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (c *countingStrategy) Method() Method { return NameHeuristic }

func (c *countingStrategy) ExtractReferencedTypes(_ context.Context, source string) (TypeSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail {
		return nil, errors.New("boom")
	}
	return NewTypeSet("T:" + source), nil
}

func TestCached(t *testing.T) {
	inner := &countingStrategy{}
	s := Cached(inner, 2)
	ctx := context.Background()

	a1, err := s.ExtractReferencedTypes(ctx, "a")
	require.NoError(t, err)
	a2, err := s.ExtractReferencedTypes(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, NameHeuristic, s.Method())

	// Results are copies; mutating one must not poison the cache.
	a2.Add("junk")
	a3, _ := s.ExtractReferencedTypes(ctx, "a")
	assert.False(t, a3.Has("junk"))

	hits, misses := s.(*CachedStrategy).Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)

	// Eviction past capacity
	_, _ = s.ExtractReferencedTypes(ctx, "b")
	_, _ = s.ExtractReferencedTypes(ctx, "c")
	_, _ = s.ExtractReferencedTypes(ctx, "a")
	assert.Equal(t, 4, inner.calls)
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &countingStrategy{fail: true}
	s := Cached(inner, 8)

	_, err := s.ExtractReferencedTypes(context.Background(), "x")
	require.Error(t, err)
	_, err = s.ExtractReferencedTypes(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCached_Disabled(t *testing.T) {
	inner := &countingStrategy{}
	assert.Same(t, Strategy(inner), Cached(inner, 0))
}
