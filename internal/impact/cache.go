package impact

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/graph"
)

// DefaultCacheSize bounds the number of cached (source, depth) results
const DefaultCacheSize = 1024

type cacheKey struct {
	source string
	depth  int
}

type cacheEntry struct {
	result     *Result
	generation uint64
}

// CacheOption configures a CachedEngine
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	size int
}

// WithCacheSize sets the maximum number of cached results
func WithCacheSize(n int) CacheOption {
	return func(o *cacheOptions) {
		if n > 0 {
			o.size = n
		}
	}
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits       int64  `json:"hits" yaml:"hits"`
	Misses     int64  `json:"misses" yaml:"misses"`
	Entries    int    `json:"entries" yaml:"entries"`
	Generation uint64 `json:"graph_generation" yaml:"graph_generation"`
}

// CachedEngine memoizes Analyze results per (source, depth) for the current
// graph. Concurrent misses on the same key run one computation. SetGraph
// swaps the graph and drops every cached result.
//
// Returned results are shared and must be treated as read-only.
type CachedEngine struct {
	mu     sync.RWMutex
	engine *Engine

	cache  *lru.Cache[cacheKey, cacheEntry]
	flight singleflight.Group

	hits   int64
	misses int64
}

// NewCachedEngine wraps an engine for g
func NewCachedEngine(g *graph.DependencyGraph, params Params, opts ...CacheOption) (*CachedEngine, error) {
	options := cacheOptions{size: DefaultCacheSize}
	for _, opt := range opts {
		opt(&options)
	}

	engine, err := NewEngine(g, params)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[cacheKey, cacheEntry](options.size)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, errors.SeverityCritical, "failed to create impact cache")
	}

	return &CachedEngine{engine: engine, cache: cache}, nil
}

// Analyze returns the cached result for (sourceID, maxDepth) or computes it
func (c *CachedEngine) Analyze(ctx context.Context, sourceID string, maxDepth int) (*Result, error) {
	c.mu.RLock()
	engine := c.engine
	c.mu.RUnlock()

	generation := engine.Graph().Generation()
	key := cacheKey{source: sourceID, depth: maxDepth}

	if entry, ok := c.cache.Get(key); ok && entry.generation == generation {
		atomic.AddInt64(&c.hits, 1)
		return entry.result, nil
	}
	atomic.AddInt64(&c.misses, 1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// the shared computation must not fail because the caller that started
	// it went away; each caller still stops waiting on its own ctx
	shared := context.WithoutCancel(ctx)
	flightKey := fmt.Sprintf("%d:%d:%s", generation, maxDepth, sourceID)
	ch := c.flight.DoChan(flightKey, func() (any, error) {
		result, err := engine.Analyze(shared, sourceID, maxDepth)
		if err != nil {
			return nil, err
		}
		c.store(key, result)
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	}
}

// store caches result unless the graph moved on while it was computed
func (c *CachedEngine) store(key cacheKey, result *Result) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.engine.Graph().Generation() != result.Generation {
		return
	}
	c.cache.Add(key, cacheEntry{result: result, generation: result.Generation})
}

// SetGraph replaces the graph snapshot and invalidates all cached results
func (c *CachedEngine) SetGraph(g *graph.DependencyGraph) error {
	c.mu.RLock()
	params := c.engine.Params()
	c.mu.RUnlock()

	engine, err := NewEngine(g, params)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.engine = engine
	c.cache.Purge()
	c.mu.Unlock()
	return nil
}

// Graph returns the current graph snapshot
func (c *CachedEngine) Graph() *graph.DependencyGraph {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.Graph()
}

// Stats returns hit and miss counters
func (c *CachedEngine) Stats() CacheStats {
	c.mu.RLock()
	generation := c.engine.Graph().Generation()
	c.mu.RUnlock()
	return CacheStats{
		Hits:       atomic.LoadInt64(&c.hits),
		Misses:     atomic.LoadInt64(&c.misses),
		Entries:    c.cache.Len(),
		Generation: generation,
	}
}
