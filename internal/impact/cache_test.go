package impact

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codeimpact/internal/models"
)

func TestCachedEngine_HitsAndMisses(t *testing.T) {
	cached, err := NewCachedEngine(twoFiles(t), DefaultParams(), WithCacheSize(8))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := cached.Analyze(ctx, "A", 10)
	require.NoError(t, err)
	second, err := cached.Analyze(ctx, "A", 10)
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := cached.Analyze(ctx, "A", 1)
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Len(t, other.Nodes, 3)

	stats := cached.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.Entries)
}

func TestCachedEngine_SetGraphInvalidates(t *testing.T) {
	initial := twoFiles(t)
	cached, err := NewCachedEngine(initial, DefaultParams())
	require.NoError(t, err)
	ctx := context.Background()

	before, err := cached.Analyze(ctx, "A", 10)
	require.NoError(t, err)
	assert.Equal(t, initial.Generation(), before.Generation)

	rebuilt := buildGraph(t,
		map[string]string{"A": "f1", "B": "f2"},
		[]edgeSpec{{"A", "B", models.RelInvokes}})
	require.NoError(t, cached.SetGraph(rebuilt))
	assert.Same(t, rebuilt, cached.Graph())
	assert.Equal(t, 0, cached.Stats().Entries)

	after, err := cached.Analyze(ctx, "A", 10)
	require.NoError(t, err)
	assert.NotEqual(t, before.Generation, after.Generation)
	assert.Len(t, after.Nodes, 2)
	assert.Equal(t, int64(2), cached.Stats().Misses)

	assert.Error(t, cached.SetGraph(nil))
}

func TestCachedEngine_Concurrent(t *testing.T) {
	cached, err := NewCachedEngine(twoFiles(t), DefaultParams())
	require.NoError(t, err)

	const workers = 16
	results := make([]*Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := cached.Analyze(context.Background(), "A", 10)
			if err == nil {
				results[i] = r
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Len(t, r.Nodes, 4)
	}
	stats := cached.Stats()
	assert.Equal(t, int64(workers), stats.Hits+stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCachedEngine_Errors(t *testing.T) {
	cached, err := NewCachedEngine(twoFiles(t), DefaultParams())
	require.NoError(t, err)

	_, err = cached.Analyze(context.Background(), "A", -2)
	assert.Error(t, err)
	assert.Equal(t, 0, cached.Stats().Entries)

	_, err = NewCachedEngine(twoFiles(t), Params{DecayFactor: 2})
	assert.Error(t, err)
}

// cancelledAfterFirstCheck reports no error on the first Err call and
// context.Canceled afterwards, as if the caller went away mid-query
type cancelledAfterFirstCheck struct {
	context.Context
	calls atomic.Int32
}

func (c *cancelledAfterFirstCheck) Err() error {
	if c.calls.Add(1) == 1 {
		return nil
	}
	return context.Canceled
}

func TestCachedEngine_CancellationIsPerCaller(t *testing.T) {
	t.Run("cancelled before start", func(t *testing.T) {
		cached, err := NewCachedEngine(twoFiles(t), DefaultParams())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = cached.Analyze(ctx, "A", 10)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, cached.Stats().Entries)
	})

	t.Run("starter cancelled mid-query", func(t *testing.T) {
		cached, err := NewCachedEngine(twoFiles(t), DefaultParams())
		require.NoError(t, err)

		ctx := &cancelledAfterFirstCheck{Context: context.Background()}
		result, err := cached.Analyze(ctx, "A", 10)
		require.NoError(t, err)
		assert.Len(t, result.Nodes, 4)

		// the result was cached for callers that are still waiting
		again, err := cached.Analyze(context.Background(), "A", 10)
		require.NoError(t, err)
		assert.Same(t, result, again)
	})

	t.Run("waiter stops on its own ctx", func(t *testing.T) {
		cached, err := NewCachedEngine(twoFiles(t), DefaultParams())
		require.NoError(t, err)

		release := make(chan struct{})
		key := fmt.Sprintf("%d:%d:%s", cached.Graph().Generation(), 10, "A")
		blocked := cached.flight.DoChan(key, func() (any, error) {
			<-release
			return &Result{SourceID: "A"}, nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, err := cached.Analyze(ctx, "A", 10)
			done <- err
		}()
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("cancelled caller kept waiting for the shared query")
		}

		close(release)
		res := <-blocked
		require.NoError(t, res.Err)
	})
}
