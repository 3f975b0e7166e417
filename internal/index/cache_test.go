package index

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vaultmcp/internal/testutil"
)

type countingWalker struct {
	inner FileWalker
	calls atomic.Int32
}

func (c *countingWalker) Walk(ctx context.Context, start string) (*WalkResult, error) {
	c.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.inner.Walk(ctx, start)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, mv *testutil.MemVault) (*Cache, *countingWalker, *fakeClock) {
	t.Helper()
	cw := &countingWalker{inner: NewWalker(mv, quietLogger())}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewCache(cw, time.Minute, quietLogger(), WithClock(clock.Now)), cw, clock
}

func TestCacheHitWithinTTL(t *testing.T) {
	mv := sampleVault()
	c, cw, clock := newTestCache(t, mv)
	ctx := context.Background()

	first, err := c.Paths(ctx)
	require.NoError(t, err)
	listCalls := mv.ListCalls()

	clock.Advance(59 * time.Second)
	second, err := c.Paths(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, cw.calls.Load())
	assert.Equal(t, listCalls, mv.ListCalls(), "cache hit must not touch the vault")
}

func TestCacheExpires(t *testing.T) {
	c, cw, clock := newTestCache(t, sampleVault())
	ctx := context.Background()

	_, err := c.Paths(ctx)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = c.Paths(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 2, cw.calls.Load())
}

func TestCacheInvalidateForcesRewalk(t *testing.T) {
	mv := sampleVault()
	c, cw, _ := newTestCache(t, mv)
	ctx := context.Background()

	_, err := c.Paths(ctx)
	require.NoError(t, err)

	require.NoError(t, mv.Write(ctx, "fresh.md", "new"))
	c.Invalidate()

	paths, err := c.Paths(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, cw.calls.Load())
	assert.Contains(t, paths, "fresh.md")
}

func TestCacheInvalidatedReferenceStaysValid(t *testing.T) {
	mv := sampleVault()
	c, _, _ := newTestCache(t, mv)
	ctx := context.Background()

	old, err := c.Paths(ctx)
	require.NoError(t, err)
	snapshot := append([]string(nil), old...)

	require.NoError(t, mv.Delete(ctx, "README.md"))
	c.Invalidate()
	_, err = c.Paths(ctx)
	require.NoError(t, err)

	assert.Equal(t, snapshot, old)
}

func TestCacheRebuildFailureLeavesCacheEmpty(t *testing.T) {
	mv := sampleVault()
	c, cw, clock := newTestCache(t, mv)
	ctx := context.Background()

	_, err := c.Paths(ctx)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	mv.FailList("", testutil.ErrBroken)
	_, err = c.Paths(ctx)
	assert.ErrorIs(t, err, testutil.ErrBroken)
	_, held := c.Current()
	assert.False(t, held)

	// The next call retries instead of serving the stale index.
	_, err = c.Paths(ctx)
	assert.ErrorIs(t, err, testutil.ErrBroken)
	assert.EqualValues(t, 3, cw.calls.Load())
}

func TestCacheRebuildSurvivesCallerCancellation(t *testing.T) {
	c, cw, _ := newTestCache(t, sampleVault())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	paths, err := c.Paths(ctx)
	require.NoError(t, err)
	assert.Len(t, paths, 7)

	_, err = c.Paths(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, cw.calls.Load())
}

func TestCacheConcurrentAccess(t *testing.T) {
	c, _, _ := newTestCache(t, sampleVault())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%4 == 0 {
				c.Invalidate()
			}
			paths, err := c.Paths(ctx)
			assert.NoError(t, err)
			assert.Len(t, paths, 7)
		}()
	}
	wg.Wait()
}
