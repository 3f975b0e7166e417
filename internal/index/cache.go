package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is how long a full-vault index is served before it is rebuilt.
const DefaultTTL = 60 * time.Second

// FileWalker produces the file list for a subtree.
type FileWalker interface {
	Walk(ctx context.Context, start string) (*WalkResult, error)
}

// Snapshot is one captured full-vault index. Paths must not be modified.
type Snapshot struct {
	Paths      []string
	CapturedAt time.Time
}

// Cache memoizes the full-vault walk.
//
// Two concurrent misses may both rebuild; whichever finishes last is kept.
// Invalidate may race with a rebuild in flight, in which case the rebuilt
// (possibly stale) index is stored and served until the TTL lapses.
type Cache struct {
	walker FileWalker
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	snap *Snapshot
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a cache over w. A non-positive ttl selects DefaultTTL.
func NewCache(w FileWalker, ttl time.Duration, logger *slog.Logger, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{walker: w, ttl: ttl, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Paths returns every file in the vault, walking it only when the cached
// index is missing, expired or invalidated.
//
// The rebuild is detached from ctx cancellation: a caller that gives up
// still leaves a populated cache for the next one.
func (c *Cache) Paths(ctx context.Context) ([]string, error) {
	if s := c.fresh(); s != nil {
		c.logger.Debug("cache: hit", slog.Int("files", len(s.Paths)))
		return s.Paths, nil
	}

	c.logger.Debug("cache: miss, scanning vault")
	started := time.Now()

	res, err := c.walker.Walk(context.WithoutCancel(ctx), "")
	if err != nil {
		c.mu.Lock()
		c.snap = nil
		c.mu.Unlock()
		return nil, fmt.Errorf("index: scan vault: %w", err)
	}

	snap := &Snapshot{Paths: res.Files, CapturedAt: c.now()}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.logger.Debug("cache: rebuilt",
		slog.Int("files", len(res.Files)),
		slog.Int("failed_folders", len(res.Failures)),
		slog.Duration("took", time.Since(started)))
	return snap.Paths, nil
}

// Invalidate discards the cached index. The next Paths call rebuilds
// regardless of age.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

// Current returns the cached snapshot if one is held and still fresh.
func (c *Cache) Current() (Snapshot, bool) {
	if s := c.fresh(); s != nil {
		return *s, true
	}
	return Snapshot{}, false
}

func (c *Cache) fresh() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil || c.now().Sub(c.snap.CapturedAt) >= c.ttl {
		return nil
	}
	return c.snap
}
