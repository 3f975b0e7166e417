package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vaultmcp/internal/testutil"
	"github.com/starford/vaultmcp/internal/vault"
)

func sampleVault() *testutil.MemVault {
	return testutil.NewMemVault(map[string]string{
		"README.md":                 "root",
		"Projects/alpha.md":         "a",
		"Projects/beta/notes.md":    "b",
		"Projects/beta/img.png":     "png",
		"Daily/2024-01-01.md":       "d1",
		"Daily/2024-01-02.md":       "d2",
		"🧪 Lab/experiment one.md":   "e",
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWalkReturnsEveryFile(t *testing.T) {
	mv := sampleVault()
	res, err := NewWalker(mv, quietLogger()).Walk(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, mv.Files(), res.Files)
	assert.Empty(t, res.Failures)
	for _, f := range res.Files {
		assert.False(t, strings.HasSuffix(f, "/"), "directory entry %q in result", f)
	}
}

func TestWalkSubtree(t *testing.T) {
	res, err := NewWalker(sampleVault(), quietLogger()).Walk(context.Background(), "Projects/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Projects/alpha.md",
		"Projects/beta/img.png",
		"Projects/beta/notes.md",
	}, res.Files)
}

func TestWalkOmitsFailedSubtree(t *testing.T) {
	mv := sampleVault()
	mv.FailList("Projects/beta", testutil.ErrBroken)

	res, err := NewWalker(mv, quietLogger()).Walk(context.Background(), "")
	require.NoError(t, err)

	var want []string
	for _, f := range mv.Files() {
		if !strings.HasPrefix(f, "Projects/beta/") {
			want = append(want, f)
		}
	}
	assert.Equal(t, want, res.Files)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "Projects/beta", res.Failures[0].Path)
	assert.ErrorIs(t, res.Failures[0].Err, testutil.ErrBroken)
}

func TestWalkLogsFailureSummary(t *testing.T) {
	mv := sampleVault()
	mv.FailList("Daily", errors.New("timeout of 10000ms exceeded"))
	mv.FailList("Projects", testutil.ErrBroken)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	res, err := NewWalker(mv, logger).Walk(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "🧪 Lab/experiment one.md"}, res.Files)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "walk: failed to scan folders", rec["msg"])
	assert.EqualValues(t, 3, rec["total_folders"])
	assert.EqualValues(t, 2, rec["failed_count"])
	// Folders are classified in listing order, so Daily is the first failure.
	assert.Equal(t, "timeout of 10000ms exceeded", rec["error"])
}

func TestWalkRootFailureIsFatal(t *testing.T) {
	mv := sampleVault()
	mv.FailList("", testutil.ErrBroken)
	res, err := NewWalker(mv, quietLogger()).Walk(context.Background(), "")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, testutil.ErrBroken)
}

func TestWalkEmptyVault(t *testing.T) {
	res, err := NewWalker(testutil.NewMemVault(nil), quietLogger()).Walk(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Empty(t, res.Failures)
}

func TestWalkPathsRoundTrip(t *testing.T) {
	mv := sampleVault()
	res, err := NewWalker(mv, quietLogger()).Walk(context.Background(), "")
	require.NoError(t, err)
	for _, p := range res.Files {
		_, err := mv.Read(context.Background(), p)
		assert.NoError(t, err, "walked path %q is not readable as-is", p)
	}
}

// barrierLister blocks listings of root's children until all of them are in
// flight at once, which only happens if siblings are listed concurrently.
type barrierLister struct {
	vault.Lister
	wg sync.WaitGroup
}

func (b *barrierLister) List(ctx context.Context, dir string) (vault.Listing, error) {
	if dir != "" && !strings.Contains(dir, "/") {
		b.wg.Done()
		done := make(chan struct{})
		go func() { b.wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			return vault.Listing{}, errors.New("siblings were not listed concurrently")
		}
	}
	return b.Lister.List(ctx, dir)
}

func TestWalkFansOutSiblings(t *testing.T) {
	bl := &barrierLister{Lister: sampleVault()}
	bl.wg.Add(3) // Daily, Projects, 🧪 Lab
	res, err := NewWalker(bl, quietLogger()).Walk(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Len(t, res.Files, 7)
}

func TestWalkedPathsReadBack(t *testing.T) {
	fs, err := vault.NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	for _, p := range []string{"Ideas... draft.md", "v1..2/n.md", "plain.md"} {
		require.NoError(t, fs.Write(ctx, p, "body of "+p))
	}

	res, err := NewWalker(fs, quietLogger()).Walk(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Equal(t, []string{"Ideas... draft.md", "plain.md", "v1..2/n.md"}, res.Files)

	for _, p := range res.Files {
		got, err := fs.Read(ctx, p)
		require.NoError(t, err, "read %q", p)
		assert.Equal(t, "body of "+p, got)
	}
	_, err = fs.List(ctx, "v1..2")
	assert.NoError(t, err)
}
