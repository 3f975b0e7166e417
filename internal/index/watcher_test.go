package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate() { c.n.Add(1) }

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcherInvalidatesOnChanges(t *testing.T) {
	vaultDir := t.TempDir()
	inv := &countingInvalidator{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	var mu sync.Mutex
	var events []string

	go func() {
		defer close(done)
		_ = Watch(ctx, vaultDir, inv, quietLogger(), func(kind, path string) {
			mu.Lock()
			events = append(events, kind+":"+path)
			mu.Unlock()
		})
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.md" {
				return true
			}
		}
		return false
	}, "expected created:new.md event")

	before := inv.n.Load()
	if err := os.Remove(filepath.Join(vaultDir, "new.md")); err != nil {
		t.Fatal(err)
	}
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return inv.n.Load() > before
	}, "expected invalidation after delete")
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	vaultDir := t.TempDir()
	inv := &countingInvalidator{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var got atomic.Bool
	go func() {
		defer close(done)
		_ = Watch(ctx, vaultDir, inv, quietLogger(), func(kind, path string) {
			if path == "sub/deep.md" {
				got.Store(true)
			}
		})
	}()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.Mkdir(filepath.Join(vaultDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(vaultDir, "sub", "deep.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 2*time.Second, 20*time.Millisecond, got.Load, "expected event for file in new dir")
}
