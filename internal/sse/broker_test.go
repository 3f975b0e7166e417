package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect reads n messages from ch, failing after a second.
func collect(t *testing.T, ch chan []byte, n int) []string {
	t.Helper()
	var out []string
	deadline := time.After(time.Second)
	for len(out) < n {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		case <-deadline:
			t.Fatalf("got %d messages, want %d", len(out), n)
		}
	}
	return out
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	require.Equal(t, 0, b.ClientCount())

	ch := b.Subscribe()
	require.Equal(t, 1, b.ClientCount())

	b.Unsubscribe(ch)
	require.Equal(t, 0, b.ClientCount())
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeFileCreated, Data: map[string]string{"path": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		assert.Contains(t, s, "event: file.created\n")
		assert.Contains(t, s, `"path":"a.md"`)
		assert.True(t, strings.HasSuffix(s, "\n\n"))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishFileEventThrottlesIndexEvent(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishFileEvent("created", "a.md")
	b.PublishFileEvent("moved", "b.md")
	b.PublishFileEvent("deleted", "c.md")

	var files, index int
	for _, msg := range collect(t, ch, 4) {
		if strings.Contains(msg, "event: "+TypeIndexInvalidated) {
			index++
		} else {
			files++
		}
	}
	assert.Equal(t, 3, files)
	assert.Equal(t, 1, index, "index.invalidated must be throttled")
}

func TestFileEventTypes(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for _, kind := range []string{"created", "updated", "deleted", "moved", "bogus"} {
		b.PublishFileEvent(kind, "x.md")
	}

	msgs := collect(t, ch, 5)
	assert.Contains(t, msgs[0], "event: file.created")
	assert.Contains(t, msgs[1], "event: index.invalidated")
	assert.Contains(t, msgs[2], "event: file.updated")
	assert.Contains(t, msgs[3], "event: file.deleted")
	assert.Contains(t, msgs[4], "event: file.moved")
}

// syncRecorder guards the body so the test can read it while ServeHTTP writes.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestServeHTTP(t *testing.T) {
	b := NewBroker(100*time.Millisecond, WithKeepAlive(0))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	b.PublishFileEvent("updated", "x.md")
	require.Eventually(t, func() bool {
		return strings.Contains(w.body(), "event: file.updated")
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServeHTTPKeepAlive(t *testing.T) {
	b := NewBroker(time.Second, WithKeepAlive(10*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(w.body(), ": keep-alive")
	}, time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Subscriber buffer holds 64; the rest must be dropped, not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]int{"i": i}})
	}
	require.Eventually(t, func() bool { return len(ch) == 64 }, time.Second, 10*time.Millisecond)
}

func TestCloseClosesSubscribers(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	require.Equal(t, 1, b.ClientCount())

	b.Close()

	select {
	case _, ok := <-ch:
		require.False(t, ok, "subscriber channel must be closed")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	assert.Equal(t, 0, b.ClientCount())

	// No-ops after close.
	b.Publish(Event{Type: TypeFileUpdated})
	b.PublishFileEvent("updated", "x.md")
	b.Close()
}
