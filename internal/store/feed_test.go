package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	versions []int64
	notify   chan int64
}

func newRecorder() *recorder { return &recorder{notify: make(chan int64, 64)} }

func (r *recorder) fn(doc *Document) {
	r.mu.Lock()
	r.versions = append(r.versions, doc.Version)
	r.mu.Unlock()
	r.notify <- doc.Version
}

func (r *recorder) waitFor(t *testing.T, version int64) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-r.notify:
			if v >= version {
				return
			}
		case <-deadline:
			t.Fatalf("version %d not delivered", version)
		}
	}
}

func (r *recorder) seen() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.versions...)
}

func TestSubscribe_DeliversCurrentThenUpdates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	_, err := m.Create(ctx, "AgentChat", "c1", map[string]any{"Agent_chat": []any{}})
	require.NoError(t, err)

	rec := newRecorder()
	cancel, err := m.Subscribe(ctx, "AgentChat", "c1", rec.fn)
	require.NoError(t, err)
	defer cancel()
	rec.waitFor(t, 1)

	_, err = m.AppendToArray(ctx, "AgentChat", "c1", "Agent_chat", "hi")
	require.NoError(t, err)
	rec.waitFor(t, 2)

	seen := rec.seen()
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1], "versions are strictly increasing")
	}
}

func TestSubscribe_MissingDocumentWaitsForCreate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)

	rec := newRecorder()
	cancel, err := m.Subscribe(ctx, "AgentChat", "c9", rec.fn)
	require.NoError(t, err)
	defer cancel()

	_, err = m.Create(ctx, "AgentChat", "c9", nil)
	require.NoError(t, err)
	rec.waitFor(t, 1)
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	feed := NewLocalFeed()
	m := NewMemory(feed)
	_, err := m.Create(ctx, "AgentChat", "c1", nil)
	require.NoError(t, err)

	rec := newRecorder()
	cancel, err := m.Subscribe(ctx, "AgentChat", "c1", rec.fn)
	require.NoError(t, err)
	rec.waitFor(t, 1)

	cancel()
	cancel()
	assert.Equal(t, 0, feed.Subscribers("AgentChat", "c1"))

	for i := 0; i < 5; i++ {
		_, err = m.Update(ctx, "AgentChat", "c1", map[string]any{"n": i})
		require.NoError(t, err)
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []int64{1}, rec.seen())
}

func TestSubscribe_ContextCancel(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	feed := NewLocalFeed()
	m := NewMemory(feed)
	_, err := m.Create(context.Background(), "AgentChat", "c1", nil)
	require.NoError(t, err)

	_, err = m.Subscribe(ctx, "AgentChat", "c1", func(*Document) {})
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Subscribers("AgentChat", "c1"))

	cancelCtx()
	assert.Eventually(t, func() bool {
		return feed.Subscribers("AgentChat", "c1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscription_DropsStaleVersions(t *testing.T) {
	feed := NewLocalFeed()
	rec := newRecorder()
	sub := feed.Subscribe("X", "1", rec.fn)
	defer sub.Cancel()

	sub.Offer(&Document{Collection: "X", ID: "1", Version: 3})
	rec.waitFor(t, 3)
	sub.Offer(&Document{Collection: "X", ID: "1", Version: 2})
	sub.Offer(&Document{Collection: "X", ID: "1", Version: 3})
	sub.Offer(&Document{Collection: "X", ID: "1", Version: 4})
	rec.waitFor(t, 4)

	assert.Equal(t, []int64{3, 4}, rec.seen())
}

func TestSubscription_CancelWaitsForInFlightCallback(t *testing.T) {
	feed := NewLocalFeed()
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished bool
	sub := feed.Subscribe("X", "1", func(*Document) {
		close(entered)
		<-release
		finished = true
	})
	sub.Offer(&Document{Collection: "X", ID: "1", Version: 1})
	<-entered

	done := make(chan struct{})
	go func() {
		sub.Cancel()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("cancel returned while a callback was running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-done
	assert.True(t, finished)
}
