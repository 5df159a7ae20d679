package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a reachable redis, e.g. REDIS_TEST_ADDR=localhost:6379.
func TestRedisFeed_DeliversAcrossInstances(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	prefix := "casework-test-" + time.Now().Format("150405.000000")

	a, err := NewRedisFeed(ctx, client, prefix, nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRedisFeed(ctx, client, prefix, nil)
	require.NoError(t, err)
	defer b.Close()

	got := make(chan *Document, 4)
	sub := b.Subscribe("Tickets", "t1", func(d *Document) { got <- d })
	defer sub.Cancel()

	a.Publish(ctx, &Document{Collection: "Tickets", ID: "t1", Version: 3, Data: map[string]any{"status": "open"}})

	select {
	case d := <-got:
		assert.Equal(t, int64(3), d.Version)
		assert.Equal(t, "open", d.Data["status"])
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}
