package kafka

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_DisabledIsNoop(t *testing.T) {
	p := NewProducer(nil, "casework.events", nil)
	assert.False(t, p.Enabled())
	p.ProduceEvent(context.Background(), EventTicketClosed, "t1", map[string]any{"ticket_id": "t1"})
	assert.NoError(t, p.Close())

	p = NewProducer([]string{"localhost:9092"}, "", nil)
	assert.False(t, p.Enabled())
}

func TestEncodeEvent(t *testing.T) {
	body, err := encodeEvent(EventApplicationStatusChanged, map[string]any{
		"application_id": "a1",
		"status":         "approved",
		"event":          "spoofed",
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "application.status_changed", got["event"])
	assert.Equal(t, "a1", got["application_id"])
	assert.Equal(t, "approved", got["status"])
}

// silentBroker accepts connections and never answers them.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestProduceEvent_DoesNotWaitForBroker(t *testing.T) {
	p := NewProducer([]string{silentBroker(t)}, "casework.events", nil).WithTimeout(200 * time.Millisecond)
	require.True(t, p.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	p.ProduceEvent(ctx, EventApplicationStatusChanged, "a1", map[string]any{"application_id": "a1"})
	cancel()
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- p.Close() }()
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(DefaultWriteTimeout + 5*time.Second):
		t.Fatal("Close did not return after the write timeout")
	}
}
