package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ClientCount() == n }, time.Second, 5*time.Millisecond)
}

func TestHubBroadcastsToRegisteredClients(t *testing.T) {
	h := runHub(t)
	a := &Client{Hub: h, Subject: "a", Send: make(chan []byte, 4)}
	b := &Client{Hub: h, Subject: "b", Send: make(chan []byte, 4)}
	h.register <- a
	h.register <- b
	waitForClients(t, h, 2)

	h.Broadcast([]byte(`{"type":"event"}`))

	assert.Equal(t, `{"type":"event"}`, string(<-a.Send))
	assert.Equal(t, `{"type":"event"}`, string(<-b.Send))
}

func TestHubDropsSlowClients(t *testing.T) {
	h := runHub(t)
	slow := &Client{Hub: h, Subject: "slow", Send: make(chan []byte, 1)}
	h.register <- slow
	waitForClients(t, h, 1)

	h.Broadcast([]byte("1"))
	h.Broadcast([]byte("2"))
	waitForClients(t, h, 0)

	assert.Equal(t, "1", string(<-slow.Send))
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	h := runHub(t)
	c := &Client{Hub: h, Subject: "c", Send: make(chan []byte, 1)}
	h.register <- c
	waitForClients(t, h, 1)

	h.unregister <- c
	h.unregister <- c
	waitForClients(t, h, 0)
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	h := NewHub(nil, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	c := &Client{Hub: h, Subject: "c", Send: make(chan []byte, 1)}
	h.register <- c
	waitForClients(t, h, 1)

	cancel()
	<-done
	_, open := <-c.Send
	assert.False(t, open)
	assert.Zero(t, h.ClientCount())
}
