package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"bank-support-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultClusterChannel = "agent_console"

// Hub fans agent-console frames out to every connected agent, across
// instances when Redis is available.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb      *redis.Client
	channel  string
	instance string

	logger logger.ILogger
}

type clusterFrame struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, channel string, log logger.ILogger) *Hub {
	if channel == "" {
		channel = DefaultClusterChannel
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client, 16),
		rdb:        rdb,
		channel:    channel,
		instance:   uuid.NewString(),
		logger:     log,
	}
}

// Run owns client registration until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.Send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("HUB", "Agent connected", map[string]interface{}{"agent": client.Subject, "agents": n})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("HUB", "Agent disconnected", map[string]interface{}{"agent": client.Subject, "agents": n})
		}
	}
}

// ClientCount returns the number of agents connected to this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers data to local agents and to the other instances.
func (h *Hub) Broadcast(data []byte) {
	h.deliverLocal(data)

	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(clusterFrame{Origin: h.instance, Message: data})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), h.channel, payload).Err(); err != nil {
		h.logger.Warn("HUB", "Failed to publish to cluster channel", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Hub) deliverLocal(data []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.Send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("HUB", "Agent send buffer full, dropping connection", map[string]interface{}{"agent": c.Subject})
		h.unregister <- c
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var frame clusterFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				h.logger.Warn("HUB", "Bad cluster frame", map[string]interface{}{"error": err.Error()})
				continue
			}
			if frame.Origin == h.instance {
				continue
			}
			h.deliverLocal(frame.Message)
		}
	}
}
