package service

import (
	"context"
	"sync"

	"bank-support-be/internal/pkg/logger"
	"bank-support-be/pkg/events"
)

// IEventPublisher is satisfied by *nats.Publisher and by LocalEventBus.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type EventHandler func(ctx context.Context, event events.Event) error

// LocalEventBus delivers events in-process when no NATS server is
// configured. Each subscriber owns a queue drained by a single goroutine,
// so a handler sees events in publish order and publishers never block on
// email or websocket delivery.
type LocalEventBus struct {
	mu          sync.RWMutex
	subscribers []*localSubscriber
	wg          sync.WaitGroup
	logger      logger.ILogger
}

type queuedEvent struct {
	ctx   context.Context
	event events.Event
}

type localSubscriber struct {
	handler EventHandler

	mu      sync.Mutex
	pending []queuedEvent
	running bool
}

func NewLocalEventBus(log logger.ILogger) *LocalEventBus {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &LocalEventBus{logger: log}
}

func (b *LocalEventBus) Subscribe(h EventHandler) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, &localSubscriber{handler: h})
	b.mu.Unlock()
}

func (b *LocalEventBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.RLock()
	subs := append([]*localSubscriber(nil), b.subscribers...)
	b.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, sub := range subs {
		b.wg.Add(1)
		sub.mu.Lock()
		sub.pending = append(sub.pending, queuedEvent{ctx: detached, event: event})
		start := !sub.running
		sub.running = true
		sub.mu.Unlock()

		if start {
			go b.drain(sub)
		}
	}
	return nil
}

func (b *LocalEventBus) drain(sub *localSubscriber) {
	for {
		sub.mu.Lock()
		if len(sub.pending) == 0 {
			sub.running = false
			sub.mu.Unlock()
			return
		}
		next := sub.pending[0]
		sub.pending = sub.pending[1:]
		sub.mu.Unlock()

		if err := sub.handler(next.ctx, next.event); err != nil {
			b.logger.Warn("EVENTS", "Local handler failed", map[string]interface{}{
				"type": next.event.EventType(), "error": err.Error(),
			})
		}
		b.wg.Done()
	}
}

// Wait blocks until every queued event has been handled.
func (b *LocalEventBus) Wait() {
	b.wg.Wait()
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.Event) error { return nil }
