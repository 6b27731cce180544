// Package broadcast fans values out to subscribers with bounded queues.
// Publishing never blocks: a subscriber whose queue is full is dropped.
package broadcast

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type Subscription[T any] struct {
	ID string
	// C is closed when the subscriber is dropped or unsubscribed.
	C <-chan T

	ch chan T
}

type Stats struct {
	Subscribers  int    `json:"subscribers"`
	Published    uint64 `json:"published"`
	Delivered    uint64 `json:"delivered"`
	Dropped      uint64 `json:"dropped"`
	HandoffLost  uint64 `json:"handoff_lost"`
	DefaultQueue int    `json:"default_queue"`
}

type Hub[T any] struct {
	log *log.Logger

	mu     sync.Mutex
	subs   map[string]*Subscription[T]
	queue  int
	closed bool

	in chan T

	published   atomic.Uint64
	delivered   atomic.Uint64
	dropped     atomic.Uint64
	handoffLost atomic.Uint64
}

// NewHub creates a hub whose hand-off channel holds handoff pending values
// and whose subscribers get queue slots unless they ask otherwise.
func NewHub[T any](handoff, queue int, logger *log.Logger) *Hub[T] {
	if handoff <= 0 {
		handoff = 1
	}
	if queue <= 0 {
		queue = 1
	}
	return &Hub[T]{
		log:   logger,
		subs:  map[string]*Subscription[T]{},
		queue: queue,
		in:    make(chan T, handoff),
	}
}

// Subscribe registers a subscriber with a queue of the given size (<=0: default).
// Once Run has returned the subscription comes back already closed.
func (h *Hub[T]) Subscribe(queue int) *Subscription[T] {
	if queue <= 0 {
		queue = h.queue
	}
	ch := make(chan T, queue)
	sub := &Subscription[T]{ID: uuid.NewString(), C: ch, ch: ch}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub.ID] = sub
	return sub
}

// SubscribeFunc invokes fn for every value on its own goroutine until ctx is
// done or the subscriber is dropped. A slow fn only ever loses its own queue.
func (h *Hub[T]) SubscribeFunc(ctx context.Context, queue int, fn func(T)) *Subscription[T] {
	sub := h.Subscribe(queue)
	go func() {
		defer h.Unsubscribe(sub.ID)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-sub.C:
				if !ok {
					return
				}
				fn(v)
			}
		}
	}()
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. It reports
// whether the id was still registered.
func (h *Hub[T]) Unsubscribe(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subs[id]
	if !ok {
		return false
	}
	delete(h.subs, id)
	close(sub.ch)
	return true
}

// Offer hands v to the fan-out goroutine without blocking. When the hand-off
// is full the oldest pending value is discarded.
func (h *Hub[T]) Offer(v T) {
	if !sendLatest(h.in, v) {
		h.handoffLost.Add(1)
	}
}

// Run delivers offered values until ctx is done, then closes every
// subscriber so readers of C stop waiting.
func (h *Hub[T]) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-h.in:
			h.Publish(v)
		}
	}
}

// Publish delivers v to every subscriber right away.
func (h *Hub[T]) Publish(v T) {
	h.published.Add(1)

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		select {
		case sub.ch <- v:
			h.delivered.Add(1)
		default:
			delete(h.subs, id)
			close(sub.ch)
			h.dropped.Add(1)
			if h.log != nil {
				h.log.Printf("broadcast: dropped slow subscriber %s", id)
			}
		}
	}
}

func (h *Hub[T]) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}

func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub[T]) Stats() Stats {
	return Stats{
		Subscribers:  h.Len(),
		Published:    h.published.Load(),
		Delivered:    h.delivered.Load(),
		Dropped:      h.dropped.Load(),
		HandoffLost:  h.handoffLost.Load(),
		DefaultQueue: h.queue,
	}
}

// sendLatest pushes b, evicting one queued value if the channel is full.
// It reports false when something was evicted or b itself could not be queued.
func sendLatest[T any](ch chan T, b T) bool {
	select {
	case ch <- b:
		return true
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
	return false
}
