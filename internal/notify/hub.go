// Package notify fans store changes out to in-process subscribers.
package notify

import (
	"context"
	"sync"

	"kaskelas/internal/store"
)

// Hub implements store.Notifier. Each subscriber has its own goroutine and a
// one-slot mailbox; events that arrive while one is pending are coalesced,
// since listeners reload everything on any change.
type Hub struct {
	mu     sync.Mutex
	subs   map[store.Collection]map[int]*subscriber
	nextID int
	closed bool
}

type subscriber struct {
	mailbox chan store.Change
	done    chan struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[store.Collection]map[int]*subscriber)}
}

// Subscribe registers fn for changes on collection. The returned function
// removes the subscription and waits for an in-flight call to finish.
func (h *Hub) Subscribe(collection store.Collection, fn func(store.Change)) (unsubscribe func()) {
	sub := &subscriber{
		mailbox: make(chan store.Change, 1),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return func() {}
	}
	id := h.nextID
	h.nextID++
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[int]*subscriber)
	}
	h.subs[collection][id] = sub
	h.mu.Unlock()

	go func() {
		defer close(sub.done)
		for c := range sub.mailbox {
			fn(c)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[collection][id]; ok {
				delete(h.subs[collection], id)
				close(sub.mailbox)
			}
			h.mu.Unlock()
			<-sub.done
		})
	}
}

// Notify delivers c to every subscriber of c.Collection without blocking.
func (h *Hub) Notify(_ context.Context, c store.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs[c.Collection] {
		select {
		case sub.mailbox <- c:
		default:
			// a reload is already queued
		}
	}
}

// Subscribers reports the number of live subscriptions on collection.
func (h *Hub) Subscribers(collection store.Collection) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}

// Close drops every subscription. Later Subscribe calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var pending []*subscriber
	for _, subs := range h.subs {
		for id, sub := range subs {
			close(sub.mailbox)
			delete(subs, id)
			pending = append(pending, sub)
		}
	}
	h.mu.Unlock()
	for _, sub := range pending {
		<-sub.done
	}
}

// Multi forwards a change to several notifiers in order.
type Multi []store.Notifier

func (m Multi) Notify(ctx context.Context, c store.Change) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, c)
		}
	}
}
