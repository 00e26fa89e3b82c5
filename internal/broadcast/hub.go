// Package broadcast is an in-process pub/sub hub with bounded
// per-subscriber queues.
package broadcast

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Message is the envelope published to every subscriber.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const defaultQueueSize = 100

// Hub fans a stream of Messages out to any number of subscribers. When a
// subscriber's queue is full, Hub drops that subscriber's *oldest* queued
// message and keeps the newest, so a slow consumer always sees current
// state rather than stalling the publisher.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]chan Message
	queueSize   int
}

// NewHub creates an empty Hub with the default per-subscriber queue bound.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]chan Message), queueSize: defaultQueueSize}
}

// Subscribe registers id and returns its receive channel. Re-subscribing
// an existing id replaces its channel.
func (h *Hub) Subscribe(id string) <-chan Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Message, h.queueSize)
	h.subscribers[id] = ch
	return ch
}

// Unsubscribe removes id, closing its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Publish enqueues payload onto every current subscriber. A full queue has
// its oldest element dropped to make room — the incoming message is never
// silently discarded. Within one subscriber, publish order is preserved;
// no ordering is promised across subscribers.
func (h *Hub) Publish(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- msg:
			default:
				log.Warn().Str("subscriberID", id).Str("type", msg.Type).Msg("subscriber queue contended, message dropped")
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close drops every subscriber, closing their channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
