// Package stream holds the per-session fan-out between webhook ingestion and
// the widget's status stream.
package stream

import (
	"encoding/json"
	"sync"
)

const subscriptionBuffer = 32

// Subscription is one widget's live view of a session's events.
type Subscription struct {
	ch   chan json.RawMessage
	once sync.Once
}

// Events returns the channel status frames arrive on. The channel is closed
// when the subscription is replaced or removed.
func (s *Subscription) Events() <-chan json.RawMessage {
	return s.ch
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub routes webhook deliveries to the subscriber of the matching session.
// Each session has at most one subscriber; a new subscription replaces the
// previous one, mirroring the widget reconnecting its status stream.
//
// Sends and closes both happen under the hub mutex: a publish can never hit a
// channel that a concurrent Subscribe or Unsubscribe is closing.
type Hub struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*Subscription)}
}

// Subscribe registers the caller as the session's subscriber, displacing any
// previous one.
func (h *Hub) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{ch: make(chan json.RawMessage, subscriptionBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if prev := h.subs[sessionID]; prev != nil {
		prev.close()
	}
	h.subs[sessionID] = sub
	return sub
}

// Unsubscribe removes the subscription if it is still the session's current
// one. A subscription that was already replaced is only closed again, which
// is a no-op.
func (h *Hub) Unsubscribe(sessionID string, sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == sub {
		delete(h.subs, sessionID)
	}
	sub.close()
}

// Publish delivers a frame to the session's subscriber. It reports whether
// the frame was buffered; frames for unwatched sessions are dropped, and a
// subscriber that has stopped draining loses the frame rather than blocking
// webhook ingestion. The send is non-blocking, so holding the mutex through
// it is safe.
func (h *Hub) Publish(sessionID string, frame json.RawMessage) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[sessionID]
	if !ok {
		return false
	}
	select {
	case sub.ch <- frame:
		return true
	default:
		return false
	}
}
