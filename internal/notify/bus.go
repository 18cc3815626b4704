// Package notify carries save-status notifications between components of
// one session, replacing the web client's same-tab custom DOM event with an
// explicit subscription bus.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// TypeSaveStatus signals that the session's save flag or submission state
// changed and dependent views should re-read it.
const TypeSaveStatus = "save-status-updated"

// Notification is one message on the bus.
type Notification struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	At   time.Time      `json:"at"`
}

// Bus fans notifications out to the subscribers of a session.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[chan Notification]bool
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[chan Notification]bool)}
}

// Subscribe registers a subscriber for one session. The returned cancel
// function must be called to release the subscription; the channel is closed
// by cancel.
func (b *Bus) Subscribe(sessionID string) (<-chan Notification, func()) {
	ch := make(chan Notification, 8)

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan Notification]bool)
	}
	b.subs[sessionID][ch] = true
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[sessionID]; ok && set[ch] {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, sessionID)
			}
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a notification to every subscriber of the session. Slow
// subscribers are skipped rather than blocking the publisher.
func (b *Bus) Publish(sessionID string, n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[sessionID] {
		select {
		case ch <- n:
		default:
			slog.Warn("dropping notification for slow subscriber",
				"session_id", sessionID,
				"type", n.Type,
			)
		}
	}
}

// Subscribers returns the number of active subscribers for a session.
func (b *Bus) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}
