/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventItemStart     EventType = "player.item_start"
	EventItemEnd       EventType = "player.item_end"
	EventQueueResolved EventType = "queue.resolved"
	EventQueueFallback EventType = "queue.fallback"
	EventPreloadResult EventType = "preload.result"
	EventPlayerError   EventType = "player.error"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads. The channel is closed on Unsubscribe.
type Subscriber chan Payload

// subscription gates sends so a publish racing an unsubscribe can never hit
// the closed channel. Publishers run on the playback loop; a panic there
// would take down the whole player.
type subscription struct {
	ch     Subscriber
	mu     sync.Mutex
	closed bool
}

func (s *subscription) send(payload Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- payload:
	default:
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]*subscription
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]*subscription)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	sub := &subscription{ch: make(Subscriber, 8)}
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], sub)
	b.mu.Unlock()
	return sub.ch
}

// Publish sends payload to subscribers. Slow subscribers drop events rather
// than stalling the playback loop.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]*subscription(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		sub.send(payload)
	}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(eventType EventType, ch Subscriber) {
	var removed *subscription
	b.mu.Lock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate.ch == ch {
			removed = candidate
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	b.mu.Unlock()

	if removed != nil {
		removed.close()
	}
}
