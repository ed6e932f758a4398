// Package events provides a publish/subscribe bus for operational
// observability. Components (watch manager, companion session, API
// server) publish; subscribers (the WebSocket feed, tests) receive on
// buffered channels. The bus is nil-safe: Publish on a nil *Bus is a
// no-op, so components need no guard checks.
package events

import (
	"sync"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourceWatch identifies events from the watch manager.
	SourceWatch = "watch"
	// SourceCompanion identifies events from the companion session loop.
	SourceCompanion = "companion"
	// SourceAPI identifies events from the local API server.
	SourceAPI = "api"
)

// Kind constants describe the type of event within a source.
const (
	// KindTelemetryAdvance signals a telemetry snapshot was taken.
	// Data: user, heart_rate, steps, glucose.
	KindTelemetryAdvance = "telemetry_advance"
	// KindMealRecorded signals a meal was written to a slot.
	// Data: user, meal, foods.
	KindMealRecorded = "meal_recorded"
	// KindSleepTransition signals a sleep onset or wake event.
	// Data: user, waking, new_day.
	KindSleepTransition = "sleep_transition"
	// KindHealthEvent signals a detected health event.
	// Data: user, event_type, plus type-specific fields.
	KindHealthEvent = "health_event"

	// KindTick signals one session poll cycle completed.
	// Data: user, events.
	KindTick = "tick"
	// KindLLMCall signals the start of a text-generation request.
	// Data: request_id, model.
	KindLLMCall = "llm_call"
	// KindLLMResponse signals completion of a text-generation request.
	// Data: request_id, model, chars, elapsed_ms.
	KindLLMResponse = "llm_response"

	// KindClientConnect signals a WebSocket feed subscriber connected.
	// Data: remote.
	KindClientConnect = "client_connect"
	// KindClientDisconnect signals a WebSocket feed subscriber left.
	// Data: remote.
	KindClientDisconnect = "client_disconnect"
)

// Event is a single operational event published by a component.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind describes the type of event within the source.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast bus. Slow subscribers miss events
// rather than blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	// recvToSend maps the receive-only channel handed to a subscriber
	// back to the bidirectional channel stored in subs, so Unsubscribe
	// can accept the caller's <-chan view.
	recvToSend map[<-chan Event]chan Event
}

// New creates an event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to all subscribers. If a subscriber's channel
// is full the event is dropped for that subscriber. Safe on a nil
// receiver (no-op).
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full — drop rather than block.
		}
	}
}

// Subscribe returns a channel receiving published events. The caller
// must eventually Unsubscribe to avoid leaks. bufSize controls the
// channel buffer.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel. Calling
// it twice with the same channel is a no-op.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
