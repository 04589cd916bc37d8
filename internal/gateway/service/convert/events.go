package convert

import (
	"strings"
	"sync"
	"time"
)

const finishedRunRetention = 30 * time.Second

// Event is one progress update from a conversion run. Terminal marks
// the last event a watcher will ever see for the session.
type Event struct {
	Phase    string `json:"phase"`
	Percent  int    `json:"percent"`
	Message  string `json:"message"`
	Terminal bool   `json:"terminal"`
}

// EventBroker manages per-session event channels.
type EventBroker struct {
	mu     sync.RWMutex
	events map[string]chan Event
}

func NewEventBroker() *EventBroker {
	return &EventBroker{events: make(map[string]chan Event)}
}

// Allocate creates and registers a new event channel for a session.
func (b *EventBroker) Allocate(sessionID string, size int) chan Event {
	if size <= 0 {
		size = 1
	}
	ch := make(chan Event, size)
	b.mu.Lock()
	b.events[strings.TrimSpace(sessionID)] = ch
	b.mu.Unlock()
	return ch
}

// Get returns the event channel for a session.
func (b *EventBroker) Get(sessionID string) (chan Event, bool) {
	b.mu.RLock()
	ch, ok := b.events[strings.TrimSpace(sessionID)]
	b.mu.RUnlock()
	return ch, ok
}

// Publish delivers an event without blocking the pipeline: when the
// buffer is full the oldest event is dropped to make room.
func (b *EventBroker) Publish(sessionID string, ev Event) {
	ch, ok := b.Get(sessionID)
	if !ok {
		return
	}
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}

// ScheduleCleanup removes a session's event channel after a retention
// period so a late watcher can still pick up the terminal event.
func (b *EventBroker) ScheduleCleanup(sessionID string) {
	time.AfterFunc(finishedRunRetention, func() {
		b.mu.Lock()
		delete(b.events, strings.TrimSpace(sessionID))
		b.mu.Unlock()
	})
}
