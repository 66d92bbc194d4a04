// Package bus provides an internal event bus for observers of the avatar.
// Handlers only observe; animation state is never mutated from a handler.
package bus

import (
	"sync"
	"sync/atomic"
)

// orderedBuffer bounds each ordered subscriber's backlog.
const orderedBuffer = 256

// EventType identifies different event types
type EventType string

const (
	// Avatar events
	EventTypeReady          EventType = "avatar.ready"
	EventTypeEmotionChanged EventType = "avatar.emotion_changed"
	EventTypeGestureChanged EventType = "avatar.gesture_changed"

	// Talk state events
	EventTypeTalkingStarted EventType = "speech.talking_started"
	EventTypeTalkingStopped EventType = "speech.talking_stopped"

	// Utterance events
	EventTypeUtteranceStarted EventType = "speech.utterance_started"
	EventTypeUtteranceEnded   EventType = "speech.utterance_ended"
	EventTypeUtteranceFailed  EventType = "speech.utterance_failed"
	EventTypeWordBoundary     EventType = "speech.word_boundary"
	EventTypeSpeechToggled    EventType = "speech.enabled_changed"
)

// Event represents a bus event. Seq is stamped on publish and increases
// in publish order.
type Event struct {
	Seq  uint64         `json:"seq"`
	Type EventType      `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Handler is a function that handles events
type Handler func(Event)

// EventBus is a simple pub/sub event bus
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler

	// pmu orders stamping against delivery to ordered subscribers
	pmu     sync.Mutex
	seq     uint64
	ordered []chan Event
	dropped atomic.Uint64
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll adds a handler that receives every event.
func (b *EventBus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.all = append(b.all, handler)
}

// SubscribeOrdered adds a handler that receives every event on a single
// goroutine, in publish order. A handler that falls too far behind loses
// events rather than blocking publishers.
func (b *EventBus) SubscribeOrdered(handler Handler) {
	ch := make(chan Event, orderedBuffer)
	b.pmu.Lock()
	b.ordered = append(b.ordered, ch)
	b.pmu.Unlock()

	go func() {
		for e := range ch {
			handler(e)
		}
	}()
}

// Dropped counts events ordered subscribers lost to a full backlog.
func (b *EventBus) Dropped() uint64 {
	return b.dropped.Load()
}

// stamp assigns the next sequence number and hands the event to ordered
// subscribers without blocking.
func (b *EventBus) stamp(event Event) Event {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	b.seq++
	event.Seq = b.seq
	for _, ch := range b.ordered {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
	return event
}

func (b *EventBus) snapshot(t EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Handler, 0, len(b.handlers[t])+len(b.all))
	out = append(out, b.handlers[t]...)
	return append(out, b.all...)
}

// Publish sends an event to all subscribed handlers without blocking the
// caller. A nil bus drops the event.
func (b *EventBus) Publish(event Event) {
	if b == nil {
		return
	}
	event = b.stamp(event)
	for _, handler := range b.snapshot(event.Type) {
		go handler(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete
func (b *EventBus) PublishSync(event Event) {
	if b == nil {
		return
	}
	event = b.stamp(event)
	var wg sync.WaitGroup
	for _, handler := range b.snapshot(event.Type) {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(handler)
	}
	wg.Wait()
}

// Clear removes all handlers and stops ordered subscribers after they
// drain their backlog.
func (b *EventBus) Clear() {
	b.mu.Lock()
	b.handlers = make(map[EventType][]Handler)
	b.all = nil
	b.mu.Unlock()

	b.pmu.Lock()
	for _, ch := range b.ordered {
		close(ch)
	}
	b.ordered = nil
	b.pmu.Unlock()
}
