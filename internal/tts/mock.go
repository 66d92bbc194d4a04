package tts

import (
	"context"
	"sync"
)

// Null never speaks. It is used when no backend is available so callers
// fall back to text-timed animation.
type Null struct{}

func (Null) Name() string    { return "none" }
func (Null) Available() bool { return false }

func (Null) Speak(context.Context, Utterance, Sink) error {
	return ErrProviderUnavailable
}

// Mock implements Synthesizer for testing. Speak records the utterance and
// keeps its sink so a test can drive playback events by hand.
type Mock struct {
	// SpeakFunc, when set, replaces the default behaviour of Speak.
	SpeakFunc func(ctx context.Context, u Utterance, sink Sink) error
	// Unavailable makes Available report false.
	Unavailable bool

	mu    sync.Mutex
	calls []Utterance
	sinks map[string]Sink
	last  string
}

// NewMock creates an available mock synthesizer.
func NewMock() *Mock {
	return &Mock{sinks: map[string]Sink{}}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Available() bool { return !m.Unavailable }

// Speak records the call. Unless SpeakFunc overrides it, no event is sent
// until the test calls Start, Boundary, End or Fail.
func (m *Mock) Speak(ctx context.Context, u Utterance, sink Sink) error {
	m.mu.Lock()
	m.calls = append(m.calls, u)
	if m.sinks == nil {
		m.sinks = map[string]Sink{}
	}
	m.sinks[u.ID] = sink
	m.last = u.ID
	fn := m.SpeakFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, u, sink)
	}
	if m.Unavailable {
		return ErrProviderUnavailable
	}
	return nil
}

// Calls returns all recorded utterances.
func (m *Mock) Calls() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Utterance, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastID returns the most recent utterance ID, or "".
func (m *Mock) LastID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Emit sends e to the sink of the utterance it names.
func (m *Mock) Emit(e Event) {
	m.mu.Lock()
	sink := m.sinks[e.UtteranceID]
	m.mu.Unlock()
	if sink != nil {
		sink(e)
	}
}

// Start sends EventStarted for id.
func (m *Mock) Start(id string) {
	m.Emit(Event{Kind: EventStarted, UtteranceID: id})
}

// Boundary sends a word boundary for id.
func (m *Mock) Boundary(id string, index, length int) {
	m.Emit(Event{Kind: EventWordBoundary, UtteranceID: id, CharIndex: index, CharLength: length})
}

// End sends EventEnded for id.
func (m *Mock) End(id string) {
	m.Emit(Event{Kind: EventEnded, UtteranceID: id})
}

// Fail sends EventFailed for id.
func (m *Mock) Fail(id string, err error) {
	m.Emit(Event{Kind: EventFailed, UtteranceID: id, Err: err})
}

var (
	_ Synthesizer = Null{}
	_ Synthesizer = (*Mock)(nil)
)
