// Package speech drives the avatar's mouth from text. It runs in one of
// two modes: self-timed, where a viseme timeline is played over an
// estimated duration, and synthesizer-driven, where word boundaries
// reported by a tts.Synthesizer each start a short per-word track.
//
// Synthesizer events never touch animation state directly. They are
// queued and drained at the start of Tick, so the render loop stays the
// only writer.
package speech

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/tutoravatar/internal/bus"
	"github.com/normanking/tutoravatar/internal/metrics"
	"github.com/normanking/tutoravatar/internal/tts"
	"github.com/normanking/tutoravatar/internal/viseme"
)

// Animator is the part of the avatar controller the coordinator drives.
type Animator interface {
	IsReady() bool
	StartTalking()
	StopTalking()
	SetMouthOpen(amount float64)
}

// Config tunes duration estimates and playback rate.
type Config struct {
	Enabled        bool // spoken output through the synthesizer
	Voice          string
	WordsPerMinute int
	CharsPerWord   float64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	TextFallback   bool // animate from text when nothing can speak
}

// DefaultConfig returns the stock speech settings.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		WordsPerMinute: 150,
		CharsPerWord:   5,
		MinDuration:    1500 * time.Millisecond,
		MaxDuration:    15 * time.Second,
		TextFallback:   true,
	}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithBus publishes utterance events on b.
func WithBus(b *bus.EventBus) Option {
	return func(c *Coordinator) { c.bus = b }
}

// WithMetrics records utterance counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithPersist registers the callback that stores the spoken-output toggle.
func WithPersist(fn func(enabled bool) error) Option {
	return func(c *Coordinator) { c.persist = fn }
}

type session struct {
	id        string // empty for self-timed sessions
	text      string
	selfTimed bool
	cursor    *viseme.Cursor
	duration  time.Duration
	started   time.Time
	clock     bool
}

type wordTrack struct {
	apertures []float64
	start     time.Time
	slot      time.Duration
}

// Coordinator is the single entry point for making the avatar speak.
type Coordinator struct {
	cfg      Config
	animator Animator
	synth    tts.Synthesizer
	logger   zerolog.Logger
	bus      *bus.EventBus
	metrics  *metrics.Metrics
	persist  func(bool) error
	writer   *toggleWriter

	qmu   sync.Mutex
	queue []tts.Event

	mu      sync.Mutex
	enabled bool
	current *session
	word    *wordTrack
	cancel  context.CancelFunc
}

// New creates a coordinator. A nil synth behaves as if no speech backend
// exists.
func New(cfg Config, animator Animator, synth tts.Synthesizer, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = def.WordsPerMinute
	}
	if cfg.CharsPerWord <= 0 {
		cfg.CharsPerWord = def.CharsPerWord
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = def.MinDuration
	}
	if cfg.MaxDuration < cfg.MinDuration {
		cfg.MaxDuration = def.MaxDuration
	}
	if synth == nil {
		synth = tts.Null{}
	}
	c := &Coordinator{
		cfg:      cfg,
		animator: animator,
		synth:    synth,
		logger:   zerolog.Nop(),
		enabled:  cfg.Enabled,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.persist != nil {
		c.writer = newToggleWriter(c.persist, c.logger)
	}
	return c
}

// EstimateDuration converts a word count at wpm into a clamped duration.
// A non-positive wpm uses the configured rate.
func (c *Coordinator) EstimateDuration(text string, wpm int) time.Duration {
	if wpm <= 0 {
		wpm = c.cfg.WordsPerMinute
	}
	words := len(strings.Fields(text))
	d := time.Duration(float64(words) / float64(wpm) * float64(time.Minute))
	if d < c.cfg.MinDuration {
		return c.cfg.MinDuration
	}
	if d > c.cfg.MaxDuration {
		return c.cfg.MaxDuration
	}
	return d
}

// MaxDuration is the longest duration a session may be given.
func (c *Coordinator) MaxDuration() time.Duration {
	return c.cfg.MaxDuration
}

// SlotDuration is how long one character of a word is held during
// synthesizer-driven playback.
func (c *Coordinator) SlotDuration(wpm int) time.Duration {
	if wpm <= 0 {
		wpm = c.cfg.WordsPerMinute
	}
	ms := 60000 / (float64(wpm) * c.cfg.CharsPerWord)
	return time.Duration(ms * float64(time.Millisecond))
}

func (c *Coordinator) ready() bool {
	return c.animator != nil && c.animator.IsReady()
}

// Available reports whether a synthesizer can speak.
func (c *Coordinator) Available() bool {
	return c.synth.Available()
}

// Enabled reports whether spoken output is switched on.
func (c *Coordinator) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Speaking reports whether a session is in progress.
func (c *Coordinator) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// SetEnabled switches spoken output and queues the choice for a background
// write, so it never waits on storage. Turning it off interrupts any
// utterance in flight.
func (c *Coordinator) SetEnabled(enabled bool) {
	c.mu.Lock()
	changed := c.enabled != enabled
	c.enabled = enabled
	if !enabled && c.current != nil && !c.current.selfTimed {
		c.stopLocked("stopped")
	}
	c.mu.Unlock()

	if c.writer != nil {
		c.writer.put(enabled)
	}
	if changed {
		c.logger.Info().Bool("enabled", enabled).Msg("Spoken output toggled")
		c.bus.Publish(bus.Event{Type: bus.EventTypeSpeechToggled, Data: map[string]any{"enabled": enabled}})
	}
}

// Start plays a self-timed session for text. It is a no-op when the
// avatar is not ready, when text is blank, or when nothing can speak and
// text fallback is off.
func (c *Coordinator) Start(text string, wpm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked(text, wpm)
}

func (c *Coordinator) startLocked(text string, wpm int) {
	if !c.ready() {
		c.logger.Debug().Msg("Avatar not ready; ignoring start")
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	if !c.synth.Available() && !c.cfg.TextFallback {
		return
	}

	c.cancelLocked()
	d := c.EstimateDuration(text, wpm)
	c.current = &session{
		text:      text,
		selfTimed: true,
		cursor:    viseme.NewCursor(viseme.TextToTimeline(text, float64(d.Milliseconds()))),
		duration:  d,
	}
	c.animator.StartTalking()
	c.metrics.UtteranceStarted("self_timed")
	c.logger.Debug().Dur("duration", d).Int("chars", len(text)).Msg("Self-timed speech started")
	c.bus.Publish(bus.Event{Type: bus.EventTypeUtteranceStarted, Data: map[string]any{
		"mode":        "self_timed",
		"duration_ms": d.Milliseconds(),
	}})
}

// Speak says text through the synthesizer and returns the utterance ID.
// When spoken output is off or no synthesizer is available it falls back
// to a self-timed session and returns "".
func (c *Coordinator) Speak(ctx context.Context, text string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return ""
	}
	if !c.enabled || !c.synth.Available() {
		if c.cfg.TextFallback {
			c.startLocked(text, 0)
		}
		return ""
	}

	c.cancelLocked()
	id := uuid.NewString()
	sctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.current = &session{id: id, text: text}

	u := tts.Utterance{ID: id, Text: text, Voice: c.cfg.Voice, WPM: c.cfg.WordsPerMinute}
	if err := c.synth.Speak(sctx, u, c.Post); err != nil {
		c.logger.Warn().Err(err).Str("provider", c.synth.Name()).Msg("Synthesizer refused utterance")
		cancel()
		c.cancel = nil
		c.current = nil
		c.metrics.UtteranceEnded("failed")
		if c.cfg.TextFallback {
			c.startLocked(text, 0)
		}
		return ""
	}

	c.metrics.UtteranceStarted("synth")
	c.bus.Publish(bus.Event{Type: bus.EventTypeUtteranceStarted, Data: map[string]any{
		"mode": "synth",
		"id":   id,
	}})
	return id
}

// Post queues a synthesizer event for the next Tick. Safe from any
// goroutine.
func (c *Coordinator) Post(e tts.Event) {
	c.qmu.Lock()
	c.queue = append(c.queue, e)
	c.qmu.Unlock()
}

// Stop ends whatever is playing. Safe to call at any time. The mouth is
// closed before Stop returns.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked("stopped")
}

// Close stops speech and waits for the last toggle write to land. It is
// safe to call more than once.
func (c *Coordinator) Close() {
	c.Stop()
	if c.writer != nil {
		c.writer.close()
	}
}

func (c *Coordinator) stopLocked(outcome string) {
	had := c.current != nil
	c.cancelLocked()
	if c.ready() {
		c.animator.StopTalking()
	}
	if had {
		c.metrics.UtteranceEnded(outcome)
	}
}

// cancelLocked drops the session and word track and interrupts the
// synthesizer without touching the talk state.
func (c *Coordinator) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.current = nil
	c.word = nil
}

// Tick drains queued events in arrival order, then writes this frame's
// mouth aperture.
func (c *Coordinator) Tick(now time.Time) {
	c.qmu.Lock()
	events := c.queue
	c.queue = nil
	c.qmu.Unlock()
	c.metrics.SetQueueDepth(len(events))

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range events {
		c.handle(e, now)
	}

	if s := c.current; s != nil && s.selfTimed {
		c.playSession(s, now)
	}
	if c.word != nil {
		c.playWord(now)
	}
}

func (c *Coordinator) handle(e tts.Event, now time.Time) {
	s := c.current
	if s == nil || s.selfTimed || e.UtteranceID != s.id {
		c.metrics.StaleEvent()
		c.logger.Debug().Str("utterance", e.UtteranceID).Stringer("kind", e.Kind).Msg("Dropping stale speech event")
		return
	}
	c.metrics.SpeechEvent(e.Kind.String())

	switch e.Kind {
	case tts.EventStarted:
		if c.ready() {
			c.animator.StartTalking()
		}

	case tts.EventWordBoundary:
		word := tts.Word{Index: e.CharIndex, Length: e.CharLength}.Slice(s.text)
		c.word = nil
		if apertures := viseme.WordApertures(word); len(apertures) > 0 {
			c.word = &wordTrack{apertures: apertures, start: now, slot: c.SlotDuration(0)}
		}
		c.bus.Publish(bus.Event{Type: bus.EventTypeWordBoundary, Data: map[string]any{
			"id":   s.id,
			"word": word,
		}})

	case tts.EventEnded:
		c.finishLocked(s, "completed")
		c.bus.Publish(bus.Event{Type: bus.EventTypeUtteranceEnded, Data: map[string]any{"id": s.id}})

	case tts.EventFailed:
		c.logger.Warn().Err(e.Err).Str("utterance", s.id).Msg("Utterance failed")
		c.finishLocked(s, "failed")
		data := map[string]any{"id": s.id}
		if e.Err != nil {
			data["error"] = e.Err.Error()
		}
		c.bus.Publish(bus.Event{Type: bus.EventTypeUtteranceFailed, Data: data})
	}
}

// finishLocked ends a session the normal way. Failures take this path too
// so the avatar never stays mid-speech.
func (c *Coordinator) finishLocked(s *session, outcome string) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.current = nil
	c.word = nil
	if c.ready() {
		c.animator.StopTalking()
	}
	c.metrics.UtteranceEnded(outcome)
	c.logger.Debug().Str("utterance", s.id).Str("outcome", outcome).Msg("Speech finished")
}

func (c *Coordinator) playSession(s *session, now time.Time) {
	if !s.clock {
		s.started = now
		s.clock = true
	}
	elapsed := now.Sub(s.started)
	if elapsed >= s.duration {
		c.finishLocked(s, "completed")
		c.bus.Publish(bus.Event{Type: bus.EventTypeUtteranceEnded, Data: map[string]any{"mode": "self_timed"}})
		return
	}
	if !c.ready() {
		return
	}
	ms := float64(elapsed) / float64(time.Millisecond)
	envelope := math.Sin(math.Pi * float64(elapsed) / float64(s.duration))
	c.animator.SetMouthOpen(s.cursor.Sample(ms) * envelope)
}

func (c *Coordinator) playWord(now time.Time) {
	w := c.word
	idx := 0
	if w.slot > 0 {
		idx = int(now.Sub(w.start) / w.slot)
	}
	if !c.ready() {
		return
	}
	if idx >= len(w.apertures) {
		c.animator.SetMouthOpen(0)
		c.word = nil
		return
	}
	c.animator.SetMouthOpen(w.apertures[idx])
}
