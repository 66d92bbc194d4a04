package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/tutoravatar/internal/tts"
)

type fakeAnimator struct {
	ready   bool
	talking bool
	mouth   float64
	writes  int
}

func (f *fakeAnimator) IsReady() bool { return f.ready }
func (f *fakeAnimator) StartTalking() { f.talking = true }
func (f *fakeAnimator) StopTalking() {
	f.talking = false
	f.mouth = 0
}
func (f *fakeAnimator) SetMouthOpen(a float64) {
	f.mouth = a
	f.writes++
}

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newCoordinator(cfg Config, synth tts.Synthesizer) (*Coordinator, *fakeAnimator) {
	a := &fakeAnimator{ready: true}
	return New(cfg, a, synth), a
}

func TestStopWithoutSpeechIsSafe(t *testing.T) {
	c, a := newCoordinator(DefaultConfig(), nil)
	assert.NotPanics(t, c.Stop)
	assert.False(t, a.talking)
	assert.Zero(t, a.mouth)

	var nilAnimator *Coordinator = New(DefaultConfig(), nil, nil)
	assert.NotPanics(t, nilAnimator.Stop)
}

func TestStartThenStopLeavesNoResidue(t *testing.T) {
	c, a := newCoordinator(DefaultConfig(), nil)

	c.Start("Hello world", 180)
	require.True(t, a.talking)
	c.Tick(t0)
	c.Tick(t0.Add(400 * time.Millisecond))
	require.Greater(t, a.mouth, 0.0)

	c.Stop()
	assert.False(t, a.talking)
	assert.Zero(t, a.mouth)

	c.Tick(t0.Add(500 * time.Millisecond))
	assert.Zero(t, a.mouth, "no fade-out after stop")
	assert.False(t, c.Speaking())
}

func TestStartIsNoopWhenNotReady(t *testing.T) {
	c, a := newCoordinator(DefaultConfig(), nil)
	a.ready = false

	c.Start("Hello world", 150)
	c.Tick(t0)
	assert.False(t, c.Speaking())
	assert.False(t, a.talking)
	assert.Zero(t, a.writes)
}

func TestStartWithoutSpeechOrFallbackIsSilent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TextFallback = false
	c, a := newCoordinator(cfg, tts.Null{})

	c.Start("Hello world", 150)
	assert.False(t, c.Speaking())
	assert.False(t, a.talking)
	assert.Empty(t, c.Speak(context.Background(), "Hello world"))
	assert.False(t, c.Speaking())
}

func TestEstimateDuration(t *testing.T) {
	c, _ := newCoordinator(DefaultConfig(), nil)
	words := func(n int) string {
		s := ""
		for i := 0; i < n; i++ {
			s += "word "
		}
		return s
	}

	tests := []struct {
		name string
		text string
		wpm  int
		want time.Duration
	}{
		{"short clamps up", "Hello world", 180, 1500 * time.Millisecond},
		{"empty clamps up", "", 150, 1500 * time.Millisecond},
		{"in range", words(20), 150, 8 * time.Second},
		{"default rate", words(20), 0, 8 * time.Second},
		{"long clamps down", words(100), 60, 15 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.EstimateDuration(tt.text, tt.wpm))
		})
	}
	assert.Equal(t, 15*time.Second, c.MaxDuration())
}

func TestSelfTimedEnvelopeAndEnd(t *testing.T) {
	c, a := newCoordinator(DefaultConfig(), nil)
	c.Start("Hello world", 180) // 1.5 s after clamping

	c.Tick(t0)
	assert.Zero(t, a.mouth, "envelope starts closed")

	var peak float64
	for ms := 50; ms < 1500; ms += 50 {
		c.Tick(t0.Add(time.Duration(ms) * time.Millisecond))
		assert.GreaterOrEqual(t, a.mouth, 0.0)
		assert.LessOrEqual(t, a.mouth, 1.0)
		if a.mouth > peak {
			peak = a.mouth
		}
	}
	assert.Greater(t, peak, 0.3)
	assert.True(t, a.talking)

	c.Tick(t0.Add(1500 * time.Millisecond))
	assert.False(t, a.talking)
	assert.Zero(t, a.mouth)
	assert.False(t, c.Speaking())
}

func TestClockStartsOnFirstTick(t *testing.T) {
	c, a := newCoordinator(DefaultConfig(), nil)
	c.Start("Hello world", 180)

	// a long gap before the first tick does not eat into the session
	c.Tick(t0.Add(time.Hour))
	assert.True(t, a.talking)
	c.Tick(t0.Add(time.Hour + 750*time.Millisecond))
	assert.True(t, a.talking)
}

func TestRestartReplacesSession(t *testing.T) {
	c, a := newCoordinator(DefaultConfig(), nil)
	c.Start("first", 150)
	c.Tick(t0)
	c.Start("second utterance", 150)
	c.Tick(t0.Add(1400 * time.Millisecond))
	assert.True(t, a.talking, "new session has its own clock")
}

func speakWithMock(t *testing.T, text string) (*Coordinator, *fakeAnimator, *tts.Mock, string) {
	t.Helper()
	m := tts.NewMock()
	c, a := newCoordinator(DefaultConfig(), m)
	id := c.Speak(context.Background(), text)
	require.NotEmpty(t, id)
	require.Equal(t, id, m.LastID())
	return c, a, m, id
}

func TestSynthLifecycle(t *testing.T) {
	c, a, m, id := speakWithMock(t, "Hello world")
	assert.False(t, a.talking, "talking waits for the started event")

	m.Start(id)
	assert.False(t, a.talking, "events wait for the tick")
	c.Tick(t0)
	assert.True(t, a.talking)

	m.Boundary(id, 0, 5)
	c.Tick(t0.Add(10 * time.Millisecond))
	assert.InDelta(t, 0.5, a.mouth, 1e-9, "h")

	m.End(id)
	c.Tick(t0.Add(20 * time.Millisecond))
	assert.False(t, a.talking)
	assert.Zero(t, a.mouth)
	assert.False(t, c.Speaking())
}

func TestBurstyBoundariesKeepOnlyLatestWord(t *testing.T) {
	c, a, m, id := speakWithMock(t, "hello big world")
	m.Start(id)
	m.Boundary(id, 0, 5)
	m.Boundary(id, 6, 3)
	c.Tick(t0)

	slot := c.SlotDuration(0)
	assert.Equal(t, 80*time.Millisecond, slot)

	assert.InDelta(t, 0.05, a.mouth, 1e-9, "b of big, not h of hello")
	c.Tick(t0.Add(slot))
	assert.InDelta(t, 0.6, a.mouth, 1e-9)
	c.Tick(t0.Add(2 * slot))
	assert.InDelta(t, 0.4, a.mouth, 1e-9)

	c.Tick(t0.Add(3 * slot))
	assert.Zero(t, a.mouth, "word track ran out")
	assert.True(t, a.talking, "still inside the utterance")
}

func TestFailureBehavesLikeCompletion(t *testing.T) {
	c, a, m, id := speakWithMock(t, "Hello world")
	m.Start(id)
	m.Boundary(id, 0, 5)
	c.Tick(t0)
	require.True(t, a.talking)
	require.Greater(t, a.mouth, 0.0)

	m.Fail(id, errors.New("audio device lost"))
	c.Tick(t0.Add(time.Millisecond))
	assert.False(t, a.talking)
	assert.Zero(t, a.mouth)
}

func TestStaleEventsAreDropped(t *testing.T) {
	m := tts.NewMock()
	c, a := newCoordinator(DefaultConfig(), m)

	first := c.Speak(context.Background(), "first")
	second := c.Speak(context.Background(), "second")
	require.NotEqual(t, first, second)

	m.Start(second)
	m.End(first)
	c.Tick(t0)
	assert.True(t, a.talking, "ending the old utterance does not stop the new one")
	assert.True(t, c.Speaking())
}

func TestSpeakRefusedFallsBackToText(t *testing.T) {
	m := tts.NewMock()
	m.SpeakFunc = func(context.Context, tts.Utterance, tts.Sink) error {
		return tts.ErrProviderUnavailable
	}
	c, a := newCoordinator(DefaultConfig(), m)

	assert.Empty(t, c.Speak(context.Background(), "Hello world"))
	assert.True(t, c.Speaking())
	assert.True(t, a.talking)
}

func TestDisabledSpeechUsesTextTiming(t *testing.T) {
	m := tts.NewMock()
	var persisted []bool
	a := &fakeAnimator{ready: true}
	c := New(DefaultConfig(), a, m, WithPersist(func(v bool) error {
		persisted = append(persisted, v)
		return nil
	}))

	c.SetEnabled(false)
	assert.False(t, c.Enabled())

	assert.Empty(t, c.Speak(context.Background(), "Hello world"))
	assert.Empty(t, m.Calls(), "synthesizer not used")
	assert.True(t, a.talking)

	c.Close()
	assert.Equal(t, []bool{false}, persisted)
}

func TestToggleWritesLastValue(t *testing.T) {
	var mu sync.Mutex
	var persisted []bool
	release := make(chan struct{})
	c := New(DefaultConfig(), &fakeAnimator{ready: true}, nil, WithPersist(func(v bool) error {
		<-release
		mu.Lock()
		persisted = append(persisted, v)
		mu.Unlock()
		return nil
	}))

	start := time.Now()
	c.SetEnabled(false)
	c.SetEnabled(true)
	c.SetEnabled(false)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "toggling does not wait on storage")
	assert.False(t, c.Enabled())

	close(release)
	c.Close()
	assert.NotPanics(t, c.Close)
	assert.NotPanics(t, func() { c.SetEnabled(true) })

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, persisted)
	assert.LessOrEqual(t, len(persisted), 2, "superseded values are skipped")
	assert.False(t, persisted[len(persisted)-1], "last value wins")
}

func TestToggleWriteErrorIsLogged(t *testing.T) {
	calls := 0
	c := New(DefaultConfig(), &fakeAnimator{ready: true}, nil, WithPersist(func(bool) error {
		calls++
		return errors.New("disk full")
	}))
	c.SetEnabled(false)
	c.Close()
	assert.Equal(t, 1, calls)
	assert.False(t, c.Enabled())
}

func TestDisablingInterruptsSynthUtterance(t *testing.T) {
	c, a, m, id := speakWithMock(t, "Hello world")
	m.Start(id)
	c.Tick(t0)
	require.True(t, a.talking)

	c.SetEnabled(false)
	assert.False(t, a.talking)
	assert.False(t, c.Speaking())
}

func TestPostIsSafeAcrossGoroutines(t *testing.T) {
	c, a, m, id := speakWithMock(t, "one two three four five six seven eight")
	m.Start(id)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.Boundary(id, 0, 3)
			}
		}(i)
	}
	for i := 0; i < 20; i++ {
		c.Tick(t0.Add(time.Duration(i) * time.Millisecond))
	}
	wg.Wait()
	c.Tick(t0.Add(time.Second))
	assert.True(t, a.talking)
}
