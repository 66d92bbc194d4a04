package avatar

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/tutoravatar/internal/bus"
	"github.com/normanking/tutoravatar/internal/config"
	"github.com/normanking/tutoravatar/internal/expression"
	"github.com/normanking/tutoravatar/internal/gesture"
	"github.com/normanking/tutoravatar/internal/metrics"
	"github.com/normanking/tutoravatar/internal/scene"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

const frame = 16 * time.Millisecond

func newController(t *testing.T, opts ...Option) (*Controller, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	return New(config.DefaultConfig().Avatar, zerolog.Nop(), opts...), clk
}

func newReady(t *testing.T, opts ...Option) (*Controller, *clock) {
	t.Helper()
	c, clk := newController(t, opts...)
	c.Build(scene.NewGroup("world"))
	require.True(t, c.IsReady())
	c.Tick(clk.t)
	return c, clk
}

func run(c *Controller, clk *clock, d time.Duration) {
	for end := clk.t.Add(d); clk.t.Before(end); {
		clk.t = clk.t.Add(frame)
		c.Tick(clk.t)
	}
}

func TestNotReadyIsInert(t *testing.T) {
	c, clk := newController(t)
	c.Build(nil)
	require.False(t, c.IsReady())

	assert.NotPanics(t, func() {
		c.SetEmotion("happy")
		c.TriggerGesture("wave")
		c.TriggerGesture("moonwalk")
		c.Nod()
		c.StartTalking()
		c.SetMouthOpen(1)
		c.StopTalking()
		c.Tick(clk.t)
	})

	s := c.State()
	assert.False(t, s.Ready)
	assert.Equal(t, "neutral", s.Emotion)
	assert.Equal(t, "idle", s.Gesture)
	assert.False(t, s.IsTalking)
	assert.Zero(t, s.MouthOpenTarget)
	assert.Nil(t, c.Parts())
}

func TestBuildPublishesReady(t *testing.T) {
	b := bus.NewEventBus()
	got := make(chan bus.Event, 8)
	b.Subscribe(bus.EventTypeReady, func(e bus.Event) { got <- e })

	c, _ := newController(t, WithBus(b))
	c.Build(scene.NewGroup("world"))

	select {
	case e := <-got:
		assert.Equal(t, bus.EventTypeReady, e.Type)
	case <-time.After(time.Second):
		t.Fatal("no ready event")
	}

	// second build is ignored
	parts := c.Parts()
	c.Build(scene.NewGroup("other"))
	assert.Same(t, parts, c.Parts())
}

func TestEmotionConvergesWithinRange(t *testing.T) {
	for _, e := range expression.Emotions {
		t.Run(string(e), func(t *testing.T) {
			c, clk := newReady(t)
			c.SetEmotion(string(e))
			want, _ := expression.Preset(e)

			for i := 0; i < 300; i++ {
				run(c, clk, frame)
				s := c.State()
				for side := 0; side < 2; side++ {
					require.GreaterOrEqual(t, s.ExpressionCurrent.LidOpen[side], 0.0)
					require.LessOrEqual(t, s.ExpressionCurrent.LidOpen[side], 1.2)
				}
				require.Greater(t, s.ExpressionCurrent.MouthWidth, 0.0)
			}
			assert.Less(t, c.State().ExpressionCurrent.MaxDelta(want), 1e-3)
			assert.Equal(t, string(e), c.State().Emotion)
		})
	}
}

func TestUnknownEmotionKeepsState(t *testing.T) {
	m := metrics.New()
	c, _ := newReady(t, WithMetrics(m))
	c.SetEmotion("happy")
	before := c.State().ExpressionTarget

	c.SetEmotion("furious")
	assert.Equal(t, before, c.State().ExpressionTarget)
	assert.Equal(t, "happy", c.State().Emotion)
}

func TestSetEmotionIsIdempotent(t *testing.T) {
	c, _ := newReady(t)
	c.SetEmotion("happy")
	once := c.State().ExpressionTarget
	c.SetEmotion("happy")
	assert.Equal(t, once, c.State().ExpressionTarget)
}

func TestTimedGestureReturnsToRest(t *testing.T) {
	for _, g := range []gesture.Name{gesture.Nod, gesture.Wave, gesture.Think, gesture.Celebrate, gesture.Point, gesture.Shrug} {
		t.Run(string(g), func(t *testing.T) {
			c, clk := newReady(t)
			c.TriggerGesture(string(g))
			assert.Equal(t, string(g), c.State().Gesture)

			cfg, ok := gesture.DefaultConfigs()[g]
			require.True(t, ok)
			run(c, clk, cfg.Total()+frame)
			assert.Equal(t, "idle", c.State().Gesture)

			c.StartTalking()
			c.TriggerGesture(string(g))
			run(c, clk, cfg.Total()+frame)
			assert.Equal(t, "talk", c.State().Gesture)
		})
	}
}

func TestConvenienceWrappers(t *testing.T) {
	c, _ := newReady(t)
	for name, fn := range map[string]func(){
		"nod": c.Nod, "wave": c.Wave, "think": c.Think, "celebrate": c.Celebrate,
		"point": c.Point, "shrug": c.Shrug, "talk": c.Talk,
	} {
		fn()
		assert.Equal(t, name, c.State().Gesture)
	}
}

func TestTalkWithoutTalkingFallsToIdle(t *testing.T) {
	c, clk := newReady(t)
	c.Talk()
	require.Equal(t, "talk", c.State().Gesture)
	run(c, clk, frame)
	assert.Equal(t, "idle", c.State().Gesture)

	c.StartTalking()
	assert.Equal(t, "talk", c.State().Gesture)
	c.StopTalking()
	assert.Equal(t, "idle", c.State().Gesture)
}

func TestRetriggerResetsTimer(t *testing.T) {
	c, clk := newReady(t)
	c.Wave()
	run(c, clk, time.Second)
	require.Greater(t, c.State().GestureTimerMs, 900.0)

	c.Wave()
	c.Tick(clk.t)
	assert.Zero(t, c.State().GestureTimerMs)
}

func TestUnknownGestureIgnored(t *testing.T) {
	c, _ := newReady(t)
	c.Think()
	c.TriggerGesture("moonwalk")
	assert.Equal(t, "think", c.State().Gesture)
}

func TestStartTalkingLetsTimedGestureFinish(t *testing.T) {
	c, clk := newReady(t)
	c.Wave()
	c.StartTalking()
	assert.Equal(t, "wave", c.State().Gesture)
	assert.True(t, c.State().IsTalking)

	cfg, _ := gesture.DefaultConfigs()[gesture.Wave]
	run(c, clk, cfg.Total()+frame)
	assert.Equal(t, "talk", c.State().Gesture)
}

func TestStopTalkingClosesMouthImmediately(t *testing.T) {
	c, clk := newReady(t)
	c.StartTalking()
	require.Equal(t, "talk", c.State().Gesture)
	c.SetMouthOpen(0.9)
	run(c, clk, 200*time.Millisecond)
	require.Greater(t, c.State().MouthOpenCurrent, 0.5)

	c.StopTalking()
	s := c.State()
	assert.False(t, s.IsTalking)
	assert.Zero(t, s.MouthOpenTarget)
	assert.Zero(t, s.MouthOpenCurrent)
	assert.Equal(t, "idle", s.Gesture)

	c.Tick(clk.t.Add(frame))
	rest := c.Parts().Rest(c.Parts().Mouth)
	assert.InDelta(t, rest.Scale.Y(), c.Parts().Mouth.Scale.Y(), 1e-6)
}

func TestSetMouthOpenClamps(t *testing.T) {
	c, _ := newReady(t)
	c.SetMouthOpen(3)
	assert.Equal(t, 1.0, c.State().MouthOpenTarget)
	c.SetMouthOpen(-1)
	assert.Equal(t, 0.0, c.State().MouthOpenTarget)
}

func TestTickStepIsCapped(t *testing.T) {
	c, clk := newReady(t)
	c.SetMouthOpen(1)

	clk.t = clk.t.Add(10 * time.Second)
	c.Tick(clk.t)

	want := expression.Smoothing(config.DefaultConfig().Avatar.MouthRate, maxStep.Seconds())
	assert.InDelta(t, want, c.State().MouthOpenCurrent, 1e-9)
	assert.Less(t, c.State().MouthOpenCurrent, 1.0)
}

func TestTickWritesRig(t *testing.T) {
	c, clk := newReady(t)
	p := c.Parts()
	c.StartTalking()
	c.SetMouthOpen(1)
	c.Celebrate()
	run(c, clk, 800*time.Millisecond)

	rest := p.Rest(p.Mouth)
	assert.Greater(t, p.Mouth.Scale.Y(), rest.Scale.Y()*3)
	assert.Greater(t, p.Body.Position.Y(), p.Rest(p.Body).Position.Y(), "celebrate lifts the body")
}

func TestControllersAreIndependent(t *testing.T) {
	a, _ := newReady(t)
	b, _ := newReady(t)
	a.SetEmotion("excited")
	a.StartTalking()

	assert.Equal(t, "neutral", b.State().Emotion)
	assert.False(t, b.State().IsTalking)
}

func TestConcurrentCallers(t *testing.T) {
	c, clk := newReady(t)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.SetEmotion("happy")
				c.SetMouthOpen(0.5)
				c.Nod()
				_ = c.State()
			}
		}()
	}
	start := clk.t
	for i := 1; i <= 100; i++ {
		c.Tick(start.Add(time.Duration(i) * frame))
	}
	wg.Wait()
}
