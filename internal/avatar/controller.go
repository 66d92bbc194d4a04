// Package avatar ties the rig, the expression blender and the gesture
// machine into one controller. Every transform write happens inside Tick,
// so the render loop is the single writer of rig state.
package avatar

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/tutoravatar/internal/bus"
	"github.com/normanking/tutoravatar/internal/config"
	"github.com/normanking/tutoravatar/internal/expression"
	"github.com/normanking/tutoravatar/internal/gesture"
	"github.com/normanking/tutoravatar/internal/metrics"
	"github.com/normanking/tutoravatar/internal/rig"
	"github.com/normanking/tutoravatar/internal/scene"
)

// maxStep caps the frame delta so a stalled loop eases smoothly instead of
// snapping.
const maxStep = 100 * time.Millisecond

// Option configures a Controller.
type Option func(*Controller)

// WithBus publishes state changes on b.
func WithBus(b *bus.EventBus) Option {
	return func(c *Controller) { c.bus = b }
}

// WithMetrics counts state changes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock sets the time source for gesture triggers. Without one a
// trigger is stamped with the last frame time.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithGestures replaces the gesture configuration table.
func WithGestures(configs map[gesture.Name]gesture.Config) Option {
	return func(c *Controller) { c.gestures = configs }
}

// Controller owns one avatar's animation state. Methods are safe for
// concurrent use, but rig transforms are only written by Tick.
type Controller struct {
	mu       sync.Mutex
	cfg      config.AvatarConfig
	logger   zerolog.Logger
	bus      *bus.EventBus
	metrics  *metrics.Metrics
	now      func() time.Time
	gestures map[gesture.Name]gesture.Config

	parts   *rig.Parts
	blender *expression.Blender
	machine *gesture.Machine

	ready   bool
	talking bool

	mouth, mouthTarget float64
	pose, poseTarget   gesture.Pose
	blink              float64

	origin   time.Time
	lastTick time.Time
	ticked   bool
}

// New creates a controller. It is not ready until Build succeeds.
func New(cfg config.AvatarConfig, logger zerolog.Logger, opts ...Option) *Controller {
	def := config.DefaultConfig().Avatar
	if cfg.ExpressionRate <= 0 {
		cfg.ExpressionRate = def.ExpressionRate
	}
	if cfg.MouthRate <= 0 {
		cfg.MouthRate = def.MouthRate
	}
	if cfg.PoseRate <= 0 {
		cfg.PoseRate = def.PoseRate
	}
	if cfg.BlinkInterval <= 0 {
		cfg.BlinkInterval = def.BlinkInterval
	}
	if cfg.BlinkDuration <= 0 {
		cfg.BlinkDuration = def.BlinkDuration
	}

	c := &Controller{
		cfg:    cfg,
		logger: logger,
		blink:  1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.blender = expression.NewBlender(cfg.ExpressionRate)
	c.machine = gesture.NewMachine(c.gestures)
	return c
}

// Build constructs the rig under root. Without a root the controller stays
// not ready and every other operation does nothing.
func (c *Controller) Build(root *scene.Node) {
	c.mu.Lock()
	if c.ready {
		c.mu.Unlock()
		c.logger.Warn().Msg("Avatar already built")
		return
	}
	parts, err := rig.Build(root, rig.Options{ParticleCount: c.cfg.ParticleCount, Seed: c.cfg.Seed})
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn().Err(err).Msg("Avatar disabled; continuing without a visible figure")
		return
	}
	c.parts = parts
	c.ready = true
	c.mu.Unlock()

	c.logger.Info().Int("particles", parts.ParticleCount()).Msg("Avatar built")
	c.bus.Publish(bus.Event{Type: bus.EventTypeReady})
}

func (c *Controller) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	if c.ticked {
		return c.lastTick
	}
	return time.Now()
}

// IsReady reports whether Build completed.
func (c *Controller) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Parts returns the rig, or nil before Build.
func (c *Controller) Parts() *rig.Parts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parts
}

// SetEmotion eases the face toward a preset. Unknown names are logged and
// ignored.
func (c *Controller) SetEmotion(name string) {
	c.mu.Lock()
	if !c.ready {
		c.mu.Unlock()
		return
	}
	e, err := c.blender.SetEmotion(name)
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn().Str("emotion", name).Msg("Unknown emotion ignored")
		c.metrics.Ignored("emotion")
		return
	}
	c.metrics.EmotionChanged(string(e))
	c.bus.Publish(bus.Event{Type: bus.EventTypeEmotionChanged, Data: map[string]any{"emotion": string(e)}})
}

// TriggerGesture switches to a gesture immediately, restarting its timer.
// Unknown names are logged and ignored.
func (c *Controller) TriggerGesture(name string) {
	n, err := gesture.Parse(name)
	if err != nil {
		if c.IsReady() {
			c.logger.Warn().Str("gesture", name).Msg("Unknown gesture ignored")
			c.metrics.Ignored("gesture")
		}
		return
	}
	c.trigger(n)
}

func (c *Controller) trigger(n gesture.Name) {
	c.mu.Lock()
	if !c.ready {
		c.mu.Unlock()
		return
	}
	if err := c.machine.Trigger(n, c.clock()); err != nil {
		c.mu.Unlock()
		c.logger.Warn().Err(err).Str("gesture", string(n)).Msg("Gesture not configured")
		c.metrics.Ignored("gesture")
		return
	}
	c.mu.Unlock()

	c.metrics.GestureTriggered(string(n))
	c.bus.Publish(bus.Event{Type: bus.EventTypeGestureChanged, Data: map[string]any{"gesture": string(n)}})
}

// Nod plays the nod gesture.
func (c *Controller) Nod() { c.trigger(gesture.Nod) }

// Wave plays the wave gesture.
func (c *Controller) Wave() { c.trigger(gesture.Wave) }

// Think plays the think gesture.
func (c *Controller) Think() { c.trigger(gesture.Think) }

// Celebrate plays the celebrate gesture.
func (c *Controller) Celebrate() { c.trigger(gesture.Celebrate) }

// Point plays the point gesture.
func (c *Controller) Point() { c.trigger(gesture.Point) }

// Shrug plays the shrug gesture.
func (c *Controller) Shrug() { c.trigger(gesture.Shrug) }

// Talk switches to the talking loop. It does not set the talking flag, so
// the next tick drops back to idle unless StartTalking was called.
func (c *Controller) Talk() { c.trigger(gesture.Talk) }

// StartTalking marks the avatar as talking. A running timed gesture is
// left to finish and hands over to talk on its own.
func (c *Controller) StartTalking() {
	c.mu.Lock()
	if !c.ready {
		c.mu.Unlock()
		return
	}
	was := c.talking
	c.talking = true
	switched := false
	if cur := c.machine.Current(); !cur.Timed() && cur != gesture.Talk {
		// idle and talk need no config, so this cannot fail
		c.machine.Trigger(gesture.Talk, c.clock())
		switched = true
	}
	c.mu.Unlock()

	c.metrics.SetTalking(true)
	if switched {
		c.metrics.GestureTriggered(string(gesture.Talk))
		c.bus.Publish(bus.Event{Type: bus.EventTypeGestureChanged, Data: map[string]any{"gesture": string(gesture.Talk)}})
	}
	if !was {
		c.bus.Publish(bus.Event{Type: bus.EventTypeTalkingStarted})
	}
}

// StopTalking clears the talking flag and closes the mouth at once, with
// no fade. The talk gesture drops to idle.
func (c *Controller) StopTalking() {
	c.mu.Lock()
	if !c.ready {
		c.mu.Unlock()
		return
	}
	was := c.talking
	c.talking = false
	c.mouth = 0
	c.mouthTarget = 0
	switched := false
	if c.machine.Current() == gesture.Talk {
		c.machine.Trigger(gesture.Idle, c.clock())
		switched = true
	}
	c.mu.Unlock()

	c.metrics.SetTalking(false)
	if switched {
		c.bus.Publish(bus.Event{Type: bus.EventTypeGestureChanged, Data: map[string]any{"gesture": string(gesture.Idle)}})
	}
	if was {
		c.bus.Publish(bus.Event{Type: bus.EventTypeTalkingStopped})
	}
}

// SetMouthOpen sets the mouth aperture target, clamped to [0,1].
func (c *Controller) SetMouthOpen(amount float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return
	}
	c.mouthTarget = min(max(amount, 0), 1)
}

// Tick advances every animation layer to now and writes the rig.
func (c *Controller) Tick(now time.Time) {
	c.mu.Lock()
	if !c.ready {
		c.mu.Unlock()
		return
	}

	var dt time.Duration
	if c.ticked {
		dt = min(max(now.Sub(c.lastTick), 0), maxStep)
	} else {
		// the idle clock starts on the first frame
		c.origin = now
		c.machine.Start(now)
	}
	c.lastTick = now
	c.ticked = true
	secs := dt.Seconds()

	prev := c.machine.Current()
	target, changed := c.machine.Tick(now, c.talking)
	c.poseTarget = target
	c.pose = c.pose.Lerp(target, expression.Smoothing(c.cfg.PoseRate, secs))
	c.mouth += (c.mouthTarget - c.mouth) * expression.Smoothing(c.cfg.MouthRate, secs)
	c.blender.Tick(secs)

	idle := now.Sub(c.origin)
	c.blink = expression.BlinkFactor(idle, c.cfg.BlinkInterval, c.cfg.BlinkDuration)

	p := c.parts
	if c.cfg.IdleAnimation {
		p.Animate(idle.Seconds())
	}
	c.blender.Apply(p, c.blink)
	p.SetMouthOpen(c.mouth)
	for side := rig.Left; side <= rig.Right; side++ {
		p.SetArm(side, c.pose.Arms[side].Raise, c.pose.Arms[side].Swing)
	}
	p.SetHead(c.pose.Head.Pitch, c.pose.Head.Roll)
	p.SetLift(c.pose.Lift)

	next := c.machine.Current()
	c.mu.Unlock()

	if changed {
		if prev.Timed() {
			c.metrics.GestureFinished(string(prev))
		}
		c.logger.Debug().Str("from", string(prev)).Str("to", string(next)).Msg("Gesture finished")
		c.bus.Publish(bus.Event{Type: bus.EventTypeGestureChanged, Data: map[string]any{"gesture": string(next)}})
	}
}
