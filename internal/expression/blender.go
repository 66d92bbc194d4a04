package expression

import (
	"math"

	"github.com/normanking/tutoravatar/internal/rig"
)

// DefaultRate is the fraction of the remaining distance covered per 60 Hz
// frame.
const DefaultRate = 0.08

// Smoothing converts a per-frame easing fraction into the fraction for a
// step of dt seconds, so easing speed does not depend on frame rate.
func Smoothing(rate, dt float64) float64 {
	if dt <= 0 || rate <= 0 {
		return 0
	}
	if rate >= 1 {
		return 1
	}
	return 1 - math.Pow(1-rate, dt*60)
}

// Blender owns the current and target facial values. It is not safe for
// concurrent use; the avatar controller serialises access.
type Blender struct {
	rate    float64
	emotion Emotion
	current Values
	target  Values
}

// NewBlender starts at the neutral preset with nothing pending.
func NewBlender(rate float64) *Blender {
	if rate <= 0 || rate > 1 {
		rate = DefaultRate
	}
	n := presets[Neutral]
	return &Blender{rate: rate, emotion: Neutral, current: n, target: n}
}

// SetEmotion replaces the target with the named preset row. Unknown names
// leave the target untouched and return ErrUnknownEmotion.
func (b *Blender) SetEmotion(name string) (Emotion, error) {
	e, err := Parse(name)
	if err != nil {
		return b.emotion, err
	}
	b.emotion = e
	b.target = presets[e]
	return e, nil
}

// Emotion returns the active preset name.
func (b *Blender) Emotion() Emotion { return b.emotion }

// Current returns the eased values.
func (b *Blender) Current() Values { return b.current }

// Target returns the preset row being eased toward.
func (b *Blender) Target() Values { return b.target }

// Tick advances easing by dt seconds. Cheap when already converged.
func (b *Blender) Tick(dt float64) {
	k := Smoothing(b.rate, dt)
	if k == 0 {
		return
	}
	b.current = b.current.Lerp(b.target, k).Clamp()
}

// Apply writes the eased values onto the rig. blink is the physiological
// blink multiplier in [0,1] and combines with emotional squint by
// multiplication. A nil rig is ignored.
func (b *Blender) Apply(parts *rig.Parts, blink float64) {
	if parts == nil {
		return
	}
	blink = clamp(blink, 0, 1)
	for side := rig.Left; side <= rig.Right; side++ {
		parts.SetBrow(side, b.current.BrowAngle[side], b.current.BrowOffset[side])
		parts.SetLid(side, b.current.LidOpen[side]*blink)
	}
	parts.SetMouthWidth(b.current.MouthWidth)
}

// RenderedLids returns per-side eyelid openness after blink is applied.
func (b *Blender) RenderedLids(blink float64) [2]float64 {
	blink = clamp(blink, 0, 1)
	return [2]float64{b.current.LidOpen[0] * blink, b.current.LidOpen[1] * blink}
}
