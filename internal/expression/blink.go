package expression

import (
	"math"
	"time"
)

// BlinkFactor returns the eyelid multiplier for idle-clock time t: 1 when
// the eye is open, dipping to 0 at the middle of a blink. Each blink
// cycle's start is jittered by up to a third of the interval using a hash
// of the cycle index, so the pattern looks irregular but is a pure
// function of t.
func BlinkFactor(t, interval, duration time.Duration) float64 {
	if interval <= 0 || duration <= 0 || t < 0 {
		return 1
	}
	if duration > interval/2 {
		duration = interval / 2
	}

	cycle := int64(t / interval)
	jitter := time.Duration(hash01(cycle) * float64(interval) / 3)
	phase := t - time.Duration(cycle)*interval - jitter
	if phase < 0 || phase >= duration {
		return 1
	}

	// close over 40%, hold 10%, open over 50%
	p := float64(phase) / float64(duration)
	switch {
	case p < 0.4:
		return 1 - easeOutQuad(p/0.4)
	case p < 0.5:
		return 0
	default:
		return easeInQuad((p - 0.5) / 0.5)
	}
}

func hash01(n int64) float64 {
	x := math.Sin(float64(n)*12.9898+78.233) * 43758.5453
	return x - math.Floor(x)
}

func easeOutQuad(t float64) float64 {
	return t * (2 - t)
}

func easeInQuad(t float64) float64 {
	return t * t
}
