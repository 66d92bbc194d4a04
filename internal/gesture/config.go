package gesture

import (
	"math"
	"time"
)

// Phase is the section of a timed gesture an instant falls in.
type Phase int

const (
	PhaseEaseIn Phase = iota
	PhaseHold
	PhaseEaseOut
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseEaseIn:
		return "ease-in"
	case PhaseHold:
		return "hold"
	case PhaseEaseOut:
		return "ease-out"
	default:
		return "done"
	}
}

// Wobble is an oscillation layered on the target for the whole gesture.
type Wobble struct {
	Amplitude Pose
	Frequency float64 // Hz
}

// Config describes one timed gesture: its three phase lengths, the pose it
// reaches and the oscillation on top.
type Config struct {
	Name    Name
	EaseIn  time.Duration
	Hold    time.Duration
	EaseOut time.Duration
	Target  Pose
	Wobble  Wobble
}

// Total is the full length of the gesture.
func (c Config) Total() time.Duration {
	return c.EaseIn + c.Hold + c.EaseOut
}

// Sample is the result of evaluating a Config at one instant. Weight is
// how much of Pose to blend over the resting pose.
type Sample struct {
	Pose   Pose
	Weight float64
	Phase  Phase
	Done   bool
}

// Evaluate computes the gesture at time t since it started. It is a pure
// function of t.
func Evaluate(c Config, t time.Duration) Sample {
	if t < 0 {
		t = 0
	}
	if t >= c.Total() {
		return Sample{Phase: PhaseDone, Done: true}
	}

	var weight float64
	var phase Phase
	switch {
	case t < c.EaseIn:
		phase = PhaseEaseIn
		weight = smoothstep(float64(t) / float64(c.EaseIn))
	case t < c.EaseIn+c.Hold:
		phase = PhaseHold
		weight = 1
	default:
		phase = PhaseEaseOut
		weight = 1 - smoothstep(float64(t-c.EaseIn-c.Hold)/float64(c.EaseOut))
	}

	osc := math.Sin(2 * math.Pi * c.Wobble.Frequency * t.Seconds())
	return Sample{
		Pose:   c.Target.Add(c.Wobble.Amplitude.Scale(osc)),
		Weight: weight,
		Phase:  phase,
	}
}

func smoothstep(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x * x * (3 - 2*x)
}

func arms(left, right ArmPose) [2]ArmPose {
	return [2]ArmPose{left, right}
}

// DefaultConfigs returns the stock gesture table. Left is index 0.
func DefaultConfigs() map[Name]Config {
	ms := time.Millisecond
	return map[Name]Config{
		Nod: {
			Name: Nod, EaseIn: 150 * ms, Hold: 900 * ms, EaseOut: 250 * ms,
			Target: Pose{Head: HeadPose{Pitch: 0.1}},
			Wobble: Wobble{Amplitude: Pose{Head: HeadPose{Pitch: 0.18}}, Frequency: 2.5},
		},
		Wave: {
			Name: Wave, EaseIn: 350 * ms, Hold: 1600 * ms, EaseOut: 400 * ms,
			Target: Pose{
				Arms: arms(ArmPose{Raise: 0.08}, ArmPose{Raise: 2.5, Swing: 0.3}),
				Head: HeadPose{Roll: 0.08},
			},
			Wobble: Wobble{Amplitude: Pose{Arms: arms(ArmPose{}, ArmPose{Raise: 0.35})}, Frequency: 2},
		},
		Think: {
			Name: Think, EaseIn: 400 * ms, Hold: 1800 * ms, EaseOut: 400 * ms,
			Target: Pose{
				Arms: arms(ArmPose{Raise: 0.1}, ArmPose{Raise: 0.4, Swing: 1.9}),
				Head: HeadPose{Pitch: -0.08, Roll: 0.18},
			},
			Wobble: Wobble{Amplitude: Pose{Head: HeadPose{Roll: 0.03}}, Frequency: 0.5},
		},
		Celebrate: {
			Name: Celebrate, EaseIn: 250 * ms, Hold: 1500 * ms, EaseOut: 350 * ms,
			Target: Pose{
				Arms: arms(ArmPose{Raise: 2.7}, ArmPose{Raise: 2.7}),
				Head: HeadPose{Pitch: -0.1},
				Lift: 0.06,
			},
			Wobble: Wobble{
				Amplitude: Pose{Arms: arms(ArmPose{Raise: 0.2}, ArmPose{Raise: 0.2}), Lift: 0.05},
				Frequency: 3,
			},
		},
		Point: {
			Name: Point, EaseIn: 300 * ms, Hold: 1200 * ms, EaseOut: 350 * ms,
			Target: Pose{
				Arms: arms(ArmPose{Raise: 0.05}, ArmPose{Raise: 0.2, Swing: 1.5}),
				Head: HeadPose{Pitch: 0.05},
			},
			Wobble: Wobble{Amplitude: Pose{Arms: arms(ArmPose{}, ArmPose{Swing: 0.02})}, Frequency: 1},
		},
		Shrug: {
			Name: Shrug, EaseIn: 250 * ms, Hold: 700 * ms, EaseOut: 350 * ms,
			Target: Pose{
				Arms: arms(ArmPose{Raise: 0.5, Swing: 0.3}, ArmPose{Raise: 0.5, Swing: 0.3}),
				Head: HeadPose{Roll: 0.12},
				Lift: 0.02,
			},
		},
	}
}

// IdlePose is the resting sway at global time t seconds.
func IdlePose(t float64) Pose {
	return Pose{
		Arms: arms(
			ArmPose{Raise: 0.06 + 0.03*math.Sin(0.9*t), Swing: 0.04 * math.Sin(0.7*t)},
			ArmPose{Raise: 0.06 + 0.03*math.Sin(0.9*t+1.1), Swing: 0.04 * math.Sin(0.7*t+2.0)},
		),
		Head: HeadPose{
			Pitch: 0.02 * math.Sin(0.5*t),
			Roll:  0.015 * math.Sin(0.37*t+1),
		},
	}
}

// TalkPose is the conversational arm and head motion at global time t
// seconds, a sum of offset sines so it never visibly repeats.
func TalkPose(t float64) Pose {
	return Pose{
		Arms: arms(
			ArmPose{
				Raise: 0.12 + 0.05*math.Sin(1.7*t+0.4),
				Swing: 0.18 + 0.12*math.Sin(2.1*t) + 0.06*math.Sin(3.7*t+1.3),
			},
			ArmPose{
				Raise: 0.12 + 0.05*math.Sin(1.9*t+2.2),
				Swing: 0.16 + 0.1*math.Sin(2.4*t+0.9) + 0.07*math.Sin(4.3*t+2.6),
			},
		),
		Head: HeadPose{
			Pitch: 0.04*math.Sin(2.9*t) + 0.02*math.Sin(5.3*t+0.7),
			Roll:  0.03 * math.Sin(1.3*t+2),
		},
	}
}
