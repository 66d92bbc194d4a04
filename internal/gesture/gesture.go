// Package gesture runs the full-body gesture state machine: an idle sway,
// a talking loop and six timed gestures, each described by a Config record
// that can be evaluated on its own.
package gesture

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownGesture is returned for names outside the gesture set.
var ErrUnknownGesture = errors.New("unknown gesture")

// Name identifies a gesture.
type Name string

const (
	Idle      Name = "idle"
	Talk      Name = "talk"
	Nod       Name = "nod"
	Wave      Name = "wave"
	Think     Name = "think"
	Celebrate Name = "celebrate"
	Point     Name = "point"
	Shrug     Name = "shrug"
)

// Names lists every gesture in a stable order.
var Names = []Name{Idle, Talk, Nod, Wave, Think, Celebrate, Point, Shrug}

// Timed reports whether the gesture ends by itself.
func (n Name) Timed() bool {
	return n != Idle && n != Talk
}

// Parse validates a gesture name. Matching ignores case and surrounding
// space.
func Parse(name string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Names {
		if n == known {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGesture, name)
}

// ArmPose is one arm's target. Raise lifts the arm sideways, Swing brings
// it forward; both radians.
type ArmPose struct {
	Raise float64 `json:"raise"`
	Swing float64 `json:"swing"`
}

// HeadPose is the two-axis head rotation. Positive pitch looks down.
type HeadPose struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Pose is the full set of limb and head targets a gesture produces.
// Lift raises the body in metres.
type Pose struct {
	Arms [2]ArmPose `json:"arms"`
	Head HeadPose   `json:"head"`
	Lift float64    `json:"lift"`
}

// Add returns p + o field by field.
func (p Pose) Add(o Pose) Pose {
	for i := range p.Arms {
		p.Arms[i].Raise += o.Arms[i].Raise
		p.Arms[i].Swing += o.Arms[i].Swing
	}
	p.Head.Pitch += o.Head.Pitch
	p.Head.Roll += o.Head.Roll
	p.Lift += o.Lift
	return p
}

// Scale returns p with every field multiplied by k.
func (p Pose) Scale(k float64) Pose {
	for i := range p.Arms {
		p.Arms[i].Raise *= k
		p.Arms[i].Swing *= k
	}
	p.Head.Pitch *= k
	p.Head.Roll *= k
	p.Lift *= k
	return p
}

// Lerp blends from p toward o by k.
func (p Pose) Lerp(o Pose, k float64) Pose {
	return p.Scale(1 - k).Add(o.Scale(k))
}
