// Package expression eases the face toward one of six emotion presets and
// writes the result onto the rig each frame.
package expression

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEmotion is returned for names outside the preset table.
var ErrUnknownEmotion = errors.New("unknown emotion")

// Emotion names one row of the preset table.
type Emotion string

const (
	Neutral     Emotion = "neutral"
	Happy       Emotion = "happy"
	Serious     Emotion = "serious"
	Encouraging Emotion = "encouraging"
	Confused    Emotion = "confused"
	Excited     Emotion = "excited"
)

// Emotions lists every preset in a stable order.
var Emotions = []Emotion{Neutral, Happy, Serious, Encouraging, Confused, Excited}

// Parse validates an emotion name. Matching ignores case and surrounding
// space.
func Parse(name string) (Emotion, error) {
	e := Emotion(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := presets[e]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEmotion, name)
	}
	return e, nil
}

// Valid ranges for each field.
const (
	MinBrowAngle  = -0.6
	MaxBrowAngle  = 0.6
	MinBrowOffset = -0.08
	MaxBrowOffset = 0.1
	MinLidOpen    = 0.0
	MaxLidOpen    = 1.2
	MinMouthWidth = 0.4
	MaxMouthWidth = 1.6
)

// Values are the continuously blended facial parameters. Index 0 is the
// figure's left side. BrowAngle is radians with positive lifting the inner
// end, BrowOffset is metres above rest, LidOpen is 1 for fully open.
type Values struct {
	BrowAngle  [2]float64 `json:"brow_angle"`
	BrowOffset [2]float64 `json:"brow_offset"`
	LidOpen    [2]float64 `json:"lid_open"`
	MouthWidth float64    `json:"mouth_width"`
}

// Clamp returns v with every field inside its valid range.
func (v Values) Clamp() Values {
	for i := 0; i < 2; i++ {
		v.BrowAngle[i] = clamp(v.BrowAngle[i], MinBrowAngle, MaxBrowAngle)
		v.BrowOffset[i] = clamp(v.BrowOffset[i], MinBrowOffset, MaxBrowOffset)
		v.LidOpen[i] = clamp(v.LidOpen[i], MinLidOpen, MaxLidOpen)
	}
	v.MouthWidth = clamp(v.MouthWidth, MinMouthWidth, MaxMouthWidth)
	return v
}

// Lerp moves every field of v toward target by fraction k.
func (v Values) Lerp(target Values, k float64) Values {
	for i := 0; i < 2; i++ {
		v.BrowAngle[i] += (target.BrowAngle[i] - v.BrowAngle[i]) * k
		v.BrowOffset[i] += (target.BrowOffset[i] - v.BrowOffset[i]) * k
		v.LidOpen[i] += (target.LidOpen[i] - v.LidOpen[i]) * k
	}
	v.MouthWidth += (target.MouthWidth - v.MouthWidth) * k
	return v
}

// MaxDelta returns the largest absolute field difference between v and o.
func (v Values) MaxDelta(o Values) float64 {
	d := abs(v.MouthWidth - o.MouthWidth)
	for i := 0; i < 2; i++ {
		d = max(d, abs(v.BrowAngle[i]-o.BrowAngle[i]))
		d = max(d, abs(v.BrowOffset[i]-o.BrowOffset[i]))
		d = max(d, abs(v.LidOpen[i]-o.LidOpen[i]))
	}
	return d
}

func symmetric(angle, offset, lid, mouth float64) Values {
	return Values{
		BrowAngle:  [2]float64{angle, angle},
		BrowOffset: [2]float64{offset, offset},
		LidOpen:    [2]float64{lid, lid},
		MouthWidth: mouth,
	}
}

// The preset table. Numbers are hand-tuned.
var presets = map[Emotion]Values{
	Neutral:     symmetric(0, 0, 1.0, 1.0),
	Happy:       symmetric(0.12, 0.03, 0.82, 1.3),
	Serious:     symmetric(-0.22, -0.025, 0.88, 0.85),
	Encouraging: symmetric(0.15, 0.02, 0.95, 1.15),
	Excited:     symmetric(0.2, 0.07, 1.15, 1.4),

	// one brow up, one eye narrowed
	Confused: func() Values {
		v := symmetric(0, 0, 1.0, 0.9)
		v.BrowAngle = [2]float64{0.3, -0.15}
		v.BrowOffset = [2]float64{0.055, -0.01}
		v.LidOpen = [2]float64{1.05, 0.78}
		return v
	}(),
}

// Preset returns the table row for e. Callers get a copy.
func Preset(e Emotion) (Values, bool) {
	v, ok := presets[e]
	return v, ok
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
