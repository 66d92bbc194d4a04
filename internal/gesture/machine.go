package gesture

import (
	"time"
)

// Machine owns the single active gesture. Phase math always uses absolute
// time since the gesture started, so a loop that stops ticking for a while
// resumes at the right place instead of replaying missed phases.
//
// Machine is not safe for concurrent use; the avatar controller
// serialises access.
type Machine struct {
	configs map[Name]Config
	current Name
	started time.Time
	origin  time.Time
}

// NewMachine creates a machine resting in idle. A nil table uses
// DefaultConfigs.
func NewMachine(configs map[Name]Config) *Machine {
	if configs == nil {
		configs = DefaultConfigs()
	}
	return &Machine{configs: configs, current: Idle}
}

// Start anchors the global clock used by the idle and talk loops.
func (m *Machine) Start(now time.Time) {
	m.origin = now
	m.started = now
}

// Current returns the active gesture.
func (m *Machine) Current() Name {
	return m.current
}

// Timer returns the time elapsed since the active gesture began.
func (m *Machine) Timer(now time.Time) time.Duration {
	if d := now.Sub(m.started); d > 0 {
		return d
	}
	return 0
}

// Config returns the record for a timed gesture.
func (m *Machine) Config(n Name) (Config, bool) {
	c, ok := m.configs[n]
	return c, ok
}

// Trigger switches to n immediately and resets the gesture timer. A
// gesture already in flight is abandoned; nothing is queued.
func (m *Machine) Trigger(n Name, now time.Time) error {
	if _, err := Parse(string(n)); err != nil {
		return err
	}
	if n.Timed() {
		if _, ok := m.configs[n]; !ok {
			return ErrUnknownGesture
		}
	}
	m.current = n
	m.started = now
	return nil
}

// Tick returns the pose targets for now and reports whether the active
// gesture changed on its own. A finished timed gesture hands control to
// talk while talking is true, otherwise to idle. Talk without talking
// drops to idle.
func (m *Machine) Tick(now time.Time, talking bool) (Pose, bool) {
	t := now.Sub(m.origin).Seconds()
	base := IdlePose(t)
	if talking {
		base = TalkPose(t)
	}

	switch m.current {
	case Idle:
		return base, false
	case Talk:
		if !talking {
			m.current = Idle
			m.started = now
			return base, true
		}
		return base, false
	}

	s := Evaluate(m.configs[m.current], m.Timer(now))
	if s.Done {
		m.current = Idle
		if talking {
			m.current = Talk
		}
		m.started = now
		return base, true
	}
	return base.Lerp(s.Pose, s.Weight), false
}
