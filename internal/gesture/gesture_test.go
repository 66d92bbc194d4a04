package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func TestConfigsAreWellFormed(t *testing.T) {
	configs := DefaultConfigs()
	for _, n := range Names {
		c, ok := configs[n]
		if !n.Timed() {
			assert.False(t, ok, "%s is not timed", n)
			continue
		}
		require.True(t, ok, "missing config for %s", n)
		assert.Equal(t, n, c.Name)
		assert.Positive(t, c.EaseIn)
		assert.Positive(t, c.Hold)
		assert.Positive(t, c.EaseOut)
	}
}

func TestEvaluatePhases(t *testing.T) {
	for n, c := range DefaultConfigs() {
		t.Run(string(n), func(t *testing.T) {
			start := Evaluate(c, 0)
			assert.Equal(t, PhaseEaseIn, start.Phase)
			assert.Zero(t, start.Weight)

			mid := Evaluate(c, c.EaseIn+c.Hold/2)
			assert.Equal(t, PhaseHold, mid.Phase)
			assert.Equal(t, 1.0, mid.Weight)

			out := Evaluate(c, c.EaseIn+c.Hold+c.EaseOut/2)
			assert.Equal(t, PhaseEaseOut, out.Phase)
			assert.InDelta(t, 0.5, out.Weight, 1e-9)

			end := Evaluate(c, c.Total())
			assert.True(t, end.Done)
			assert.Zero(t, end.Weight)

			assert.Equal(t, start, Evaluate(c, -time.Second))
		})
	}
}

func TestEvaluateReachesTarget(t *testing.T) {
	c := Config{
		Name: Shrug, EaseIn: time.Second, Hold: time.Second, EaseOut: time.Second,
		Target: Pose{Lift: 0.1, Head: HeadPose{Roll: 0.2}},
	}
	s := Evaluate(c, 1500*time.Millisecond)
	assert.Equal(t, c.Target, s.Pose)
}

func TestParse(t *testing.T) {
	n, err := Parse(" Wave")
	require.NoError(t, err)
	assert.Equal(t, Wave, n)

	_, err = Parse("moonwalk")
	assert.ErrorIs(t, err, ErrUnknownGesture)
}

func TestTimedGesturesReturnToRest(t *testing.T) {
	for _, n := range Names {
		if !n.Timed() {
			continue
		}
		for _, talking := range []bool{false, true} {
			m := NewMachine(nil)
			m.Start(epoch)
			require.NoError(t, m.Trigger(n, epoch))

			cfg, _ := m.Config(n)
			changed := false
			for now := epoch; now.Sub(epoch) <= cfg.Total()+50*time.Millisecond; now = now.Add(16 * time.Millisecond) {
				_, c := m.Tick(now, talking)
				changed = changed || c
			}

			assert.True(t, changed)
			want := Idle
			if talking {
				want = Talk
			}
			assert.Equal(t, want, m.Current(), "%s talking=%v", n, talking)
		}
	}
}

func TestRetriggerResetsTimer(t *testing.T) {
	m := NewMachine(nil)
	m.Start(epoch)
	require.NoError(t, m.Trigger(Wave, epoch))

	later := epoch.Add(time.Second)
	m.Tick(later, false)
	assert.Equal(t, time.Second, m.Timer(later))

	require.NoError(t, m.Trigger(Nod, later))
	assert.Equal(t, Nod, m.Current())
	assert.Zero(t, m.Timer(later))
}

func TestPauseDoesNotReplay(t *testing.T) {
	m := NewMachine(nil)
	m.Start(epoch)
	require.NoError(t, m.Trigger(Celebrate, epoch))
	m.Tick(epoch.Add(100*time.Millisecond), false)

	// the loop stalls for ten seconds
	resumed := epoch.Add(10 * time.Second)
	pose, changed := m.Tick(resumed, false)
	assert.True(t, changed)
	assert.Equal(t, Idle, m.Current())
	assert.Equal(t, IdlePose(10), pose)
}

func TestTalkDropsToIdle(t *testing.T) {
	m := NewMachine(nil)
	m.Start(epoch)
	require.NoError(t, m.Trigger(Talk, epoch))

	_, changed := m.Tick(epoch.Add(time.Second), true)
	assert.False(t, changed)
	assert.Equal(t, Talk, m.Current())

	_, changed = m.Tick(epoch.Add(2*time.Second), false)
	assert.True(t, changed)
	assert.Equal(t, Idle, m.Current())
}

func TestUnknownTriggerKeepsState(t *testing.T) {
	m := NewMachine(nil)
	m.Start(epoch)
	require.NoError(t, m.Trigger(Think, epoch))

	err := m.Trigger(Name("juggle"), epoch.Add(time.Second))
	assert.ErrorIs(t, err, ErrUnknownGesture)
	assert.Equal(t, Think, m.Current())
	assert.Equal(t, time.Second, m.Timer(epoch.Add(time.Second)))
}

func TestHoldBlendsTowardTarget(t *testing.T) {
	m := NewMachine(nil)
	m.Start(epoch)
	require.NoError(t, m.Trigger(Wave, epoch))

	cfg, _ := m.Config(Wave)
	pose, _ := m.Tick(epoch.Add(cfg.EaseIn+cfg.Hold/2), false)
	assert.Greater(t, pose.Arms[1].Raise, 2.0, "right arm is up while waving")
	assert.Less(t, pose.Arms[0].Raise, 0.5)
}

func TestIdleAndTalkStayBounded(t *testing.T) {
	for s := 0.0; s < 120; s += 0.37 {
		for _, p := range []Pose{IdlePose(s), TalkPose(s)} {
			for _, a := range p.Arms {
				assert.Less(t, a.Raise, 0.5)
				assert.Less(t, a.Swing, 0.5)
			}
			assert.Less(t, p.Head.Pitch, 0.1)
		}
	}
}
