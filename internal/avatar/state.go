package avatar

import (
	"github.com/normanking/tutoravatar/internal/expression"
	"github.com/normanking/tutoravatar/internal/gesture"
)

// State is a snapshot of the controller for observers and the dashboard.
type State struct {
	Ready          bool    `json:"ready"`
	Emotion        string  `json:"emotion"`
	Gesture        string  `json:"gesture"`
	GestureTimerMs float64 `json:"gesture_timer_ms"`
	IsTalking      bool    `json:"is_talking"`

	ExpressionCurrent expression.Values `json:"expression_current"`
	ExpressionTarget  expression.Values `json:"expression_target"`
	RenderedLids      [2]float64        `json:"rendered_lids"`

	MouthOpenCurrent float64 `json:"mouth_open_current"`
	MouthOpenTarget  float64 `json:"mouth_open_target"`

	PoseCurrent gesture.Pose `json:"pose_current"`
	PoseTarget  gesture.Pose `json:"pose_target"`
}

// State returns a copy of the controller state as of the last Tick.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Ready:             c.ready,
		Emotion:           string(c.blender.Emotion()),
		Gesture:           string(c.machine.Current()),
		IsTalking:         c.talking,
		ExpressionCurrent: c.blender.Current(),
		ExpressionTarget:  c.blender.Target(),
		RenderedLids:      c.blender.RenderedLids(c.blink),
		MouthOpenCurrent:  c.mouth,
		MouthOpenTarget:   c.mouthTarget,
		PoseCurrent:       c.pose,
		PoseTarget:        c.poseTarget,
	}
	if c.ticked {
		s.GestureTimerMs = float64(c.machine.Timer(c.lastTick).Microseconds()) / 1000
	}
	return s
}
