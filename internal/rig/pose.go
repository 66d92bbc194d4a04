package rig

// The writers below are the only code that touches rig transforms after
// Build. They all express values as offsets from the rest pose.

// SetBrow places one eyebrow. A positive angle lifts the inner end.
func (p *Parts) SetBrow(side int, angle, offset float64) {
	n := p.Brows[side]
	rest := p.rest[n]
	sign := float32(-1)
	if side == Right {
		sign = 1
	}
	n.Rotation[2] = rest.Rotation[2] + sign*float32(angle)
	n.Position[1] = rest.Position[1] + float32(offset)
}

// SetLid renders eyelid openness: 1 is fully open with the lid tucked
// above the eye, 0 is closed, values above 1 widen the eye.
func (p *Parts) SetLid(side int, openness float64) {
	n := p.Lids[side]
	rest := p.rest[n]
	o := clamp32(float32(openness), 0, 1.2)
	closure := clamp32(1-o, 0, 1)

	n.Scale[1] = rest.Scale[1] * (0.08 + 0.92*closure)
	n.Position[1] = rest.Position[1] + lidTravel*o
}

// SetMouthWidth scales the mouth horizontally.
func (p *Parts) SetMouthWidth(width float64) {
	n := p.Mouth
	n.Scale[0] = p.rest[n].Scale[0] * clamp32(float32(width), 0.05, 2)
}

// SetMouthOpen scales the mouth vertically from a [0,1] aperture.
func (p *Parts) SetMouthOpen(aperture float64) {
	n := p.Mouth
	a := clamp32(float32(aperture), 0, 1)
	n.Scale[1] = p.rest[n].Scale[1] * (1 + 3.2*a)
}

// SetArm poses one arm. Raise lifts the arm sideways away from the body,
// swing brings it forward. Both are radians.
func (p *Parts) SetArm(side int, raise, swing float64) {
	n := p.Arms[side]
	rest := p.rest[n]
	sign := float32(1)
	if side == Right {
		sign = -1
	}
	n.Rotation[2] = rest.Rotation[2] + sign*float32(raise)
	n.Rotation[0] = rest.Rotation[0] - float32(swing)
}

// SetHead tilts the head. Positive pitch looks down, positive roll tilts
// toward the figure's left shoulder.
func (p *Parts) SetHead(pitch, roll float64) {
	n := p.Head
	rest := p.rest[n]
	n.Rotation[0] = rest.Rotation[0] + float32(pitch)
	n.Rotation[2] = rest.Rotation[2] + float32(roll)
}

// SetLift raises the whole body above its rest height.
func (p *Parts) SetLift(lift float64) {
	n := p.Body
	n.Position[1] = p.rest[n].Position[1] + float32(lift)
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
