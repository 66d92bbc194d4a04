package rig

import "math"

const twoPi = 2 * math.Pi

// Ambient motion rates, in Hz unless noted.
const (
	breathRate      = 0.22
	breathAmplitude = 0.012
	ringSpin        = 0.25 // rad/s
	glowBase        = 0.65
	glowSwing       = 0.25
)

// Animate applies the idle ambient motion for absolute time t seconds:
// torso breathing, platform glow pulse, ring rotation and particle drift.
// Everything is a function of t alone, so a paused loop resumes without
// a catch-up burst.
func (p *Parts) Animate(t float64) {
	breath := math.Sin(t * breathRate * twoPi)
	torso := p.rest[p.Torso]
	p.Torso.Scale[0] = torso.Scale[0] * float32(1+breath*breathAmplitude)
	p.Torso.Scale[1] = torso.Scale[1] * float32(1+breath*breathAmplitude*0.6)
	p.Torso.Scale[2] = torso.Scale[2] * float32(1+breath*breathAmplitude)

	p.GlowRing.Rotation[1] = float32(math.Mod(t*ringSpin, twoPi))
	p.GlowRing.Material.Emissive = clamp32(float32(glowBase+glowSwing*noise(t*0.7, 11.3)), 0, 1)

	for i := range p.particles {
		pt := &p.particles[i]
		rise := math.Mod(float64(pt.base[1])+t*float64(pt.speed), fieldHeight)
		wobble := 0.03 * math.Sin(t*0.8+float64(pt.phase))

		pt.node.Position[0] = pt.base[0] + float32(wobble)
		pt.node.Position[1] = float32(rise)
		pt.node.Position[2] = pt.base[2] + float32(wobble*0.5)

		// fade in at the floor and out at the top of the field
		edge := math.Min(rise, fieldHeight-rise) / 0.3
		pt.node.Material.Opacity = clamp32(float32(edge), 0, 1) * 0.8
	}
}

// noise is a smooth pseudo-random signal in roughly [-1, 1] built from
// incommensurate sines.
func noise(t, offset float64) float64 {
	t += offset
	return (math.Sin(t) + 0.5*math.Sin(t*2.3+1.7) + 0.25*math.Sin(t*4.1+3.2)) / 1.75
}

func float32Cos(a float32) float32 { return float32(math.Cos(float64(a))) }
func float32Sin(a float32) float32 { return float32(math.Sin(float64(a))) }
