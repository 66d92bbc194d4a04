// Package rig builds the procedural tutor figure out of primitive meshes
// and keeps typed references to every part the animation layers drive.
package rig

import (
	"errors"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/normanking/tutoravatar/internal/scene"
)

// ErrNoSceneRoot is returned when there is no surface to attach the rig to.
var ErrNoSceneRoot = errors.New("rig: scene root unavailable")

// Side indexes paired parts.
const (
	Left  = 0
	Right = 1
)

// Options tunes the parts of the rig that are not fixed.
type Options struct {
	ParticleCount int
	Seed          int64
}

// DefaultOptions returns the stock particle field.
func DefaultOptions() Options {
	return Options{ParticleCount: 40, Seed: 7}
}

// Transform is a node's rest pose.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
}

type particle struct {
	node   *scene.Node
	base   mgl32.Vec3
	speed  float32
	phase  float32
	radius float32
}

// Parts is the registry of animatable nodes. A nil *Parts means the rig
// was never built and animation is disabled.
type Parts struct {
	Root     *scene.Node
	Head     *scene.Node
	Eyes     [2]*scene.Node
	Pupils   [2]*scene.Node
	Brows    [2]*scene.Node
	Lids     [2]*scene.Node
	Mouth    *scene.Node
	Body     *scene.Node
	Torso    *scene.Node
	Arms     [2]*scene.Node
	Hands    [2]*scene.Node
	Legs     [2]*scene.Node
	Platform *scene.Node
	GlowRing *scene.Node

	Particles *scene.Node
	particles []particle

	rest map[*scene.Node]Transform
}

// Palette
var (
	skin     = scene.Solid(0.93, 0.80, 0.68)
	eyeWhite = scene.Solid(0.98, 0.98, 0.98)
	pupil    = scene.Solid(0.08, 0.10, 0.16)
	brow     = scene.Solid(0.25, 0.17, 0.12)
	lip      = scene.Solid(0.45, 0.12, 0.14)
	shirt    = scene.Solid(0.18, 0.38, 0.72)
	trousers = scene.Solid(0.16, 0.18, 0.24)
	stage    = scene.Solid(0.12, 0.13, 0.18)
	glow     = scene.Glow(0.35, 0.85, 1.0, 0.8, 0.55)
	spark    = scene.Glow(0.7, 0.9, 1.0, 1.0, 0.8)
)

// Dimensions shared by the builder and the pose writers.
const (
	platformHeight = 0.06
	hipHeight      = 0.62
	shoulderX      = 0.26
	shoulderY      = 0.55
	headY          = 0.95
	eyeX           = 0.09
	eyeY           = 0.04
	eyeZ           = 0.22
	browY          = 0.12
	lidTravel      = 0.02
	mouthY         = -0.1
	fieldHeight    = 2.0
)

// Build adds the figure under root and returns the part registry. It does
// not start any timers.
func Build(root *scene.Node, opts Options) (*Parts, error) {
	if root == nil {
		return nil, ErrNoSceneRoot
	}
	if opts.ParticleCount < 0 {
		opts.ParticleCount = 0
	}

	p := &Parts{rest: make(map[*scene.Node]Transform)}
	p.Root = scene.NewGroup("avatar")

	p.Platform = scene.NewMesh("platform", scene.Cylinder(0.6, 0.64, platformHeight, 48), stage).
		At(0, platformHeight/2, 0)
	p.GlowRing = scene.NewMesh("glow_ring", scene.Torus(0.63, 0.015, 8, 64), glow).
		At(0, platformHeight+0.005, 0)

	p.Body = scene.NewGroup("body").At(0, hipHeight, 0)
	p.Torso = scene.NewMesh("torso", scene.Cylinder(0.2, 0.16, 0.6, 24), shirt).At(0, 0.3, 0)
	p.Body.Add(p.Torso)

	for side, sign := range [2]float32{1, -1} {
		suffix := sideName(side)

		p.Legs[side] = scene.NewMesh("leg_"+suffix, scene.Cylinder(0.07, 0.06, 0.55, 16), trousers).
			At(sign*0.1, platformHeight+0.275, 0)

		p.Arms[side] = scene.NewGroup("arm_"+suffix).At(sign*shoulderX, shoulderY, 0)
		upper := scene.NewMesh("upper_arm_"+suffix, scene.Cylinder(0.05, 0.045, 0.5, 16), shirt).At(0, -0.25, 0)
		p.Hands[side] = scene.NewMesh("hand_"+suffix, scene.Sphere(0.065, 16, 12), skin).At(0, -0.53, 0)
		p.Arms[side].Add(upper, p.Hands[side])
		p.Body.Add(p.Arms[side])
	}

	p.Head = scene.NewGroup("head").At(0, headY, 0)
	p.Head.Add(scene.NewMesh("skull", scene.Sphere(0.26, 32, 24), skin))
	p.Head.Add(scene.NewMesh("neck", scene.Cylinder(0.07, 0.08, 0.16, 16), skin).At(0, -0.28, 0))

	for side, sign := range [2]float32{1, -1} {
		suffix := sideName(side)

		p.Eyes[side] = scene.NewMesh("eye_"+suffix, scene.Sphere(0.05, 16, 12), eyeWhite).
			At(sign*eyeX, eyeY, eyeZ)
		p.Pupils[side] = scene.NewMesh("pupil_"+suffix, scene.Sphere(0.025, 12, 8), pupil).At(0, 0, 0.04)
		p.Eyes[side].Add(p.Pupils[side])

		p.Lids[side] = scene.NewMesh("lid_"+suffix, scene.Hemisphere(0.054, 16, 6), skin).
			At(sign*eyeX, eyeY, eyeZ)
		p.Brows[side] = scene.NewMesh("brow_"+suffix, scene.Box(0.09, 0.018, 0.02), brow).
			At(sign*eyeX, browY, eyeZ+0.015)

		p.Head.Add(p.Eyes[side], p.Lids[side], p.Brows[side])
	}

	p.Mouth = scene.NewMesh("mouth", scene.Box(0.12, 0.025, 0.02), lip).At(0, mouthY, 0.245)
	p.Head.Add(p.Mouth)
	p.Body.Add(p.Head)

	p.Particles = scene.NewGroup("particles")
	rng := rand.New(rand.NewSource(opts.Seed))
	for i := 0; i < opts.ParticleCount; i++ {
		radius := 0.35 + rng.Float32()*0.6
		angle := rng.Float32() * twoPi
		base := mgl32.Vec3{
			radius * float32Cos(angle),
			rng.Float32() * fieldHeight,
			radius * float32Sin(angle),
		}
		n := scene.NewMesh("particle", scene.Sphere(0.012, 6, 4), spark)
		n.Position = base
		p.Particles.Add(n)
		p.particles = append(p.particles, particle{
			node:   n,
			base:   base,
			speed:  0.05 + rng.Float32()*0.1,
			phase:  rng.Float32() * twoPi,
			radius: radius,
		})
	}

	p.Root.Add(p.Platform, p.GlowRing, p.Body, p.Particles)
	for _, leg := range p.Legs {
		p.Root.Add(leg)
	}
	root.Add(p.Root)

	p.capture(p.Root)
	return p, nil
}

func sideName(side int) string {
	if side == Left {
		return "l"
	}
	return "r"
}

func (p *Parts) capture(n *scene.Node) {
	p.rest[n] = Transform{Position: n.Position, Rotation: n.Rotation, Scale: n.Scale}
	for _, c := range n.Children {
		p.capture(c)
	}
}

// Rest returns the transform n had when the rig was built.
func (p *Parts) Rest(n *scene.Node) Transform {
	return p.rest[n]
}

// ParticleCount returns the number of particles in the ambient field.
func (p *Parts) ParticleCount() int {
	return len(p.particles)
}
