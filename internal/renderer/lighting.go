package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// maxLights matches MAX_LIGHTS in the flat shader.
const maxLights = 4

// Light is a point light.
type Light struct {
	Position  mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
}

// LightingRig represents a collection of lights for a scene
type LightingRig struct {
	Lights       []Light
	AmbientColor mgl32.Vec3
}

// Colour temperatures used by the presets.
var (
	warmKey  = mgl32.Vec3{1.0, 0.96, 0.91}
	coolFill = mgl32.Vec3{0.95, 0.97, 1.0}
	rimBlue  = mgl32.Vec3{0.55, 0.8, 1.0}
)

// NewStudioLighting is a three-point setup framed on a standing figure:
// warm key front right, cool fill front left, blue rim behind to pick the
// silhouette out of the dark stage.
func NewStudioLighting() *LightingRig {
	return &LightingRig{
		Lights: []Light{
			{Position: mgl32.Vec3{1.6, 2.2, 2.2}, Color: warmKey, Intensity: 14},
			{Position: mgl32.Vec3{-1.8, 1.4, 1.8}, Color: coolFill, Intensity: 6},
			{Position: mgl32.Vec3{0, 2.4, -1.6}, Color: rimBlue, Intensity: 8},
		},
		AmbientColor: mgl32.Vec3{0.16, 0.16, 0.2},
	}
}

// SetLightUniforms sets light uniforms on a shader. Lights past the
// shader's limit are ignored.
func (rig *LightingRig) SetLightUniforms(s *Shader) {
	n := min(len(rig.Lights), maxLights)
	for i, light := range rig.Lights[:n] {
		prefix := fmt.Sprintf("uLights[%d].", i)
		s.SetVec3(prefix+"position", light.Position)
		s.SetVec3(prefix+"color", light.Color)
		s.SetFloat(prefix+"intensity", light.Intensity)
	}
	s.SetInt("uLightCount", int32(n))
	s.SetVec3("uAmbientColor", rig.AmbientColor)
}
