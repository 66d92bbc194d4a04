package renderer

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/normanking/tutoravatar/internal/scene"
)

// OrbitControls turns a left-drag into camera orbit and the scroll wheel
// into zoom.
type OrbitControls struct {
	camera *scene.Camera

	// Degrees per pixel of drag.
	Sensitivity float32
	// Metres per scroll notch.
	ZoomStep float32

	dragging     bool
	lastX, lastY float64
}

// NewOrbitControls attaches controls to cam.
func NewOrbitControls(cam *scene.Camera) *OrbitControls {
	return &OrbitControls{camera: cam, Sensitivity: 0.3, ZoomStep: 0.25}
}

// Press starts a drag at the cursor position.
func (o *OrbitControls) Press(x, y float64) {
	o.dragging = true
	o.lastX, o.lastY = x, y
}

// Release ends a drag.
func (o *OrbitControls) Release() {
	o.dragging = false
}

// Move orbits by the distance since the last cursor event while dragging.
func (o *OrbitControls) Move(x, y float64) {
	if !o.dragging {
		return
	}
	dx, dy := x-o.lastX, y-o.lastY
	o.lastX, o.lastY = x, y
	o.camera.Orbit(-float32(dx)*o.Sensitivity, -float32(dy)*o.Sensitivity)
}

// Scroll zooms in for positive offsets.
func (o *OrbitControls) Scroll(dy float64) {
	o.camera.Zoom(float32(dy) * o.ZoomStep)
}

// Attach wires the controls to window callbacks.
func (o *OrbitControls) Attach(w *glfw.Window) {
	w.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			o.Press(w.GetCursorPos())
		case glfw.Release:
			o.Release()
		}
	})
	w.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		o.Move(x, y)
	})
	w.SetScrollCallback(func(_ *glfw.Window, _, dy float64) {
		o.Scroll(dy)
	})
}
