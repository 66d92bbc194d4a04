// Package renderer draws the scene graph in a GLFW window with OpenGL 4.1.
// All methods must be called from the thread that called Init, which for
// GLFW means the main OS thread.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/normanking/tutoravatar/internal/config"
	"github.com/normanking/tutoravatar/internal/scene"
)

// ErrNoDisplay is returned by Init when no window system is available.
var ErrNoDisplay = errors.New("renderer: no display available")

// Init initialises GLFW. Callers treat a failure as a headless host.
func Init() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("%w: %v", ErrNoDisplay, err)
	}
	return nil
}

// Terminate releases GLFW.
func Terminate() {
	glfw.Terminate()
}

// Renderer owns the window, shader and GPU meshes.
type Renderer struct {
	window *glfw.Window
	cfg    config.RenderConfig
	logger zerolog.Logger

	shader   *Shader
	watcher  *ShaderWatcher
	lights   *LightingRig
	camera   *scene.Camera
	meshes   *MeshCache
	controls *OrbitControls

	projection mgl32.Mat4
	view       mgl32.Mat4

	drawCalls int
	triangles int
}

// New opens the window and compiles the shader. Init must have succeeded.
func New(cfg config.RenderConfig, logger zerolog.Logger) (*Renderer, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	if cfg.MSAA > 0 {
		glfw.WindowHint(glfw.Samples, cfg.MSAA)
	}

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		return nil, fmt.Errorf("gl init: %w", err)
	}
	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	r := &Renderer{
		window: window,
		cfg:    cfg,
		logger: logger,
		lights: NewStudioLighting(),
		meshes: NewMeshCache(),
	}

	r.shader, err = LoadFlatShader(cfg.ShaderDir, logger)
	if err != nil {
		window.Destroy()
		return nil, fmt.Errorf("init shader: %w", err)
	}
	if cfg.HotReload && r.shader.vertPath != "" {
		r.watcher, err = NewShaderWatcher(logger)
		if err == nil {
			err = r.watcher.Watch(r.shader)
		}
		if err != nil {
			logger.Warn().Err(err).Msg("Shader hot reload disabled")
		}
	}

	fbW, fbH := window.GetFramebufferSize()
	r.camera = scene.NewPortraitCamera(float32(fbW) / float32(max(fbH, 1)))
	r.controls = NewOrbitControls(r.camera)
	r.controls.Attach(window)

	window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		gl.Viewport(0, 0, int32(w), int32(h))
		if h > 0 {
			r.camera.SetAspectRatio(float32(w) / float32(h))
		}
	})

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	if cfg.MSAA > 0 {
		gl.Enable(gl.MULTISAMPLE)
	}

	logger.Info().
		Int("width", fbW).
		Int("height", fbH).
		Str("gl", gl.GoStr(gl.GetString(gl.VERSION))).
		Msg("Renderer initialized")
	return r, nil
}

// Camera returns the orbit camera.
func (r *Renderer) Camera() *scene.Camera {
	return r.camera
}

// Draw renders root: opaque meshes first, then translucent ones back to
// front with depth writes off.
func (r *Renderer) Draw(root *scene.Node) {
	if r.watcher != nil {
		r.watcher.Apply()
	}
	r.drawCalls = 0
	r.triangles = 0

	gl.ClearColor(0.05, 0.06, 0.09, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	r.projection = r.camera.ProjectionMatrix()
	r.view = r.camera.ViewMatrix()

	r.shader.Use()
	r.shader.SetMat4("uProjection", r.projection)
	r.shader.SetMat4("uView", r.view)
	r.shader.SetVec3("uCameraPos", r.camera.Position)
	r.lights.SetLightUniforms(r.shader)

	opaque, translucent := collect(root, r.view)
	for _, item := range opaque {
		r.drawItem(item)
	}

	if len(translucent) > 0 {
		gl.Enable(gl.BLEND)
		gl.DepthMask(false)
		for _, item := range translucent {
			r.drawItem(item)
		}
		gl.DepthMask(true)
		gl.Disable(gl.BLEND)
	}
}

func (r *Renderer) drawItem(item drawItem) {
	mat := item.node.Material
	r.shader.SetMat4("uModel", item.world)
	r.shader.SetVec3("uColor", mat.Color)
	r.shader.SetFloat("uEmissive", mat.Emissive)
	r.shader.SetFloat("uOpacity", mat.Opacity)

	mesh := r.meshes.Get(item.node.Geometry)
	mesh.Draw()

	r.drawCalls++
	r.triangles += int(mesh.IndexCount / 3)
}

// Present swaps buffers and polls window events.
func (r *Renderer) Present() {
	r.window.SwapBuffers()
	glfw.PollEvents()
}

// ShouldClose reports whether the user closed the window.
func (r *Renderer) ShouldClose() bool {
	return r.window.ShouldClose()
}

// Stats returns draw calls and triangles for the last frame.
func (r *Renderer) Stats() (drawCalls, triangles int) {
	return r.drawCalls, r.triangles
}

// Loop ticks and draws root until the window closes or ctx ends. tick runs
// before each draw with the frame time.
func (r *Renderer) Loop(ctx context.Context, root *scene.Node, tick func(now time.Time)) {
	fpsTimer := time.Now()
	frames := 0
	for !r.ShouldClose() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now()
		tick(now)
		r.Draw(root)
		r.Present()

		frames++
		if now.Sub(fpsTimer) >= 5*time.Second {
			calls, tris := r.Stats()
			r.logger.Debug().
				Float64("fps", float64(frames)/now.Sub(fpsTimer).Seconds()).
				Int("draw_calls", calls).
				Int("triangles", tris).
				Int("meshes", r.meshes.Len()).
				Msg("Render stats")
			frames = 0
			fpsTimer = now
		}
	}
}

// Shutdown releases GPU resources and the window.
func (r *Renderer) Shutdown() {
	if r.watcher != nil {
		r.watcher.Close()
	}
	r.meshes.Delete()
	r.shader.Delete()
	r.window.Destroy()
}
