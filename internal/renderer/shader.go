package renderer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
)

// Shader file names looked up in the configured shader directory.
const (
	VertFile = "flat.vert"
	FragFile = "flat.frag"
)

// ErrNotFromFiles is returned when reloading a shader built from source.
var ErrNotFromFiles = errors.New("shader was not loaded from files")

// Shader represents a compiled OpenGL shader program
type Shader struct {
	ID uint32

	vertPath string
	fragPath string

	uniforms map[string]int32
}

// NewShaderFromFiles loads and compiles shaders from files
func NewShaderFromFiles(vertPath, fragPath string) (*Shader, error) {
	vertSrc, err := os.ReadFile(vertPath)
	if err != nil {
		return nil, fmt.Errorf("read vertex shader %s: %w", vertPath, err)
	}
	fragSrc, err := os.ReadFile(fragPath)
	if err != nil {
		return nil, fmt.Errorf("read fragment shader %s: %w", fragPath, err)
	}

	shader, err := NewShaderFromSource(terminate(string(vertSrc)), terminate(string(fragSrc)))
	if err != nil {
		return nil, err
	}
	shader.vertPath = vertPath
	shader.fragPath = fragPath
	return shader, nil
}

func terminate(src string) string {
	if strings.HasSuffix(src, "\x00") {
		return src
	}
	return src + "\x00"
}

// NewShaderFromSource compiles shaders from source strings
func NewShaderFromSource(vertSrc, fragSrc string) (*Shader, error) {
	vertShader, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return nil, fmt.Errorf("link failed: %s", log)
	}

	return &Shader{ID: program, uniforms: make(map[string]int32)}, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		typeName := "vertex"
		if shaderType == gl.FRAGMENT_SHADER {
			typeName = "fragment"
		}
		return 0, fmt.Errorf("%s compile error: %s", typeName, log)
	}

	return shader, nil
}

// LoadFlatShader loads flat.vert and flat.frag from dir, falling back to
// the built-in source when dir is empty or the files do not compile.
func LoadFlatShader(dir string, logger zerolog.Logger) (*Shader, error) {
	if dir != "" {
		s, err := NewShaderFromFiles(filepath.Join(dir, VertFile), filepath.Join(dir, FragFile))
		if err == nil {
			return s, nil
		}
		logger.Warn().Err(err).Str("dir", dir).Msg("Using built-in shader")
	}
	return NewShaderFromSource(flatVertSrc, flatFragSrc)
}

// Use activates this shader program
func (s *Shader) Use() {
	gl.UseProgram(s.ID)
}

// Delete releases shader resources
func (s *Shader) Delete() {
	gl.DeleteProgram(s.ID)
}

// Reload recompiles the shader from its source files. On failure the old
// program stays active.
func (s *Shader) Reload() error {
	if s.vertPath == "" || s.fragPath == "" {
		return ErrNotFromFiles
	}
	next, err := NewShaderFromFiles(s.vertPath, s.fragPath)
	if err != nil {
		return err
	}

	old := s.ID
	s.ID = next.ID
	s.uniforms = make(map[string]int32)
	gl.DeleteProgram(old)
	return nil
}

// Render thread only; no locking.
func (s *Shader) location(name string) int32 {
	if loc, ok := s.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(s.ID, gl.Str(name+"\x00"))
	s.uniforms[name] = loc
	return loc
}

// SetInt sets an integer uniform
func (s *Shader) SetInt(name string, value int32) {
	gl.Uniform1i(s.location(name), value)
}

// SetFloat sets a float uniform
func (s *Shader) SetFloat(name string, value float32) {
	gl.Uniform1f(s.location(name), value)
}

// SetVec3 sets a vec3 uniform
func (s *Shader) SetVec3(name string, v mgl32.Vec3) {
	gl.Uniform3fv(s.location(name), 1, &v[0])
}

// SetMat4 sets a mat4 uniform
func (s *Shader) SetMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(s.location(name), 1, false, &m[0])
}

// ShaderWatcher queues reloads when shader files change. GL calls must stay
// on the render thread, so the watcher only records which shaders are
// stale and Apply does the work once per frame.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	mu      sync.Mutex
	shaders map[string]*Shader // path -> shader
	stale   map[*Shader]struct{}
	done    chan struct{}
}

// NewShaderWatcher creates a new shader watcher
func NewShaderWatcher(logger zerolog.Logger) (*ShaderWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	sw := &ShaderWatcher{
		watcher: w,
		logger:  logger,
		shaders: make(map[string]*Shader),
		stale:   make(map[*Shader]struct{}),
		done:    make(chan struct{}),
	}
	go sw.watchLoop()
	return sw, nil
}

// Watch adds a file-backed shader.
func (sw *ShaderWatcher) Watch(shader *Shader) error {
	if shader.vertPath == "" || shader.fragPath == "" {
		return ErrNotFromFiles
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	vertDir := filepath.Dir(shader.vertPath)
	if err := sw.watcher.Add(vertDir); err != nil {
		return err
	}
	if fragDir := filepath.Dir(shader.fragPath); fragDir != vertDir {
		if err := sw.watcher.Add(fragDir); err != nil {
			return err
		}
	}

	sw.shaders[filepath.Clean(shader.vertPath)] = shader
	sw.shaders[filepath.Clean(shader.fragPath)] = shader
	return nil
}

func (sw *ShaderWatcher) watchLoop() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				sw.mark(event.Name)
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn().Err(err).Msg("Shader watcher error")
		}
	}
}

func (sw *ShaderWatcher) mark(path string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if s, ok := sw.shaders[filepath.Clean(path)]; ok {
		sw.stale[s] = struct{}{}
	}
}

// Pending returns the number of shaders waiting to be reloaded.
func (sw *ShaderWatcher) Pending() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return len(sw.stale)
}

// Apply reloads every stale shader. Call from the render thread.
func (sw *ShaderWatcher) Apply() {
	sw.mu.Lock()
	stale := sw.stale
	sw.stale = make(map[*Shader]struct{})
	sw.mu.Unlock()

	for s := range stale {
		if err := s.Reload(); err != nil {
			sw.logger.Error().Err(err).Msg("Shader reload failed")
			continue
		}
		sw.logger.Info().Str("vert", s.vertPath).Str("frag", s.fragPath).Msg("Shader reloaded")
	}
}

// Close stops the shader watcher
func (sw *ShaderWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}

var flatVertSrc = `#version 410 core

layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec2 aTexCoord;

out vec3 vPosition;
out vec3 vNormal;

uniform mat4 uModel;
uniform mat4 uView;
uniform mat4 uProjection;

void main() {
    vec4 worldPos = uModel * vec4(aPosition, 1.0);
    vPosition = worldPos.xyz;
    vNormal = normalize(transpose(inverse(mat3(uModel))) * aNormal);
    gl_Position = uProjection * uView * worldPos;
}
` + "\x00"

var flatFragSrc = `#version 410 core

in vec3 vPosition;
in vec3 vNormal;

out vec4 FragColor;

uniform vec3 uCameraPos;
uniform vec3 uColor;
uniform float uEmissive;
uniform float uOpacity;

struct Light {
    vec3 position;
    vec3 color;
    float intensity;
};

#define MAX_LIGHTS 4
uniform Light uLights[MAX_LIGHTS];
uniform int uLightCount;
uniform vec3 uAmbientColor;

void main() {
    vec3 N = normalize(vNormal);
    vec3 V = normalize(uCameraPos - vPosition);

    vec3 Lo = vec3(0.0);
    for (int i = 0; i < uLightCount && i < MAX_LIGHTS; i++) {
        vec3 L = normalize(uLights[i].position - vPosition);
        float distance = length(uLights[i].position - vPosition);
        float attenuation = 1.0 / (distance * distance);

        float NdotL = max(dot(N, L), 0.0);
        vec3 H = normalize(V + L);
        float highlight = pow(max(dot(N, H), 0.0), 24.0) * 0.15;

        vec3 radiance = uLights[i].color * uLights[i].intensity * attenuation;
        Lo += (uColor * NdotL + vec3(highlight)) * radiance;
    }

    vec3 color = uAmbientColor * uColor + Lo + uColor * uEmissive;
    color = pow(color / (color + vec3(1.0)), vec3(1.0 / 2.2));
    FragColor = vec4(color, uOpacity);
}
` + "\x00"
