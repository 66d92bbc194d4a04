package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/tutoravatar/internal/scene"
)

func TestInterleave(t *testing.T) {
	g := scene.Box(1, 1, 1)
	data := interleave(g.Vertices)
	require.Len(t, data, len(g.Vertices)*floatsPerVertex)

	v := g.Vertices[1]
	row := data[floatsPerVertex : 2*floatsPerVertex]
	assert.Equal(t, []float32{
		v.Position[0], v.Position[1], v.Position[2],
		v.Normal[0], v.Normal[1], v.Normal[2],
		v.UV[0], v.UV[1],
	}, row)
}

func fakeCache() (*MeshCache, *int, *int) {
	uploads, deletes := 0, 0
	c := NewMeshCache()
	c.upload = func(g *scene.Geometry) *Mesh {
		uploads++
		return &Mesh{IndexCount: int32(len(g.Indices))}
	}
	c.delete = func(*Mesh) { deletes++ }
	return c, &uploads, &deletes
}

func TestMeshCacheUploadsSharedGeometryOnce(t *testing.T) {
	c, uploads, deletes := fakeCache()

	sphere := scene.Sphere(0.05, 16, 12)
	a := c.Get(sphere)
	b := c.Get(scene.Sphere(0.05, 16, 12))
	c.Get(scene.Box(0.1, 0.1, 0.1))

	assert.Same(t, a, b)
	assert.Equal(t, 2, *uploads)
	assert.Equal(t, 2, c.Len())

	c.Delete()
	assert.Equal(t, 2, *deletes)
	assert.Equal(t, 0, c.Len())
}

func TestCollectSplitsAndSortsTranslucent(t *testing.T) {
	root := scene.NewGroup("root")
	solid := scene.NewMesh("solid", scene.Box(1, 1, 1), scene.Solid(1, 0, 0))
	near := scene.NewMesh("near", scene.Box(1, 1, 1), scene.Glow(0, 1, 0, 1, 0.5)).At(0, 0, 1)
	far := scene.NewMesh("far", scene.Box(1, 1, 1), scene.Glow(0, 0, 1, 1, 0.5)).At(0, 0, -3)
	hidden := scene.NewMesh("hidden", scene.Box(1, 1, 1), scene.Solid(1, 1, 1))
	hidden.Visible = false
	clear := scene.NewMesh("clear", scene.Box(1, 1, 1), scene.Glow(1, 1, 1, 0, 0))
	root.Add(near, solid, far, hidden, clear, scene.NewGroup("empty"))

	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	opaque, translucent := collect(root, view)

	require.Len(t, opaque, 1)
	assert.Equal(t, "solid", opaque[0].node.Name)

	require.Len(t, translucent, 2)
	assert.Equal(t, "far", translucent[0].node.Name, "farthest first")
	assert.Equal(t, "near", translucent[1].node.Name)
}

func TestCollectNilRoot(t *testing.T) {
	opaque, translucent := collect(nil, mgl32.Ident4())
	assert.Empty(t, opaque)
	assert.Empty(t, translucent)
}

func TestOrbitControls(t *testing.T) {
	cam := scene.NewPortraitCamera(1)
	start := cam.Position
	dist := start.Sub(cam.Target).Len()
	o := NewOrbitControls(cam)

	o.Move(100, 0)
	assert.Equal(t, start, cam.Position, "no drag, no orbit")

	o.Press(0, 0)
	o.Move(100, 0)
	assert.NotEqual(t, start, cam.Position)
	assert.InDelta(t, dist, cam.Position.Sub(cam.Target).Len(), 1e-4, "orbit keeps distance")

	o.Release()
	moved := cam.Position
	o.Move(300, 300)
	assert.Equal(t, moved, cam.Position)

	o.Scroll(2)
	assert.InDelta(t, dist-0.5, cam.Position.Sub(cam.Target).Len(), 1e-4)
}

func TestStudioLightingFitsShader(t *testing.T) {
	rig := NewStudioLighting()
	assert.LessOrEqual(t, len(rig.Lights), maxLights)
	for _, l := range rig.Lights {
		assert.Greater(t, l.Intensity, float32(0))
	}
}
