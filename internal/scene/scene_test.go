package scene

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeHierarchy(t *testing.T) {
	root := NewGroup("root")
	body := NewGroup("body").At(0, 1, 0)
	head := NewMesh("head", Sphere(0.2, 8, 6), Solid(1, 1, 1)).At(0, 0.5, 0)
	root.Add(body.Add(head))

	assert.Equal(t, 3, root.Count())
	assert.Same(t, head, root.Find("head"))
	assert.Same(t, body, head.Parent())
	assert.Nil(t, root.Find("tail"))

	world := head.WorldMatrix()
	assert.InDelta(t, 1.5, world.Col(3).Y(), 1e-6)

	moved := NewGroup("other")
	moved.Add(head)
	assert.Same(t, moved, head.Parent())
	assert.Empty(t, body.Children)
}

func TestWalkSkipsInvisible(t *testing.T) {
	root := NewGroup("root")
	hidden := NewGroup("hidden")
	hidden.Visible = false
	hidden.Add(NewGroup("child"))
	root.Add(hidden, NewGroup("shown"))

	var names []string
	root.Walk(func(n *Node, _ mgl32.Mat4) { names = append(names, n.Name) })
	assert.Equal(t, []string{"root", "shown"}, names)
}

func TestLocalMatrixRotation(t *testing.T) {
	n := NewGroup("arm")
	n.Rotation = mgl32.Vec3{0, 0, mgl32.DegToRad(90)}

	// a point hanging down rotates out to +X
	p := n.LocalMatrix().Mul4x1(mgl32.Vec4{0, -1, 0, 1})
	assert.InDelta(t, 1.0, p.X(), 1e-5)
	assert.InDelta(t, 0.0, p.Y(), 1e-5)
}

func TestGeometryIsCachedAndIndexed(t *testing.T) {
	tests := []struct {
		name string
		geom *Geometry
	}{
		{"sphere", Sphere(0.5, 12, 8)},
		{"hemisphere", Hemisphere(0.5, 12, 6)},
		{"box", Box(1, 2, 3)},
		{"cylinder", Cylinder(0.2, 0.3, 1, 10)},
		{"torus", Torus(1, 0.1, 6, 16)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotEmpty(t, tt.geom.Vertices)
			require.NotEmpty(t, tt.geom.Indices)
			assert.Zero(t, len(tt.geom.Indices)%3)
			for _, i := range tt.geom.Indices {
				require.Less(t, int(i), len(tt.geom.Vertices))
			}
		})
	}

	assert.Same(t, Sphere(0.5, 12, 8), Sphere(0.5, 12, 8))
	assert.NotSame(t, Sphere(0.5, 12, 8), Sphere(0.25, 12, 8))
}

func TestCameraOrbitKeepsDistance(t *testing.T) {
	c := NewPortraitCamera(1)
	before := c.Position.Sub(c.Target).Len()
	c.Orbit(30, 10)
	assert.InDelta(t, before, c.Position.Sub(c.Target).Len(), 1e-4)

	c.Zoom(100)
	assert.InDelta(t, 0.5, c.Position.Sub(c.Target).Len(), 1e-4)
}

func TestExportGLB(t *testing.T) {
	root := NewGroup("root")
	mat := Solid(0.2, 0.4, 0.8)
	root.Add(
		NewMesh("eye_l", Sphere(0.05, 8, 6), mat),
		NewMesh("eye_r", Sphere(0.05, 8, 6), mat),
		NewMesh("ring", Torus(0.6, 0.02, 6, 24), Glow(0.3, 0.8, 1, 0.8, 0.5)),
	)

	doc, err := Document(root)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 4)
	assert.Len(t, doc.Meshes, 2, "identical geometry and material share a mesh")
	assert.Len(t, doc.Materials, 2)

	path := filepath.Join(t.TempDir(), "rig.glb")
	require.NoError(t, ExportGLB(root, path))

	loaded, err := gltf.Open(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 4)
	assert.Equal(t, "root", loaded.Nodes[0].Name)

	_, err = Document(nil)
	assert.ErrorIs(t, err, ErrEmptyScene)
}
