package renderer

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/normanking/tutoravatar/internal/scene"
)

// floatsPerVertex is position, normal, uv.
const floatsPerVertex = 8

// Mesh is a geometry uploaded to the GPU.
type Mesh struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	IndexCount int32
}

// interleave flattens vertices into the layout the flat shader expects.
func interleave(vs []scene.Vertex) []float32 {
	out := make([]float32, 0, len(vs)*floatsPerVertex)
	for _, v := range vs {
		out = append(out, v.Position[0], v.Position[1], v.Position[2])
		out = append(out, v.Normal[0], v.Normal[1], v.Normal[2])
		out = append(out, v.UV[0], v.UV[1])
	}
	return out
}

// Upload creates GPU buffers for g. Requires a current GL context.
func Upload(g *scene.Geometry) *Mesh {
	m := &Mesh{IndexCount: int32(len(g.Indices))}
	data := interleave(g.Vertices)

	gl.GenVertexArrays(1, &m.VAO)
	gl.GenBuffers(1, &m.VBO)
	gl.GenBuffers(1, &m.EBO)

	gl.BindVertexArray(m.VAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.VBO)
	if len(data) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	}

	stride := int32(floatsPerVertex * 4)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 6*4)
	gl.EnableVertexAttribArray(2)

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.EBO)
	if len(g.Indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, gl.Ptr(g.Indices), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)
	return m
}

// Draw issues one indexed draw call.
func (m *Mesh) Draw() {
	gl.BindVertexArray(m.VAO)
	gl.DrawElements(gl.TRIANGLES, m.IndexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

// Delete releases the GPU buffers.
func (m *Mesh) Delete() {
	gl.DeleteVertexArrays(1, &m.VAO)
	gl.DeleteBuffers(1, &m.VBO)
	gl.DeleteBuffers(1, &m.EBO)
}

// MeshCache uploads each shared geometry once. Particles and paired parts
// reuse the same *scene.Geometry, so the rig needs only a handful of
// buffers.
type MeshCache struct {
	meshes map[*scene.Geometry]*Mesh
	upload func(*scene.Geometry) *Mesh
	delete func(*Mesh)
}

// NewMeshCache creates an empty cache backed by GL.
func NewMeshCache() *MeshCache {
	return &MeshCache{
		meshes: make(map[*scene.Geometry]*Mesh),
		upload: Upload,
		delete: (*Mesh).Delete,
	}
}

// Get returns the GPU mesh for g, uploading it on first use.
func (c *MeshCache) Get(g *scene.Geometry) *Mesh {
	if m, ok := c.meshes[g]; ok {
		return m
	}
	m := c.upload(g)
	c.meshes[g] = m
	return m
}

// Len returns the number of uploaded geometries.
func (c *MeshCache) Len() int {
	return len(c.meshes)
}

// Delete releases every cached mesh.
func (c *MeshCache) Delete() {
	for g, m := range c.meshes {
		c.delete(m)
		delete(c.meshes, g)
	}
}
