package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ErrEmptyScene is returned when exporting a nil root.
var ErrEmptyScene = errors.New("scene: nothing to export")

type meshKey struct {
	geometry string
	material Material
}

type exporter struct {
	doc       *gltf.Document
	buffers   map[string][3]int // position, normal, indices accessors
	materials map[Material]int
	meshes    map[meshKey]int
}

// ExportGLB writes the subtree rooted at root as a binary glTF file.
// Identical geometries share accessors and identical materials are
// written once.
func ExportGLB(root *Node, path string) error {
	doc, err := Document(root)
	if err != nil {
		return err
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("save glb: %w", err)
	}
	return nil
}

// Document converts the subtree rooted at root into a glTF document.
func Document(root *Node) (*gltf.Document, error) {
	if root == nil {
		return nil, ErrEmptyScene
	}
	e := &exporter{
		doc:       gltf.NewDocument(),
		buffers:   map[string][3]int{},
		materials: map[Material]int{},
		meshes:    map[meshKey]int{},
	}
	idx := e.node(root)
	e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, idx)
	return e.doc, nil
}

func (e *exporter) node(n *Node) int {
	q := mgl32.Mat4ToQuat(n.rotationMatrix()).Normalize()
	gn := &gltf.Node{
		Name:        n.Name,
		Translation: [3]float64{float64(n.Position[0]), float64(n.Position[1]), float64(n.Position[2])},
		Rotation:    [4]float64{float64(q.V[0]), float64(q.V[1]), float64(q.V[2]), float64(q.W)},
		Scale:       [3]float64{float64(n.Scale[0]), float64(n.Scale[1]), float64(n.Scale[2])},
	}
	if n.Kind == KindMesh && n.Geometry != nil {
		gn.Mesh = gltf.Index(e.mesh(n))
	}

	idx := len(e.doc.Nodes)
	e.doc.Nodes = append(e.doc.Nodes, gn)
	for _, c := range n.Children {
		gn.Children = append(gn.Children, e.node(c))
	}
	return idx
}

func (e *exporter) mesh(n *Node) int {
	key := meshKey{geometry: n.Geometry.Key, material: n.Material}
	if idx, ok := e.meshes[key]; ok {
		return idx
	}

	acc := e.accessors(n.Geometry)
	prim := &gltf.Primitive{
		Indices: gltf.Index(acc[2]),
		Attributes: map[string]int{
			gltf.POSITION: acc[0],
			gltf.NORMAL:   acc[1],
		},
		Material: gltf.Index(e.material(n.Material)),
	}

	idx := len(e.doc.Meshes)
	e.doc.Meshes = append(e.doc.Meshes, &gltf.Mesh{Name: n.Name, Primitives: []*gltf.Primitive{prim}})
	e.meshes[key] = idx
	return idx
}

func (e *exporter) accessors(g *Geometry) [3]int {
	if acc, ok := e.buffers[g.Key]; ok && g.Key != "" {
		return acc
	}
	positions := make([][3]float32, len(g.Vertices))
	normals := make([][3]float32, len(g.Vertices))
	for i, v := range g.Vertices {
		positions[i] = [3]float32(v.Position)
		normals[i] = [3]float32(v.Normal)
	}
	acc := [3]int{
		modeler.WritePosition(e.doc, positions),
		modeler.WriteNormal(e.doc, normals),
		modeler.WriteIndices(e.doc, g.Indices),
	}
	if g.Key != "" {
		e.buffers[g.Key] = acc
	}
	return acc
}

func (e *exporter) material(m Material) int {
	if idx, ok := e.materials[m]; ok {
		return idx
	}
	mat := &gltf.Material{
		Name: fmt.Sprintf("material_%d", len(e.doc.Materials)),
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{float64(m.Color[0]), float64(m.Color[1]), float64(m.Color[2]), float64(m.Opacity)},
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(0.6),
		},
		EmissiveFactor: [3]float64{
			float64(m.Color[0] * m.Emissive),
			float64(m.Color[1] * m.Emissive),
			float64(m.Color[2] * m.Emissive),
		},
	}
	if m.Opacity < 1 {
		mat.AlphaMode = gltf.AlphaBlend
	}

	idx := len(e.doc.Materials)
	e.doc.Materials = append(e.doc.Materials, mat)
	e.materials[m] = idx
	return idx
}
