package renderer

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/normanking/tutoravatar/internal/scene"
)

type drawItem struct {
	node  *scene.Node
	world mgl32.Mat4
	depth float32 // view-space z, more negative is farther
}

// collect splits the visible meshes under root into an opaque list in tree
// order and a translucent list sorted back to front.
func collect(root *scene.Node, view mgl32.Mat4) (opaque, translucent []drawItem) {
	if root == nil {
		return nil, nil
	}
	root.Walk(func(n *scene.Node, world mgl32.Mat4) {
		if n.Kind != scene.KindMesh || n.Geometry == nil || n.Material.Opacity <= 0 {
			return
		}
		item := drawItem{node: n, world: world}
		if n.Material.Opacity < 1 {
			item.depth = view.Mul4(world).Col(3).Z()
			translucent = append(translucent, item)
			return
		}
		opaque = append(opaque, item)
	})

	sort.SliceStable(translucent, func(i, j int) bool {
		return translucent[i].depth < translucent[j].depth
	})
	return opaque, translucent
}
