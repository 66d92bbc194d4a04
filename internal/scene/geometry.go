package scene

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is the interleaved layout uploaded to the GPU.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

// Geometry is an indexed triangle list. Geometries are shared between
// nodes and must not be mutated after creation.
type Geometry struct {
	Key      string
	Vertices []Vertex
	Indices  []uint32
}

var (
	geomMu    sync.Mutex
	geomCache = map[string]*Geometry{}
)

func cached(key string, build func() *Geometry) *Geometry {
	geomMu.Lock()
	defer geomMu.Unlock()

	if g, ok := geomCache[key]; ok {
		return g
	}
	g := build()
	g.Key = key
	geomCache[key] = g
	return g
}

// Sphere returns a UV sphere.
func Sphere(radius float32, segments, rings int) *Geometry {
	key := fmt.Sprintf("sphere:%.4f:%d:%d", radius, segments, rings)
	return cached(key, func() *Geometry {
		return sphereSection(radius, segments, rings, math.Pi)
	})
}

// Hemisphere returns the upper half of a UV sphere, open at the bottom.
func Hemisphere(radius float32, segments, rings int) *Geometry {
	key := fmt.Sprintf("hemisphere:%.4f:%d:%d", radius, segments, rings)
	return cached(key, func() *Geometry {
		return sphereSection(radius, segments, rings, math.Pi/2)
	})
}

func sphereSection(radius float32, segments, rings int, maxPhi float64) *Geometry {
	g := &Geometry{}
	for y := 0; y <= rings; y++ {
		v := float64(y) / float64(rings)
		phi := v * maxPhi
		for x := 0; x <= segments; x++ {
			u := float64(x) / float64(segments)
			theta := u * 2 * math.Pi

			n := mgl32.Vec3{
				float32(math.Cos(theta) * math.Sin(phi)),
				float32(math.Cos(phi)),
				float32(math.Sin(theta) * math.Sin(phi)),
			}
			g.Vertices = append(g.Vertices, Vertex{
				Position: n.Mul(radius),
				Normal:   n,
				UV:       mgl32.Vec2{float32(u), float32(v)},
			})
		}
	}
	for y := 0; y < rings; y++ {
		for x := 0; x < segments; x++ {
			first := uint32(y*(segments+1) + x)
			second := first + uint32(segments+1)
			g.Indices = append(g.Indices, first, second, first+1)
			g.Indices = append(g.Indices, second, second+1, first+1)
		}
	}
	return g
}

// Box returns an axis-aligned box centred on the origin.
func Box(w, h, d float32) *Geometry {
	key := fmt.Sprintf("box:%.4f:%.4f:%.4f", w, h, d)
	return cached(key, func() *Geometry {
		hx, hy, hz := w/2, h/2, d/2
		faces := []struct {
			normal, u, v mgl32.Vec3
		}{
			{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{hx, 0, 0}, mgl32.Vec3{0, hy, 0}},
			{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-hx, 0, 0}, mgl32.Vec3{0, hy, 0}},
			{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -hz}, mgl32.Vec3{0, hy, 0}},
			{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, hz}, mgl32.Vec3{0, hy, 0}},
			{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{hx, 0, 0}, mgl32.Vec3{0, 0, -hz}},
			{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{hx, 0, 0}, mgl32.Vec3{0, 0, hz}},
		}
		half := mgl32.Vec3{hx, hy, hz}

		g := &Geometry{}
		for _, f := range faces {
			center := mgl32.Vec3{f.normal[0] * half[0], f.normal[1] * half[1], f.normal[2] * half[2]}
			base := uint32(len(g.Vertices))
			corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
			for _, c := range corners {
				g.Vertices = append(g.Vertices, Vertex{
					Position: center.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])),
					Normal:   f.normal,
					UV:       mgl32.Vec2{(c[0] + 1) / 2, (c[1] + 1) / 2},
				})
			}
			g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
		}
		return g
	})
}

// Cylinder returns a capped cylinder along Y centred on the origin.
func Cylinder(radiusTop, radiusBottom, height float32, segments int) *Geometry {
	key := fmt.Sprintf("cylinder:%.4f:%.4f:%.4f:%d", radiusTop, radiusBottom, height, segments)
	return cached(key, func() *Geometry {
		g := &Geometry{}
		half := height / 2
		slope := (radiusBottom - radiusTop) / height

		for i := 0; i <= segments; i++ {
			u := float64(i) / float64(segments)
			theta := u * 2 * math.Pi
			cx, cz := float32(math.Cos(theta)), float32(math.Sin(theta))
			n := mgl32.Vec3{cx, slope, cz}.Normalize()

			g.Vertices = append(g.Vertices,
				Vertex{Position: mgl32.Vec3{cx * radiusTop, half, cz * radiusTop}, Normal: n, UV: mgl32.Vec2{float32(u), 1}},
				Vertex{Position: mgl32.Vec3{cx * radiusBottom, -half, cz * radiusBottom}, Normal: n, UV: mgl32.Vec2{float32(u), 0}},
			)
		}
		for i := 0; i < segments; i++ {
			a := uint32(i * 2)
			g.Indices = append(g.Indices, a, a+1, a+2, a+1, a+3, a+2)
		}

		addCap := func(y, r, ny float32) {
			center := uint32(len(g.Vertices))
			g.Vertices = append(g.Vertices, Vertex{Position: mgl32.Vec3{0, y, 0}, Normal: mgl32.Vec3{0, ny, 0}, UV: mgl32.Vec2{0.5, 0.5}})
			for i := 0; i <= segments; i++ {
				theta := float64(i) / float64(segments) * 2 * math.Pi
				cx, cz := float32(math.Cos(theta)), float32(math.Sin(theta))
				g.Vertices = append(g.Vertices, Vertex{
					Position: mgl32.Vec3{cx * r, y, cz * r},
					Normal:   mgl32.Vec3{0, ny, 0},
					UV:       mgl32.Vec2{(cx + 1) / 2, (cz + 1) / 2},
				})
			}
			for i := uint32(1); i <= uint32(segments); i++ {
				if ny > 0 {
					g.Indices = append(g.Indices, center, center+i+1, center+i)
				} else {
					g.Indices = append(g.Indices, center, center+i, center+i+1)
				}
			}
		}
		addCap(half, radiusTop, 1)
		addCap(-half, radiusBottom, -1)
		return g
	})
}

// Torus returns a ring lying in the XZ plane.
func Torus(radius, tube float32, radialSegments, tubularSegments int) *Geometry {
	key := fmt.Sprintf("torus:%.4f:%.4f:%d:%d", radius, tube, radialSegments, tubularSegments)
	return cached(key, func() *Geometry {
		g := &Geometry{}
		for j := 0; j <= radialSegments; j++ {
			v := float64(j) / float64(radialSegments) * 2 * math.Pi
			for i := 0; i <= tubularSegments; i++ {
				u := float64(i) / float64(tubularSegments) * 2 * math.Pi

				center := mgl32.Vec3{float32(math.Cos(u)) * radius, 0, float32(math.Sin(u)) * radius}
				pos := mgl32.Vec3{
					float32((float64(radius) + float64(tube)*math.Cos(v)) * math.Cos(u)),
					float32(float64(tube) * math.Sin(v)),
					float32((float64(radius) + float64(tube)*math.Cos(v)) * math.Sin(u)),
				}
				g.Vertices = append(g.Vertices, Vertex{
					Position: pos,
					Normal:   pos.Sub(center).Normalize(),
					UV:       mgl32.Vec2{float32(i) / float32(tubularSegments), float32(j) / float32(radialSegments)},
				})
			}
		}
		row := uint32(tubularSegments + 1)
		for j := uint32(1); j <= uint32(radialSegments); j++ {
			for i := uint32(1); i <= uint32(tubularSegments); i++ {
				a := row*j + i - 1
				b := row*(j-1) + i - 1
				c := row*(j-1) + i
				d := row*j + i
				g.Indices = append(g.Indices, a, b, d, b, c, d)
			}
		}
		return g
	})
}
