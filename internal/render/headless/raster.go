package headless

import (
	"math"

	"prefabpreview/internal/components"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// boxTriangles indexes geom.AABB.Corners order, two triangles per face.
var boxTriangles = [12][3]int{
	{0, 1, 2}, {0, 2, 3}, // bottom
	{4, 5, 6}, {4, 6, 7}, // top
	{3, 2, 6}, {3, 6, 7}, // +Z
	{0, 1, 5}, {0, 5, 4}, // -Z
	{0, 3, 7}, {0, 7, 4}, // -X
	{1, 2, 6}, {1, 6, 5}, // +X
}

type screenVertex struct {
	x, y float64
	z    float64 // 0 at near, 1 at far
}

type rasterizer struct {
	target *Target
	cam    *components.PreviewCamera
}

// project maps a world point to pixel space, row 0 at the top.
func (r *rasterizer) project(p rl.Vector3) screenVertex {
	vx, vy, depth := r.cam.WorldToView(p)
	hw := float64(r.cam.HalfWidth())
	hh := float64(r.cam.HalfHeight)
	w, h := float64(r.target.width), float64(r.target.height)
	near, far := float64(r.cam.Near), float64(r.cam.Far)

	return screenVertex{
		x: (float64(vx) + hw) / (2 * hw) * w,
		y: (hh - float64(vy)) / (2 * hh) * h,
		z: (float64(depth) - near) / (far - near),
	}
}

func (r *rasterizer) drawBox(corners [8]rl.Vector3, c rl.Color) {
	var verts [8]screenVertex
	for i, p := range corners {
		verts[i] = r.project(p)
	}
	for _, tri := range boxTriangles {
		r.fill(verts[tri[0]], verts[tri[1]], verts[tri[2]], c)
	}
}

func edge(a, b screenVertex, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// fill draws one triangle with a depth test against the 16-bit buffer.
// Pixels are sampled at their centres and both windings are accepted.
func (r *rasterizer) fill(a, b, c screenVertex, col rl.Color) {
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return
	}
	t := r.target

	minX := max(0, int(math.Floor(min(a.x, b.x, c.x))))
	maxX := min(t.width-1, int(math.Ceil(max(a.x, b.x, c.x))))
	minY := max(0, int(math.Floor(min(a.y, b.y, c.y))))
	maxY := min(t.height-1, int(math.Ceil(max(a.y, b.y, c.y))))

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.z + w1*b.z + w2*c.z
			if z < 0 || z > 1 {
				continue
			}
			d := uint16(z * (math.MaxUint16 - 1))
			i := y*t.width + x
			if d >= t.Depth[i] {
				continue
			}
			t.Depth[i] = d
			t.Color[i*4] = col.R
			t.Color[i*4+1] = col.G
			t.Color[i*4+2] = col.B
			t.Color[i*4+3] = col.A
		}
	}
}
