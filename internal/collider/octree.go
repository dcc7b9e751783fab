// Package collider indexes the static triangles of a listing in an octree and answers capsule
// penetration and ray queries against them.
package collider

import (
	"slices"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"walkthrough/internal/scene"
)

const (
	trianglesPerLeaf = 8
	maxLevel         = 16
	boxPadding       = 0.01
)

// Triangle is a world-space triangle with its plane.
type Triangle struct {
	A, B, C mgl32.Vec3
	normal  mgl32.Vec3
	d       float32
}

// NewTriangle returns the triangle a, b, c. ok is false for degenerate triangles.
func NewTriangle(a, b, c mgl32.Vec3) (Triangle, bool) {
	n := c.Sub(b).Cross(a.Sub(b))
	l := n.Len()
	if l == 0 || math32.IsNaN(l) || math32.IsInf(l, 0) {
		return Triangle{}, false
	}
	n = n.Mul(1 / l)
	return Triangle{A: a, B: b, C: c, normal: n, d: -n.Dot(a)}, true
}

// Normal returns the unit normal (counter-clockwise winding faces it).
func (t Triangle) Normal() mgl32.Vec3 {
	return t.normal
}

func (t Triangle) distance(p mgl32.Vec3) float32 {
	return t.normal.Dot(p) + t.d
}

// contains reports whether p, projected on the triangle's plane, lies inside the triangle.
func (t Triangle) contains(p mgl32.Vec3) bool {
	v0 := t.C.Sub(t.A)
	v1 := t.B.Sub(t.A)
	v2 := p.Sub(t.A)
	dot00 := v0.Dot(v0)
	dot01 := v0.Dot(v1)
	dot02 := v0.Dot(v2)
	dot11 := v1.Dot(v1)
	dot12 := v1.Dot(v2)
	denom := dot00*dot11 - dot01*dot01
	if denom == 0 {
		return false
	}
	inv := 1 / denom
	u := (dot11*dot02 - dot01*dot12) * inv
	v := (dot00*dot12 - dot01*dot02) * inv
	return u >= 0 && v >= 0 && u+v <= 1
}

type box struct {
	min, max mgl32.Vec3
}

func emptyBox() box {
	inf := math32.Inf(1)
	return box{min: mgl32.Vec3{inf, inf, inf}, max: mgl32.Vec3{-inf, -inf, -inf}}
}

func (b *box) expand(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		b.min[i] = math32.Min(b.min[i], p[i])
		b.max[i] = math32.Max(b.max[i], p[i])
	}
}

var axes = [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// intersectsTriangle is a separating axis test: the box axes, the triangle normal and the nine
// edge cross products.
func (b box) intersectsTriangle(t Triangle) bool {
	c := b.min.Add(b.max).Mul(0.5)
	h := b.max.Sub(c)
	v0, v1, v2 := t.A.Sub(c), t.B.Sub(c), t.C.Sub(c)
	edges := [3]mgl32.Vec3{v1.Sub(v0), v2.Sub(v1), v0.Sub(v2)}
	for _, a := range axes {
		for _, e := range edges {
			if separates(a.Cross(e), v0, v1, v2, h) {
				return false
			}
		}
	}
	for _, a := range axes {
		if separates(a, v0, v1, v2, h) {
			return false
		}
	}
	return !separates(edges[0].Cross(edges[1]), v0, v1, v2, h)
}

func separates(axis, v0, v1, v2, h mgl32.Vec3) bool {
	if axis.Dot(axis) == 0 {
		return false
	}
	p0, p1, p2 := axis.Dot(v0), axis.Dot(v1), axis.Dot(v2)
	r := h[0]*math32.Abs(axis[0]) + h[1]*math32.Abs(axis[1]) + h[2]*math32.Abs(axis[2])
	return math32.Max(p0, math32.Max(p1, p2)) < -r || math32.Min(p0, math32.Min(p1, p2)) > r
}

type node struct {
	box       box
	triangles []int
	children  []*node
}

// Octree is a static triangle index. Build it once the geometry is final; it never changes after.
type Octree struct {
	triangles []Triangle
	root      *node
}

// Build indexes every mesh triangle under root in world space. Degenerate triangles are skipped.
func Build(root *scene.Node) *Octree {
	var tris []Triangle
	if root != nil {
		root.Traverse(func(n *scene.Node) {
			if n.Mesh == nil || n.Mesh.Geometry == nil {
				return
			}
			m := n.WorldMatrix()
			g := n.Mesh.Geometry
			for i := 0; i < g.TriangleCount(); i++ {
				a, b, c := g.Triangle(i)
				t, ok := NewTriangle(
					mgl32.TransformCoordinate(a, m),
					mgl32.TransformCoordinate(b, m),
					mgl32.TransformCoordinate(c, m),
				)
				if ok {
					tris = append(tris, t)
				}
			}
		})
	}
	return FromTriangles(tris)
}

// FromTriangles indexes tris.
func FromTriangles(tris []Triangle) *Octree {
	o := &Octree{triangles: tris}
	if len(tris) == 0 {
		return o
	}
	bounds := emptyBox()
	idx := make([]int, len(tris))
	for i, t := range tris {
		bounds.expand(t.A)
		bounds.expand(t.B)
		bounds.expand(t.C)
		idx[i] = i
	}
	o.root = &node{box: cube(bounds), triangles: idx}
	o.split(o.root, 0)
	return o
}

// cube grows b into a padded cube around its center so children split evenly.
func cube(b box) box {
	size := b.max.Sub(b.min)
	half := math32.Max(size[0], math32.Max(size[1], size[2]))/2 + boxPadding
	center := b.min.Add(b.max).Mul(0.5)
	h := mgl32.Vec3{half, half, half}
	return box{min: center.Sub(h), max: center.Add(h)}
}

func (o *Octree) split(n *node, level int) {
	half := n.box.max.Sub(n.box.min).Mul(0.5)
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				lo := n.box.min.Add(mgl32.Vec3{float32(x) * half[0], float32(y) * half[1], float32(z) * half[2]})
				child := &node{box: box{min: lo, max: lo.Add(half)}}
				for _, ti := range n.triangles {
					if child.box.intersectsTriangle(o.triangles[ti]) {
						child.triangles = append(child.triangles, ti)
					}
				}
				if len(child.triangles) == 0 {
					continue
				}
				// A child holding every triangle of its parent would split the same way forever.
				if len(child.triangles) > trianglesPerLeaf && len(child.triangles) < len(n.triangles) && level < maxLevel {
					o.split(child, level+1)
				}
				n.children = append(n.children, child)
			}
		}
	}
	n.triangles = nil
}

// Len returns the number of indexed triangles.
func (o *Octree) Len() int {
	if o == nil {
		return 0
	}
	return len(o.triangles)
}

// Collision is the push-out that separates a capsule from the geometry: move by Normal * Depth.
type Collision struct {
	Normal mgl32.Vec3
	Depth  float32
}

// SweepCapsule resolves every triangle the capsule penetrates, in index order, on a copy of the
// capsule, and returns the total displacement. ok is false when nothing is penetrated.
// A nil or empty octree never collides.
func (o *Octree) SweepCapsule(c Capsule) (Collision, bool) {
	if o == nil || o.root == nil {
		return Collision{}, false
	}
	var candidates []int
	o.capsuleTriangles(o.root, c, &candidates)
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	moved := c
	hit := false
	for _, ti := range candidates {
		normal, depth, ok := triangleCapsule(moved, o.triangles[ti])
		if !ok {
			continue
		}
		hit = true
		moved.Translate(normal.Mul(depth))
	}
	if !hit {
		return Collision{}, false
	}
	v := moved.Center().Sub(c.Center())
	depth := v.Len()
	if depth == 0 {
		return Collision{}, false
	}
	return Collision{Normal: v.Mul(1 / depth), Depth: depth}, true
}

func (o *Octree) capsuleTriangles(n *node, c Capsule, out *[]int) {
	for _, child := range n.children {
		if !c.intersectsBox(child.box) {
			continue
		}
		if len(child.triangles) > 0 {
			*out = append(*out, child.triangles...)
			continue
		}
		o.capsuleTriangles(child, c, out)
	}
}

// triangleCapsule returns the push-out for one triangle.
func triangleCapsule(c Capsule, t Triangle) (mgl32.Vec3, float32, bool) {
	d1 := t.distance(c.Start) - c.Radius
	d2 := t.distance(c.End) - c.Radius
	if (d1 > 0 && d2 > 0) || (d1 < -c.Radius && d2 < -c.Radius) {
		return mgl32.Vec3{}, 0, false
	}
	var delta float32
	if s := math32.Abs(d1) + math32.Abs(d2); s > 0 {
		delta = math32.Abs(d1 / s)
	}
	p := c.Start.Add(c.End.Sub(c.Start).Mul(delta))
	if t.contains(p) {
		return t.normal, math32.Abs(math32.Min(d1, d2)), true
	}

	r2 := c.Radius * c.Radius
	edges := [3][2]mgl32.Vec3{{t.A, t.B}, {t.B, t.C}, {t.C, t.A}}
	for _, e := range edges {
		p1, p2 := segmentClosestPoints(c.Start, c.End, e[0], e[1])
		diff := p1.Sub(p2)
		dist2 := diff.Dot(diff)
		if dist2 < r2 && dist2 > 0 {
			dist := math32.Sqrt(dist2)
			return diff.Mul(1 / dist), c.Radius - dist, true
		}
	}
	return mgl32.Vec3{}, 0, false
}
