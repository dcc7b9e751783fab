package collider

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a half line. Dir does not need to be normalized; distances are in units of Dir.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Hit is a ray hit.
type Hit struct {
	Distance float32
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
}

const rayEpsilon = 1e-7

// IntersectTriangle returns the distance along r to triangle a, b, c, hitting either face
// (Möller–Trumbore).
func IntersectTriangle(r Ray, a, b, c mgl32.Vec3) (float32, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Dir.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < rayEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}

// intersectsBox is the slab test.
func (r Ray) intersectsBox(b box) bool {
	tmin, tmax := float32(0), math32.Inf(1)
	for i := 0; i < 3; i++ {
		if r.Dir[i] == 0 {
			if r.Origin[i] < b.min[i] || r.Origin[i] > b.max[i] {
				return false
			}
			continue
		}
		inv := 1 / r.Dir[i]
		t0 := (b.min[i] - r.Origin[i]) * inv
		t1 := (b.max[i] - r.Origin[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math32.Max(tmin, t0)
		tmax = math32.Min(tmax, t1)
		if tmin > tmax {
			return false
		}
	}
	return true
}

// Raycast returns the nearest triangle hit by r. Hit.Normal faces the ray origin.
func (o *Octree) Raycast(r Ray) (Hit, bool) {
	if o == nil || o.root == nil || r.Dir.Dot(r.Dir) == 0 {
		return Hit{}, false
	}
	var candidates []int
	o.rayTriangles(o.root, r, &candidates)
	best := Hit{Distance: math32.Inf(1)}
	found := false
	for _, ti := range candidates {
		t := o.triangles[ti]
		d, ok := IntersectTriangle(r, t.A, t.B, t.C)
		if !ok || d >= best.Distance {
			continue
		}
		n := t.normal
		if n.Dot(r.Dir) > 0 {
			n = n.Mul(-1)
		}
		best = Hit{Distance: d, Point: r.At(d), Normal: n}
		found = true
	}
	return best, found
}

func (o *Octree) rayTriangles(n *node, r Ray, out *[]int) {
	for _, child := range n.children {
		if !r.intersectsBox(child.box) {
			continue
		}
		if len(child.triangles) > 0 {
			*out = append(*out, child.triangles...)
			continue
		}
		o.rayTriangles(child, r, out)
	}
}
