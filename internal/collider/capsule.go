package collider

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Capsule is a segment from Start to End swept by Radius. End is the head.
type Capsule struct {
	Start  mgl32.Vec3
	End    mgl32.Vec3
	Radius float32
}

// Center returns the midpoint of the segment.
func (c Capsule) Center() mgl32.Vec3 {
	return c.Start.Add(c.End).Mul(0.5)
}

// Translate moves both ends by v.
func (c *Capsule) Translate(v mgl32.Vec3) {
	c.Start = c.Start.Add(v)
	c.End = c.End.Add(v)
}

// intersectsBox is a conservative overlap test of the capsule against b, done on the three axis
// pairs.
func (c Capsule) intersectsBox(b box) bool {
	return checkAABBAxis(c.Start[0], c.Start[1], c.End[0], c.End[1], b.min[0], b.max[0], b.min[1], b.max[1], c.Radius) &&
		checkAABBAxis(c.Start[0], c.Start[2], c.End[0], c.End[2], b.min[0], b.max[0], b.min[2], b.max[2], c.Radius) &&
		checkAABBAxis(c.Start[1], c.Start[2], c.End[1], c.End[2], b.min[1], b.max[1], b.min[2], b.max[2], c.Radius)
}

func checkAABBAxis(p1x, p1y, p2x, p2y, minx, maxx, miny, maxy, radius float32) bool {
	return (minx-p1x < radius || minx-p2x < radius) &&
		(p1x-maxx < radius || p2x-maxx < radius) &&
		(miny-p1y < radius || miny-p2y < radius) &&
		(p1y-maxy < radius || p2y-maxy < radius)
}

// segmentClosestPoints returns the closest points between segments p1-q1 and p2-q2.
func segmentClosestPoints(p1, q1, p2, q2 mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	r := q1.Sub(p1)
	s := q2.Sub(p2)
	w := p2.Sub(p1)
	a := r.Dot(s)
	b := r.Dot(r)
	c := s.Dot(s)
	d := s.Dot(w)
	e := r.Dot(w)

	var t1, t2 float32
	divisor := b*c - a*a
	switch {
	case c == 0:
		// Degenerate second segment: closest point to p2.
		t2 = 0
		if b > 0 {
			t1 = e / b
		}
	case math32.Abs(divisor) <= 1e-6*b*c:
		// Parallel: pick the end of the first segment closest to the middle of the second.
		d1 := -d / c
		d2 := (a - d) / c
		if math32.Abs(d1-0.5) < math32.Abs(d2-0.5) {
			t1, t2 = 0, d1
		} else {
			t1, t2 = 1, d2
		}
	default:
		t1 = (d*a + e*c) / divisor
		t2 = (t1*a - d) / c
	}
	t1 = clamp01(t1)
	t2 = clamp01(t2)
	return p1.Add(r.Mul(t1)), p2.Add(s.Mul(t2))
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}
