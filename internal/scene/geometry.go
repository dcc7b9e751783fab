package scene

import "github.com/go-gl/mathgl/mgl32"

// Unindexed returns one vertex per triangle corner as flat x,y,z / u,v arrays, the layout GPU
// backends with 16-bit indices upload directly. Missing normals are replaced by face normals and
// missing UVs by zeros.
func (g *Geometry) Unindexed() (positions, normals, uvs []float32) {
	n := g.TriangleCount()
	positions = make([]float32, 0, n*9)
	normals = make([]float32, 0, n*9)
	uvs = make([]float32, 0, n*6)
	corner := func(i, k int) int {
		if len(g.Indices) > 0 {
			return int(g.Indices[i*3+k])
		}
		return i*3 + k
	}
	for i := 0; i < n; i++ {
		a, b, c := g.Triangle(i)
		face := b.Sub(a).Cross(c.Sub(a))
		if face.Len() > 0 {
			face = face.Normalize()
		}
		for k := 0; k < 3; k++ {
			v := corner(i, k)
			p := g.Positions[v]
			positions = append(positions, p[0], p[1], p[2])
			nrm := face
			if v < len(g.Normals) {
				nrm = g.Normals[v]
			}
			normals = append(normals, nrm[0], nrm[1], nrm[2])
			var uv mgl32.Vec2
			if v < len(g.UVs) {
				uv = g.UVs[v]
			}
			uvs = append(uvs, uv[0], uv[1])
		}
	}
	return positions, normals, uvs
}

// WorldBounds returns the world-space bounding box of every mesh in the subtree of n.
// ok is false when the subtree has no vertices.
func (n *Node) WorldBounds() (lo, hi mgl32.Vec3, ok bool) {
	n.Traverse(func(m *Node) {
		if m.Mesh == nil || m.Mesh.Geometry == nil {
			return
		}
		world := m.WorldMatrix()
		for _, p := range m.Mesh.Geometry.Positions {
			w := mgl32.TransformCoordinate(p, world)
			if !ok {
				lo, hi, ok = w, w, true
				continue
			}
			for i := 0; i < 3; i++ {
				lo[i] = min(lo[i], w[i])
				hi[i] = max(hi[i], w[i])
			}
		}
	})
	return lo, hi, ok
}
