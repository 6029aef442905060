package models

import (
	"math"

	"github.com/taigrr/sprout/internal/logging"
	"github.com/taigrr/sprout/pkg/lsystem"
	"github.com/taigrr/sprout/pkg/math3d"
)

// MinSegments is the fewest sides a tessellated branch gets.
const MinSegments = 3

// Tessellate builds a render-ready mesh: each branch becomes a truncated
// cone with flat end caps, each leaf a two-sided quad. Face material 0 is
// bark and 1 is leaf. Branch UVs match the ray tracer: u around the axis in
// turns, v along it in world units.
func Tessellate(buf *lsystem.Buffers, segments int) *Mesh {
	segments = max(segments, MinSegments)
	m := NewMesh("plant")
	bark := m.AddMaterial(BarkMaterial)
	leaf := m.AddMaterial(LeafMaterial)

	for _, b := range buf.Branches {
		addBranch(m, b, segments, bark)
	}
	for _, l := range buf.Leaves {
		addLeaf(m, l, leaf)
	}

	m.CalculateBounds()
	logging.L().Debug("models: tessellated",
		"branches", len(buf.Branches), "leaves", len(buf.Leaves),
		"vertices", m.VertexCount(), "triangles", m.TriangleCount())
	return m
}

// branchBasis returns two unit vectors perpendicular to axis, built the
// same way the scene builds its branch texture frame.
func branchBasis(axis math3d.Vec3) (s, t math3d.Vec3) {
	t = axis.Cross(math3d.V3(0, 0, 1))
	if t.LenSq() < 1e-12 {
		t = axis.Cross(math3d.V3(1, 0, 0))
	}
	t = t.Normalize()
	s = axis.Cross(t)
	return s, t
}

func addBranch(m *Mesh, b lsystem.Branch, segments, material int) {
	length := b.Length()
	if length < 1e-9 {
		return
	}
	axis := b.P2.Sub(b.P1).Scale(1 / length)
	s, t := branchBasis(axis)

	// Side normals lean toward the narrow end by the taper angle.
	sinA := math.Max(-1, math.Min(1, (b.R1-b.R2)/length))
	cosA := math.Sqrt(1 - sinA*sinA)

	cs := make([][2]float64, segments+1)
	ring := make([]math3d.Vec3, segments+1)
	for i := range cs {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		cs[i] = [2]float64{math.Cos(theta), math.Sin(theta)}
		ring[i] = s.Scale(cs[i][0]).Add(t.Scale(cs[i][1]))
	}

	// Side: segments+1 columns so the seam gets its own UVs.
	base := len(m.Vertices)
	for i := 0; i <= segments; i++ {
		r := ring[i]
		n := r.Scale(cosA).AddScaled(axis, sinA)
		u := float64(i) / float64(segments)
		m.AddVertex(b.P1.AddScaled(r, b.R1), n, math3d.V2(u, 0))
		m.AddVertex(b.P2.AddScaled(r, b.R2), n, math3d.V2(u, length))
	}
	for i := range segments {
		b0, t0 := base+2*i, base+2*i+1
		b1, t1 := b0+2, t0+2
		m.AddTriangle(b0, t0, b1, material)
		m.AddTriangle(b1, t0, t1, material)
	}

	addCap(m, b.P1, b.R1, axis.Negate(), ring[:segments], cs, false, material)
	addCap(m, b.P2, b.R2, axis, ring[:segments], cs, true, material)
}

// addCap fans a flat disc over the ring. Cap UVs are planar in the ring's
// own basis.
func addCap(m *Mesh, centre math3d.Vec3, radius float64, normal math3d.Vec3,
	ring []math3d.Vec3, cs [][2]float64, top bool, material int) {
	if radius <= 0 {
		return
	}
	c := m.AddVertex(centre, normal, math3d.V2(0.5, 0.5))
	first := len(m.Vertices)
	for i, r := range ring {
		m.AddVertex(centre.AddScaled(r, radius), normal,
			math3d.V2(0.5+0.5*cs[i][0], 0.5+0.5*cs[i][1]))
	}
	n := len(ring)
	for i := range n {
		a, b := first+i, first+(i+1)%n
		if top {
			m.AddTriangle(c, b, a, material)
		} else {
			m.AddTriangle(c, a, b, material)
		}
	}
}

func addLeaf(m *Mesh, l lsystem.Leaf, material int) {
	if l.Size.X <= 0 || l.Size.Y <= 0 {
		return
	}
	corners := l.Corners()
	n := l.Direction.Cross(l.Up).Normalize()
	uvs := [4]math3d.Vec2{math3d.V2(0, 0), math3d.V2(0, 1), math3d.V2(1, 1), math3d.V2(1, 0)}

	front := len(m.Vertices)
	for i, c := range corners {
		m.AddVertex(c, n, uvs[i])
	}
	m.AddTriangle(front, front+1, front+2, material)
	m.AddTriangle(front, front+2, front+3, material)

	back := len(m.Vertices)
	for i, c := range corners {
		m.AddVertex(c, n.Negate(), uvs[i])
	}
	m.AddTriangle(back, back+2, back+1, material)
	m.AddTriangle(back, back+3, back+2, material)
}
