package scene

import (
	"math"

	"github.com/taigrr/sprout/pkg/lsystem"
	"github.com/taigrr/sprout/pkg/math3d"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// EmptyAABB returns an inverted box that any Extend call replaces.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{Min: math3d.Splat3(inf), Max: math3d.Splat3(-inf)}
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include p.
func (b AABB) Extend(p math3d.Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// ExtendSphere grows the box to include a sphere.
func (b AABB) ExtendSphere(c math3d.Vec3, r float64) AABB {
	ext := math3d.Splat3(r)
	return b.Extend(c.Sub(ext)).Extend(c.Add(ext))
}

// Center returns the center of the box.
func (b AABB) Center() math3d.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the dimensions of the box.
func (b AABB) Size() math3d.Vec3 {
	return b.Max.Sub(b.Min)
}

// Radius returns half the diagonal, the radius of the bounding sphere
// centred on Center.
func (b AABB) Radius() float64 {
	return b.Size().Len() / 2
}

// ContainsPoint returns true if p is inside the box.
func (b AABB) ContainsPoint(p math3d.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// BuffersBounds bounds every branch (with its end spheres) and every leaf
// corner in buf. An empty buffer yields a zero box at the origin.
func BuffersBounds(buf *lsystem.Buffers) AABB {
	box := EmptyAABB()
	for _, br := range buf.Branches {
		box = box.ExtendSphere(br.P1, br.R1).ExtendSphere(br.P2, br.R2)
	}
	for _, l := range buf.Leaves {
		for _, c := range l.Corners() {
			box = box.Extend(c)
		}
	}
	if box.IsEmpty() {
		return AABB{}
	}
	return box
}

// Bounds returns the bounding box of the plant, excluding the ground.
func (s *Scene) Bounds() AABB {
	return BuffersBounds(s.buf)
}
