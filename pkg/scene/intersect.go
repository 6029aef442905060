package scene

import (
	"math"

	"github.com/taigrr/sprout/pkg/lsystem"
	"github.com/taigrr/sprout/pkg/math3d"
)

const parallelEps = 1e-12

// IntersectGround intersects r with the plane y = 0. The returned normal is
// always +Y.
func IntersectGround(r Ray) (t float64, n math3d.Vec3, ok bool) {
	if math.Abs(r.Direction.Y) < parallelEps {
		return 0, math3d.Vec3{}, false
	}
	t = -r.Origin.Y / r.Direction.Y
	if t <= MinT {
		return 0, math3d.Vec3{}, false
	}
	return t, math3d.Up(), true
}

// IntersectBranch intersects r with the rounded cone of b: the tapered
// lateral surface between two spheres of radius R1 at P1 and R2 at P2,
// plus the outer halves of those spheres. r must have a unit direction.
//
// Zero-length branches and cones where one end sphere swallows the other
// always miss.
func IntersectBranch(r Ray, b lsystem.Branch) (t float64, n math3d.Vec3, ok bool) {
	ba := b.P2.Sub(b.P1)
	oa := r.Origin.Sub(b.P1)
	ob := r.Origin.Sub(b.P2)
	rr := b.R1 - b.R2

	m0 := ba.Dot(ba)
	m1 := ba.Dot(oa)
	m2 := ba.Dot(r.Direction)
	m3 := r.Direction.Dot(oa)
	m5 := oa.Dot(oa)
	m6 := ob.Dot(r.Direction)
	m7 := ob.Dot(ob)

	d2 := m0 - rr*rr
	if m0 < parallelEps || d2 <= 0 {
		return 0, math3d.Vec3{}, false
	}

	// Lateral surface.
	k2 := d2 - m2*m2
	k1 := d2*m3 - m1*m2 + m2*rr*b.R1
	k0 := d2*m5 - m1*m1 + m1*rr*b.R1*2 - m0*b.R1*b.R1

	h := k1*k1 - k0*k2
	if h < 0 {
		return 0, math3d.Vec3{}, false
	}
	if math.Abs(k2) > parallelEps {
		tb := (-math.Sqrt(h) - k1) / k2
		y := m1 - b.R1*rr + tb*m2
		if y > 0 && y < d2 && tb > MinT {
			n = oa.AddScaled(r.Direction, tb).Scale(d2).Sub(ba.Scale(y)).Normalize()
			return tb, n, true
		}
	}

	// End caps.
	h1 := m3*m3 - m5 + b.R1*b.R1
	h2 := m6*m6 - m7 + b.R2*b.R2
	if max(h1, h2) < 0 {
		return 0, math3d.Vec3{}, false
	}

	t = math.Inf(1)
	if h1 > 0 {
		if tc := -m3 - math.Sqrt(h1); tc > MinT {
			t = tc
			n = oa.AddScaled(r.Direction, tc).Normalize()
		}
	}
	if h2 > 0 {
		if tc := -m6 - math.Sqrt(h2); tc > MinT && tc < t {
			t = tc
			n = ob.AddScaled(r.Direction, tc).Normalize()
		}
	}
	if math.IsInf(t, 1) {
		return 0, math3d.Vec3{}, false
	}
	return t, n, true
}

// IntersectLeafQuad intersects r with the rectangle of l, ignoring its
// texture. It returns the quad coordinates (a along Direction, b along Up),
// both in [0, 1], and the geometric normal cross(Direction, Up).
func IntersectLeafQuad(r Ray, l lsystem.Leaf) (t, a, b float64, n math3d.Vec3, ok bool) {
	if l.Size.X <= 0 || l.Size.Y <= 0 {
		return 0, 0, 0, math3d.Vec3{}, false
	}
	along := l.Direction.Normalize()
	across := l.Up.Normalize()
	n = along.Cross(across).Normalize()

	denom := r.Direction.Dot(n)
	if math.Abs(denom) < parallelEps {
		return 0, 0, 0, math3d.Vec3{}, false
	}
	t = l.Position.Sub(r.Origin).Dot(n) / denom
	if t <= MinT {
		return 0, 0, 0, math3d.Vec3{}, false
	}

	q := r.At(t).Sub(l.Position)
	a = q.Dot(along) / l.Size.Y
	b = q.Dot(across) / l.Size.X
	if a < 0 || a > 1 || b < 0 || b > 1 {
		return 0, 0, 0, math3d.Vec3{}, false
	}
	return t, a, b, n, true
}

// BranchUV returns the unwrapped cylinder coordinates of point p on b:
// u is the angle around the axis in (-π, π], v the distance along the axis
// from P1.
func BranchUV(b lsystem.Branch, p math3d.Vec3) (u, v float64) {
	axis := b.P2.Sub(b.P1).Normalize()
	q := p.Sub(b.P1)
	v = q.Dot(axis)

	tb := axis.Cross(math3d.V3(0, 0, 1))
	if tb.LenSq() < 1e-12 {
		tb = axis.Cross(math3d.V3(1, 0, 0))
	}
	tb = tb.Normalize()
	sb := axis.Cross(tb)

	u = math.Atan2(q.Dot(tb), q.Dot(sb))
	return u, v
}
