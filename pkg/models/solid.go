package models

import (
	"errors"
	"fmt"
	"math"

	sdfrender "github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/taigrr/sprout/internal/logging"
	"github.com/taigrr/sprout/pkg/lsystem"
	"github.com/taigrr/sprout/pkg/math3d"
)

// ErrEmptyPlant is returned when there is nothing to build a solid from.
var ErrEmptyPlant = errors.New("plant has no geometry")

// SolidOptions controls the marching cubes solid.
type SolidOptions struct {
	Cells         int     // marching cubes cells along the longest side
	IncludeLeaves bool    // add leaves as thin boxes
	LeafThickness float64 // box depth, world units
}

// DefaultSolidOptions returns a medium resolution setup with leaves.
func DefaultSolidOptions() SolidOptions {
	return SolidOptions{
		Cells:         96,
		IncludeLeaves: true,
		LeafThickness: 0.01,
	}
}

// Solid builds a closed mesh from the union of every branch (a cone with a
// sphere on each end) and, optionally, every leaf. Faces nearer to a leaf
// than to bark get the leaf material.
func Solid(buf *lsystem.Buffers, opts SolidOptions) (*Mesh, error) {
	if opts.Cells < 8 {
		opts.Cells = 8
	}

	var wood, foliage []sdf.SDF3
	for i, b := range buf.Branches {
		parts, err := branchSolid(b)
		if err != nil {
			return nil, fmt.Errorf("branch %d: %w", i, err)
		}
		wood = append(wood, parts...)
	}
	if opts.IncludeLeaves {
		for i, l := range buf.Leaves {
			s, err := leafSolid(l, opts.LeafThickness)
			if err != nil {
				return nil, fmt.Errorf("leaf %d: %w", i, err)
			}
			if s != nil {
				foliage = append(foliage, s)
			}
		}
	}
	if len(wood)+len(foliage) == 0 {
		return nil, ErrEmptyPlant
	}

	all := sdf.Union3D(append(append([]sdf.SDF3{}, wood...), foliage...)...)
	var bark, leaves sdf.SDF3
	if len(wood) > 0 {
		bark = sdf.Union3D(wood...)
	}
	if len(foliage) > 0 {
		leaves = sdf.Union3D(foliage...)
	}

	triangles := sdfrender.ToTriangles(all, sdfrender.NewMarchingCubesUniform(opts.Cells))

	m := NewMesh("plant-solid")
	barkMat := m.AddMaterial(BarkMaterial)
	leafMat := m.AddMaterial(LeafMaterial)

	weld := make(map[v3.Vec]int, len(triangles)*3/2)
	for _, tri := range triangles {
		var idx [3]int
		for j := range 3 {
			p := tri[j]
			k, ok := weld[p]
			if !ok {
				k = m.AddVertex(math3d.V3(p.X, p.Y, p.Z), math3d.Vec3{}, math3d.Vec2{})
				weld[p] = k
			}
			idx[j] = k
		}
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[0] == idx[2] {
			continue
		}
		mat := barkMat
		if leaves != nil {
			c := tri[0].Add(tri[1]).Add(tri[2]).MulScalar(1.0 / 3)
			if bark == nil || leaves.Evaluate(c) < bark.Evaluate(c) {
				mat = leafMat
			}
		}
		m.AddTriangle(idx[0], idx[1], idx[2], mat)
	}

	m.CalculateSmoothNormals()
	m.CalculateBounds()
	logging.L().Debug("models: solid",
		"primitives", len(wood)+len(foliage), "cells", opts.Cells,
		"vertices", m.VertexCount(), "triangles", m.TriangleCount())
	return m, nil
}

func branchSolid(b lsystem.Branch) ([]sdf.SDF3, error) {
	var out []sdf.SDF3
	for _, end := range [2]struct {
		p math3d.Vec3
		r float64
	}{{b.P1, b.R1}, {b.P2, b.R2}} {
		if end.r <= 0 {
			continue
		}
		s, err := sdf.Sphere3D(end.r)
		if err != nil {
			return nil, fmt.Errorf("joint: %w", err)
		}
		out = append(out, sdf.Transform3D(s, sdf.Translate3d(vec(end.p))))
	}

	length := b.Length()
	if length < 1e-9 {
		return out, nil
	}
	// Cone3D runs along Z from r0 at -h/2 to r1 at +h/2.
	cone, err := sdf.Cone3D(length, b.R1, b.R2, 0)
	if err != nil {
		return nil, fmt.Errorf("cone: %w", err)
	}
	axis := b.P2.Sub(b.P1).Scale(1 / length)
	s, t := branchBasis(axis)
	mid := b.P1.Lerp(b.P2, 0.5)
	m := sdf.Translate3d(vec(mid)).Mul(orient(t, s, axis))
	return append(out, sdf.Transform3D(cone, m)), nil
}

func leafSolid(l lsystem.Leaf, thickness float64) (sdf.SDF3, error) {
	if l.Size.X <= 0 || l.Size.Y <= 0 {
		return nil, nil
	}
	if thickness <= 0 {
		thickness = 0.01
	}
	box, err := sdf.Box3D(v3.Vec{X: l.Size.X, Y: l.Size.Y, Z: thickness}, 0)
	if err != nil {
		return nil, err
	}
	up := l.Up.Normalize()
	along := l.Direction.Normalize()
	c := l.Corners()
	centre := c[0].Lerp(c[2], 0.5)
	m := sdf.Translate3d(vec(centre)).Mul(orient(up, along, up.Cross(along)))
	return sdf.Transform3D(box, m), nil
}

// orient returns the rotation taking the X, Y and Z axes onto the given
// right-handed orthonormal basis, as RotateZ * RotateY * RotateX.
func orient(x, y, z math3d.Vec3) sdf.M44 {
	// Rotation matrix rows: r[i][j] is component i of column j.
	r20, r21, r22 := x.Z, y.Z, z.Z
	theta := math.Asin(math.Max(-1, math.Min(1, -r20)))
	var phi, psi float64
	if math.Abs(r20) < 1-1e-9 {
		phi = math.Atan2(r21, r22)
		psi = math.Atan2(x.Y, x.X)
	} else {
		phi = math.Atan2(-z.Y, y.Y)
	}
	return sdf.RotateZ(psi).Mul(sdf.RotateY(theta)).Mul(sdf.RotateX(phi))
}

func vec(v math3d.Vec3) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}
