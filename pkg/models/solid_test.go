package models

import (
	"errors"
	"math"
	"testing"

	"github.com/taigrr/sprout/pkg/lsystem"
	"github.com/taigrr/sprout/pkg/math3d"
)

func TestSolidBranch(t *testing.T) {
	opts := SolidOptions{Cells: 24}
	m, err := Solid(singleBranch(0.2, 0.2), opts)
	if err != nil {
		t.Fatal(err)
	}
	if m.TriangleCount() == 0 {
		t.Fatal("solid has no triangles")
	}

	// Spheres on both ends round the bounds out by a radius.
	const tol = 0.1
	wantMin := math3d.V3(-0.2, -0.2, -0.2)
	wantMax := math3d.V3(0.2, 1.2, 0.2)
	if !m.BoundsMin.ApproxEqual(wantMin, tol) || !m.BoundsMax.ApproxEqual(wantMax, tol) {
		t.Errorf("bounds = %v..%v, want about %v..%v", m.BoundsMin, m.BoundsMax, wantMin, wantMax)
	}

	bark := m.MaterialIndex("bark")
	for i, f := range m.Faces {
		if f.Material != bark {
			t.Fatalf("face %d material = %d, want bark", i, f.Material)
		}
	}
	for i, f := range m.Faces {
		for _, vi := range f.V {
			if n := m.Vertices[vi].Normal.Len(); math.Abs(n-1) > 1e-6 {
				t.Fatalf("face %d vertex %d normal length = %v", i, vi, n)
			}
		}
	}
}

func TestSolidLeaves(t *testing.T) {
	buf := singleBranch(0.1, 0.1)
	buf.Leaves = []lsystem.Leaf{{
		Position:  math3d.V3(0.5, 0.5, 0),
		Direction: math3d.V3(1, 0, 0),
		Up:        math3d.V3(0, 1, 0),
		Size:      math3d.V2(0.3, 0.5),
	}}

	with, err := Solid(buf, SolidOptions{Cells: 32, IncludeLeaves: true, LeafThickness: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	leaf := with.MaterialIndex("leaf")
	leafFaces := 0
	for _, f := range with.Faces {
		if f.Material == leaf {
			leafFaces++
		}
	}
	if leafFaces == 0 {
		t.Error("no faces got the leaf material")
	}
	if with.BoundsMax.X < 0.9 {
		t.Errorf("bounds max X = %v, want the leaf tip near 1", with.BoundsMax.X)
	}

	without, err := Solid(buf, SolidOptions{Cells: 32})
	if err != nil {
		t.Fatal(err)
	}
	if without.BoundsMax.X > 0.2 {
		t.Errorf("bounds max X = %v without leaves", without.BoundsMax.X)
	}
}

func TestSolidEmpty(t *testing.T) {
	if _, err := Solid(&lsystem.Buffers{}, DefaultSolidOptions()); !errors.Is(err, ErrEmptyPlant) {
		t.Errorf("err = %v, want ErrEmptyPlant", err)
	}
}

func TestOrient(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z math3d.Vec3
	}{
		{"identity", math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), math3d.V3(0, 0, 1)},
		{"z to x", math3d.V3(0, 0, -1), math3d.V3(0, 1, 0), math3d.V3(1, 0, 0)},
		{"x to -z", math3d.V3(0, 0, -1), math3d.V3(0.6, 0.8, 0), math3d.V3(0.8, -0.6, 0)},
		{"tilted", math3d.V3(0, 0.6, 0.8), math3d.V3(1, 0, 0), math3d.V3(0, 0.8, -0.6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := orient(tt.x, tt.y, tt.z)
			for _, c := range []struct{ in, want math3d.Vec3 }{
				{math3d.V3(1, 0, 0), tt.x},
				{math3d.V3(0, 1, 0), tt.y},
				{math3d.V3(0, 0, 1), tt.z},
			} {
				got := m.MulPosition(vec(c.in))
				if math.Abs(got.X-c.want.X)+math.Abs(got.Y-c.want.Y)+math.Abs(got.Z-c.want.Z) > 1e-9 {
					t.Errorf("orient maps %v to %v, want %v", c.in, got, c.want)
				}
			}
		})
	}
}
