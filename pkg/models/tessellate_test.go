package models

import (
	"math"
	"testing"

	"github.com/taigrr/sprout/pkg/lsystem"
	"github.com/taigrr/sprout/pkg/math3d"
)

func singleBranch(r1, r2 float64) *lsystem.Buffers {
	return &lsystem.Buffers{Branches: []lsystem.Branch{{
		P1: math3d.V3(0, 0, 0), R1: r1,
		P2: math3d.V3(0, 1, 0), R2: r2,
	}}}
}

func singleLeaf() *lsystem.Buffers {
	return &lsystem.Buffers{Leaves: []lsystem.Leaf{{
		Position:  math3d.V3(0, 1, 0),
		Direction: math3d.V3(1, 0, 0),
		Up:        math3d.V3(0, 1, 0),
		Size:      math3d.V2(0.2, 0.4),
	}}}
}

func TestTessellateCounts(t *testing.T) {
	tests := []struct {
		name      string
		buf       *lsystem.Buffers
		segments  int
		vertices  int
		triangles int
	}{
		{"branch", singleBranch(0.1, 0.1), 8, 2*9 + 2*(1+8), 2*8 + 2*8},
		{"pointed branch", singleBranch(0.1, 0), 8, 2*9 + (1 + 8), 2*8 + 8},
		{"min segments", singleBranch(0.1, 0.1), 1, 2*4 + 2*(1+3), 2*3 + 2*3},
		{"leaf", singleLeaf(), 8, 8, 4},
		{"empty", &lsystem.Buffers{}, 8, 0, 0},
		{"zero length", &lsystem.Buffers{Branches: []lsystem.Branch{{R1: 1, R2: 1}}}, 8, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Tessellate(tt.buf, tt.segments)
			if m.VertexCount() != tt.vertices {
				t.Errorf("vertices = %d, want %d", m.VertexCount(), tt.vertices)
			}
			if m.TriangleCount() != tt.triangles {
				t.Errorf("triangles = %d, want %d", m.TriangleCount(), tt.triangles)
			}
			if m.MaterialCount() != 2 {
				t.Errorf("materials = %d, want 2", m.MaterialCount())
			}
		})
	}
}

// Every face's winding must agree with its vertex normals.
func TestTessellateWindingMatchesNormals(t *testing.T) {
	g, err := lsystem.Preset("tree")
	if err != nil {
		t.Fatal(err)
	}
	m := Tessellate(g.WithDepth(2).Generate(), 6)
	if m.TriangleCount() == 0 {
		t.Fatal("no triangles")
	}
	for i, f := range m.Faces {
		a, b, c := m.Vertices[f.V[0]], m.Vertices[f.V[1]], m.Vertices[f.V[2]]
		face := b.Position.Sub(a.Position).Cross(c.Position.Sub(a.Position))
		if face.LenSq() < 1e-18 {
			continue
		}
		n := a.Normal.Add(b.Normal).Add(c.Normal)
		if face.Dot(n) <= 0 {
			t.Fatalf("face %d (material %d) winds against its normals", i, f.Material)
		}
	}
}

func TestTessellateNormals(t *testing.T) {
	t.Run("cylinder", func(t *testing.T) {
		m := Tessellate(singleBranch(0.1, 0.1), 8)
		for i := range 18 {
			v := m.Vertices[i]
			if math.Abs(v.Normal.Y) > 1e-9 {
				t.Errorf("side normal %d Y = %v, want 0", i, v.Normal.Y)
			}
			radial := math3d.V3(v.Position.X, 0, v.Position.Z)
			if math.Abs(radial.Len()-0.1) > 1e-9 {
				t.Errorf("side vertex %d radius = %v, want 0.1", i, radial.Len())
			}
			if v.Normal.Dot(radial) <= 0 {
				t.Errorf("side normal %d points inward", i)
			}
		}
	})
	t.Run("tapered", func(t *testing.T) {
		m := Tessellate(singleBranch(0.1, 0.05), 8)
		want := 0.05 // (R1-R2)/L
		for i := range 18 {
			if got := m.Vertices[i].Normal.Y; math.Abs(got-want) > 1e-9 {
				t.Errorf("side normal %d Y = %v, want %v", i, got, want)
			}
		}
	})
	t.Run("caps", func(t *testing.T) {
		m := Tessellate(singleBranch(0.1, 0.1), 8)
		bottom, top := m.Vertices[18], m.Vertices[18+9]
		if !bottom.Normal.ApproxEqual(math3d.V3(0, -1, 0), 1e-9) {
			t.Errorf("bottom cap normal = %v", bottom.Normal)
		}
		if !top.Normal.ApproxEqual(math3d.V3(0, 1, 0), 1e-9) {
			t.Errorf("top cap normal = %v", top.Normal)
		}
	})
}

func TestTessellateBranchUV(t *testing.T) {
	m := Tessellate(singleBranch(0.1, 0.1), 4)
	// Seam columns share positions but not U.
	first, last := m.Vertices[0], m.Vertices[8]
	if !first.Position.ApproxEqual(last.Position, 1e-9) {
		t.Errorf("seam positions differ: %v vs %v", first.Position, last.Position)
	}
	if first.UV.X != 0 || last.UV.X != 1 {
		t.Errorf("seam U = %v, %v, want 0, 1", first.UV.X, last.UV.X)
	}
	if m.Vertices[1].UV.Y != 1 {
		t.Errorf("top V = %v, want branch length 1", m.Vertices[1].UV.Y)
	}
}

func TestTessellateLeaf(t *testing.T) {
	m := Tessellate(singleLeaf(), 8)
	leaf := m.MaterialIndex("leaf")
	for i, f := range m.Faces {
		if f.Material != leaf {
			t.Errorf("face %d material = %d, want leaf", i, f.Material)
		}
	}
	front, back := m.Vertices[0].Normal, m.Vertices[4].Normal
	if !front.Add(back).ApproxEqual(math3d.Vec3{}, 1e-12) {
		t.Errorf("leaf sides not opposite: %v, %v", front, back)
	}
	if !front.ApproxEqual(math3d.V3(0, 0, 1), 1e-12) {
		t.Errorf("front normal = %v, want direction x up", front)
	}
	if uv := m.Vertices[2].UV; uv != math3d.V2(1, 1) {
		t.Errorf("far corner UV = %v", uv)
	}
	if !m.BoundsMax.ApproxEqual(math3d.V3(0.4, 1.2, 0), 1e-12) {
		t.Errorf("bounds max = %v", m.BoundsMax)
	}
}

func BenchmarkTessellate(b *testing.B) {
	g, err := lsystem.Preset("tree")
	if err != nil {
		b.Fatal(err)
	}
	buf := g.Generate()
	for b.Loop() {
		Tessellate(buf, 8)
	}
}
