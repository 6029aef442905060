package scene

import (
	"math"
	"math/rand"
	"testing"

	"github.com/taigrr/sprout/pkg/lsystem"
	"github.com/taigrr/sprout/pkg/math3d"
)

const tolerance = 1e-9

func vertical(x, z, r float64) lsystem.Branch {
	return lsystem.Branch{P1: math3d.V3(x, 0, z), R1: r, P2: math3d.V3(x, 1, z), R2: r}
}

func TestClosestHitOfTwoBranches(t *testing.T) {
	buf := &lsystem.Buffers{Branches: []lsystem.Branch{
		vertical(0, -2, 0.1), // farther, inserted first
		vertical(0, 0, 0.1),
	}}
	s := New(buf, Materials{})

	hit := s.Evaluate(NewRay(math3d.V3(0, 0.5, 5), math3d.V3(0, 0, -1)))
	if hit.Kind != KindBranch || hit.Index != 1 {
		t.Fatalf("hit = %v #%d, want branch #1", hit.Kind, hit.Index)
	}
	if math.Abs(hit.T-4.9) > tolerance {
		t.Errorf("T = %v, want 4.9", hit.T)
	}
	if !hit.Normal.ApproxEqual(math3d.V3(0, 0, 1), tolerance) {
		t.Errorf("Normal = %v, want +Z", hit.Normal)
	}
	if !hit.Point.ApproxEqual(math3d.V3(0, 0.5, 0.1), tolerance) {
		t.Errorf("Point = %v", hit.Point)
	}
	if hit.Color != DefaultBarkColor {
		t.Errorf("Color = %v, want default bark", hit.Color)
	}
}

func TestGroundAndMiss(t *testing.T) {
	s := New(&lsystem.Buffers{}, Materials{})

	tests := []struct {
		name  string
		ray   Ray
		kind  Kind
		t     float64
		point math3d.Vec3
	}{
		{"straight down", NewRay(math3d.V3(3, 2, 1), math3d.V3(0, -1, 0)), KindGround, 2, math3d.V3(3, 0, 1)},
		{"oblique down", NewRay(math3d.V3(0, 1, 0), math3d.V3(1, -1, 0)), KindGround, math.Sqrt2, math3d.V3(1, 0, 0)},
		{"horizontal", NewRay(math3d.V3(0, 1, 0), math3d.V3(0, 0, -1)), KindMiss, math.Inf(1), math3d.Vec3{}},
		{"upward", NewRay(math3d.V3(0, 1, 0), math3d.V3(0, 1, 1)), KindMiss, math.Inf(1), math3d.Vec3{}},
		{"from below, downward", NewRay(math3d.V3(0, -1, 0), math3d.V3(0, -1, 0)), KindMiss, math.Inf(1), math3d.Vec3{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit := s.Evaluate(tt.ray)
			if hit.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", hit.Kind, tt.kind)
			}
			if tt.kind == KindMiss {
				if !hit.IsMiss() || hit.IsHit() || !math.IsInf(hit.T, 1) {
					t.Errorf("hit = %+v, want Miss", hit)
				}
				return
			}
			if math.Abs(hit.T-tt.t) > tolerance {
				t.Errorf("T = %v, want %v", hit.T, tt.t)
			}
			if !hit.Point.ApproxEqual(tt.point, tolerance) {
				t.Errorf("Point = %v, want %v", hit.Point, tt.point)
			}
			if hit.Normal != math3d.Up() {
				t.Errorf("Normal = %v, want +Y", hit.Normal)
			}
		})
	}
}

func TestBranchOccludesGround(t *testing.T) {
	s := New(&lsystem.Buffers{Branches: []lsystem.Branch{vertical(0, 0, 0.1)}}, Materials{})
	hit := s.Evaluate(NewRay(math3d.V3(0, 5, 0), math3d.V3(0, -1, 0)))
	if hit.Kind != KindBranch {
		t.Fatalf("Kind = %v, want branch", hit.Kind)
	}
	// Top end sphere of radius 0.1 at y = 1.
	if math.Abs(hit.T-3.9) > tolerance {
		t.Errorf("T = %v, want 3.9", hit.T)
	}
	if !hit.Normal.ApproxEqual(math3d.Up(), tolerance) {
		t.Errorf("Normal = %v, want +Y", hit.Normal)
	}
}

func TestIntersectBranch(t *testing.T) {
	tapered := lsystem.Branch{P1: math3d.V3(0, 0, 0), R1: 0.2, P2: math3d.V3(0, 2, 0), R2: 0.1}

	tests := []struct {
		name   string
		ray    Ray
		branch lsystem.Branch
		ok     bool
		t      float64
	}{
		{"cylinder side", NewRay(math3d.V3(0, 0.5, 5), math3d.V3(0, 0, -1)), vertical(0, 0, 0.1), true, 4.9},
		{"tapered side", NewRay(math3d.V3(0, 1, 5), math3d.V3(0, 0, -1)), tapered, true, 4.849812147703458},
		{"bottom cap from below", NewRay(math3d.V3(0, -5, 0), math3d.V3(0, 1, 0)), vertical(0, 0, 0.1), true, 4.9},
		{"passes beside", NewRay(math3d.V3(0.5, 0.5, 5), math3d.V3(0, 0, -1)), vertical(0, 0, 0.1), false, 0},
		{"passes above", NewRay(math3d.V3(0, 1.5, 5), math3d.V3(0, 0, -1)), vertical(0, 0, 0.1), false, 0},
		{"pointing away", NewRay(math3d.V3(0, 0.5, 5), math3d.V3(0, 0, 1)), vertical(0, 0, 0.1), false, 0},
		{"leaving the surface", NewRay(math3d.V3(0, 0.5, 0.1+1e-6), math3d.V3(0, 0, 1)), vertical(0, 0, 0.1), false, 0},
		{"zero length", NewRay(math3d.V3(0, 0, 5), math3d.V3(0, 0, -1)),
			lsystem.Branch{P1: math3d.V3(0, 0, 0), R1: 0.5, P2: math3d.V3(0, 0, 0), R2: 0.5}, false, 0},
		{"enveloped", NewRay(math3d.V3(0, 0, 5), math3d.V3(0, 0, -1)),
			lsystem.Branch{P1: math3d.V3(0, 0, 0), R1: 2, P2: math3d.V3(0, 1, 0), R2: 0.1}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, ok := IntersectBranch(tt.ray, tt.branch)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (t=%v)", ok, tt.ok, got)
			}
			if !ok {
				return
			}
			if math.Abs(got-tt.t) > 1e-6 {
				t.Errorf("t = %v, want %v", got, tt.t)
			}
			if math.Abs(n.Len()-1) > tolerance {
				t.Errorf("normal %v is not unit length", n)
			}
			if n.Dot(tt.ray.Direction) >= 0 {
				t.Errorf("normal %v does not face the ray", n)
			}
		})
	}
}

func TestTaperedNormalLeansTowardNarrowEnd(t *testing.T) {
	b := lsystem.Branch{P1: math3d.V3(0, 0, 0), R1: 0.2, P2: math3d.V3(0, 2, 0), R2: 0.1}
	_, n, ok := IntersectBranch(NewRay(math3d.V3(0, 1, 5), math3d.V3(0, 0, -1)), b)
	if !ok {
		t.Fatal("expected hit")
	}
	// The slant angle satisfies sin α = (R1-R2)/length.
	if math.Abs(n.Y-0.05) > 1e-9 {
		t.Errorf("normal.Y = %v, want 0.05", n.Y)
	}
}

type halfMask struct{ color math3d.Vec3 }

// SampleRGBA is opaque only for u >= 0.5.
func (m halfMask) SampleRGBA(u, v float64) (math3d.Vec3, float64) {
	if u < 0.5 {
		return m.color, 0
	}
	return m.color, 1
}

func testLeaf() lsystem.Leaf {
	return lsystem.Leaf{
		Position:  math3d.V3(0, 1, 0),
		Direction: math3d.V3(1, 0, 0),
		Up:        math3d.V3(0, 1, 0),
		Size:      math3d.V2(1, 2),
	}
}

func TestLeafQuad(t *testing.T) {
	tt, a, b, n, ok := IntersectLeafQuad(NewRay(math3d.V3(0.5, 1.5, 5), math3d.V3(0, 0, -1)), testLeaf())
	if !ok {
		t.Fatal("expected hit")
	}
	if math.Abs(tt-5) > tolerance || math.Abs(a-0.25) > tolerance || math.Abs(b-0.5) > tolerance {
		t.Errorf("t, a, b = %v, %v, %v, want 5, 0.25, 0.5", tt, a, b)
	}
	if !n.ApproxEqual(math3d.V3(0, 0, 1), tolerance) {
		t.Errorf("n = %v, want +Z", n)
	}

	misses := []Ray{
		NewRay(math3d.V3(-0.1, 1.5, 5), math3d.V3(0, 0, -1)), // before anchor
		NewRay(math3d.V3(2.1, 1.5, 5), math3d.V3(0, 0, -1)),  // past length
		NewRay(math3d.V3(0.5, 2.1, 5), math3d.V3(0, 0, -1)),  // past width
		NewRay(math3d.V3(0.5, 1.5, 5), math3d.V3(1, 0, 0)),   // parallel
	}
	for i, r := range misses {
		if _, _, _, _, ok := IntersectLeafQuad(r, testLeaf()); ok {
			t.Errorf("ray %d: unexpected hit", i)
		}
	}
}

func TestLeafNormalFacesRay(t *testing.T) {
	s := New(&lsystem.Buffers{Leaves: []lsystem.Leaf{testLeaf()}}, Materials{})

	front := s.Evaluate(NewRay(math3d.V3(0.5, 1.5, 5), math3d.V3(0, 0, -1)))
	back := s.Evaluate(NewRay(math3d.V3(0.5, 1.5, -5), math3d.V3(0, 0, 1)))
	for name, hit := range map[string]Hit{"front": front, "back": back} {
		if hit.Kind != KindLeaf || hit.Index != 0 {
			t.Fatalf("%s: hit %v #%d, want leaf #0", name, hit.Kind, hit.Index)
		}
	}
	if !front.Normal.ApproxEqual(math3d.V3(0, 0, 1), tolerance) {
		t.Errorf("front normal = %v, want +Z", front.Normal)
	}
	if !back.Normal.ApproxEqual(math3d.V3(0, 0, -1), tolerance) {
		t.Errorf("back normal = %v, want -Z", back.Normal)
	}
}

func TestLeafAlphaMask(t *testing.T) {
	green := math3d.V3(0, 1, 0)
	s := New(&lsystem.Buffers{Leaves: []lsystem.Leaf{testLeaf()}}, Materials{Leaf: halfMask{green}})

	// b = 0.25 is transparent; the horizontal ray then hits nothing.
	hole := s.Evaluate(NewRay(math3d.V3(0.5, 1.25, 5), math3d.V3(0, 0, -1)))
	if !hole.IsMiss() {
		t.Errorf("transparent texel: got %v, want miss", hole.Kind)
	}
	if s.Occluded(NewRay(math3d.V3(0.5, 1.25, 5), math3d.V3(0, 0, -1))) {
		t.Error("transparent texel occludes")
	}

	solid := s.Evaluate(NewRay(math3d.V3(0.5, 1.75, 5), math3d.V3(0, 0, -1)))
	if solid.Kind != KindLeaf || solid.Color != green {
		t.Errorf("opaque texel: got %v color %v, want leaf %v", solid.Kind, solid.Color, green)
	}
}

func TestBranchUV(t *testing.T) {
	up := lsystem.Branch{P1: math3d.V3(0, 0, 0), R1: 0.1, P2: math3d.V3(0, 2, 0), R2: 0.1}
	alongZ := lsystem.Branch{P1: math3d.V3(0, 0, 0), R1: 0.1, P2: math3d.V3(0, 0, 1), R2: 0.1}

	tests := []struct {
		name   string
		branch lsystem.Branch
		p      math3d.Vec3
		u, v   float64
	}{
		{"vertical +X side", up, math3d.V3(0.1, 1, 0), math.Pi / 2, 1},
		{"vertical -Z side", up, math3d.V3(0, 1, -0.1), 0, 1},
		{"vertical below start", up, math3d.V3(0, -0.5, -0.1), 0, -0.5},
		{"axis parallel to Z uses fallback", alongZ, math3d.V3(0, 0.1, 0.5), math.Pi / 2, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, v := BranchUV(tt.branch, tt.p)
			if math.IsNaN(u) || math.IsNaN(v) {
				t.Fatalf("u, v = %v, %v", u, v)
			}
			if math.Abs(u-tt.u) > tolerance || math.Abs(v-tt.v) > tolerance {
				t.Errorf("u, v = %v, %v, want %v, %v", u, v, tt.u, tt.v)
			}
		})
	}
}

type stripe struct{}

func (stripe) SampleRGBA(u, v float64) (math3d.Vec3, float64) {
	return math3d.V3(u, v, 0), 1
}

func TestBarkSurfaceReceivesUV(t *testing.T) {
	s := New(&lsystem.Buffers{Branches: []lsystem.Branch{vertical(0, 0, 0.1)}}, Materials{Bark: stripe{}})
	hit := s.Evaluate(NewRay(math3d.V3(5, 0.5, 0), math3d.V3(-1, 0, 0)))
	if hit.Kind != KindBranch {
		t.Fatalf("Kind = %v", hit.Kind)
	}
	// +X side of a vertical branch is a quarter turn.
	if math.Abs(hit.Color.X-0.25) > tolerance || math.Abs(hit.Color.Y-0.5) > tolerance {
		t.Errorf("Color = %v, want (0.25, 0.5, 0)", hit.Color)
	}
}

func TestOccludedMatchesEvaluate(t *testing.T) {
	g, err := lsystem.Preset("tree")
	if err != nil {
		t.Fatal(err)
	}
	s := New(g.WithDepth(3).Generate(), Materials{Leaf: halfMask{}})
	box := s.Bounds()

	rng := rand.New(rand.NewSource(1))
	for i := range 2000 {
		o := math3d.V3(rng.Float64()*8-4, rng.Float64()*6+0.5, rng.Float64()*8-4)
		target := box.Min.Add(box.Size().Mul(math3d.V3(rng.Float64(), rng.Float64(), rng.Float64())))
		r := NewRay(o, target.Sub(o))
		if got, want := s.Occluded(r), s.Evaluate(r).IsHit(); got != want {
			t.Fatalf("ray %d: Occluded = %v, Evaluate hit = %v", i, got, want)
		}
	}
}

func TestBounds(t *testing.T) {
	s := New(&lsystem.Buffers{Branches: []lsystem.Branch{vertical(0, 0, 0.1)}}, Materials{})
	box := s.Bounds()
	if !box.Min.ApproxEqual(math3d.V3(-0.1, -0.1, -0.1), tolerance) ||
		!box.Max.ApproxEqual(math3d.V3(0.1, 1.1, 0.1), tolerance) {
		t.Errorf("Bounds = %+v", box)
	}
	if !box.ContainsPoint(math3d.V3(0, 0.5, 0)) || box.ContainsPoint(math3d.V3(0, 2, 0)) {
		t.Error("ContainsPoint disagrees with bounds")
	}

	empty := New(nil, Materials{}).Bounds()
	if empty != (AABB{}) {
		t.Errorf("empty Bounds = %+v, want zero box", empty)
	}
}

func BenchmarkEvaluateTree(b *testing.B) {
	g, err := lsystem.Preset("tree")
	if err != nil {
		b.Fatal(err)
	}
	s := New(g.Generate(), Materials{})
	r := NewRay(math3d.V3(0, 3, 10), math3d.V3(0, 0, -1))
	for b.Loop() {
		s.Evaluate(r)
	}
}
