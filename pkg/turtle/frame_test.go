package turtle

import (
	"math"
	"math/rand"
	"testing"

	"github.com/taigrr/sprout/pkg/math3d"
)

const tolerance = 1e-9

func assertOrthonormal(t *testing.T, s State) {
	t.Helper()
	for name, v := range map[string]math3d.Vec3{"forward": s.Forward, "left": s.Left, "up": s.Up} {
		if math.Abs(v.Len()-1) > tolerance {
			t.Errorf("%s length = %v, want 1", name, v.Len())
		}
	}
	if d := s.Forward.Dot(s.Left); math.Abs(d) > tolerance {
		t.Errorf("forward·left = %v, want 0", d)
	}
	if d := s.Forward.Dot(s.Up); math.Abs(d) > tolerance {
		t.Errorf("forward·up = %v, want 0", d)
	}
	if d := s.Left.Dot(s.Up); math.Abs(d) > tolerance {
		t.Errorf("left·up = %v, want 0", d)
	}
}

func TestDefaultStateIsRightHanded(t *testing.T) {
	s := DefaultState()
	assertOrthonormal(t, s)
	if got := s.Forward.Cross(s.Left); !got.ApproxEqual(s.Up, tolerance) {
		t.Errorf("forward × left = %v, want up %v", got, s.Up)
	}
}

func TestRotateKeepsFrameOrthonormal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	f := New()

	for i := range 10000 {
		var axis math3d.Vec3
		switch i % 3 {
		case 0:
			axis = math3d.Up()
		case 1:
			axis = f.Left().Normalize()
		default:
			axis = math3d.V3(rng.Float64()-0.5, rng.Float64()-0.5, rng.Float64()-0.5).Normalize()
		}
		f.Rotate(axis, (rng.Float64()-0.5)*0.3)
	}

	assertOrthonormal(t, f.State())
}

func TestRotateCases(t *testing.T) {
	tests := []struct {
		name        string
		axis        func(*Frame) math3d.Vec3
		angle       float64
		wantForward math3d.Vec3
		wantLeft    math3d.Vec3
	}{
		{
			name:        "yaw about world up keeps vertical heading",
			axis:        func(*Frame) math3d.Vec3 { return math3d.Up() },
			angle:       math.Pi / 2,
			wantForward: math3d.V3(0, 1, 0),
			wantLeft:    math3d.V3(1, 0, 0),
		},
		{
			name:        "pitch about left tips heading over",
			axis:        func(f *Frame) math3d.Vec3 { return f.Left().Normalize() },
			angle:       math.Pi / 2,
			wantForward: math3d.V3(-1, 0, 0),
			wantLeft:    math3d.V3(0, 0, 1),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := New()
			f.Rotate(tc.axis(f), tc.angle)
			if !f.Forward().ApproxEqual(tc.wantForward, tolerance) {
				t.Errorf("forward = %v, want %v", f.Forward(), tc.wantForward)
			}
			if !f.Left().ApproxEqual(tc.wantLeft, tolerance) {
				t.Errorf("left = %v, want %v", f.Left(), tc.wantLeft)
			}
			assertOrthonormal(t, f.State())
		})
	}
}

func TestPushPopRestoresExactly(t *testing.T) {
	f := New()
	f.Move(0.5)
	f.Rotate(math3d.Up(), 0.3)
	before := f.State()

	f.Push()
	f.Move(2)
	f.Rotate(f.Left().Normalize(), 1.1)
	f.Rotate(math3d.Up(), -0.4)
	f.SetBrushWidth(0.25)
	f.Move(-3)
	f.Pop()

	if got := f.State(); got != before {
		t.Errorf("state after pop = %+v, want %+v", got, before)
	}
	if f.StackDepth() != 0 {
		t.Errorf("stack depth = %d, want 0", f.StackDepth())
	}
}

func TestNestedPushPop(t *testing.T) {
	f := New()
	f.Push()
	f.Move(1)
	mid := f.State()
	f.Push()
	f.Move(1)
	f.Pop()
	if f.State() != mid {
		t.Errorf("inner pop restored %+v, want %+v", f.State(), mid)
	}
	f.Pop()
	if f.State() != DefaultState() {
		t.Errorf("outer pop restored %+v, want default", f.State())
	}
}

func TestPopEmptyIsNoop(t *testing.T) {
	f := New()
	f.Move(4)
	before := f.State()
	f.Pop()
	f.Pop()
	if f.State() != before {
		t.Errorf("pop on empty stack changed state to %+v", f.State())
	}
}

func TestSetBrushWidth(t *testing.T) {
	tests := []struct {
		name  string
		width float64
		want  float64
	}{
		{"positive replaces", 0.5, 0.5},
		{"zero ignored", 0, 1},
		{"negative ignored", -2, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := New()
			f.SetBrushWidth(tc.width)
			if f.BrushWidth() != tc.want {
				t.Errorf("brush width = %v, want %v", f.BrushWidth(), tc.want)
			}
		})
	}
}

func TestMoveUsesNormalizedHeading(t *testing.T) {
	f := New()
	f.current.Forward = math3d.V3(0, 3, 0)
	f.Move(2)
	if !f.Position().ApproxEqual(math3d.V3(0, 2, 0), tolerance) {
		t.Errorf("position = %v, want (0, 2, 0)", f.Position())
	}
	f.Move(-5)
	if !f.Position().ApproxEqual(math3d.V3(0, -3, 0), tolerance) {
		t.Errorf("position = %v, want (0, -3, 0)", f.Position())
	}
}

func TestReset(t *testing.T) {
	f := New()
	f.Push()
	f.Move(3)
	f.Reset()
	if f.State() != DefaultState() || f.StackDepth() != 0 {
		t.Errorf("Reset left state %+v with depth %d", f.State(), f.StackDepth())
	}
}

func BenchmarkRotate(b *testing.B) {
	f := New()
	for b.Loop() {
		f.Rotate(math3d.Up(), 0.01)
	}
}
