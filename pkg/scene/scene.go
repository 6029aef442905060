package scene

import (
	"math"

	"github.com/taigrr/sprout/pkg/lsystem"
	"github.com/taigrr/sprout/pkg/math3d"
)

// AlphaCutoff is the leaf mask opacity below which a texel is a hole.
const AlphaCutoff = 0.5

// Surface is a color source addressed by texture coordinates. Textures
// wrap, so any (u, v) is valid.
type Surface interface {
	SampleRGBA(u, v float64) (rgb math3d.Vec3, alpha float64)
}

// Materials binds a surface to each primitive kind. Nil entries use flat
// default colors, and a nil Leaf surface makes every leaf fully opaque.
type Materials struct {
	Bark   Surface
	Leaf   Surface
	Ground Surface

	// GroundScale is the number of ground texture repeats per world unit.
	// Zero means one.
	GroundScale float64
}

// Flat colors used when a material has no surface.
var (
	DefaultBarkColor   = math3d.V3(0.42, 0.29, 0.18)
	DefaultLeafColor   = math3d.V3(0.24, 0.55, 0.18)
	DefaultGroundColor = math3d.V3(0.45, 0.44, 0.40)
)

// Scene is a frozen set of primitives plus their materials.
type Scene struct {
	buf *lsystem.Buffers
	mat Materials
}

// New wraps buf for evaluation. buf must not be modified while the scene
// is in use.
func New(buf *lsystem.Buffers, mat Materials) *Scene {
	if buf == nil {
		buf = &lsystem.Buffers{}
	}
	return &Scene{buf: buf, mat: mat}
}

// Buffers returns the primitives the scene evaluates.
func (s *Scene) Buffers() *lsystem.Buffers { return s.buf }

// Materials returns the scene materials.
func (s *Scene) Materials() Materials { return s.mat }

// Evaluate returns the closest hit along r, or Miss. The ground is tested
// first, then every branch, then every leaf; a later primitive replaces the
// current hit only when strictly closer.
func (s *Scene) Evaluate(r Ray) Hit {
	closest := Miss

	if t, n, ok := IntersectGround(r); ok {
		p := r.At(t)
		closest = Hit{Kind: KindGround, T: t, Point: p, Normal: n, Color: s.groundColor(p), Index: -1}
	}

	for i, b := range s.buf.Branches {
		t, n, ok := IntersectBranch(r, b)
		if !ok || t >= closest.T {
			continue
		}
		p := r.At(t)
		closest = Hit{Kind: KindBranch, T: t, Point: p, Normal: n, Color: s.barkColor(b, p), Index: i}
	}

	for i, l := range s.buf.Leaves {
		t, col, n, ok := s.intersectLeaf(r, l)
		if !ok || t >= closest.T {
			continue
		}
		if r.Direction.Dot(n) > 0 {
			n = n.Negate()
		}
		closest = Hit{Kind: KindLeaf, T: t, Point: r.At(t), Normal: n, Color: col, Index: i}
	}

	return closest
}

// Occluded reports whether r strikes anything at all. It uses the same hit
// tests as Evaluate and returns at the first one found.
func (s *Scene) Occluded(r Ray) bool {
	if _, _, ok := IntersectGround(r); ok {
		return true
	}
	for _, b := range s.buf.Branches {
		if _, _, ok := IntersectBranch(r, b); ok {
			return true
		}
	}
	for _, l := range s.buf.Leaves {
		if _, _, _, ok := s.intersectLeaf(r, l); ok {
			return true
		}
	}
	return false
}

// intersectLeaf applies the alpha mask on top of the quad test.
func (s *Scene) intersectLeaf(r Ray, l lsystem.Leaf) (float64, math3d.Vec3, math3d.Vec3, bool) {
	t, a, b, n, ok := IntersectLeafQuad(r, l)
	if !ok {
		return 0, math3d.Vec3{}, math3d.Vec3{}, false
	}
	if s.mat.Leaf == nil {
		return t, DefaultLeafColor, n, true
	}
	rgb, alpha := s.mat.Leaf.SampleRGBA(b, a)
	if alpha < AlphaCutoff {
		return 0, math3d.Vec3{}, math3d.Vec3{}, false
	}
	return t, rgb, n, true
}

func (s *Scene) barkColor(b lsystem.Branch, p math3d.Vec3) math3d.Vec3 {
	if s.mat.Bark == nil {
		return DefaultBarkColor
	}
	u, v := BranchUV(b, p)
	rgb, _ := s.mat.Bark.SampleRGBA(u/(2*math.Pi), v)
	return rgb
}

func (s *Scene) groundColor(p math3d.Vec3) math3d.Vec3 {
	if s.mat.Ground == nil {
		return DefaultGroundColor
	}
	scale := s.mat.GroundScale
	if scale == 0 {
		scale = 1
	}
	rgb, _ := s.mat.Ground.SampleRGBA(p.X*scale, p.Z*scale)
	return rgb
}
