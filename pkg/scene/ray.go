// Package scene evaluates rays against a generated plant: a ground plane,
// the branch cones and the alpha-masked leaf quads. Evaluation is a linear
// scan over read-only buffers and is safe for concurrent use.
package scene

import (
	"math"

	"github.com/taigrr/sprout/pkg/math3d"
)

// MinT is the smallest accepted hit distance. Hits at or below it are
// treated as self intersections.
const MinT = 1e-4

// Ray is a half line. Direction is unit length when built with NewRay.
type Ray struct {
	Origin    math3d.Vec3
	Direction math3d.Vec3
}

// NewRay returns a ray with a normalized direction.
func NewRay(origin, direction math3d.Vec3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) math3d.Vec3 {
	return r.Origin.AddScaled(r.Direction, t)
}

// Kind identifies what a ray struck.
type Kind uint8

const (
	KindMiss Kind = iota
	KindGround
	KindBranch
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindGround:
		return "ground"
	case KindBranch:
		return "branch"
	case KindLeaf:
		return "leaf"
	}
	return "miss"
}

// Hit describes the closest intersection along a ray.
type Hit struct {
	Kind   Kind
	T      float64
	Point  math3d.Vec3
	Normal math3d.Vec3
	Color  math3d.Vec3

	// Index is the position of the struck primitive in its buffer, -1 for
	// the ground and for misses.
	Index int
}

// Miss is the sentinel returned when nothing is struck.
var Miss = Hit{Kind: KindMiss, T: math.Inf(1), Index: -1}

// IsMiss reports whether h is the miss sentinel.
func (h Hit) IsMiss() bool { return h.Kind == KindMiss || math.IsInf(h.T, 1) }

// IsHit reports whether h struck something.
func (h Hit) IsHit() bool { return !h.IsMiss() }
