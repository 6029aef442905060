package render

import (
	"math"

	"github.com/taigrr/sprout/pkg/math3d"
	"github.com/taigrr/sprout/pkg/scene"
)

// Lighting weights.
const (
	Ambient      = 0.2
	Diffuse      = 0.8
	ShadowFactor = 0.2
)

// DefaultShadowBias is the offset along the normal for shadow ray origins.
const DefaultShadowBias = 1e-3

// Light is a directional light. Direction points from the scene toward
// the light.
type Light struct {
	Direction math3d.Vec3
	Color     math3d.Vec3
}

// DefaultLight is a white sun high in the south west.
func DefaultLight() Light {
	return Light{Direction: math3d.V3(-0.4, 0.8, 0.45).Normalize(), Color: math3d.Splat3(1)}
}

// Tracer shades primary rays against a scene. It holds no mutable state
// and may be shared by any number of goroutines.
type Tracer struct {
	Scene *scene.Scene
	Light Light
	Env   Environment

	// ShadowBias is the shadow ray offset; zero means DefaultShadowBias.
	ShadowBias float64
}

// Trace returns the unclamped color seen along r.
func (tr *Tracer) Trace(r scene.Ray) math3d.Vec3 {
	hit := tr.Scene.Evaluate(r)
	if hit.IsMiss() {
		return tr.environment(r.Direction)
	}

	c := tr.Shade(hit)
	if tr.InShadow(hit) {
		c = c.Scale(ShadowFactor)
	}
	return c
}

// Shade returns the ambient plus diffuse color of hit, without shadows.
func (tr *Tracer) Shade(hit scene.Hit) math3d.Vec3 {
	m := hit.Color
	l := tr.Light.Direction.Normalize()
	ndotl := math.Max(0, hit.Normal.Dot(l))
	return m.Scale(Ambient).Add(m.Mul(tr.Light.Color).Scale(Diffuse * ndotl))
}

// InShadow reports whether anything lies between hit and the light.
func (tr *Tracer) InShadow(hit scene.Hit) bool {
	bias := tr.ShadowBias
	if bias == 0 {
		bias = DefaultShadowBias
	}
	origin := hit.Point.AddScaled(hit.Normal, bias)
	return tr.Scene.Occluded(scene.NewRay(origin, tr.Light.Direction))
}

func (tr *Tracer) environment(dir math3d.Vec3) math3d.Vec3 {
	if tr.Env == nil {
		return math3d.Vec3{}
	}
	return tr.Env.Sample(dir)
}
