package render

import (
	"math"

	"github.com/taigrr/sprout/pkg/math3d"
	"github.com/taigrr/sprout/pkg/scene"
)

// MaxPitch keeps the camera off the poles where yaw is undefined.
const MaxPitch = math.Pi/2 - 0.01

// Camera is a pinhole camera with yaw and pitch orientation.
type Camera struct {
	Position math3d.Vec3

	Pitch float64 // Rotation around X axis (look up/down)
	Yaw   float64 // Rotation around Y axis (look left/right)

	FOV float64 // Vertical field of view in radians

	// AspectRatio is width over height. Zero uses the pixel dimensions
	// passed to Ray.
	AspectRatio float64
}

// NewCamera creates a camera at (0, 2, 8) looking down -Z.
func NewCamera() *Camera {
	return &Camera{
		Position: math3d.V3(0, 2, 8),
		FOV:      math.Pi / 3, // 60 degrees
	}
}

// Forward returns the forward direction vector.
func (c *Camera) Forward() math3d.Vec3 {
	// Forward is -Z in camera space, rotated by yaw and pitch
	return math3d.V3(
		-math.Sin(c.Yaw)*math.Cos(c.Pitch),
		math.Sin(c.Pitch),
		-math.Cos(c.Yaw)*math.Cos(c.Pitch),
	)
}

// Right returns the right direction vector.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(math.Cos(c.Yaw), 0, -math.Sin(c.Yaw))
}

// Up returns the up direction vector.
func (c *Camera) Up() math3d.Vec3 {
	return c.Right().Cross(c.Forward())
}

// LookAt makes the camera look at a target point.
func (c *Camera) LookAt(target math3d.Vec3) {
	dir := target.Sub(c.Position).Normalize()
	c.Pitch = math.Asin(math.Max(-1, math.Min(1, dir.Y)))
	c.Yaw = math.Atan2(-dir.X, -dir.Z)
}

// Orbit places the camera dist away from target, oriented by yaw and pitch
// and looking at target. Pitch is clamped to ±MaxPitch.
func (c *Camera) Orbit(target math3d.Vec3, dist, yaw, pitch float64) {
	c.Yaw = yaw
	c.Pitch = math.Max(-MaxPitch, math.Min(MaxPitch, pitch))
	c.Position = target.AddScaled(c.Forward(), -dist)
}

// Frame keeps the current orientation and backs the camera off until the
// bounding sphere of b fills the view. It returns the orbit target and
// distance it chose.
func (c *Camera) Frame(b scene.AABB) (target math3d.Vec3, dist float64) {
	target = b.Center()
	radius := math.Max(b.Radius(), 0.5)

	half := c.FOV / 2
	if c.AspectRatio > 0 && c.AspectRatio < 1 {
		half = math.Atan(math.Tan(half) * c.AspectRatio)
	}
	dist = radius / math.Sin(half) * 1.05
	c.Orbit(target, dist, c.Yaw, c.Pitch)
	return target, dist
}

// Ray returns the primary ray through the centre of pixel (px, py) of a
// width by height image. Row 0 is the top.
func (c *Camera) Ray(px, py, width, height int) scene.Ray {
	aspect := c.AspectRatio
	if aspect == 0 {
		aspect = float64(width) / float64(height)
	}
	tanHalf := math.Tan(c.FOV / 2)

	x := (2*(float64(px)+0.5)/float64(width) - 1) * tanHalf * aspect
	y := (1 - 2*(float64(py)+0.5)/float64(height)) * tanHalf

	dir := c.Forward().Add(c.Right().Scale(x)).Add(c.Up().Scale(y))
	return scene.NewRay(c.Position, dir)
}

// Project maps a world point to pixel coordinates of a width by height
// image. ok is false for points behind the camera.
func (c *Camera) Project(p math3d.Vec3, width, height int) (x, y float64, ok bool) {
	d := p.Sub(c.Position)
	z := d.Dot(c.Forward())
	if z <= 1e-6 {
		return 0, 0, false
	}
	aspect := c.AspectRatio
	if aspect == 0 {
		aspect = float64(width) / float64(height)
	}
	tanHalf := math.Tan(c.FOV / 2)

	nx := d.Dot(c.Right()) / (z * tanHalf * aspect)
	ny := d.Dot(c.Up()) / (z * tanHalf)
	x = (nx + 1) * 0.5 * float64(width)
	y = (1 - ny) * 0.5 * float64(height) // Y is flipped
	return x, y, true
}
