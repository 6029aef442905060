package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/taigrr/sprout/internal/logging"
	"github.com/taigrr/sprout/pkg/math3d"
)

// Environment supplies the color seen along rays that escape the scene.
type Environment interface {
	Sample(dir math3d.Vec3) math3d.Vec3
}

// EnvironmentFunc adapts a function to Environment.
type EnvironmentFunc func(dir math3d.Vec3) math3d.Vec3

// Sample calls f(dir).
func (f EnvironmentFunc) Sample(dir math3d.Vec3) math3d.Vec3 { return f(dir) }

// Cube faces in the usual +X, -X, +Y, -Y, +Z, -Z order.
const (
	FacePosX = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// faceNames are the file stems LoadCubeMap looks for.
var faceNames = [6]string{"px", "nx", "py", "ny", "pz", "nz"}

// ErrMissingFace is returned by LoadCubeMap when a face image is absent.
var ErrMissingFace = errors.New("cube map face not found")

// CubeMap is an environment made of six square face textures, addressed
// the way graphics APIs address cube maps.
type CubeMap struct {
	Faces [6]*Texture
}

// Sample returns the face texel the direction points at.
func (c *CubeMap) Sample(dir math3d.Vec3) math3d.Vec3 {
	face, s, t := cubeFace(dir)
	tex := c.Faces[face]
	if tex == nil {
		return math3d.Vec3{}
	}
	// t counts image rows from the top; Texture.Sample counts from the bottom.
	return colorToVec3(tex.Sample(s, 1-t))
}

// cubeFace selects the face by the dominant axis and returns the face
// coordinates, s to the right and t downward, both in [0,1].
func cubeFace(d math3d.Vec3) (face int, s, t float64) {
	ax, ay, az := math.Abs(d.X), math.Abs(d.Y), math.Abs(d.Z)
	var sc, tc, ma float64

	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if d.X > 0 {
			face, sc, tc = FacePosX, -d.Z, -d.Y
		} else {
			face, sc, tc = FaceNegX, d.Z, -d.Y
		}
	case ay >= az:
		ma = ay
		if d.Y > 0 {
			face, sc, tc = FacePosY, d.X, d.Z
		} else {
			face, sc, tc = FaceNegY, d.X, -d.Z
		}
	default:
		ma = az
		if d.Z > 0 {
			face, sc, tc = FacePosZ, d.X, -d.Y
		} else {
			face, sc, tc = FaceNegZ, -d.X, -d.Y
		}
	}
	if ma == 0 {
		return FacePosY, 0.5, 0.5
	}
	return face, (sc/ma + 1) / 2, (tc/ma + 1) / 2
}

// faceDirection is the inverse of cubeFace: the unnormalized direction
// through face coordinates (s, t).
func faceDirection(face int, s, t float64) math3d.Vec3 {
	a := 2*s - 1
	b := 2*t - 1
	switch face {
	case FacePosX:
		return math3d.V3(1, -b, -a)
	case FaceNegX:
		return math3d.V3(-1, -b, a)
	case FacePosY:
		return math3d.V3(a, 1, b)
	case FaceNegY:
		return math3d.V3(a, -1, -b)
	case FacePosZ:
		return math3d.V3(a, -b, 1)
	default:
		return math3d.V3(-a, -b, -1)
	}
}

// NewCubeMapFunc bakes an analytic environment into a cube map with square
// faces of the given size.
func NewCubeMapFunc(size int, env func(dir math3d.Vec3) math3d.Vec3) *CubeMap {
	cm := &CubeMap{}
	for face := range cm.Faces {
		tex := NewTexture(size, size)
		tex.WrapU = WrapClamp
		tex.WrapV = WrapClamp
		for y := range size {
			for x := range size {
				s := (float64(x) + 0.5) / float64(size)
				t := (float64(y) + 0.5) / float64(size)
				tex.SetPixel(x, y, color.NRGBA(vec3ToColor(env(faceDirection(face, s, t).Normalize()))))
			}
		}
		cm.Faces[face] = tex
	}
	return cm
}

// NewSkyCubeMap bakes a procedural sky: a horizon to zenith gradient, a
// darker band below the horizon and a sun disc toward sun.
func NewSkyCubeMap(size int, sun math3d.Vec3) *CubeMap {
	sun = sun.Normalize()
	return NewCubeMapFunc(size, func(dir math3d.Vec3) math3d.Vec3 {
		return SkyColor(dir, sun)
	})
}

var (
	skyZenith  = math3d.V3(0.22, 0.42, 0.78)
	skyHorizon = math3d.V3(0.72, 0.82, 0.92)
	skyGround  = math3d.V3(0.30, 0.28, 0.25)
	sunColor   = math3d.V3(1.0, 0.95, 0.85)
)

// SkyColor is the analytic sky NewSkyCubeMap bakes. sun must be unit
// length.
func SkyColor(dir, sun math3d.Vec3) math3d.Vec3 {
	dir = dir.Normalize()
	if dir.Y < 0 {
		return skyHorizon.Lerp(skyGround, math.Min(1, -dir.Y*4))
	}
	c := skyHorizon.Lerp(skyZenith, math.Pow(dir.Y, 0.6))
	if cos := dir.Dot(sun); cos > 0.995 {
		return sunColor
	} else if cos > 0.95 {
		glow := (cos - 0.95) / 0.045
		c = c.Lerp(sunColor, glow*glow*0.6)
	}
	return c
}

// LoadCubeMap loads px, nx, py, ny, pz and nz images from dir. Any
// extension LoadTexture can decode is accepted.
func LoadCubeMap(dir string) (*CubeMap, error) {
	cm := &CubeMap{}
	for i, name := range faceNames {
		path, err := findFace(dir, name)
		if err != nil {
			return nil, err
		}
		tex, err := LoadTexture(path)
		if err != nil {
			return nil, fmt.Errorf("cube map face %s: %w", name, err)
		}
		if tex.Width != tex.Height {
			logging.L().Warn("render: cube map face is not square",
				"face", name, "width", tex.Width, "height", tex.Height)
		}
		tex.WrapU = WrapClamp
		tex.WrapV = WrapClamp
		tex.FilterMode = FilterBilinear
		cm.Faces[i] = tex
	}
	return cm, nil
}

func findFace(dir, name string) (string, error) {
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".webp", ".bmp", ".tif", ".tiff"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrMissingFace, name, dir)
}
