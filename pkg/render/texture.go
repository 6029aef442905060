// Package render shades scene hits and turns the results into pixels:
// textures and cube maps, the ray tracer, the camera, a parallel renderer
// and image or terminal output.
package render

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/taigrr/sprout/pkg/math3d"
)

// WrapMode determines how texture coordinates outside [0,1] are handled.
type WrapMode int

const (
	WrapRepeat WrapMode = iota // Tile the texture
	WrapClamp                  // Clamp to edge
)

// FilterMode determines how texture sampling is performed.
type FilterMode int

const (
	FilterNearest  FilterMode = iota // Nearest-neighbor (pixelated)
	FilterBilinear                   // Bilinear interpolation (smooth)
)

// Texture holds a 2D image for texture mapping.
type Texture struct {
	Width      int
	Height     int
	Pixels     []color.NRGBA // Row-major, non-premultiplied alpha
	WrapU      WrapMode
	WrapV      WrapMode
	FilterMode FilterMode
}

// NewTexture creates an empty texture with the given dimensions.
func NewTexture(width, height int) *Texture {
	return &Texture{
		Width:      width,
		Height:     height,
		Pixels:     make([]color.NRGBA, width*height),
		WrapU:      WrapRepeat,
		WrapV:      WrapRepeat,
		FilterMode: FilterNearest,
	}
}

// LoadTexture loads a texture from a PNG, JPEG, BMP, TIFF or WebP file.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return TextureFromImage(img), nil
}

// TextureFromImage creates a texture from an image.Image.
func TextureFromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	tex := NewTexture(bounds.Dx(), bounds.Dy())

	for y := range tex.Height {
		for x := range tex.Width {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			tex.SetPixel(x, y, c)
		}
	}
	return tex
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(width, height, checkSize int, c1, c2 color.NRGBA) *Texture {
	tex := NewTexture(width, height)
	for y := range height {
		for x := range width {
			if (x/checkSize+y/checkSize)%2 == 0 {
				tex.SetPixel(x, y, c1)
			} else {
				tex.SetPixel(x, y, c2)
			}
		}
	}
	return tex
}

// SetPixel sets a pixel in the texture.
func (t *Texture) SetPixel(x, y int, c color.NRGBA) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c
}

// GetPixel returns the pixel at (x, y) with bounds checking.
func (t *Texture) GetPixel(x, y int) color.NRGBA {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return color.NRGBA{}
	}
	return t.Pixels[y*t.Width+x]
}

// Sample samples the texture at UV coordinates. V = 0 is the bottom row.
func (t *Texture) Sample(u, v float64) color.NRGBA {
	if t.Width == 0 || t.Height == 0 {
		return color.NRGBA{}
	}
	u = wrapCoord(u, t.WrapU)
	v = wrapCoord(v, t.WrapV)

	// Flip V coordinate (image Y=0 at top, UV V=0 at bottom)
	v = 1.0 - v

	switch t.FilterMode {
	case FilterBilinear:
		return t.sampleBilinear(u, v)
	default:
		return t.sampleNearest(u, v)
	}
}

// SampleRGBA returns the texel at (u, v) as linear [0,1] color plus alpha.
func (t *Texture) SampleRGBA(u, v float64) (math3d.Vec3, float64) {
	c := t.Sample(u, v)
	return colorToVec3(c), float64(c.A) / 255
}

func wrapCoord(coord float64, mode WrapMode) float64 {
	switch mode {
	case WrapRepeat:
		coord = coord - math.Floor(coord)
	case WrapClamp:
		coord = math.Max(0, math.Min(1, coord))
	}
	return coord
}

func (t *Texture) sampleNearest(u, v float64) color.NRGBA {
	x := min(int(u*float64(t.Width)), t.Width-1)
	y := min(int(v*float64(t.Height)), t.Height-1)
	return t.GetPixel(x, y)
}

func (t *Texture) sampleBilinear(u, v float64) color.NRGBA {
	fx := u*float64(t.Width) - 0.5
	fy := v*float64(t.Height) - 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	x1 := wrapPixelCoord(x0+1, t.Width, t.WrapU)
	y1 := wrapPixelCoord(y0+1, t.Height, t.WrapV)
	x0 = wrapPixelCoord(x0, t.Width, t.WrapU)
	y0 = wrapPixelCoord(y0, t.Height, t.WrapV)

	top := lerpColor(t.GetPixel(x0, y0), t.GetPixel(x1, y0), tx)
	bot := lerpColor(t.GetPixel(x0, y1), t.GetPixel(x1, y1), tx)
	return lerpColor(top, bot, ty)
}

func wrapPixelCoord(x, size int, mode WrapMode) int {
	switch mode {
	case WrapRepeat:
		x = x % size
		if x < 0 {
			x += size
		}
	case WrapClamp:
		x = max(0, min(x, size-1))
	}
	return x
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	l := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.NRGBA{R: l(a.R, b.R), G: l(a.G, b.G), B: l(a.B, b.B), A: l(a.A, b.A)}
}

func colorToVec3(c color.NRGBA) math3d.Vec3 {
	return math3d.V3(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
}

// vec3ToColor clamps v to [0,1] and scales it to an opaque 8-bit color.
func vec3ToColor(v math3d.Vec3) color.RGBA {
	v = v.Clamp01()
	return color.RGBA{
		R: uint8(math.Round(v.X * 255)),
		G: uint8(math.Round(v.Y * 255)),
		B: uint8(math.Round(v.Z * 255)),
		A: 255,
	}
}
