package render

import (
	"image/color"
	"math"
)

// hash2 maps an integer lattice point to [0, 1).
func hash2(x, y int, seed uint32) float64 {
	h := uint32(x)*0x8da6b343 ^ uint32(y)*0xd8163841 ^ seed*0xcb1ab31f
	h ^= h >> 13
	h *= 0x5bd1e995
	h ^= h >> 15
	return float64(h&0xffffff) / float64(1<<24)
}

// valueNoise is smooth noise that tiles with the given period.
func valueNoise(x, y float64, period int, seed uint32) float64 {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(x0), y-float64(y0)
	fx = fx * fx * (3 - 2*fx)
	fy = fy * fy * (3 - 2*fy)

	w := func(i int) int { return ((i % period) + period) % period }
	a := hash2(w(x0), w(y0), seed)
	b := hash2(w(x0+1), w(y0), seed)
	c := hash2(w(x0), w(y0+1), seed)
	d := hash2(w(x0+1), w(y0+1), seed)

	top := a + (b-a)*fx
	bot := c + (d-c)*fx
	return top + (bot-top)*fy
}

// NewBarkTexture creates a tileable bark texture with dark vertical furrows.
// U runs around the branch and V along it.
func NewBarkTexture(size int) *Texture {
	tex := NewTexture(size, size)
	tex.FilterMode = FilterBilinear
	light := color.NRGBA{R: 122, G: 88, B: 58, A: 255}
	dark := color.NRGBA{R: 52, G: 36, B: 24, A: 255}

	for y := range size {
		for x := range size {
			u := float64(x) / float64(size)
			v := float64(y) / float64(size)

			// Furrows wobble along the branch.
			wobble := valueNoise(v*6, 0, 6, 7) * 0.6
			furrow := 0.5 + 0.5*math.Sin((u*8+wobble)*2*math.Pi)
			grain := valueNoise(u*16, v*4, 16, 11)
			tex.SetPixel(x, y, lerpColor(dark, light, 0.15+0.55*furrow+0.3*grain))
		}
	}
	return tex
}

// NewLeafTexture creates a leaf with an alpha cut-out. U runs across the
// blade and V from stem to tip. Texels outside the blade are transparent.
func NewLeafTexture(size int) *Texture {
	tex := NewTexture(size, size)
	tex.WrapU = WrapClamp
	tex.WrapV = WrapClamp
	edge := color.NRGBA{R: 46, G: 112, B: 34, A: 255}
	centre := color.NRGBA{R: 92, G: 168, B: 58, A: 255}
	rib := color.NRGBA{R: 170, G: 196, B: 110, A: 255}

	for y := range size {
		for x := range size {
			u := (float64(x)+0.5)/float64(size)*2 - 1 // -1..1 across
			v := 1 - (float64(y)+0.5)/float64(size)   // 0 at stem

			half := 0.9 * math.Pow(math.Sin(math.Pi*v), 0.7)
			if math.Abs(u) > half {
				tex.SetPixel(x, y, color.NRGBA{})
				continue
			}
			c := lerpColor(centre, edge, math.Abs(u)/half)
			if math.Abs(u) < 0.04 {
				c = rib
			}
			tex.SetPixel(x, y, c)
		}
	}
	return tex
}

// NewGroundTexture creates the default ground: a soft two-tone checker.
func NewGroundTexture() *Texture {
	tex := NewCheckerTexture(64, 64, 32,
		color.NRGBA{R: 118, G: 112, B: 96, A: 255},
		color.NRGBA{R: 96, G: 92, B: 80, A: 255})
	return tex
}
