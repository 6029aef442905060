package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw writes the framebuffer into area of scr, two pixel rows per cell:
// ▀ with the top pixel as foreground and the bottom one as background.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X; col++ {
			x := col - area.Min.X
			if x >= fb.Width {
				break
			}
			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: rgbaToColor(fb.GetPixel(x, topY)),
					Bg: rgbaToColor(fb.GetPixel(x, botY)),
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// rgbaToColor maps transparent pixels to the terminal default color.
func rgbaToColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}
