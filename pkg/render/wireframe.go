package render

import (
	"image/color"
	"math"

	"github.com/taigrr/sprout/pkg/lsystem"
	"github.com/taigrr/sprout/pkg/math3d"
)

// Wireframe draws a line skeleton of a plant. It is a cheap preview for
// the interactive viewer while the camera is moving.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer
}

// NewWireframe creates a wireframe drawer targeting fb.
func NewWireframe(camera *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{camera: camera, fb: fb}
}

// DrawLine3D draws a line in 3D space. Lines with an endpoint behind the
// camera are skipped.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, c color.RGBA) {
	x1, y1, ok1 := w.camera.Project(p1, w.fb.Width, w.fb.Height)
	x2, y2, ok2 := w.camera.Project(p2, w.fb.Width, w.fb.Height)
	if !ok1 || !ok2 {
		return
	}
	const limit = 1 << 15
	if math.Abs(x1) > limit || math.Abs(y1) > limit || math.Abs(x2) > limit || math.Abs(y2) > limit {
		return
	}
	w.fb.DrawLine(int(x1), int(y1), int(x2), int(y2), c)
}

// DrawGrid draws a square grid on the ground plane centred on the origin.
func (w *Wireframe) DrawGrid(size, step float64, c color.RGBA) {
	for i := -size; i <= size; i += step {
		w.DrawLine3D(math3d.V3(i, 0, -size), math3d.V3(i, 0, size), c)
		w.DrawLine3D(math3d.V3(-size, 0, i), math3d.V3(size, 0, i), c)
	}
}

// DrawBuffers draws every branch axis and every leaf outline.
func (w *Wireframe) DrawBuffers(buf *lsystem.Buffers, bark, leaf color.RGBA) {
	for _, b := range buf.Branches {
		w.DrawLine3D(b.P1, b.P2, bark)
	}
	for _, l := range buf.Leaves {
		c := l.Corners()
		for i := range c {
			w.DrawLine3D(c[i], c[(i+1)%len(c)], leaf)
		}
	}
}
