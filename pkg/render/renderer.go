package render

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taigrr/sprout/internal/logging"
)

// ErrNoTracer is returned by Render when the renderer is missing its
// camera or tracer.
var ErrNoTracer = errors.New("renderer needs a camera and a tracer")

// Renderer traces one primary ray per framebuffer pixel.
type Renderer struct {
	Camera *Camera
	Tracer *Tracer

	// Workers bounds the number of rows traced at once. Zero or less
	// means GOMAXPROCS.
	Workers int
}

// Render fills fb. Rows are independent tasks; each pixel is written by
// exactly one trace. Cancelling ctx stops new rows from starting and
// Render returns the context error, leaving the remaining rows untouched.
func (r *Renderer) Render(ctx context.Context, fb *Framebuffer) error {
	if r.Camera == nil || r.Tracer == nil {
		return ErrNoTracer
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	w, h := fb.Width, fb.Height
	for y := range h {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for x := range w {
				fb.SetColor(x, y, r.Tracer.Trace(r.Camera.Ray(x, y, w, h)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logging.L().Debug("render: pass complete",
		"width", w, "height", h, "workers", workers, "elapsed", time.Since(start))
	return nil
}
