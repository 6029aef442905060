package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/sprout/internal/logging"
	"github.com/taigrr/sprout/pkg/lsystem"
	"github.com/taigrr/sprout/pkg/math3d"
	"github.com/taigrr/sprout/pkg/render"
	"github.com/taigrr/sprout/pkg/scene"
)

const viewerFPS = 60

type viewerConfig struct {
	Grammar   lsystem.Grammar
	Materials scene.Materials
	Env       render.Environment
	Light     render.Light
	Workers   int
}

// springAxis eases one orbit parameter toward its goal.
type springAxis struct {
	Position float64
	Goal     float64
	velocity float64
	spring   harmonica.Spring
}

func newSpringAxis(v float64) springAxis {
	return springAxis{
		Position: v,
		Goal:     v,
		// Critically damped.
		spring: harmonica.NewSpring(harmonica.FPS(viewerFPS), 4.0, 1.0),
	}
}

func (a *springAxis) Update() {
	a.Position, a.velocity = a.spring.Update(a.Position, a.velocity, a.Goal)
}

// Settled reports whether the axis has come to rest, snapping it onto the
// goal when it has.
func (a *springAxis) Settled() bool {
	if math.Abs(a.Position-a.Goal) < 1e-3 && math.Abs(a.velocity) < 1e-3 {
		a.Position, a.velocity = a.Goal, 0
		return true
	}
	return false
}

// orbit is the spring-driven camera rig around the plant.
type orbit struct {
	Yaw, Pitch, Dist springAxis
	Target           math3d.Vec3
	home             [3]float64
}

func newOrbit(target math3d.Vec3, yaw, pitch, dist float64) *orbit {
	return &orbit{
		Yaw:    newSpringAxis(yaw),
		Pitch:  newSpringAxis(pitch),
		Dist:   newSpringAxis(dist),
		Target: target,
		home:   [3]float64{yaw, pitch, dist},
	}
}

func (o *orbit) Update() {
	o.Yaw.Update()
	o.Pitch.Update()
	o.Dist.Update()
}

func (o *orbit) Settled() bool {
	// Evaluate all three so each one snaps.
	y, p, d := o.Yaw.Settled(), o.Pitch.Settled(), o.Dist.Settled()
	return y && p && d
}

func (o *orbit) Turn(dyaw, dpitch float64) {
	o.Yaw.Goal += dyaw
	o.Pitch.Goal = math.Max(-render.MaxPitch, math.Min(render.MaxPitch, o.Pitch.Goal+dpitch))
}

func (o *orbit) Zoom(factor float64) {
	o.Dist.Goal = math.Max(0.5, math.Min(200, o.Dist.Goal*factor))
}

func (o *orbit) Reset() {
	o.Yaw.Goal, o.Pitch.Goal, o.Dist.Goal = o.home[0], o.home[1], o.home[2]
}

func (o *orbit) Apply(cam *render.Camera) {
	cam.Orbit(o.Target, o.Dist.Position, o.Yaw.Position, o.Pitch.Position)
}

// viewer owns everything the interactive loop touches. Events and frames
// are handled on one goroutine.
type viewer struct {
	cfg    viewerConfig
	depth  uint
	buf    *lsystem.Buffers
	sc     *scene.Scene
	camera *render.Camera
	orbit  *orbit
	fb     *render.Framebuffer
	width  int // terminal columns
	height int // terminal rows
	dirty  bool
	status string

	dragging     bool
	dragX, dragY int
}

var (
	previewBark = color.RGBA{R: 170, G: 120, B: 80, A: 255}
	previewLeaf = color.RGBA{R: 90, G: 200, B: 70, A: 255}
	previewGrid = color.RGBA{R: 60, G: 60, B: 70, A: 255}
	previewBg   = color.RGBA{R: 20, G: 20, B: 28, A: 255}
	statusFg    = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	statusBg    = color.RGBA{R: 40, G: 40, B: 52, A: 255}
)

const (
	turnStep  = 0.25
	pitchStep = 0.15
	zoomStep  = 1.15
	dragStep  = 0.03 // radians per cell
)

const (
	mouseOn  = "\x1b[?1003h\x1b[?1006h" // any-event tracking, SGR encoding
	mouseOff = "\x1b[?1003l\x1b[?1006l"
)

func newViewer(cfg viewerConfig, width, height int) *viewer {
	v := &viewer{
		cfg:    cfg,
		depth:  cfg.Grammar.Config.MaxDepth,
		camera: render.NewCamera(),
		fb:     render.NewFramebuffer(1, 1),
	}
	v.resize(width, height)
	v.camera.Pitch = -0.25
	v.regrow()
	return v
}

// resize keeps one framebuffer column per cell and two rows per cell,
// leaving the last row for the status line.
func (v *viewer) resize(width, height int) {
	v.width, v.height = max(width, 1), max(height, 2)
	v.fb.Resize(v.width, (v.height-1)*2)
	v.dirty = true
}

// regrow regenerates the plant at the current depth and reframes it.
func (v *viewer) regrow() {
	start := time.Now()
	v.buf = v.cfg.Grammar.WithDepth(v.depth).Generate()
	v.sc = scene.New(v.buf, v.cfg.Materials)

	target, dist := v.camera.Frame(v.sc.Bounds())
	if v.orbit == nil {
		v.orbit = newOrbit(target, v.camera.Yaw, v.camera.Pitch, dist)
	} else {
		v.orbit.Target = target
		v.orbit.Dist.Goal = dist
		v.orbit.home[2] = dist
	}
	v.status = fmt.Sprintf(" %s  depth %d  %d branches  %d leaves ", v.cfg.Grammar.Name, v.depth,
		len(v.buf.Branches), len(v.buf.Leaves))
	v.dirty = true
	logging.L().Debug("viewer: regrew", "depth", v.depth, "primitives", v.buf.Len(), "took", time.Since(start))
}

// handle applies one event and reports whether the viewer should quit.
func (v *viewer) handle(ev uv.Event) (quit bool) {
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		v.resize(ev.Width, ev.Height)
	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("q", "escape", "ctrl+c"):
			return true
		case ev.MatchString("left", "h"):
			v.orbit.Turn(-turnStep, 0)
		case ev.MatchString("right", "l"):
			v.orbit.Turn(turnStep, 0)
		case ev.MatchString("up", "k"):
			v.orbit.Turn(0, pitchStep)
		case ev.MatchString("down", "j"):
			v.orbit.Turn(0, -pitchStep)
		case ev.MatchString("+", "="):
			v.orbit.Zoom(1 / zoomStep)
		case ev.MatchString("-", "_"):
			v.orbit.Zoom(zoomStep)
		case ev.MatchString("r"):
			v.orbit.Reset()
		case ev.MatchString("["):
			if v.depth > 0 {
				v.depth--
				v.regrow()
			}
		case ev.MatchString("]"):
			if v.depth < lsystem.MaxDepthLimit {
				v.depth++
				v.regrow()
			}
		}
	case uv.MouseClickEvent:
		v.dragging = true
		v.dragX, v.dragY = ev.X, ev.Y
	case uv.MouseReleaseEvent:
		v.dragging = false
	case uv.MouseMotionEvent:
		if v.dragging {
			v.orbit.Turn(float64(ev.X-v.dragX)*dragStep, float64(v.dragY-ev.Y)*dragStep)
			v.dragX, v.dragY = ev.X, ev.Y
		}
	case uv.MouseWheelEvent:
		switch ev.Button {
		case uv.MouseWheelUp:
			v.orbit.Zoom(1 / zoomStep)
		case uv.MouseWheelDown:
			v.orbit.Zoom(zoomStep)
		}
	}
	return false
}

// frame advances the springs and redraws. While the camera moves it draws
// the wireframe preview; once settled it traces the scene a single time.
func (v *viewer) frame(ctx context.Context, scr uv.Screen) (drawn bool, err error) {
	v.orbit.Update()
	moving := !v.orbit.Settled()
	v.orbit.Apply(v.camera)

	switch {
	case moving:
		v.fb.Clear(previewBg)
		w := render.NewWireframe(v.camera, v.fb)
		w.DrawGrid(10, 1, previewGrid)
		w.DrawBuffers(v.buf, previewBark, previewLeaf)
		v.dirty = true
	case v.dirty:
		r := &render.Renderer{
			Camera:  v.camera,
			Tracer:  &render.Tracer{Scene: v.sc, Light: v.cfg.Light, Env: v.cfg.Env},
			Workers: v.cfg.Workers,
		}
		if err := r.Render(ctx, v.fb); err != nil {
			return false, err
		}
		v.dirty = false
	default:
		return false, nil
	}

	v.fb.Draw(scr, uv.Rectangle(image.Rect(0, 0, v.width, v.height-1)))
	v.drawStatus(scr)
	return true, nil
}

func (v *viewer) drawStatus(scr uv.Screen) {
	row := v.height - 1
	text := []rune(v.status + " arrows orbit  +/- zoom  [ ] depth  r reset  q quit")
	style := uv.Style{Fg: statusFg, Bg: statusBg}
	for col := range v.width {
		content := " "
		if col < len(text) {
			content = string(text[col])
		}
		scr.SetCell(col, row, &uv.Cell{Content: content, Width: 1, Style: style})
	}
}

func runViewer(ctx context.Context, cfg viewerConfig) error {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)
	fmt.Fprint(os.Stdout, mouseOn)

	cleanup := func() {
		fmt.Fprint(os.Stdout, mouseOff)
		term.ExitAltScreen()
		term.ShowCursor()
		if err := term.Shutdown(context.Background()); err != nil {
			logging.L().Warn("viewer: shutdown", "err", err)
		}
	}
	defer cleanup()

	v := newViewer(cfg, width, height)
	ticker := time.NewTicker(time.Second / viewerFPS)
	defer ticker.Stop()

	events := term.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok || v.handle(ev) {
				return nil
			}
			if _, ok := ev.(uv.WindowSizeEvent); ok {
				term.Erase()
				term.Resize(v.width, v.height)
			}
		case <-ticker.C:
			drawn, err := v.frame(ctx, term)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			if !drawn {
				continue
			}
			if err := term.Display(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
		}
	}
}
