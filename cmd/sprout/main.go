// sprout - L-system plant generator and ray tracer
// Grow a plant from a preset, a JSON grammar or a zygomys script, then
// render it, export it as GLB, dump its primitive buffers or explore it in
// the terminal.
//
// Viewer controls:
//
//	Arrows / hjkl - Orbit
//	Mouse drag    - Orbit
//	+/- / wheel   - Zoom
//	[ ]           - Regenerate one level shallower / deeper
//	R             - Reset view
//	Q / Esc       - Quit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/taigrr/sprout/internal/logging"
	"github.com/taigrr/sprout/pkg/lsystem"
	"github.com/taigrr/sprout/pkg/math3d"
	"github.com/taigrr/sprout/pkg/models"
	"github.com/taigrr/sprout/pkg/render"
	"github.com/taigrr/sprout/pkg/scene"
)

var errBadFlag = errors.New("invalid flag value")

type options struct {
	preset  string
	grammar string
	depth   int

	output     string
	glb        string
	solid      bool
	solidCells int
	segments   int
	buffers    string
	print      bool
	view       bool
	inspect    string
	list       bool
	verbose    bool

	bark string
	leaf string
	sky  string
	sun  string

	width   int
	height  int
	ssaa    int
	workers int
}

func registerFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.preset, "preset", lsystem.DefaultPreset, "Built-in grammar (see -list)")
	fs.StringVar(&o.grammar, "grammar", "", "Grammar file (.json or .zy script)")
	fs.IntVar(&o.depth, "depth", -1, "Rewrite depth override (-1 keeps the grammar's)")

	fs.StringVar(&o.output, "o", "", "Render to image (.png, .jpg, .bmp, .tif)")
	fs.StringVar(&o.glb, "glb", "", "Export mesh to GLB file")
	fs.BoolVar(&o.solid, "solid", false, "Export a watertight marching cubes mesh instead of tessellating")
	fs.IntVar(&o.solidCells, "solid-cells", models.DefaultSolidOptions().Cells, "Marching cubes resolution for -solid")
	fs.IntVar(&o.segments, "segments", 8, "Sides per tessellated branch")
	fs.StringVar(&o.buffers, "buffers", "", "Write std430 primitive buffers to PREFIX.branches.bin and PREFIX.leaves.bin")
	fs.BoolVar(&o.print, "print", false, "Print the derived sentence")
	fs.BoolVar(&o.view, "view", false, "Open the interactive terminal viewer")
	fs.StringVar(&o.inspect, "inspect", "", "Print a summary of a GLB file and exit")
	fs.BoolVar(&o.list, "list", false, "List built-in grammars and exit")
	fs.BoolVar(&o.verbose, "v", false, "Debug logging")

	fs.StringVar(&o.bark, "bark", "", "Bark texture image (procedural if empty)")
	fs.StringVar(&o.leaf, "leaf", "", "Leaf texture image with alpha (procedural if empty)")
	fs.StringVar(&o.sky, "sky", "", "Directory with px/nx/py/ny/pz/nz sky images (procedural if empty)")
	fs.StringVar(&o.sun, "sun", "-0.4,0.8,0.45", "Sun direction (x,y,z)")

	fs.IntVar(&o.width, "width", 800, "Image width")
	fs.IntVar(&o.height, "height", 600, "Image height")
	fs.IntVar(&o.ssaa, "ssaa", 2, "Supersampling factor per axis")
	fs.IntVar(&o.workers, "workers", 0, "Render workers (0 = GOMAXPROCS)")
	return o
}

// validate rejects size flags that would produce an empty or negative
// framebuffer or marching cubes grid.
func (o *options) validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"width", o.width},
		{"height", o.height},
		{"solid-cells", o.solidCells},
	} {
		if f.v <= 0 {
			return fmt.Errorf("-%s %d: %w: must be positive", f.name, f.v, errBadFlag)
		}
	}
	return nil
}

func main() {
	o := registerFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "sprout - L-system plant generator and ray tracer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: sprout [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  sprout -preset bush -o bush.png\n")
		fmt.Fprintf(os.Stderr, "  sprout -grammar fern.zy -depth 6 -glb fern.glb\n")
		fmt.Fprintf(os.Stderr, "  sprout -view\n")
		fmt.Fprintf(os.Stderr, "\nViewer controls:\n")
		fmt.Fprintf(os.Stderr, "  Arrows/hjkl - Orbit\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Orbit\n")
		fmt.Fprintf(os.Stderr, "  +/-, wheel  - Zoom\n")
		fmt.Fprintf(os.Stderr, "  [ ]         - Depth down/up\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  Q/Esc       - Quit\n")
	}
	flag.Parse()

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logging.Set(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o *options, out io.Writer) error {
	if o.list {
		return listPresets(out)
	}
	if o.inspect != "" {
		return inspect(o.inspect, out)
	}

	if err := o.validate(); err != nil {
		return err
	}

	g, err := loadGrammar(o)
	if err != nil {
		return err
	}

	start := time.Now()
	buf := g.Generate()
	fmt.Fprintf(out, "Grew %s: depth %d, %d branches, %d leaves (%v)\n",
		g.Name, g.Config.MaxDepth, len(buf.Branches), len(buf.Leaves), time.Since(start).Round(time.Millisecond))

	if o.print {
		fmt.Fprintln(out, g.Derive())
	}
	if o.buffers != "" {
		if err := writeBuffers(buf, o.buffers, out); err != nil {
			return err
		}
	}
	if o.glb != "" {
		if err := exportMesh(buf, o, out); err != nil {
			return err
		}
	}

	if o.output == "" && !o.view {
		return nil
	}
	sun, err := parseVec3(o.sun)
	if err != nil {
		return fmt.Errorf("parse -sun: %w", err)
	}
	mat, err := loadMaterials(o)
	if err != nil {
		return err
	}
	env, err := loadEnvironment(o.sky, sun)
	if err != nil {
		return err
	}
	light := render.Light{Direction: sun.Normalize(), Color: math3d.Splat3(1)}

	if o.output != "" {
		if err := renderImage(ctx, buf, mat, env, light, o, out); err != nil {
			return err
		}
	}
	if o.view {
		return runViewer(ctx, viewerConfig{
			Grammar:   g,
			Materials: mat,
			Env:       env,
			Light:     light,
			Workers:   o.workers,
		})
	}
	return nil
}

func listPresets(out io.Writer) error {
	for _, name := range lsystem.PresetNames() {
		g, err := lsystem.Preset(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-8s axiom %-6s depth %d\n", name, g.Axiom, g.Config.MaxDepth)
	}
	return nil
}

func inspect(path string, out io.Writer) error {
	mesh, err := models.LoadGLB(path)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	fmt.Fprintf(out, "Loaded: %s (%d vertices, %d triangles)\n", filepath.Base(path), mesh.VertexCount(), mesh.TriangleCount())
	fmt.Fprintf(out, "Bounds: %v .. %v\n", mesh.BoundsMin, mesh.BoundsMax)
	counts := make([]int, mesh.MaterialCount())
	unassigned := 0
	for i := range mesh.Faces {
		if mat := mesh.GetFaceMaterial(i); mesh.GetMaterial(mat) != nil {
			counts[mat]++
		} else {
			unassigned++
		}
	}
	for i, n := range counts {
		m := mesh.GetMaterial(i)
		fmt.Fprintf(out, "Material %d: %s (%d triangles, double sided %v)\n", i, m.Name, n, m.DoubleSided)
	}
	if unassigned > 0 {
		fmt.Fprintf(out, "No material: %d triangles\n", unassigned)
	}
	return nil
}

func loadGrammar(o *options) (lsystem.Grammar, error) {
	var (
		g   lsystem.Grammar
		err error
	)
	if o.grammar != "" {
		g, err = lsystem.LoadGrammarFile(o.grammar)
	} else {
		g, err = lsystem.Preset(o.preset)
	}
	if err != nil {
		return lsystem.Grammar{}, err
	}
	if o.depth >= 0 {
		g = g.WithDepth(uint(o.depth))
		if err := g.Validate(); err != nil {
			return lsystem.Grammar{}, fmt.Errorf("-depth: %w", err)
		}
	}
	return g, nil
}

func writeBuffers(buf *lsystem.Buffers, prefix string, out io.Writer) (err error) {
	bf, err := os.Create(prefix + ".branches.bin")
	if err != nil {
		return fmt.Errorf("create branch buffer: %w", err)
	}
	defer func() { err = errors.Join(err, bf.Close()) }()

	lf, err := os.Create(prefix + ".leaves.bin")
	if err != nil {
		return fmt.Errorf("create leaf buffer: %w", err)
	}
	defer func() { err = errors.Join(err, lf.Close()) }()

	if err := buf.WriteStd430(bf, lf); err != nil {
		return fmt.Errorf("write buffers: %w", err)
	}
	fmt.Fprintf(out, "Wrote %s.branches.bin and %s.leaves.bin\n", prefix, prefix)
	return nil
}

func exportMesh(buf *lsystem.Buffers, o *options, out io.Writer) error {
	var mesh *models.Mesh
	if o.solid {
		opts := models.DefaultSolidOptions()
		opts.Cells = o.solidCells
		var err error
		if mesh, err = models.Solid(buf, opts); err != nil {
			return fmt.Errorf("build solid: %w", err)
		}
	} else {
		mesh = models.Tessellate(buf, o.segments)
	}
	if err := models.ExportGLB(mesh, o.glb); err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %s (%d vertices, %d triangles)\n", o.glb, mesh.VertexCount(), mesh.TriangleCount())
	return nil
}

func loadMaterials(o *options) (scene.Materials, error) {
	mat := scene.Materials{GroundScale: 0.5}

	if o.bark != "" {
		tex, err := render.LoadTexture(o.bark)
		if err != nil {
			return mat, fmt.Errorf("load bark texture: %w", err)
		}
		mat.Bark = tex
	} else {
		mat.Bark = render.NewBarkTexture(128)
	}

	if o.leaf != "" {
		tex, err := render.LoadTexture(o.leaf)
		if err != nil {
			return mat, fmt.Errorf("load leaf texture: %w", err)
		}
		tex.WrapU, tex.WrapV = render.WrapClamp, render.WrapClamp
		mat.Leaf = tex
	} else {
		mat.Leaf = render.NewLeafTexture(64)
	}

	mat.Ground = render.NewGroundTexture()
	return mat, nil
}

func loadEnvironment(dir string, sun math3d.Vec3) (render.Environment, error) {
	if dir == "" {
		return render.NewSkyCubeMap(64, sun), nil
	}
	cm, err := render.LoadCubeMap(dir)
	if err != nil {
		return nil, fmt.Errorf("load sky: %w", err)
	}
	return cm, nil
}

func renderImage(ctx context.Context, buf *lsystem.Buffers, mat scene.Materials, env render.Environment,
	light render.Light, o *options, out io.Writer) error {
	sc := scene.New(buf, mat)
	cam := render.NewCamera()
	cam.AspectRatio = float64(o.width) / float64(o.height)
	cam.Pitch = -0.25
	cam.Frame(sc.Bounds())

	r := &render.Renderer{
		Camera:  cam,
		Tracer:  &render.Tracer{Scene: sc, Light: light, Env: env},
		Workers: o.workers,
	}
	start := time.Now()
	img, err := r.RenderImage(ctx, o.width, o.height, o.ssaa)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := render.SaveImage(o.output, img); err != nil {
		return err
	}
	fmt.Fprintf(out, "Rendered %s (%dx%d, %dx ssaa, %v)\n", o.output, o.width, o.height, max(o.ssaa, 1),
		time.Since(start).Round(time.Millisecond))
	return nil
}

// parseVec3 reads "x,y,z".
func parseVec3(s string) (math3d.Vec3, error) {
	var v math3d.Vec3
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("want x,y,z, got %q", s)
	}
	if _, err := fmt.Sscanf(strings.Join(parts, " "), "%g %g %g", &v.X, &v.Y, &v.Z); err != nil {
		return v, fmt.Errorf("want x,y,z, got %q: %w", s, err)
	}
	if v.LenSq() == 0 {
		return v, fmt.Errorf("zero vector %q", s)
	}
	return v, nil
}
