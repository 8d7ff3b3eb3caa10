package main

import (
	"fmt"
	"image/color"
	"strconv"

	"github.com/chazu/glview/pkg/config"
	"github.com/chazu/glview/pkg/geometry"
	"github.com/chazu/glview/pkg/gl"
	"github.com/chazu/glview/pkg/instance"
	"github.com/chazu/glview/pkg/kernel"
	"github.com/chazu/glview/pkg/kernel/manifold"
	"github.com/chazu/glview/pkg/kernel/sdfx"
	"github.com/chazu/glview/pkg/logging"
	"github.com/chazu/glview/pkg/mover"
	"github.com/chazu/glview/pkg/render"
	"github.com/chazu/glview/pkg/scene"
	"github.com/chazu/glview/pkg/script"
	"github.com/chazu/glview/pkg/viewport"
)

// colorPalette is assigned in shape order to shapes without a colour.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// highlightColor is drawn over selected instances.
var highlightColor = color.RGBA{R: 255, G: 220, B: 0, A: 255}

// parseHexColor parses "#rrggbb" into an opaque colour.
func parseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// App ties a script engine, a scene and a viewport together. It is driven
// by the headless runner and by the GLFW window.
type App struct {
	cfg      *config.Config
	engine   *script.Engine
	viewport *viewport.Viewport
	scene    *scene.Scene
	movers   *mover.Controller
	stats    render.Stats
}

// EvalErrorData is one reported problem, with its source line when known.
type EvalErrorData struct {
	Line    int
	Col     int
	Message string
}

// EvalResult is the outcome of one Evaluate call.
type EvalResult struct {
	Instances int
	Errors    []EvalErrorData
	// Warnings carries scene validation findings (clashes, empty or
	// degenerate instances). They never stop a scene from loading.
	Warnings []EvalErrorData
}

// NewApp returns an App with the default configuration.
func NewApp() *App {
	a, err := NewAppWithConfig(config.Default())
	if err != nil {
		// The defaults always validate.
		panic(err)
	}
	return a
}

// NewAppWithConfig returns an App set up from cfg.
func NewAppWithConfig(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	vp := viewport.New()
	if err := cfg.Apply(vp); err != nil {
		return nil, err
	}
	k, err := newKernel(cfg.Tessellation.Kernel)
	if err != nil {
		return nil, err
	}
	eng := script.NewEngine(k)
	eng.SetCells(cfg.Tessellation.Cells...)

	return &App{
		cfg:      cfg,
		engine:   eng,
		viewport: vp,
		scene:    scene.New(),
		movers:   mover.NewDefaultController(vp),
	}, nil
}

// newKernel returns the solid modeller named by the [tessellation] section.
func newKernel(name string) (kernel.Kernel, error) {
	switch name {
	case config.KernelManifold:
		k, err := manifold.New()
		if err != nil {
			return nil, fmt.Errorf("kernel %q: %w", name, err)
		}
		return k, nil
	case config.KernelSDFX, "":
		return sdfx.New(), nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", name)
	}
}

func (a *App) Scene() *scene.Scene          { return a.scene }
func (a *App) Viewport() *viewport.Viewport { return a.viewport }
func (a *App) Stats() render.Stats          { return a.stats }

// Evaluate runs source and, when it succeeds, replaces the scene and
// reframes the view on it. On failure the previous scene stays loaded.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	s, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		logging.Logger().Error("evaluate: fatal error", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		result.Instances = a.scene.Len()
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		result.Instances = a.scene.Len()
		return result
	}

	a.scene.Clear()
	a.scene = s
	a.scene.SetLODPolicy(a.cfg.LOD.LODPolicy())
	a.applyDefaults()

	vr := a.scene.Validate()
	for _, v := range append(vr.Errors, vr.Warnings...) {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: v.Error()})
	}

	a.FitAll()
	result.Instances = a.scene.Len()
	return result
}

// applyDefaults raises every instance to the configured LOD floor and
// colours uncoloured shapes from the palette.
func (a *App) applyDefaults() {
	floor := a.cfg.LOD.DefaultFloor
	seen := make(map[*geometry.Mesh]bool)
	next := 0
	for _, inst := range a.scene.Instances() {
		inst.SetDefaultLOD(max(inst.DefaultLOD(), floor))
		for _, g := range inst.Geometries() {
			m, ok := g.(*geometry.Mesh)
			if !ok || seen[m] {
				continue
			}
			seen[m] = true
			if m.Material() != nil {
				continue
			}
			c, err := parseHexColor(colorPalette[next%len(colorPalette)])
			if err != nil {
				panic(err)
			}
			m.SetMaterial(geometry.ColorMaterial{Color: c})
			next++
		}
	}
}

// FitAll reframes the camera on the whole scene, keeping the view direction.
func (a *App) FitAll() {
	box := a.scene.BoundingBox()
	if box.IsEmpty() {
		return
	}
	a.viewport.Reframe(box)
}

// Resize follows a window or framebuffer size change.
func (a *App) Resize(width, height int) error {
	return a.viewport.SetWindowSize(width, height)
}

// Paint draws one frame into ctx. GL errors are checked once, at the end
// of the frame, and logged.
func (a *App) Paint(ctx gl.Context) error {
	a.stats.Reset()
	a.viewport.SetDistMinAndMax(a.scene.BoundingBox())

	ctx.ClearColor(a.viewport.Background())
	ctx.Clear()
	ctx.Enable(gl.DepthTest)
	if err := a.viewport.Prepare(ctx); err != nil {
		logging.Logger().Warn("paint: prepare failed", "err", err)
		return err
	}
	a.viewport.UpdateFrustum()

	rc := &render.Context{
		GL:                ctx,
		Mode:              render.ModeNormal,
		Viewport:          a.viewport,
		Frustum:           a.viewport.Frustum(),
		SelectionMaterial: geometry.ColorMaterial{Color: highlightColor},
		Stats:             &a.stats,
	}
	err := a.scene.Render(rc)
	if err == nil {
		err = gl.Check(ctx, "paint")
	}
	if err != nil {
		logging.Logger().Warn("paint: frame failed", "err", err)
		return err
	}

	logging.Logger().Info("paint: frame",
		"instances", a.stats.Instances,
		"frustum_culled", a.stats.FrustumCulled,
		"lod_culled", a.stats.LODCulled,
		"geometries", a.stats.Geometries,
		"triangles", a.stats.Triangles,
	)
	return nil
}

// Pick selects the instance under the window position (origin top-left)
// and returns its ID. Hitting nothing clears the selection and returns 0.
func (a *App) Pick(ctx gl.Context, x, y int) (instance.ID, error) {
	ctx.Enable(gl.DepthTest)
	inst, err := a.scene.PickInstance(a.viewport, ctx, x, y)
	if err != nil {
		logging.Logger().Warn("pick failed", "x", x, "y", y, "err", err)
		return 0, err
	}
	a.scene.UnselectAll()
	if inst == nil {
		return 0, nil
	}
	if err := a.scene.Select(inst.ID()); err != nil {
		return 0, err
	}
	return inst.ID(), nil
}

// ---------------------------------------------------------------------------
// Mover hooks
// ---------------------------------------------------------------------------

// StartMove begins a camera gesture of the given kind.
func (a *App) StartMove(kind mover.Kind, in mover.Input) error {
	return a.movers.Start(mover.ID(kind), in)
}

// Move feeds the active gesture. It reports whether the view changed.
func (a *App) Move(in mover.Input) bool {
	return a.movers.Move(in)
}

// EndMove finishes the active gesture.
func (a *App) EndMove() {
	a.movers.End()
}

// Moving reports whether a gesture is in progress.
func (a *App) Moving() bool {
	return a.movers.Active() != nil
}
