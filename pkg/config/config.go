// Package config loads the viewer settings from TOML.
//
// Every key is optional; missing keys keep their Default value. Unknown keys
// are rejected so typos surface instead of silently doing nothing.
//
//	[view]
//	fov = 35.0
//	width = 800
//	height = 600
//	background = [0, 0, 0]
//
//	[camera]
//	eye = [0.0, 0.0, 100.0]
//	target = [0.0, 0.0, 0.0]
//	up = [0.0, 1.0, 0.0]
//
//	[lod]
//	scale = 150.0
//	cull_threshold = 98
//	cull_value = 110
//	default_floor = 0
//
//	[tessellation]
//	kernel = "sdfx"
//	cells = [64, 32, 16]
//
//	[log]
//	level = "info"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pelletier/go-toml/v2"

	"github.com/chazu/glview/pkg/camera"
	"github.com/chazu/glview/pkg/instance"
	"github.com/chazu/glview/pkg/viewport"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	View         View         `toml:"view"`
	Camera       Camera       `toml:"camera"`
	LOD          LOD          `toml:"lod"`
	Tessellation Tessellation `toml:"tessellation"`
	Log          Log          `toml:"log"`
}

type View struct {
	FOV        float64 `toml:"fov"`
	Width      int     `toml:"width"`
	Height     int     `toml:"height"`
	Background [3]int  `toml:"background"`
}

type Camera struct {
	Eye    [3]float64 `toml:"eye"`
	Target [3]float64 `toml:"target"`
	Up     [3]float64 `toml:"up"`
}

type LOD struct {
	Scale         float64 `toml:"scale"`
	CullThreshold int     `toml:"cull_threshold"`
	CullValue     int     `toml:"cull_value"`
	DefaultFloor  int     `toml:"default_floor"`
}

// Kernel names.
const (
	KernelSDFX     = "sdfx"
	KernelManifold = "manifold"
)

type Tessellation struct {
	// Kernel selects the solid modeller: "sdfx" or "manifold". The manifold
	// kernel needs a build with -tags=manifold.
	Kernel string `toml:"kernel"`
	// Cells lists the grid resolution of each detail level.
	Cells []int `toml:"cells"`
}

type Log struct {
	Level string `toml:"level"`
}

// Default returns the built-in settings.
func Default() *Config {
	p := instance.DefaultLODPolicy
	return &Config{
		View: View{
			FOV:    viewport.DefaultFOV,
			Width:  viewport.DefaultWidth,
			Height: viewport.DefaultHeight,
		},
		Camera: Camera{
			Eye: [3]float64{0, 0, 100},
			Up:  [3]float64{0, 1, 0},
		},
		LOD: LOD{
			Scale:         p.Scale,
			CullThreshold: p.CullThreshold,
			CullValue:     p.CullValue,
		},
		Tessellation: Tessellation{Kernel: KernelSDFX, Cells: []int{64, 32, 16}},
		Log:          Log{Level: "info"},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config: %s", strict.String())
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if !(c.View.FOV > 0 && c.View.FOV < 180) {
		bad("view.fov %v not in (0, 180)", c.View.FOV)
	}
	if c.View.Width <= 0 || c.View.Height <= 0 {
		bad("view size %dx%d must be positive", c.View.Width, c.View.Height)
	}
	for i, ch := range c.View.Background {
		if ch < 0 || ch > 255 {
			bad("view.background[%d] = %d not in [0, 255]", i, ch)
		}
	}

	eye, target, up := mgl64.Vec3(c.Camera.Eye), mgl64.Vec3(c.Camera.Target), mgl64.Vec3(c.Camera.Up)
	if eye.ApproxEqual(target) {
		bad("camera.eye and camera.target coincide")
	}
	if up.Len() == 0 {
		bad("camera.up is zero")
	}

	if !(c.LOD.Scale > 0) {
		bad("lod.scale %v must be positive", c.LOD.Scale)
	}
	if c.LOD.CullThreshold < 0 || c.LOD.CullThreshold > 100 {
		bad("lod.cull_threshold %d not in [0, 100]", c.LOD.CullThreshold)
	}
	if !instance.Culled(c.LOD.CullValue) {
		bad("lod.cull_value %d must be above 100", c.LOD.CullValue)
	}
	if c.LOD.DefaultFloor < 0 || c.LOD.DefaultFloor > 100 {
		bad("lod.default_floor %d not in [0, 100]", c.LOD.DefaultFloor)
	}

	switch c.Tessellation.Kernel {
	case KernelSDFX, KernelManifold:
	default:
		bad("tessellation.kernel %q is not %q or %q", c.Tessellation.Kernel, KernelSDFX, KernelManifold)
	}
	if len(c.Tessellation.Cells) == 0 {
		bad("tessellation.cells is empty")
	}
	for i, n := range c.Tessellation.Cells {
		if n <= 0 {
			bad("tessellation.cells[%d] = %d must be positive", i, n)
		}
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		bad("log.level %q: %v", c.Log.Level, err)
	}
	return errors.Join(errs...)
}

// BackgroundColor returns the opaque clear colour.
func (v View) BackgroundColor() color.RGBA {
	return color.RGBA{R: uint8(v.Background[0]), G: uint8(v.Background[1]), B: uint8(v.Background[2]), A: 255}
}

// LODPolicy converts the [lod] section.
func (l LOD) LODPolicy() instance.LODPolicy {
	return instance.LODPolicy{Scale: l.Scale, CullThreshold: l.CullThreshold, CullValue: l.CullValue}
}

// SlogLevel parses the level name (debug, info, warn, error).
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level)))
	return lvl, err
}

// Apply configures vp from the [view] and [camera] sections.
func (c *Config) Apply(vp *viewport.Viewport) error {
	if err := vp.SetFieldOfView(c.View.FOV); err != nil {
		return err
	}
	if err := vp.SetWindowSize(c.View.Width, c.View.Height); err != nil {
		return err
	}
	vp.SetBackground(c.View.BackgroundColor())
	vp.SetCamera(camera.NewCamera(c.Camera.Eye, c.Camera.Target, c.Camera.Up))
	return nil
}
