// Package render carries the per-draw state threaded through the scene,
// instance and geometry draw calls.
package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/glview/pkg/camera"
	"github.com/chazu/glview/pkg/frustum"
	"github.com/chazu/glview/pkg/gl"
)

// Mode selects what a draw writes into the colour buffer.
type Mode int

const (
	// ModeNormal draws materials and lighting.
	ModeNormal Mode = iota
	// ModeSelection draws each instance in its flat encoded ID colour.
	ModeSelection
)

func (m Mode) String() string {
	if m == ModeSelection {
		return "selection"
	}
	return "normal"
}

// Pass filters geometries by transparency during a normal-mode draw.
type Pass int

const (
	PassOpaque Pass = iota
	PassTransparent
)

// Viewport is what an instance needs from the view to pick a level of detail.
type Viewport interface {
	CameraHandle() *camera.Camera
	// FieldOfView is the vertical field of view in degrees.
	FieldOfView() float64
	WindowSize() (width, height int)
	ProjectionMatrix() mgl64.Mat4
}

// Material binds surface state before a geometry draws.
type Material interface {
	Bind(ctx gl.Context)
	IsTransparent() bool
}

// Context is the explicit render state for one draw traversal.
type Context struct {
	GL       gl.Context
	Mode     Mode
	Pass     Pass
	Viewport Viewport

	// Frustum, when set, culls instances before they draw.
	Frustum *frustum.Frustum

	// Highlight is set by an instance while its geometries draw if the
	// instance is selected.
	Highlight         bool
	SelectionMaterial Material

	Stats *Stats
}

// Selecting reports whether the draw is a picking pass.
func (c *Context) Selecting() bool {
	return c.Mode == ModeSelection
}

// Accepts reports whether a geometry with the given transparency draws in
// the current pass. Selection mode draws everything in one pass.
func (c *Context) Accepts(transparent bool) bool {
	if c.Mode == ModeSelection {
		return true
	}
	return transparent == (c.Pass == PassTransparent)
}

// Stats counts what one traversal did.
type Stats struct {
	Instances     int // instances that drew at least one geometry
	FrustumCulled int
	LODCulled     int // geometries skipped by the LOD cull value
	Geometries    int
	Triangles     int
}

// Reset zeroes the counters.
func (s *Stats) Reset() {
	*s = Stats{}
}

// AddTriangles is a nil-safe counter update used by geometries.
func (c *Context) AddTriangles(n int) {
	if c.Stats != nil {
		c.Stats.Geometries++
		c.Stats.Triangles += n
	}
}
