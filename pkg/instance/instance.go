// Package instance implements the scene-graph leaf: a placed, selectable
// reference to shared geometry with a lazily computed world bounding box
// and per-frame level-of-detail selection.
package instance

import (
	"fmt"
	"image/color"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/glview/pkg/geom"
	"github.com/chazu/glview/pkg/geometry"
	"github.com/chazu/glview/pkg/gl"
	"github.com/chazu/glview/pkg/logging"
	"github.com/chazu/glview/pkg/render"
)

// store is the geometry list shared by instantiated copies.
type store struct {
	geoms []geometry.Geometry
	refs  int
}

func newStore(geoms []geometry.Geometry) *store {
	return &store{geoms: geoms, refs: 1}
}

// Instance places shared geometry in the scene.
//
// Instances are not safe for concurrent use.
type Instance struct {
	id    ID
	color color.RGBA

	shared   *store
	released bool

	matrix   mgl64.Mat4
	box      geom.BoundingBox
	boxValid bool
	// boxGens holds the geometry generations the cached box was built from.
	boxGens []uint64

	visible     bool
	selected    bool
	polygonMode gl.PolygonMode
	defaultLOD  int
	policy      LODPolicy
}

// New returns a visible instance with identity placement holding geoms.
// Nil and repeated geometries are skipped.
func New(geoms ...geometry.Geometry) *Instance {
	i := &Instance{
		shared:  newStore(nil),
		matrix:  mgl64.Ident4(),
		visible: true,
		policy:  DefaultLODPolicy,
	}
	i.assignID()
	for _, g := range geoms {
		i.SetGeometry(g)
	}
	return i
}

func (i *Instance) assignID() {
	i.id = nextID()
	i.color = EncodeID(i.id)
}

// invalidate drops the cached world box. Every mutator goes through here.
func (i *Instance) invalidate() {
	i.boxValid = false
}

func (i *Instance) ID() ID { return i.id }

// Color returns the selection colour encoding the ID.
func (i *Instance) Color() color.RGBA { return i.color }

// SetGeometry adds g unless it is nil or already held. The store is shared
// with instantiated copies, so they see the addition too.
func (i *Instance) SetGeometry(g geometry.Geometry) bool {
	if g == nil || i.released {
		return false
	}
	if slices.Contains(i.shared.geoms, g) {
		return false
	}
	i.shared.geoms = append(i.shared.geoms, g)
	i.invalidate()
	return true
}

// Geometries returns the held geometries.
func (i *Instance) Geometries() []geometry.Geometry {
	return slices.Clone(i.shared.geoms)
}

// IsEmpty reports whether the instance holds no geometry. Empty instances
// never draw.
func (i *Instance) IsEmpty() bool {
	return len(i.shared.geoms) == 0
}

// NumberOfFaces sums the faces of every geometry.
func (i *Instance) NumberOfFaces() int {
	n := 0
	for _, g := range i.shared.geoms {
		n += g.NumberOfFaces()
	}
	return n
}

// BoundingBox returns the world box of the geometry under the placement.
// The cache is reused only while every geometry reports its own box valid
// and unchanged since the cache was built. A copy sharing the geometry may
// have revalidated it in between, so the generations are compared too.
func (i *Instance) BoundingBox() geom.BoundingBox {
	if i.boxValid && i.geometryBoxesCurrent() {
		return i.box
	}
	var local geom.BoundingBox
	gens := i.boxGens[:0]
	for _, g := range i.shared.geoms {
		local.Combine(g.BoundingBox())
		gens = append(gens, g.BoundingBoxGeneration())
	}
	i.box = local.Transform(i.matrix)
	i.boxGens = gens
	i.boxValid = true
	return i.box
}

func (i *Instance) geometryBoxesCurrent() bool {
	if len(i.boxGens) != len(i.shared.geoms) {
		return false
	}
	for k, g := range i.shared.geoms {
		if !g.BoundingBoxValid() || g.BoundingBoxGeneration() != i.boxGens[k] {
			return false
		}
	}
	return true
}

// Clone deep-copies the geometry into a store of its own. Placement, flags
// and the cached box are copied; the clone gets a new ID.
func (i *Instance) Clone() *Instance {
	geoms := make([]geometry.Geometry, len(i.shared.geoms))
	for k, g := range i.shared.geoms {
		geoms[k] = g.Clone()
	}
	c := *i
	c.shared = newStore(geoms)
	c.boxGens = slices.Clone(i.boxGens)
	c.released = false
	c.assignID()
	return &c
}

// Instantiate returns a copy sharing this instance's geometry. It starts
// with this instance's placement and flags and gets a new ID.
func (i *Instance) Instantiate() *Instance {
	c := *i
	c.boxGens = slices.Clone(i.boxGens)
	if !i.released {
		i.shared.refs++
	} else {
		c.shared = newStore(nil)
		c.released = false
		c.invalidate()
	}
	c.assignID()
	return &c
}

// RefCount returns how many live instances share this instance's geometry.
// It is 0 once the instance has been released.
func (i *Instance) RefCount() int {
	if i.released {
		return 0
	}
	return i.shared.refs
}

// drop gives up this instance's share of the geometry store and frees the
// geometry when it was the last one.
func (i *Instance) drop() {
	s := i.shared
	s.refs--
	if s.refs == 0 {
		for _, g := range s.geoms {
			if r, ok := g.(geometry.Releaser); ok {
				r.Release()
			}
		}
		logging.Logger().Debug("instance: geometry released", "id", i.id, "geometries", len(s.geoms))
		s.geoms = nil
	}
	i.box = geom.BoundingBox{}
	i.invalidate()
}

// Release gives up the geometry. Calling it again does nothing.
func (i *Instance) Release() {
	if i.released {
		return
	}
	i.drop()
	i.released = true
}

// Clear detaches the instance from its geometry, leaving it empty but
// usable.
func (i *Instance) Clear() {
	if i.released {
		return
	}
	i.drop()
	i.shared = newStore(nil)
}

// Matrix returns the placement.
func (i *Instance) Matrix() mgl64.Mat4 { return i.matrix }

// Translate pre-composes a translation.
func (i *Instance) Translate(x, y, z float64) {
	i.MultMatrix(mgl64.Translate3D(x, y, z))
}

// MultMatrix pre-composes m: the new placement is m * old.
func (i *Instance) MultMatrix(m mgl64.Mat4) {
	i.matrix = m.Mul4(i.matrix)
	i.invalidate()
}

// SetMatrix replaces the placement.
func (i *Instance) SetMatrix(m mgl64.Mat4) {
	i.matrix = m
	i.invalidate()
}

// ResetMatrix restores the identity placement.
func (i *Instance) ResetMatrix() {
	i.SetMatrix(mgl64.Ident4())
}

func (i *Instance) IsVisible() bool      { return i.visible }
func (i *Instance) SetVisible(v bool)    { i.visible = v }
func (i *Instance) IsSelected() bool     { return i.selected }
func (i *Instance) SetSelected(s bool)   { i.selected = s }
func (i *Instance) DefaultLOD() int      { return i.defaultLOD }
func (i *Instance) LODPolicy() LODPolicy { return i.policy }

func (i *Instance) PolygonMode() gl.PolygonMode { return i.polygonMode }

// SetPolygonMode selects fill, line or point rendering.
func (i *Instance) SetPolygonMode(m gl.PolygonMode) { i.polygonMode = m }

// SetDefaultLOD sets the detail floor, clamped to [0, 100].
func (i *Instance) SetDefaultLOD(lod int) {
	i.defaultLOD = min(max(lod, 0), 100)
}

func (i *Instance) SetLODPolicy(p LODPolicy) { i.policy = p }

// ChooseLOD picks the detail percentage for a world box under this
// instance's policy and floor.
func (i *Instance) ChooseLOD(box geom.BoundingBox, vp render.Viewport) int {
	return i.policy.Choose(box, vp, i.defaultLOD)
}

// Draw emits the instance's geometries accepted by the current pass. Hidden
// and empty instances draw nothing.
func (i *Instance) Draw(rc *render.Context) error {
	if i.released || !i.visible || i.IsEmpty() {
		return nil
	}
	ctx := rc.GL
	ctx.PushMatrix()
	defer ctx.PopMatrix()
	ctx.MultMatrix(i.matrix)

	ctx.PolygonMode(i.polygonMode)
	if i.polygonMode != gl.Fill {
		defer ctx.PolygonMode(gl.Fill)
	}

	if rc.Selecting() {
		ctx.Color(i.color)
	}
	rc.Highlight = i.selected
	defer func() { rc.Highlight = false }()

	drew := false
	for _, g := range i.shared.geoms {
		if !rc.Accepts(g.IsTransparent()) {
			continue
		}
		lod := i.ChooseLOD(g.BoundingBox().Transform(i.matrix), rc.Viewport)
		if Culled(lod) {
			if rc.Stats != nil {
				rc.Stats.LODCulled++
			}
			logging.Logger().Debug("instance: geometry culled by lod", "id", i.id, "lod", lod)
			continue
		}
		if err := g.Draw(rc, lod); err != nil {
			return fmt.Errorf("instance %d: %w", i.id, err)
		}
		drew = true
	}
	if drew && rc.Stats != nil {
		rc.Stats.Instances++
	}
	return nil
}
