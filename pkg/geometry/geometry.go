// Package geometry holds the drawable shapes instances reference: a
// level-of-detail pyramid of kernel meshes plus the material it draws with.
package geometry

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"slices"

	"github.com/chazu/glview/pkg/geom"
	"github.com/chazu/glview/pkg/gl"
	"github.com/chazu/glview/pkg/kernel"
	"github.com/chazu/glview/pkg/render"
)

var (
	// ErrInvalidLOD is returned by Draw for a level of detail outside [0, 100].
	ErrInvalidLOD = errors.New("geometry: level of detail out of range")
	// ErrEmptyTessellation is returned by FromSolid when no level has triangles.
	ErrEmptyTessellation = errors.New("geometry: tessellation produced no triangles")
)

// Geometry is a drawable shape shared by one or more instances.
type Geometry interface {
	BoundingBox() geom.BoundingBox
	// BoundingBoxValid reports whether the box returned last is still
	// current. Instances recompute their own box when it is not.
	BoundingBoxValid() bool
	// BoundingBoxGeneration changes whenever the shape changes. Instances
	// sharing the geometry compare it against the value they last used.
	BoundingBoxGeneration() uint64
	NumberOfVertices() int
	NumberOfFaces() int
	Clone() Geometry
	ReverseNormals()
	// Draw emits the geometry at lod, a percentage where 0 is the finest
	// level and 100 the coarsest.
	Draw(rc *render.Context, lod int) error
	IsTransparent() bool
}

// Releaser is implemented by geometries that hold resources to free when
// the last instance referencing them goes away.
type Releaser interface {
	Release()
}

// ColorMaterial is a flat colour. Alpha below 255 makes it transparent.
type ColorMaterial struct {
	Color color.RGBA
}

func (m ColorMaterial) Bind(ctx gl.Context) { ctx.Color(m.Color) }

func (m ColorMaterial) IsTransparent() bool { return m.Color.A < 255 }

// Compile-time interface checks.
var (
	_ Geometry        = (*Mesh)(nil)
	_ Releaser        = (*Mesh)(nil)
	_ render.Material = ColorMaterial{}
)

// Mesh is a level-of-detail pyramid. Level 0 is the finest and defines the
// bounding box.
type Mesh struct {
	name     string
	levels   []*kernel.Mesh
	material render.Material

	box      geom.BoundingBox
	boxValid bool
	gen      uint64
}

// NewMesh returns a mesh with the given levels, finest first.
func NewMesh(levels ...*kernel.Mesh) *Mesh {
	m := &Mesh{}
	m.SetLevels(levels...)
	return m
}

func (m *Mesh) Name() string        { return m.name }
func (m *Mesh) SetName(name string) { m.name = name }

func (m *Mesh) Material() render.Material { return m.material }

// SetMaterial sets the material bound in normal mode. nil draws with the
// current GL colour.
func (m *Mesh) SetMaterial(mat render.Material) { m.material = mat }

// Levels returns the pyramid, finest first.
func (m *Mesh) Levels() []*kernel.Mesh { return m.levels }

// SetLevels replaces the pyramid. Nil entries are dropped.
func (m *Mesh) SetLevels(levels ...*kernel.Mesh) {
	m.levels = m.levels[:0]
	for _, l := range levels {
		if l != nil {
			m.levels = append(m.levels, l)
		}
	}
	m.changed()
}

func (m *Mesh) changed() {
	m.boxValid = false
	m.gen++
}

// AddLevel appends a coarser level.
func (m *Mesh) AddLevel(l *kernel.Mesh) {
	if l == nil {
		return
	}
	m.levels = append(m.levels, l)
	m.changed()
}

// Level returns the mesh drawn at lod, or nil when the pyramid is empty.
func (m *Mesh) Level(lod int) *kernel.Mesh {
	n := len(m.levels)
	if n == 0 {
		return nil
	}
	i := int(math.Round(float64(lod) * float64(n-1) / 100))
	return m.levels[min(max(i, 0), n-1)]
}

func (m *Mesh) finest() *kernel.Mesh {
	if len(m.levels) == 0 {
		return nil
	}
	return m.levels[0]
}

func (m *Mesh) BoundingBox() geom.BoundingBox {
	if !m.boxValid {
		m.box = geom.BoundingBox{}
		if f := m.finest(); f != nil {
			if lo, hi, ok := f.Bounds(); ok {
				m.box = geom.FromCorners(lo, hi)
			}
		}
		m.boxValid = true
	}
	return m.box
}

func (m *Mesh) BoundingBoxValid() bool        { return m.boxValid }
func (m *Mesh) BoundingBoxGeneration() uint64 { return m.gen }

func (m *Mesh) NumberOfVertices() int {
	if f := m.finest(); f != nil {
		return f.VertexCount()
	}
	return 0
}

func (m *Mesh) NumberOfFaces() int {
	if f := m.finest(); f != nil {
		return f.TriangleCount()
	}
	return 0
}

// Clone deep-copies every level. The material is shared.
func (m *Mesh) Clone() Geometry {
	c := &Mesh{
		name:     m.name,
		levels:   make([]*kernel.Mesh, len(m.levels)),
		material: m.material,
		box:      m.box,
		boxValid: m.boxValid,
		gen:      m.gen,
	}
	for i, l := range m.levels {
		c.levels[i] = l.Clone()
	}
	return c
}

// ReverseNormals flips normals and winding on every level.
func (m *Mesh) ReverseNormals() {
	for _, l := range m.levels {
		l.ReverseNormals()
	}
}

func (m *Mesh) IsTransparent() bool {
	return m.material != nil && m.material.IsTransparent()
}

// Release drops the mesh data.
func (m *Mesh) Release() {
	m.levels = nil
	m.box = geom.BoundingBox{}
	m.changed()
}

func (m *Mesh) Draw(rc *render.Context, lod int) error {
	if lod < 0 || lod > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidLOD, lod)
	}
	l := m.Level(lod)
	if l == nil || l.IsEmpty() {
		return nil
	}
	if !rc.Selecting() {
		switch {
		case rc.Highlight && rc.SelectionMaterial != nil:
			rc.SelectionMaterial.Bind(rc.GL)
		case m.material != nil:
			m.material.Bind(rc.GL)
		}
	}
	rc.GL.Triangles(l.Vertices, l.Normals, l.Indices)
	rc.AddTriangles(l.TriangleCount())
	return nil
}

// FromSolid tessellates s once per cell count and returns the pyramid,
// finest first. With no cell counts a three level 64/32/16 pyramid is built.
// Levels too coarse to resolve the solid come out empty and are dropped, so
// the coarsest drawn level still shows something. ErrEmptyTessellation is
// returned when even the finest level is empty.
func FromSolid(k kernel.Kernel, s kernel.Solid, cells ...int) (*Mesh, error) {
	if len(cells) == 0 {
		cells = []int{64, 32, 16}
	}
	cells = slices.Clone(cells)
	slices.Sort(cells)
	slices.Reverse(cells)

	levels := make([]*kernel.Mesh, 0, len(cells))
	for _, c := range cells {
		l, err := k.ToMesh(s, c)
		if err != nil {
			return nil, fmt.Errorf("tessellate at %d cells: %w", c, err)
		}
		if l == nil || l.IsEmpty() {
			// Coarser grids resolve even less.
			break
		}
		levels = append(levels, l)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w at %d cells", ErrEmptyTessellation, cells[0])
	}
	return NewMesh(levels...), nil
}
