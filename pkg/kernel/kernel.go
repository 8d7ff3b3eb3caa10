// Package kernel defines the solid modelling interface the viewer
// tessellates shapes through. Implementations wrap an SDF or B-rep library
// and hand back flat triangle meshes ready for immediate-mode drawing.
package kernel

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds solids and tessellates them.
//
// Primitives are centred on the origin; instances place them in the scene.
// Construction failures (non-positive dimensions) panic.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid
	Sphere(radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh tessellates s on a grid with cells cells along its longest
	// side. Finer grids give more triangles.
	ToMesh(s Solid, cells int) (*Mesh, error)
}
