// Package frustum extracts the six clip planes of a view volume from a
// combined projection-view matrix and classifies bounding volumes against them.
package frustum

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/glview/pkg/geom"
)

// Localization is the result of testing a volume against the frustum.
// The values combine with bitwise OR: any Intersect plane makes the whole
// result Intersect.
type Localization int

const (
	Inside    Localization = 0
	Intersect Localization = 1
	Outside   Localization = 2
)

func (l Localization) String() string {
	switch l {
	case Inside:
		return "inside"
	case Intersect:
		return "intersect"
	case Outside:
		return "outside"
	default:
		return "unknown"
	}
}

// Plane side indices.
const (
	Left = iota
	Right
	Bottom
	Top
	Near
	Far
)

// Plane is n·p + d = 0 with a unit normal pointing into the view volume.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

// SignedDistance returns the distance from p to the plane, positive on the
// inner side.
func (p Plane) SignedDistance(v mgl64.Vec3) float64 {
	return p.Normal.Dot(v) + p.Distance
}

func planeFrom(v mgl64.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Mul(1 / l), Distance: v[3] / l}
}

// Frustum holds the planes extracted from the last matrix passed to Update.
// The zero value has no planes and localizes everything as Inside.
type Frustum struct {
	planes [6]Plane
	matrix mgl64.Mat4
	set    bool
}

// New returns a frustum extracted from m.
func New(m mgl64.Mat4) *Frustum {
	f := &Frustum{}
	f.Update(m)
	return f
}

// Update extracts the planes from m (projection * view). It returns false
// and leaves the planes untouched when m equals the current matrix.
func (f *Frustum) Update(m mgl64.Mat4) bool {
	if f.set && m == f.matrix {
		return false
	}
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)
	f.planes[Left] = planeFrom(r3.Add(r0))
	f.planes[Right] = planeFrom(r3.Sub(r0))
	f.planes[Bottom] = planeFrom(r3.Add(r1))
	f.planes[Top] = planeFrom(r3.Sub(r1))
	f.planes[Near] = planeFrom(r3.Add(r2))
	f.planes[Far] = planeFrom(r3.Sub(r2))
	f.matrix = m
	f.set = true
	return true
}

// Planes returns the six planes in Left, Right, Bottom, Top, Near, Far order.
func (f *Frustum) Planes() [6]Plane {
	return f.planes
}

// Matrix returns the matrix the planes were extracted from.
func (f *Frustum) Matrix() mgl64.Mat4 {
	return f.matrix
}

// LocalizeSphere classifies a sphere. It returns Outside as soon as one
// plane has the sphere entirely behind it.
func (f *Frustum) LocalizeSphere(center mgl64.Vec3, radius float64) Localization {
	if !f.set {
		return Inside
	}
	result := Inside
	for _, p := range f.planes {
		d := p.SignedDistance(center)
		if d < -radius {
			return Outside
		}
		if d < radius {
			result |= Intersect
		}
	}
	return result
}

// LocalizeBox classifies a box through its bounding sphere. Empty boxes are
// Outside.
func (f *Frustum) LocalizeBox(box geom.BoundingBox) Localization {
	if box.IsEmpty() {
		return Outside
	}
	return f.LocalizeSphere(box.Center(), box.BoundingSphereRadius())
}
