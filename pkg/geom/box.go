// Package geom provides the axis-aligned bounding box used for culling,
// framing and level-of-detail decisions.
package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// BoundingBox is an axis-aligned box. The zero value is empty.
type BoundingBox struct {
	min, max mgl64.Vec3
	set      bool
}

// NewBoundingBox returns the box spanning two opposite corners given in any order.
func NewBoundingBox(a, b mgl64.Vec3) BoundingBox {
	var box BoundingBox
	box.CombinePoint(a)
	box.CombinePoint(b)
	return box
}

// FromCorners builds a box from the [3]float64 corner pair returned by kernel solids.
func FromCorners(min, max [3]float64) BoundingBox {
	return NewBoundingBox(mgl64.Vec3(min), mgl64.Vec3(max))
}

// FromSDF converts an sdfx box.
func FromSDF(b sdf.Box3) BoundingBox {
	return NewBoundingBox(
		mgl64.Vec3{b.Min.X, b.Min.Y, b.Min.Z},
		mgl64.Vec3{b.Max.X, b.Max.Y, b.Max.Z},
	)
}

// SDF converts the box to sdfx form. An empty box converts to the zero box.
func (b BoundingBox) SDF() sdf.Box3 {
	if !b.set {
		return sdf.Box3{}
	}
	return sdf.Box3{
		Min: v3.Vec{X: b.min[0], Y: b.min[1], Z: b.min[2]},
		Max: v3.Vec{X: b.max[0], Y: b.max[1], Z: b.max[2]},
	}
}

// IsEmpty reports whether nothing has been combined into the box yet.
func (b BoundingBox) IsEmpty() bool {
	return !b.set
}

// Min returns the minimum corner.
func (b BoundingBox) Min() mgl64.Vec3 { return b.min }

// Max returns the maximum corner.
func (b BoundingBox) Max() mgl64.Vec3 { return b.max }

// Size returns max - min, or zero for an empty box.
func (b BoundingBox) Size() mgl64.Vec3 {
	if !b.set {
		return mgl64.Vec3{}
	}
	return b.max.Sub(b.min)
}

// CombinePoint grows the box to include p.
func (b *BoundingBox) CombinePoint(p mgl64.Vec3) {
	if !b.set {
		b.min, b.max, b.set = p, p, true
		return
	}
	for i := 0; i < 3; i++ {
		b.min[i] = math.Min(b.min[i], p[i])
		b.max[i] = math.Max(b.max[i], p[i])
	}
}

// Combine grows the box to the union with o. Combining an empty box is a no-op.
func (b *BoundingBox) Combine(o BoundingBox) {
	if !o.set {
		return
	}
	b.CombinePoint(o.min)
	b.CombinePoint(o.max)
}

// corners returns the eight box vertices.
func (b BoundingBox) corners() [8]mgl64.Vec3 {
	lo, hi := b.min, b.max
	return [8]mgl64.Vec3{
		{lo[0], lo[1], lo[2]},
		{hi[0], lo[1], lo[2]},
		{lo[0], hi[1], lo[2]},
		{hi[0], hi[1], lo[2]},
		{lo[0], lo[1], hi[2]},
		{hi[0], lo[1], hi[2]},
		{lo[0], hi[1], hi[2]},
		{hi[0], hi[1], hi[2]},
	}
}

// Transform maps the eight corners through m and returns the axis-aligned
// box enclosing them. The result is not tight under rotation.
func (b BoundingBox) Transform(m mgl64.Mat4) BoundingBox {
	if !b.set {
		return b
	}
	var out BoundingBox
	for _, c := range b.corners() {
		out.CombinePoint(mgl64.TransformCoordinate(c, m))
	}
	return out
}

// Center returns the box centre, or the origin for an empty box.
func (b BoundingBox) Center() mgl64.Vec3 {
	if !b.set {
		return mgl64.Vec3{}
	}
	return b.min.Add(b.max).Mul(0.5)
}

// BoundingSphereRadius returns half the diagonal length.
func (b BoundingBox) BoundingSphereRadius() float64 {
	return b.Size().Len() / 2
}

// Contains reports whether p lies inside or on the box.
func (b BoundingBox) Contains(p mgl64.Vec3) bool {
	if !b.set {
		return false
	}
	for i := 0; i < 3; i++ {
		if p[i] < b.min[i] || p[i] > b.max[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether the two boxes overlap with positive volume.
// Boxes that only touch on a face do not intersect.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	if !b.set || !o.set {
		return false
	}
	for i := 0; i < 3; i++ {
		if b.max[i] <= o.min[i] || o.max[i] <= b.min[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both boxes are empty or have identical corners.
func (b BoundingBox) Equal(o BoundingBox) bool {
	if b.set != o.set {
		return false
	}
	return !b.set || (b.min == o.min && b.max == o.max)
}
