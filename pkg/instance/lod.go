package instance

import (
	"math"

	"github.com/chazu/glview/pkg/geom"
	"github.com/chazu/glview/pkg/render"
)

// LODPolicy holds the tuning of the screen-coverage level-of-detail rule.
type LODPolicy struct {
	// Scale multiplies the diameter/coverage ratio into a percentage.
	Scale float64
	// Results above CullThreshold are replaced by CullValue.
	CullThreshold int
	// CullValue is returned for geometry too small to draw. Anything over
	// 100 makes the instance skip the geometry.
	CullValue int
}

// DefaultLODPolicy is the historical tuning.
var DefaultLODPolicy = LODPolicy{Scale: 150, CullThreshold: 98, CullValue: 110}

// Culled reports whether lod tells the caller to skip drawing.
func Culled(lod int) bool {
	return lod > 100
}

// Choose returns a detail percentage for a world box seen through vp: 0 for
// full detail, up to 100 for the coarsest level, CullValue when the box
// covers almost none of the view. Results below floor are raised to it.
// A nil viewport returns 0.
func (p LODPolicy) Choose(box geom.BoundingBox, vp render.Viewport, floor int) int {
	if vp == nil {
		return 0
	}
	cam := vp.CameraHandle()
	if cam == nil {
		return 0
	}
	diameter := 2 * box.BoundingSphereRadius()
	distance := box.Center().Sub(cam.Eye()).Len()
	halfFov := vp.FieldOfView() * math.Pi / 360
	cover := distance * 2 * math.Tan(halfFov)
	if !(cover > 0) {
		// Eye inside the bounding sphere centre.
		return floor
	}

	ratio := diameter / cover * p.Scale
	ratio = math.Max(0, math.Min(100, ratio))
	lod := int(100 - ratio)

	if lod > p.CullThreshold {
		return p.CullValue
	}
	if lod < floor {
		return floor
	}
	return lod
}
