// Package camera implements the eye/target/up viewing camera and the
// gestures applied to it: orbit, pan, zoom, translate and arbitrary moves.
package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/glview/pkg/gl"
	"github.com/chazu/glview/pkg/logging"
)

var (
	// ErrInvalidZoom is returned by Zoom for factors that are not strictly
	// positive and finite.
	ErrInvalidZoom = errors.New("camera: zoom factor must be positive")
	// ErrInvalidDistance is returned by SetDistance for non-positive distances.
	ErrInvalidDistance = errors.New("camera: distance must be positive")
)

const (
	epsilon      = 1e-12
	angleEpsilon = 1e-10
)

// Camera is a look-at camera. The stored up vector is always unit length
// and orthogonal to the eye-target axis.
type Camera struct {
	eye    mgl64.Vec3
	target mgl64.Vec3
	up     mgl64.Vec3

	// comp maps camera-local gesture vectors into world space. Columns are
	// right, up and the unit eye-target axis.
	comp mgl64.Mat4
}

// New returns a camera at (0,0,1) looking at the origin with +Y up.
func New() *Camera {
	return NewCamera(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
}

// NewCamera returns a camera with the given pose. A degenerate pose
// (eye == target) falls back to the default pose.
func NewCamera(eye, target, up mgl64.Vec3) *Camera {
	c := &Camera{eye: mgl64.Vec3{0, 0, 1}, up: mgl64.Vec3{0, 1, 0}}
	c.createMatComp()
	c.SetCam(eye, target, up)
	return c
}

// SetCam sets the full pose. The up vector is corrected to be orthogonal
// to the view axis rather than rejected. The call is ignored when eye and
// target coincide.
func (c *Camera) SetCam(eye, target, up mgl64.Vec3) {
	axis := eye.Sub(target)
	if axis.Len() < epsilon {
		logging.Logger().Debug("camera: ignoring pose with eye == target", "eye", eye)
		return
	}
	c.eye = eye
	c.target = target
	c.up = orthogonalUp(axis.Normalize(), up)
	c.createMatComp()
}

// orthogonalUp returns a unit vector orthogonal to the unit view axis,
// as close as possible to up.
func orthogonalUp(axis, up mgl64.Vec3) mgl64.Vec3 {
	if up.Len() < epsilon || axis.Cross(up.Normalize()).Len() < angleEpsilon {
		up = leastAlignedAxis(axis)
	}
	up = up.Normalize()

	angle := math.Acos(mgl64.Clamp(axis.Dot(up), -1, 1))
	if math.Abs(angle-math.Pi/2) > angleEpsilon {
		// Turning the view axis a quarter turn towards up lands on the
		// component of up orthogonal to the axis.
		rot := mgl64.HomogRotate3D(math.Pi/2, axis.Cross(up).Normalize())
		up = mgl64.TransformNormal(axis, rot).Normalize()
	}
	return up
}

func leastAlignedAxis(v mgl64.Vec3) mgl64.Vec3 {
	best := mgl64.Vec3{1, 0, 0}
	bestDot := math.Abs(v[0])
	if d := math.Abs(v[1]); d < bestDot {
		best, bestDot = mgl64.Vec3{0, 1, 0}, d
	}
	if d := math.Abs(v[2]); d < bestDot {
		best = mgl64.Vec3{0, 0, 1}
	}
	return best
}

// createMatComp rebuilds the orthonormal gesture basis from the pose.
func (c *Camera) createMatComp() {
	axis := c.eye.Sub(c.target).Normalize()
	right := c.up.Cross(axis).Normalize()
	c.comp = mgl64.Mat4FromCols(right.Vec4(0), c.up.Vec4(0), axis.Vec4(0), mgl64.Vec4{0, 0, 0, 1})
}

// SetEye moves the eye, keeping target and up.
func (c *Camera) SetEye(eye mgl64.Vec3) { c.SetCam(eye, c.target, c.up) }

// SetTarget moves the target, keeping eye and up.
func (c *Camera) SetTarget(target mgl64.Vec3) { c.SetCam(c.eye, target, c.up) }

// SetUp replaces the up vector.
func (c *Camera) SetUp(up mgl64.Vec3) { c.SetCam(c.eye, c.target, up) }

func (c *Camera) Eye() mgl64.Vec3    { return c.eye }
func (c *Camera) Target() mgl64.Vec3 { return c.target }
func (c *Camera) Up() mgl64.Vec3     { return c.up }

// Forward returns the unit direction from eye to target.
func (c *Camera) Forward() mgl64.Vec3 {
	return c.target.Sub(c.eye).Normalize()
}

// Distance returns the eye-target distance.
func (c *Camera) Distance() float64 {
	return c.eye.Sub(c.target).Len()
}

// SetDistance moves the eye along the view axis to distance d from the target.
func (c *Camera) SetDistance(d float64) error {
	if !(d > 0) || math.IsInf(d, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidDistance, d)
	}
	axis := c.eye.Sub(c.target).Normalize()
	c.eye = c.target.Add(axis.Mul(d))
	return nil
}

// Composition returns the orbit composition matrix.
func (c *Camera) Composition() mgl64.Mat4 {
	return c.comp
}

// ViewMatrix returns the world-to-eye transform.
func (c *Camera) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(c.eye, c.target, c.up)
}

// Orbit rotates the eye about the target so that the gesture vector cur
// is brought back onto prev. Both vectors are in camera-local space. Parallel
// vectors are a no-op.
func (c *Camera) Orbit(prev, cur mgl64.Vec3) {
	prev = mgl64.TransformNormal(prev, c.comp)
	cur = mgl64.TransformNormal(cur, c.comp)

	axis := cur.Cross(prev)
	if axis.Len() < epsilon {
		return
	}
	cos := cur.Dot(prev) / (cur.Len() * prev.Len())
	angle := math.Acos(mgl64.Clamp(cos, -1, 1))
	rot := mgl64.HomogRotate3D(angle, axis.Normalize())

	c.eye = mgl64.TransformNormal(c.eye.Sub(c.target), rot).Add(c.target)
	c.up = mgl64.TransformNormal(c.up, rot).Normalize()
	c.comp = rot.Mul4(c.comp)
}

// Pan translates eye and target by a camera-local displacement.
func (c *Camera) Pan(v mgl64.Vec3) {
	c.Translate(mgl64.TransformNormal(v, c.comp))
}

// Translate moves eye and target by a world-space vector.
func (c *Camera) Translate(v mgl64.Vec3) {
	c.eye = c.eye.Add(v)
	c.target = c.target.Add(v)
}

// Zoom divides the eye-target distance by factor; factors above one move
// the eye closer.
func (c *Camera) Zoom(factor float64) error {
	if !(factor > 0) || math.IsInf(factor, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidZoom, factor)
	}
	v := c.eye.Sub(c.target)
	c.eye = c.target.Add(v.Mul(1 / factor))
	return nil
}

// Move applies m to eye and target as points and to up as a direction.
func (c *Camera) Move(m mgl64.Mat4) {
	eye := mgl64.TransformCoordinate(c.eye, m)
	target := mgl64.TransformCoordinate(c.target, m)
	// Subtracting the moved origin strips any translation from up.
	up := mgl64.TransformCoordinate(c.up, m).Sub(mgl64.TransformCoordinate(mgl64.Vec3{}, m))
	c.SetCam(eye, target, up)
}

// FrontView looks down -Z at the target with +Y up, keeping the distance.
func (c *Camera) FrontView() {
	c.standardView(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0})
}

// TopView looks down -Y at the target with -Z up, keeping the distance.
func (c *Camera) TopView() {
	c.standardView(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, -1})
}

// IsoView looks along (-1,-1,-1) at the target, keeping the distance.
func (c *Camera) IsoView() {
	c.standardView(mgl64.Vec3{1, 1, 1}.Normalize(), mgl64.Vec3{0, 1, 0})
}

func (c *Camera) standardView(axis, up mgl64.Vec3) {
	d := c.Distance()
	c.SetCam(c.target.Add(axis.Mul(d)), c.target, up)
}

// Execute loads the view matrix onto the MODELVIEW stack.
func (c *Camera) Execute(ctx gl.Context) error {
	ctx.MatrixMode(gl.ModelView)
	ctx.LoadMatrix(c.ViewMatrix())
	return gl.Check(ctx, "camera execute")
}
