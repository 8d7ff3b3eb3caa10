// Package viewport ties the camera to a window: projection, frustum,
// mouse mapping and colour-buffer picking.
package viewport

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/glview/pkg/camera"
	"github.com/chazu/glview/pkg/frustum"
	"github.com/chazu/glview/pkg/geom"
	"github.com/chazu/glview/pkg/gl"
	"github.com/chazu/glview/pkg/instance"
	"github.com/chazu/glview/pkg/logging"
	"github.com/chazu/glview/pkg/render"
)

var (
	// ErrInvalidFOV is returned for a field of view outside (0, 180) degrees.
	ErrInvalidFOV = errors.New("viewport: field of view must be in (0, 180) degrees")
	// ErrInvalidSize is returned for non-positive window sizes.
	ErrInvalidSize = errors.New("viewport: window size must be positive")
)

const (
	DefaultFOV    = 35.0
	DefaultWidth  = 800
	DefaultHeight = 600

	defaultNear = 0.1
	defaultFar  = 1000.0
	// near is never closer than far / depthRange.
	depthRange = 1000.0
)

// Compile-time interface check.
var _ render.Viewport = (*Viewport)(nil)

// Renderer draws a scene for a picking pass.
type Renderer interface {
	Render(rc *render.Context) error
}

// Viewport owns the camera and the projection of one window.
type Viewport struct {
	cam           *camera.Camera
	fov           float64
	width, height int
	near, far     float64
	background    color.RGBA
	frustum       frustum.Frustum
}

// New returns a DefaultWidth x DefaultHeight viewport with the default
// camera and a 35° field of view.
func New() *Viewport {
	return &Viewport{
		cam:        camera.New(),
		fov:        DefaultFOV,
		width:      DefaultWidth,
		height:     DefaultHeight,
		near:       defaultNear,
		far:        defaultFar,
		background: color.RGBA{A: 255},
	}
}

func (v *Viewport) CameraHandle() *camera.Camera { return v.cam }

// SetCamera replaces the camera. nil is ignored.
func (v *Viewport) SetCamera(c *camera.Camera) {
	if c != nil {
		v.cam = c
	}
}

// FieldOfView returns the vertical field of view in degrees.
func (v *Viewport) FieldOfView() float64 { return v.fov }

func (v *Viewport) SetFieldOfView(deg float64) error {
	if !(deg > 0 && deg < 180) {
		return fmt.Errorf("%w: %v", ErrInvalidFOV, deg)
	}
	v.fov = deg
	return nil
}

func (v *Viewport) WindowSize() (int, int) { return v.width, v.height }

func (v *Viewport) SetWindowSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	v.width, v.height = width, height
	return nil
}

func (v *Viewport) Background() color.RGBA     { return v.background }
func (v *Viewport) SetBackground(c color.RGBA) { v.background = c }

// DepthRange returns the near and far clip distances.
func (v *Viewport) DepthRange() (near, far float64) { return v.near, v.far }

func (v *Viewport) aspect() float64 {
	return float64(v.width) / float64(v.height)
}

// ProjectionMatrix returns the perspective projection.
func (v *Viewport) ProjectionMatrix() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(v.fov), v.aspect(), v.near, v.far)
}

// SetDistMinAndMax fits the clip planes around box as seen from the eye.
// Empty boxes leave the planes alone.
func (v *Viewport) SetDistMinAndMax(box geom.BoundingBox) {
	if box.IsEmpty() {
		return
	}
	r := box.BoundingSphereRadius()
	d := box.Center().Sub(v.cam.Eye()).Dot(v.cam.Forward())
	far := d + r
	if far <= 0 {
		// Scene entirely behind the eye.
		return
	}
	// Leave a little slack so geometry on the sphere is not clipped.
	far *= 1.01
	near := math.Max((d-r)*0.99, far/depthRange)
	v.near, v.far = near, far
}

// Reframe keeps the view direction and moves the camera so the bounding
// sphere of box fills the field of view.
func (v *Viewport) Reframe(box geom.BoundingBox) {
	if box.IsEmpty() {
		return
	}
	r := box.BoundingSphereRadius()
	if r == 0 {
		r = 1
	}
	dist := r / math.Sin(mgl64.DegToRad(v.fov)/2)
	dir := v.cam.Eye().Sub(v.cam.Target()).Normalize()
	c := box.Center()
	v.cam.SetCam(c.Add(dir.Mul(dist)), c, v.cam.Up())
	v.SetDistMinAndMax(box)
}

// Frustum returns the frustum kept current by UpdateFrustum.
func (v *Viewport) Frustum() *frustum.Frustum { return &v.frustum }

// UpdateFrustum extracts the frustum from the current projection and view.
// It reports whether anything changed.
func (v *Viewport) UpdateFrustum() bool {
	return v.frustum.Update(v.ProjectionMatrix().Mul4(v.cam.ViewMatrix()))
}

// Prepare sets the GL viewport, loads the projection and the camera.
func (v *Viewport) Prepare(ctx gl.Context) error {
	ctx.Viewport(0, 0, v.width, v.height)
	ctx.MatrixMode(gl.Projection)
	ctx.LoadMatrix(v.ProjectionMatrix())
	if err := gl.Check(ctx, "load projection"); err != nil {
		return err
	}
	return v.cam.Execute(ctx)
}

// MapPosMouse converts a window position (origin top-left) to a
// displacement in the camera plane at the target distance.
func (v *Viewport) MapPosMouse(x, y float64) mgl64.Vec3 {
	px := x - float64(v.width)/2
	py := float64(v.height)/2 - y
	fieldHeight := 2 * v.cam.Distance() * math.Tan(mgl64.DegToRad(v.fov)/2)
	ratio := fieldHeight / float64(v.height)
	return mgl64.Vec3{px * ratio, py * ratio, 0}
}

// MapForTrackBall converts a window position to a unit vector on a virtual
// trackball. Positions away from the centre fall onto a hyperbolic sheet so
// the mapping stays continuous.
func (v *Viewport) MapForTrackBall(x, y float64) mgl64.Vec3 {
	half := float64(min(v.width, v.height)) / 2
	px := (x - float64(v.width)/2) / half
	py := (float64(v.height)/2 - y) / half
	d2 := px*px + py*py
	var z float64
	if d2 < 0.5 {
		z = math.Sqrt(1 - d2)
	} else {
		z = 0.5 / math.Sqrt(d2)
	}
	return mgl64.Vec3{px, py, z}.Normalize()
}

// Project maps a world point to window coordinates, origin top-left. ok is
// false for points behind the eye.
func (v *Viewport) Project(p mgl64.Vec3) (x, y float64, ok bool) {
	clip := v.ProjectionMatrix().Mul4(v.cam.ViewMatrix()).Mul4x1(p.Vec4(1))
	if clip[3] <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip[3])
	x = (ndc[0] + 1) / 2 * float64(v.width)
	y = (1 - ndc[1]) / 2 * float64(v.height)
	return x, y, true
}

// Pick renders a selection pass and decodes the instance ID under the
// window position (origin top-left). 0 means nothing was hit.
func (v *Viewport) Pick(ctx gl.Context, r Renderer, x, y int) (instance.ID, error) {
	if x < 0 || y < 0 || x >= v.width || y >= v.height {
		return 0, nil
	}
	ctx.ClearColor(color.RGBA{A: 255})
	ctx.Clear()
	defer ctx.ClearColor(v.background)

	if err := v.Prepare(ctx); err != nil {
		return 0, err
	}
	v.UpdateFrustum()
	rc := &render.Context{
		GL:       ctx,
		Mode:     render.ModeSelection,
		Viewport: v,
		Frustum:  &v.frustum,
	}
	if err := r.Render(rc); err != nil {
		return 0, fmt.Errorf("selection pass: %w", err)
	}
	c := ctx.ReadPixel(x, v.height-1-y)
	if err := gl.Check(ctx, "pick"); err != nil {
		return 0, err
	}
	id := instance.DecodeColor(c)
	logging.Logger().Debug("viewport: pick", "x", x, "y", y, "id", id)
	return id, nil
}
