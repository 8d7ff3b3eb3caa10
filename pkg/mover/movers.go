package mover

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/glview/pkg/viewport"
)

// Compile-time interface checks.
var (
	_ Mover = (*TrackBall)(nil)
	_ Mover = (*Pan)(nil)
	_ Mover = (*Zoom)(nil)
	_ Mover = (*TurnTable)(nil)
	_ Mover = (*Fly)(nil)
	_ Mover = (*Tsr)(nil)
)

// aboutPoint returns rot applied around p instead of the origin.
func aboutPoint(p mgl64.Vec3, rot mgl64.Mat4) mgl64.Mat4 {
	return mgl64.Translate3D(p[0], p[1], p[2]).Mul4(rot).Mul4(mgl64.Translate3D(-p[0], -p[1], -p[2]))
}

// ---------------------------------------------------------------------------
// TrackBall
// ---------------------------------------------------------------------------

// TrackBall orbits the camera around its target with a virtual sphere.
type TrackBall struct {
	vp   *viewport.Viewport
	prev mgl64.Vec3
}

func NewTrackBall(vp *viewport.Viewport) *TrackBall { return &TrackBall{vp: vp} }

func (m *TrackBall) Kind() Kind { return KindTrackBall }

func (m *TrackBall) Init(in Input) {
	m.prev = m.vp.MapForTrackBall(in.X, in.Y)
}

func (m *TrackBall) Move(in Input) bool {
	cur := m.vp.MapForTrackBall(in.X, in.Y)
	if cur.ApproxEqual(m.prev) {
		return false
	}
	m.vp.CameraHandle().Orbit(m.prev, cur)
	m.prev = cur
	return true
}

// ---------------------------------------------------------------------------
// Pan
// ---------------------------------------------------------------------------

// Pan slides eye and target so the point under the pointer follows it.
type Pan struct {
	vp   *viewport.Viewport
	prev mgl64.Vec3
}

func NewPan(vp *viewport.Viewport) *Pan { return &Pan{vp: vp} }

func (m *Pan) Kind() Kind { return KindPan }

func (m *Pan) Init(in Input) {
	m.prev = m.vp.MapPosMouse(in.X, in.Y)
}

func (m *Pan) Move(in Input) bool {
	cur := m.vp.MapPosMouse(in.X, in.Y)
	if cur == m.prev {
		return false
	}
	m.vp.CameraHandle().Pan(m.prev.Sub(cur))
	m.prev = cur
	return true
}

// ---------------------------------------------------------------------------
// Zoom
// ---------------------------------------------------------------------------

// Zoom moves the eye towards the target when dragging up and away when
// dragging down. A drag of half the window height doubles or halves the
// distance.
type Zoom struct {
	vp    *viewport.Viewport
	prevY float64
}

func NewZoom(vp *viewport.Viewport) *Zoom { return &Zoom{vp: vp} }

func (m *Zoom) Kind() Kind { return KindZoom }

func (m *Zoom) Init(in Input) { m.prevY = in.Y }

func (m *Zoom) Move(in Input) bool {
	dy := m.prevY - in.Y
	if dy == 0 {
		return false
	}
	_, h := m.vp.WindowSize()
	factor := math.Pow(2, dy/(float64(h)/2))
	if err := m.vp.CameraHandle().Zoom(factor); err != nil {
		return false
	}
	m.prevY = in.Y
	return true
}

// ---------------------------------------------------------------------------
// TurnTable
// ---------------------------------------------------------------------------

// TurnTable spins the camera around a fixed vertical axis through the
// target for horizontal drags and tilts it for vertical drags, never
// rolling the horizon.
type TurnTable struct {
	vp     *viewport.Viewport
	axis   mgl64.Vec3
	px, py float64
}

// maxTilt keeps the view axis off the spin axis.
const maxTilt = 0.999

func NewTurnTable(vp *viewport.Viewport) *TurnTable { return &TurnTable{vp: vp} }

func (m *TurnTable) Kind() Kind { return KindTurnTable }

func (m *TurnTable) Init(in Input) {
	m.axis = m.vp.CameraHandle().Up()
	m.px, m.py = in.X, in.Y
}

func (m *TurnTable) Move(in Input) bool {
	dx, dy := in.X-m.px, in.Y-m.py
	if dx == 0 && dy == 0 {
		return false
	}
	cam := m.vp.CameraHandle()
	w, h := m.vp.WindowSize()

	spin := -dx / float64(w) * 2 * math.Pi
	cam.Move(aboutPoint(cam.Target(), mgl64.HomogRotate3D(spin, m.axis)))

	tilt := -dy / float64(h) * math.Pi
	right := cam.Composition().Col(0).Vec3()
	rot := aboutPoint(cam.Target(), mgl64.HomogRotate3D(tilt, right))
	eye := mgl64.TransformCoordinate(cam.Eye(), rot)
	if math.Abs(cam.Target().Sub(eye).Normalize().Dot(m.axis)) < maxTilt {
		cam.SetCam(eye, cam.Target(), m.axis)
	}

	m.px, m.py = in.X, in.Y
	return true
}

// ---------------------------------------------------------------------------
// Fly
// ---------------------------------------------------------------------------

// Fly steers the view towards the pointer and advances the camera a step
// per sample. The pointer offset from the window centre sets the turn rate.
type Fly struct {
	vp *viewport.Viewport

	// TurnRate is the turn in radians per sample at the window edge.
	TurnRate float64
	// Step is the distance advanced per sample. Init sets it from the
	// eye-target distance when zero.
	Step float64
}

func NewFly(vp *viewport.Viewport) *Fly { return &Fly{vp: vp, TurnRate: 0.05} }

func (m *Fly) Kind() Kind { return KindFly }

func (m *Fly) Init(in Input) {
	if m.Step == 0 {
		m.Step = m.vp.CameraHandle().Distance() / 50
	}
}

func (m *Fly) Move(in Input) bool {
	cam := m.vp.CameraHandle()
	w, h := m.vp.WindowSize()
	nx := (in.X - float64(w)/2) / (float64(w) / 2)
	ny := (float64(h)/2 - in.Y) / (float64(h) / 2)

	yaw := mgl64.HomogRotate3D(-nx*m.TurnRate, cam.Up())
	right := cam.Composition().Col(0).Vec3()
	pitch := mgl64.HomogRotate3D(ny*m.TurnRate, right)
	cam.Move(aboutPoint(cam.Eye(), yaw.Mul4(pitch)))

	cam.Translate(cam.Forward().Mul(m.Step))
	return true
}

// ---------------------------------------------------------------------------
// Tsr
// ---------------------------------------------------------------------------

// Tsr handles a two-finger gesture: the centroid pans, the pinch zooms and
// the twist rolls the camera around its view axis.
type Tsr struct {
	vp    *viewport.Viewport
	prev  mgl64.Vec3
	scale float64
	angle float64
}

func NewTsr(vp *viewport.Viewport) *Tsr { return &Tsr{vp: vp} }

func (m *Tsr) Kind() Kind { return KindTsr }

func (m *Tsr) Init(in Input) {
	m.prev = m.vp.MapPosMouse(in.X, in.Y)
	m.scale = in.Scale
	m.angle = in.Angle
}

func (m *Tsr) Move(in Input) bool {
	cam := m.vp.CameraHandle()
	changed := false

	if cur := m.vp.MapPosMouse(in.X, in.Y); cur != m.prev {
		cam.Pan(m.prev.Sub(cur))
		m.prev = cur
		changed = true
	}
	if in.Scale > 0 && m.scale > 0 && in.Scale != m.scale {
		if err := cam.Zoom(in.Scale / m.scale); err == nil {
			m.scale = in.Scale
			changed = true
		}
	}
	if d := in.Angle - m.angle; d != 0 {
		roll := mgl64.HomogRotate3D(d, cam.Forward())
		cam.Move(aboutPoint(cam.Target(), roll))
		m.angle = in.Angle
		changed = true
	}
	return changed
}

// NewDefaultController binds every mover kind to the ID of the same value.
func NewDefaultController(vp *viewport.Viewport) *Controller {
	c := NewController()
	c.Add(ID(KindTrackBall), NewTrackBall(vp))
	c.Add(ID(KindPan), NewPan(vp))
	c.Add(ID(KindZoom), NewZoom(vp))
	c.Add(ID(KindTurnTable), NewTurnTable(vp))
	c.Add(ID(KindFly), NewFly(vp))
	c.Add(ID(KindTsr), NewTsr(vp))
	return c
}
