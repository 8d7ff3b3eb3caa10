// Package mover turns pointer drags into camera motion. Each Mover is one
// interaction style; a Controller routes a drag to the mover bound to it.
package mover

import (
	"errors"
	"fmt"

	"github.com/chazu/glview/pkg/logging"
)

// ErrUnknownMover is returned for IDs with no mover bound.
var ErrUnknownMover = errors.New("mover: unknown mover")

// Kind names an interaction style.
type Kind int

const (
	KindTrackBall Kind = iota
	KindPan
	KindZoom
	KindTurnTable
	KindFly
	KindTsr
)

func (k Kind) String() string {
	switch k {
	case KindTrackBall:
		return "trackball"
	case KindPan:
		return "pan"
	case KindZoom:
		return "zoom"
	case KindTurnTable:
		return "turntable"
	case KindFly:
		return "fly"
	case KindTsr:
		return "tsr"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Input is one pointer sample. X and Y are window pixels with the origin at
// the top-left. Scale and Angle carry a two-finger gesture for Tsr: Scale is
// the pinch ratio since the gesture began (1 for none), Angle the twist in
// radians.
type Input struct {
	X, Y  float64
	Scale float64
	Angle float64
}

// At returns a plain pointer sample.
func At(x, y float64) Input {
	return Input{X: x, Y: y, Scale: 1}
}

// Mover is a camera interaction. Init starts a drag; Move continues it and
// reports whether the camera changed.
type Mover interface {
	Kind() Kind
	Init(in Input)
	Move(in Input) bool
}

// ID selects a mover inside a Controller.
type ID int

// Controller keeps movers by ID and forwards one drag at a time.
type Controller struct {
	movers   map[ID]Mover
	active   Mover
	activeID ID
}

// NewController returns an empty controller.
func NewController() *Controller {
	return &Controller{movers: make(map[ID]Mover)}
}

// Add binds m to id, replacing any previous binding.
func (c *Controller) Add(id ID, m Mover) {
	c.movers[id] = m
}

// Remove unbinds id. Removing the active mover ends the drag.
func (c *Controller) Remove(id ID) error {
	if _, ok := c.movers[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownMover, id)
	}
	if c.active != nil && c.activeID == id {
		c.End()
	}
	delete(c.movers, id)
	return nil
}

// Start begins a drag with the mover bound to id.
func (c *Controller) Start(id ID, in Input) error {
	m, ok := c.movers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownMover, id)
	}
	m.Init(in)
	c.active, c.activeID = m, id
	logging.Logger().Debug("mover: start", "kind", m.Kind(), "x", in.X, "y", in.Y)
	return nil
}

// Move forwards a sample to the active mover. Without a drag in progress it
// returns false.
func (c *Controller) Move(in Input) bool {
	if c.active == nil {
		return false
	}
	return c.active.Move(in)
}

// End finishes the current drag.
func (c *Controller) End() {
	c.active = nil
}

// Active returns the mover of the drag in progress, or nil.
func (c *Controller) Active() Mover {
	return c.active
}
