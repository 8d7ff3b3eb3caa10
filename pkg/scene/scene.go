// Package scene holds the collection of instances that make up a view and
// drives frustum culling, the render passes and picking over them.
package scene

import (
	"errors"
	"fmt"

	"github.com/chazu/glview/pkg/frustum"
	"github.com/chazu/glview/pkg/geom"
	"github.com/chazu/glview/pkg/gl"
	"github.com/chazu/glview/pkg/instance"
	"github.com/chazu/glview/pkg/logging"
	"github.com/chazu/glview/pkg/render"
	"github.com/chazu/glview/pkg/viewport"
)

var (
	// ErrNotFound is returned for IDs the scene does not hold.
	ErrNotFound = errors.New("scene: instance not found")
	// ErrDuplicateID is returned when adding an instance whose ID is taken.
	ErrDuplicateID = errors.New("scene: duplicate instance id")
)

// Scene is an ordered collection of instances keyed by ID.
//
// Scenes are not safe for concurrent use.
type Scene struct {
	order    []instance.ID
	byID     map[instance.ID]*instance.Instance
	selected map[instance.ID]bool
	policy   *instance.LODPolicy
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{
		byID:     make(map[instance.ID]*instance.Instance),
		selected: make(map[instance.ID]bool),
	}
}

// Add stores inst. Empty instances are accepted; they never draw.
func (s *Scene) Add(inst *instance.Instance) error {
	if inst == nil {
		return fmt.Errorf("scene: nil instance")
	}
	id := inst.ID()
	if _, exists := s.byID[id]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	if s.policy != nil {
		inst.SetLODPolicy(*s.policy)
	}
	s.byID[id] = inst
	s.order = append(s.order, id)
	if inst.IsSelected() {
		s.selected[id] = true
	}
	return nil
}

// Remove drops the instance and releases its geometry share.
func (s *Scene) Remove(id instance.ID) error {
	inst, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	delete(s.byID, id)
	delete(s.selected, id)
	for k, o := range s.order {
		if o == id {
			s.order = append(s.order[:k], s.order[k+1:]...)
			break
		}
	}
	inst.Release()
	return nil
}

// Get returns the instance with the given ID, or nil.
func (s *Scene) Get(id instance.ID) *instance.Instance {
	return s.byID[id]
}

func (s *Scene) Len() int { return len(s.order) }

// Instances returns the instances in insertion order.
func (s *Scene) Instances() []*instance.Instance {
	out := make([]*instance.Instance, len(s.order))
	for k, id := range s.order {
		out[k] = s.byID[id]
	}
	return out
}

// Clear releases every instance and empties the scene.
func (s *Scene) Clear() {
	for _, id := range s.order {
		s.byID[id].Release()
	}
	s.order = nil
	s.byID = make(map[instance.ID]*instance.Instance)
	s.selected = make(map[instance.ID]bool)
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

func (s *Scene) Select(id instance.ID) error {
	inst, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	inst.SetSelected(true)
	s.selected[id] = true
	return nil
}

func (s *Scene) Unselect(id instance.ID) error {
	inst, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	inst.SetSelected(false)
	delete(s.selected, id)
	return nil
}

func (s *Scene) UnselectAll() {
	for id := range s.selected {
		s.byID[id].SetSelected(false)
	}
	clear(s.selected)
}

func (s *Scene) IsSelected(id instance.ID) bool {
	return s.selected[id]
}

// Selection returns the selected IDs in insertion order.
func (s *Scene) Selection() []instance.ID {
	var out []instance.ID
	for _, id := range s.order {
		if s.selected[id] {
			out = append(out, id)
		}
	}
	return out
}

// SetVisible shows or hides an instance.
func (s *Scene) SetVisible(id instance.ID, visible bool) error {
	inst, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	inst.SetVisible(visible)
	return nil
}

// SetLODPolicy applies p to every instance, including ones added later.
func (s *Scene) SetLODPolicy(p instance.LODPolicy) {
	s.policy = &p
	for _, inst := range s.byID {
		inst.SetLODPolicy(p)
	}
}

// BoundingBox returns the union of the boxes of visible, non-empty
// instances.
func (s *Scene) BoundingBox() geom.BoundingBox {
	var box geom.BoundingBox
	for _, id := range s.order {
		inst := s.byID[id]
		if inst.IsVisible() && !inst.IsEmpty() {
			box.Combine(inst.BoundingBox())
		}
	}
	return box
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

// drawable returns the visible instances that survive frustum culling.
func (s *Scene) drawable(rc *render.Context) []*instance.Instance {
	out := make([]*instance.Instance, 0, len(s.order))
	for _, id := range s.order {
		inst := s.byID[id]
		if !inst.IsVisible() || inst.IsEmpty() {
			continue
		}
		if rc.Frustum != nil && rc.Frustum.LocalizeBox(inst.BoundingBox()) == frustum.Outside {
			if rc.Stats != nil {
				rc.Stats.FrustumCulled++
			}
			logging.Logger().Debug("scene: instance outside frustum", "id", id)
			continue
		}
		out = append(out, inst)
	}
	return out
}

func hasTransparent(insts []*instance.Instance) bool {
	for _, inst := range insts {
		for _, g := range inst.Geometries() {
			if g.IsTransparent() {
				return true
			}
		}
	}
	return false
}

func drawAll(rc *render.Context, insts []*instance.Instance) error {
	for _, inst := range insts {
		if err := inst.Draw(rc); err != nil {
			return err
		}
	}
	return nil
}

// Render draws the scene. Normal mode draws opaque geometry first, then
// transparent geometry blended without depth writes. Selection mode draws
// once with lighting, blending and dithering off so ID colours stay exact.
func (s *Scene) Render(rc *render.Context) error {
	insts := s.drawable(rc)
	ctx := rc.GL

	if rc.Selecting() {
		ctx.Disable(gl.Lighting)
		ctx.Disable(gl.Blend)
		ctx.Disable(gl.Dither)
		return drawAll(rc, insts)
	}

	rc.Pass = render.PassOpaque
	if err := drawAll(rc, insts); err != nil {
		return err
	}
	if !hasTransparent(insts) {
		return nil
	}

	rc.Pass = render.PassTransparent
	ctx.Enable(gl.Blend)
	ctx.DepthMask(false)
	err := drawAll(rc, insts)
	ctx.DepthMask(true)
	ctx.Disable(gl.Blend)
	rc.Pass = render.PassOpaque
	return err
}

// PickInstance returns the instance under the window position, or nil.
func (s *Scene) PickInstance(vp *viewport.Viewport, ctx gl.Context, x, y int) (*instance.Instance, error) {
	id, err := vp.Pick(ctx, s, x, y)
	if err != nil || id == 0 {
		return nil, err
	}
	return s.byID[id], nil
}
