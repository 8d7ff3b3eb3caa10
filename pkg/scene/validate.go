package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/glview/pkg/instance"
)

// ValidationSeverity indicates whether a finding makes the scene unusable
// or is merely advisory.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // scene cannot be drawn correctly
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes one finding about an instance.
type ValidationError struct {
	InstanceID instance.ID
	Message    string
	Severity   ValidationSeverity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] instance %d: %s", e.Severity, e.InstanceID, e.Message)
}

// ValidationResult bundles blocking errors and advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no errors were found.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate checks placements, empty instances and overlapping instances.
func (s *Scene) Validate() ValidationResult {
	var findings []ValidationError
	findings = append(findings, s.validatePlacements()...)
	findings = append(findings, s.validateEmpty()...)
	findings = append(findings, s.validateClashes()...)

	var result ValidationResult
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, f)
		} else {
			result.Errors = append(result.Errors, f)
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Placement checks (errors)
// ---------------------------------------------------------------------------

// singularEpsilon bounds |det| below which a placement collapses geometry.
const singularEpsilon = 1e-12

func validatePlacement(id instance.ID, m mgl64.Mat4) []ValidationError {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return []ValidationError{{
				InstanceID: id,
				Message:    "placement matrix has non-finite entries",
				Severity:   SeverityError,
			}}
		}
	}
	if det := m.Det(); math.Abs(det) < singularEpsilon {
		return []ValidationError{{
			InstanceID: id,
			Message:    fmt.Sprintf("placement matrix is singular (det %.3g)", det),
			Severity:   SeverityError,
		}}
	}
	return nil
}

func (s *Scene) validatePlacements() []ValidationError {
	var errs []ValidationError
	for _, inst := range s.Instances() {
		errs = append(errs, validatePlacement(inst.ID(), inst.Matrix())...)
	}
	return errs
}

// ---------------------------------------------------------------------------
// Advisory checks (warnings)
// ---------------------------------------------------------------------------

func (s *Scene) validateEmpty() []ValidationError {
	var warnings []ValidationError
	for _, inst := range s.Instances() {
		if inst.IsEmpty() {
			warnings = append(warnings, ValidationError{
				InstanceID: inst.ID(),
				Message:    "instance has no geometry and will never draw",
				Severity:   SeverityWarning,
			})
		} else if inst.BoundingBox().IsEmpty() {
			warnings = append(warnings, ValidationError{
				InstanceID: inst.ID(),
				Message:    "instance geometry has no triangles and will never draw",
				Severity:   SeverityWarning,
			})
		}
	}
	return warnings
}

// validateClashes warns about pairs of visible instances whose world boxes
// overlap. Boxes only touching do not count.
func (s *Scene) validateClashes() []ValidationError {
	var warnings []ValidationError
	insts := s.Instances()
	for a := 0; a < len(insts); a++ {
		ia := insts[a]
		if ia.IsEmpty() || !ia.IsVisible() {
			continue
		}
		for b := a + 1; b < len(insts); b++ {
			ib := insts[b]
			if ib.IsEmpty() || !ib.IsVisible() {
				continue
			}
			if ia.BoundingBox().Intersects(ib.BoundingBox()) {
				warnings = append(warnings, ValidationError{
					InstanceID: ia.ID(),
					Message:    fmt.Sprintf("bounding box overlaps instance %d", ib.ID()),
					Severity:   SeverityWarning,
				})
			}
		}
	}
	return warnings
}
