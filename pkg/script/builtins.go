package script

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/glview/pkg/geometry"
	"github.com/chazu/glview/pkg/gl"
	"github.com/chazu/glview/pkg/instance"
	"github.com/chazu/glview/pkg/kernel"
	"github.com/chazu/glview/pkg/scene"
)

// ---------------------------------------------------------------------------
// Sexp wrappers for Go values passed between builtins
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpColor struct {
	c color.RGBA
}

func (c *sexpColor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(rgba %d %d %d %d)", c.c.R, c.c.G, c.c.B, c.c.A)
}
func (c *sexpColor) Type() *zygo.RegisteredType { return nil }

// sexpSolid is an untessellated kernel solid.
type sexpSolid struct {
	solid kernel.Solid
	what  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(solid %s)", s.what)
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpShape is a tessellated, named geometry. proto holds the geometry
// share every (instance shape) is instantiated from.
type sexpShape struct {
	name  string
	proto *instance.Instance
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(shape %q)", s.name)
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

type sexpInstance struct {
	inst *instance.Instance
}

func (i *sexpInstance) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(instance %d)", i.inst.ID())
}
func (i *sexpInstance) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args into keyword and positional arguments. A trailing
// keyword with no value is recorded as true.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = &zygo.SexpBool{Val: true}
		}
	}
	return result
}

// unknownKeywords returns an error naming the first keyword not in allowed.
func (a kwArgs) unknownKeywords(fn string, allowed ...string) error {
	for k := range a.kw {
		found := false
		for _, name := range allowed {
			if k == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: unknown keyword :%s", fn, k)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toPositive extracts a number that must be strictly positive and finite.
func toPositive(s zygo.Sexp) (float64, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if !(f > 0) || math.IsInf(f, 1) {
		return 0, fmt.Errorf("expected positive number, got %g", f)
	}
	return f, nil
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toColor(s zygo.Sexp) (color.RGBA, error) {
	if c, ok := s.(*sexpColor); ok {
		return c.c, nil
	}
	return color.RGBA{}, fmt.Errorf("expected colour, got %T (%s)", s, s.SexpString(nil))
}

func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

func toInstance(s zygo.Sexp) (*instance.Instance, error) {
	if v, ok := s.(*sexpInstance); ok {
		return v.inst, nil
	}
	return nil, fmt.Errorf("expected instance, got %T (%s)", s, s.SexpString(nil))
}

// toChannel extracts a colour channel in [0,255].
func toChannel(s zygo.Sexp) (uint8, error) {
	n, err := toInt(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("channel %d out of range [0,255]", n)
	}
	return uint8(n), nil
}

func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

// builder collects the results of one evaluation.
type builder struct {
	kernel kernel.Kernel
	cells  []int
	scene  *scene.Scene
	shapes map[string]*sexpShape
	order  []string
}

func newBuilder(k kernel.Kernel, cells []int) *builder {
	return &builder{
		kernel: k,
		cells:  cells,
		scene:  scene.New(),
		shapes: make(map[string]*sexpShape),
	}
}

// finish drops the shape prototypes so only scene instances hold geometry.
func (b *builder) finish() *scene.Scene {
	for _, name := range b.order {
		b.shapes[name].proto.Release()
	}
	return b.scene
}

// discard releases everything built so far.
func (b *builder) discard() {
	b.finish().Clear()
}

// place applies the placement and flag keywords shared by instance,
// instantiate and clone. Rotation is applied before translation, both on
// top of the current placement.
func place(fn string, inst *instance.Instance, pa kwArgs) error {
	if err := pa.unknownKeywords(fn, "at", "rotate", "lod", "hidden", "wire"); err != nil {
		return err
	}
	if v, ok := pa.kw["rotate"]; ok {
		r, err := toVec3(v)
		if err != nil {
			return fmt.Errorf("%s: rotate: %w", fn, err)
		}
		inst.MultMatrix(mgl64.HomogRotate3DX(mgl64.DegToRad(r[0])))
		inst.MultMatrix(mgl64.HomogRotate3DY(mgl64.DegToRad(r[1])))
		inst.MultMatrix(mgl64.HomogRotate3DZ(mgl64.DegToRad(r[2])))
	}
	if v, ok := pa.kw["at"]; ok {
		at, err := toVec3(v)
		if err != nil {
			return fmt.Errorf("%s: at: %w", fn, err)
		}
		inst.Translate(at[0], at[1], at[2])
	}
	if v, ok := pa.kw["lod"]; ok {
		lod, err := toInt(v)
		if err != nil {
			return fmt.Errorf("%s: lod: %w", fn, err)
		}
		inst.SetDefaultLOD(lod)
	}
	if v, ok := pa.kw["hidden"]; ok {
		hidden, err := toBool(v)
		if err != nil {
			return fmt.Errorf("%s: hidden: %w", fn, err)
		}
		inst.SetVisible(!hidden)
	}
	if v, ok := pa.kw["wire"]; ok {
		wire, err := toBool(v)
		if err != nil {
			return fmt.Errorf("%s: wire: %w", fn, err)
		}
		if wire {
			inst.SetPolygonMode(gl.Line)
		} else {
			inst.SetPolygonMode(gl.Fill)
		}
	}
	return nil
}

// solidArgs extracts at least two solids for a boolean operation.
func solidArgs(fn string, args []zygo.Sexp) ([]kernel.Solid, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%s requires at least 2 solids, got %d", fn, len(args))
	}
	solids := make([]kernel.Solid, len(args))
	for i, a := range args {
		s, err := toSolid(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
		}
		solids[i] = s
	}
	return solids, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene builtins into env. Source must be run
// through preprocessSource first so keywords reach the builtins as
// recognisable strings.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v mgl64.Vec3
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// (rgb 200 30 30) and (rgba 200 30 30 128)
	colorFn := func(want int) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != want {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly %d arguments, got %d", name, want, len(args))
			}
			ch := [4]uint8{3: 255}
			for i, a := range args {
				v, err := toChannel(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %c: %w", name, "rgba"[i], err)
				}
				ch[i] = v
			}
			return &sexpColor{c: color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}}, nil
		}
	}
	env.AddFunction("rgb", colorFn(3))
	env.AddFunction("rgba", colorFn(4))

	// -----------------------------------------------------------------------
	// Primitives
	// -----------------------------------------------------------------------

	// (box 10 20 30)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("box requires exactly 3 sizes, got %d", len(args))
		}
		var size [3]float64
		for i, a := range args {
			f, err := toPositive(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %c: %w", "xyz"[i], err)
			}
			size[i] = f
		}
		return &sexpSolid{solid: b.kernel.Box(size[0], size[1], size[2]), what: "box"}, nil
	})

	// (cylinder :height 20 :radius 5)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknownKeywords("cylinder", "height", "radius"); err != nil {
			return zygo.SexpNull, err
		}
		hv, hok := pa.kw["height"]
		rv, rok := pa.kw["radius"]
		if !hok || !rok {
			return zygo.SexpNull, fmt.Errorf("cylinder requires :height and :radius")
		}
		h, err := toPositive(hv)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		r, err := toPositive(rv)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}
		return &sexpSolid{solid: b.kernel.Cylinder(h, r), what: "cylinder"}, nil
	})

	// (sphere :radius 5)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknownKeywords("sphere", "radius"); err != nil {
			return zygo.SexpNull, err
		}
		rv, ok := pa.kw["radius"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("sphere requires :radius")
		}
		r, err := toPositive(rv)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}
		return &sexpSolid{solid: b.kernel.Sphere(r), what: "sphere"}, nil
	})

	// -----------------------------------------------------------------------
	// Booleans: (union a b c...) folds left.
	// -----------------------------------------------------------------------

	boolean := func(op func(a, b kernel.Solid) kernel.Solid) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			solids, err := solidArgs(name, args)
			if err != nil {
				return zygo.SexpNull, err
			}
			acc := solids[0]
			for _, s := range solids[1:] {
				acc = op(acc, s)
			}
			return &sexpSolid{solid: acc, what: name}, nil
		}
	}
	env.AddFunction("union", boolean(b.kernel.Union))
	env.AddFunction("difference", boolean(b.kernel.Difference))
	env.AddFunction("intersection", boolean(b.kernel.Intersection))

	// -----------------------------------------------------------------------
	// Solid transforms: (translate s (vec3 ...)), (rotate s (vec3 deg...))
	// -----------------------------------------------------------------------

	transform := func(op func(s kernel.Solid, x, y, z float64) kernel.Solid) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid and a vec3", name)
			}
			s, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			v, err := toVec3(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return &sexpSolid{solid: op(s, v[0], v[1], v[2]), what: name}, nil
		}
	}
	env.AddFunction("translate", transform(b.kernel.Translate))
	env.AddFunction("rotate", transform(b.kernel.Rotate))

	// -----------------------------------------------------------------------
	// (defshape "name" solid :color (rgb ...) :cells (list 64 32 16))
	// -----------------------------------------------------------------------
	env.AddFunction("defshape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknownKeywords("defshape", "color", "cells"); err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("defshape requires a name and a solid")
		}
		shapeName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defshape: name: %w", err)
		}
		if _, exists := b.shapes[shapeName]; exists {
			return zygo.SexpNull, fmt.Errorf("defshape: shape %q already defined", shapeName)
		}
		solid, err := toSolid(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defshape: %w", err)
		}

		cells := b.cells
		if v, ok := pa.kw["cells"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defshape: cells: %w", err)
			}
			cells = make([]int, len(items))
			for i, it := range items {
				c, err := toInt(it)
				if err != nil || c <= 0 {
					return zygo.SexpNull, fmt.Errorf("defshape: cells: entry %d must be a positive integer", i+1)
				}
				cells[i] = c
			}
		}

		mesh, err := geometry.FromSolid(b.kernel, solid, cells...)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defshape %q: %w", shapeName, err)
		}
		mesh.SetName(shapeName)
		if v, ok := pa.kw["color"]; ok {
			c, err := toColor(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defshape: color: %w", err)
			}
			mesh.SetMaterial(geometry.ColorMaterial{Color: c})
		}

		shape := &sexpShape{name: shapeName, proto: instance.New(mesh)}
		b.shapes[shapeName] = shape
		b.order = append(b.order, shapeName)
		return shape, nil
	})

	// (shape "name")
	env.AddFunction("shape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("shape requires a name argument")
		}
		shapeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("shape: name: %w", err)
		}
		s, ok := b.shapes[shapeName]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("shape: no shape named %q", shapeName)
		}
		return s, nil
	})

	// -----------------------------------------------------------------------
	// (instance shape :at (vec3 ...) :rotate (vec3 ...) :lod 50 :hidden true :wire true)
	//
	// Every instance of a shape shares its geometry.
	// -----------------------------------------------------------------------
	env.AddFunction("instance", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("instance requires a shape")
		}
		var shape *sexpShape
		switch v := pa.positional[0].(type) {
		case *sexpShape:
			shape = v
		case *zygo.SexpStr:
			s, ok := b.shapes[v.S]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("instance: no shape named %q", v.S)
			}
			shape = s
		default:
			return zygo.SexpNull, fmt.Errorf("instance: expected shape, got %T (%s)", v, v.SexpString(nil))
		}

		inst := shape.proto.Instantiate()
		if err := place("instance", inst, pa); err != nil {
			inst.Release()
			return zygo.SexpNull, err
		}
		if err := b.scene.Add(inst); err != nil {
			inst.Release()
			return zygo.SexpNull, fmt.Errorf("instance: %w", err)
		}
		return &sexpInstance{inst: inst}, nil
	})

	// (instantiate inst :at ...) shares geometry; (clone inst :at ...) copies it.
	copyFn := func(dup func(*instance.Instance) *instance.Instance) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires an instance", name)
			}
			src, err := toInstance(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			inst := dup(src)
			if err := place(name, inst, pa); err != nil {
				inst.Release()
				return zygo.SexpNull, err
			}
			if err := b.scene.Add(inst); err != nil {
				inst.Release()
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return &sexpInstance{inst: inst}, nil
		}
	}
	env.AddFunction("instantiate", copyFn((*instance.Instance).Instantiate))
	env.AddFunction("clone", copyFn((*instance.Instance).Clone))
}
