package script

import (
	"image/color"
	"math"
	"testing"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/glview/pkg/geometry"
	"github.com/chazu/glview/pkg/gl"
	"github.com/chazu/glview/pkg/kernel/sdfx"
	"github.com/chazu/glview/pkg/scene"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"simple keyword", `(sphere :radius 5)`, `(sphere "__kw_radius" 5)`},
		{"multiple keywords", `(cylinder :height 4 :radius 2)`, `(cylinder "__kw_height" 4 "__kw_radius" 2)`},
		{"keyword in string preserved", `"thing with :keyword inside"`, `"thing with :keyword inside"`},
		{"keyword in backticks preserved", "`raw :keyword`", "`raw :keyword`"},
		{"escaped quote in string", `"a \" :b"`, `"a \" :b"`},
		{"assignment operator preserved", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case identifier", `(def half-size 5)`, `(def half_size 5)`},
		{"minus operator preserved", `(- 10 5)`, `(- 10 5)`},
		{"negative literal preserved", `(vec3 0 -5 0)`, `(vec3 0 -5 0)`},
		{"comment converted to // style", `;; comment with :keyword`, `// comment with :keyword`},
		{"single semicolon comment", `; simple comment`, `// simple comment`},
		{"hyphen in keyword preserved", `:cull-value`, `"__kw_cull-value"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Scene building
// ---------------------------------------------------------------------------

// mustEvaluate evaluates source and fails the test on any error.
func mustEvaluate(t *testing.T, source string) *scene.Scene {
	t.Helper()
	s, evalErrs, err := newTestEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if s == nil {
		t.Fatal("expected non-nil scene")
	}
	return s
}

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestShapeInstancesShareGeometry(t *testing.T) {
	s := mustEvaluate(t, `
; two placements of one tessellated block
(defshape "block" (box 10 10 10) :color (rgb 200 30 30))
(instance "block" :at (vec3 20 0 0))
(instance (shape "block") :rotate (vec3 0 0 90))
`)
	if s.Len() != 2 {
		t.Fatalf("expected 2 instances, got %d", s.Len())
	}
	insts := s.Instances()
	for i, inst := range insts {
		if inst.RefCount() != 2 {
			t.Errorf("instance %d: refcount = %d, want 2", i, inst.RefCount())
		}
	}
	if insts[0].Geometries()[0] != insts[1].Geometries()[0] {
		t.Error("instances of one shape should share the geometry")
	}

	mesh, ok := insts[0].Geometries()[0].(*geometry.Mesh)
	if !ok {
		t.Fatalf("expected *geometry.Mesh, got %T", insts[0].Geometries()[0])
	}
	if mesh.Name() != "block" {
		t.Errorf("name = %q, want block", mesh.Name())
	}
	want := color.RGBA{R: 200, G: 30, B: 30, A: 255}
	if m, ok := mesh.Material().(geometry.ColorMaterial); !ok || m.Color != want {
		t.Errorf("material = %v, want %v", mesh.Material(), want)
	}

	c := insts[0].BoundingBox().Center()
	if !approx(c[0], 20, 1.5) || !approx(c[1], 0, 1.5) || !approx(c[2], 0, 1.5) {
		t.Errorf("first block centre = %v, want near (20,0,0)", c)
	}
	tr := insts[0].Matrix().Col(3)
	if tr[0] != 20 || tr[1] != 0 || tr[2] != 0 {
		t.Errorf("translation = %v, want (20,0,0)", tr)
	}
}

func TestRemovingLastInstanceFreesShape(t *testing.T) {
	s := mustEvaluate(t, `
(defshape "ball" (sphere :radius 3))
(def a (instance "ball"))
(def b (instance "ball" :at (vec3 0 10 0)))
`)
	insts := s.Instances()
	mesh := insts[0].Geometries()[0].(*geometry.Mesh)

	if err := s.Remove(insts[0].ID()); err != nil {
		t.Fatal(err)
	}
	if len(mesh.Levels()) == 0 {
		t.Fatal("geometry freed while still instanced")
	}
	if err := s.Remove(insts[1].ID()); err != nil {
		t.Fatal(err)
	}
	if len(mesh.Levels()) != 0 {
		t.Error("geometry should be freed with its last instance")
	}
}

func TestUninstancedShapeIsReleased(t *testing.T) {
	b := newBuilder(sdfx.New(), []int{8})
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(`(defshape "unused" (box 2 2 2))`)); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Run(); err != nil {
		t.Fatal(err)
	}
	proto := b.shapes["unused"].proto
	mesh := proto.Geometries()[0].(*geometry.Mesh)

	s := b.finish()
	if s.Len() != 0 {
		t.Errorf("expected empty scene, got %d instances", s.Len())
	}
	if proto.RefCount() != 0 || len(mesh.Levels()) != 0 {
		t.Error("a shape with no instances should be freed")
	}
}

func TestInstantiateAndClone(t *testing.T) {
	s := mustEvaluate(t, `
(defshape "peg" (cylinder :height 10 :radius 2))
(def a (instance "peg"))
(def b (instantiate a :at (vec3 0 0 20)))
(def c (clone a :hidden true :wire true :lod 40))
`)
	if s.Len() != 3 {
		t.Fatalf("expected 3 instances, got %d", s.Len())
	}
	insts := s.Instances()
	a, b, c := insts[0], insts[1], insts[2]

	if a.RefCount() != 2 || b.RefCount() != 2 {
		t.Errorf("instantiated refcounts = %d, %d, want 2, 2", a.RefCount(), b.RefCount())
	}
	if c.RefCount() != 1 {
		t.Errorf("clone refcount = %d, want 1", c.RefCount())
	}
	if c.Geometries()[0] == a.Geometries()[0] {
		t.Error("clone should own a copy of the geometry")
	}
	if b.Matrix().Col(3)[2] != 20 {
		t.Errorf("instantiated copy z = %v, want 20", b.Matrix().Col(3)[2])
	}
	if c.IsVisible() {
		t.Error("clone should be hidden")
	}
	if c.PolygonMode() != gl.Line {
		t.Errorf("clone polygon mode = %s, want line", c.PolygonMode())
	}
	if c.DefaultLOD() != 40 {
		t.Errorf("clone default lod = %d, want 40", c.DefaultLOD())
	}
	if !a.IsVisible() || a.PolygonMode() != gl.Fill {
		t.Error("source instance flags should be untouched")
	}
}

func TestBooleansAndTransforms(t *testing.T) {
	s := mustEvaluate(t, `
(def plate-size 20)
(defshape "plate"
  (difference (box plate-size plate-size 4)
              (cylinder :height 10 :radius 3)
              (translate (cylinder :height 10 :radius 2) (vec3 6 6 0))))
(defshape "knob"
  (union (sphere :radius 3)
         (rotate (cylinder :height 8 :radius 1) (vec3 90 0 0))))
(defshape "lens"
  (intersection (sphere :radius 5)
                (translate (sphere :radius 5) (vec3 4 0 0)))
  :color (rgba 100 100 255 128))
(instance "plate")
(instance "knob" :at (vec3 0 0 10))
(instance "lens" :at (vec3 0 0 -10))
`)
	if s.Len() != 3 {
		t.Fatalf("expected 3 instances, got %d", s.Len())
	}
	for _, inst := range s.Instances() {
		if inst.NumberOfFaces() == 0 {
			t.Errorf("instance %d has no faces", inst.ID())
		}
	}

	lens := s.Instances()[2].Geometries()[0]
	if !lens.IsTransparent() {
		t.Error("a colour with alpha below 255 should be transparent")
	}
	// The spheres overlap over x in [-1,5], narrower than the lens is tall.
	size := lens.BoundingBox().Size()
	if size[0] >= size[1] {
		t.Errorf("lens size = %v, want narrower in x than in y", size)
	}
}

func TestCellsOverride(t *testing.T) {
	s := mustEvaluate(t, `
(defshape "ball" (sphere :radius 4) :cells (list 16 8))
(instance "ball")
`)
	mesh := s.Instances()[0].Geometries()[0].(*geometry.Mesh)
	levels := mesh.Levels()
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if levels[0].TriangleCount() <= levels[1].TriangleCount() {
		t.Error("levels should run finest first")
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unknown shape", `(instance "missing")`},
		{"unknown shape lookup", `(shape "missing")`},
		{"duplicate shape", `(defshape "a" (box 1 1 1)) (defshape "a" (box 2 2 2))`},
		{"box arity", `(box 1 2)`},
		{"box non-positive", `(box 1 0 1)`},
		{"sphere negative radius", `(sphere :radius -1)`},
		{"cylinder missing radius", `(cylinder :height 2)`},
		{"union needs two", `(union (box 1 1 1))`},
		{"union non-solid", `(union (box 1 1 1) 5)`},
		{"unknown keyword", `(defshape "a" (box 1 1 1)) (instance "a" :colour 1)`},
		{"bad vec3", `(vec3 1 2)`},
		{"channel out of range", `(rgb 300 0 0)`},
		{"hidden not bool", `(defshape "a" (box 1 1 1)) (instance "a" :hidden 1)`},
		{"clone non-instance", `(clone 5)`},
		{"bad cells", `(defshape "a" (box 1 1 1) :cells (list 0))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, evalErrs, err := newTestEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected eval error, got fatal: %v", err)
			}
			if s != nil {
				t.Error("expected nil scene")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
		})
	}
}

func TestFailedEvaluationReleasesGeometry(t *testing.T) {
	b := newBuilder(sdfx.New(), []int{8})
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, b)

	src := `
(defshape "cube" (box 2 2 2))
(instance "cube")
(instance "nope")
`
	if err := env.LoadString(preprocessSource(src)); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Run(); err == nil {
		t.Fatal("expected run error")
	}
	inst := b.scene.Instances()[0]
	b.discard()

	if inst.RefCount() != 0 || b.shapes["cube"].proto.RefCount() != 0 {
		t.Error("discard should release every share")
	}
	if b.scene.Len() != 0 {
		t.Error("discard should empty the scene")
	}
}

func TestParseArgs(t *testing.T) {
	args := []zygo.Sexp{
		&zygo.SexpStr{S: "pos"},
		&zygo.SexpStr{S: kwPrefix + "at"},
		&zygo.SexpInt{Val: 3},
		&zygo.SexpStr{S: kwPrefix + "wire"},
	}
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		t.Fatalf("positional = %d, want 1", len(pa.positional))
	}
	if v, ok := pa.kw["at"].(*zygo.SexpInt); !ok || v.Val != 3 {
		t.Errorf("at = %v, want 3", pa.kw["at"])
	}
	if v, ok := pa.kw["wire"].(*zygo.SexpBool); !ok || !v.Val {
		t.Errorf("trailing keyword should read as true, got %v", pa.kw["wire"])
	}
	if err := pa.unknownKeywords("test", "at", "wire"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := pa.unknownKeywords("test", "at"); err == nil {
		t.Error("expected unknown keyword error")
	}
}
