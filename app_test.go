package main

import (
	"os"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/glview/pkg/config"
	"github.com/chazu/glview/pkg/geometry"
	"github.com/chazu/glview/pkg/gl"
)

// newTestApp returns an App with a coarse two level pyramid so
// tessellation stays fast.
func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Tessellation.Cells = []int{32, 16}
	app, err := NewAppWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewAppWithConfig: %v", err)
	}
	return app
}

// TestE2ETableExample exercises the full pipeline: Lisp source → engine →
// scene → paint → pick, through the software GL context.
func TestE2ETableExample(t *testing.T) {
	app := newTestApp(t)

	source, err := os.ReadFile("examples/table.glv")
	if err != nil {
		t.Fatalf("failed to read table.glv: %v", err)
	}

	result := app.Evaluate(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}

	// top + four legs + vase
	if result.Instances != 6 {
		t.Fatalf("expected 6 instances, got %d", result.Instances)
	}
	insts := app.Scene().Instances()
	for _, leg := range insts[1:5] {
		if leg.RefCount() != 4 {
			t.Errorf("leg %d: refcount = %d, want 4", leg.ID(), leg.RefCount())
		}
	}

	w, h := app.Viewport().WindowSize()
	ctx := gl.NewRecorder(w, h)
	if err := app.Paint(ctx); err != nil {
		t.Fatalf("paint: %v", err)
	}
	st := app.Stats()
	if st.Instances != 6 {
		t.Errorf("drawn instances = %d, want 6", st.Instances)
	}
	if st.FrustumCulled != 0 {
		t.Errorf("frustum culled = %d after FitAll, want 0", st.FrustumCulled)
	}
	if st.Triangles == 0 {
		t.Error("expected triangles to be drawn")
	}

	vase := insts[5]
	x, y, ok := app.Viewport().Project(mgl64.Vec3{30, 0, 47})
	if !ok {
		t.Fatal("vase centre should be in front of the camera")
	}
	id, err := app.Pick(ctx, int(x), int(y))
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if id != vase.ID() {
		t.Errorf("picked %d, want the vase %d", id, vase.ID())
	}
	if !app.Scene().IsSelected(vase.ID()) {
		t.Error("picked instance should be selected")
	}
}

// TestE2ETableCoarsestLevelDraws checks that the default pyramid keeps
// something to draw for every shape at the coarsest detail.
func TestE2ETableCoarsestLevelDraws(t *testing.T) {
	app := NewApp()
	source, err := os.ReadFile("examples/table.glv")
	if err != nil {
		t.Fatalf("failed to read table.glv: %v", err)
	}
	if r := app.Evaluate(string(source)); len(r.Errors) > 0 {
		t.Fatalf("eval errors: %v", r.Errors)
	}
	for _, inst := range app.Scene().Instances() {
		for _, g := range inst.Geometries() {
			m := g.(*geometry.Mesh)
			if m.Level(100).IsEmpty() {
				t.Errorf("%s: coarsest level has no triangles", m.Name())
			}
		}
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if result.Instances != 0 {
		t.Errorf("expected 0 instances for empty source, got %d", result.Instances)
	}
	if result.Errors == nil || result.Warnings == nil {
		t.Error("Errors and Warnings should be non-nil empty slices")
	}
}

// TestE2ESyntaxErrorKeepsScene ensures eval errors are reported, not fatal
// errors, and that the last good scene stays loaded.
func TestE2ESyntaxErrorKeepsScene(t *testing.T) {
	app := newTestApp(t)
	if r := app.Evaluate(`(defshape "a" (box 2 2 2)) (instance "a")`); len(r.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
	kept := app.Scene().Instances()[0]

	result := app.Evaluate(`(defshape "test"`)
	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if result.Instances != 1 {
		t.Errorf("expected the previous scene to stay loaded, got %d instances", result.Instances)
	}
	if kept.RefCount() != 1 {
		t.Error("the previous scene should not be released on error")
	}
}

// TestE2EReplacingSceneReleasesOld checks a successful evaluation frees the
// previous scene's geometry.
func TestE2EReplacingSceneReleasesOld(t *testing.T) {
	app := newTestApp(t)
	app.Evaluate(`(defshape "a" (box 2 2 2)) (instance "a")`)
	old := app.Scene().Instances()[0]
	mesh := old.Geometries()[0].(*geometry.Mesh)

	app.Evaluate(`(defshape "b" (sphere :radius 1)) (instance "b")`)
	if old.RefCount() != 0 || len(mesh.Levels()) != 0 {
		t.Error("old scene should be released")
	}
}

// TestE2EPaletteColours ensures uncoloured shapes get palette colours, one
// per shape, wrapping around the palette.
func TestE2EPaletteColours(t *testing.T) {
	app := newTestApp(t)

	source := `
(defshape "p1" (box 1 1 1)) (instance "p1" :at (vec3 0 0 0))
(defshape "p2" (box 1 1 1)) (instance "p2" :at (vec3 2 0 0))
(defshape "p3" (box 1 1 1)) (instance "p3" :at (vec3 4 0 0))
(defshape "p4" (box 1 1 1)) (instance "p4" :at (vec3 6 0 0))
(defshape "p5" (box 1 1 1)) (instance "p5" :at (vec3 8 0 0))
(defshape "p6" (box 1 1 1)) (instance "p6" :at (vec3 10 0 0))
(defshape "p7" (box 1 1 1)) (instance "p7" :at (vec3 12 0 0))
(defshape "p8" (box 1 1 1)) (instance "p8" :at (vec3 14 0 0))
(defshape "p9" (box 1 1 1)) (instance "p9" :at (vec3 16 0 0))
(instance "p1" :at (vec3 0 4 0))
(defshape "red" (box 1 1 1) :color (rgb 255 0 0)) (instance "red" :at (vec3 0 8 0))
`
	result := app.Evaluate(source)
	if len(result.Errors) > 0 {
		t.Fatalf("eval errors: %v", result.Errors)
	}
	if result.Instances != 11 {
		t.Fatalf("expected 11 instances, got %d", result.Instances)
	}

	first, _ := parseHexColor(colorPalette[0])
	second, _ := parseHexColor(colorPalette[1])
	insts := app.Scene().Instances()
	colorOf := func(i int) geometry.ColorMaterial {
		t.Helper()
		m := insts[i].Geometries()[0].(*geometry.Mesh)
		cm, ok := m.Material().(geometry.ColorMaterial)
		if !ok {
			t.Fatalf("instance %d: material %T, want ColorMaterial", i, m.Material())
		}
		return cm
	}

	if colorOf(0).Color != first || colorOf(1).Color != second {
		t.Error("palette should be assigned in shape order")
	}
	if colorOf(8).Color != first {
		t.Error("palette should wrap around")
	}
	if colorOf(9).Color != first {
		t.Error("a second instance of p1 should share its colour")
	}
	if colorOf(10).Color.R != 255 || colorOf(10).Color.G != 0 {
		t.Error("explicit colours should be kept")
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#4A90D9")
	if err != nil {
		t.Fatal(err)
	}
	if c.R != 0x4A || c.G != 0x90 || c.B != 0xD9 || c.A != 255 {
		t.Errorf("got %v", c)
	}
	for _, bad := range []string{"", "4A90D9", "#4A90D", "#GG0000"} {
		if _, err := parseHexColor(bad); err == nil {
			t.Errorf("parseHexColor(%q) should fail", bad)
		}
	}
	for _, s := range colorPalette {
		if _, err := parseHexColor(s); err != nil {
			t.Errorf("palette entry %q: %v", s, err)
		}
	}
}
