package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/glview/pkg/kernel"
)

// testCells keeps marching cubes fast in tests.
const testCells = 32

func checkMesh(t *testing.T, mesh *kernel.Mesh) {
	t.Helper()
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if mesh.TriangleCount() == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}
}

func checkBounds(t *testing.T, s kernel.Solid, wantMin, wantMax [3]float64, tol float64) {
	t.Helper()
	min, max := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], wantMin[i])
		}
		if math.Abs(max[i]-wantMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], wantMax[i])
		}
	}
}

func TestBox(t *testing.T) {
	k := New()
	mesh, err := k.ToMesh(k.Box(100, 50, 25), testCells)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	checkMesh(t, mesh)
	t.Logf("box triangle count: %d", mesh.TriangleCount())
}

func TestBoxIsCentred(t *testing.T) {
	k := New()
	checkBounds(t, k.Box(100, 50, 25), [3]float64{-50, -25, -12.5}, [3]float64{50, 25, 12.5}, 0.01)
}

func TestCylinder(t *testing.T) {
	k := New()
	cyl := k.Cylinder(50, 10)
	checkBounds(t, cyl, [3]float64{-10, -10, -25}, [3]float64{10, 10, 25}, 0.01)
	mesh, err := k.ToMesh(cyl, testCells)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	checkMesh(t, mesh)
}

func TestSphere(t *testing.T) {
	k := New()
	s := k.Sphere(5)
	checkBounds(t, s, [3]float64{-5, -5, -5}, [3]float64{5, 5, 5}, 0.01)
	mesh, err := k.ToMesh(s, testCells)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	checkMesh(t, mesh)

	// Tessellated vertices sit on the surface, within a cell of the radius.
	cell := 10.0 / testCells
	for i := 0; i+2 < len(mesh.Vertices); i += 3 {
		x, y, z := float64(mesh.Vertices[i]), float64(mesh.Vertices[i+1]), float64(mesh.Vertices[i+2])
		if r := math.Sqrt(x*x + y*y + z*z); math.Abs(r-5) > cell {
			t.Fatalf("vertex %d at radius %f", i/3, r)
		}
	}
}

func TestResolutionControlsTriangleCount(t *testing.T) {
	k := New()
	s := k.Sphere(5)
	coarse, err := k.ToMesh(s, 8)
	if err != nil {
		t.Fatalf("ToMesh(8) failed: %v", err)
	}
	fine, err := k.ToMesh(s, 32)
	if err != nil {
		t.Fatalf("ToMesh(32) failed: %v", err)
	}
	if fine.TriangleCount() <= coarse.TriangleCount() {
		t.Fatalf("fine mesh (%d) should have more triangles than coarse (%d)",
			fine.TriangleCount(), coarse.TriangleCount())
	}
}

func TestDifference(t *testing.T) {
	k := New()

	box := k.Box(100, 100, 100)
	boxMesh, err := k.ToMesh(box, testCells)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}

	diff := k.Difference(box, k.Cylinder(120, 20))
	diffMesh, err := k.ToMesh(diff, testCells)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	checkMesh(t, diffMesh)
	// A box with a hole should have more triangles than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
}

func TestUnion(t *testing.T) {
	k := New()
	u := k.Union(k.Box(50, 50, 50), k.Translate(k.Box(50, 50, 50), 30, 0, 0))
	checkBounds(t, u, [3]float64{-25, -25, -25}, [3]float64{55, 25, 25}, 0.01)
	mesh, err := k.ToMesh(u, testCells)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	checkMesh(t, mesh)
}

func TestTranslate(t *testing.T) {
	k := New()
	translated := k.Translate(k.Box(10, 10, 10), 100, 200, 300)
	checkBounds(t, translated, [3]float64{95, 195, 295}, [3]float64{105, 205, 305}, 0.5)
}

func TestIntersection(t *testing.T) {
	k := New()
	inter := k.Intersection(k.Box(100, 100, 100), k.Translate(k.Box(100, 100, 100), 50, 0, 0))
	mesh, err := k.ToMesh(inter, testCells)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	checkMesh(t, mesh)
}

func TestRotate(t *testing.T) {
	k := New()
	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	min, max := k.Rotate(k.Box(100, 10, 10), 0, 0, 90).BoundingBox()

	const tol = 1.0
	if xExtent := max[0] - min[0]; math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if yExtent := max[1] - min[1]; math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
}

func TestInvalidPrimitivePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for negative radius")
		}
	}()
	New().Sphere(-1)
}

type foreignSolid struct{}

func (foreignSolid) BoundingBox() (min, max [3]float64) { return }

func TestToMeshRejectsForeignSolid(t *testing.T) {
	if _, err := New().ToMesh(foreignSolid{}, testCells); err == nil {
		t.Fatal("expected error for a solid from another kernel")
	}
}
