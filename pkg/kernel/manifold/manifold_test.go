//go:build manifold

package manifold

import (
	"math"
	"testing"

	"github.com/chazu/glview/pkg/kernel"
)

func mustNew(t *testing.T) kernel.Kernel {
	t.Helper()
	k, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k
}

func checkBounds(t *testing.T, s kernel.Solid, wantMin, wantMax [3]float64, tol float64) {
	t.Helper()
	min, max := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > tol {
			t.Errorf("min[%d] = %f, want %f", i, min[i], wantMin[i])
		}
		if math.Abs(max[i]-wantMax[i]) > tol {
			t.Errorf("max[%d] = %f, want %f", i, max[i], wantMax[i])
		}
	}
}

func TestBoxIsCentred(t *testing.T) {
	k := mustNew(t)
	checkBounds(t, k.Box(10, 20, 30), [3]float64{-5, -10, -15}, [3]float64{5, 10, 15}, 1e-6)
}

func TestCylinderAlongZ(t *testing.T) {
	k := mustNew(t)
	s := k.Cylinder(20, 5)
	min, max := s.BoundingBox()
	if math.Abs(min[2]+10) > 0.01 || math.Abs(max[2]-10) > 0.01 {
		t.Errorf("Cylinder Z extent = [%f, %f], want [-10, 10]", min[2], max[2])
	}
	// Inscribed polygon: never wider than the radius.
	for i := 0; i < 2; i++ {
		if min[i] < -5.0001 || max[i] > 5.0001 || max[i] < 4.9 {
			t.Errorf("Cylinder axis %d extent = [%f, %f], want about [-5, 5]", i, min[i], max[i])
		}
	}
}

func TestSphere(t *testing.T) {
	k := mustNew(t)
	checkBounds(t, k.Sphere(4), [3]float64{-4, -4, -4}, [3]float64{4, 4, 4}, 0.1)
}

func TestPanicsOnBadDimensions(t *testing.T) {
	k := mustNew(t)
	for name, build := range map[string]func(){
		"box":      func() { k.Box(0, 1, 1) },
		"cylinder": func() { k.Cylinder(1, -1) },
		"sphere":   func() { k.Sphere(0) },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			build()
		})
	}
}

func TestDifferenceKeepsBoxBounds(t *testing.T) {
	k := mustNew(t)
	result := k.Difference(k.Box(10, 10, 10), k.Cylinder(20, 3))
	checkBounds(t, result, [3]float64{-5, -5, -5}, [3]float64{5, 5, 5}, 1e-6)
}

func TestIntersection(t *testing.T) {
	k := mustNew(t)
	a := k.Box(10, 10, 10)
	b := k.Translate(k.Box(10, 10, 10), 5, 0, 0)
	checkBounds(t, k.Intersection(a, b), [3]float64{0, -5, -5}, [3]float64{5, 5, 5}, 1e-6)
}

func TestTranslate(t *testing.T) {
	k := mustNew(t)
	moved := k.Translate(k.Box(10, 10, 10), 100, 200, 300)
	checkBounds(t, moved, [3]float64{95, 195, 295}, [3]float64{105, 205, 305}, 1e-6)
}

func TestRotateQuarterTurn(t *testing.T) {
	k := mustNew(t)
	rotated := k.Rotate(k.Box(2, 4, 6), 0, 0, 90)
	checkBounds(t, rotated, [3]float64{-2, -1, -3}, [3]float64{2, 1, 3}, 1e-6)
}

func TestToMesh(t *testing.T) {
	k := mustNew(t)
	mesh, err := k.ToMesh(k.Box(10, 10, 10), 32)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("ToMesh() returned empty mesh for a box")
	}
	if mesh.TriangleCount() < 12 {
		t.Errorf("triangle count = %d, want >= 12", mesh.TriangleCount())
	}
	if len(mesh.Normals) != len(mesh.Vertices) {
		t.Errorf("normals length = %d, vertices length = %d, want equal",
			len(mesh.Normals), len(mesh.Vertices))
	}
}

func TestToMeshIgnoresCells(t *testing.T) {
	k := mustNew(t)
	s := k.Sphere(5)
	coarse, err := k.ToMesh(s, 4)
	if err != nil {
		t.Fatal(err)
	}
	fine, err := k.ToMesh(s, 64)
	if err != nil {
		t.Fatal(err)
	}
	if coarse.TriangleCount() != fine.TriangleCount() {
		t.Errorf("triangle counts differ: %d vs %d", coarse.TriangleCount(), fine.TriangleCount())
	}
}

func TestVertexNormals(t *testing.T) {
	// One triangle in the XY plane, counter-clockwise.
	verts := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	normals := vertexNormals(verts, []uint32{0, 1, 2})
	for v := 0; v < 3; v++ {
		if normals[v*3] != 0 || normals[v*3+1] != 0 || normals[v*3+2] != 1 {
			t.Errorf("normal %d = %v, want +Z", v, normals[v*3:v*3+3])
		}
	}
}
