//go:build manifold

// Package manifold is a kernel.Kernel backed by the Manifold C library
// (https://github.com/elalish/manifold) through cgo. Manifold booleans are
// exact on triangle meshes, so tessellation happens when primitives are
// built, not in ToMesh.
//
// Requires manifoldc. Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/glview/pkg/kernel"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// DefaultSegments is the circular resolution of cylinders and spheres.
const DefaultSegments = 48

type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	bbox := C.manifold_bounding_box(C.manifold_alloc_box(), s.ptr)
	defer C.manifold_delete_box(bbox)

	min = [3]float64{float64(C.manifold_box_min_x(bbox)), float64(C.manifold_box_min_y(bbox)), float64(C.manifold_box_min_z(bbox))}
	max = [3]float64{float64(C.manifold_box_max_x(bbox)), float64(C.manifold_box_max_y(bbox)), float64(C.manifold_box_max_z(bbox))}
	return min, max
}

// newSolid wraps ptr; the finalizer frees the C side.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

func unwrap(s kernel.Solid) *manifoldSolid {
	ms, ok := s.(*manifoldSolid)
	if !ok {
		panic(fmt.Sprintf("manifold: foreign solid %T", s))
	}
	return ms
}

// ManifoldKernel builds solids with Manifold.
type ManifoldKernel struct {
	// Segments is the circular resolution used by Cylinder and Sphere.
	Segments int
}

// New returns a kernel with DefaultSegments.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{Segments: DefaultSegments}, nil
}

func (k *ManifoldKernel) segments() C.int {
	if k.Segments < 3 {
		return C.int(DefaultSegments)
	}
	return C.int(k.Segments)
}

func (k *ManifoldKernel) Box(x, y, z float64) kernel.Solid {
	if x <= 0 || y <= 0 || z <= 0 {
		panic(fmt.Sprintf("manifold: box size must be positive, got %g %g %g", x, y, z))
	}
	return newSolid(C.manifold_cube(C.manifold_alloc_manifold(),
		C.double(x), C.double(y), C.double(z), C.int(1)))
}

// Cylinder builds a cylinder along Z.
func (k *ManifoldKernel) Cylinder(height, radius float64) kernel.Solid {
	if height <= 0 || radius <= 0 {
		panic(fmt.Sprintf("manifold: cylinder height and radius must be positive, got %g %g", height, radius))
	}
	return newSolid(C.manifold_cylinder(C.manifold_alloc_manifold(),
		C.double(height), C.double(radius), C.double(radius), k.segments(), C.int(1)))
}

func (k *ManifoldKernel) Sphere(radius float64) kernel.Solid {
	if radius <= 0 {
		panic(fmt.Sprintf("manifold: sphere radius must be positive, got %g", radius))
	}
	return newSolid(C.manifold_sphere(C.manifold_alloc_manifold(), C.double(radius), k.segments()))
}

func (k *ManifoldKernel) Union(a, b kernel.Solid) kernel.Solid {
	return newSolid(C.manifold_union(C.manifold_alloc_manifold(), unwrap(a).ptr, unwrap(b).ptr))
}

func (k *ManifoldKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return newSolid(C.manifold_difference(C.manifold_alloc_manifold(), unwrap(a).ptr, unwrap(b).ptr))
}

func (k *ManifoldKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return newSolid(C.manifold_intersection(C.manifold_alloc_manifold(), unwrap(a).ptr, unwrap(b).ptr))
}

func (k *ManifoldKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return newSolid(C.manifold_translate(C.manifold_alloc_manifold(), unwrap(s).ptr,
		C.double(x), C.double(y), C.double(z)))
}

// Rotate applies Euler angles in degrees about X, then Y, then Z.
func (k *ManifoldKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return newSolid(C.manifold_rotate(C.manifold_alloc_manifold(), unwrap(s).ptr,
		C.double(x), C.double(y), C.double(z)))
}

// ToMesh copies the solid's MeshGL into a kernel.Mesh. cells is ignored:
// the mesh resolution was fixed when the primitives were built.
func (k *ManifoldKernel) ToMesh(s kernel.Solid, cells int) (*kernel.Mesh, error) {
	ms, ok := s.(*manifoldSolid)
	if !ok {
		return nil, fmt.Errorf("manifold: foreign solid %T", s)
	}

	meshGL := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), ms.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}

	// Properties are interleaved per vertex: position first, then normal
	// when numProp >= 6.
	numProp := int(C.manifold_meshgl_num_prop(meshGL))
	props := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&props[0])), meshGL)

	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&indices[0])), meshGL)

	vertices := make([]float32, numVert*3)
	var normals []float32
	if numProp >= 6 {
		normals = make([]float32, numVert*3)
	}
	for i := 0; i < numVert; i++ {
		base := i * numProp
		copy(vertices[i*3:i*3+3], props[base:base+3])
		if normals != nil {
			copy(normals[i*3:i*3+3], props[base+3:base+6])
		}
	}
	if normals == nil {
		normals = vertexNormals(vertices, indices)
	}

	return &kernel.Mesh{Vertices: vertices, Normals: normals, Indices: indices}, nil
}

// vertexNormals averages the area-weighted face normals around each vertex.
func vertexNormals(vertices []float32, indices []uint32) []float32 {
	acc := make([]mgl64.Vec3, len(vertices)/3)
	at := func(i uint32) mgl64.Vec3 {
		return mgl64.Vec3{float64(vertices[i*3]), float64(vertices[i*3+1]), float64(vertices[i*3+2])}
	}
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		a := at(i0)
		n := at(i1).Sub(a).Cross(at(i2).Sub(a))
		acc[i0] = acc[i0].Add(n)
		acc[i1] = acc[i1].Add(n)
		acc[i2] = acc[i2].Add(n)
	}

	normals := make([]float32, len(vertices))
	for i, n := range acc {
		if l := n.Len(); l > 1e-12 {
			n = n.Mul(1 / l)
		}
		normals[i*3], normals[i*3+1], normals[i*3+2] = float32(n[0]), float32(n[1]), float32(n[2])
	}
	return normals
}
