//go:build gl

// Package glbackend implements gl.Context on top of the OpenGL 2.1
// fixed-function pipeline through github.com/go-gl/gl. A current GL context
// must exist on the calling thread before New is called.
//
// Build with: go build -tags=gl
package glbackend

import (
	"fmt"
	"image/color"

	gogl "github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/glview/pkg/gl"
)

// Compile-time interface check.
var _ gl.Context = (*Context)(nil)

// Context forwards every call to the current OpenGL context.
type Context struct{}

// New loads the GL function pointers and returns a Context.
func New() (gl.Context, error) {
	if err := gogl.Init(); err != nil {
		return nil, fmt.Errorf("glbackend: init: %w", err)
	}
	return &Context{}, nil
}

func (c *Context) Viewport(x, y, width, height int) {
	gogl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (c *Context) ClearColor(col color.RGBA) {
	gogl.ClearColor(float32(col.R)/255, float32(col.G)/255, float32(col.B)/255, float32(col.A)/255)
}

func (c *Context) Clear() {
	gogl.Clear(gogl.COLOR_BUFFER_BIT | gogl.DEPTH_BUFFER_BIT)
}

func (c *Context) MatrixMode(mode gl.MatrixMode) {
	switch mode {
	case gl.Projection:
		gogl.MatrixMode(gogl.PROJECTION)
	default:
		gogl.MatrixMode(gogl.MODELVIEW)
	}
}

// mgl64 matrices are column-major, which is what glLoadMatrixd expects.
func (c *Context) LoadMatrix(m mgl64.Mat4) {
	gogl.LoadMatrixd(&m[0])
}

func (c *Context) MultMatrix(m mgl64.Mat4) {
	gogl.MultMatrixd(&m[0])
}

func (c *Context) PushMatrix() { gogl.PushMatrix() }
func (c *Context) PopMatrix()  { gogl.PopMatrix() }

func capability(cp gl.Capability) uint32 {
	switch cp {
	case gl.DepthTest:
		return gogl.DEPTH_TEST
	case gl.Lighting:
		return gogl.LIGHTING
	case gl.Blend:
		return gogl.BLEND
	case gl.Dither:
		return gogl.DITHER
	}
	return 0
}

func (c *Context) Enable(cp gl.Capability) {
	gogl.Enable(capability(cp))
	if cp == gl.Blend {
		gogl.BlendFunc(gogl.SRC_ALPHA, gogl.ONE_MINUS_SRC_ALPHA)
	}
}

func (c *Context) Disable(cp gl.Capability) {
	gogl.Disable(capability(cp))
}

func (c *Context) DepthMask(write bool) {
	gogl.DepthMask(write)
}

func (c *Context) PolygonMode(mode gl.PolygonMode) {
	switch mode {
	case gl.Line:
		gogl.PolygonMode(gogl.FRONT_AND_BACK, gogl.LINE)
	case gl.Point:
		gogl.PolygonMode(gogl.FRONT_AND_BACK, gogl.POINT)
	default:
		gogl.PolygonMode(gogl.FRONT_AND_BACK, gogl.FILL)
	}
}

func (c *Context) Color(col color.RGBA) {
	if col.A == 255 {
		gogl.Color3ub(col.R, col.G, col.B)
		return
	}
	gogl.Color4f(float32(col.R)/255, float32(col.G)/255, float32(col.B)/255, float32(col.A)/255)
}

func (c *Context) Triangles(vertices, normals []float32, indices []uint32) {
	gogl.Begin(gogl.TRIANGLES)
	for _, idx := range indices {
		k := int(idx) * 3
		if k+2 < len(normals) {
			gogl.Normal3f(normals[k], normals[k+1], normals[k+2])
		}
		gogl.Vertex3f(vertices[k], vertices[k+1], vertices[k+2])
	}
	gogl.End()
}

func (c *Context) ReadPixel(x, y int) color.RGBA {
	var px [4]uint8
	gogl.ReadPixels(int32(x), int32(y), 1, 1, gogl.RGBA, gogl.UNSIGNED_BYTE, gogl.Ptr(&px[0]))
	return color.RGBA{R: px[0], G: px[1], B: px[2], A: px[3]}
}

func (c *Context) Error() gl.ErrorCode {
	return gl.ErrorCode(gogl.GetError())
}
