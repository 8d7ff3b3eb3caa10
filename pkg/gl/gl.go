// Package gl defines the narrow immediate-mode OpenGL surface the viewer
// draws through, the error type GL failures are reported with, and a
// software Recorder that stands in for a real context.
//
// A real go-gl backed context lives in the glbackend sub-package and is only
// compiled with the "gl" build tag.
package gl

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrorCode mirrors the values returned by glGetError.
type ErrorCode uint32

const (
	NoError          ErrorCode = 0
	InvalidEnum      ErrorCode = 0x0500
	InvalidValue     ErrorCode = 0x0501
	InvalidOperation ErrorCode = 0x0502
	StackOverflow    ErrorCode = 0x0503
	StackUnderflow   ErrorCode = 0x0504
	OutOfMemory      ErrorCode = 0x0505
)

func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "no error"
	case InvalidEnum:
		return "invalid enum"
	case InvalidValue:
		return "invalid value"
	case InvalidOperation:
		return "invalid operation"
	case StackOverflow:
		return "stack overflow"
	case StackUnderflow:
		return "stack underflow"
	case OutOfMemory:
		return "out of memory"
	default:
		return fmt.Sprintf("unknown error 0x%04x", uint32(c))
	}
}

// Error is a GL failure detected after an operation.
type Error struct {
	Op   string
	Code ErrorCode
}

func (e *Error) Error() string {
	return fmt.Sprintf("gl: %s: %s", e.Op, e.Code)
}

// Check drains the context error flag and wraps a pending error as *Error.
func Check(ctx Context, op string) error {
	if code := ctx.Error(); code != NoError {
		return &Error{Op: op, Code: code}
	}
	return nil
}

// MatrixMode selects the matrix stack targeted by matrix operations.
type MatrixMode int

const (
	ModelView MatrixMode = iota
	Projection
)

// PolygonMode selects how polygons are rasterised.
type PolygonMode int

const (
	Fill PolygonMode = iota
	Line
	Point
)

func (m PolygonMode) String() string {
	switch m {
	case Fill:
		return "fill"
	case Line:
		return "line"
	case Point:
		return "point"
	default:
		return "unknown"
	}
}

// Capability is a server-side feature toggled with Enable/Disable.
type Capability int

const (
	DepthTest Capability = iota
	Lighting
	Blend
	Dither
)

// Context is the immediate-mode GL surface used by the renderer.
type Context interface {
	Viewport(x, y, width, height int)
	ClearColor(c color.RGBA)
	Clear()

	MatrixMode(mode MatrixMode)
	LoadMatrix(m mgl64.Mat4)
	MultMatrix(m mgl64.Mat4)
	PushMatrix()
	PopMatrix()

	Enable(c Capability)
	Disable(c Capability)
	DepthMask(write bool)
	PolygonMode(mode PolygonMode)
	Color(c color.RGBA)

	// Triangles draws an indexed triangle list. vertices and normals hold
	// three floats per vertex.
	Triangles(vertices, normals []float32, indices []uint32)

	// ReadPixel returns the colour buffer value at window coordinates,
	// origin bottom-left.
	ReadPixel(x, y int) color.RGBA

	// Error returns and clears the pending error flag.
	Error() ErrorCode
}
