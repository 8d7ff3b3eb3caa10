//go:build !gl

// Package glbackend provides an OpenGL 2.1 gl.Context. When the "gl" build
// tag is not set, this stub is compiled instead and New returns an error.
//
// Build with: go build -tags=gl
package glbackend

import (
	"errors"

	"github.com/chazu/glview/pkg/gl"
)

// ErrUnavailable is returned by New in builds without the "gl" tag.
var ErrUnavailable = errors.New("opengl backend not available: build with -tags=gl")

// New returns ErrUnavailable.
func New() (gl.Context, error) {
	return nil, ErrUnavailable
}
