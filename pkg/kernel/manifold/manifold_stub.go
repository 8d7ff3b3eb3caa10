//go:build !manifold

// Package manifold is a kernel.Kernel backed by the Manifold C library.
// Without the "manifold" build tag this stub is compiled and New returns
// ErrUnavailable.
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/glview/pkg/kernel"
)

// ErrUnavailable is returned by New in builds without the "manifold" tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

// New returns ErrUnavailable.
func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
