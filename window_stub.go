//go:build !gl

package main

import "github.com/chazu/glview/pkg/gl/glbackend"

func runWindow(*App) error {
	return glbackend.ErrUnavailable
}
