//go:build gl

package main

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/chazu/glview/pkg/gl/glbackend"
	"github.com/chazu/glview/pkg/logging"
	"github.com/chazu/glview/pkg/mover"
)

// scrollZoomStep is the zoom factor applied per scroll notch.
const scrollZoomStep = 1.1

// runWindow opens a GLFW window with a legacy 2.1 context and runs the event
// loop until the window is closed.
//
// Mouse bindings: left drag orbits, middle drag pans, right drag zooms,
// shift+left drag turns the turntable and a left click without drag picks.
// Keys: F fits all, 1/2/3 front/top/iso views, Escape quits.
func runWindow(app *App) error {
	runtime.LockOSThread() // required by GLFW
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	w, h := app.Viewport().WindowSize()
	win, err := glfw.CreateWindow(w, h, "glview", nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer win.Destroy()
	win.MakeContextCurrent()

	ctx, err := glbackend.New()
	if err != nil {
		return err
	}

	var (
		dirty      = true
		pressX     float64
		pressY     float64
		dragged    bool
		pickQueued bool
	)

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if err := app.Resize(width, height); err == nil {
			dirty = true
		}
	})

	win.SetMouseButtonCallback(func(win *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		x, y := win.GetCursorPos()
		if action == glfw.Release {
			if app.Moving() {
				app.EndMove()
			}
			if button == glfw.MouseButtonLeft && !dragged {
				pickQueued = true
				dirty = true
			}
			return
		}
		if action != glfw.Press {
			return
		}

		kind := mover.KindTrackBall
		switch {
		case button == glfw.MouseButtonLeft && mods&glfw.ModShift != 0:
			kind = mover.KindTurnTable
		case button == glfw.MouseButtonMiddle:
			kind = mover.KindPan
		case button == glfw.MouseButtonRight:
			kind = mover.KindZoom
		}
		pressX, pressY, dragged = x, y, false
		if err := app.StartMove(kind, mover.At(x, y)); err != nil {
			logging.Logger().Warn("window: start move", "err", err)
		}
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if !app.Moving() {
			return
		}
		if x != pressX || y != pressY {
			dragged = true
		}
		if app.Move(mover.At(x, y)) {
			dirty = true
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, _, dy float64) {
		factor := scrollZoomStep
		if dy < 0 {
			factor = 1 / scrollZoomStep
		}
		if err := app.Viewport().CameraHandle().Zoom(factor); err == nil {
			dirty = true
		}
	})

	win.SetKeyCallback(func(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		cam := app.Viewport().CameraHandle()
		switch key {
		case glfw.KeyEscape:
			win.SetShouldClose(true)
		case glfw.KeyF:
			app.FitAll()
		case glfw.Key1:
			cam.FrontView()
		case glfw.Key2:
			cam.TopView()
		case glfw.Key3:
			cam.IsoView()
		default:
			return
		}
		dirty = true
	})

	for !win.ShouldClose() {
		if pickQueued {
			pickQueued = false
			x, y := win.GetCursorPos()
			if id, err := app.Pick(ctx, int(x), int(y)); err == nil {
				logging.Logger().Info("window: picked", "id", id)
			}
		}
		if dirty {
			dirty = false
			// Errors are logged by Paint; keep the loop alive.
			_ = app.Paint(ctx)
			win.SwapBuffers()
		}
		glfw.WaitEvents()
	}
	return nil
}
