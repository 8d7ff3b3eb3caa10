// Command glview loads a scene script and renders it, headless into the
// software GL context by default, or in an OpenGL window when built with
// -tags=gl.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/chazu/glview/pkg/config"
	"github.com/chazu/glview/pkg/gl"
	"github.com/chazu/glview/pkg/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "glview:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("glview", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "TOML configuration file")
	window := fs.Bool("window", false, "open an OpenGL window (requires -tags=gl)")
	pickX := fs.Int("pick-x", -1, "window x to pick after the headless frame")
	pickY := fs.Int("pick-y", -1, "window y to pick after the headless frame")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: glview [flags] scene.glv")
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	app, err := NewAppWithConfig(cfg)
	if err != nil {
		return err
	}
	source, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	result := app.Evaluate(string(source))
	for _, w := range result.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w.Message)
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Fprintf(os.Stderr, "%s:%d: %s\n", fs.Arg(0), e.Line, e.Message)
			} else {
				fmt.Fprintf(os.Stderr, "%s: %s\n", fs.Arg(0), e.Message)
			}
		}
		return fmt.Errorf("%d error(s) in %s", len(result.Errors), fs.Arg(0))
	}

	if *window {
		return runWindow(app)
	}
	return runHeadless(app, *pickX, *pickY)
}

// runHeadless paints one frame into the software context and reports the
// frame statistics.
func runHeadless(app *App, pickX, pickY int) error {
	w, h := app.Viewport().WindowSize()
	ctx := gl.NewRecorder(w, h)
	if err := app.Paint(ctx); err != nil {
		return err
	}
	st := app.Stats()
	fmt.Printf("instances=%d frustum_culled=%d lod_culled=%d triangles=%d\n",
		st.Instances, st.FrustumCulled, st.LODCulled, st.Triangles)

	if pickX >= 0 && pickY >= 0 {
		id, err := app.Pick(ctx, pickX, pickY)
		if err != nil {
			return err
		}
		fmt.Printf("pick(%d,%d)=%d\n", pickX, pickY, id)
	}
	return nil
}
