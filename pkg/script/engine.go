// Package script evaluates Lisp scene descriptions into a scene. It wraps
// zygomys in a sandboxed environment and registers builtins that model
// solids, tessellate them into shapes and place instances of those shapes.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/glview/pkg/kernel"
	"github.com/chazu/glview/pkg/kernel/sdfx"
	"github.com/chazu/glview/pkg/logging"
	"github.com/chazu/glview/pkg/scene"
)

// EvalError is a non-fatal error in user code, such as a parse error or a
// builtin rejecting its arguments.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates scene scripts. It is safe for concurrent use; each
// Evaluate runs in a fresh sandbox.
type Engine struct {
	kernel  kernel.Kernel
	cells   []int
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine returns an engine tessellating through k. A nil kernel selects
// the sdfx kernel.
func NewEngine(k kernel.Kernel) *Engine {
	if k == nil {
		k = sdfx.New()
	}
	return &Engine{kernel: k, timeout: EvalTimeout}
}

// SetCells sets the default tessellation pyramid used by defshape. With no
// arguments geometry.FromSolid picks its own.
func (e *Engine) SetCells(cells ...int) {
	e.cells = append([]int(nil), cells...)
}

// SetTimeout overrides EvalTimeout. Non-positive durations restore it.
func (e *Engine) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = EvalTimeout
	}
	e.timeout = d
}

// Evaluate runs source and returns the scene it builds.
//
// Return semantics:
//   - On success: scene + nil errors + nil error
//   - On parse/eval failure: nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): nil + nil + error
func (e *Engine) Evaluate(source string) (*scene.Scene, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		b := newBuilder(e.kernel, e.cells)
		defer func() {
			if r := recover(); r != nil {
				b.discard()
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		s, evalErrs, err := e.evaluate(b, source)
		ch <- evalResult{scene: s, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, e.timeout, &e.mu, &e.generation)
}

// evaluate runs source against b in a fresh sandbox.
func (e *Engine) evaluate(b *builder, source string) (*scene.Scene, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return b.finish(), nil, nil
	}

	// The sandbox keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		b.discard()
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		b.discard()
		return nil, parseZygomysError(err), nil
	}

	s := b.finish()
	logging.Logger().Info("script: scene loaded", "instances", s.Len(), "shapes", len(b.order))
	return s, nil, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches "line N: ...".
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, extracting
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
