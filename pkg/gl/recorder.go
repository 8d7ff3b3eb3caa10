package gl

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Stack depths guaranteed by the GL 2.1 specification.
const (
	maxModelViewDepth  = 32
	maxProjectionDepth = 2
)

// Compile-time interface check.
var _ Context = (*Recorder)(nil)

// matrixStack accumulates transforms the way the fixed-function pipeline
// does: the top entry is the current matrix.
type matrixStack struct {
	entries []mgl64.Mat4
	limit   int
}

func newMatrixStack(limit int) *matrixStack {
	return &matrixStack{entries: []mgl64.Mat4{mgl64.Ident4()}, limit: limit}
}

func (s *matrixStack) top() mgl64.Mat4 {
	return s.entries[len(s.entries)-1]
}

func (s *matrixStack) setTop(m mgl64.Mat4) {
	s.entries[len(s.entries)-1] = m
}

func (s *matrixStack) push() bool {
	if len(s.entries) >= s.limit {
		return false
	}
	s.entries = append(s.entries, s.top())
	return true
}

func (s *matrixStack) pop() bool {
	if len(s.entries) <= 1 {
		return false
	}
	s.entries = s.entries[:len(s.entries)-1]
	return true
}

// fragment is one rasterised triangle in window space.
type fragment struct {
	win   [3]mgl64.Vec3 // x, y in pixels, z in NDC depth
	color color.RGBA
}

// Recorder is a software Context. It tracks matrix stacks, state and the
// GL error flag, counts calls, and keeps the triangles of the current frame
// so that ReadPixel can answer picking queries with a depth-tested
// single-pixel rasteriser.
type Recorder struct {
	x, y, width, height int

	clearColor color.RGBA
	mode       MatrixMode
	stacks     [2]*matrixStack
	enabled    map[Capability]bool
	depthWrite bool
	polygon    PolygonMode
	color      color.RGBA
	err        ErrorCode

	frags     []fragment
	triangles int
	calls     map[string]int
}

// NewRecorder returns a Recorder with a width x height viewport.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{
		width:      width,
		height:     height,
		stacks:     [2]*matrixStack{newMatrixStack(maxModelViewDepth), newMatrixStack(maxProjectionDepth)},
		enabled:    make(map[Capability]bool),
		depthWrite: true,
		color:      color.RGBA{R: 255, G: 255, B: 255, A: 255},
		calls:      make(map[string]int),
	}
}

func (r *Recorder) setError(code ErrorCode) {
	// Like GL, the first error sticks until it is read.
	if r.err == NoError {
		r.err = code
	}
}

func (r *Recorder) stack() *matrixStack {
	return r.stacks[r.mode]
}

func (r *Recorder) Viewport(x, y, width, height int) {
	r.calls["Viewport"]++
	if width < 0 || height < 0 {
		r.setError(InvalidValue)
		return
	}
	r.x, r.y, r.width, r.height = x, y, width, height
}

func (r *Recorder) ClearColor(c color.RGBA) {
	r.calls["ClearColor"]++
	r.clearColor = c
}

// Clear discards the triangles of the previous frame.
func (r *Recorder) Clear() {
	r.calls["Clear"]++
	r.frags = r.frags[:0]
}

func (r *Recorder) MatrixMode(mode MatrixMode) {
	r.calls["MatrixMode"]++
	if mode != ModelView && mode != Projection {
		r.setError(InvalidEnum)
		return
	}
	r.mode = mode
}

func (r *Recorder) LoadMatrix(m mgl64.Mat4) {
	r.calls["LoadMatrix"]++
	r.stack().setTop(m)
}

func (r *Recorder) MultMatrix(m mgl64.Mat4) {
	r.calls["MultMatrix"]++
	r.stack().setTop(r.stack().top().Mul4(m))
}

func (r *Recorder) PushMatrix() {
	r.calls["PushMatrix"]++
	if !r.stack().push() {
		r.setError(StackOverflow)
	}
}

func (r *Recorder) PopMatrix() {
	r.calls["PopMatrix"]++
	if !r.stack().pop() {
		r.setError(StackUnderflow)
	}
}

func (r *Recorder) Enable(c Capability) {
	r.calls["Enable"]++
	r.enabled[c] = true
}

func (r *Recorder) Disable(c Capability) {
	r.calls["Disable"]++
	r.enabled[c] = false
}

func (r *Recorder) DepthMask(write bool) {
	r.calls["DepthMask"]++
	r.depthWrite = write
}

func (r *Recorder) PolygonMode(mode PolygonMode) {
	r.calls["PolygonMode"]++
	if mode < Fill || mode > Point {
		r.setError(InvalidEnum)
		return
	}
	r.polygon = mode
}

func (r *Recorder) Color(c color.RGBA) {
	r.calls["Color"]++
	r.color = c
}

func (r *Recorder) Triangles(vertices, normals []float32, indices []uint32) {
	r.calls["Triangles"]++
	if len(indices)%3 != 0 || len(vertices)%3 != 0 {
		r.setError(InvalidValue)
		return
	}
	nv := uint32(len(vertices) / 3)
	for _, idx := range indices {
		if idx >= nv {
			r.setError(InvalidValue)
			return
		}
	}

	mvp := r.stacks[Projection].top().Mul4(r.stacks[ModelView].top())
	for i := 0; i < len(indices); i += 3 {
		r.triangles++
		var f fragment
		visible := true
		for j := 0; j < 3; j++ {
			k := indices[i+j] * 3
			p := mgl64.Vec4{float64(vertices[k]), float64(vertices[k+1]), float64(vertices[k+2]), 1}
			clip := mvp.Mul4x1(p)
			if clip[3] <= 0 {
				visible = false
				break
			}
			ndc := clip.Vec3().Mul(1 / clip[3])
			f.win[j] = mgl64.Vec3{
				float64(r.x) + (ndc[0]+1)/2*float64(r.width),
				float64(r.y) + (ndc[1]+1)/2*float64(r.height),
				ndc[2],
			}
		}
		if visible {
			f.color = r.color
			r.frags = append(r.frags, f)
		}
	}
}

// ReadPixel rasterises the frame's triangles at the pixel centre and
// returns the colour that wins the depth test, or the clear colour.
func (r *Recorder) ReadPixel(x, y int) color.RGBA {
	r.calls["ReadPixel"]++
	if x < r.x || y < r.y || x >= r.x+r.width || y >= r.y+r.height {
		r.setError(InvalidValue)
		return color.RGBA{}
	}
	px, py := float64(x)+0.5, float64(y)+0.5
	out := r.clearColor
	best := math.Inf(1)
	for _, f := range r.frags {
		z, ok := coverage(f.win, px, py)
		if !ok {
			continue
		}
		if r.enabled[DepthTest] {
			if z >= best {
				continue
			}
			best = z
		}
		out = f.color
	}
	return out
}

// coverage reports whether (px, py) lies inside the window-space triangle
// and returns the interpolated depth there.
func coverage(t [3]mgl64.Vec3, px, py float64) (float64, bool) {
	edge := func(a, b mgl64.Vec3, x, y float64) float64 {
		return (b[0]-a[0])*(y-a[1]) - (b[1]-a[1])*(x-a[0])
	}
	area := edge(t[0], t[1], t[2][0], t[2][1])
	if area == 0 {
		return 0, false
	}
	w0 := edge(t[1], t[2], px, py) / area
	w1 := edge(t[2], t[0], px, py) / area
	w2 := edge(t[0], t[1], px, py) / area
	if w0 < 0 || w1 < 0 || w2 < 0 {
		return 0, false
	}
	return w0*t[0][2] + w1*t[1][2] + w2*t[2][2], true
}

func (r *Recorder) Error() ErrorCode {
	code := r.err
	r.err = NoError
	return code
}

// Calls returns how many times the named Context method was invoked.
func (r *Recorder) Calls(method string) int {
	return r.calls[method]
}

// TriangleCount returns the number of triangles submitted since creation.
func (r *Recorder) TriangleCount() int {
	return r.triangles
}

// Matrix returns the current top of the given stack.
func (r *Recorder) Matrix(mode MatrixMode) mgl64.Mat4 {
	return r.stacks[mode].top()
}

// StackDepth returns the number of entries on the given stack.
func (r *Recorder) StackDepth(mode MatrixMode) int {
	return len(r.stacks[mode].entries)
}

// Enabled reports whether capability c is on.
func (r *Recorder) Enabled(c Capability) bool {
	return r.enabled[c]
}

// CurrentPolygonMode returns the active polygon mode.
func (r *Recorder) CurrentPolygonMode() PolygonMode {
	return r.polygon
}

// CurrentColor returns the last colour set.
func (r *Recorder) CurrentColor() color.RGBA {
	return r.color
}

// DepthWrite reports the depth mask state.
func (r *Recorder) DepthWrite() bool {
	return r.depthWrite
}
