package viewer

import (
	"errors"
	"sync"

	"galaxy-server/internal/galaxy"
	"galaxy-server/internal/session"

	"gonum.org/v1/gonum/spatial/r3"
)

var errBufferReleased = errors.New("vertex buffer already released")

// TerminalGraphics keeps the vertex buffer the frame loop draws from.
// Upload binds a new buffer; releasing the bound buffer unbinds it.
type TerminalGraphics struct {
	mu    sync.Mutex
	bound *VertexBuffer
	live  int
}

func NewTerminalGraphics() *TerminalGraphics {
	return &TerminalGraphics{}
}

func (g *TerminalGraphics) Upload(cloud *galaxy.PointCloud, params galaxy.Parameters) (session.Resource, error) {
	buf := &VertexBuffer{
		graphics:  g,
		positions: cloud.PositionBuffer(),
		colors:    cloud.ColorBuffer(),
		count:     cloud.Len(),
		size:      params.Size,
		radius:    params.Radius,
	}

	g.mu.Lock()
	g.bound = buf
	g.live++
	g.mu.Unlock()

	return buf, nil
}

// Bound returns the buffer currently drawn, or nil between a release and
// the next upload.
func (g *TerminalGraphics) Bound() *VertexBuffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bound
}

// Live reports how many buffers are uploaded and not released.
func (g *TerminalGraphics) Live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live
}

// VertexBuffer holds interleaved-free position and color attributes, three
// float32 components per point.
type VertexBuffer struct {
	graphics  *TerminalGraphics
	positions []float32
	colors    []float32
	count     int
	size      float64
	radius    float64
	released  bool
}

func (b *VertexBuffer) Len() int {
	return b.count
}

func (b *VertexBuffer) Position(i int) r3.Vec {
	p := b.positions[i*3 : i*3+3]
	return r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}

func (b *VertexBuffer) Color(i int) galaxy.Color {
	c := b.colors[i*3 : i*3+3]
	return galaxy.RGB(float64(c[0]), float64(c[1]), float64(c[2]))
}

// Size is the point size, in scene units, the buffer was built with.
func (b *VertexBuffer) Size() float64 {
	return b.size
}

// Radius is the generation radius the buffer was built with.
func (b *VertexBuffer) Radius() float64 {
	return b.radius
}

func (b *VertexBuffer) Release() error {
	g := b.graphics
	g.mu.Lock()
	defer g.mu.Unlock()

	if b.released {
		return errBufferReleased
	}
	b.released = true
	g.live--
	if g.bound == b {
		g.bound = nil
	}
	return nil
}
