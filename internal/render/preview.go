package render

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"galaxy-server/internal/galaxy"
	"galaxy-server/internal/session"

	"github.com/gogpu/gg"
	"gonum.org/v1/gonum/spatial/r3"
)

var ErrReleased = errors.New("preview already released")

// Background is the clear color of every preview.
var Background = gg.RGB(0, 0, 0)

// pointIntensity is the share of a point's color added to each pixel it
// covers.
const pointIntensity = 0.6

// PreviewRenderer rasterizes clouds into PNG previews. It is the server side
// stand-in for a GPU upload: every Upload owns a drawing context until the
// returned Preview is released.
type PreviewRenderer struct {
	width, height int
	live          atomic.Int64
	logger        *slog.Logger
}

func NewPreviewRenderer(width, height int, logger *slog.Logger) (*PreviewRenderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid preview size %dx%d", width, height)
	}
	return &PreviewRenderer{width: width, height: height, logger: logger}, nil
}

// Live reports how many previews have been uploaded and not yet released.
func (r *PreviewRenderer) Live() int {
	return int(r.live.Load())
}

func (r *PreviewRenderer) Upload(cloud *galaxy.PointCloud, params galaxy.Parameters) (session.Resource, error) {
	start := time.Now()
	if cloud == nil {
		return nil, errors.New("nil point cloud")
	}

	camera := FitCamera(r.width, r.height, params.Radius)
	acc := NewAccumulator(r.width, r.height)
	Splat(acc, cloud, camera.Projector(), PointPixels(params.Size, camera.Scale))

	dc := gg.NewContext(r.width, r.height)
	dc.ClearWithColor(Background)
	for y := range r.height {
		for x := range r.width {
			if !acc.Lit(x, y) {
				continue
			}
			c := acc.At(x, y)
			dc.SetPixel(x, y, gg.RGB(c.R, c.G, c.B))
		}
	}

	r.live.Add(1)
	r.logger.Debug("Preview rendered",
		"component", "preview_renderer",
		"operation", "upload",
		"points", cloud.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Preview{renderer: r, dc: dc, points: cloud.Len()}, nil
}

// Points is anything holding positioned, colored points: a generated cloud
// or a buffer uploaded from one.
type Points interface {
	Len() int
	Position(i int) r3.Vec
	Color(i int) galaxy.Color
}

// Splat projects every point and adds its color to the cells it covers.
// size is the edge of the square each point covers, in cells.
func Splat(acc *Accumulator, cloud Points, proj Projector, size int) {
	size = max(size, 1)
	half := size / 2
	for i := range cloud.Len() {
		x, y, _ := proj.Project(cloud.Position(i))
		px := int(math.Floor(x)) - half
		py := int(math.Floor(y)) - half
		c := cloud.Color(i)
		for dy := range size {
			for dx := range size {
				acc.Add(px+dx, py+dy, c, pointIntensity)
			}
		}
	}
}

// PointPixels converts a point size in scene units to the edge of the
// square it covers at the given scale, between 1 and 8 pixels.
func PointPixels(size, scale float64) int {
	px := int(math.Round(size * scale))
	return min(max(px, 1), 8)
}

// Preview is one rendered cloud. Release frees its drawing context; the
// preview cannot be encoded afterwards.
type Preview struct {
	renderer *PreviewRenderer
	mu       sync.Mutex
	dc       *gg.Context
	points   int
}

func (p *Preview) Points() int {
	return p.points
}

func (p *Preview) EncodePNG(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dc == nil {
		return ErrReleased
	}
	return p.dc.EncodePNG(w)
}

func (p *Preview) Image() (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dc == nil {
		return nil, ErrReleased
	}
	return p.dc.Image(), nil
}

func (p *Preview) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dc == nil {
		return ErrReleased
	}
	err := p.dc.Close()
	p.dc = nil
	p.renderer.live.Add(-1)
	return err
}
