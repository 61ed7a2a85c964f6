package render

import (
	"galaxy-server/internal/galaxy"
)

// Accumulator sums colors per cell, the equivalent of additive blending
// with depth writes disabled: draw order never matters.
type Accumulator struct {
	width, height int
	rgb           []float64
}

func NewAccumulator(width, height int) *Accumulator {
	return &Accumulator{
		width:  width,
		height: height,
		rgb:    make([]float64, width*height*3),
	}
}

func (a *Accumulator) Width() int  { return a.width }
func (a *Accumulator) Height() int { return a.height }

// Add blends c scaled by intensity into cell (x, y). Out-of-bounds cells are
// ignored.
func (a *Accumulator) Add(x, y int, c galaxy.Color, intensity float64) {
	if x < 0 || y < 0 || x >= a.width || y >= a.height {
		return
	}
	i := (y*a.width + x) * 3
	a.rgb[i] += c.R * intensity
	a.rgb[i+1] += c.G * intensity
	a.rgb[i+2] += c.B * intensity
}

// At returns the accumulated color, saturated at 1 per channel.
func (a *Accumulator) At(x, y int) galaxy.Color {
	i := (y*a.width + x) * 3
	return galaxy.RGB(min(a.rgb[i], 1), min(a.rgb[i+1], 1), min(a.rgb[i+2], 1))
}

// Lit reports whether any light reached cell (x, y).
func (a *Accumulator) Lit(x, y int) bool {
	return a.Intensity(x, y) > 0
}

// Intensity is the unsaturated sum of all channels at (x, y).
func (a *Accumulator) Intensity(x, y int) float64 {
	i := (y*a.width + x) * 3
	return a.rgb[i] + a.rgb[i+1] + a.rgb[i+2]
}

func (a *Accumulator) Reset() {
	clear(a.rgb)
}

// Resize reallocates only when the dimensions change.
func (a *Accumulator) Resize(width, height int) {
	if width == a.width && height == a.height {
		a.Reset()
		return
	}
	a.width, a.height = width, height
	a.rgb = make([]float64, width*height*3)
}
