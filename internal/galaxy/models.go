package galaxy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r3"
)

// Parameters describes one galaxy. Size is display-only and never read by
// Generate.
type Parameters struct {
	Count           int     `json:"count"`
	Size            float64 `json:"size"`
	Radius          float64 `json:"radius"`
	Branches        int     `json:"branches"`
	Spin            float64 `json:"spin"`
	Randomness      float64 `json:"randomness"`
	RandomnessPower float64 `json:"randomnessPower"`
	InnerColor      Color   `json:"innerColor"`
	OuterColor      Color   `json:"outerColor"`
}

// DefaultParameters returns the stock galaxy shown on first load.
func DefaultParameters() Parameters {
	return Parameters{
		Count:           100000,
		Size:            0.01,
		Radius:          5,
		Branches:        5,
		Spin:            1,
		Randomness:      0.2,
		RandomnessPower: 3,
		InnerColor:      MustParseColor("#ff6030"),
		OuterColor:      MustParseColor("#1b3984"),
	}
}

// Color is an RGB triple with channels in [0,1].
type Color colorful.Color

func RGB(r, g, b float64) Color {
	return Color{R: r, G: g, B: b}
}

// ParseColor accepts "#rrggbb" or "#rgb", with or without the leading '#'.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(c), nil
}

func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Lerp interpolates component-wise from c towards other.
func (c Color) Lerp(other Color, t float64) Color {
	return Color(colorful.Color(c).BlendRgb(colorful.Color(other), t))
}

func (c Color) Hex() string {
	return colorful.Color(c).Clamped().Hex()
}

// RGB255 returns 8-bit channels, clamping out-of-gamut values.
func (c Color) RGB255() (r, g, b uint8) {
	return colorful.Color(c).Clamped().RGB255()
}

func (c Color) valid() bool {
	return colorful.Color(c).IsValid()
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON accepts a hex string or an object with r, g and b channels.
func (c *Color) UnmarshalJSON(data []byte) error {
	var hex string
	if err := json.Unmarshal(data, &hex); err == nil {
		parsed, err := ParseColor(hex)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	var channels struct {
		R float64 `json:"r"`
		G float64 `json:"g"`
		B float64 `json:"b"`
	}
	if err := json.Unmarshal(data, &channels); err != nil {
		return fmt.Errorf("color must be a hex string or an {r,g,b} object: %w", err)
	}
	*c = RGB(channels.R, channels.G, channels.B)
	return nil
}

// PointCloud is the generator output: parallel position and color sequences.
// It is never modified after Generate returns it.
type PointCloud struct {
	positions []r3.Vec
	colors    []Color
}

func (pc *PointCloud) Len() int {
	return len(pc.positions)
}

func (pc *PointCloud) Position(i int) r3.Vec {
	return pc.positions[i]
}

func (pc *PointCloud) Color(i int) Color {
	return pc.colors[i]
}

// PositionBuffer returns a flat x,y,z buffer ready for vertex upload.
func (pc *PointCloud) PositionBuffer() []float32 {
	buf := make([]float32, 0, len(pc.positions)*3)
	for _, p := range pc.positions {
		buf = append(buf, float32(p.X), float32(p.Y), float32(p.Z))
	}
	return buf
}

// ColorBuffer returns a flat r,g,b buffer ready for vertex upload.
func (pc *PointCloud) ColorBuffer() []float32 {
	buf := make([]float32, 0, len(pc.colors)*3)
	for _, c := range pc.colors {
		buf = append(buf, float32(c.R), float32(c.G), float32(c.B))
	}
	return buf
}

// Bounds returns the axis-aligned bounding box of all positions. An empty
// cloud has a zero box.
func (pc *PointCloud) Bounds() r3.Box {
	if len(pc.positions) == 0 {
		return r3.Box{}
	}
	box := r3.Box{Min: pc.positions[0], Max: pc.positions[0]}
	for _, p := range pc.positions[1:] {
		box.Min = r3.Vec{X: min(box.Min.X, p.X), Y: min(box.Min.Y, p.Y), Z: min(box.Min.Z, p.Z)}
		box.Max = r3.Vec{X: max(box.Max.X, p.X), Y: max(box.Max.Y, p.Y), Z: max(box.Max.Z, p.Z)}
	}
	return box
}
