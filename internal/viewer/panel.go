package viewer

import (
	"fmt"
	"math"
	"strconv"

	"galaxy-server/internal/galaxy"
)

// Settings is everything the panel edits: the generation parameters and
// the spin applied by the frame loop, in radians per second.
type Settings struct {
	Parameters galaxy.Parameters
	RotationX  float64
	RotationY  float64
	RotationZ  float64
}

// DefaultRotationY turns the galaxy slowly about its vertical axis.
const DefaultRotationY = 0.05

type field struct {
	label string
	rng   galaxy.Range
	// regenerates is false for fields only the frame loop reads.
	regenerates bool
	get         func(*Settings) float64
	set         func(*Settings, float64)
	format      func(float64) string
}

func fixed(decimals int) func(float64) string {
	return func(v float64) string {
		return strconv.FormatFloat(v, 'f', decimals, 64)
	}
}

func integer(v float64) string {
	return strconv.Itoa(int(v))
}

func fields(r galaxy.Ranges) []field {
	return []field{
		{"count", r.Count, true,
			func(s *Settings) float64 { return float64(s.Parameters.Count) },
			func(s *Settings, v float64) { s.Parameters.Count = int(math.Round(v)) }, integer},
		{"size", r.Size, true,
			func(s *Settings) float64 { return s.Parameters.Size },
			func(s *Settings, v float64) { s.Parameters.Size = v }, fixed(3)},
		{"radius", r.Radius, true,
			func(s *Settings) float64 { return s.Parameters.Radius },
			func(s *Settings, v float64) { s.Parameters.Radius = v }, fixed(2)},
		{"branches", r.Branches, true,
			func(s *Settings) float64 { return float64(s.Parameters.Branches) },
			func(s *Settings, v float64) { s.Parameters.Branches = int(math.Round(v)) }, integer},
		{"spin", r.Spin, true,
			func(s *Settings) float64 { return s.Parameters.Spin },
			func(s *Settings, v float64) { s.Parameters.Spin = v }, fixed(3)},
		{"randomness", r.Randomness, true,
			func(s *Settings) float64 { return s.Parameters.Randomness },
			func(s *Settings, v float64) { s.Parameters.Randomness = v }, fixed(3)},
		{"randomnessPower", r.RandomnessPower, true,
			func(s *Settings) float64 { return s.Parameters.RandomnessPower },
			func(s *Settings, v float64) { s.Parameters.RandomnessPower = v }, fixed(3)},
		{"rotationX", r.Rotation, false,
			func(s *Settings) float64 { return s.RotationX },
			func(s *Settings, v float64) { s.RotationX = v }, fixed(3)},
		{"rotationY", r.Rotation, false,
			func(s *Settings) float64 { return s.RotationY },
			func(s *Settings, v float64) { s.RotationY = v }, fixed(3)},
		{"rotationZ", r.Rotation, false,
			func(s *Settings) float64 { return s.RotationZ },
			func(s *Settings, v float64) { s.RotationZ = v }, fixed(3)},
	}
}

// Panel is the parameter editor: one selected row, stepped within its range.
type Panel struct {
	fields   []field
	selected int
}

func NewPanel(ranges galaxy.Ranges) *Panel {
	return &Panel{fields: fields(ranges)}
}

func (p *Panel) Selected() string {
	return p.fields[p.selected].label
}

// Move changes the selected row, wrapping at both ends.
func (p *Panel) Move(delta int) {
	n := len(p.fields)
	p.selected = ((p.selected+delta)%n + n) % n
}

// Adjust steps the selected value n steps and reports whether the edit
// needs a new cloud. Values outside the range are pulled inside first.
func (p *Panel) Adjust(s *Settings, n int) (changed, regenerate bool) {
	f := p.fields[p.selected]
	before := f.get(s)
	after := f.rng.Advance(f.rng.Clamp(before), n)
	if after == before {
		return false, false
	}
	f.set(s, after)
	return true, f.regenerates
}

// Lines renders the panel rows, marking the selected one.
func (p *Panel) Lines(s *Settings) []string {
	lines := make([]string, 0, len(p.fields)+2)
	for i, f := range p.fields {
		marker := " "
		if i == p.selected {
			marker = ">"
		}
		lines = append(lines, fmt.Sprintf("%s %-15s %s", marker, f.label, f.format(f.get(s))))
	}
	lines = append(lines,
		fmt.Sprintf("  %-15s %s", "innerColor", s.Parameters.InnerColor.Hex()),
		fmt.Sprintf("  %-15s %s", "outerColor", s.Parameters.OuterColor.Hex()),
	)
	return lines
}
