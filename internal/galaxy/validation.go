package galaxy

import (
	stderrors "errors"
	"fmt"
	"math"

	"galaxy-server/internal/shared/errors"
)

// ErrInvalidParameter matches every parameter validation failure via errors.Is.
var ErrInvalidParameter = stderrors.New("invalid parameter")

type ParameterError struct {
	Field  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

func (e *ParameterError) FieldName() string {
	return e.Field
}

func (e *ParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

func parameterError(field, format string, args ...interface{}) error {
	return &ParameterError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the constraints Generate depends on. It is deliberately
// looser than Ranges.Check: a zero count or zero radius are valid inputs.
func (p Parameters) Validate() error {
	var errs []error

	if p.Count < 0 {
		errs = append(errs, parameterError("count", "must not be negative, got %d", p.Count))
	}
	if p.Branches < 1 {
		errs = append(errs, parameterError("branches", "must be at least 1, got %d", p.Branches))
	}

	floats := []struct {
		field string
		value float64
	}{
		{"radius", p.Radius},
		{"spin", p.Spin},
		{"randomness", p.Randomness},
		{"randomnessPower", p.RandomnessPower},
	}
	for _, f := range floats {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			errs = append(errs, parameterError(f.field, "must be finite"))
		}
	}

	if p.Radius < 0 {
		errs = append(errs, parameterError("radius", "must not be negative, got %g", p.Radius))
	}
	if p.Randomness < 0 {
		errs = append(errs, parameterError("randomness", "must not be negative, got %g", p.Randomness))
	}
	if p.RandomnessPower <= 0 {
		errs = append(errs, parameterError("randomnessPower", "must be positive, got %g", p.RandomnessPower))
	}
	if !p.InnerColor.valid() {
		errs = append(errs, parameterError("innerColor", "channels must be within [0,1]"))
	}
	if !p.OuterColor.valid() {
		errs = append(errs, parameterError("outerColor", "channels must be within [0,1]"))
	}

	if len(errs) > 0 {
		return errors.WrapValidation("invalid galaxy parameters", stderrors.Join(errs...))
	}
	return nil
}

// Range is the recognized interval and step of one editable value.
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Advance moves v by n steps and snaps the result to the step grid.
func (r Range) Advance(v float64, n int) float64 {
	v = r.Clamp(v + float64(n)*r.Step)
	if r.Step <= 0 {
		return v
	}
	steps := math.Round((v - r.Min) / r.Step)
	return r.Clamp(r.Min + steps*r.Step)
}

// Ranges are the editing-surface limits for each parameter. Generate never
// consults them.
type Ranges struct {
	Count           Range `json:"count"`
	Size            Range `json:"size"`
	Radius          Range `json:"radius"`
	Branches        Range `json:"branches"`
	Spin            Range `json:"spin"`
	Randomness      Range `json:"randomness"`
	RandomnessPower Range `json:"randomnessPower"`
	Rotation        Range `json:"rotation"`
}

func DefaultRanges() Ranges {
	return Ranges{
		Count:           Range{Min: 100, Max: 1_000_000, Step: 100},
		Size:            Range{Min: 0.001, Max: 0.1, Step: 0.001},
		Radius:          Range{Min: 0.01, Max: 20, Step: 0.01},
		Branches:        Range{Min: 2, Max: 20, Step: 1},
		Spin:            Range{Min: -5, Max: 5, Step: 0.001},
		Randomness:      Range{Min: 0, Max: 2, Step: 0.001},
		RandomnessPower: Range{Min: 1, Max: 10, Step: 0.001},
		Rotation:        Range{Min: -0.05, Max: 0.05, Step: 0.001},
	}
}

// Check reports every parameter outside its editing range, after Validate.
func (rs Ranges) Check(p Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}

	checks := []struct {
		field string
		value float64
		r     Range
	}{
		{"count", float64(p.Count), rs.Count},
		{"size", p.Size, rs.Size},
		{"radius", p.Radius, rs.Radius},
		{"branches", float64(p.Branches), rs.Branches},
		{"spin", p.Spin, rs.Spin},
		{"randomness", p.Randomness, rs.Randomness},
		{"randomnessPower", p.RandomnessPower, rs.RandomnessPower},
	}

	var errs []error
	for _, c := range checks {
		if !c.r.Contains(c.value) {
			errs = append(errs, parameterError(c.field, "must be within [%g, %g], got %g", c.r.Min, c.r.Max, c.value))
		}
	}

	if len(errs) > 0 {
		return errors.WrapValidation("galaxy parameters out of range", stderrors.Join(errs...))
	}
	return nil
}
