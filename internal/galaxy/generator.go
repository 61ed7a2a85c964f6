package galaxy

import (
	"math"

	"galaxy-server/internal/shared/errors"

	"gonum.org/v1/gonum/spatial/r3"
)

// Generate places params.Count points along params.Branches spiral arms.
//
// For point i the radius is a uniform draw scaled by params.Radius, the arm
// is i mod Branches, and the arm angle is twisted by radius*Spin. Each axis
// then gets a signed jitter of u^RandomnessPower * Randomness * radius, so
// the core stays tight and the rim diffuse. Color runs linearly from
// InnerColor at the center to OuterColor at params.Radius.
//
// Draws are consumed per point in a fixed order (radius, then magnitude and
// sign for x, y and z), so a seeded source reproduces the cloud exactly.
func Generate(params Parameters, rng RandomSource) (*PointCloud, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.WrapValidation("invalid galaxy parameters", parameterError("rng", "random source is required"))
	}

	n := params.Count
	cloud := &PointCloud{
		positions: make([]r3.Vec, n),
		colors:    make([]Color, n),
	}

	branches := float64(params.Branches)
	for i := 0; i < n; i++ {
		radius := rng.Float64() * params.Radius

		branchAngle := float64(i%params.Branches) / branches * 2 * math.Pi
		spinAngle := radius * params.Spin
		angle := branchAngle + spinAngle

		jitterX := jitter(rng, params, radius)
		jitterY := jitter(rng, params, radius)
		jitterZ := jitter(rng, params, radius)

		cloud.positions[i] = r3.Vec{
			X: math.Cos(angle)*radius + jitterX,
			Y: jitterY,
			Z: math.Sin(angle)*radius + jitterZ,
		}
		cloud.colors[i] = params.InnerColor.Lerp(params.OuterColor, radialFactor(radius, params.Radius))
	}

	return cloud, nil
}

func jitter(rng RandomSource, params Parameters, radius float64) float64 {
	magnitude := math.Pow(rng.Float64(), params.RandomnessPower) * params.Randomness * radius
	if rng.Float64() < 0.5 {
		return magnitude
	}
	return -magnitude
}

// radialFactor is radius/maxRadius clamped to [0,1]; zero when maxRadius is.
func radialFactor(radius, maxRadius float64) float64 {
	if maxRadius <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, radius/maxRadius))
}
