package galaxy

import (
	"math/rand/v2"
)

// RandomSource yields uniform draws in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// MaxSeed bounds generated seeds so they survive a round trip through
// JSON numbers in browsers.
const MaxSeed = 1 << 53

const seedStream = 0x9e3779b97f4a7c15

// NewSeededSource returns a deterministic source: the same seed always
// yields the same sequence of draws.
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^seedStream))
}

// NewSource returns a fast, non-reproducible source for production use.
func NewSource() *rand.Rand {
	return NewSeededSource(NewSeed())
}

func NewSeed() uint64 {
	return rand.Uint64N(MaxSeed)
}
