// Package telemetry advances the simulated watch sensors. Each advance
// reads the current health state, the time of day, and recent history,
// draws new values from time-bucketed range tables, and writes the
// result back into the state document. All randomness flows through an
// injectable [RandSource] so tests can pin exact outputs.
package telemetry

import (
	"log/slog"
	"math/rand/v2"
)

// RandSource abstracts randomness for deterministic testing.
type RandSource interface {
	// IntN returns a pseudo-random int in the half-open interval [0, n).
	IntN(n int) int
}

// defaultRand uses math/rand/v2's global source.
type defaultRand struct{}

func (defaultRand) IntN(n int) int { return rand.IntN(n) }

// Simulator generates telemetry values. Zero-value fields fall back to
// the global random source and slog.Default.
type Simulator struct {
	rng    RandSource
	logger *slog.Logger
}

// New creates a simulator. A nil rng uses math/rand/v2's global source.
func New(rng RandSource, logger *slog.Logger) *Simulator {
	if rng == nil {
		rng = defaultRand{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{rng: rng, logger: logger}
}

// between returns a random int in the inclusive range [lo, hi].
func (s *Simulator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.IntN(hi-lo+1)
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
