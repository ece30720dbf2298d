// Package random provides the session-seeded pseudo-random source every
// humanized action draws from.
package random

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EntropySource supplies the live entropy mixed into the session seed.
type EntropySource interface {
	Entropy() uint64
}

// ClockEntropy mixes the wall clock, so two runs with the same seed diverge.
type ClockEntropy struct{}

// Entropy returns the current time in nanoseconds.
func (ClockEntropy) Entropy() uint64 {
	return uint64(time.Now().UnixNano())
}

// FixedEntropy makes a run fully reproducible from its seed.
type FixedEntropy uint64

// Entropy returns the fixed value.
func (f FixedEntropy) Entropy() uint64 {
	return uint64(f)
}

// Engine is a seeded PRNG. Sessions are single-threaded, but the engine is
// shared with the focus guard goroutine, so draws are serialized.
type Engine struct {
	mu      sync.Mutex
	rng     *rand.Rand
	seed    string
	entropy uint64
}

// New creates an engine from the session seed and an entropy source. A nil
// source defaults to ClockEntropy.
func New(seed string, entropy EntropySource) *Engine {
	if entropy == nil {
		entropy = ClockEntropy{}
	}
	e := entropy.Entropy()

	h := sha256.New()
	h.Write([]byte(seed))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], e)
	h.Write(buf[:])

	var key [32]byte
	copy(key[:], h.Sum(nil))

	return &Engine{
		rng:     rand.New(rand.NewChaCha8(key)),
		seed:    seed,
		entropy: e,
	}
}

// NewWithLogger is New plus a warning when bootstrapping from an empty seed.
func NewWithLogger(seed string, entropy EntropySource, logger *zap.Logger) *Engine {
	eng := New(seed, entropy)
	if seed == "" {
		logger.Warn("Random engine bootstrapped without a seed.")
	} else {
		logger.Debug("Random engine seeded.", zap.String("seed", seed), zap.Uint64("entropy", eng.entropy))
	}
	return eng
}

// Seed returns the session seed the engine was built from.
func (e *Engine) Seed() string {
	return e.seed
}

// NextInt returns an integer in [low, high). If high <= low it returns low.
func (e *Engine) NextInt(low, high int) int {
	if high <= low {
		return low
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return low + e.rng.IntN(high-low)
}

// NextInt64 is NextInt for int64 ranges.
func (e *Engine) NextInt64(low, high int64) int64 {
	if high <= low {
		return low
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return low + e.rng.Int64N(high-low)
}

// NextFloat returns a float in [0, 1).
func (e *Engine) NextFloat() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// NextFloatRange returns a float in [low, high). If high <= low it returns low.
func (e *Engine) NextFloatRange(low, high float64) float64 {
	if high <= low {
		return low
	}
	return low + e.NextFloat()*(high-low)
}

// NextBoolean returns true with probability pTrue. Values outside [0,1] saturate.
func (e *Engine) NextBoolean(pTrue float64) bool {
	return e.NextFloat() < pTrue
}

// Pick returns a uniformly chosen element index for a slice of length n, or -1 when n is 0.
func (e *Engine) Pick(n int) int {
	if n <= 0 {
		return -1
	}
	return e.NextInt(0, n)
}

// Int63 lets the engine seed other noise generators.
func (e *Engine) Int63() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Int64()
}
