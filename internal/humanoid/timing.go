// internal/humanoid/timing.go
package humanoid

import (
	"math"
	"time"

	"github.com/das-group/HOSIT/internal/random"
)

// TimeRange is a {mean, deviation} pair in milliseconds. Samples fall in
// [Mean-Deviation, Mean+Deviation).
type TimeRange struct {
	Mean      float64 `json:"mean" mapstructure:"mean"`
	Deviation float64 `json:"deviation" mapstructure:"deviation"`
}

// Scale returns the range with both components multiplied by f.
func (r TimeRange) Scale(f float64) TimeRange {
	return TimeRange{Mean: r.Mean * f, Deviation: r.Deviation * f}
}

// TimingModel turns TimeRanges into concrete delays using the session's random engine.
type TimingModel struct {
	rng *random.Engine
}

// NewTimingModel creates a timing model drawing from rng.
func NewTimingModel(rng *random.Engine) *TimingModel {
	return &TimingModel{rng: rng}
}

// RandomDelay returns a duration in [mean-deviation, mean+deviation) milliseconds.
// A non-positive deviation returns the mean. Negative results clamp to zero.
func (t *TimingModel) RandomDelay(meanMs, deviationMs float64) time.Duration {
	const nsPerMs = float64(time.Millisecond)
	if deviationMs <= 0 {
		return clampDuration(meanMs * nsPerMs)
	}
	// Sample in integer nanoseconds so the upper bound stays exclusive after conversion.
	low := int64(math.Ceil((meanMs - deviationMs) * nsPerMs))
	high := int64(math.Ceil((meanMs + deviationMs) * nsPerMs))
	v := t.rng.NextInt64(low, high)
	if v < 0 {
		return 0
	}
	return time.Duration(v)
}

// Sample is RandomDelay over a TimeRange.
func (t *TimingModel) Sample(r TimeRange) time.Duration {
	return t.RandomDelay(r.Mean, r.Deviation)
}

func clampDuration(ns float64) time.Duration {
	if ns <= 0 {
		return 0
	}
	return time.Duration(ns)
}
