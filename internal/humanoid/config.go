// internal/humanoid/config.go
package humanoid

import "time"

// Config holds the parameters defining the timing and geometry of humanized actions.
// All durations are expressed as millisecond TimeRanges.
type Config struct {
	// Clicking Behavior
	ClickHold        TimeRange
	MinClickableSize float64

	// Keyboard Behavior
	KeyPress   TimeRange // Enter/Tab/Esc hold
	ArrowPress TimeRange // arrow key hold while scrolling

	// Scrolling Behavior
	ScrollKeyGap       TimeRange
	ScrollSettle       TimeRange
	ScrollMinBurst     int
	ScrollMaxBurst     int
	ScrollIterationCap int

	// Waiting Behavior
	RandomWait     TimeRange
	VisibilityWait time.Duration

	// Mouse approach path. ApproachSteps == 0 disables movement before clicks.
	ApproachSteps   int
	ApproachStepGap TimeRange
	PerlinAmplitude float64

	// AuditActions logs every action with an element screenshot.
	AuditActions bool
}

// DefaultConfig returns the timing profile of an average user.
func DefaultConfig() Config {
	return Config{
		ClickHold:        TimeRange{Mean: 160, Deviation: 20},
		MinClickableSize: 16,

		KeyPress:   TimeRange{Mean: 10, Deviation: 5},
		ArrowPress: TimeRange{Mean: 15, Deviation: 5},

		ScrollKeyGap:       TimeRange{Mean: 150, Deviation: 50},
		ScrollSettle:       TimeRange{Mean: 12000, Deviation: 2000},
		ScrollMinBurst:     11,
		ScrollMaxBurst:     15,
		ScrollIterationCap: 100,

		RandomWait:     TimeRange{Mean: 2000, Deviation: 1000},
		VisibilityWait: 500 * time.Millisecond,

		ApproachSteps:   12,
		ApproachStepGap: TimeRange{Mean: 12, Deviation: 4},
		PerlinAmplitude: 6.0,
	}
}

// normalize repairs values that would break the loops.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.MinClickableSize <= 0 {
		c.MinClickableSize = d.MinClickableSize
	}
	if c.ScrollMinBurst <= 0 {
		c.ScrollMinBurst = d.ScrollMinBurst
	}
	if c.ScrollMaxBurst < c.ScrollMinBurst {
		c.ScrollMaxBurst = c.ScrollMinBurst
	}
	if c.ScrollIterationCap <= 0 {
		c.ScrollIterationCap = d.ScrollIterationCap
	}
	if c.VisibilityWait <= 0 {
		c.VisibilityWait = d.VisibilityWait
	}
	if c.ApproachSteps < 0 {
		c.ApproachSteps = 0
	}
	return c
}
