// File: internal/config/humanoid_config.go
// This file defines the HumanoidConfig struct, which contains the tunable
// timing parameters of humanized interaction: click holds, scroll bursts and
// settle pauses, random waits and the mouse approach path.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// HumanoidConfig mirrors the timing model of the interaction controller. All
// *Ms values are milliseconds; each mean/deviation pair spans [mean-dev, mean+dev).
type HumanoidConfig struct {
	ClickHoldMeanMs      float64 `mapstructure:"click_hold_mean_ms" yaml:"click_hold_mean_ms"`
	ClickHoldDeviationMs float64 `mapstructure:"click_hold_deviation_ms" yaml:"click_hold_deviation_ms"`
	MinClickableSize     float64 `mapstructure:"min_clickable_size" yaml:"min_clickable_size"`

	ScrollMinBurst          int     `mapstructure:"scroll_min_burst" yaml:"scroll_min_burst"`
	ScrollMaxBurst          int     `mapstructure:"scroll_max_burst" yaml:"scroll_max_burst"`
	ScrollSettleMeanMs      float64 `mapstructure:"scroll_settle_mean_ms" yaml:"scroll_settle_mean_ms"`
	ScrollSettleDeviationMs float64 `mapstructure:"scroll_settle_deviation_ms" yaml:"scroll_settle_deviation_ms"`
	ScrollIterationCap      int     `mapstructure:"scroll_iteration_cap" yaml:"scroll_iteration_cap"`

	RandomWaitMeanMs      float64       `mapstructure:"random_wait_mean_ms" yaml:"random_wait_mean_ms"`
	RandomWaitDeviationMs float64       `mapstructure:"random_wait_deviation_ms" yaml:"random_wait_deviation_ms"`
	VisibilityWait        time.Duration `mapstructure:"visibility_wait" yaml:"visibility_wait"`

	ApproachSteps   int     `mapstructure:"approach_steps" yaml:"approach_steps"`
	PerlinAmplitude float64 `mapstructure:"perlin_amplitude" yaml:"perlin_amplitude"`

	AuditActions  bool          `mapstructure:"audit_actions" yaml:"audit_actions"`
	FocusInterval time.Duration `mapstructure:"focus_interval" yaml:"focus_interval"`
}

func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("humanoid.click_hold_mean_ms", 160.0)
	v.SetDefault("humanoid.click_hold_deviation_ms", 20.0)
	v.SetDefault("humanoid.min_clickable_size", 16.0)

	v.SetDefault("humanoid.scroll_min_burst", 11)
	v.SetDefault("humanoid.scroll_max_burst", 15)
	v.SetDefault("humanoid.scroll_settle_mean_ms", 12000.0)
	v.SetDefault("humanoid.scroll_settle_deviation_ms", 2000.0)
	v.SetDefault("humanoid.scroll_iteration_cap", 100)

	v.SetDefault("humanoid.random_wait_mean_ms", 2000.0)
	v.SetDefault("humanoid.random_wait_deviation_ms", 1000.0)
	v.SetDefault("humanoid.visibility_wait", "500ms")

	v.SetDefault("humanoid.approach_steps", 12)
	v.SetDefault("humanoid.perlin_amplitude", 6.0)

	v.SetDefault("humanoid.audit_actions", false)
	v.SetDefault("humanoid.focus_interval", "1m")
}

// Validate checks the timing parameters.
func (h *HumanoidConfig) Validate() error {
	if h.ClickHoldMeanMs < 0 || h.ClickHoldDeviationMs < 0 {
		return fmt.Errorf("click hold must be non-negative")
	}
	if h.ScrollMinBurst <= 0 || h.ScrollMaxBurst < h.ScrollMinBurst {
		return fmt.Errorf("scroll_min_burst must be positive and not above scroll_max_burst")
	}
	if h.ScrollIterationCap <= 0 {
		return fmt.Errorf("scroll_iteration_cap must be a positive integer")
	}
	if h.ApproachSteps < 0 {
		return fmt.Errorf("approach_steps must not be negative")
	}
	return nil
}
