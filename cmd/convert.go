// cmd/convert.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/das-group/HOSIT/internal/captcha"
	"github.com/das-group/HOSIT/internal/config"
	"github.com/das-group/HOSIT/internal/humanoid"
	"github.com/das-group/HOSIT/internal/identity"
)

// humanoidConfig maps the configured timing profile onto the controller's
// config. Values without a config key keep the controller defaults.
func humanoidConfig(hc config.HumanoidConfig) humanoid.Config {
	c := humanoid.DefaultConfig()
	c.ClickHold = humanoid.TimeRange{Mean: hc.ClickHoldMeanMs, Deviation: hc.ClickHoldDeviationMs}
	c.MinClickableSize = hc.MinClickableSize
	c.ScrollMinBurst = hc.ScrollMinBurst
	c.ScrollMaxBurst = hc.ScrollMaxBurst
	c.ScrollSettle = humanoid.TimeRange{Mean: hc.ScrollSettleMeanMs, Deviation: hc.ScrollSettleDeviationMs}
	c.ScrollIterationCap = hc.ScrollIterationCap
	c.RandomWait = humanoid.TimeRange{Mean: hc.RandomWaitMeanMs, Deviation: hc.RandomWaitDeviationMs}
	c.VisibilityWait = hc.VisibilityWait
	c.ApproachSteps = hc.ApproachSteps
	c.PerlinAmplitude = hc.PerlinAmplitude
	c.AuditActions = hc.AuditActions
	return c
}

// identityParams converts the configured persona.
func identityParams(ic config.IdentityConfig) (identity.Params, error) {
	birthday, err := ic.BirthdayTime()
	if err != nil {
		return identity.Params{}, fmt.Errorf("invalid identity birthday: %w", err)
	}
	gender := identity.GenderMale
	if strings.EqualFold(ic.Gender, "female") {
		gender = identity.GenderFemale
	}
	return identity.Params{
		FirstName:            ic.FirstName,
		LastName:             ic.LastName,
		Birthday:             birthday,
		Email:                ic.Email,
		Password:             ic.Password,
		Company:              ic.Company,
		Position:             ic.Position,
		TypingSpeedMean:      ic.TypingSpeedMean,
		TypingSpeedDeviation: ic.TypingSpeedDeviation,
		Gender:               gender,
	}, nil
}

func captchaConfig(cc config.CaptchaConfig) captcha.Config {
	return captcha.Config{
		APIKey:       cc.APIKey,
		Endpoint:     cc.Endpoint,
		PollInterval: cc.PollInterval,
		Timeout:      cc.Timeout,
		RateLimit:    cc.RateLimit,
	}
}
