// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "hosit", cfg.Logger().ServiceName)
	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, 75, cfg.Browser().ScreenshotQuality)
	assert.Equal(t, 30*time.Second, cfg.Browser().WaitTimeout)
	assert.Equal(t, 11, cfg.Humanoid().ScrollMinBurst)
	assert.Equal(t, 15, cfg.Humanoid().ScrollMaxBurst)
	assert.Equal(t, 100, cfg.Humanoid().ScrollIterationCap)
	assert.Equal(t, 12000.0, cfg.Humanoid().ScrollSettleMeanMs)
	assert.Equal(t, time.Minute, cfg.Humanoid().FocusInterval)
	assert.Equal(t, "~/.hosit/last_seed", cfg.Seed().Path)
	assert.Equal(t, 3*time.Second, cfg.Captcha().PollInterval)
	assert.False(t, cfg.Captcha().Enabled())
	assert.Equal(t, SinkZap, cfg.LogSink().Kind)
	assert.Equal(t, "default", cfg.QueryGen().Generator)
	assert.NoError(t, cfg.Validate())

	w, h := cfg.Browser().ViewportSize()
	assert.Equal(t, 1366, w)
	assert.Equal(t, 768, h)
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetBrowserHeadless(true)
	cfg.SetBrowserRemoteURL("ws://127.0.0.1:9222")
	cfg.SetSeedReuse(true)

	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, "ws://127.0.0.1:9222", cfg.Browser().RemoteURL)
	assert.True(t, cfg.Seed().Reuse)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		require.NoError(t, cfg.Validate())

		badQuality := *cfg
		badQuality.BrowserCfg.ScreenshotQuality = 0
		err := badQuality.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser.screenshot_quality must be between 1 and 100")

		badGender := *cfg
		badGender.IdentityCfg.Gender = "robot"
		err = badGender.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "identity.gender must be male or female")

		badBirthday := *cfg
		badBirthday.IdentityCfg.Birthday = "24.12.1990"
		err = badBirthday.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "identity.birthday must be YYYY-MM-DD")

		badTyping := *cfg
		badTyping.IdentityCfg.TypingSpeedMean = -1
		assert.Error(t, badTyping.Validate())
	})

	t.Run("Humanoid Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Humanoid()
		assert.NoError(t, valid.Validate())

		inverted := valid
		inverted.ScrollMaxBurst = 5
		err := inverted.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scroll_min_burst must be positive")

		noCap := valid
		noCap.ScrollIterationCap = 0
		err = noCap.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scroll_iteration_cap must be a positive integer")

		negHold := valid
		negHold.ClickHoldMeanMs = -5
		assert.Error(t, negHold.Validate())

		negSteps := valid
		negSteps.ApproachSteps = -1
		assert.Error(t, negSteps.Validate())
	})

	t.Run("LogSink Validation", func(t *testing.T) {
		assert.NoError(t, (&LogSinkConfig{Kind: SinkZap}).Validate())
		assert.NoError(t, (&LogSinkConfig{Kind: SinkPostgres, URL: "postgres://x"}).Validate())

		err := (&LogSinkConfig{Kind: SinkPostgres}).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HOSIT_LOGSINK_URL")

		err = (&LogSinkConfig{Kind: "kafka"}).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kind must be")
	})
}

func TestIdentityConfig_BirthdayTime(t *testing.T) {
	got, err := IdentityConfig{Birthday: "1990-12-24"}.BirthdayTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 12, 24, 0, 0, 0, 0, time.UTC), got)

	got, err = IdentityConfig{}.BirthdayTime()
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
browser:
  headless: true
  viewport:
    width: 1920
    height: 1080
humanoid:
  scroll_iteration_cap: 20
identity:
  first_name: Erika
  email: erika@example.org
  gender: female
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.True(t, cfg.Browser().Headless)
		w, h := cfg.Browser().ViewportSize()
		assert.Equal(t, 1920, w)
		assert.Equal(t, 1080, h)
		assert.Equal(t, 20, cfg.Humanoid().ScrollIterationCap)
		assert.Equal(t, "Erika", cfg.Identity().FirstName)
		// Defaults survive a partial file.
		assert.Equal(t, "info", cfg.Logger().Level)
		assert.Equal(t, 11, cfg.Humanoid().ScrollMinBurst)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("humanoid.scroll_iteration_cap", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "scroll_iteration_cap must be a positive integer")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
logsink:
  kind: postgres
  url: "postgres://configfile/db"
`)))

		t.Setenv("HOSIT_CAPTCHA_API_KEY", "secret-key")
		t.Setenv("HOSIT_LOGSINK_URL", "postgres://envvar/db")
		t.Setenv("HOSIT_BROWSER_REMOTE_URL", "ws://chrome:9222")
		t.Setenv("HOSIT_IDENTITY_PASSWORD", "hunter2")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "secret-key", cfg.Captcha().APIKey)
		assert.True(t, cfg.Captcha().Enabled())
		assert.Equal(t, "hunter2", cfg.Identity().Password)
		assert.Equal(t, "ws://chrome:9222", cfg.Browser().RemoteURL)
		// The environment overrides the file.
		assert.Equal(t, "postgres://envvar/db", cfg.LogSink().URL)
		assert.Equal(t, SinkPostgres, cfg.LogSink().Kind)
	})
}
