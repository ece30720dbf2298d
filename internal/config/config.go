// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces the environment overrides, e.g. HOSIT_BROWSER_REMOTE_URL.
const EnvPrefix = "HOSIT"

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Humanoid() HumanoidConfig
	Identity() IdentityConfig
	Seed() SeedConfig
	Captcha() CaptchaConfig
	LogSink() LogSinkConfig
	QueryGen() QueryGenConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserRemoteURL(string)

	// Seed Setters
	SetSeedReuse(bool)
}

// Config holds the entire application configuration. Sections are read
// through the Interface getters.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	HumanoidCfg HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
	IdentityCfg IdentityConfig `mapstructure:"identity" yaml:"identity"`
	SeedCfg     SeedConfig     `mapstructure:"seed" yaml:"seed"`
	CaptchaCfg  CaptchaConfig  `mapstructure:"captcha" yaml:"captcha"`
	LogSinkCfg  LogSinkConfig  `mapstructure:"logsink" yaml:"logsink"`
	QueryGenCfg QueryGenConfig `mapstructure:"querygen" yaml:"querygen"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Humanoid() HumanoidConfig { return c.HumanoidCfg }
func (c *Config) Identity() IdentityConfig { return c.IdentityCfg }
func (c *Config) Seed() SeedConfig         { return c.SeedCfg }
func (c *Config) Captcha() CaptchaConfig   { return c.CaptchaCfg }
func (c *Config) LogSink() LogSinkConfig   { return c.LogSinkCfg }
func (c *Config) QueryGen() QueryGenConfig { return c.QueryGenCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)       { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserRemoteURL(url string) { c.BrowserCfg.RemoteURL = url }
func (c *Config) SetSeedReuse(b bool)             { c.SeedCfg.Reuse = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the controlled browser.
type BrowserConfig struct {
	// RemoteURL attaches to a running browser's DevTools endpoint instead of launching one.
	RemoteURL       string         `mapstructure:"remote_url" yaml:"remote_url"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
	UserAgent       string         `mapstructure:"user_agent" yaml:"user_agent"`
	Locale          string         `mapstructure:"locale" yaml:"locale"`
	Timezone        string         `mapstructure:"timezone" yaml:"timezone"`
	// ScreenshotQuality is the JPEG quality of failure and audit screenshots.
	ScreenshotQuality int           `mapstructure:"screenshot_quality" yaml:"screenshot_quality"`
	WaitTimeout       time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	CloseTimeout      time.Duration `mapstructure:"close_timeout" yaml:"close_timeout"`
}

// ViewportSize returns the configured width and height, falling back to 1366x768.
func (b BrowserConfig) ViewportSize() (width, height int) {
	width, height = 1366, 768
	if w, ok := b.Viewport["width"]; ok && w > 0 {
		width = w
	}
	if h, ok := b.Viewport["height"]; ok && h > 0 {
		height = h
	}
	return width, height
}

// IdentityConfig describes the persona the session acts for.
type IdentityConfig struct {
	FirstName string `mapstructure:"first_name" yaml:"first_name"`
	LastName  string `mapstructure:"last_name" yaml:"last_name"`
	// Birthday is formatted as YYYY-MM-DD.
	Birthday string `mapstructure:"birthday" yaml:"birthday"`
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"-"`
	Company  string `mapstructure:"company" yaml:"company"`
	Position string `mapstructure:"position" yaml:"position"`
	// Gender is "male" or "female".
	Gender               string  `mapstructure:"gender" yaml:"gender"`
	TypingSpeedMean      float64 `mapstructure:"typing_speed_mean" yaml:"typing_speed_mean"`
	TypingSpeedDeviation float64 `mapstructure:"typing_speed_deviation" yaml:"typing_speed_deviation"`
}

// BirthdayTime parses Birthday. An empty value yields the zero time.
func (i IdentityConfig) BirthdayTime() (time.Time, error) {
	if i.Birthday == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", i.Birthday)
	if err != nil {
		return time.Time{}, fmt.Errorf("identity.birthday must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// SeedConfig controls where the session seed is remembered.
type SeedConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Reuse bool   `mapstructure:"reuse" yaml:"reuse"`
}

// CaptchaConfig configures the remote solving service. An empty APIKey disables solving.
type CaptchaConfig struct {
	APIKey       string        `mapstructure:"api_key" yaml:"-"`
	Endpoint     string        `mapstructure:"endpoint" yaml:"endpoint"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit    float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// Enabled reports whether a solver should be created.
func (c CaptchaConfig) Enabled() bool {
	return c.APIKey != ""
}

// Log sink kinds.
const (
	SinkZap      = "zap"
	SinkPostgres = "postgres"
)

// LogSinkConfig selects where session log entries go.
type LogSinkConfig struct {
	Kind string `mapstructure:"kind" yaml:"kind"`
	URL  string `mapstructure:"url" yaml:"url"`
}

// QueryGenConfig points at the pre-fetched feed file used for seeds and search queries.
type QueryGenConfig struct {
	FeedFile  string `mapstructure:"feed_file" yaml:"feed_file"`
	// Generator is a querygen table name or "social" for the celebrity mix.
	Generator string `mapstructure:"generator" yaml:"generator"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "hosit")
	v.SetDefault("logger.log_file", "hosit.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport", map[string]int{"width": 1366, "height": 768})
	v.SetDefault("browser.locale", "de-DE")
	v.SetDefault("browser.timezone", "Europe/Berlin")
	v.SetDefault("browser.screenshot_quality", 75)
	v.SetDefault("browser.wait_timeout", "30s")
	v.SetDefault("browser.close_timeout", "5s")

	setHumanoidDefaults(v)

	// -- Seed --
	v.SetDefault("seed.path", "~/.hosit/last_seed")
	v.SetDefault("seed.reuse", false)

	// -- Captcha --
	v.SetDefault("captcha.endpoint", "https://api.anti-captcha.com")
	v.SetDefault("captcha.poll_interval", "3s")
	v.SetDefault("captcha.timeout", "3m")
	v.SetDefault("captcha.rate_limit", 1.0)

	// -- Log sink --
	v.SetDefault("logsink.kind", SinkZap)

	// -- Query generation --
	v.SetDefault("querygen.feed_file", "")
	v.SetDefault("querygen.generator", "default")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Secrets are only ever read from the environment.
	_ = v.BindEnv("captcha.api_key", "HOSIT_CAPTCHA_API_KEY")
	_ = v.BindEnv("logsink.url", "HOSIT_LOGSINK_URL")
	_ = v.BindEnv("identity.password", "HOSIT_IDENTITY_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if q := c.BrowserCfg.ScreenshotQuality; q < 1 || q > 100 {
		return fmt.Errorf("browser.screenshot_quality must be between 1 and 100")
	}
	if err := c.HumanoidCfg.Validate(); err != nil {
		return fmt.Errorf("humanoid configuration invalid: %w", err)
	}
	if err := c.LogSinkCfg.Validate(); err != nil {
		return fmt.Errorf("logsink configuration invalid: %w", err)
	}
	if _, err := c.IdentityCfg.BirthdayTime(); err != nil {
		return err
	}
	switch g := strings.ToLower(c.IdentityCfg.Gender); g {
	case "", "male", "female":
	default:
		return fmt.Errorf("identity.gender must be male or female, got %q", c.IdentityCfg.Gender)
	}
	if c.IdentityCfg.TypingSpeedMean < 0 || c.IdentityCfg.TypingSpeedDeviation < 0 {
		return fmt.Errorf("identity typing speed must be non-negative")
	}
	return nil
}

// Validate checks the log sink selection.
func (l *LogSinkConfig) Validate() error {
	switch l.Kind {
	case SinkZap:
		return nil
	case SinkPostgres:
		if l.URL == "" {
			return fmt.Errorf("url is required for the postgres sink. Ensure HOSIT_LOGSINK_URL is set")
		}
		return nil
	default:
		return fmt.Errorf("kind must be %q or %q, got %q", SinkZap, SinkPostgres, l.Kind)
	}
}
