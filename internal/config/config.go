// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the root configuration object. Each section is exposed through a
// getter so consumers depend on the Interface rather than the struct layout.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	BrowserCfg   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	HumanoidCfg  HumanoidConfig  `mapstructure:"humanoid" yaml:"humanoid"`
	SessionCfg   SessionConfig   `mapstructure:"session" yaml:"session"`
	DetectorCfg  DetectorConfig  `mapstructure:"detector" yaml:"detector"`
	SelectorsCfg SelectorsConfig `mapstructure:"selectors" yaml:"selectors"`
	EvidenceCfg  EvidenceConfig  `mapstructure:"evidence" yaml:"evidence"`
	LimitsCfg    LimitsConfig    `mapstructure:"limits" yaml:"limits"`
	ServerCfg    ServerConfig    `mapstructure:"server" yaml:"server"`
}

// Interface is the read-only view handed to components.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Humanoid() HumanoidConfig
	Session() SessionConfig
	Detector() DetectorConfig
	Selectors() SelectorsConfig
	Evidence() EvidenceConfig
	Limits() LimitsConfig
	Server() ServerConfig
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig     { return c.BrowserCfg }
func (c *Config) Humanoid() HumanoidConfig   { return c.HumanoidCfg }
func (c *Config) Session() SessionConfig     { return c.SessionCfg }
func (c *Config) Detector() DetectorConfig   { return c.DetectorCfg }
func (c *Config) Selectors() SelectorsConfig { return c.SelectorsCfg }
func (c *Config) Evidence() EvidenceConfig   { return c.EvidenceCfg }
func (c *Config) Limits() LimitsConfig       { return c.LimitsCfg }
func (c *Config) Server() ServerConfig       { return c.ServerCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	Output      string      `mapstructure:"output" yaml:"output"`
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

// BrowserConfig controls the single persistent browser the server drives.
type BrowserConfig struct {
	ProfileDir        string        `mapstructure:"profile_dir" yaml:"profile_dir"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	Locale            string        `mapstructure:"locale" yaml:"locale"`
	Timezone          string        `mapstructure:"timezone" yaml:"timezone"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	Viewport          Viewport      `mapstructure:"viewport" yaml:"viewport"`
	LivenessTimeout   time.Duration `mapstructure:"liveness_timeout" yaml:"liveness_timeout"`
	LaunchTimeout     time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	HomeURL           string        `mapstructure:"home_url" yaml:"home_url"`
	LoginURL          string        `mapstructure:"login_url" yaml:"login_url"`
}

// Viewport is the emulated window size in CSS pixels.
type Viewport struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// DelayRangeConfig is a min/max pair for one action class.
type DelayRangeConfig struct {
	Min time.Duration `mapstructure:"min" yaml:"min"`
	Max time.Duration `mapstructure:"max" yaml:"max"`
}

// HumanoidConfig tunes the humanized action executor.
type HumanoidConfig struct {
	// Delays is keyed by action class name (click, type, scroll_step, ...).
	Delays              map[string]DelayRangeConfig `mapstructure:"delays" yaml:"delays"`
	SpeedFactorMin      float64                     `mapstructure:"speed_factor_min" yaml:"speed_factor_min"`
	SpeedFactorMax      float64                     `mapstructure:"speed_factor_max" yaml:"speed_factor_max"`
	ThinkingProbability float64                     `mapstructure:"thinking_probability" yaml:"thinking_probability"`
	MinPathSteps        int                         `mapstructure:"min_path_steps" yaml:"min_path_steps"`
	MaxPathSteps        int                         `mapstructure:"max_path_steps" yaml:"max_path_steps"`
	ScrollMinDistance   int                         `mapstructure:"scroll_min_distance" yaml:"scroll_min_distance"`
	ScrollMaxDistance   int                         `mapstructure:"scroll_max_distance" yaml:"scroll_max_distance"`
	ScrollMinSteps      int                         `mapstructure:"scroll_min_steps" yaml:"scroll_min_steps"`
	ScrollMaxSteps      int                         `mapstructure:"scroll_max_steps" yaml:"scroll_max_steps"`
}

// SessionConfig controls pacing across the whole process lifetime.
type SessionConfig struct {
	MinActionGap    time.Duration `mapstructure:"min_action_gap" yaml:"min_action_gap"`
	RestIntervalMin time.Duration `mapstructure:"rest_interval_min" yaml:"rest_interval_min"`
	RestIntervalMax time.Duration `mapstructure:"rest_interval_max" yaml:"rest_interval_max"`
	RestDurationMin time.Duration `mapstructure:"rest_duration_min" yaml:"rest_duration_min"`
	RestDurationMax time.Duration `mapstructure:"rest_duration_max" yaml:"rest_duration_max"`
}

// DetectorConfig points at an optional rule table override and the hint locale.
type DetectorConfig struct {
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file"`
	Locale    string `mapstructure:"locale" yaml:"locale"`
}

// SelectorsConfig points at an optional selector table override.
type SelectorsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// EvidenceConfig controls where screenshots are written.
type EvidenceConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxWidth downscales wider captures; 0 keeps the original size.
	MaxWidth int `mapstructure:"max_width" yaml:"max_width"`
	// MaxFiles prunes the oldest captures beyond this count; 0 keeps all.
	MaxFiles int `mapstructure:"max_files" yaml:"max_files"`
}

// LimitsConfig holds operation-level bounds.
type LimitsConfig struct {
	ConnectionsPerHour float64       `mapstructure:"connections_per_hour" yaml:"connections_per_hour"`
	ConnectionBurst    int           `mapstructure:"connection_burst" yaml:"connection_burst"`
	MaxMessageLength   int           `mapstructure:"max_message_length" yaml:"max_message_length"`
	MaxSearchResults   int           `mapstructure:"max_search_results" yaml:"max_search_results"`
	ElementTimeout     time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	PageTimeout        time.Duration `mapstructure:"page_timeout" yaml:"page_timeout"`
	PollInterval       time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ServerConfig selects the tool transport.
type ServerConfig struct {
	Transport  string `mapstructure:"transport" yaml:"transport"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// NewDefaultConfig creates a new configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; failure here is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every recognized option.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "linkmcp")
	v.SetDefault("logger.output", "stderr")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.profile_dir", "~/.linkmcp/profile")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.locale", "en-US")
	v.SetDefault("browser.timezone", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.viewport.width", 1366)
	v.SetDefault("browser.viewport.height", 850)
	v.SetDefault("browser.liveness_timeout", "5s")
	v.SetDefault("browser.launch_timeout", "45s")
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.home_url", "https://www.linkedin.com/feed/")
	v.SetDefault("browser.login_url", "https://www.linkedin.com/login")

	// -- Humanoid --
	setHumanoidDefaults(v)

	// -- Session --
	v.SetDefault("session.min_action_gap", "1s")
	v.SetDefault("session.rest_interval_min", "30m")
	v.SetDefault("session.rest_interval_max", "60m")
	v.SetDefault("session.rest_duration_min", "3m")
	v.SetDefault("session.rest_duration_max", "8m")

	// -- Detector / Selectors --
	v.SetDefault("detector.rules_file", "")
	v.SetDefault("detector.locale", "en")
	v.SetDefault("selectors.file", "")

	// -- Evidence --
	v.SetDefault("evidence.dir", "~/.linkmcp/evidence")
	v.SetDefault("evidence.max_width", 1280)
	v.SetDefault("evidence.max_files", 200)

	// -- Limits --
	v.SetDefault("limits.connections_per_hour", 15.0)
	v.SetDefault("limits.connection_burst", 3)
	v.SetDefault("limits.max_message_length", 300)
	v.SetDefault("limits.max_search_results", 25)
	v.SetDefault("limits.element_timeout", "8s")
	v.SetDefault("limits.page_timeout", "15s")
	v.SetDefault("limits.poll_interval", "250ms")

	// -- Server --
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.listen_addr", "127.0.0.1:8765")
}

func setHumanoidDefaults(v *viper.Viper) {
	delays := map[string][2]string{
		"click":           {"120ms", "350ms"},
		"click_hold":      {"50ms", "120ms"},
		"post_click":      {"250ms", "700ms"},
		"type":            {"60ms", "180ms"},
		"thinking":        {"400ms", "1200ms"},
		"scroll_step":     {"30ms", "90ms"},
		"scroll_settle":   {"400ms", "900ms"},
		"read":            {"1500ms", "4s"},
		"between_actions": {"800ms", "2500ms"},
		"pointer_step":    {"5ms", "20ms"},
	}
	for class, r := range delays {
		v.SetDefault("humanoid.delays."+class+".min", r[0])
		v.SetDefault("humanoid.delays."+class+".max", r[1])
	}
	v.SetDefault("humanoid.speed_factor_min", 0.7)
	v.SetDefault("humanoid.speed_factor_max", 1.3)
	v.SetDefault("humanoid.thinking_probability", 0.05)
	v.SetDefault("humanoid.min_path_steps", 15)
	v.SetDefault("humanoid.max_path_steps", 30)
	v.SetDefault("humanoid.scroll_min_distance", 300)
	v.SetDefault("humanoid.scroll_max_distance", 700)
	v.SetDefault("humanoid.scroll_min_steps", 5)
	v.SetDefault("humanoid.scroll_max_steps", 10)
}

// NewConfigFromViper unmarshals, expands and validates a populated viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves "~" in every filesystem option.
func (c *Config) expandPaths() error {
	paths := []*string{
		&c.BrowserCfg.ProfileDir,
		&c.EvidenceCfg.Dir,
		&c.DetectorCfg.RulesFile,
		&c.SelectorsCfg.File,
		&c.LoggerCfg.LogFile,
	}
	for _, p := range paths {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.BrowserCfg.ProfileDir == "" {
		return fmt.Errorf("browser.profile_dir must not be empty")
	}
	if c.BrowserCfg.Viewport.Width <= 0 || c.BrowserCfg.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport dimensions must be positive")
	}
	if c.BrowserCfg.LivenessTimeout <= 0 || c.BrowserCfg.LaunchTimeout <= 0 || c.BrowserCfg.NavigationTimeout <= 0 {
		return fmt.Errorf("browser liveness, launch and navigation timeouts must be positive")
	}
	if c.EvidenceCfg.MaxWidth < 0 || c.EvidenceCfg.MaxFiles < 0 {
		return fmt.Errorf("evidence limits must not be negative")
	}
	if err := c.HumanoidCfg.Validate(); err != nil {
		return fmt.Errorf("humanoid configuration invalid: %w", err)
	}
	if err := c.SessionCfg.Validate(); err != nil {
		return fmt.Errorf("session configuration invalid: %w", err)
	}
	if c.LimitsCfg.MaxMessageLength <= 0 {
		return fmt.Errorf("limits.max_message_length must be a positive integer")
	}
	if c.LimitsCfg.MaxSearchResults <= 0 {
		return fmt.Errorf("limits.max_search_results must be a positive integer")
	}
	if c.LimitsCfg.ElementTimeout <= 0 || c.LimitsCfg.PageTimeout <= 0 {
		return fmt.Errorf("limits element_timeout and page_timeout must be positive")
	}
	switch strings.ToLower(c.ServerCfg.Transport) {
	case "stdio", "http":
	default:
		return fmt.Errorf("server.transport must be 'stdio' or 'http', got %q", c.ServerCfg.Transport)
	}
	return nil
}

// Validate checks the humanoid delay table and geometry bounds.
func (h *HumanoidConfig) Validate() error {
	if h.SpeedFactorMin <= 0 || h.SpeedFactorMin > h.SpeedFactorMax {
		return fmt.Errorf("speed factor bounds are invalid: [%v, %v]", h.SpeedFactorMin, h.SpeedFactorMax)
	}
	for class, r := range h.Delays {
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("delay range for %q is invalid: [%v, %v]", class, r.Min, r.Max)
		}
	}
	if h.ThinkingProbability < 0 || h.ThinkingProbability > 1 {
		return fmt.Errorf("thinking_probability must be within [0, 1]")
	}
	if h.MinPathSteps < 2 || h.MaxPathSteps < h.MinPathSteps {
		return fmt.Errorf("path step bounds are invalid: [%d, %d]", h.MinPathSteps, h.MaxPathSteps)
	}
	if h.ScrollMinDistance <= 0 || h.ScrollMaxDistance < h.ScrollMinDistance {
		return fmt.Errorf("scroll distance bounds are invalid: [%d, %d]", h.ScrollMinDistance, h.ScrollMaxDistance)
	}
	if h.ScrollMinSteps <= 0 || h.ScrollMaxSteps < h.ScrollMinSteps {
		return fmt.Errorf("scroll step bounds are invalid: [%d, %d]", h.ScrollMinSteps, h.ScrollMaxSteps)
	}
	return nil
}

// Validate checks the rest and gap settings.
func (s *SessionConfig) Validate() error {
	if s.MinActionGap < 0 {
		return fmt.Errorf("min_action_gap must not be negative")
	}
	if s.RestIntervalMin <= 0 || s.RestIntervalMax < s.RestIntervalMin {
		return fmt.Errorf("rest interval bounds are invalid: [%v, %v]", s.RestIntervalMin, s.RestIntervalMax)
	}
	if s.RestDurationMin < 0 || s.RestDurationMax < s.RestDurationMin {
		return fmt.Errorf("rest duration bounds are invalid: [%v, %v]", s.RestDurationMin, s.RestDurationMax)
	}
	return nil
}
