// Package config handles configuration loading and management for trimwatch.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const appName = "trimwatch"

// projectConfigName is searched for in the working directory and its parents.
const projectConfigName = ".trimwatch.yaml"

// Config holds all configuration for trimwatch.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Adjust    AdjustConfig    `mapstructure:"adjust"`
	Labels    LabelsConfig    `mapstructure:"labels"`
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig locates the controller.
type ServerConfig struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AdjustConfig holds the operator's trimming parameters.
type AdjustConfig struct {
	// TargetHz is the frequency every channel is trimmed toward.
	TargetHz float64 `mapstructure:"target_hz"`
	// PrecisionHz is the tolerance half-width around the target.
	PrecisionHz float64 `mapstructure:"precision_hz"`
	// AnchorEpsilonHz is the movement below which a channel counts as not
	// yet moved when scaling its progress bar.
	AnchorEpsilonHz float64 `mapstructure:"anchor_epsilon_hz"`
}

// LabelsConfig holds deployment-specific texts.
type LabelsConfig struct {
	// Waiting is shown when monitoring stops.
	Waiting string `mapstructure:"waiting"`
	// CancelPhrases identify the controller's localized cancellation replies.
	CancelPhrases []string `mapstructure:"cancel_phrases"`
}

// ReconnectConfig is the retry policy for a lost status stream.
type ReconnectConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	// MaxElapsed is how long to keep retrying; zero retries forever.
	MaxElapsed time.Duration `mapstructure:"max_elapsed"`
}

// LogConfig holds debug log settings.
type LogConfig struct {
	// File is the debug log path; empty disables logging.
	File string `mapstructure:"file"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it.
	Addr string `mapstructure:"addr"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (TRIMWATCH_SERVER_URL, TRIMWATCH_ADJUST_TARGET_HZ, ...)
// 2. Project config (.trimwatch.yaml in current directory or parent)
// 3. User config (~/.config/trimwatch/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file over the defaults.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	return SaveTo(GetUserConfigPath(), cfg)
}

// SaveTo writes the configuration to path.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server.url", cfg.Server.URL)
	v.Set("server.request_timeout", cfg.Server.RequestTimeout.String())
	v.Set("adjust.target_hz", cfg.Adjust.TargetHz)
	v.Set("adjust.precision_hz", cfg.Adjust.PrecisionHz)
	v.Set("adjust.anchor_epsilon_hz", cfg.Adjust.AnchorEpsilonHz)
	v.Set("labels.waiting", cfg.Labels.Waiting)
	v.Set("labels.cancel_phrases", cfg.Labels.CancelPhrases)
	v.Set("reconnect.initial_interval", cfg.Reconnect.InitialInterval.String())
	v.Set("reconnect.max_interval", cfg.Reconnect.MaxInterval.String())
	v.Set("reconnect.max_elapsed", cfg.Reconnect.MaxElapsed.String())
	v.Set("log.file", cfg.Log.File)
	v.Set("metrics.addr", cfg.Metrics.Addr)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.URL == "" {
		errs = append(errs, errors.New("server.url is required"))
	} else if u, err := url.Parse(c.Server.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server.url %q is not an http(s) URL", c.Server.URL))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	if c.Adjust.TargetHz <= 0 {
		errs = append(errs, errors.New("adjust.target_hz must be positive"))
	}
	if c.Adjust.PrecisionHz <= 0 {
		errs = append(errs, errors.New("adjust.precision_hz must be positive"))
	}
	if c.Adjust.AnchorEpsilonHz < 0 {
		errs = append(errs, errors.New("adjust.anchor_epsilon_hz must not be negative"))
	}
	if c.Reconnect.InitialInterval <= 0 {
		errs = append(errs, errors.New("reconnect.initial_interval must be positive"))
	}
	if c.Reconnect.MaxInterval < c.Reconnect.InitialInterval {
		errs = append(errs, errors.New("reconnect.max_interval must not be below reconnect.initial_interval"))
	}
	if c.Reconnect.MaxElapsed < 0 {
		errs = append(errs, errors.New("reconnect.max_elapsed must not be negative"))
	}

	return errors.Join(errs...)
}

// Keys lists the settable configuration keys in display order.
func Keys() []string {
	keys := make([]string, 0, len(accessors))
	for k := range accessors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dot-notation key as text.
func (c *Config) Get(key string) (string, error) {
	acc, ok := accessors[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return acc.get(c), nil
}

// Set parses value and assigns it to a dot-notation key.
func (c *Config) Set(key, value string) error {
	acc, ok := accessors[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err := acc.set(c, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

type accessor struct {
	get func(*Config) string
	set func(*Config, string) error
}

func stringField(p func(*Config) *string) accessor {
	return accessor{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, s string) error { *p(c) = s; return nil },
	}
}

func floatField(p func(*Config) *float64) accessor {
	return accessor{
		get: func(c *Config) string { return strconv.FormatFloat(*p(c), 'f', -1, 64) },
		set: func(c *Config, s string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return err
			}
			*p(c) = f
			return nil
		},
	}
}

func durationField(p func(*Config) *time.Duration) accessor {
	return accessor{
		get: func(c *Config) string { return p(c).String() },
		set: func(c *Config, s string) error {
			d, err := time.ParseDuration(strings.TrimSpace(s))
			if err != nil {
				return err
			}
			*p(c) = d
			return nil
		},
	}
}

var accessors = map[string]accessor{
	"server.url":                 stringField(func(c *Config) *string { return &c.Server.URL }),
	"server.request_timeout":     durationField(func(c *Config) *time.Duration { return &c.Server.RequestTimeout }),
	"adjust.target_hz":           floatField(func(c *Config) *float64 { return &c.Adjust.TargetHz }),
	"adjust.precision_hz":        floatField(func(c *Config) *float64 { return &c.Adjust.PrecisionHz }),
	"adjust.anchor_epsilon_hz":   floatField(func(c *Config) *float64 { return &c.Adjust.AnchorEpsilonHz }),
	"labels.waiting":             stringField(func(c *Config) *string { return &c.Labels.Waiting }),
	"reconnect.initial_interval": durationField(func(c *Config) *time.Duration { return &c.Reconnect.InitialInterval }),
	"reconnect.max_interval":     durationField(func(c *Config) *time.Duration { return &c.Reconnect.MaxInterval }),
	"reconnect.max_elapsed":      durationField(func(c *Config) *time.Duration { return &c.Reconnect.MaxElapsed }),
	"log.file":                   stringField(func(c *Config) *string { return &c.Log.File }),
	"metrics.addr":               stringField(func(c *Config) *string { return &c.Metrics.Addr }),
	"labels.cancel_phrases": {
		get: func(c *Config) string { return strings.Join(c.Labels.CancelPhrases, ",") },
		set: func(c *Config, s string) error {
			var phrases []string
			for _, p := range strings.Split(s, ",") {
				if p = strings.TrimSpace(p); p != "" {
					phrases = append(phrases, p)
				}
			}
			c.Labels.CancelPhrases = phrases
			return nil
		},
	},
}

// DefaultCancelPhrases are the controller's known cancellation replies.
var DefaultCancelPhrases = []string{"Автонастройка отменена.", "Настройка отменена", "cancelled"}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:3289")
	v.SetDefault("server.request_timeout", "10s")

	v.SetDefault("adjust.target_hz", 32768.0)
	v.SetDefault("adjust.precision_hz", 0.33)
	v.SetDefault("adjust.anchor_epsilon_hz", 0.2)

	v.SetDefault("labels.waiting", "Waiting")
	v.SetDefault("labels.cancel_phrases", DefaultCancelPhrases)

	v.SetDefault("reconnect.initial_interval", "250ms")
	v.SetDefault("reconnect.max_interval", "5s")
	v.SetDefault("reconnect.max_elapsed", "2m")

	v.SetDefault("log.file", defaultLogFile())
	v.SetDefault("metrics.addr", "")
}

// bindEnv maps TRIMWATCH_SECTION_KEY variables onto every key.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("TRIMWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range Keys() {
		v.BindEnv(key)
	}
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Log.File = expandEnv(cfg.Log.File)
	return cfg, nil
}

// getUserConfigDir returns the XDG config directory for trimwatch.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

// defaultLogFile returns the debug log path under the XDG state directory.
func defaultLogFile() string {
	if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
		return filepath.Join(xdgState, appName, appName+".log")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName, appName+".log")
}

// findProjectConfig searches for .trimwatch.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, projectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:            "http://localhost:3289",
			RequestTimeout: 10 * time.Second,
		},
		Adjust: AdjustConfig{
			TargetHz:        32768,
			PrecisionHz:     0.33,
			AnchorEpsilonHz: 0.2,
		},
		Labels: LabelsConfig{
			Waiting:       "Waiting",
			CancelPhrases: append([]string(nil), DefaultCancelPhrases...),
		},
		Reconnect: ReconnectConfig{
			InitialInterval: 250 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			MaxElapsed:      2 * time.Minute,
		},
		Log: LogConfig{
			File: defaultLogFile(),
		},
	}
}
