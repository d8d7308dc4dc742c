// Package config loads this simulator's node configuration, trimmed from
// the teacher's nested YAML-tagged Config to the fields a single PoET
// validator process actually needs.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level node configuration, loaded from a YAML file (or
// environment variables prefixed POET_) via viper.
type Config struct {
	NodeName        string       `yaml:"nodeName" mapstructure:"nodeName"`
	LogLevel        string       `yaml:"logLevel" mapstructure:"logLevel"`
	MinimumWaitTime float64      `yaml:"minimumWaitTime" mapstructure:"minimumWaitTime"`
	API             APIConfig    `yaml:"api" mapstructure:"api"`
	Housekeeping    Housekeeping `yaml:"housekeeping" mapstructure:"housekeeping"`
}

// APIConfig configures the HTTP surface in internal/poetapi.
type APIConfig struct {
	Host               string   `yaml:"host" mapstructure:"host"`
	Port               int      `yaml:"port" mapstructure:"port"`
	EnableCORS         bool     `yaml:"enableCORS" mapstructure:"enableCORS"`
	AllowedOrigins     []string `yaml:"allowedOrigins" mapstructure:"allowedOrigins"`
	JWTSecret          string   `yaml:"jwtSecret" mapstructure:"jwtSecret"`
	RateLimitPerMinute int      `yaml:"rateLimitPerMinute" mapstructure:"rateLimitPerMinute"`
}

// Housekeeping configures the cron sweep that logs expired-but-uncertified
// wait timers (see cmd/poetd).
type Housekeeping struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
}

// Load reads configuration from path (if non-empty) or from the default
// search locations, applying POET_-prefixed environment variable overrides,
// and fills in defaults for anything left unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// SetDefault registers each key with viper so that AutomaticEnv's
	// override applies to it during Unmarshal even when the key is
	// absent from both the config file and the command line.
	v.SetDefault("nodeName", "")
	v.SetDefault("logLevel", "")
	v.SetDefault("minimumWaitTime", 0.0)
	v.SetDefault("api.host", "")
	v.SetDefault("api.port", 0)
	v.SetDefault("api.enableCORS", false)
	v.SetDefault("api.allowedOrigins", []string{})
	v.SetDefault("api.jwtSecret", "")
	v.SetDefault("api.rateLimitPerMinute", 0)
	v.SetDefault("housekeeping.enabled", false)
	v.SetDefault("housekeeping.schedule", "")

	haveExplicitFile := false
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			haveExplicitFile = true
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	if !haveExplicitFile {
		v.SetConfigName("poetd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.poet")
		v.AddConfigPath("/etc/poet")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes cfg to path as YAML, for `poetctl config init`-style
// bootstrapping.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.NodeName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "poet-node"
		}
		cfg.NodeName = hostname
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MinimumWaitTime <= 0 {
		cfg.MinimumWaitTime = 1.0
	}
	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}
	if cfg.API.Port <= 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.JWTSecret == "" {
		cfg.API.JWTSecret = "poet-enclave-dev-secret"
	}
	if cfg.API.RateLimitPerMinute <= 0 {
		cfg.API.RateLimitPerMinute = 120
	}
	if cfg.Housekeeping.Schedule == "" {
		cfg.Housekeeping.Schedule = "@every 1m"
	}
}
