// Package config loads the mq-mcp configuration.
// Resolution order: defaults < config file < MQMCP_* environment < flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config represents the complete mq-mcp configuration
type Config struct {
	// Root is the directory served by this process
	Root string `json:"root" toml:"root" mapstructure:"root"`

	Limits LimitsConfig `json:"limits" toml:"limits" mapstructure:"limits"`
	Model  ModelConfig  `json:"model" toml:"model" mapstructure:"model"`
	Log    LogConfig    `json:"log" toml:"log" mapstructure:"log"`
}

// LimitsConfig bounds enumeration and concurrency
type LimitsConfig struct {
	// Concurrency caps in-flight remote calls across the whole process
	Concurrency int `json:"concurrency" toml:"concurrency" mapstructure:"concurrency"`

	// TreeCap bounds recursive directory enumeration
	TreeCap int `json:"tree_cap" toml:"tree_cap" mapstructure:"tree_cap"`

	// OverviewSampleCap bounds the number of files sampled for an overview
	OverviewSampleCap int `json:"overview_sample_cap" toml:"overview_sample_cap" mapstructure:"overview_sample_cap"`
}

// ModelConfig identifies the remote model and the retry policy
type ModelConfig struct {
	Name           string        `json:"name" toml:"name" mapstructure:"name"`
	MaxAttempts    int           `json:"max_attempts" toml:"max_attempts" mapstructure:"max_attempts"`
	RetryBaseDelay time.Duration `json:"retry_base_delay" toml:"retry_base_delay" mapstructure:"retry_base_delay"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `json:"level" toml:"level" mapstructure:"level"`
	File  string `json:"file,omitempty" toml:"file,omitempty" mapstructure:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Root: ".",
		Limits: LimitsConfig{
			Concurrency:       50,
			TreeCap:           100,
			OverviewSampleCap: 100,
		},
		Model: ModelConfig{
			Name:           "gemini-2.5-flash",
			MaxAttempts:    3,
			RetryBaseDelay: 300 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultConfigFile is the config filename searched in the working directory.
const DefaultConfigFile = "mq-mcp.toml"

// Load resolves the configuration. configFile may be empty, in which
// case mq-mcp.toml in the working directory is used when present.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("root", def.Root)
	v.SetDefault("limits.concurrency", def.Limits.Concurrency)
	v.SetDefault("limits.tree_cap", def.Limits.TreeCap)
	v.SetDefault("limits.overview_sample_cap", def.Limits.OverviewSampleCap)
	v.SetDefault("model.name", def.Model.Name)
	v.SetDefault("model.max_attempts", def.Model.MaxAttempts)
	v.SetDefault("model.retry_base_delay", def.Model.RetryBaseDelay.String())
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", "")

	v.SetEnvPrefix("MQMCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultConfigFile, filepath.Ext(DefaultConfigFile)))
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Root == "" {
		return &ConfigError{Field: "root", Message: "must not be empty"}
	}
	if c.Limits.Concurrency < 1 {
		return &ConfigError{Field: "limits.concurrency", Message: "must be at least 1"}
	}
	if c.Limits.TreeCap < 1 {
		return &ConfigError{Field: "limits.tree_cap", Message: "must be at least 1"}
	}
	if c.Limits.OverviewSampleCap < 1 {
		return &ConfigError{Field: "limits.overview_sample_cap", Message: "must be at least 1"}
	}
	if c.Model.MaxAttempts < 1 {
		return &ConfigError{Field: "model.max_attempts", Message: "must be at least 1"}
	}
	return nil
}

// Save writes the configuration as TOML
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
