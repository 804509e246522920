// Package config provides configuration management for the taskwheel demo
// CLI. The taskwheel library package itself takes a plain Config struct
// with no file I/O (see SPEC_FULL.md §9) — loading from file/env is a
// CLI-only concern, kept here the way the teacher keeps its own config
// package separate from library code.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config matches the structure of taskwheel.json, the demo CLI's config
// file.
type Config struct {
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler" mapstructure:"scheduler"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// SchedulerConfig mirrors taskwheel.Config's tunables for the demo CLI.
type SchedulerConfig struct {
	Workers     int `json:"workers" yaml:"workers" mapstructure:"workers"`
	BusCapacity int `json:"busCapacity" yaml:"busCapacity" mapstructure:"busCapacity"`
}

// LoggingConfig controls the demo CLI's zerolog output.
type LoggingConfig struct {
	Verbose bool   `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
	Level   string `json:"level" yaml:"level" mapstructure:"level"`
}

// StateDir returns the taskwheel CLI state directory. Can be overridden
// via the TASKWHEEL_STATE_DIR environment variable. Default: ~/.taskwheel
func StateDir() string {
	if override := strings.TrimSpace(os.Getenv("TASKWHEEL_STATE_DIR")); override != "" {
		return expandPath(override)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskwheel"
	}
	return filepath.Join(home, ".taskwheel")
}

// ConfigPath returns the default config file path. Can be overridden via
// TASKWHEEL_CONFIG_PATH. Default: ~/.taskwheel/taskwheel.json
func ConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("TASKWHEEL_CONFIG_PATH")); override != "" {
		return expandPath(override)
	}
	return filepath.Join(StateDir(), "taskwheel.json")
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.Replace(path, "~", home, 1)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// LoadViper loads the configuration into a Viper instance.
func LoadViper() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if configPath := strings.TrimSpace(os.Getenv("TASKWHEEL_CONFIG_PATH")); configPath != "" {
		v.SetConfigFile(expandPath(configPath))
	} else {
		v.SetConfigName("taskwheel")
		v.AddConfigPath(StateDir())
	}

	v.SetEnvPrefix("TASKWHEEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file is fine — defaults plus env vars still apply.
	}

	return v, nil
}

// Load reads the configuration from file or environment variables,
// falling back to defaults when no config file exists.
func Load() (*Config, error) {
	v, err := LoadViper()
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.workers", 0) // 0 = inline executor
	v.SetDefault("scheduler.busCapacity", 256)
	v.SetDefault("logging.level", "info")
}
