package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level simulation configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Skills     SkillsConfig     `mapstructure:"skills"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SimulationConfig tunes the core's bounded resources and guards.
type SimulationConfig struct {
	Seed               int64 `mapstructure:"seed"`
	ActionQueueLimit   int   `mapstructure:"action_queue_limit"`
	ActionTimeoutTicks int64 `mapstructure:"action_timeout_ticks"`
}

// SkillsConfig locates and bounds the skill registry.
type SkillsConfig struct {
	DefinitionFile string `mapstructure:"definition_file"`
	CacheLimit     int    `mapstructure:"cache_limit"`
	CacheTTLTicks  int64  `mapstructure:"cache_ttl_ticks"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the configuration file, applying defaults and environment
// overrides (TYCOON_ prefix). A missing file falls back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("simulation.seed", 1)
	v.SetDefault("simulation.action_queue_limit", 8)
	v.SetDefault("simulation.action_timeout_ticks", 600)
	v.SetDefault("skills.definition_file", "config/skills.yaml")
	v.SetDefault("skills.cache_limit", 256)
	v.SetDefault("skills.cache_ttl_ticks", 3600)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix("TYCOON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
