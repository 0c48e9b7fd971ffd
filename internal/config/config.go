// Package config provides Viper-based configuration loading for the battle simulator.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// BattleConfig holds the tuning parameters of the simulation. The readiness
// threshold, gauge rate, variance bounds, and critical-hit numbers are data,
// not constants: scenario balance lives here.
type BattleConfig struct {
	// ReadyThreshold is the gauge value at which a combatant becomes ready to act.
	ReadyThreshold float64 `mapstructure:"ready_threshold"`
	// GaugeRate scales gauge accrual: gauge += speed * GaugeRate * dt.
	GaugeRate float64 `mapstructure:"gauge_rate"`
	// VarianceMin and VarianceMax bound the random damage/heal multiplier.
	VarianceMin float64 `mapstructure:"variance_min"`
	VarianceMax float64 `mapstructure:"variance_max"`
	// CritChance is the probability in [0,1] of a critical hit.
	CritChance float64 `mapstructure:"crit_chance"`
	// CritMultiplier scales damage on a critical hit.
	CritMultiplier float64 `mapstructure:"crit_multiplier"`
	// StartingGaugeMax is the upper bound for randomized starting gauges.
	// 0 starts every combatant at gauge 0, which keeps runs reproducible.
	StartingGaugeMax float64 `mapstructure:"starting_gauge_max"`
}

// ContentConfig holds the catalog definition directories.
type ContentConfig struct {
	// ActionsDir is the directory of action YAML definitions.
	ActionsDir string `mapstructure:"actions_dir"`
	// StatusesDir is the directory of status YAML definitions.
	StatusesDir string `mapstructure:"statuses_dir"`
	// BattlersDir is the directory of battler template YAML definitions.
	BattlersDir string `mapstructure:"battlers_dir"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Battle  BattleConfig  `mapstructure:"battle"`
	Content ContentConfig `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.ReadyThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("battle.ready_threshold must be > 0, got %g", b.ReadyThreshold))
	}
	if b.GaugeRate <= 0 {
		errs = append(errs, fmt.Sprintf("battle.gauge_rate must be > 0, got %g", b.GaugeRate))
	}
	if b.VarianceMin <= 0 {
		errs = append(errs, fmt.Sprintf("battle.variance_min must be > 0, got %g", b.VarianceMin))
	}
	if b.VarianceMax < b.VarianceMin {
		errs = append(errs, "battle.variance_max must not be less than battle.variance_min")
	}
	if b.CritChance < 0 || b.CritChance > 1 {
		errs = append(errs, fmt.Sprintf("battle.crit_chance must be in [0,1], got %g", b.CritChance))
	}
	if b.CritMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("battle.crit_multiplier must be >= 1, got %g", b.CritMultiplier))
	}
	if b.StartingGaugeMax < 0 {
		errs = append(errs, fmt.Sprintf("battle.starting_gauge_max must be >= 0, got %g", b.StartingGaugeMax))
	}
	if b.ReadyThreshold > 0 && b.StartingGaugeMax >= b.ReadyThreshold {
		errs = append(errs, "battle.starting_gauge_max must be below battle.ready_threshold")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.ActionsDir == "" {
		errs = append(errs, "content.actions_dir must not be empty")
	}
	if c.StatusesDir == "" {
		errs = append(errs, "content.statuses_dir must not be empty")
	}
	if c.BattlersDir == "" {
		errs = append(errs, "content.battlers_dir must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with BATTLE_ prefix
	v.SetEnvPrefix("BATTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("battle.ready_threshold", 296.0)
	v.SetDefault("battle.gauge_rate", 5.0)
	v.SetDefault("battle.variance_min", 0.85)
	v.SetDefault("battle.variance_max", 1.15)
	v.SetDefault("battle.crit_chance", 0.15)
	v.SetDefault("battle.crit_multiplier", 2.0)
	v.SetDefault("battle.starting_gauge_max", 0.0)

	v.SetDefault("content.actions_dir", "content/actions")
	v.SetDefault("content.statuses_dir", "content/statuses")
	v.SetDefault("content.battlers_dir", "content/battlers")
}
