// Package config loads server settings from a YAML file, a .env file and
// DUES_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: server.port is read from
// DUES_SERVER_PORT.
const EnvPrefix = "DUES"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	// Path of the SQLite file; ":memory:" keeps everything in memory.
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"` // cron expression for deactivate-expired
}

type ReconcilerConfig struct {
	MaxPeriods          int  `mapstructure:"max_periods"`
	LegacyDailyFallback bool `mapstructure:"legacy_daily_fallback"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SetDefaults registers every key so that AutomaticEnv can override it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "./data/dues.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.spec", "5 0 * * *")
	v.SetDefault("reconciler.max_periods", 500)
	v.SetDefault("reconciler.legacy_daily_fallback", false)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
}

// LoadDotEnv loads path into the process environment if it exists. Values
// already set in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration into v and decodes it. cfgFile may be empty, in
// which case config.yaml is searched in the working directory and in
// $HOME/.config/dues; a missing file is not an error.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	SetDefaults(v)

	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "dues"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Reconciler.MaxPeriods < 0 {
		return fmt.Errorf("invalid reconciler.max_periods: %d", c.Reconciler.MaxPeriods)
	}
	if c.Scheduler.Enabled && c.Scheduler.Spec == "" {
		return errors.New("scheduler.spec is required when the scheduler is enabled")
	}
	return nil
}
