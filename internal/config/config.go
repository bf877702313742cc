// Package config loads user settings from ~/.config/cadence/config.yaml,
// CADENCE_* environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/utils"
)

type Config struct {
	Database     string `mapstructure:"database" validate:"required"`
	Debug        bool   `mapstructure:"debug"`
	LogLevel     string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat    string `mapstructure:"log_format" validate:"omitempty,oneof=text json"`
	Timezone     string `mapstructure:"timezone" validate:"required"`
	Stride       string `mapstructure:"stride" validate:"oneof=fixed calendar"`
	MaxRetries   int    `mapstructure:"max_retries" validate:"gte=0,lte=100"`
	DefaultCount int    `mapstructure:"default_count" validate:"gte=1,lte=5000"`
}

// Options locate the config sources. Zero values use the defaults.
type Options struct {
	// Dir holds config.yaml. Defaults to ~/.config/cadence.
	Dir string
	// EnvFile is loaded into the environment when present. Defaults to .env.
	EnvFile string
}

func DefaultDir() string {
	return filepath.Dir(utils.ExpandHome(constants.DefaultConfigPath))
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("database", filepath.Join(dir, constants.AppName+".db"))
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "")
	v.SetDefault("log_format", "text")
	v.SetDefault("timezone", "Local")
	v.SetDefault("stride", constants.StrideFixed)
	v.SetDefault("max_retries", constants.DefaultMaxRetries)
	v.SetDefault("default_count", constants.DefaultExpandCount)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load merges defaults, config.yaml and the environment, in increasing
// precedence. CADENCE_DB_CONNECTION overrides the database entry.
func Load(opts Options) (Config, error) {
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := newViper(dir)
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
	if conn := os.Getenv(constants.EnvDBConnection); conn != "" {
		cfg.Database = conn
	}
	cfg.Database = utils.ExpandHome(cfg.Database)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := utils.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Write stores cfg as config.yaml in dir, creating the directory.
func Write(dir string, cfg Config) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	v := newViper(dir)
	v.Set("database", cfg.Database)
	v.Set("debug", cfg.Debug)
	v.Set("log_level", cfg.LogLevel)
	v.Set("log_format", cfg.LogFormat)
	v.Set("timezone", cfg.Timezone)
	v.Set("stride", cfg.Stride)
	v.Set("max_retries", cfg.MaxRetries)
	v.Set("default_count", cfg.DefaultCount)

	path := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
