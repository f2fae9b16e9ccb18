// Package config loads nsemit settings.
//
// Settings are resolved by viper from, lowest priority first:
//
//  1. Built-in defaults (Default)
//  2. A config file: nsemit.yaml or nsemit.toml in $XDG_CONFIG_HOME/nsemit,
//     $HOME/.config/nsemit or the working directory, or the file given with
//     --config
//  3. A .env file in the working directory
//  4. NSEMIT_* environment variables, e.g. NSEMIT_LOG_LEVEL for log.level
//
// The result is decoded into Config and checked with go-playground/validator.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "NSEMIT"

// Config represents the complete nsemit configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Emitter EmitterConfig `mapstructure:"emitter"`
	Script  ScriptConfig  `mapstructure:"script"`
	Replay  ReplayConfig  `mapstructure:"replay"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `mapstructure:"level" validate:"required,loglevel"`
	// Format is json or text.
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
	// File redirects logs from stderr to a file.
	File string `mapstructure:"file"`
}

// EmitterConfig controls the emitters created by the commands.
type EmitterConfig struct {
	// HandlerTimeout bounds each handler's context. Zero disables it.
	HandlerTimeout time.Duration `mapstructure:"handler_timeout" validate:"gte=0"`
}

// ScriptConfig controls Lua script execution.
type ScriptConfig struct {
	// Timeout bounds a whole script run, including the handlers it registers.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// OpenLibs opens the table, string and math libraries in addition to base.
	OpenLibs bool `mapstructure:"open_libs"`
}

// ReplayConfig controls plan replay.
type ReplayConfig struct {
	// Trace writes one JSON record per step and handler invocation.
	Trace bool `mapstructure:"trace"`
}

// WatchConfig controls file watching.
type WatchConfig struct {
	// Debounce is how long a file must be quiet before a rerun.
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Emitter: EmitterConfig{
			HandlerTimeout: 0,
		},
		Script: ScriptConfig{
			Timeout:  30 * time.Second,
			OpenLibs: true,
		},
		Replay: ReplayConfig{
			Trace: true,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}

// SetDefaults registers the built-in configuration on v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.file", defaults.Log.File)

	v.SetDefault("emitter.handler_timeout", defaults.Emitter.HandlerTimeout)

	v.SetDefault("script.timeout", defaults.Script.Timeout)
	v.SetDefault("script.open_libs", defaults.Script.OpenLibs)

	v.SetDefault("replay.trace", defaults.Replay.Trace)

	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
}

// NewViper returns a viper instance with defaults, environment binding and
// the config file search path set up. configFile, when non-empty, replaces
// the search path and must exist.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("nsemit")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	// e.g. NSEMIT_EMITTER_HANDLER_TIMEOUT for emitter.handler_timeout
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file, if any, and decodes and validates v.
// A missing config file is not an error unless it was requested
// explicitly.
func Load(v *viper.Viper) (*Config, error) {
	// .env values never override variables already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &ParseError{Path: ".env", Err: err}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, v.ConfigFileUsed())
		default:
			return nil, &ParseError{Path: v.ConfigFileUsed(), Err: err}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nsemit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nsemit"
	}
	return filepath.Join(home, ".config", "nsemit")
}
