// Package config loads vidgraph settings with Viper from defaults, an
// optional YAML file and VIDGRAPH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// EnvPrefix prefixes every environment override, e.g. VIDGRAPH_LOG_LEVEL.
const EnvPrefix = "VIDGRAPH"

// Provider names accepted by pipeline.provider.
const (
	ProviderAuto   = "auto"
	ProviderFFmpeg = "ffmpeg"
	ProviderMPEGTS = "mpegts"
)

// defaultQueueCapacity leaves per-stream queues unbounded.
const defaultQueueCapacity = 0

// Config holds all settings.
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	FFmpeg   FFmpegConfig   `mapstructure:"ffmpeg" yaml:"ffmpeg"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// FFmpegConfig configures the FFmpeg provider.
type FFmpegConfig struct {
	// LogLevel is FFmpeg's own level: quiet, panic, fatal, error, warning,
	// info, verbose, debug or trace.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// LibraryPath is searched before the system library paths.
	LibraryPath string `mapstructure:"library_path" yaml:"library_path"`
}

// PipelineConfig configures remux runs.
type PipelineConfig struct {
	QueueCapacity int    `mapstructure:"queue_capacity" yaml:"queue_capacity"`
	Provider      string `mapstructure:"provider" yaml:"provider"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("ffmpeg.log_level", "error")
	v.SetDefault("ffmpeg.library_path", "")

	v.SetDefault("pipeline.queue_capacity", defaultQueueCapacity)
	v.SetDefault("pipeline.provider", ProviderAuto)
}

// Configure sets up file lookup and environment overrides on v. An empty
// path searches for vidgraph.yaml in the working directory and
// $HOME/.vidgraph.
func Configure(v *viper.Viper, path string) {
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vidgraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.vidgraph")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration into a fresh Viper instance.
func Load(path string) (*Config, error) {
	v := viper.New()
	Configure(v, path)
	if err := Read(v); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Read reads the config file of v. A missing file found by search is not an
// error; an explicit path that cannot be read is.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("%w: reading config file: %w", avutil.ErrConfiguration, err)
		}
	}
	return nil
}

// Default returns the built-in settings.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := FromViper(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling config: %w", avutil.ErrConfiguration, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "warning" {
		c.Log.Level = "warn"
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	c.FFmpeg.LogLevel = strings.ToLower(c.FFmpeg.LogLevel)
	c.Pipeline.Provider = strings.ToLower(c.Pipeline.Provider)
}

var ffmpegLevels = []string{"quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace"}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("%w: log.format must be one of: text, json", avutil.ErrConfiguration)
	}

	valid := false
	for _, l := range ffmpegLevels {
		if c.FFmpeg.LogLevel == l {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: ffmpeg.log_level must be one of: %s", avutil.ErrConfiguration, strings.Join(ffmpegLevels, ", "))
	}

	if c.Pipeline.QueueCapacity < 0 {
		return fmt.Errorf("%w: pipeline.queue_capacity must not be negative", avutil.ErrConfiguration)
	}
	switch c.Pipeline.Provider {
	case ProviderAuto, ProviderFFmpeg, ProviderMPEGTS:
	default:
		return fmt.Errorf("%w: pipeline.provider must be one of: auto, ffmpeg, mpegts", avutil.ErrConfiguration)
	}
	return nil
}

// ParseLevel parses debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: log.level must be one of: debug, info, warn, error", avutil.ErrConfiguration)
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
