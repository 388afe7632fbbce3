package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

func validTestConfig() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		FFmpeg:   FFmpegConfig{LogLevel: "error"},
		Pipeline: PipelineConfig{QueueCapacity: 8, Provider: ProviderAuto},
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "error", cfg.FFmpeg.LogLevel)
	assert.Empty(t, cfg.FFmpeg.LibraryPath)
	assert.Zero(t, cfg.Pipeline.QueueCapacity, "unbounded by default")
	assert.Equal(t, ProviderAuto, cfg.Pipeline.Provider)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderAuto, cfg.Pipeline.Provider)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: WARNING
  format: json
ffmpeg:
  log_level: info
  library_path: /opt/ffmpeg/lib
pipeline:
  queue_capacity: 16
  provider: mpegts
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.FFmpeg.LogLevel)
	assert.Equal(t, "/opt/ffmpeg/lib", cfg.FFmpeg.LibraryPath)
	assert.Equal(t, 16, cfg.Pipeline.QueueCapacity)
	assert.Equal(t, ProviderMPEGTS, cfg.Pipeline.Provider)
}

func TestLoadEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VIDGRAPH_PIPELINE_QUEUE_CAPACITY", "3")
	t.Setenv("VIDGRAPH_FFMPEG_LIBRARY_PATH", "/usr/lib/ffmpeg7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Pipeline.QueueCapacity)
	assert.Equal(t, "/usr/lib/ffmpeg7", cfg.FFmpeg.LibraryPath)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, avutil.ErrConfiguration)
}

func TestFromViperRejectsInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("pipeline.provider", "gstreamer")

	_, err := FromViper(v)
	assert.ErrorIs(t, err, avutil.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad ffmpeg level", func(c *Config) { c.FFmpeg.LogLevel = "chatty" }, "ffmpeg.log_level"},
		{"unbounded capacity", func(c *Config) { c.Pipeline.QueueCapacity = 0 }, ""},
		{"negative capacity", func(c *Config) { c.Pipeline.QueueCapacity = -1 }, "queue_capacity"},
		{"bad provider", func(c *Config) { c.Pipeline.Provider = "vlc" }, "pipeline.provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, avutil.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":1`)
}
