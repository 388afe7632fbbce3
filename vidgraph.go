//go:build !ios && !android && (amd64 || arm64)

// Package vidgraph remuxes media files and compiles timeline compositions
// into FFmpeg filter graphs, without CGO.
//
// Most programs need only Remux, or Open followed by pipeline.Linker for
// finer control. Compositions are built with the graph and timeline
// packages and checked against the local FFmpeg with CheckGraph.
package vidgraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/config"
	"github.com/obinnaokechukwu/vidgraph/ffmpeg"
	"github.com/obinnaokechukwu/vidgraph/internal/bindings"
	"github.com/obinnaokechukwu/vidgraph/mpegts"
	"github.com/obinnaokechukwu/vidgraph/pipeline"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// Version is the release of this module, overridden at link time.
var Version = "0.1.0-dev"

// Re-exported error taxonomy.
var (
	ErrConfiguration  = avutil.ErrConfiguration
	ErrResource       = avutil.ErrResource
	ErrGraph          = avutil.ErrGraph
	ErrStreamDispatch = avutil.ErrStreamDispatch
)

type (
	// Rational is a time base or frame rate.
	Rational = avutil.Rational
	// Options are string key/value settings passed to FFmpeg.
	Options = avutil.Options
	// Stats summarises a remux.
	Stats = pipeline.Stats
)

// Init loads FFmpeg from the library search path, trying libraryPath first
// when it is not empty. It is safe to call more than once but only the
// first call picks the search path.
func Init(libraryPath string) error {
	if libraryPath != "" {
		bindings.SetSearchDir(libraryPath)
	}
	return ffmpeg.Init()
}

// IsLoaded reports whether FFmpeg has been loaded.
func IsLoaded() bool {
	return bindings.IsLoaded()
}

// LibraryVersions returns the loaded FFmpeg library versions keyed by library
// name, or nil before Init.
func LibraryVersions() map[string]string {
	if !bindings.IsLoaded() {
		return nil
	}
	return ffmpeg.Versions()
}

// SelectProvider returns the container provider for a remux of input into
// output. The auto choice uses the pure Go MPEG-TS provider when both paths
// are transport streams and FFmpeg otherwise.
func SelectProvider(name, input, output string, logger *slog.Logger) (stream.Provider, error) {
	switch name {
	case config.ProviderMPEGTS:
		return mpegts.New(logger), nil
	case config.ProviderFFmpeg:
		return ffmpeg.New()
	case config.ProviderAuto, "":
		if mpegts.Handles(input) && mpegts.Handles(output) {
			return mpegts.New(logger), nil
		}
		return ffmpeg.New()
	}
	return nil, fmt.Errorf("%w: unknown provider %q", ErrConfiguration, name)
}

// Remux copies every stream of input into output with the settings in cfg.
// A nil cfg uses the defaults.
func Remux(ctx context.Context, cfg *config.Config, input, output string, opts pipeline.Options, logger *slog.Logger) (*Stats, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FFmpeg.LibraryPath != "" {
		bindings.SetSearchDir(cfg.FFmpeg.LibraryPath)
	}
	p, err := SelectProvider(cfg.Pipeline.Provider, input, output, logger)
	if err != nil {
		return nil, err
	}
	if _, ok := p.(*ffmpeg.Provider); ok {
		if err := configureFFmpegLogs(cfg, logger); err != nil {
			return nil, err
		}
	}
	l := &pipeline.Linker{
		Provider:      p,
		QueueCapacity: cfg.Pipeline.QueueCapacity,
		Logger:        logger,
	}
	return l.Run(ctx, input, output, opts)
}

// Probe opens path and describes its streams.
func Probe(p stream.Provider, path string) (stream.Info, error) {
	b, err := stream.OpenInput(p, path, nil)
	if err != nil {
		return stream.Info{}, err
	}
	defer b.Close()
	return stream.Describe(b), nil
}

// CheckGraph asks libavfilter to parse a rendered filter graph.
func CheckGraph(text string) error {
	return ffmpeg.CheckFilterGraph(text)
}

func configureFFmpegLogs(cfg *config.Config, logger *slog.Logger) error {
	level, err := ffmpeg.ParseLogLevel(cfg.FFmpeg.LogLevel)
	if err != nil {
		return err
	}
	if err := ffmpeg.SetLogLevel(level); err != nil {
		return err
	}
	if err := ffmpeg.ForwardLogs(logger, level); err != nil {
		logger.Debug("ffmpeg logs stay on stderr", slog.Any("error", err))
	}
	return nil
}
