//go:build !ios && !android && (amd64 || arm64)

package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/internal/shim"
)

// LogLevel is an AV_LOG_* value.
type LogLevel int32

const (
	LogQuiet   LogLevel = -8
	LogPanic   LogLevel = 0
	LogFatal   LogLevel = 8
	LogError   LogLevel = 16
	LogWarning LogLevel = 24
	LogInfo    LogLevel = 32
	LogVerbose LogLevel = 40
	LogDebug   LogLevel = 48
	LogTrace   LogLevel = 56
)

var logLevels = map[string]LogLevel{
	"quiet":   LogQuiet,
	"panic":   LogPanic,
	"fatal":   LogFatal,
	"error":   LogError,
	"warning": LogWarning,
	"info":    LogInfo,
	"verbose": LogVerbose,
	"debug":   LogDebug,
	"trace":   LogTrace,
}

// ParseLogLevel accepts the names FFmpeg's -loglevel flag accepts.
func ParseLogLevel(s string) (LogLevel, error) {
	if l, ok := logLevels[strings.ToLower(s)]; ok {
		return l, nil
	}
	return 0, fmt.Errorf("%w: unknown ffmpeg log level %q", avutil.ErrConfiguration, s)
}

// Slog maps the level onto slog levels.
func (l LogLevel) Slog() slog.Level {
	switch {
	case l <= LogError:
		return slog.LevelError
	case l <= LogWarning:
		return slog.LevelWarn
	case l <= LogInfo:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// SetLogLevel sets the level of FFmpeg's own logger.
func SetLogLevel(level LogLevel) error {
	if err := Init(); err != nil {
		return err
	}
	avLogSetLevel(int32(level))
	return nil
}

// GetLogLevel returns the level of FFmpeg's own logger.
func GetLogLevel() (LogLevel, error) {
	if err := Init(); err != nil {
		return 0, err
	}
	return LogLevel(avLogGetLevel()), nil
}

var (
	logMu     sync.Mutex
	logTarget *slog.Logger
	logCB     uintptr
)

// ForwardLogs sends FFmpeg log lines to logger. It needs the ffshim helper
// library; without it FFmpeg keeps printing to stderr and shim.ErrNotLoaded
// is returned. A nil logger restores the default callback.
func ForwardLogs(logger *slog.Logger, level LogLevel) error {
	shim.Load()
	if !shim.IsLoaded() {
		return fmt.Errorf("%w: %w", shim.ErrNotLoaded, shim.Err())
	}

	logMu.Lock()
	defer logMu.Unlock()
	if logger == nil {
		logTarget = nil
		return shim.SetLogCallback(0)
	}
	logTarget = logger.With(slog.String("component", "ffmpeg"))
	if logCB == 0 {
		logCB = purego.NewCallback(logTrampoline)
	}
	if err := shim.SetLogLevel(int32(level)); err != nil {
		return err
	}
	return shim.SetLogCallback(logCB)
}

// logTrampoline has the shim callback signature
// void (*)(void *avcl, int level, const char *msg).
func logTrampoline(_ purego.CDecl, _ unsafe.Pointer, level int32, msg *byte) {
	logMu.Lock()
	l := logTarget
	logMu.Unlock()
	if l == nil {
		return
	}
	text := strings.TrimRight(goString(msg), "\n")
	if text == "" {
		return
	}
	l.Log(context.Background(), LogLevel(level).Slog(), text, slog.Int("av_level", int(level)))
}
