//go:build !ios && !android && (amd64 || arm64)

// Package shim binds the optional ffshim helper library, a small C wrapper
// around the variadic parts of the FFmpeg log API that purego cannot call.
// Everything else in vidgraph works without it.
package shim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/obinnaokechukwu/vidgraph/internal/platform"
)

// DirEnv names the directory searched before anything else.
const DirEnv = "VIDGRAPH_SHIM_DIR"

var (
	// ErrNotLoaded is returned by shim calls when the library is absent.
	ErrNotLoaded = errors.New("vidgraph: ffshim library not loaded")
	// ErrNotFound is returned when no shim library file exists.
	ErrNotFound = errors.New("vidgraph: ffshim library not found")
)

var (
	mu      sync.Mutex
	loaded  bool
	tried   bool
	loadErr error
	path    string

	logSetCallback func(cb uintptr)
	logSetLevel    func(level int32)
)

// Load looks for the shim and binds it. A missing shim is not an error for
// Load itself; it is kept for Err and reported by the calls that need it.
func Load() {
	mu.Lock()
	defer mu.Unlock()
	if tried {
		return
	}
	tried = true

	p, err := find()
	if err != nil {
		loadErr = err
		return
	}
	lib, err := purego.Dlopen(p, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		loadErr = fmt.Errorf("%w: %s: %w", ErrNotFound, p, err)
		return
	}
	if err := optional(&logSetCallback, lib, "ffshim_log_set_callback"); err != nil {
		loadErr = err
		return
	}
	if err := optional(&logSetLevel, lib, "ffshim_log_set_level"); err != nil {
		loadErr = err
		return
	}
	path = p
	loaded = true
}

// optional registers a symbol, turning purego's panic into an error.
func optional(fptr any, lib uintptr, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: missing symbol %s", ErrNotFound, name)
		}
	}()
	purego.RegisterLibFunc(fptr, lib, name)
	return nil
}

// IsLoaded reports whether the shim is bound.
func IsLoaded() bool {
	mu.Lock()
	defer mu.Unlock()
	return loaded
}

// Path is the file the shim was loaded from.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return path
}

// Err returns why the shim is not loaded, or nil.
func Err() error {
	mu.Lock()
	defer mu.Unlock()
	return loadErr
}

// SetLogCallback installs a purego callback as the FFmpeg log callback.
// Zero restores the default.
func SetLogCallback(cb uintptr) error {
	if !IsLoaded() {
		return ErrNotLoaded
	}
	logSetCallback(cb)
	return nil
}

// SetLogLevel sets the level below which the shim drops messages.
func SetLogLevel(level int32) error {
	if !IsLoaded() {
		return ErrNotLoaded
	}
	logSetLevel(level)
	return nil
}

// LibraryName is the shim file name on this host.
func LibraryName() string {
	if runtime.GOOS == "windows" {
		return "ffshim" + platform.Extension()
	}
	return platform.LibraryName("ffshim", 0)
}

func find() (string, error) {
	name := LibraryName()
	if dir := os.Getenv(DirEnv); dir != "" {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: %s=%s does not contain %s", ErrNotFound, DirEnv, dir, name)
		}
		return p, nil
	}

	dirs := platform.SearchPaths()
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	for _, dir := range dirs {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %d directories; set %s", ErrNotFound, name, len(dirs), DirEnv)
}
