//go:build !ios && !android && (amd64 || arm64)

// Package bindings locates and opens the FFmpeg shared libraries.
//
// Libraries are opened RTLD_NOW|RTLD_GLOBAL in dependency order (avutil,
// avcodec, avformat) because they resolve symbols from each other.
// libavfilter is optional and only opened on demand.
package bindings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/obinnaokechukwu/vidgraph/internal/platform"
)

var (
	// ErrNotLoaded is returned by FFmpeg calls made before Load succeeded.
	ErrNotLoaded = errors.New("vidgraph: FFmpeg libraries not loaded")
	// ErrLibraryNotFound is returned when no candidate file could be opened.
	ErrLibraryNotFound = errors.New("vidgraph: FFmpeg library not found")
)

// Major versions tried for each library, newest first.
var (
	avutilVersions   = []int{60, 59, 58, 57}
	avcodecVersions  = []int{62, 61, 60, 59}
	avformatVersions = []int{62, 61, 60, 59}
	avfilterVersions = []int{11, 10, 9, 8}
)

var (
	mu        sync.Mutex
	searchDir string
	loaded    bool
	loadErr   error

	libAVUtil, libAVCodec, libAVFormat, libAVFilter uintptr
	filterErr                                       error
	filterTried                                     bool

	avutilVersion   func() uint32
	avcodecVersion  func() uint32
	avformatVersion func() uint32
	avfilterVersion func() uint32
)

// SetSearchDir adds dir in front of the default search paths. It has no
// effect once Load has run.
func SetSearchDir(dir string) {
	mu.Lock()
	defer mu.Unlock()
	searchDir = dir
}

// Load opens avutil, avcodec and avformat. Only the first call does any
// work; later calls return its result.
func Load() error {
	mu.Lock()
	defer mu.Unlock()
	if loaded || loadErr != nil {
		return loadErr
	}
	loadErr = load()
	loaded = loadErr == nil
	return loadErr
}

func load() error {
	var err error
	if libAVUtil, err = open("avutil", avutilVersions); err != nil {
		return err
	}
	if libAVCodec, err = open("avcodec", avcodecVersions); err != nil {
		return err
	}
	if libAVFormat, err = open("avformat", avformatVersions); err != nil {
		return err
	}
	purego.RegisterLibFunc(&avutilVersion, libAVUtil, "avutil_version")
	purego.RegisterLibFunc(&avcodecVersion, libAVCodec, "avcodec_version")
	purego.RegisterLibFunc(&avformatVersion, libAVFormat, "avformat_version")
	return nil
}

// LoadFilter opens libavfilter after the core libraries.
func LoadFilter() (uintptr, error) {
	if err := Load(); err != nil {
		return 0, err
	}
	mu.Lock()
	defer mu.Unlock()
	if !filterTried {
		filterTried = true
		libAVFilter, filterErr = open("avfilter", avfilterVersions)
		if filterErr == nil {
			purego.RegisterLibFunc(&avfilterVersion, libAVFilter, "avfilter_version")
		}
	}
	return libAVFilter, filterErr
}

// IsLoaded reports whether Load succeeded.
func IsLoaded() bool {
	mu.Lock()
	defer mu.Unlock()
	return loaded
}

// open tries every search directory and then the bare file names, letting
// the system loader resolve them.
func open(name string, versions []int) (uintptr, error) {
	var candidates []string
	for _, dir := range platform.SearchPaths(extraDirs()...) {
		for _, v := range versions {
			candidates = append(candidates, filepath.Join(dir, platform.LibraryName(name, v)))
		}
		candidates = append(candidates, filepath.Join(dir, platform.LibraryName(name, 0)))
	}
	for _, v := range versions {
		candidates = append(candidates, platform.LibraryName(name, v))
	}
	candidates = append(candidates, platform.LibraryName(name, 0))

	for _, c := range candidates {
		if lib, err := purego.Dlopen(c, purego.RTLD_NOW|purego.RTLD_GLOBAL); err == nil {
			return lib, nil
		}
	}
	return 0, fmt.Errorf("%w: lib%s", ErrLibraryNotFound, name)
}

// extraDirs must be called with mu held.
func extraDirs() []string {
	if searchDir == "" {
		return nil
	}
	return []string{searchDir}
}

// Find returns the path the loader would pick for name, for diagnostics.
func Find(name string) (string, error) {
	versions := map[string][]int{
		"avutil":   avutilVersions,
		"avcodec":  avcodecVersions,
		"avformat": avformatVersions,
		"avfilter": avfilterVersions,
	}[name]
	mu.Lock()
	dirs := platform.SearchPaths(extraDirs()...)
	mu.Unlock()
	for _, dir := range dirs {
		for _, v := range append(versions, 0) {
			p := filepath.Join(dir, platform.LibraryName(name, v))
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%w: lib%s", ErrLibraryNotFound, name)
}

// LibAVUtil returns the avutil handle, or 0.
func LibAVUtil() uintptr { return libAVUtil }

// LibAVCodec returns the avcodec handle, or 0.
func LibAVCodec() uintptr { return libAVCodec }

// LibAVFormat returns the avformat handle, or 0.
func LibAVFormat() uintptr { return libAVFormat }

// Versions reports the loaded library versions as "major.minor.micro".
func Versions() map[string]string {
	out := make(map[string]string)
	if !IsLoaded() {
		return out
	}
	out["avutil"] = versionString(avutilVersion())
	out["avcodec"] = versionString(avcodecVersion())
	out["avformat"] = versionString(avformatVersion())
	if avfilterVersion != nil {
		out["avfilter"] = versionString(avfilterVersion())
	}
	return out
}

func versionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>16, (v>>8)&0xff, v&0xff)
}
