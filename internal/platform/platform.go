//go:build !ios && !android && (amd64 || arm64)

// Package platform names shared libraries the way the host loader expects.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Extension is the shared library suffix of the host.
func Extension() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	}
	return ".so"
}

// LibraryName returns the file name of library name at a major version.
// Version 0 means unversioned.
//
//	linux:   LibraryName("avcodec", 61) == "libavcodec.so.61"
//	darwin:  LibraryName("avcodec", 61) == "libavcodec.61.dylib"
//	windows: LibraryName("avcodec", 61) == "avcodec-61.dll"
func LibraryName(name string, version int) string {
	ext := Extension()
	switch runtime.GOOS {
	case "windows":
		if version > 0 {
			return fmt.Sprintf("%s-%d%s", name, version, ext)
		}
		return name + ext
	case "darwin":
		if version > 0 {
			return fmt.Sprintf("lib%s.%d%s", name, version, ext)
		}
		return "lib" + name + ext
	}
	if version > 0 {
		return fmt.Sprintf("lib%s%s.%d", name, ext, version)
	}
	return "lib" + name + ext
}

// SearchPaths lists directories to look for FFmpeg in, most specific first.
// Entries of extra come before everything else.
func SearchPaths(extra ...string) []string {
	paths := append([]string(nil), extra...)
	env := "LD_LIBRARY_PATH"
	switch runtime.GOOS {
	case "darwin":
		env = "DYLD_LIBRARY_PATH"
	case "windows":
		env = "PATH"
	}
	if v := os.Getenv(env); v != "" {
		paths = append(paths, filepath.SplitList(v)...)
	}

	switch runtime.GOOS {
	case "linux":
		paths = append(paths,
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/usr/local/lib",
			"/usr/lib",
			"/lib",
		)
	case "darwin":
		paths = append(paths,
			"/opt/homebrew/lib",
			"/opt/homebrew/opt/ffmpeg/lib",
			"/usr/local/lib",
			"/usr/local/opt/ffmpeg/lib",
		)
	case "windows":
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Dir(exe))
		}
		paths = append(paths, `C:\ffmpeg\bin`, `C:\Program Files\ffmpeg\bin`)
	default:
		paths = append(paths, "/usr/local/lib", "/usr/lib")
	}
	return paths
}
