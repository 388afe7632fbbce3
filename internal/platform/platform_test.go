//go:build !ios && !android && (amd64 || arm64)

package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLibraryName(t *testing.T) {
	switch runtime.GOOS {
	case "darwin":
		assert.Equal(t, "libavcodec.61.dylib", LibraryName("avcodec", 61))
		assert.Equal(t, "libavcodec.dylib", LibraryName("avcodec", 0))
	case "windows":
		assert.Equal(t, "avcodec-61.dll", LibraryName("avcodec", 61))
		assert.Equal(t, "avcodec.dll", LibraryName("avcodec", 0))
	default:
		assert.Equal(t, "libavcodec.so.61", LibraryName("avcodec", 61))
		assert.Equal(t, "libavcodec.so", LibraryName("avcodec", 0))
	}
}

func TestSearchPathsPutsExtraFirst(t *testing.T) {
	paths := SearchPaths("/opt/ffmpeg/lib")
	assert.Equal(t, "/opt/ffmpeg/lib", paths[0])
	assert.Greater(t, len(paths), 1)
}

func TestSearchPathsReadsEnvironment(t *testing.T) {
	env := "LD_LIBRARY_PATH"
	switch runtime.GOOS {
	case "darwin":
		env = "DYLD_LIBRARY_PATH"
	case "windows":
		env = "PATH"
	}
	t.Setenv(env, "/from/env")
	assert.Contains(t, SearchPaths(), "/from/env")
}
