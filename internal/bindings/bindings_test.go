//go:build !ios && !android && (amd64 || arm64)

package bindings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionString(t *testing.T) {
	assert.Equal(t, "61.19.100", versionString(61<<16|19<<8|100))
}

func TestFindUnknownLibrary(t *testing.T) {
	_, err := Find("definitely-not-ffmpeg")
	assert.ErrorIs(t, err, ErrLibraryNotFound)
}

func TestLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("loads shared libraries")
	}
	if err := Load(); err != nil {
		t.Skipf("FFmpeg not available: %v", err)
	}
	require.True(t, IsLoaded())
	v := Versions()
	assert.NotEmpty(t, v["avutil"])
	assert.NotEmpty(t, v["avformat"])
}
