//go:build !ios && !android && (amd64 || arm64)

package ffmpeg

import (
	"context"
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/graph"
	"github.com/obinnaokechukwu/vidgraph/pipeline"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

func requireFFmpeg(t *testing.T) *Provider {
	t.Helper()
	if testing.Short() {
		t.Skip("needs FFmpeg shared libraries")
	}
	p, err := New()
	if err != nil {
		t.Skipf("FFmpeg not available: %v", err)
	}
	return p
}

// writeWAV writes one second of a 16-bit mono ramp.
func writeWAV(t *testing.T, path string, rate int) {
	t.Helper()
	samples := make([]int16, rate)
	for i := range samples {
		samples[i] = int16(i % 2000)
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	dataLen := uint32(len(samples) * 2)
	w := func(v any) { require.NoError(t, binary.Write(f, binary.LittleEndian, v)) }
	_, err = f.WriteString("RIFF")
	require.NoError(t, err)
	w(36 + dataLen)
	_, err = f.WriteString("WAVEfmt ")
	require.NoError(t, err)
	w(uint32(16))
	w(uint16(1)) // PCM
	w(uint16(1))
	w(uint32(rate))
	w(uint32(rate * 2))
	w(uint16(2))
	w(uint16(16))
	_, err = f.WriteString("data")
	require.NoError(t, err)
	w(dataLen)
	w(samples)
}

func TestParseLogLevel(t *testing.T) {
	l, err := ParseLogLevel("Warning")
	require.NoError(t, err)
	assert.Equal(t, LogWarning, l)

	_, err = ParseLogLevel("loud")
	assert.ErrorIs(t, err, avutil.ErrConfiguration)
}

func TestLogLevelSlog(t *testing.T) {
	assert.Equal(t, slog.LevelError, LogFatal.Slog())
	assert.Equal(t, slog.LevelWarn, LogWarning.Slog())
	assert.Equal(t, slog.LevelInfo, LogInfo.Slog())
	assert.Equal(t, slog.LevelDebug, LogTrace.Slog())
}

func TestSetLogLevel(t *testing.T) {
	requireFFmpeg(t)
	prev, err := GetLogLevel()
	require.NoError(t, err)
	defer SetLogLevel(prev)

	require.NoError(t, SetLogLevel(LogError))
	got, err := GetLogLevel()
	require.NoError(t, err)
	assert.Equal(t, LogError, got)
}

func TestFindCodecs(t *testing.T) {
	p := requireFFmpeg(t)

	dec, err := p.FindDecoder(avutil.CodecIDPCMS16LE)
	require.NoError(t, err)
	assert.Equal(t, "pcm_s16le", dec.Name())
	assert.Equal(t, avutil.CodecIDPCMS16LE, dec.ID())

	_, err = p.FindDecoder(avutil.CodecID(-42))
	assert.ErrorIs(t, err, stream.ErrCodecNotFound)

	ctx, err := p.NewCodecContext(dec)
	require.NoError(t, err)
	ctx.SetTimeBase(avutil.NewRational(1, 8000))
	assert.Equal(t, avutil.NewRational(1, 8000), ctx.TimeBase())
	require.NoError(t, ctx.Close())
	require.NoError(t, ctx.Close())
}

func TestOpenMissingInput(t *testing.T) {
	p := requireFFmpeg(t)
	_, err := stream.OpenInput(p, filepath.Join(t.TempDir(), "missing.wav"), nil)
	require.ErrorIs(t, err, avutil.ErrResource)
	assert.NotZero(t, avutil.Code(err))
}

func TestProbeWAV(t *testing.T) {
	p := requireFFmpeg(t)
	in := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, in, 8000)

	b, err := stream.OpenInput(p, in, nil)
	require.NoError(t, err)
	defer b.Close()

	require.Len(t, b.Objects, 1)
	obj := b.Objects[0]
	assert.Equal(t, avutil.MediaTypeAudio, obj.Kind)
	assert.Equal(t, avutil.CodecIDPCMS16LE, obj.CodecID)
	assert.Equal(t, avutil.NewRational(1, 8000), obj.TimeBase())
	assert.Equal(t, "wav", b.Input().(*inputContainer).FormatName())
}

func TestRemuxWAVToMatroska(t *testing.T) {
	p := requireFFmpeg(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "tone.wav")
	out := filepath.Join(dir, "tone.mkv")
	writeWAV(t, in, 8000)

	lk := &pipeline.Linker{Provider: p}
	stats, err := lk.Run(context.Background(), in, out, pipeline.Options{})
	require.NoError(t, err)
	require.Len(t, stats.Streams, 1)
	assert.Positive(t, stats.Streams[0].Packets)

	b, err := stream.OpenInput(p, out, nil)
	require.NoError(t, err)
	defer b.Close()
	require.Len(t, b.Objects, 1)
	assert.Equal(t, avutil.CodecIDPCMS16LE, b.Objects[0].CodecID)
}

func TestCheckFilterGraph(t *testing.T) {
	requireFFmpeg(t)
	if err := initFilter(); err != nil {
		t.Skipf("libavfilter not available: %v", err)
	}

	src, err := graph.Color("black", 64, 64, 1)
	require.NoError(t, err)
	scale, err := graph.Scale(32, 32)
	require.NoError(t, err)
	sg, err := scale(src)
	require.NoError(t, err)
	script, err := graph.Render(sg)
	require.NoError(t, err)

	require.NoError(t, CheckFilterGraph(script.Text))

	err = CheckFilterGraph("nosuchfilter=x=1")
	assert.ErrorIs(t, err, avutil.ErrGraph)
}
