package mpegts

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	mcmpegts "github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/pipeline"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

var (
	testSPS = []byte{
		0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02, 0x27, 0xe5, 0x84, 0x00,
		0x00, 0x03, 0x00, 0x04, 0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9, 0x20,
	}
	testPPS = []byte{0x08, 0x06, 0x07, 0x08}

	testAAC = mpeg4audio.AudioSpecificConfig{
		Type:         mpeg4audio.ObjectTypeAACLC,
		SampleRate:   48000,
		ChannelCount: 2,
	}
)

// writeFixture writes n video access units 3000 ticks apart and n AAC
// access units 1920 ticks apart.
func writeFixture(t *testing.T, path string, n int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	video := &mcmpegts.Track{Codec: &mcmpegts.CodecH264{}}
	audio := &mcmpegts.Track{Codec: &mcmpegts.CodecMPEG4Audio{Config: testAAC}}
	bw := bufio.NewWriter(f)
	w := &mcmpegts.Writer{W: bw, Tracks: []*mcmpegts.Track{video, audio}}
	require.NoError(t, w.Initialize())

	for i := 0; i < n; i++ {
		pts := int64(90000 + i*3000)
		require.NoError(t, w.WriteH264(video, pts, pts, [][]byte{testSPS, testPPS, {0x05, byte(i)}}))
		apts := int64(90000 + i*1920)
		require.NoError(t, w.WriteMPEG4Audio(audio, apts, [][]byte{{0x21, byte(i), 0x03}}))
	}
	require.NoError(t, bw.Flush())
}

func readAll(t *testing.T, in stream.InputContainer) []*Packet {
	t.Helper()
	var out []*Packet
	for {
		pkt, err := in.ReadPacket()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, pkt.(*Packet))
	}
}

func byIndex(pkts []*Packet, index int) []*Packet {
	var out []*Packet
	for _, p := range pkts {
		if p.Index == index {
			out = append(out, p)
		}
	}
	return out
}

func TestHandles(t *testing.T) {
	assert.True(t, Handles("a.ts"))
	assert.True(t, Handles("dir/B.M2TS"))
	assert.False(t, Handles("a.mp4"))
}

func TestCodecs(t *testing.T) {
	p := New(nil)
	c, err := p.FindEncoder(avutil.CodecIDH264)
	require.NoError(t, err)
	assert.Equal(t, "h264_copy", c.Name())

	_, err = p.FindDecoder(avutil.CodecIDVP9)
	assert.ErrorIs(t, err, stream.ErrCodecNotFound)

	ctx, err := p.NewCodecContext(c)
	require.NoError(t, err)
	assert.Equal(t, TimeBase, ctx.TimeBase())
	require.NoError(t, ctx.Open(c, nil))
	require.NoError(t, ctx.Close())
}

func TestAllocOutputFormat(t *testing.T) {
	p := New(nil)
	_, err := p.AllocOutput("out.mp4", "")
	assert.ErrorIs(t, err, avutil.ErrConfiguration)
	_, err = p.AllocOutput("out.mp4", "matroska")
	assert.ErrorIs(t, err, avutil.ErrConfiguration)

	_, err = p.AllocOutput("out.bin", FormatName)
	assert.NoError(t, err)
	_, err = p.AllocOutput("out.ts", "")
	assert.NoError(t, err)
}

func TestReadTracks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.ts")
	writeFixture(t, path, 5)

	b, err := stream.OpenInput(New(nil), path, nil)
	require.NoError(t, err)
	defer b.Close()

	require.Len(t, b.Objects, 2)
	assert.Equal(t, avutil.MediaTypeVideo, b.Objects[0].Kind)
	assert.Equal(t, avutil.CodecIDH264, b.Objects[0].CodecID)
	assert.Equal(t, avutil.MediaTypeAudio, b.Objects[1].Kind)
	assert.Equal(t, avutil.CodecIDAAC, b.Objects[1].CodecID)
	assert.Equal(t, TimeBase, b.Objects[1].TimeBase())

	pkts := readAll(t, b.Input())
	video, audio := byIndex(pkts, 0), byIndex(pkts, 1)
	require.Len(t, video, 5)
	require.Len(t, audio, 5)

	for i := range video {
		assert.Equal(t, int64(i*3000), video[i].Pts-video[0].Pts)
		assert.True(t, video[i].Key)
		assert.Equal(t, int64(i*1920), audio[i].Pts-audio[0].Pts)
		assert.Equal(t, int64(1920), audio[i].Dur)
		assert.Equal(t, [][]byte{{0x21, byte(i), 0x03}}, audio[i].Payload)
	}
}

func TestOpenInputErrors(t *testing.T) {
	p := New(nil)
	_, err := stream.OpenInput(p, filepath.Join(t.TempDir(), "missing.ts"), nil)
	assert.ErrorIs(t, err, avutil.ErrResource)

	junk := filepath.Join(t.TempDir(), "junk.ts")
	require.NoError(t, os.WriteFile(junk, []byte("not a transport stream"), 0o644))
	_, err = stream.OpenInput(p, junk, nil)
	assert.ErrorIs(t, err, avutil.ErrResource)
}

func TestRemux(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.ts")
	out := filepath.Join(dir, "out.ts")
	writeFixture(t, in, 8)

	p := New(nil)
	lk := &pipeline.Linker{Provider: p, QueueCapacity: 4}
	stats, err := lk.Run(context.Background(), in, out, pipeline.Options{})
	require.NoError(t, err)
	require.Len(t, stats.Streams, 2)
	assert.Equal(t, int64(8), stats.Streams[0].Packets)
	assert.Equal(t, int64(8), stats.Streams[1].Packets)

	b, err := stream.OpenInput(p, out, nil)
	require.NoError(t, err)
	defer b.Close()
	require.Len(t, b.Objects, 2)
	assert.Equal(t, avutil.CodecIDH264, b.Objects[0].CodecID)
	assert.Equal(t, avutil.CodecIDAAC, b.Objects[1].CodecID)

	pkts := readAll(t, b.Input())
	assert.Len(t, byIndex(pkts, 0), 8)
	assert.Len(t, byIndex(pkts, 1), 8)
}

func TestPacketRescale(t *testing.T) {
	p := &Packet{Pts: 90000, Dts: avutil.NoPTS, Dur: 1920}
	p.Rescale(TimeBase, avutil.NewRational(1, 1000))
	assert.Equal(t, int64(1000), p.Pts)
	assert.Equal(t, avutil.NoPTS, p.Dts)
	assert.Equal(t, int64(21), p.Dur)

	p.Release()
	assert.Nil(t, p.Payload)
}
