package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/internal/fakeav"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

func newInput(p *fakeav.Provider) *fakeav.Input {
	return p.AddInput("in.mp4", &fakeav.Input{
		StreamList: []*fakeav.Stream{
			{Idx: 0, Type: avutil.MediaTypeVideo, ID: avutil.CodecIDH264, Base: avutil.NewRational(1, 12800), Legacy: p.LegacyContext("legacy0")},
			{Idx: 1, Type: avutil.MediaTypeAudio, ID: avutil.CodecIDAAC, Base: avutil.NewRational(1, 48000)},
		},
	})
}

func TestOpenInputBuildsObjects(t *testing.T) {
	p := fakeav.New(avutil.CodecIDH264, avutil.CodecIDAAC)
	newInput(p)

	b, err := stream.OpenInput(p, "in.mp4", nil)
	require.NoError(t, err)
	require.Len(t, b.Objects, 2)

	assert.Equal(t, avutil.MediaTypeVideo, b.Objects[0].Kind)
	assert.Equal(t, 0, b.Objects[0].Index)
	assert.NotNil(t, b.Objects[0].Legacy)
	assert.Nil(t, b.Objects[1].Legacy)
	assert.Equal(t, avutil.NewRational(1, 48000), b.Objects[1].TimeBase())
	assert.False(t, b.IsOutput())

	info := stream.Describe(b)
	assert.Equal(t, "h264", info.Streams[0].Codec)
	assert.Equal(t, "audio", info.Streams[1].Kind)
	assert.Equal(t, map[avutil.MediaType]int{avutil.MediaTypeVideo: 1, avutil.MediaTypeAudio: 1}, stream.CountKinds(b))
}

func TestOpenInputMissing(t *testing.T) {
	p := fakeav.New()
	_, err := stream.OpenInput(p, "nope.mp4", nil)
	assert.ErrorIs(t, err, avutil.ErrResource)

	_, err = stream.NewOutput(p, "nope.mkv", "", nil)
	assert.ErrorIs(t, err, avutil.ErrResource)
}

func TestBundleCloseReleasesOnce(t *testing.T) {
	p := fakeav.New(avutil.CodecIDH264, avutil.CodecIDAAC)
	in := newInput(p)

	b, err := stream.OpenInput(p, "in.mp4", nil)
	require.NoError(t, err)

	legacy := in.StreamList[0].Legacy
	fresh := &fakeav.Context{}
	b.Objects[0].Context = fresh

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	require.NoError(t, b.Objects[0].Close())

	assert.Equal(t, 1, legacy.Closes)
	assert.Equal(t, 1, fresh.Closes)
	assert.Equal(t, 1, in.Closes)
	assert.True(t, b.Closed())
}

func TestOutputBundle(t *testing.T) {
	p := fakeav.New()
	out := p.AddOutput("out.mkv", &fakeav.Output{})
	newInput(p)

	in, err := stream.OpenInput(p, "in.mp4", nil)
	require.NoError(t, err)

	b, err := stream.NewOutput(p, "out.mkv", "matroska", avutil.Options{"live": true})
	require.NoError(t, err)
	b.Objects = stream.OutputFrom(in)

	require.Len(t, b.Objects, 2)
	for i, obj := range b.Objects {
		assert.Equal(t, in.Objects[i].Kind, obj.Kind)
		assert.Equal(t, in.Objects[i].CodecID, obj.CodecID)
		assert.Nil(t, obj.Legacy)
		assert.Nil(t, obj.Input)
		assert.Nil(t, obj.Context)
	}

	sub := b.AddObject(avutil.MediaTypeSubtitle, avutil.CodecIDMOVText)
	assert.Equal(t, 2, sub.Index)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, 1, out.Frees)
}
