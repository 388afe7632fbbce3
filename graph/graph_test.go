package graph

import (
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

func clip(t *testing.T, path string, opts ClipOptions) *Subgraph {
	t.Helper()
	s, err := Clip(path, opts)
	require.NoError(t, err)
	return s
}

func TestClipRender(t *testing.T) {
	script, err := Render(clip(t, "a.mp4", ClipOptions{}))
	require.NoError(t, err)
	assert.Equal(t, "movie=filename=a.mp4[vout0];amovie=filename=a.mp4[aout0]", script.Text)
	assert.Equal(t, []string{"vout0"}, script.Outputs[Video])
	assert.Equal(t, []string{"aout0"}, script.Outputs[Audio])
	assert.Equal(t, 2, script.Instances)
}

func TestTrimmedClipThenScale(t *testing.T) {
	scale, err := Scale(640, 360)
	require.NoError(t, err)
	sub, err := clip(t, "a.mp4", ClipOptions{Start: Seconds(1), End: Seconds(3)}).Then(scale)
	require.NoError(t, err)

	script, err := Render(sub)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"movie=filename=a.mp4[e0]",
		"amovie=filename=a.mp4[e1]",
		"[e0]trim=start=1:end=3[e2]",
		"[e1]atrim=start=1:end=3[e3]",
		"[e2]setpts=expr=PTS-STARTPTS[e4]",
		"[e3]asetpts=expr=PTS-STARTPTS[aout0]",
		"[e4]scale=w=640:h=360[vout0]",
	}, ";"), script.Text)

	l, ok := sub.Props.Length()
	require.True(t, ok)
	assert.Equal(t, 2.0, l)
	w, _ := sub.Props.Int(PropWidth)
	assert.Equal(t, 640, w)
	assert.Len(t, sub.Sources, 1)
}

func TestClipEndOnlyStartsAtZero(t *testing.T) {
	sub := clip(t, "a.mp4", ClipOptions{End: Seconds(4)})
	assert.True(t, sub.Props.Bounded())
	l, ok := sub.Props.Length()
	require.True(t, ok)
	assert.InDelta(t, 4.0, l, 1e-9)

	script, err := Render(sub)
	require.NoError(t, err)
	assert.Contains(t, script.Text, "trim=end=4")
	assert.NotContains(t, script.Text, "trim=start")
}

func TestClipOptionErrors(t *testing.T) {
	for name, opts := range map[string]ClipOptions{
		"negative start": {Start: Seconds(-1)},
		"end before":     {Start: Seconds(3), End: Seconds(2)},
		"infinite end":   {End: Seconds(math.Inf(1))},
		"negative size":  {Width: -1, Height: 10},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Clip("a.mp4", opts)
			assert.ErrorIs(t, err, avutil.ErrConfiguration)
		})
	}
	_, err := Clip("", ClipOptions{})
	assert.ErrorIs(t, err, avutil.ErrConfiguration)
}

func TestColorRender(t *testing.T) {
	sub, err := Color("red", 320, 240, 2)
	require.NoError(t, err)
	script, err := Render(sub)
	require.NoError(t, err)
	assert.Equal(t,
		"color=c=red:s=320x240:d=2[vout0];"+
			"anullsrc=channel_layout=stereo:sample_rate=48000[e0];"+
			"[e0]atrim=duration=2[aout0]",
		script.Text)

	_, err = Color("red", 0, 240, 2)
	assert.ErrorIs(t, err, avutil.ErrConfiguration)
	_, err = Blank(0)
	assert.ErrorIs(t, err, avutil.ErrConfiguration)
}

func TestImage(t *testing.T) {
	sub, err := Image("still.png", 4)
	require.NoError(t, err)
	script, err := Render(sub)
	require.NoError(t, err)
	assert.Contains(t, script.Text, "loop=loop=-1:size=1")
	assert.Contains(t, script.Text, "trim=duration=4")
	assert.Len(t, script.Outputs[Video], 1)
	assert.Len(t, script.Outputs[Audio], 1)
}

func TestFanoutInsertsFifoPerBranch(t *testing.T) {
	src := clip(t, "a.mp4", ClipOptions{})
	branches, err := Fanout(src, Video, 2)
	require.NoError(t, err)
	require.Len(t, branches, 2)

	overlay := NewNode(nil).With(Video, NewFilter("overlay"), 2, 1)
	joined, err := Join(overlay, branches...)
	require.NoError(t, err)
	// The clip's audio stays unconsumed until grouped back in.
	require.ErrorIs(t, Validate(joined), avutil.ErrGraph)

	script, err := Render(Group(nil, joined, src))
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"movie=filename=a.mp4[e0]",
		"amovie=filename=a.mp4[aout0]",
		"[e0]split=outputs=2[e1][e2]",
		"[e1]fifo[e3]",
		"[e2]fifo[e4]",
		"[e3][e4]overlay[vout0]",
	}, ";"), script.Text)

	_, err = Fanout(src, Video, 1)
	assert.ErrorIs(t, err, avutil.ErrConfiguration)
}

func TestAudioFanout(t *testing.T) {
	branches, err := Fanout(clip(t, "a.mp4", ClipOptions{}), Audio, 3)
	require.NoError(t, err)
	require.Len(t, branches, 3)
	n, ok := branches[0].Graph.Node(branches[2].Sinks[0])
	require.True(t, ok)
	assert.Equal(t, "afifo", n.Filters[Audio].Name)
}

func TestAppendWithoutFreeOutput(t *testing.T) {
	bg, err := Background("blue", 64, 64, 1)
	require.NoError(t, err)
	vol, err := Volume(0.5)
	require.NoError(t, err)
	_, err = bg.Then(vol)
	assert.ErrorIs(t, err, avutil.ErrGraph)
}

func TestJoinPortMismatch(t *testing.T) {
	a := clip(t, "a.mp4", ClipOptions{})
	n := NewNode(nil).With(Video, NewFilter("overlay"), 2, 1)
	_, err := Join(n, a)
	assert.ErrorIs(t, err, avutil.ErrGraph)
}

func TestValidate(t *testing.T) {
	t.Run("dangling sink", func(t *testing.T) {
		s := clip(t, "a.mp4", ClipOptions{})
		s.Sinks = append(s.Sinks, uuid.New())
		assert.ErrorIs(t, Validate(s), avutil.ErrGraph)
	})
	t.Run("dangling source", func(t *testing.T) {
		s := clip(t, "a.mp4", ClipOptions{})
		s.Sources = []uuid.UUID{uuid.New()}
		assert.ErrorIs(t, Validate(s), avutil.ErrGraph)
	})
	t.Run("undeclared free output", func(t *testing.T) {
		s := clip(t, "a.mp4", ClipOptions{})
		s.Sinks = nil
		assert.ErrorIs(t, Validate(s), avutil.ErrGraph)
	})
	t.Run("unconnected input", func(t *testing.T) {
		s := clip(t, "a.mp4", ClipOptions{})
		n := NewNode(nil).With(Video, NewFilter("null"), 1, 1)
		s.Graph.Add(n)
		s.Sinks = append(s.Sinks, n.ID)
		assert.ErrorIs(t, Validate(s), avutil.ErrGraph)
	})
	t.Run("output reused", func(t *testing.T) {
		s := clip(t, "a.mp4", ClipOptions{})
		src := s.Sources[0]
		for range 2 {
			n := NewNode(nil).With(Video, NewFilter("null"), 1, 1)
			s.Graph.Add(n)
			s.Graph.Connect(Edge{From: src, To: n.ID, Kind: Video})
			s.Sinks = append(s.Sinks, n.ID)
		}
		assert.ErrorIs(t, Validate(s), avutil.ErrGraph)
	})
	t.Run("port out of range", func(t *testing.T) {
		s := clip(t, "a.mp4", ClipOptions{})
		n := NewNode(nil).With(Video, NewFilter("null"), 1, 1)
		s.Graph.Add(n)
		s.Graph.Connect(Edge{From: s.Sources[0], FromPort: 3, To: n.ID, Kind: Video})
		s.Sinks = append(s.Sinks, n.ID)
		assert.ErrorIs(t, Validate(s), avutil.ErrGraph)
	})
	t.Run("nil", func(t *testing.T) {
		assert.ErrorIs(t, Validate(nil), avutil.ErrGraph)
	})
}

func TestFilterArguments(t *testing.T) {
	for name, build := range map[string]func() (Builder, error){
		"scale":        func() (Builder, error) { return Scale(0, 10) },
		"crop size":    func() (Builder, error) { return Crop(0, 10, 0, 0) },
		"crop offset":  func() (Builder, error) { return Crop(10, 10, -1, 0) },
		"pad":          func() (Builder, error) { return Pad(10, -10, 0, 0, "") },
		"transpose":    func() (Builder, error) { return Transpose("upside") },
		"rotate":       func() (Builder, error) { return Rotate(math.NaN()) },
		"mixer key":    func() (Builder, error) { return ColorChannelMixer(map[string]float64{"xx": 1}) },
		"mixer range":  func() (Builder, error) { return ColorChannelMixer(map[string]float64{"rr": 2.5}) },
		"mixer empty":  func() (Builder, error) { return ColorChannelMixer(nil) },
		"mux":          func() (Builder, error) { return Mux(false, false) },
		"curve":        func() (Builder, error) { return Envelope(EnvelopeOptions{Direction: "in", Duration: 1, Curve: "wobble"}) },
		"duration":     func() (Builder, error) { return Envelope(EnvelopeOptions{Direction: "out"}) },
		"direction":    func() (Builder, error) { return Envelope(EnvelopeOptions{Direction: "up", Duration: 1}) },
		"volume":       func() (Builder, error) { return Volume(-0.1) },
		"trim":         func() (Builder, error) { return Trim(2, 1) },
		"mixer -2..2":  func() (Builder, error) { return ColorChannelMixer(map[string]float64{"aa": -2.01}) },
		"rotate +Inf":  func() (Builder, error) { return Rotate(math.Inf(1)) },
		"scale height": func() (Builder, error) { return Scale(10, -1) },
	} {
		t.Run(name, func(t *testing.T) {
			b, err := build()
			assert.ErrorIs(t, err, avutil.ErrConfiguration)
			assert.Nil(t, b)
		})
	}
}

func TestMixerPresets(t *testing.T) {
	sub, err := clip(t, "a.mp4", ClipOptions{}).Then(Grayscale())
	require.NoError(t, err)
	script, err := Render(sub)
	require.NoError(t, err)
	assert.Contains(t, script.Text,
		"colorchannelmixer=rr=0.3:rg=0.59:rb=0.11:gr=0.3:gg=0.59:gb=0.11:br=0.3:bg=0.59:bb=0.11")

	sub, err = clip(t, "a.mp4", ClipOptions{}).Then(Sepia())
	require.NoError(t, err)
	script, err = Render(sub)
	require.NoError(t, err)
	assert.Contains(t, script.Text,
		"colorchannelmixer=rr=0.393:rg=0.769:rb=0.189:gr=0.349:gg=0.686:gb=0.168:br=0.272:bg=0.534:bb=0.131")

	edge, err := ColorChannelMixer(map[string]float64{"aa": -2, "rr": 2})
	require.NoError(t, err)
	assert.NotNil(t, edge)
}

func TestBuilderReuseAllocatesNewNodes(t *testing.T) {
	gray := Grayscale()
	a, err := clip(t, "a.mp4", ClipOptions{}).Then(gray)
	require.NoError(t, err)
	b, err := clip(t, "b.mp4", ClipOptions{}).Then(gray)
	require.NoError(t, err)
	assert.NotEqual(t, a.Sinks[0], b.Sinks[0])
}

func TestMuxDropsAudio(t *testing.T) {
	mux, err := Mux(true, false)
	require.NoError(t, err)
	sub, err := clip(t, "a.mp4", ClipOptions{}).Then(mux)
	require.NoError(t, err)
	script, err := Render(sub)
	require.NoError(t, err)
	assert.Equal(t,
		"movie=filename=a.mp4[e0];amovie=filename=a.mp4[e1];[e0]null[vout0];[e1]anullsink",
		script.Text)
	assert.Empty(t, script.Outputs[Audio])

	// A video-only upstream needs no audio sink.
	bg, err := Background("black", 16, 16, 1)
	require.NoError(t, err)
	sub, err = bg.Then(mux)
	require.NoError(t, err)
	assert.Equal(t, []avutil.MediaType{Video}, sub.Kinds())
}

func TestEnvelopeAndVolume(t *testing.T) {
	env, err := Envelope(EnvelopeOptions{Direction: "out", Start: 4, Duration: 1.5})
	require.NoError(t, err)
	vol, err := Volume(2)
	require.NoError(t, err)
	sub, err := clip(t, "a.mp4", ClipOptions{}).Then(env, vol)
	require.NoError(t, err)
	script, err := Render(sub)
	require.NoError(t, err)
	assert.Contains(t, script.Text, "[e0]afade=t=out:st=4:d=1.5:curve=tri[e1]")
	assert.Contains(t, script.Text, "[e1]volume=volume=2[aout0]")
	assert.Contains(t, script.Text, "movie=filename=a.mp4[vout0]")
}

func TestTransposeSwapsSize(t *testing.T) {
	tr, err := Transpose("clock")
	require.NoError(t, err)
	sub, err := clip(t, "a.mp4", ClipOptions{Width: 640, Height: 360}).Then(tr)
	require.NoError(t, err)
	w, _ := sub.Props.Int(PropWidth)
	h, _ := sub.Props.Int(PropHeight)
	assert.Equal(t, 360, w)
	assert.Equal(t, 640, h)
}

func TestTrimBuilder(t *testing.T) {
	trim, err := Trim(1, 4)
	require.NoError(t, err)
	sub, err := clip(t, "a.mp4", ClipOptions{}).Then(trim)
	require.NoError(t, err)
	require.NoError(t, Validate(sub))
	l, ok := sub.Props.Length()
	require.True(t, ok)
	assert.Equal(t, 3.0, l)
}

func TestEscapeValue(t *testing.T) {
	assert.Equal(t, "plain.mp4", escapeValue("plain.mp4"))
	assert.Equal(t, `\'dir/my clip.mp4\'`, escapeValue("dir/my clip.mp4"))
	assert.Equal(t, `\'a:b\'\\\'\'c\'`, escapeValue("a:b'c"))
	assert.Equal(t, "movie=filename="+`\'x\,y.mp4\'`, NewFilter("movie", "filename", "x,y.mp4").String())
}

func TestProps(t *testing.T) {
	p := Props{PropStart: 1, PropEnd: int64(4)}
	l, ok := p.Length()
	require.True(t, ok)
	assert.Equal(t, 3.0, l)
	assert.True(t, p.Bounded())
	_, ok = Props{PropStart: 1.0}.Length()
	assert.False(t, ok)
	assert.Empty(t, Props{}.Chapters())

	c := p.Clone()
	c[PropStart] = 0
	assert.Equal(t, 1, p[PropStart])
}
