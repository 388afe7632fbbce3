package graph

import (
	"fmt"
	"math"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// Default canvas used by producers that are not given a size.
const (
	DefaultWidth      = 1280
	DefaultHeight     = 720
	DefaultSampleRate = 48000
)

// ClipOptions bound and size a clip. Nil bounds leave the clip open.
type ClipOptions struct {
	Start  *float64
	End    *float64
	Width  int
	Height int
	Title  string
}

// Seconds returns a pointer to s for ClipOptions.
func Seconds(s float64) *float64 {
	return &s
}

// Clip reads video and audio from a media file.
func Clip(path string, opts ClipOptions) (*Subgraph, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: clip path is empty", avutil.ErrConfiguration)
	}
	props := Props{}
	if opts.Title != "" {
		props[PropTitle] = opts.Title
	} else {
		props[PropTitle] = path
	}
	if opts.Width < 0 || opts.Height < 0 {
		return nil, fmt.Errorf("%w: clip size %dx%d", avutil.ErrConfiguration, opts.Width, opts.Height)
	}
	if opts.Width > 0 && opts.Height > 0 {
		props[PropWidth] = opts.Width
		props[PropHeight] = opts.Height
	}
	if opts.Start != nil {
		if !finite(*opts.Start) || *opts.Start < 0 {
			return nil, fmt.Errorf("%w: clip start %v", avutil.ErrConfiguration, *opts.Start)
		}
		props[PropStart] = *opts.Start
	}
	if opts.End != nil {
		if !finite(*opts.End) || *opts.End <= 0 {
			return nil, fmt.Errorf("%w: clip end %v", avutil.ErrConfiguration, *opts.End)
		}
		if opts.Start != nil && *opts.End <= *opts.Start {
			return nil, fmt.Errorf("%w: clip end %v is not after start %v", avutil.ErrConfiguration, *opts.End, *opts.Start)
		}
		props[PropEnd] = *opts.End
		if opts.Start == nil {
			// reading from the beginning
			props[PropStart] = 0.0
		}
	}

	src := NewNode(props).
		With(Video, NewFilter("movie", "filename", path), 0, 1).
		With(Audio, NewFilter("amovie", "filename", path), 0, 1)
	sub := Single(src)
	if opts.Start == nil && opts.End == nil {
		return sub, nil
	}

	var kv []any
	if opts.Start != nil {
		kv = append(kv, "start", *opts.Start)
	}
	if opts.End != nil {
		kv = append(kv, "end", *opts.End)
	}
	trim := NewNode(nil).
		With(Video, NewFilter("trim", kv...), 1, 1).
		With(Audio, NewFilter("atrim", kv...), 1, 1)
	sub, err := Append(sub, trim)
	if err != nil {
		return nil, err
	}
	sub, err = Append(sub, resetPTS(Video, Audio))
	if err != nil {
		return nil, err
	}
	// Trimmed output restarts at zero.
	if l, ok := sub.Props.Length(); ok {
		sub.Props[PropStart] = 0.0
		sub.Props[PropEnd] = l
		sub.Props[PropLength] = l
	}
	return sub, nil
}

// Color is a solid colour with silent audio.
func Color(color string, width, height int, duration float64) (*Subgraph, error) {
	if color == "" {
		return nil, fmt.Errorf("%w: color is empty", avutil.ErrConfiguration)
	}
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	if !finite(duration) || duration <= 0 {
		return nil, fmt.Errorf("%w: color duration %v", avutil.ErrConfiguration, duration)
	}
	src := NewNode(span(duration, width, height)).
		With(Video, NewFilter("color", "c", color, "s", fmt.Sprintf("%dx%d", width, height), "d", duration), 0, 1).
		With(Audio, silence(), 0, 1)
	trim := NewNode(nil).With(Audio, NewFilter("atrim", "duration", duration), 1, 1)
	return Single(src).Then(func(s *Subgraph) (*Subgraph, error) { return Append(s, trim) })
}

// Blank is black video with silent audio at the default size.
func Blank(duration float64) (*Subgraph, error) {
	return Color("black", DefaultWidth, DefaultHeight, duration)
}

// Background is a video-only colour layer.
func Background(color string, width, height int, duration float64) (*Subgraph, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	if color == "" || !finite(duration) || duration <= 0 {
		return nil, fmt.Errorf("%w: background %q for %v", avutil.ErrConfiguration, color, duration)
	}
	src := NewNode(span(duration, width, height)).
		With(Video, NewFilter("color", "c", color, "s", fmt.Sprintf("%dx%d", width, height), "d", duration), 0, 1)
	return Single(src), nil
}

// Image shows a still picture for duration seconds with silent audio.
func Image(path string, duration float64) (*Subgraph, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: image path is empty", avutil.ErrConfiguration)
	}
	if !finite(duration) || duration <= 0 {
		return nil, fmt.Errorf("%w: image duration %v", avutil.ErrConfiguration, duration)
	}
	props := span(duration, 0, 0)
	props[PropTitle] = path
	src := NewNode(props).
		With(Video, NewFilter("movie", "filename", path), 0, 1).
		With(Audio, silence(), 0, 1)
	loop := NewNode(nil).With(Video, NewFilter("loop", "loop", -1, "size", 1), 1, 1)
	trim := NewNode(nil).
		With(Video, NewFilter("trim", "duration", duration), 1, 1).
		With(Audio, NewFilter("atrim", "duration", duration), 1, 1)
	sub := Single(src)
	for _, n := range []*Node{loop, trim, resetPTS(Video, Audio)} {
		var err error
		if sub, err = Append(sub, n); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

func silence() *Filter {
	return NewFilter("anullsrc", "channel_layout", "stereo", "sample_rate", DefaultSampleRate)
}

func resetPTS(kinds ...avutil.MediaType) *Node {
	n := NewNode(nil)
	for _, k := range kinds {
		if k == Video {
			n.With(Video, NewFilter("setpts", "expr", "PTS-STARTPTS"), 1, 1)
		} else {
			n.With(Audio, NewFilter("asetpts", "expr", "PTS-STARTPTS"), 1, 1)
		}
	}
	return n
}

func span(duration float64, width, height int) Props {
	p := Props{PropStart: 0.0, PropEnd: duration, PropLength: duration}
	if width > 0 && height > 0 {
		p[PropWidth] = width
		p[PropHeight] = height
	}
	return p
}

func checkSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: size %dx%d is not positive", avutil.ErrConfiguration, width, height)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
