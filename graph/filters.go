package graph

import (
	"fmt"
	"math"
	"slices"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// MixerKeys are the colorchannelmixer coefficients in option order.
var MixerKeys = []string{
	"rr", "rg", "rb", "ra",
	"gr", "gg", "gb", "ga",
	"br", "bg", "bb", "ba",
	"ar", "ag", "ab", "aa",
}

// TransposeDirections are the accepted transpose directions.
var TransposeDirections = []string{"cclock_flip", "clock", "cclock", "clock_flip"}

// FadeCurves are the accepted afade curves.
var FadeCurves = []string{
	"tri", "qsin", "hsin", "esin", "log", "ipar", "qua", "cub", "squ", "cbr",
	"par", "exp", "iqsin", "ihsin", "dese", "desi", "losi", "sinc", "isinc", "nofade",
}

// node appends a fresh copy of n and then overrides sizing props.
func node(n *Node, props Props) Builder {
	return func(up *Subgraph) (*Subgraph, error) {
		out, err := Append(up, n.Copy())
		if err != nil {
			return nil, err
		}
		for k, v := range props {
			out.Props[k] = v
		}
		return out, nil
	}
}

// Scale resizes video.
func Scale(width, height int) (Builder, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	n := NewNode(nil).With(Video, NewFilter("scale", "w", width, "h", height), 1, 1)
	return node(n, Props{PropWidth: width, PropHeight: height}), nil
}

// Crop cuts a width x height rectangle at (x, y).
func Crop(width, height, x, y int) (Builder, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	if x < 0 || y < 0 {
		return nil, fmt.Errorf("%w: crop offset %d,%d is negative", avutil.ErrConfiguration, x, y)
	}
	n := NewNode(nil).With(Video, NewFilter("crop", "w", width, "h", height, "x", x, "y", y), 1, 1)
	return node(n, Props{PropWidth: width, PropHeight: height}), nil
}

// Pad places video at (x, y) on a width x height canvas.
func Pad(width, height, x, y int, color string) (Builder, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	if x < 0 || y < 0 {
		return nil, fmt.Errorf("%w: pad offset %d,%d is negative", avutil.ErrConfiguration, x, y)
	}
	if color == "" {
		color = "black"
	}
	n := NewNode(nil).With(Video,
		NewFilter("pad", "width", width, "height", height, "x", x, "y", y, "color", color), 1, 1)
	return node(n, Props{PropWidth: width, PropHeight: height}), nil
}

// Transpose rotates by 90 degrees, optionally flipping.
func Transpose(dir string) (Builder, error) {
	if !slices.Contains(TransposeDirections, dir) {
		return nil, fmt.Errorf("%w: transpose direction %q", avutil.ErrConfiguration, dir)
	}
	n := NewNode(nil).With(Video, NewFilter("transpose", "dir", dir), 1, 1)
	return func(up *Subgraph) (*Subgraph, error) {
		out, err := Append(up, n.Copy())
		if err != nil {
			return nil, err
		}
		w, wok := up.Props.Int(PropWidth)
		h, hok := up.Props.Int(PropHeight)
		if wok && hok {
			out.Props[PropWidth], out.Props[PropHeight] = h, w
		}
		return out, nil
	}, nil
}

// Rotate rotates video by angle radians.
func Rotate(angle float64) (Builder, error) {
	if !finite(angle) {
		return nil, fmt.Errorf("%w: rotate angle %v", avutil.ErrConfiguration, angle)
	}
	n := NewNode(nil).With(Video, NewFilter("rotate", "angle", angle), 1, 1)
	return node(n, nil), nil
}

// ColorChannelMixer remixes colour channels. Keys must be in MixerKeys and
// values in [-2, 2].
func ColorChannelMixer(coeffs map[string]float64) (Builder, error) {
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("%w: colorchannelmixer needs coefficients", avutil.ErrConfiguration)
	}
	for k, v := range coeffs {
		if !slices.Contains(MixerKeys, k) {
			return nil, fmt.Errorf("%w: colorchannelmixer key %q", avutil.ErrConfiguration, k)
		}
		if math.IsNaN(v) || v < -2 || v > 2 {
			return nil, fmt.Errorf("%w: colorchannelmixer %s=%v out of [-2, 2]", avutil.ErrConfiguration, k, v)
		}
	}
	f := NewFilter("colorchannelmixer")
	for _, k := range MixerKeys {
		if v, ok := coeffs[k]; ok {
			f.Params = append(f.Params, Param{Key: k, Value: v})
		}
	}
	return node(NewNode(nil).With(Video, f, 1, 1), nil), nil
}

// Grayscale desaturates video with luma weights.
func Grayscale() Builder {
	b, _ := ColorChannelMixer(map[string]float64{
		"rr": .3, "rg": .59, "rb": .11,
		"gr": .3, "gg": .59, "gb": .11,
		"br": .3, "bg": .59, "bb": .11,
	})
	return b
}

// Sepia tints video brown.
func Sepia() Builder {
	b, _ := ColorChannelMixer(map[string]float64{
		"rr": .393, "rg": .769, "rb": .189,
		"gr": .349, "gg": .686, "gb": .168,
		"br": .272, "bg": .534, "bb": .131,
	})
	return b
}

// Mux keeps or drops each kind. Dropped kinds end in a null sink; kinds the
// upstream does not carry are left alone.
func Mux(keepVideo, keepAudio bool) (Builder, error) {
	if !keepVideo && !keepAudio {
		return nil, fmt.Errorf("%w: mux must keep video or audio", avutil.ErrConfiguration)
	}
	return func(up *Subgraph) (*Subgraph, error) {
		n := NewNode(nil)
		if up.Has(Video) {
			if keepVideo {
				n.With(Video, NewFilter("null"), 1, 1)
			} else {
				n.With(Video, NewFilter("nullsink"), 1, 0)
			}
		}
		if up.Has(Audio) {
			if keepAudio {
				n.With(Audio, NewFilter("anull"), 1, 1)
			} else {
				n.With(Audio, NewFilter("anullsink"), 1, 0)
			}
		}
		if len(n.Kinds()) == 0 {
			return nil, fmt.Errorf("%w: mux has no upstream outputs", avutil.ErrGraph)
		}
		return Append(up, n)
	}, nil
}

// EnvelopeOptions configure an audio fade.
type EnvelopeOptions struct {
	// Direction is "in" or "out".
	Direction string
	Start     float64
	Duration  float64
	// Curve defaults to "tri".
	Curve string
}

// Envelope fades audio in or out.
func Envelope(opts EnvelopeOptions) (Builder, error) {
	if opts.Direction != "in" && opts.Direction != "out" {
		return nil, fmt.Errorf("%w: envelope direction %q", avutil.ErrConfiguration, opts.Direction)
	}
	if !finite(opts.Start) || opts.Start < 0 {
		return nil, fmt.Errorf("%w: envelope start %v", avutil.ErrConfiguration, opts.Start)
	}
	if !finite(opts.Duration) || opts.Duration <= 0 {
		return nil, fmt.Errorf("%w: envelope duration %v", avutil.ErrConfiguration, opts.Duration)
	}
	curve := opts.Curve
	if curve == "" {
		curve = "tri"
	}
	if !slices.Contains(FadeCurves, curve) {
		return nil, fmt.Errorf("%w: envelope curve %q", avutil.ErrConfiguration, curve)
	}
	n := NewNode(nil).With(Audio, NewFilter("afade",
		"t", opts.Direction, "st", opts.Start, "d", opts.Duration, "curve", curve), 1, 1)
	return node(n, nil), nil
}

// Volume scales audio amplitude.
func Volume(factor float64) (Builder, error) {
	if !finite(factor) || factor < 0 {
		return nil, fmt.Errorf("%w: volume %v", avutil.ErrConfiguration, factor)
	}
	n := NewNode(nil).With(Audio, NewFilter("volume", "volume", factor), 1, 1)
	return node(n, nil), nil
}

// Trim keeps [start, end) of every kind the upstream carries and resets
// timestamps to zero.
func Trim(start, end float64) (Builder, error) {
	if !finite(start) || !finite(end) || start < 0 || end <= start {
		return nil, fmt.Errorf("%w: trim %v..%v", avutil.ErrConfiguration, start, end)
	}
	return func(up *Subgraph) (*Subgraph, error) {
		kinds := up.Kinds()
		if len(kinds) == 0 {
			return nil, fmt.Errorf("%w: trim has no upstream outputs", avutil.ErrGraph)
		}
		trim := NewNode(nil)
		for _, k := range kinds {
			name := "trim"
			if k == Audio {
				name = "atrim"
			}
			trim.With(k, NewFilter(name, "start", start, "end", end), 1, 1)
		}
		out, err := Append(up, trim)
		if err != nil {
			return nil, err
		}
		if out, err = Append(out, resetPTS(kinds...)); err != nil {
			return nil, err
		}
		out.Props[PropStart] = 0.0
		out.Props[PropEnd] = end - start
		out.Props[PropLength] = end - start
		return out, nil
	}, nil
}
