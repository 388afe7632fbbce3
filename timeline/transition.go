package timeline

import (
	"fmt"
	"math"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/graph"
)

func checkDuration(name string, d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return fmt.Errorf("%w: %s duration %v", avutil.ErrConfiguration, name, d)
	}
	return nil
}

func lengths(name string, a, b *graph.Subgraph) (float64, float64, error) {
	la, aok := a.Props.Length()
	lb, bok := b.Props.Length()
	if !aok || !bok {
		return 0, 0, fmt.Errorf("%w: %s needs clips of known length", avutil.ErrConfiguration, name)
	}
	return la, lb, nil
}

// CrossFade blends the tail of one clip into the head of the next.
type CrossFade struct {
	Span
	Duration float64
}

// Fade returns a cross fade of d seconds.
func Fade(d float64, span Span) (*CrossFade, error) {
	if err := checkDuration("fade", d); err != nil {
		return nil, err
	}
	return &CrossFade{Span: span, Duration: d}, nil
}

// Overlap implements Transition.
func (f *CrossFade) Overlap() float64 { return f.Duration }

// Combine implements Transition with xfade and acrossfade.
func (f *CrossFade) Combine(a, b *graph.Subgraph) (*graph.Subgraph, error) {
	la, lb, err := lengths("fade", a, b)
	if err != nil {
		return nil, err
	}
	if la < f.Duration || lb < f.Duration {
		return nil, fmt.Errorf("%w: fade of %vs is longer than %vs or %vs", avutil.ErrConfiguration, f.Duration, la, lb)
	}
	n := graph.NewNode(spanProps(a, la+lb-f.Duration)).
		With(graph.Video, graph.NewFilter("xfade",
			"transition", "fade", "duration", f.Duration, "offset", la-f.Duration), 2, 1).
		With(graph.Audio, graph.NewFilter("acrossfade", "d", f.Duration), 2, 1)
	return graph.Join(n, a, b)
}

// CompositeTransition slides the incoming clip in over a colour background
// while the outgoing clip plays out.
type CompositeTransition struct {
	Span
	Duration float64
	Width    int
	Height   int
	Color    string
}

// Composite returns a composite transition of d seconds on a width x height
// canvas.
func Composite(d float64, width, height int, color string, span Span) (*CompositeTransition, error) {
	if err := checkDuration("composite", d); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: composite size %dx%d", avutil.ErrConfiguration, width, height)
	}
	if color == "" {
		color = "black"
	}
	return &CompositeTransition{Span: span, Duration: d, Width: width, Height: height, Color: color}, nil
}

// Overlap implements Transition.
func (c *CompositeTransition) Overlap() float64 { return c.Duration }

// Combine implements Transition. Both clips are split into a head and a
// tail through fifo branches; the overlapping parts are layered on the
// background and the three parts concatenated.
func (c *CompositeTransition) Combine(a, b *graph.Subgraph) (*graph.Subgraph, error) {
	la, lb, err := lengths("composite", a, b)
	if err != nil {
		return nil, err
	}
	d := c.Duration
	if la <= d || lb <= d {
		return nil, fmt.Errorf("%w: composite of %vs needs clips longer than %vs and %vs", avutil.ErrConfiguration, d, la, lb)
	}

	as, err := graph.Fanout(a, graph.Video, 2)
	if err != nil {
		return nil, err
	}
	bs, err := graph.Fanout(b, graph.Video, 2)
	if err != nil {
		return nil, err
	}
	scale, err := graph.Scale(c.Width, c.Height)
	if err != nil {
		return nil, err
	}

	aHead, err := trimmed(as[0], 0, la-d)
	if err != nil {
		return nil, err
	}
	aTail, err := trimmed(as[1], la-d, la, scale)
	if err != nil {
		return nil, err
	}
	bHead, err := trimmed(bs[0], 0, d, scale, video("format", "pix_fmts", "yuva420p"),
		video("fade", "t", "in", "st", 0, "d", d, "alpha", 1))
	if err != nil {
		return nil, err
	}
	bTail, err := trimmed(bs[1], d, lb)
	if err != nil {
		return nil, err
	}

	bg, err := graph.Background(c.Color, c.Width, c.Height, d)
	if err != nil {
		return nil, err
	}
	under, err := graph.Join(overlay(), bg, aTail)
	if err != nil {
		return nil, err
	}
	middle, err := graph.Join(overlay(), under, bHead)
	if err != nil {
		return nil, err
	}
	concat := graph.NewNode(nil).With(graph.Video, graph.NewFilter("concat", "n", 3, "v", 1, "a", 0), 3, 1)
	vid, err := graph.Join(concat, aHead, middle, bTail)
	if err != nil {
		return nil, err
	}

	fade := graph.NewNode(nil).With(graph.Audio, graph.NewFilter("acrossfade", "d", d), 2, 1)
	aud, err := graph.Join(fade, a, b)
	if err != nil {
		return nil, err
	}
	props := spanProps(a, la+lb-d)
	props[graph.PropWidth] = c.Width
	props[graph.PropHeight] = c.Height
	return graph.Group(props, vid, aud), nil
}

func trimmed(s *graph.Subgraph, start, end float64, then ...graph.Builder) (*graph.Subgraph, error) {
	trim, err := graph.Trim(start, end)
	if err != nil {
		return nil, err
	}
	return s.Then(append([]graph.Builder{trim}, then...)...)
}

func video(name string, kv ...any) graph.Builder {
	f := graph.NewFilter(name, kv...)
	return func(up *graph.Subgraph) (*graph.Subgraph, error) {
		return graph.Append(up, graph.NewNode(nil).With(graph.Video, f, 1, 1))
	}
}

func overlay() *graph.Node {
	return graph.NewNode(nil).With(graph.Video, graph.NewFilter("overlay", "x", 0, "y", 0), 2, 1)
}
