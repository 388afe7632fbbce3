// Package timeline assembles compiled clips into playlists and multitrack
// layers.
//
// A Playlist plays clips one after another, optionally bridging adjacent
// clips with a Transition. A Multitrack layers clips on top of each other,
// combining adjacent tracks with a Merge. Both locate the clips a
// transition or merge refers to by identity, so the same *graph.Subgraph
// value must be passed to the playlist and to the anchor.
package timeline

import "github.com/obinnaokechukwu/vidgraph/graph"

// Span names the two clips a transition or merge joins. A nil end is
// filled from the clip next to the transition in the item list.
type Span struct {
	From *graph.Subgraph
	To   *graph.Subgraph
}

// Anchors returns the clips the span joins.
func (s Span) Anchors() (from, to *graph.Subgraph) {
	return s.From, s.To
}

// Transition bridges the end of one clip and the start of the next.
type Transition interface {
	Anchors() (from, to *graph.Subgraph)
	// Combine splices the two clips into one subgraph.
	Combine(a, b *graph.Subgraph) (*graph.Subgraph, error)
	// Overlap is how many seconds the two clips share.
	Overlap() float64
}

// Merge layers one track over another.
type Merge interface {
	Anchors() (bottom, top *graph.Subgraph)
	Combine(a, b *graph.Subgraph) (*graph.Subgraph, error)
}

// Track1 is implemented by transitions and merges that also rework the
// first clip before combining.
type Track1 interface {
	Track1(a *graph.Subgraph) (*graph.Subgraph, error)
}

// Track2 is the counterpart of Track1 for the second clip.
type Track2 interface {
	Track2(b *graph.Subgraph) (*graph.Subgraph, error)
}

// prepare runs the optional single-track hooks of c.
func prepare(c any, a, b *graph.Subgraph) (*graph.Subgraph, *graph.Subgraph, error) {
	var err error
	if t, ok := c.(Track1); ok {
		if a, err = t.Track1(a); err != nil {
			return nil, nil, err
		}
	}
	if t, ok := c.(Track2); ok {
		if b, err = t.Track2(b); err != nil {
			return nil, nil, err
		}
	}
	return a, b, nil
}

func size(s *graph.Subgraph) (int, int, bool) {
	w, wok := s.Props.Int(graph.PropWidth)
	h, hok := s.Props.Int(graph.PropHeight)
	return w, h, wok && hok && w > 0 && h > 0
}

// spanProps describes a combined clip of the given length, keeping the size
// of base.
func spanProps(base *graph.Subgraph, length float64) graph.Props {
	p := graph.Props{
		graph.PropStart:  0.0,
		graph.PropEnd:    length,
		graph.PropLength: length,
	}
	if w, h, ok := size(base); ok {
		p[graph.PropWidth] = w
		p[graph.PropHeight] = h
	}
	return p
}
