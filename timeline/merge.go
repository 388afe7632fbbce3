package timeline

import (
	"fmt"
	"math"

	"github.com/obinnaokechukwu/vidgraph/graph"
)

// OverlayMerge draws the top track at (X, Y) over the bottom track and
// mixes their audio.
type OverlayMerge struct {
	Span
	X, Y int
}

// Overlay returns an overlay merge. Multitrack uses Overlay(0, 0) between
// tracks that have no explicit merge.
func Overlay(x, y int, span Span) *OverlayMerge {
	return &OverlayMerge{Span: span, X: x, Y: y}
}

// Combine implements Merge. When both tracks are bounded the result lasts
// as long as the shorter one and both sides are trimmed to it.
func (o *OverlayMerge) Combine(a, b *graph.Subgraph) (*graph.Subgraph, error) {
	la, aok := a.Props.Length()
	lb, bok := b.Props.Length()
	var props graph.Props
	if aok && bok {
		length := math.Min(la, lb)
		props = spanProps(a, length)
		if a.Props.Bounded() && b.Props.Bounded() {
			trim, err := graph.Trim(0, length)
			if err != nil {
				return nil, fmt.Errorf("overlay: %w", err)
			}
			if a, err = a.Then(trim); err != nil {
				return nil, err
			}
			if b, err = b.Then(trim); err != nil {
				return nil, err
			}
		}
	}
	n := graph.NewNode(props).
		With(graph.Video, graph.NewFilter("overlay", "x", o.X, "y", o.Y), 2, 1).
		With(graph.Audio, graph.NewFilter("amix", "inputs", 2, "duration", "shortest"), 2, 1)
	return graph.Join(n, a, b)
}
