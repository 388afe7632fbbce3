package timeline

import (
	"fmt"
	"slices"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/graph"
)

// Playlist plays clips in order.
type Playlist struct {
	clips []*graph.Subgraph
	// after[i] bridges clips[i] and clips[i+1].
	after map[int]Transition
}

// NewPlaylist places each Transition between the clips it anchors. Items
// are *graph.Subgraph clips or Transitions. A transition with one nil
// anchor takes the clip next to it in items.
func NewPlaylist(items ...any) (*Playlist, error) {
	p := &Playlist{after: make(map[int]Transition)}
	for i, it := range items {
		switch it := it.(type) {
		case *graph.Subgraph:
			if it == nil {
				return nil, fmt.Errorf("%w: playlist item %d is nil", avutil.ErrConfiguration, i)
			}
			if slices.Contains(p.clips, it) {
				return nil, fmt.Errorf("%w: playlist item %d repeats a clip", avutil.ErrConfiguration, i)
			}
			p.clips = append(p.clips, it)
		case Transition:
		default:
			return nil, fmt.Errorf("%w: playlist item %d has type %T", avutil.ErrConfiguration, i, it)
		}
	}
	if len(p.clips) == 0 {
		return nil, fmt.Errorf("%w: playlist has no clips", avutil.ErrConfiguration)
	}
	for i, it := range items {
		t, ok := it.(Transition)
		if !ok {
			continue
		}
		at, err := place(items, i, p.clips, t)
		if err != nil {
			return nil, fmt.Errorf("playlist item %d: %w", i, err)
		}
		if _, dup := p.after[at]; dup {
			return nil, fmt.Errorf("%w: playlist item %d: clips %d and %d already have a transition",
				avutil.ErrConfiguration, i, at, at+1)
		}
		p.after[at] = t
	}
	return p, nil
}

// place resolves the anchors of the join at items[i] and returns the index
// of its first clip in clips.
func place(items []any, i int, clips []*graph.Subgraph, j interface {
	Anchors() (*graph.Subgraph, *graph.Subgraph)
}) (int, error) {
	from, to := j.Anchors()
	if from == nil && to == nil {
		return 0, fmt.Errorf("%w: neither start nor end anchor is set", avutil.ErrConfiguration)
	}
	if from == nil {
		from = neighbour(items, i, -1)
	}
	if to == nil {
		to = neighbour(items, i, 1)
	}
	fi, ti := slices.Index(clips, from), slices.Index(clips, to)
	if from == nil || fi < 0 {
		return 0, fmt.Errorf("%w: start anchor is not in the timeline", avutil.ErrConfiguration)
	}
	if to == nil || ti < 0 {
		return 0, fmt.Errorf("%w: end anchor is not in the timeline", avutil.ErrConfiguration)
	}
	if ti != fi+1 {
		return 0, fmt.Errorf("%w: anchors %d and %d are not adjacent", avutil.ErrConfiguration, fi, ti)
	}
	return fi, nil
}

// neighbour returns the nearest clip before (dir < 0) or after items[i].
func neighbour(items []any, i, dir int) *graph.Subgraph {
	for k := i + dir; k >= 0 && k < len(items); k += dir {
		if c, ok := items[k].(*graph.Subgraph); ok {
			return c
		}
	}
	return nil
}

// Elements returns clips with each transition between the clips it joins.
func (p *Playlist) Elements() []any {
	var out []any
	for i, c := range p.clips {
		out = append(out, c)
		if t, ok := p.after[i]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Compile folds every transition into its two clips and concatenates the
// resulting segments. When all clip lengths are known the result carries
// one chapter per clip.
func (p *Playlist) Compile() (*graph.Subgraph, error) {
	var segments []*graph.Subgraph
	acc := p.clips[0]
	for i := 0; i+1 < len(p.clips); i++ {
		next := p.clips[i+1]
		t, ok := p.after[i]
		if !ok {
			segments = append(segments, acc)
			acc = next
			continue
		}
		a, b, err := prepare(t, acc, next)
		if err != nil {
			return nil, err
		}
		if acc, err = t.Combine(a, b); err != nil {
			return nil, err
		}
	}
	segments = append(segments, acc)

	out := segments[0]
	if len(segments) > 1 {
		var err error
		if out, err = concat(segments); err != nil {
			return nil, err
		}
	}
	res := *out
	res.Props = out.Props.Clone()
	if chapters, total, ok := p.chapters(); ok {
		res.Props[graph.PropStart] = 0.0
		res.Props[graph.PropEnd] = total
		res.Props[graph.PropLength] = total
		res.Props[graph.PropChapters] = chapters
	}
	return &res, nil
}

func (p *Playlist) chapters() ([]graph.Chapter, float64, bool) {
	var (
		chapters []graph.Chapter
		offset   float64
	)
	for i, c := range p.clips {
		l, ok := c.Props.Length()
		if !ok {
			return nil, 0, false
		}
		title, _ := c.Props[graph.PropTitle].(string)
		chapters = append(chapters, graph.Chapter{Title: title, Start: offset, End: offset + l})
		offset += l
		if t, ok := p.after[i]; ok {
			offset -= t.Overlap()
		}
	}
	return chapters, chapters[len(chapters)-1].End, true
}

// concat joins segments end to end with one concat instance per kind.
func concat(segments []*graph.Subgraph) (*graph.Subgraph, error) {
	kinds := segments[0].Kinds()
	for _, s := range segments[1:] {
		kinds = slices.DeleteFunc(kinds, func(k avutil.MediaType) bool { return !s.Has(k) })
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("%w: segments share no media kind", avutil.ErrGraph)
	}
	n := len(segments)
	node := graph.NewNode(nil)
	for _, k := range kinds {
		if k == graph.Video {
			node.With(k, graph.NewFilter("concat", "n", n, "v", 1, "a", 0), n, 1)
		} else {
			node.With(k, graph.NewFilter("concat", "n", n, "v", 0, "a", 1), n, 1)
		}
	}
	return graph.Join(node, segments...)
}
