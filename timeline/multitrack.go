package timeline

import (
	"fmt"
	"slices"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/graph"
)

// Multitrack layers tracks bottom to top.
type Multitrack struct {
	tracks []*graph.Subgraph
	// merges[i] combines tracks[i-1] and tracks[i].
	merges map[int]Merge
}

// NewMultitrack places each Merge between the two tracks it anchors. Items
// are *graph.Subgraph tracks or Merges.
func NewMultitrack(items ...any) (*Multitrack, error) {
	m := &Multitrack{merges: make(map[int]Merge)}
	for i, it := range items {
		switch it := it.(type) {
		case *graph.Subgraph:
			if it == nil || slices.Contains(m.tracks, it) {
				return nil, fmt.Errorf("%w: multitrack item %d is nil or repeated", avutil.ErrConfiguration, i)
			}
			m.tracks = append(m.tracks, it)
		case Merge:
		default:
			return nil, fmt.Errorf("%w: multitrack item %d has type %T", avutil.ErrConfiguration, i, it)
		}
	}
	if len(m.tracks) == 0 {
		return nil, fmt.Errorf("%w: multitrack has no tracks", avutil.ErrConfiguration)
	}
	for i, it := range items {
		mg, ok := it.(Merge)
		if !ok {
			continue
		}
		at, err := place(items, i, m.tracks, mg)
		if err != nil {
			return nil, fmt.Errorf("multitrack item %d: %w", i, err)
		}
		top := at + 1
		if _, dup := m.merges[top]; dup {
			return nil, fmt.Errorf("%w: multitrack item %d: tracks %d and %d already merge", avutil.ErrConfiguration, i, at, top)
		}
		m.merges[top] = mg
	}
	return m, nil
}

// Elements returns tracks with each merge between the tracks it combines.
func (m *Multitrack) Elements() []any {
	var out []any
	for i, t := range m.tracks {
		if mg, ok := m.merges[i]; ok {
			out = append(out, mg)
		}
		out = append(out, t)
	}
	return out
}

// Compile folds tracks from the bottom up, calling Combine once per
// adjacent pair. Pairs without a merge are overlaid at the origin.
func (m *Multitrack) Compile() (*graph.Subgraph, error) {
	acc := m.tracks[0]
	for i := 1; i < len(m.tracks); i++ {
		mg, ok := m.merges[i]
		if !ok {
			mg = Overlay(0, 0, Span{From: m.tracks[i-1], To: m.tracks[i]})
		}
		a, b, err := prepare(mg, acc, m.tracks[i])
		if err != nil {
			return nil, err
		}
		if acc, err = mg.Combine(a, b); err != nil {
			return nil, fmt.Errorf("merge tracks %d and %d: %w", i-1, i, err)
		}
	}
	return acc, nil
}
