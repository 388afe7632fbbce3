package graph

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// Subgraph is a compiled fragment: the graph plus the nodes it starts and
// ends at. Callers compose fragments without looking inside them.
type Subgraph struct {
	Graph   *Graph
	Sources []uuid.UUID
	Sinks   []uuid.UUID
	Props   Props
}

// Builder extends an upstream subgraph.
type Builder func(*Subgraph) (*Subgraph, error)

// Output is one unconnected output pad.
type Output struct {
	Node uuid.UUID
	Port int
}

// Single wraps a source node.
func Single(n *Node) *Subgraph {
	g := New()
	g.Add(n)
	return &Subgraph{
		Graph:   g,
		Sources: []uuid.UUID{n.ID},
		Sinks:   []uuid.UUID{n.ID},
		Props:   n.Props.Clone(),
	}
}

// Then applies builders in order.
func (s *Subgraph) Then(builders ...Builder) (*Subgraph, error) {
	cur := s
	for _, b := range builders {
		next, err := b(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// FreeOutputs lists the unconnected outputs of kind on the sinks, in sink
// order.
func (s *Subgraph) FreeOutputs(kind avutil.MediaType) []Output {
	var outs []Output
	for _, id := range s.Sinks {
		n, ok := s.Graph.Node(id)
		if !ok {
			continue
		}
		ports, ok := n.Ports[kind]
		if !ok {
			continue
		}
		used := s.Graph.usedOut(id, kind)
		for p := 0; p < ports.Out; p++ {
			if !used[p] {
				outs = append(outs, Output{Node: id, Port: p})
			}
		}
	}
	return outs
}

// Kinds lists the kinds with at least one free output.
func (s *Subgraph) Kinds() []avutil.MediaType {
	var kinds []avutil.MediaType
	for _, k := range kindOrder {
		if len(s.FreeOutputs(k)) > 0 {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Has reports whether kind has a free output.
func (s *Subgraph) Has(kind avutil.MediaType) bool {
	return len(s.FreeOutputs(kind)) > 0
}

// Append adds n downstream of up. Each input pad of n takes the first free
// output of the same kind among up's sinks.
func Append(up *Subgraph, n *Node) (*Subgraph, error) {
	g := up.Graph.Clone()
	g.Add(n)
	for _, kind := range n.Kinds() {
		for port := 0; port < n.Ports[kind].In; port++ {
			src, ok := firstFree(g, up.Sinks, kind)
			if !ok {
				return nil, fmt.Errorf("%w: no free %s output for %s", avutil.ErrGraph, kind, n.Filters[kind].Name)
			}
			g.Connect(Edge{From: src.Node, FromPort: src.Port, To: n.ID, ToPort: port, Kind: kind})
		}
	}
	props := up.Props.Clone()
	for k, v := range n.Props {
		props[k] = v
	}
	return &Subgraph{
		Graph:   g,
		Sources: slices.Clone(up.Sources),
		Sinks:   openSinks(g, append([]uuid.UUID{n.ID}, up.Sinks...)),
		Props:   props,
	}, nil
}

// Join adds n downstream of several subgraphs. Input pad i of every kind n
// consumes takes a free output of that kind from ups[i]. Props come from
// the first upstream overlaid with n's own.
func Join(n *Node, ups ...*Subgraph) (*Subgraph, error) {
	if len(ups) == 0 {
		return nil, fmt.Errorf("%w: %s has no inputs", avutil.ErrGraph, n.ID)
	}
	g := New()
	var sources, candidates []uuid.UUID
	for _, up := range ups {
		g.Merge(up.Graph)
		sources = appendUnique(sources, up.Sources...)
	}
	g.Add(n)
	candidates = append(candidates, n.ID)
	for _, kind := range n.Kinds() {
		in := n.Ports[kind].In
		if in != len(ups) {
			return nil, fmt.Errorf("%w: %s %s has %d inputs, got %d upstreams",
				avutil.ErrGraph, kind, n.Filters[kind].Name, in, len(ups))
		}
		for port, up := range ups {
			src, ok := firstFree(g, up.Sinks, kind)
			if !ok {
				return nil, fmt.Errorf("%w: upstream %d has no free %s output for %s",
					avutil.ErrGraph, port, kind, n.Filters[kind].Name)
			}
			g.Connect(Edge{From: src.Node, FromPort: src.Port, To: n.ID, ToPort: port, Kind: kind})
		}
	}
	for _, up := range ups {
		candidates = append(candidates, up.Sinks...)
	}
	props := ups[0].Props.Clone()
	for k, v := range n.Props {
		props[k] = v
	}
	return &Subgraph{
		Graph:   g,
		Sources: sources,
		Sinks:   openSinks(g, candidates),
		Props:   props,
	}, nil
}

// Group unions subgraphs that were built from shared upstreams. The result
// exposes every sink that still has a free output.
func Group(props Props, subs ...*Subgraph) *Subgraph {
	g := New()
	var sources, candidates []uuid.UUID
	for _, s := range subs {
		g.Merge(s.Graph)
		sources = appendUnique(sources, s.Sources...)
		candidates = append(candidates, s.Sinks...)
	}
	return &Subgraph{
		Graph:   g,
		Sources: sources,
		Sinks:   openSinks(g, candidates),
		Props:   props.Clone(),
	}
}

// Fanout duplicates the first free output of kind into n branches. A split
// node feeds one fifo per branch so the branches can be consumed at
// different rates and later re-converge. Each returned branch has its fifo
// as the only sink.
func Fanout(up *Subgraph, kind avutil.MediaType, n int) ([]*Subgraph, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: fanout needs at least 2 branches, got %d", avutil.ErrConfiguration, n)
	}
	split, fifo := "split", "fifo"
	if kind == Audio {
		split, fifo = "asplit", "afifo"
	}
	splitter := NewNode(nil).With(kind, NewFilter(split, "outputs", n), 1, n)
	base, err := Append(up, splitter)
	if err != nil {
		return nil, err
	}
	g := base.Graph
	fifos := make([]*Node, n)
	for i := range fifos {
		fifos[i] = NewNode(nil).With(kind, NewFilter(fifo), 1, 1)
		g.Add(fifos[i])
		g.Connect(Edge{From: splitter.ID, FromPort: i, To: fifos[i].ID, ToPort: 0, Kind: kind})
	}
	branches := make([]*Subgraph, n)
	for i, f := range fifos {
		branches[i] = &Subgraph{
			Graph:   g,
			Sources: slices.Clone(base.Sources),
			Sinks:   []uuid.UUID{f.ID},
			Props:   base.Props.Clone(),
		}
	}
	return branches, nil
}

func firstFree(g *Graph, sinks []uuid.UUID, kind avutil.MediaType) (Output, bool) {
	for _, id := range sinks {
		if p, ok := g.FreeOutput(id, kind); ok {
			return Output{Node: id, Port: p}, true
		}
	}
	return Output{}, false
}

func openSinks(g *Graph, candidates []uuid.UUID) []uuid.UUID {
	var sinks []uuid.UUID
	for _, id := range candidates {
		if g.HasFreeOutput(id) && !slices.Contains(sinks, id) {
			sinks = append(sinks, id)
		}
	}
	return sinks
}

func appendUnique(dst []uuid.UUID, ids ...uuid.UUID) []uuid.UUID {
	for _, id := range ids {
		if !slices.Contains(dst, id) {
			dst = append(dst, id)
		}
	}
	return dst
}
