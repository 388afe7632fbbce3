package graph

import (
	"fmt"
	"slices"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// Validate checks that the edges of s agree with the port counts of its
// nodes. Every violation is reported as avutil.ErrGraph.
func Validate(s *Subgraph) error {
	if s == nil || s.Graph == nil {
		return fmt.Errorf("%w: empty subgraph", avutil.ErrGraph)
	}
	g := s.Graph
	for _, id := range s.Sources {
		if _, ok := g.Node(id); !ok {
			return fmt.Errorf("%w: dangling source %s", avutil.ErrGraph, id)
		}
	}
	for _, id := range s.Sinks {
		if _, ok := g.Node(id); !ok {
			return fmt.Errorf("%w: dangling sink %s", avutil.ErrGraph, id)
		}
	}

	type pad struct {
		node string
		kind avutil.MediaType
		port int
	}
	ins := make(map[pad]int)
	outs := make(map[pad]int)
	for _, e := range g.Edges() {
		from, ok := g.Node(e.From)
		if !ok {
			return fmt.Errorf("%w: edge from unknown node %s", avutil.ErrGraph, e.From)
		}
		to, ok := g.Node(e.To)
		if !ok {
			return fmt.Errorf("%w: edge to unknown node %s", avutil.ErrGraph, e.To)
		}
		fp, ok := from.Ports[e.Kind]
		if !ok || e.FromPort < 0 || e.FromPort >= fp.Out {
			return fmt.Errorf("%w: %s output %d of %s does not exist", avutil.ErrGraph, e.Kind, e.FromPort, e.From)
		}
		tp, ok := to.Ports[e.Kind]
		if !ok || e.ToPort < 0 || e.ToPort >= tp.In {
			return fmt.Errorf("%w: %s input %d of %s does not exist", avutil.ErrGraph, e.Kind, e.ToPort, e.To)
		}
		outs[pad{e.From.String(), e.Kind, e.FromPort}]++
		ins[pad{e.To.String(), e.Kind, e.ToPort}]++
	}

	for _, n := range g.Nodes() {
		for _, kind := range n.Kinds() {
			ports := n.Ports[kind]
			for p := 0; p < ports.In; p++ {
				switch c := ins[pad{n.ID.String(), kind, p}]; {
				case c == 0:
					return fmt.Errorf("%w: %s input %d of %s is not connected", avutil.ErrGraph, kind, p, n.Filters[kind].Name)
				case c > 1:
					return fmt.Errorf("%w: %s input %d of %s has %d edges", avutil.ErrGraph, kind, p, n.Filters[kind].Name, c)
				}
			}
			for p := 0; p < ports.Out; p++ {
				c := outs[pad{n.ID.String(), kind, p}]
				if c > 1 {
					return fmt.Errorf("%w: %s output %d of %s feeds %d edges", avutil.ErrGraph, kind, p, n.Filters[kind].Name, c)
				}
				if c == 0 && !slices.Contains(s.Sinks, n.ID) {
					return fmt.Errorf("%w: %s output %d of %s is dangling", avutil.ErrGraph, kind, p, n.Filters[kind].Name)
				}
			}
		}
	}
	return nil
}
