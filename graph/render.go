package graph

import (
	"fmt"
	"strings"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// Script is a rendered filter_complex description.
type Script struct {
	Text string
	// Outputs are the labels of the unconnected outputs, per kind.
	Outputs map[avutil.MediaType][]string
	// Instances is the number of filter instances.
	Instances int
}

// String returns the filter_complex text.
func (s *Script) String() string {
	return s.Text
}

// Render validates s and lowers it to filter_complex syntax. Internal edges
// are labelled [eN] and free outputs [voutN] or [aoutN].
func Render(s *Subgraph) (*Script, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	g := s.Graph
	edges := g.Edges()
	inLabel := make(map[string]string)
	outLabel := make(map[string]string)
	key := func(id fmt.Stringer, kind avutil.MediaType, port int) string {
		return fmt.Sprintf("%s/%d/%d", id, kind, port)
	}
	for i, e := range edges {
		label := fmt.Sprintf("e%d", i)
		outLabel[key(e.From, e.Kind, e.FromPort)] = label
		inLabel[key(e.To, e.Kind, e.ToPort)] = label
	}

	script := &Script{Outputs: make(map[avutil.MediaType][]string)}
	var chains []string
	for _, n := range g.Nodes() {
		for _, kind := range n.Kinds() {
			ports := n.Ports[kind]
			var b strings.Builder
			for p := 0; p < ports.In; p++ {
				fmt.Fprintf(&b, "[%s]", inLabel[key(n.ID, kind, p)])
			}
			b.WriteString(n.Filters[kind].String())
			for p := 0; p < ports.Out; p++ {
				label, ok := outLabel[key(n.ID, kind, p)]
				if !ok {
					label = fmt.Sprintf("%sout%d", kind.Suffix(), len(script.Outputs[kind]))
					script.Outputs[kind] = append(script.Outputs[kind], label)
				}
				fmt.Fprintf(&b, "[%s]", label)
			}
			chains = append(chains, b.String())
			script.Instances++
		}
	}
	script.Text = strings.Join(chains, ";")
	return script, nil
}
