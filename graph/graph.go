// Package graph compiles composition primitives into a directed multigraph
// of FFmpeg filter instances.
//
// A Node carries at most one filter per media kind; each (node, kind) pair
// becomes one filter instance in the rendered filter_complex. Nodes live in
// an arena keyed by uuid so independently built Subgraphs can be spliced
// together by handle. Every node declares per-kind input and output port
// counts, and Validate rejects graphs whose edges disagree with them.
package graph

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// Video and Audio are the only kinds a filter graph carries.
const (
	Video = avutil.MediaTypeVideo
	Audio = avutil.MediaTypeAudio
)

var kindOrder = []avutil.MediaType{Video, Audio}

// Param is one filter option.
type Param struct {
	Key   string
	Value any
}

// Params keeps filter options in insertion order.
type Params []Param

// Filter is a filter name plus options.
type Filter struct {
	Name   string
	Params Params
}

// NewFilter builds a filter from alternating key/value arguments.
func NewFilter(name string, kv ...any) *Filter {
	f := &Filter{Name: name}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Params = append(f.Params, Param{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return f
}

// Get returns the value of an option.
func (f *Filter) Get(key string) (any, bool) {
	for _, p := range f.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// String renders the filter as it appears in a filter graph description.
func (f *Filter) String() string {
	if len(f.Params) == 0 {
		return f.Name
	}
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.Key + "=" + escapeValue(formatValue(p.Value))
	}
	return f.Name + "=" + strings.Join(parts, ":")
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}

// escapeValue quotes a value for the filter option parser and then escapes
// the result for the graph parser, which strips one level first.
func escapeValue(s string) string {
	if !strings.ContainsAny(s, `\':=[],; `) {
		return s
	}
	quoted := "'" + strings.ReplaceAll(s, `'`, `'\''`) + "'"
	var b strings.Builder
	for _, r := range quoted {
		if strings.ContainsRune(`\'[],;`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ports is the number of input and output pads of one filter instance.
type Ports struct {
	In  int
	Out int
}

// Props are the timeline properties of a node or subgraph.
type Props map[string]any

// Property keys.
const (
	PropStart    = "start"
	PropEnd      = "end"
	PropLength   = "length"
	PropWidth    = "width"
	PropHeight   = "height"
	PropChapters = "chapters"
	PropTitle    = "title"
)

// Clone returns a shallow copy.
func (p Props) Clone() Props {
	if p == nil {
		return Props{}
	}
	return maps.Clone(p)
}

// Float returns a numeric property.
func (p Props) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Int returns an integral property.
func (p Props) Int(key string) (int, bool) {
	f, ok := p.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Length is the explicit length, or end minus start when both are numeric.
func (p Props) Length() (float64, bool) {
	if l, ok := p.Float(PropLength); ok {
		return l, true
	}
	start, sok := p.Float(PropStart)
	end, eok := p.Float(PropEnd)
	if sok && eok {
		return end - start, true
	}
	return 0, false
}

// Bounded reports whether both start and end are numeric.
func (p Props) Bounded() bool {
	_, sok := p.Float(PropStart)
	_, eok := p.Float(PropEnd)
	return sok && eok
}

// Chapter marks where one clip sits in a compiled playlist.
type Chapter struct {
	Title string
	Start float64
	End   float64
}

// Chapters returns the chapters property.
func (p Props) Chapters() []Chapter {
	ch, _ := p[PropChapters].([]Chapter)
	return ch
}

// Node is a vertex of the filter graph.
type Node struct {
	ID      uuid.UUID
	Filters map[avutil.MediaType]*Filter
	Ports   map[avutil.MediaType]Ports
	Props   Props
}

// NewNode allocates a node with a fresh handle.
func NewNode(props Props) *Node {
	return &Node{
		ID:      uuid.New(),
		Filters: make(map[avutil.MediaType]*Filter),
		Ports:   make(map[avutil.MediaType]Ports),
		Props:   props.Clone(),
	}
}

// With sets the filter of one kind.
func (n *Node) With(kind avutil.MediaType, f *Filter, in, out int) *Node {
	n.Filters[kind] = f
	n.Ports[kind] = Ports{In: in, Out: out}
	return n
}

// Copy returns an identical node with a new handle.
func (n *Node) Copy() *Node {
	c := NewNode(n.Props)
	for k, f := range n.Filters {
		c.Filters[k] = f
		c.Ports[k] = n.Ports[k]
	}
	return c
}

// Kinds lists the kinds this node has a filter for, video first.
func (n *Node) Kinds() []avutil.MediaType {
	var kinds []avutil.MediaType
	for _, k := range kindOrder {
		if _, ok := n.Filters[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Edge connects an output pad to an input pad of the same kind.
type Edge struct {
	From     uuid.UUID
	FromPort int
	To       uuid.UUID
	ToPort   int
	Kind     avutil.MediaType
}

// Graph is an arena of nodes plus the edges between them.
type Graph struct {
	nodes map[uuid.UUID]*Node
	order []uuid.UUID
	edges []Edge
	seen  map[Edge]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[uuid.UUID]*Node),
		seen:  make(map[Edge]struct{}),
	}
}

// Add inserts n, ignoring nodes already present.
func (g *Graph) Add(n *Node) uuid.UUID {
	if _, ok := g.nodes[n.ID]; !ok {
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}
	return n.ID
}

// Node looks a node up by handle.
func (g *Graph) Node(id uuid.UUID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len is the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Connect adds an edge. Identical edges are stored once.
func (g *Graph) Connect(e Edge) {
	if _, ok := g.seen[e]; ok {
		return
	}
	g.seen[e] = struct{}{}
	g.edges = append(g.edges, e)
}

// Merge adds every node and edge of other.
func (g *Graph) Merge(other *Graph) {
	for _, id := range other.order {
		g.Add(other.nodes[id])
	}
	for _, e := range other.edges {
		g.Connect(e)
	}
}

// Clone returns a copy sharing the node values.
func (g *Graph) Clone() *Graph {
	c := New()
	c.Merge(g)
	return c
}

// usedOut returns the output pads of (id, kind) that already feed an edge.
func (g *Graph) usedOut(id uuid.UUID, kind avutil.MediaType) map[int]bool {
	used := make(map[int]bool)
	for _, e := range g.edges {
		if e.From == id && e.Kind == kind {
			used[e.FromPort] = true
		}
	}
	return used
}

// FreeOutput returns the lowest unconnected output pad of (id, kind).
func (g *Graph) FreeOutput(id uuid.UUID, kind avutil.MediaType) (int, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return 0, false
	}
	ports, ok := n.Ports[kind]
	if !ok {
		return 0, false
	}
	used := g.usedOut(id, kind)
	for p := 0; p < ports.Out; p++ {
		if !used[p] {
			return p, true
		}
	}
	return 0, false
}

// HasFreeOutput reports whether the node exposes any unconnected output.
func (g *Graph) HasFreeOutput(id uuid.UUID) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	for _, k := range n.Kinds() {
		if _, ok := g.FreeOutput(id, k); ok {
			return true
		}
	}
	return false
}
