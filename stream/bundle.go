// Package stream models open containers: a Bundle owns the container handle
// and one CodecObject per elementary stream.
package stream

import (
	"fmt"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// Bundle is one open container.
type Bundle struct {
	Path    string
	Options avutil.Options
	Objects []*CodecObject

	input  InputContainer
	output OutputContainer
	closed bool
}

// OpenInput opens path and builds one CodecObject per stream.
func OpenInput(p ContainerProvider, path string, opts avutil.Options) (*Bundle, error) {
	in, err := p.OpenInput(path, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", avutil.ErrResource, path, err)
	}
	b := &Bundle{Path: path, Options: opts, input: in}
	for i, s := range in.Streams() {
		if s.Index() != i {
			in.Close()
			return nil, fmt.Errorf("%w: %s: stream %d reports index %d", avutil.ErrResource, path, i, s.Index())
		}
		b.Objects = append(b.Objects, &CodecObject{
			Kind:    s.Kind(),
			Index:   i,
			CodecID: s.CodecID(),
			Legacy:  s.LegacyContext(),
			Input:   s,
		})
	}
	return b, nil
}

// NewOutput allocates an output container for path. An empty format lets
// the provider guess it from the file name.
func NewOutput(p ContainerProvider, path, format string, opts avutil.Options) (*Bundle, error) {
	out, err := p.AllocOutput(path, format)
	if err != nil {
		return nil, fmt.Errorf("%w: allocating output %s: %w", avutil.ErrResource, path, err)
	}
	return &Bundle{Path: path, Options: opts, output: out}, nil
}

// AddObject appends an elementary stream description to an output bundle.
func (b *Bundle) AddObject(kind avutil.MediaType, id avutil.CodecID) *CodecObject {
	obj := &CodecObject{Kind: kind, Index: len(b.Objects), CodecID: id}
	b.Objects = append(b.Objects, obj)
	return obj
}

// OutputFrom returns output-side objects for every stream of in. Only the
// media kind and codec id are carried over.
func OutputFrom(in *Bundle) []*CodecObject {
	objs := make([]*CodecObject, len(in.Objects))
	for i, src := range in.Objects {
		objs[i] = &CodecObject{Kind: src.Kind, Index: i, CodecID: src.CodecID}
	}
	return objs
}

// Input returns the input container, or nil for output bundles.
func (b *Bundle) Input() InputContainer {
	return b.input
}

// Output returns the output container, or nil for input bundles.
func (b *Bundle) Output() OutputContainer {
	return b.output
}

// IsOutput reports whether the bundle wraps an output container.
func (b *Bundle) IsOutput() bool {
	return b.output != nil
}

// Closed reports whether Close has run.
func (b *Bundle) Closed() bool {
	return b.closed
}

// Close releases every stream's codec contexts that are still open and then
// the container handle, exactly once.
func (b *Bundle) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	for _, obj := range b.Objects {
		if err := obj.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	switch {
	case b.input != nil:
		if err := b.input.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	case b.output != nil:
		b.output.Free()
	}
	return firstErr
}
