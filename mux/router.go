package mux

import (
	"context"
	"fmt"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// Router dispatches to one Handler per stream index. Use it as
// Handlers.Index.
type Router []Handler

func (r Router) pick(obj *stream.CodecObject) (Handler, error) {
	if obj.Index < 0 || obj.Index >= len(r) || r[obj.Index] == nil {
		return nil, fmt.Errorf("%w: no handler routed for output stream %d", avutil.ErrStreamDispatch, obj.Index)
	}
	return r[obj.Index], nil
}

func (r Router) Init(obj *stream.CodecObject) error {
	h, err := r.pick(obj)
	if err != nil {
		return err
	}
	return h.Init(obj)
}

func (r Router) Open(obj *stream.CodecObject) error {
	h, err := r.pick(obj)
	if err != nil {
		return err
	}
	return h.Open(obj)
}

func (r Router) Write(ctx context.Context, obj *stream.CodecObject, w stream.PacketWriter) (bool, error) {
	h, err := r.pick(obj)
	if err != nil {
		return false, err
	}
	return h.Write(ctx, obj, w)
}

func (r Router) Close(obj *stream.CodecObject) error {
	h, err := r.pick(obj)
	if err != nil {
		return err
	}
	return h.Close(obj)
}
