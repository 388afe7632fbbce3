// Package demux reads an input Bundle and dispatches packets to per-stream
// handlers.
//
// Each registered stream goes through Init, then Loop once per packet of that
// stream in read order, then Close. Handlers are chosen per media kind, at
// most one stream per kind, unless Handlers.Index is set, in which case every
// stream is dispatched to it regardless of kind.
package demux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// Handler receives the packets of one stream.
type Handler interface {
	Init(obj *stream.CodecObject) error
	Loop(ctx context.Context, obj *stream.CodecObject, pkt stream.Packet) error
	Close(obj *stream.CodecObject) error
}

// Handlers selects a Handler per media kind, or one Handler for every stream.
type Handlers struct {
	Video      Handler
	Audio      Handler
	Subtitle   Handler
	Data       Handler
	Attachment Handler

	// Index, when set, receives every stream individually.
	Index Handler
}

// ForKind returns the per-kind handler, or nil.
func (h Handlers) ForKind(kind avutil.MediaType) Handler {
	switch kind {
	case avutil.MediaTypeVideo:
		return h.Video
	case avutil.MediaTypeAudio:
		return h.Audio
	case avutil.MediaTypeSubtitle:
		return h.Subtitle
	case avutil.MediaTypeData:
		return h.Data
	case avutil.MediaTypeAttachment:
		return h.Attachment
	}
	return nil
}

// Options configures Run.
type Options struct {
	Logger     *slog.Logger
	StreamCopy bool
}

// Option is a functional option for Run.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithStreamCopy skips decoder resolution; packets are forwarded untouched.
func WithStreamCopy() Option {
	return func(o *Options) {
		o.StreamCopy = true
	}
}

// Table maps stream index to its handler. Unregistered streams map to nil.
type Table []Handler

// BuildTable assigns handlers to the objects of b in index order. In per-kind
// mode a second stream of an already claimed kind is a configuration error.
func BuildTable(b *stream.Bundle, h Handlers) (Table, error) {
	table := make(Table, len(b.Objects))
	if h.Index != nil {
		for i := range table {
			table[i] = h.Index
		}
		return table, nil
	}

	claimed := make(map[avutil.MediaType]int)
	for i, obj := range b.Objects {
		handler := h.ForKind(obj.Kind)
		if handler == nil {
			continue
		}
		if prev, ok := claimed[obj.Kind]; ok {
			return nil, fmt.Errorf("%w: %w: streams %d and %d are both %s; use index dispatch",
				avutil.ErrConfiguration, avutil.ErrStreamDispatch, prev, obj.Index, obj.Kind)
		}
		claimed[obj.Kind] = obj.Index
		table[i] = handler
	}
	return table, nil
}

// Run demuxes b until end of input. Codec contexts and handlers are closed
// in index order even when a handler fails.
func Run(ctx context.Context, b *stream.Bundle, codecs stream.CodecProvider, h Handlers, opts ...Option) (err error) {
	o := Options{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	in := b.Input()
	if in == nil {
		return fmt.Errorf("%w: demux needs an input bundle", avutil.ErrConfiguration)
	}

	table, err := BuildTable(b, h)
	if err != nil {
		return err
	}

	initialised := make([]bool, len(b.Objects))
	defer func() {
		if cerr := closeAll(b, table, initialised, o.Logger); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for i, obj := range b.Objects {
		handler := table[i]
		if handler == nil {
			o.Logger.Debug("stream not handled", slog.Int("index", obj.Index), slog.String("kind", obj.Kind.String()))
			continue
		}
		if !o.StreamCopy {
			if err := openDecoder(obj, codecs); err != nil {
				return err
			}
		}
		if err := handler.Init(obj); err != nil {
			return fmt.Errorf("init stream %d: %w", obj.Index, err)
		}
		initialised[i] = true
	}

	return readLoop(ctx, b, table, o.Logger)
}

func openDecoder(obj *stream.CodecObject, codecs stream.CodecProvider) error {
	codec, err := codecs.FindDecoder(obj.CodecID)
	if err != nil {
		return fmt.Errorf("%w: no decoder for stream %d (%s): %w", avutil.ErrResource, obj.Index, obj.CodecID, err)
	}
	obj.Codec = codec
	cc, err := codecs.NewCodecContext(codec)
	if err != nil {
		return fmt.Errorf("%w: allocating decoder context for stream %d: %w", avutil.ErrResource, obj.Index, err)
	}
	obj.Context = cc
	if obj.Input != nil {
		if err := obj.Input.ApplyTo(cc); err != nil {
			return fmt.Errorf("stream %d parameters: %w", obj.Index, err)
		}
	}
	return nil
}

func readLoop(ctx context.Context, b *stream.Bundle, table Table, logger *slog.Logger) error {
	in := b.Input()
	var read, dropped int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		pkt, err := in.ReadPacket()
		if errors.Is(err, io.EOF) {
			logger.Debug("end of input", slog.String("path", b.Path), slog.Int("packets", read), slog.Int("dropped", dropped))
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", b.Path, err)
		}
		read++

		idx := pkt.StreamIndex()
		if idx < 0 || idx >= len(table) || table[idx] == nil {
			pkt.Release()
			dropped++
			continue
		}
		if err := table[idx].Loop(ctx, b.Objects[idx], pkt); err != nil {
			return fmt.Errorf("stream %d: %w", idx, err)
		}
	}
}

func closeAll(b *stream.Bundle, table Table, initialised []bool, logger *slog.Logger) error {
	var firstErr error
	keep := func(err error) {
		if err == nil {
			return
		}
		if firstErr == nil {
			firstErr = err
			return
		}
		logger.Warn("demux close", slog.Any("error", err))
	}
	for i, obj := range b.Objects {
		if table != nil && table[i] != nil && initialised[i] {
			keep(table[i].Close(obj))
		}
		keep(obj.Close())
	}
	return firstErr
}
