// Package mux drives one output Bundle: it allocates an output stream and
// encoder context per CodecObject and writes packets from every stream in
// non-decreasing timestamp order.
package mux

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// Handler feeds one output stream.
type Handler interface {
	Init(obj *stream.CodecObject) error
	Open(obj *stream.CodecObject) error
	// Write writes at most one packet to w and updates obj.NextPTS. It
	// returns false once the stream is finished.
	Write(ctx context.Context, obj *stream.CodecObject, w stream.PacketWriter) (bool, error)
	Close(obj *stream.CodecObject) error
}

// Handlers selects a Handler per media kind, or one Handler for every stream.
type Handlers struct {
	Video      Handler
	Audio      Handler
	Subtitle   Handler
	Data       Handler
	Attachment Handler

	Index Handler
}

// For returns the handler of obj.
func (h Handlers) For(obj *stream.CodecObject) Handler {
	if h.Index != nil {
		return h.Index
	}
	switch obj.Kind {
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
	Logger *slog.Logger
}

// Option is a functional option for Run.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

type muxer struct {
	b        *stream.Bundle
	out      stream.OutputContainer
	codecs   stream.CodecProvider
	handlers []Handler
	logger   *slog.Logger

	ioOpen        bool
	headerWritten bool
	// handlers whose Init succeeded; each gets exactly one Close
	initialised []bool
}

// Run sets up every stream of b, writes the header, runs the write loop
// until every stream is finished and tears the output down. The bundle is
// closed on return.
func Run(ctx context.Context, b *stream.Bundle, codecs stream.CodecProvider, h Handlers, opts ...Option) (err error) {
	o := Options{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	out := b.Output()
	if out == nil {
		return fmt.Errorf("%w: mux needs an output bundle", avutil.ErrConfiguration)
	}

	m := &muxer{
		b:        b,
		out:      out,
		codecs:   codecs,
		handlers: make([]Handler, len(b.Objects)),
		logger:   o.Logger,

		initialised: make([]bool, len(b.Objects)),
	}
	defer func() {
		if cerr := m.teardown(err == nil); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for i, obj := range b.Objects {
		m.handlers[i] = h.For(obj)
		if m.handlers[i] == nil {
			return fmt.Errorf("%w: %w: no handler for output stream %d (%s)",
				avutil.ErrConfiguration, avutil.ErrStreamDispatch, obj.Index, obj.Kind)
		}
	}

	for _, obj := range b.Objects {
		if err := m.setup(obj); err != nil {
			return err
		}
	}
	if err := m.start(); err != nil {
		return err
	}
	return m.loop(ctx)
}

func (m *muxer) setup(obj *stream.CodecObject) error {
	if obj.CopyFrom != nil {
		return m.setupCopy(obj)
	}

	id := obj.CodecID
	if id == avutil.CodecIDNone {
		id = m.out.DefaultCodec(obj.Kind)
	}
	if id == avutil.CodecIDNone {
		return fmt.Errorf("%w: output format has no default %s codec for stream %d",
			avutil.ErrConfiguration, obj.Kind, obj.Index)
	}
	obj.CodecID = id

	codec, err := m.codecs.FindEncoder(id)
	if err != nil {
		return fmt.Errorf("%w: no encoder for stream %d (%s): %w", avutil.ErrResource, obj.Index, id, err)
	}
	obj.Codec = codec

	ostream, err := m.out.NewStream(codec)
	if err != nil {
		return fmt.Errorf("%w: creating output stream %d: %w", avutil.ErrResource, obj.Index, err)
	}
	obj.Output = ostream

	cc, err := m.codecs.NewCodecContext(codec)
	if err != nil {
		return fmt.Errorf("%w: allocating encoder context for stream %d: %w", avutil.ErrResource, obj.Index, err)
	}
	obj.Context = cc
	if m.out.NeedsGlobalHeader() {
		cc.SetGlobalHeader()
	}

	if err := m.handlers[obj.Index].Init(obj); err != nil {
		return fmt.Errorf("init output stream %d: %w", obj.Index, err)
	}
	m.initialised[obj.Index] = true

	// each stream gets its own copy: opening a codec consumes entries
	if err := cc.Open(codec, m.b.Options.Clone()); err != nil {
		return fmt.Errorf("%w: opening encoder %s for stream %d: %w", avutil.ErrResource, codec.Name(), obj.Index, err)
	}
	if err := ostream.ParametersFrom(cc); err != nil {
		return fmt.Errorf("output stream %d parameters: %w", obj.Index, err)
	}
	if tb := cc.TimeBase(); !tb.IsZero() {
		ostream.SetTimeBase(tb)
	}
	return nil
}

func (m *muxer) setupCopy(obj *stream.CodecObject) error {
	src := obj.CopyFrom
	if src.Input == nil {
		return fmt.Errorf("%w: stream copy source of output stream %d is not an input stream",
			avutil.ErrConfiguration, obj.Index)
	}
	obj.CodecID = src.CodecID

	ostream, err := m.out.NewStream(nil)
	if err != nil {
		return fmt.Errorf("%w: creating output stream %d: %w", avutil.ErrResource, obj.Index, err)
	}
	obj.Output = ostream
	if err := ostream.CopyParameters(src.Input); err != nil {
		return fmt.Errorf("copying parameters to output stream %d: %w", obj.Index, err)
	}
	if err := m.handlers[obj.Index].Init(obj); err != nil {
		return fmt.Errorf("init output stream %d: %w", obj.Index, err)
	}
	m.initialised[obj.Index] = true
	return nil
}

func (m *muxer) start() error {
	if !m.out.NoFile() {
		if err := m.out.OpenIO(); err != nil {
			return fmt.Errorf("%w: opening %s: %w", avutil.ErrResource, m.b.Path, err)
		}
		m.ioOpen = true
	}
	if err := m.out.WriteHeader(m.b.Options.Clone()); err != nil {
		return fmt.Errorf("writing header of %s: %w", m.b.Path, err)
	}
	m.headerWritten = true

	for i, obj := range m.b.Objects {
		if err := m.handlers[i].Open(obj); err != nil {
			return fmt.Errorf("open output stream %d: %w", obj.Index, err)
		}
	}
	return nil
}

// loop repeatedly writes from the active stream with the smallest NextPTS.
func (m *muxer) loop(ctx context.Context) error {
	active := append([]*stream.CodecObject(nil), m.b.Objects...)
	for len(active) > 0 {
		i := Earliest(active)
		obj := active[i]
		more, err := m.handlers[obj.Index].Write(ctx, obj, m.out)
		if err != nil {
			return fmt.Errorf("writing stream %d: %w", obj.Index, err)
		}
		if !more {
			m.logger.Debug("stream finished", slog.Int("index", obj.Index), slog.Int64("next_pts", obj.NextPTS))
			active = append(active[:i], active[i+1:]...)
		}
	}
	return nil
}

// Earliest returns the position of the object whose NextPTS, in its own
// time base, is not greater than any other. Ties go to the earliest position.
func Earliest(objs []*stream.CodecObject) int {
	best := 0
	for i := 1; i < len(objs); i++ {
		a, b := objs[i], objs[best]
		if avutil.CompareTS(a.NextPTS, a.TimeBase(), b.NextPTS, b.TimeBase()) < 0 {
			best = i
		}
	}
	return best
}

func (m *muxer) teardown(ok bool) error {
	var firstErr error
	keep := func(err error) {
		if err == nil {
			return
		}
		if firstErr == nil {
			firstErr = err
			return
		}
		m.logger.Warn("mux teardown", slog.String("path", m.b.Path), slog.Any("error", err))
	}

	if m.headerWritten {
		if err := m.out.WriteTrailer(); err != nil {
			keep(fmt.Errorf("writing trailer of %s: %w", m.b.Path, err))
		}
	}
	for i, obj := range m.b.Objects {
		if m.initialised[i] {
			keep(m.handlers[i].Close(obj))
		}
		keep(obj.Close())
	}
	if m.ioOpen {
		keep(m.out.CloseIO())
	}
	keep(m.b.Close())
	if !ok {
		m.logger.Debug("mux aborted", slog.String("path", m.b.Path))
	}
	return firstErr
}
