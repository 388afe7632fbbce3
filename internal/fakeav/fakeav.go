// Package fakeav is an in-memory codec and container provider for tests.
package fakeav

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// Log records lifecycle events in order.
type Log struct {
	mu     sync.Mutex
	events []string
}

// Add appends one event.
func (l *Log) Add(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Packet is a fake encoded packet.
type Packet struct {
	Index    int
	Pts      int64
	Dts      int64
	Dur      int64
	released atomic.Int32
}

// NewPacket creates a packet with dts equal to pts.
func NewPacket(index int, pts, dur int64) *Packet {
	return &Packet{Index: index, Pts: pts, Dts: pts, Dur: dur}
}

func (p *Packet) StreamIndex() int     { return p.Index }
func (p *Packet) SetStreamIndex(i int) { p.Index = i }
func (p *Packet) PTS() int64           { return p.Pts }
func (p *Packet) DTS() int64           { return p.Dts }
func (p *Packet) Duration() int64      { return p.Dur }
func (p *Packet) Release()             { p.released.Add(1) }
func (p *Packet) Released() int        { return int(p.released.Load()) }
func (p *Packet) Rescale(from, to avutil.Rational) {
	p.Pts = avutil.RescaleQ(p.Pts, from, to)
	p.Dts = avutil.RescaleQ(p.Dts, from, to)
	p.Dur = avutil.RescaleQ(p.Dur, from, to)
}

// Codec is a fake codec capability.
type Codec struct {
	CodecID avutil.CodecID
	Encoder bool
}

func (c *Codec) ID() avutil.CodecID { return c.CodecID }

func (c *Codec) Name() string {
	if c.Encoder {
		return c.CodecID.String() + "-enc"
	}
	return c.CodecID.String() + "-dec"
}

// Context is a fake codec context.
type Context struct {
	Label        string
	Opened       bool
	GlobalHeader bool
	Options      avutil.Options
	Base         avutil.Rational
	Closes       int
	OpenErr      error
	log          *Log
}

func (c *Context) Open(codec stream.Codec, opts avutil.Options) error {
	c.log.Add("open %s %s", c.Label, codec.Name())
	if c.OpenErr != nil {
		return c.OpenErr
	}
	c.Opened = true
	c.Options = opts
	if opts != nil {
		// codec opening consumes recognised options
		delete(opts, "preset")
	}
	return nil
}

func (c *Context) SetGlobalHeader()               { c.GlobalHeader = true }
func (c *Context) TimeBase() avutil.Rational      { return c.Base }
func (c *Context) SetTimeBase(tb avutil.Rational) { c.Base = tb }

func (c *Context) Close() error {
	c.Closes++
	c.log.Add("close-ctx %s", c.Label)
	return nil
}

// Stream is a fake input stream.
type Stream struct {
	Idx    int
	Type   avutil.MediaType
	ID     avutil.CodecID
	Base   avutil.Rational
	Legacy *Context
}

func (s *Stream) Index() int                { return s.Idx }
func (s *Stream) Kind() avutil.MediaType    { return s.Type }
func (s *Stream) CodecID() avutil.CodecID   { return s.ID }
func (s *Stream) TimeBase() avutil.Rational { return s.Base }

func (s *Stream) LegacyContext() stream.CodecContext {
	if s.Legacy == nil {
		return nil
	}
	return s.Legacy
}

func (s *Stream) ApplyTo(ctx stream.CodecContext) error {
	ctx.SetTimeBase(s.Base)
	return nil
}

// Input is a fake input container that replays Packets.
type Input struct {
	StreamList []*Stream
	Packets    []*Packet
	// FailAt makes ReadPacket fail when it reaches that position (1-based).
	FailAt int
	Closes int

	pos int
	log *Log
}

func (in *Input) Streams() []stream.InputStream {
	out := make([]stream.InputStream, len(in.StreamList))
	for i, s := range in.StreamList {
		out[i] = s
	}
	return out
}

// ErrRead is returned by Input.ReadPacket at FailAt.
var ErrRead = errors.New("fakeav: read failure")

func (in *Input) ReadPacket() (stream.Packet, error) {
	if in.FailAt > 0 && in.pos+1 == in.FailAt {
		return nil, ErrRead
	}
	if in.pos >= len(in.Packets) {
		return nil, io.EOF
	}
	p := in.Packets[in.pos]
	in.pos++
	return p, nil
}

func (in *Input) Close() error {
	in.Closes++
	in.log.Add("close-input")
	return nil
}

// Written is one packet as the output container received it.
type Written struct {
	Index    int
	PTS      int64
	Duration int64
	TimeBase avutil.Rational
}

// OutStream is a fake output stream.
type OutStream struct {
	Idx    int
	Base   avutil.Rational
	Copied bool
}

func (s *OutStream) Index() int                     { return s.Idx }
func (s *OutStream) TimeBase() avutil.Rational      { return s.Base }
func (s *OutStream) SetTimeBase(tb avutil.Rational) { s.Base = tb }

func (s *OutStream) ParametersFrom(ctx stream.CodecContext) error {
	if tb := ctx.TimeBase(); !tb.IsZero() {
		s.Base = tb
	}
	return nil
}

func (s *OutStream) CopyParameters(in stream.InputStream) error {
	s.Copied = true
	s.Base = in.TimeBase()
	return nil
}

// Output is a fake output container.
type Output struct {
	Defaults     map[avutil.MediaType]avutil.CodecID
	GlobalHeader bool
	NoFileFormat bool
	// HeaderBase overrides every stream time base at WriteHeader, as real
	// muxers may do.
	HeaderBase avutil.Rational
	HeaderErr  error
	WriteErr   error

	StreamList    []*OutStream
	Writes        []Written
	HeaderOptions avutil.Options
	IOOpened      int
	IOClosed      int
	Trailers      int
	Frees         int

	mu  sync.Mutex
	log *Log
}

func (o *Output) DefaultCodec(kind avutil.MediaType) avutil.CodecID {
	return o.Defaults[kind]
}

func (o *Output) NeedsGlobalHeader() bool { return o.GlobalHeader }
func (o *Output) NoFile() bool            { return o.NoFileFormat }

func (o *Output) NewStream(codec stream.Codec) (stream.OutputStream, error) {
	s := &OutStream{Idx: len(o.StreamList)}
	o.StreamList = append(o.StreamList, s)
	return s, nil
}

func (o *Output) OpenIO() error {
	o.IOOpened++
	o.log.Add("open-io")
	return nil
}

func (o *Output) WriteHeader(opts avutil.Options) error {
	if o.HeaderErr != nil {
		return o.HeaderErr
	}
	o.HeaderOptions = opts
	if !o.HeaderBase.IsZero() {
		for _, s := range o.StreamList {
			s.Base = o.HeaderBase
		}
	}
	o.log.Add("header")
	return nil
}

func (o *Output) WritePacket(p stream.Packet) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.WriteErr != nil {
		return o.WriteErr
	}
	idx := p.StreamIndex()
	if idx < 0 || idx >= len(o.StreamList) {
		return fmt.Errorf("fakeav: no output stream %d", idx)
	}
	o.Writes = append(o.Writes, Written{
		Index:    idx,
		PTS:      p.PTS(),
		Duration: p.Duration(),
		TimeBase: o.StreamList[idx].Base,
	})
	return nil
}

func (o *Output) WriteTrailer() error {
	o.Trailers++
	o.log.Add("trailer")
	return nil
}

func (o *Output) CloseIO() error {
	o.IOClosed++
	o.log.Add("close-io")
	return nil
}

func (o *Output) Free() {
	o.Frees++
	o.log.Add("free")
}

// Provider serves fake inputs and outputs by path.
type Provider struct {
	Decoders map[avutil.CodecID]bool
	Encoders map[avutil.CodecID]bool
	Inputs   map[string]*Input
	Outputs  map[string]*Output
	Contexts []*Context
	Log      *Log

	mu sync.Mutex
}

// New returns a provider that knows every codec in codecs as both decoder
// and encoder.
func New(codecs ...avutil.CodecID) *Provider {
	p := &Provider{
		Decoders: make(map[avutil.CodecID]bool),
		Encoders: make(map[avutil.CodecID]bool),
		Inputs:   make(map[string]*Input),
		Outputs:  make(map[string]*Output),
		Log:      &Log{},
	}
	for _, id := range codecs {
		p.Decoders[id] = true
		p.Encoders[id] = true
	}
	return p
}

// AddInput registers an input and wires its legacy contexts to the log.
func (p *Provider) AddInput(path string, in *Input) *Input {
	in.log = p.Log
	for _, s := range in.StreamList {
		if s.Legacy != nil {
			s.Legacy.log = p.Log
		}
	}
	p.Inputs[path] = in
	return in
}

// AddOutput registers an output.
func (p *Provider) AddOutput(path string, out *Output) *Output {
	out.log = p.Log
	p.Outputs[path] = out
	return out
}

// LegacyContext builds a legacy context logging to p.
func (p *Provider) LegacyContext(label string) *Context {
	return &Context{Label: label, log: p.Log}
}

func (p *Provider) FindDecoder(id avutil.CodecID) (stream.Codec, error) {
	if !p.Decoders[id] {
		return nil, stream.ErrCodecNotFound
	}
	return &Codec{CodecID: id}, nil
}

func (p *Provider) FindEncoder(id avutil.CodecID) (stream.Codec, error) {
	if !p.Encoders[id] {
		return nil, stream.ErrCodecNotFound
	}
	return &Codec{CodecID: id, Encoder: true}, nil
}

func (p *Provider) NewCodecContext(codec stream.Codec) (stream.CodecContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx := &Context{Label: fmt.Sprintf("%s#%d", codec.Name(), len(p.Contexts)), log: p.Log}
	p.Contexts = append(p.Contexts, ctx)
	return ctx, nil
}

func (p *Provider) OpenInput(path string, _ avutil.Options) (stream.InputContainer, error) {
	in, ok := p.Inputs[path]
	if !ok {
		return nil, fmt.Errorf("fakeav: %s: %w", path, io.ErrUnexpectedEOF)
	}
	return in, nil
}

func (p *Provider) AllocOutput(path, _ string) (stream.OutputContainer, error) {
	out, ok := p.Outputs[path]
	if !ok {
		return nil, fmt.Errorf("fakeav: no output registered for %s", path)
	}
	return out, nil
}

// Contiguous builds n packets for stream index with pts 0, dur, 2*dur, ...
func Contiguous(index, n int, dur int64) []*Packet {
	pkts := make([]*Packet, n)
	for i := range pkts {
		pkts[i] = NewPacket(index, int64(i)*dur, dur)
	}
	return pkts
}
