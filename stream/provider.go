package stream

import (
	"errors"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// ErrCodecNotFound is returned by CodecProvider lookups for unknown codec ids.
var ErrCodecNotFound = errors.New("vidgraph: codec not found")

// Packet is one encoded packet owned by the caller until Release.
type Packet interface {
	StreamIndex() int
	SetStreamIndex(int)
	PTS() int64
	DTS() int64
	Duration() int64
	// Rescale converts the timestamps from one time base to another.
	Rescale(from, to avutil.Rational)
	// Release drops the packet reference. It must be called exactly once.
	Release()
}

// PacketWriter accepts packets for an output container.
type PacketWriter interface {
	WritePacket(Packet) error
}

// Codec is a resolved decoder or encoder capability.
type Codec interface {
	ID() avutil.CodecID
	Name() string
}

// CodecContext is a decode or encode context.
type CodecContext interface {
	Open(codec Codec, opts avutil.Options) error
	SetGlobalHeader()
	TimeBase() avutil.Rational
	SetTimeBase(avutil.Rational)
	// Close releases the context.
	Close() error
}

// CodecProvider resolves codecs and allocates contexts.
type CodecProvider interface {
	FindDecoder(id avutil.CodecID) (Codec, error)
	FindEncoder(id avutil.CodecID) (Codec, error)
	NewCodecContext(codec Codec) (CodecContext, error)
}

// InputStream is one stream of an opened input container.
type InputStream interface {
	Index() int
	Kind() avutil.MediaType
	CodecID() avutil.CodecID
	TimeBase() avutil.Rational
	// LegacyContext is the container-owned codec context, or nil when the
	// container does not expose one.
	LegacyContext() CodecContext
	// ApplyTo copies the stream parameters into ctx.
	ApplyTo(ctx CodecContext) error
}

// InputContainer is an opened input.
type InputContainer interface {
	Streams() []InputStream
	// ReadPacket returns io.EOF at end of input.
	ReadPacket() (Packet, error)
	Close() error
}

// OutputStream is one stream of an output container.
type OutputStream interface {
	Index() int
	TimeBase() avutil.Rational
	SetTimeBase(avutil.Rational)
	ParametersFrom(ctx CodecContext) error
	CopyParameters(in InputStream) error
}

// OutputContainer is an allocated output.
type OutputContainer interface {
	PacketWriter
	// DefaultCodec is the format's preferred codec for kind, or CodecIDNone.
	DefaultCodec(kind avutil.MediaType) avutil.CodecID
	NeedsGlobalHeader() bool
	// NoFile reports formats that do their own I/O.
	NoFile() bool
	NewStream(codec Codec) (OutputStream, error)
	OpenIO() error
	WriteHeader(opts avutil.Options) error
	WriteTrailer() error
	CloseIO() error
	Free()
}

// ContainerProvider opens and allocates containers.
type ContainerProvider interface {
	OpenInput(path string, opts avutil.Options) (InputContainer, error)
	AllocOutput(path, format string) (OutputContainer, error)
}

// Provider is the full capability set a pipeline needs.
type Provider interface {
	CodecProvider
	ContainerProvider
}
