//go:build !ios && !android && (amd64 || arm64)

package ffmpeg

import (
	"io"
	"unsafe"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// AVFormatContext fields.
const (
	offFmtIFormat   = 8
	offFmtOFormat   = 16
	offFmtPB        = 32
	offFmtNbStreams = 44
	offFmtStreams   = 48
)

// AVStream and AVCodecParameters fields.
const (
	offStreamIndex    = 8
	offStreamCodecpar = 16
	offStreamTimeBase = 32

	offParType     = 0
	offParCodecID  = 4
	offParCodecTag = 8
)

// streamsOf lists the AVStream pointers of a format context.
func streamsOf(ctx unsafe.Pointer) []unsafe.Pointer {
	n := int(*(*uint32)(unsafe.Add(ctx, offFmtNbStreams)))
	arr := ptrAt(ctx, offFmtStreams)
	if n == 0 || arr == nil {
		return nil
	}
	out := make([]unsafe.Pointer, n)
	for i := range out {
		out[i] = ptrAt(arr, uintptr(i)*unsafe.Sizeof(uintptr(0)))
	}
	return out
}

// inputStream is an AVStream of an opened input.
type inputStream struct {
	p unsafe.Pointer
}

func (s *inputStream) par() unsafe.Pointer { return ptrAt(s.p, offStreamCodecpar) }

func (s *inputStream) Index() int                { return int(int32At(s.p, offStreamIndex)) }
func (s *inputStream) Kind() avutil.MediaType    { return avutil.MediaType(int32At(s.par(), offParType)) }
func (s *inputStream) CodecID() avutil.CodecID   { return avutil.CodecID(int32At(s.par(), offParCodecID)) }
func (s *inputStream) TimeBase() avutil.Rational { return rationalAt(s.p, offStreamTimeBase) }

// LegacyContext is always nil: AVStream.codec no longer exists.
func (s *inputStream) LegacyContext() stream.CodecContext { return nil }

func (s *inputStream) ApplyTo(ctx stream.CodecContext) error {
	cc, ok := ctx.(*codecContext)
	if !ok {
		ctx.SetTimeBase(s.TimeBase())
		return nil
	}
	if err := avutil.NewError(avcodecParametersToCtx(cc.p, s.par()), "avcodec_parameters_to_context"); err != nil {
		return err
	}
	cc.SetTimeBase(s.TimeBase())
	return nil
}

// inputContainer owns a demuxing AVFormatContext.
type inputContainer struct {
	ctx     unsafe.Pointer
	streams []stream.InputStream
}

func openInput(path string, opts avutil.Options) (*inputContainer, error) {
	d, err := newDict(opts)
	if err != nil {
		return nil, err
	}
	defer d.free()

	var ctx unsafe.Pointer
	if err := avutil.NewError(avformatOpenInput(&ctx, path, nil, d.ref()), "avformat_open_input"); err != nil {
		return nil, err
	}
	in := &inputContainer{ctx: ctx}
	if err := avutil.NewError(avformatFindStreamInfo(ctx, nil), "avformat_find_stream_info"); err != nil {
		in.Close()
		return nil, err
	}
	for _, s := range streamsOf(ctx) {
		in.streams = append(in.streams, &inputStream{p: s})
	}
	return in, nil
}

// FormatName is the short name of the detected input format.
func (in *inputContainer) FormatName() string {
	ifmt := ptrAt(in.ctx, offFmtIFormat)
	if ifmt == nil {
		return ""
	}
	return goString((*byte)(ptrAt(ifmt, 0)))
}

func (in *inputContainer) Streams() []stream.InputStream { return in.streams }

func (in *inputContainer) ReadPacket() (stream.Packet, error) {
	pkt, err := newPacket()
	if err != nil {
		return nil, err
	}
	if ret := avReadFrame(in.ctx, pkt.p); ret < 0 {
		pkt.Release()
		if ret == avutil.AVERROR_EOF {
			return nil, io.EOF
		}
		return nil, avutil.NewError(ret, "av_read_frame")
	}
	return pkt, nil
}

func (in *inputContainer) Close() error {
	if in.ctx == nil {
		return nil
	}
	staged(in.ctx, avformatCloseInput)
	in.ctx = nil
	in.streams = nil
	return nil
}
