//go:build !ios && !android && (amd64 || arm64)

package ffmpeg

import (
	"fmt"
	"unsafe"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// AVOutputFormat fields.
const (
	offOFmtAudioCodec    = 32
	offOFmtVideoCodec    = 36
	offOFmtSubtitleCodec = 40
	offOFmtFlags         = 44

	fmtNoFile       = 0x1
	fmtGlobalHeader = 0x40

	avioFlagWrite = 2
)

// outputStream is an AVStream of an output context.
type outputStream struct {
	p unsafe.Pointer
}

func (s *outputStream) Index() int                     { return int(int32At(s.p, offStreamIndex)) }
func (s *outputStream) TimeBase() avutil.Rational      { return rationalAt(s.p, offStreamTimeBase) }
func (s *outputStream) SetTimeBase(tb avutil.Rational) { setRationalAt(s.p, offStreamTimeBase, tb) }
func (s *outputStream) par() unsafe.Pointer            { return ptrAt(s.p, offStreamCodecpar) }

func (s *outputStream) ParametersFrom(ctx stream.CodecContext) error {
	cc, ok := ctx.(*codecContext)
	if !ok {
		return fmt.Errorf("%w: codec context does not come from the ffmpeg provider", avutil.ErrConfiguration)
	}
	return avutil.NewError(avcodecParametersFromCtx(s.par(), cc.p), "avcodec_parameters_from_context")
}

// CopyParameters clears codec_tag afterwards: tags are container specific
// and the muxer picks its own.
func (s *outputStream) CopyParameters(in stream.InputStream) error {
	src, ok := in.(*inputStream)
	if !ok {
		return fmt.Errorf("%w: input stream does not come from the ffmpeg provider", avutil.ErrConfiguration)
	}
	if err := avutil.NewError(avcodecParametersCopy(s.par(), src.par()), "avcodec_parameters_copy"); err != nil {
		return err
	}
	setInt32At(s.par(), offParCodecTag, 0)
	s.SetTimeBase(src.TimeBase())
	return nil
}

// outputContainer owns a muxing AVFormatContext.
type outputContainer struct {
	ctx  unsafe.Pointer
	path string
}

func allocOutput(path, format string) (*outputContainer, error) {
	var name *byte
	if format != "" {
		name = cString(format)
	}
	var ctx unsafe.Pointer
	if err := avutil.NewError(avformatAllocOutputCtx2(&ctx, nil, name, path), "avformat_alloc_output_context2"); err != nil {
		return nil, err
	}
	if ctx == nil {
		return nil, avutil.NewError(avutil.AVERROR_MUXER_NOT_FOUND, "avformat_alloc_output_context2")
	}
	return &outputContainer{ctx: ctx, path: path}, nil
}

func (o *outputContainer) oformat() unsafe.Pointer { return ptrAt(o.ctx, offFmtOFormat) }

func (o *outputContainer) flags() int32 { return int32At(o.oformat(), offOFmtFlags) }

// FormatName is the short name of the output format.
func (o *outputContainer) FormatName() string {
	return goString((*byte)(ptrAt(o.oformat(), 0)))
}

func (o *outputContainer) DefaultCodec(kind avutil.MediaType) avutil.CodecID {
	switch kind {
	case avutil.MediaTypeVideo:
		return avutil.CodecID(int32At(o.oformat(), offOFmtVideoCodec))
	case avutil.MediaTypeAudio:
		return avutil.CodecID(int32At(o.oformat(), offOFmtAudioCodec))
	case avutil.MediaTypeSubtitle:
		return avutil.CodecID(int32At(o.oformat(), offOFmtSubtitleCodec))
	}
	return avutil.CodecIDNone
}

func (o *outputContainer) NeedsGlobalHeader() bool { return o.flags()&fmtGlobalHeader != 0 }
func (o *outputContainer) NoFile() bool            { return o.flags()&fmtNoFile != 0 }

func (o *outputContainer) NewStream(cd stream.Codec) (stream.OutputStream, error) {
	var cp unsafe.Pointer
	if fc, ok := cd.(*codec); ok && fc != nil {
		cp = fc.p
	}
	s := avformatNewStream(o.ctx, cp)
	if s == nil {
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "avformat_new_stream")
	}
	return &outputStream{p: s}, nil
}

func (o *outputContainer) OpenIO() error {
	var pb unsafe.Pointer
	if err := avutil.NewError(avioOpen(&pb, o.path, avioFlagWrite), "avio_open"); err != nil {
		return err
	}
	*(*unsafe.Pointer)(unsafe.Add(o.ctx, offFmtPB)) = pb
	return nil
}

func (o *outputContainer) WriteHeader(opts avutil.Options) error {
	d, err := newDict(opts)
	if err != nil {
		return err
	}
	defer d.free()
	return avutil.NewError(avformatWriteHeader(o.ctx, d.ref()), "avformat_write_header")
}

// WritePacket hands the payload to the interleaver, which leaves pkt blank.
func (o *outputContainer) WritePacket(p stream.Packet) error {
	pkt, ok := p.(*packet)
	if !ok {
		return fmt.Errorf("%w: packet does not come from the ffmpeg provider", avutil.ErrConfiguration)
	}
	return avutil.NewError(avInterleavedWriteFrame(o.ctx, pkt.p), "av_interleaved_write_frame")
}

func (o *outputContainer) WriteTrailer() error {
	return avutil.NewError(avWriteTrailer(o.ctx), "av_write_trailer")
}

func (o *outputContainer) CloseIO() error {
	pb := unsafe.Add(o.ctx, offFmtPB)
	if *(*unsafe.Pointer)(pb) == nil {
		return nil
	}
	return avutil.NewError(avioClosep((*unsafe.Pointer)(pb)), "avio_closep")
}

func (o *outputContainer) Free() {
	if o.ctx == nil {
		return
	}
	avformatFreeContext(o.ctx)
	o.ctx = nil
}
