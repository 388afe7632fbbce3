package mpegts

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/ac3"
	mcmpegts "github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

type outputStream struct {
	index int
	codec mcmpegts.Codec
	track *mcmpegts.Track
}

func (s *outputStream) Index() int                  { return s.index }
func (s *outputStream) TimeBase() avutil.Rational   { return TimeBase }
func (s *outputStream) SetTimeBase(avutil.Rational) {}

func (s *outputStream) ParametersFrom(ctx stream.CodecContext) error {
	cc, ok := ctx.(*codecContext)
	if !ok {
		return fmt.Errorf("%w: codec context does not come from the mpegts provider", avutil.ErrConfiguration)
	}
	c, err := newCodec(cc.id)
	if err != nil {
		return err
	}
	s.codec = c
	return nil
}

// CopyParameters reuses the input track's codec description, which carries
// the AAC and Opus configuration.
func (s *outputStream) CopyParameters(in stream.InputStream) error {
	src, ok := in.(*inputStream)
	if !ok {
		return fmt.Errorf("%w: input stream does not come from the mpegts provider", avutil.ErrConfiguration)
	}
	s.codec = src.track.Codec
	return nil
}

type output struct {
	path    string
	logger  *slog.Logger
	streams []*outputStream

	f  *os.File
	bw *bufio.Writer
	w  *mcmpegts.Writer
}

// DefaultCodec follows what a stream copy pipeline can carry without
// parameters.
func (o *output) DefaultCodec(kind avutil.MediaType) avutil.CodecID {
	switch kind {
	case avutil.MediaTypeVideo:
		return avutil.CodecIDH264
	case avutil.MediaTypeAudio:
		return avutil.CodecIDMP3
	}
	return avutil.CodecIDNone
}

func (o *output) NeedsGlobalHeader() bool { return false }
func (o *output) NoFile() bool            { return false }

func (o *output) NewStream(stream.Codec) (stream.OutputStream, error) {
	s := &outputStream{index: len(o.streams)}
	o.streams = append(o.streams, s)
	return s, nil
}

func (o *output) OpenIO() error {
	f, err := os.Create(o.path)
	if err != nil {
		return err
	}
	o.f = f
	o.bw = bufio.NewWriter(f)
	return nil
}

// WriteHeader writes the program tables. Options are not used.
func (o *output) WriteHeader(opts avutil.Options) error {
	if o.bw == nil {
		return fmt.Errorf("%w: %s is not open", avutil.ErrConfiguration, o.path)
	}
	if len(opts) > 0 {
		o.logger.Debug("mpegts ignores header options", slog.Any("keys", opts.Keys()))
	}
	tracks := make([]*mcmpegts.Track, len(o.streams))
	for i, s := range o.streams {
		if s.codec == nil {
			return fmt.Errorf("%w: output stream %d has no codec parameters", avutil.ErrConfiguration, i)
		}
		s.track = &mcmpegts.Track{Codec: s.codec}
		tracks[i] = s.track
	}
	o.w = &mcmpegts.Writer{W: o.bw, Tracks: tracks}
	return o.w.Initialize()
}

func (o *output) WritePacket(p stream.Packet) error {
	pkt, ok := p.(*Packet)
	if !ok {
		return fmt.Errorf("%w: packet does not come from the mpegts provider", avutil.ErrConfiguration)
	}
	if pkt.Index < 0 || pkt.Index >= len(o.streams) {
		return fmt.Errorf("%w: no output stream %d", avutil.ErrStreamDispatch, pkt.Index)
	}
	s := o.streams[pkt.Index]
	dts := pkt.Dts
	if dts == avutil.NoPTS {
		dts = pkt.Pts
	}

	switch c := s.codec.(type) {
	case *mcmpegts.CodecH264:
		return o.w.WriteH264(s.track, pkt.Pts, dts, pkt.Payload)
	case *mcmpegts.CodecH265:
		return o.w.WriteH265(s.track, pkt.Pts, dts, pkt.Payload)
	case *mcmpegts.CodecMPEG4Audio:
		return o.w.WriteMPEG4Audio(s.track, pkt.Pts, pkt.Payload)
	case *mcmpegts.CodecOpus:
		return o.w.WriteOpus(s.track, pkt.Pts, pkt.Payload)
	case *mcmpegts.CodecMPEG1Audio:
		return o.w.WriteMPEG1Audio(s.track, pkt.Pts, pkt.Payload)
	case *mcmpegts.CodecAC3:
		rate := int64(c.SampleRate)
		if rate <= 0 {
			rate = 48000
		}
		for i, frame := range pkt.Payload {
			pts := pkt.Pts + int64(i)*ac3.SamplesPerFrame*90000/rate
			if err := o.w.WriteAC3(s.track, pts, frame); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: unsupported codec on output stream %d", avutil.ErrConfiguration, pkt.Index)
}

func (o *output) WriteTrailer() error {
	if o.bw == nil {
		return nil
	}
	return o.bw.Flush()
}

func (o *output) CloseIO() error {
	if o.f == nil {
		return nil
	}
	err := o.f.Close()
	o.f, o.bw = nil, nil
	return err
}

func (o *output) Free() {
	o.streams = nil
	o.w = nil
}
