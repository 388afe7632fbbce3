package mpegts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/asticode/go-astits"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
	mcmpegts "github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// inputStream is one supported track.
type inputStream struct {
	index int
	track *mcmpegts.Track
	id    avutil.CodecID
}

func (s *inputStream) Index() int                         { return s.index }
func (s *inputStream) Kind() avutil.MediaType             { return supported[s.id] }
func (s *inputStream) CodecID() avutil.CodecID            { return s.id }
func (s *inputStream) TimeBase() avutil.Rational          { return TimeBase }
func (s *inputStream) LegacyContext() stream.CodecContext { return nil }

func (s *inputStream) ApplyTo(ctx stream.CodecContext) error {
	ctx.SetTimeBase(TimeBase)
	return nil
}

// PID is the transport stream packet id of the track.
func (s *inputStream) PID() uint16 { return s.track.PID }

type input struct {
	path    string
	f       *os.File
	r       *mcmpegts.Reader
	td      *mcmpegts.TimeDecoder
	streams []stream.InputStream
	logger  *slog.Logger

	pending      []*Packet
	eof          bool
	decodeErrors int
}

func openInput(path string, logger *slog.Logger) (*input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	in := &input{
		path:   path,
		f:      f,
		r:      &mcmpegts.Reader{R: bufio.NewReader(f)},
		td:     &mcmpegts.TimeDecoder{},
		logger: logger.With(slog.String("path", path)),
	}
	if err := in.r.Initialize(); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading program tables: %w", err)
	}
	in.td.Initialize()
	in.r.OnDecodeError(func(err error) {
		in.decodeErrors++
		in.logger.Debug("mpegts decode error", slog.Any("error", err))
	})

	for _, track := range in.r.Tracks() {
		id := codecID(track.Codec)
		if id == avutil.CodecIDNone {
			in.logger.Warn("skipping unsupported track", slog.Uint64("pid", uint64(track.PID)))
			continue
		}
		s := &inputStream{index: len(in.streams), track: track, id: id}
		in.streams = append(in.streams, s)
		in.subscribe(s)
	}
	if len(in.streams) == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s has no supported tracks", avutil.ErrResource, path)
	}
	return in, nil
}

func (in *input) push(s *inputStream, pts, dts int64, key bool, payload [][]byte) {
	dts = in.td.Decode(dts)
	pts = in.td.Decode(pts)
	in.pending = append(in.pending, &Packet{
		Index:   s.index,
		Pts:     pts,
		Dts:     dts,
		Dur:     frameTicks(s.track.Codec, len(payload)),
		Key:     key,
		Payload: payload,
	})
}

func (in *input) subscribe(s *inputStream) {
	t := s.track
	switch t.Codec.(type) {
	case *mcmpegts.CodecH264:
		in.r.OnDataH264(t, func(pts, dts int64, au [][]byte) error {
			in.push(s, pts, dts, h264.IsRandomAccess(au), au)
			return nil
		})
	case *mcmpegts.CodecH265:
		in.r.OnDataH265(t, func(pts, dts int64, au [][]byte) error {
			in.push(s, pts, dts, h265.IsRandomAccess(au), au)
			return nil
		})
	case *mcmpegts.CodecMPEG4Audio:
		in.r.OnDataMPEG4Audio(t, func(pts int64, aus [][]byte) error {
			in.push(s, pts, pts, true, aus)
			return nil
		})
	case *mcmpegts.CodecOpus:
		in.r.OnDataOpus(t, func(pts int64, packets [][]byte) error {
			in.push(s, pts, pts, true, packets)
			return nil
		})
	case *mcmpegts.CodecMPEG1Audio:
		in.r.OnDataMPEG1Audio(t, func(pts int64, frames [][]byte) error {
			in.push(s, pts, pts, true, frames)
			return nil
		})
	case *mcmpegts.CodecAC3:
		in.r.OnDataAC3(t, func(pts int64, frame []byte) error {
			in.push(s, pts, pts, true, [][]byte{frame})
			return nil
		})
	}
}

func (in *input) Streams() []stream.InputStream { return in.streams }

// ReadPacket pulls transport packets until a callback produced an access unit.
func (in *input) ReadPacket() (stream.Packet, error) {
	for len(in.pending) == 0 {
		if in.eof {
			return nil, io.EOF
		}
		err := in.r.Read()
		switch {
		case errors.Is(err, astits.ErrNoMorePackets), errors.Is(err, io.EOF):
			in.eof = true
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", in.path, err)
		}
	}
	pkt := in.pending[0]
	in.pending[0] = nil
	in.pending = in.pending[1:]
	return pkt, nil
}

// DecodeErrors counts the errors the reader recovered from.
func (in *input) DecodeErrors() int { return in.decodeErrors }

func (in *input) Close() error {
	if in.decodeErrors > 0 {
		in.logger.Warn("mpegts decode errors", slog.Int("count", in.decodeErrors))
	}
	if in.f == nil {
		return nil
	}
	err := in.f.Close()
	in.f = nil
	return err
}
