// Package mpegts is a pure Go stream.Provider for MPEG transport stream
// files. It demuxes and muxes through mediacommon and only supports stream
// copy: its codecs are passthrough capabilities that never decode or encode.
package mpegts

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/ac3"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	mcmpegts "github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// FormatName is the format accepted by AllocOutput.
const FormatName = "mpegts"

// TimeBase is the 90 kHz clock of every MPEG-TS stream.
var TimeBase = avutil.NewRational(1, 90000)

const mpeg1AudioSamplesPerFrame = 1152

// Extensions are the file suffixes the provider claims.
var Extensions = []string{".ts", ".m2ts", ".mts"}

// Handles reports whether path looks like a transport stream file.
func Handles(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Provider implements stream.Provider for transport streams.
type Provider struct {
	Logger *slog.Logger
}

var _ stream.Provider = (*Provider)(nil)

// New returns a provider logging to logger, or slog.Default when nil.
func New(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{Logger: logger}
}

// codec is a passthrough capability.
type codec struct {
	id      avutil.CodecID
	encoder bool
}

func (c *codec) ID() avutil.CodecID { return c.id }

func (c *codec) Name() string {
	if c.encoder {
		return c.id.String() + "_copy"
	}
	return c.id.String()
}

// codecContext records what the muxer configures; Open only checks the codec.
type codecContext struct {
	id       avutil.CodecID
	timeBase avutil.Rational
	opened   bool
}

func (c *codecContext) Open(cd stream.Codec, _ avutil.Options) error {
	if _, ok := cd.(*codec); !ok {
		return fmt.Errorf("%w: codec %s does not come from the mpegts provider", avutil.ErrConfiguration, cd.Name())
	}
	c.id = cd.ID()
	c.opened = true
	return nil
}

func (c *codecContext) SetGlobalHeader()               {}
func (c *codecContext) TimeBase() avutil.Rational      { return c.timeBase }
func (c *codecContext) SetTimeBase(tb avutil.Rational) { c.timeBase = tb }
func (c *codecContext) Close() error                   { return nil }

var supported = map[avutil.CodecID]avutil.MediaType{
	avutil.CodecIDH264: avutil.MediaTypeVideo,
	avutil.CodecIDHEVC: avutil.MediaTypeVideo,
	avutil.CodecIDAAC:  avutil.MediaTypeAudio,
	avutil.CodecIDOPUS: avutil.MediaTypeAudio,
	avutil.CodecIDMP3:  avutil.MediaTypeAudio,
	avutil.CodecIDAC3:  avutil.MediaTypeAudio,
}

func (p *Provider) find(id avutil.CodecID, encoder bool) (stream.Codec, error) {
	if _, ok := supported[id]; !ok {
		return nil, fmt.Errorf("%w: %s is not carried by the mpegts provider", stream.ErrCodecNotFound, id)
	}
	return &codec{id: id, encoder: encoder}, nil
}

func (p *Provider) FindDecoder(id avutil.CodecID) (stream.Codec, error) { return p.find(id, false) }
func (p *Provider) FindEncoder(id avutil.CodecID) (stream.Codec, error) { return p.find(id, true) }

func (p *Provider) NewCodecContext(cd stream.Codec) (stream.CodecContext, error) {
	return &codecContext{id: cd.ID(), timeBase: TimeBase}, nil
}

func (p *Provider) OpenInput(path string, _ avutil.Options) (stream.InputContainer, error) {
	return openInput(path, p.Logger)
}

// AllocOutput accepts an empty format only for paths with a transport
// stream extension.
func (p *Provider) AllocOutput(path, format string) (stream.OutputContainer, error) {
	switch {
	case format == FormatName:
	case format == "" && Handles(path):
	default:
		return nil, fmt.Errorf("%w: mpegts provider cannot write format %q for %s", avutil.ErrConfiguration, format, path)
	}
	return &output{path: path, logger: p.Logger}, nil
}

// codecID maps a mediacommon codec onto a codec id; CodecIDNone means the
// track is not supported.
func codecID(c mcmpegts.Codec) avutil.CodecID {
	switch c.(type) {
	case *mcmpegts.CodecH264:
		return avutil.CodecIDH264
	case *mcmpegts.CodecH265:
		return avutil.CodecIDHEVC
	case *mcmpegts.CodecMPEG4Audio:
		return avutil.CodecIDAAC
	case *mcmpegts.CodecOpus:
		return avutil.CodecIDOPUS
	case *mcmpegts.CodecMPEG1Audio:
		return avutil.CodecIDMP3
	case *mcmpegts.CodecAC3:
		return avutil.CodecIDAC3
	}
	return avutil.CodecIDNone
}

// newCodec builds a track codec from an id alone. AAC needs its
// AudioSpecificConfig and is only available through stream copy.
func newCodec(id avutil.CodecID) (mcmpegts.Codec, error) {
	switch id {
	case avutil.CodecIDH264:
		return &mcmpegts.CodecH264{}, nil
	case avutil.CodecIDHEVC:
		return &mcmpegts.CodecH265{}, nil
	case avutil.CodecIDOPUS:
		return &mcmpegts.CodecOpus{ChannelCount: 2}, nil
	case avutil.CodecIDMP3:
		return &mcmpegts.CodecMPEG1Audio{}, nil
	case avutil.CodecIDAC3:
		return &mcmpegts.CodecAC3{}, nil
	case avutil.CodecIDAAC:
		return nil, fmt.Errorf("%w: aac output needs the input parameters, use stream copy", avutil.ErrConfiguration)
	}
	return nil, fmt.Errorf("%w: %s cannot be carried in mpegts", avutil.ErrConfiguration, id)
}

// frameTicks is the duration in 90 kHz ticks of n audio frames of c.
func frameTicks(c mcmpegts.Codec, n int) int64 {
	switch c := c.(type) {
	case *mcmpegts.CodecMPEG4Audio:
		if c.Config.SampleRate > 0 {
			return int64(n) * mpeg4audio.SamplesPerAccessUnit * 90000 / int64(c.Config.SampleRate)
		}
	case *mcmpegts.CodecAC3:
		if c.SampleRate > 0 {
			return int64(n) * ac3.SamplesPerFrame * 90000 / int64(c.SampleRate)
		}
	case *mcmpegts.CodecMPEG1Audio:
		// sample rate is only known per frame; assume 48 kHz
		return int64(n) * mpeg1AudioSamplesPerFrame * 90000 / 48000
	}
	return 0
}
