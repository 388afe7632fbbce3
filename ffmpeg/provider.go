//go:build !ios && !android && (amd64 || arm64)

package ffmpeg

import (
	"fmt"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// Provider implements stream.Provider with libavformat and libavcodec.
type Provider struct{}

var _ stream.Provider = (*Provider)(nil)

// New loads FFmpeg and returns a provider.
func New() (*Provider, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return &Provider{}, nil
}

func (p *Provider) FindDecoder(id avutil.CodecID) (stream.Codec, error) {
	return findCodec(id, false)
}

func (p *Provider) FindEncoder(id avutil.CodecID) (stream.Codec, error) {
	return findCodec(id, true)
}

func (p *Provider) NewCodecContext(cd stream.Codec) (stream.CodecContext, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	fc, ok := cd.(*codec)
	if !ok {
		return nil, fmt.Errorf("%w: codec %s does not come from the ffmpeg provider", avutil.ErrConfiguration, cd.Name())
	}
	ctx := avcodecAllocContext3(fc.p)
	if ctx == nil {
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "avcodec_alloc_context3")
	}
	return &codecContext{p: ctx}, nil
}

func (p *Provider) OpenInput(path string, opts avutil.Options) (stream.InputContainer, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return openInput(path, opts)
}

func (p *Provider) AllocOutput(path, format string) (stream.OutputContainer, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return allocOutput(path, format)
}
