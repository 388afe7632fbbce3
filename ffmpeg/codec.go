//go:build !ios && !android && (amd64 || arm64)

package ffmpeg

import (
	"fmt"
	"unsafe"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// AVCodecContext fields.
const (
	offCtxFlags    = 76
	offCtxTimeBase = 100

	codecFlagGlobalHeader = 1 << 22
)

// codec is a resolved AVCodec.
type codec struct {
	p  unsafe.Pointer
	id avutil.CodecID
}

func (c *codec) ID() avutil.CodecID { return c.id }

// Name is AVCodec.name, the first field of the struct.
func (c *codec) Name() string {
	return goString((*byte)(ptrAt(c.p, 0)))
}

// codecContext owns an AVCodecContext.
type codecContext struct {
	p unsafe.Pointer
}

func (c *codecContext) Open(cd stream.Codec, opts avutil.Options) error {
	fc, ok := cd.(*codec)
	if !ok {
		return fmt.Errorf("%w: codec %s does not come from the ffmpeg provider", avutil.ErrConfiguration, cd.Name())
	}
	d, err := newDict(opts)
	if err != nil {
		return err
	}
	defer d.free()
	return avutil.NewError(avcodecOpen2(c.p, fc.p, d.ref()), "avcodec_open2")
}

func (c *codecContext) SetGlobalHeader() {
	setInt32At(c.p, offCtxFlags, int32At(c.p, offCtxFlags)|codecFlagGlobalHeader)
}

func (c *codecContext) TimeBase() avutil.Rational {
	return rationalAt(c.p, offCtxTimeBase)
}

func (c *codecContext) SetTimeBase(tb avutil.Rational) {
	setRationalAt(c.p, offCtxTimeBase, tb)
}

func (c *codecContext) Close() error {
	if c.p == nil {
		return nil
	}
	staged(c.p, avcodecFreeContext)
	c.p = nil
	return nil
}

func findCodec(id avutil.CodecID, encoder bool) (stream.Codec, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	var p unsafe.Pointer
	if encoder {
		p = avcodecFindEncoder(int32(id))
	} else {
		p = avcodecFindDecoder(int32(id))
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s (%d)", stream.ErrCodecNotFound, id, int32(id))
	}
	return &codec{p: p, id: id}, nil
}
