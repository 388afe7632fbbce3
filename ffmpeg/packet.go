//go:build !ios && !android && (amd64 || arm64)

package ffmpeg

import (
	"unsafe"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// AVPacket fields.
const (
	offPktPTS         = 8
	offPktDTS         = 16
	offPktStreamIndex = 36
	offPktDuration    = 64
)

// packet owns an AVPacket allocated with av_packet_alloc.
type packet struct {
	p unsafe.Pointer
}

func newPacket() (*packet, error) {
	p := avPacketAlloc()
	if p == nil {
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "av_packet_alloc")
	}
	return &packet{p: p}, nil
}

func (p *packet) StreamIndex() int     { return int(int32At(p.p, offPktStreamIndex)) }
func (p *packet) SetStreamIndex(i int) { setInt32At(p.p, offPktStreamIndex, int32(i)) }
func (p *packet) PTS() int64           { return int64At(p.p, offPktPTS) }
func (p *packet) DTS() int64           { return int64At(p.p, offPktDTS) }
func (p *packet) Duration() int64      { return int64At(p.p, offPktDuration) }

// Rescale does what av_packet_rescale_ts does.
func (p *packet) Rescale(from, to avutil.Rational) {
	for _, off := range []uintptr{offPktPTS, offPktDTS} {
		if v := int64At(p.p, off); v != avutil.NoPTS {
			setInt64At(p.p, off, avutil.RescaleQ(v, from, to))
		}
	}
	if d := p.Duration(); d > 0 {
		setInt64At(p.p, offPktDuration, avutil.RescaleQ(d, from, to))
	}
}

func (p *packet) Release() {
	if p.p == nil {
		return
	}
	staged(p.p, avPacketFree)
	p.p = nil
}
