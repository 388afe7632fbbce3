package mpegts

import (
	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// Packet is one access unit of a transport stream track. Payload holds the
// units the mediacommon writer takes for the codec: NAL units for video,
// access units or frames for audio.
type Packet struct {
	Index   int
	Pts     int64
	Dts     int64
	Dur     int64
	Key     bool
	Payload [][]byte
}

func (p *Packet) StreamIndex() int     { return p.Index }
func (p *Packet) SetStreamIndex(i int) { p.Index = i }
func (p *Packet) PTS() int64           { return p.Pts }
func (p *Packet) DTS() int64           { return p.Dts }
func (p *Packet) Duration() int64      { return p.Dur }

func (p *Packet) Rescale(from, to avutil.Rational) {
	if p.Pts != avutil.NoPTS {
		p.Pts = avutil.RescaleQ(p.Pts, from, to)
	}
	if p.Dts != avutil.NoPTS {
		p.Dts = avutil.RescaleQ(p.Dts, from, to)
	}
	p.Dur = avutil.RescaleQ(p.Dur, from, to)
}

// Release drops the payload.
func (p *Packet) Release() {
	p.Payload = nil
}
