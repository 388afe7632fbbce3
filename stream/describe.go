package stream

import (
	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// StreamInfo summarises one elementary stream.
type StreamInfo struct {
	Index    int    `yaml:"index" json:"index"`
	Kind     string `yaml:"kind" json:"kind"`
	Codec    string `yaml:"codec" json:"codec"`
	CodecID  int32  `yaml:"codec_id" json:"codec_id"`
	TimeBase string `yaml:"time_base" json:"time_base"`
}

// Info summarises a bundle.
type Info struct {
	Path    string       `yaml:"path" json:"path"`
	Streams []StreamInfo `yaml:"streams" json:"streams"`
}

// Describe returns a summary of b.
func Describe(b *Bundle) Info {
	info := Info{Path: b.Path}
	for _, obj := range b.Objects {
		info.Streams = append(info.Streams, StreamInfo{
			Index:    obj.Index,
			Kind:     obj.Kind.String(),
			Codec:    obj.CodecID.String(),
			CodecID:  int32(obj.CodecID),
			TimeBase: obj.TimeBase().String(),
		})
	}
	return info
}

// CountKinds counts streams per media kind.
func CountKinds(b *Bundle) map[avutil.MediaType]int {
	counts := make(map[avutil.MediaType]int)
	for _, obj := range b.Objects {
		counts[obj.Kind]++
	}
	return counts
}
