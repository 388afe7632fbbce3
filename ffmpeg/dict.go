//go:build !ios && !android && (amd64 || arm64)

package ffmpeg

import (
	"unsafe"

	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// dict is an AVDictionary built from Options. FFmpeg calls that take
// **AVDictionary consume the entries they recognise and may replace the
// pointer, so the handle stays addressable.
type dict struct {
	p unsafe.Pointer
}

func newDict(opts avutil.Options) (*dict, error) {
	d := &dict{}
	for k, v := range opts.Strings() {
		if ret := avDictSet(&d.p, k, v, 0); ret < 0 {
			d.free()
			return nil, avutil.NewError(ret, "av_dict_set")
		}
	}
	return d, nil
}

// ref is the argument for **AVDictionary parameters. A nil dict passes NULL.
func (d *dict) ref() *unsafe.Pointer {
	if d == nil {
		return nil
	}
	return &d.p
}

func (d *dict) free() {
	if d == nil || d.p == nil {
		return
	}
	staged(d.p, avDictFree)
	d.p = nil
}
