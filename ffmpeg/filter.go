//go:build !ios && !android && (amd64 || arm64)

package ffmpeg

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/internal/bindings"
)

var (
	avfilterGraphAlloc  func() unsafe.Pointer
	avfilterGraphFree   func(graph *unsafe.Pointer)
	avfilterGraphParse2 func(graph unsafe.Pointer, filters *byte, inputs, outputs *unsafe.Pointer) int32
	avfilterInoutFree   func(inout *unsafe.Pointer)

	filterOnce sync.Once
	filterErr  error
)

func initFilter() error {
	if err := Init(); err != nil {
		return err
	}
	filterOnce.Do(func() {
		lib, err := bindings.LoadFilter()
		if err != nil {
			filterErr = err
			return
		}
		purego.RegisterLibFunc(&avfilterGraphAlloc, lib, "avfilter_graph_alloc")
		purego.RegisterLibFunc(&avfilterGraphFree, lib, "avfilter_graph_free")
		purego.RegisterLibFunc(&avfilterGraphParse2, lib, "avfilter_graph_parse2")
		purego.RegisterLibFunc(&avfilterInoutFree, lib, "avfilter_inout_free")
	})
	return filterErr
}

// CheckFilterGraph parses a rendered filtergraph with libavfilter without
// configuring it. Source filters such as movie open their files while
// parsing, so the referenced media must exist.
func CheckFilterGraph(text string) error {
	if err := initFilter(); err != nil {
		return err
	}
	g := avfilterGraphAlloc()
	if g == nil {
		return avutil.NewError(avutil.AVERROR_ENOMEM, "avfilter_graph_alloc")
	}
	defer staged(g, avfilterGraphFree)

	var ins, outs unsafe.Pointer
	ret := avfilterGraphParse2(g, cString(text), &ins, &outs)
	staged(ins, avfilterInoutFree)
	staged(outs, avfilterInoutFree)
	if ret < 0 {
		return fmt.Errorf("%w: %w", avutil.ErrGraph, avutil.NewError(ret, "avfilter_graph_parse2"))
	}
	return nil
}
