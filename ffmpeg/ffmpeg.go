//go:build !ios && !android && (amd64 || arm64)

// Package ffmpeg implements the stream capability interfaces on top of the
// FFmpeg shared libraries, loaded at runtime through purego.
//
// Only the small slice of libavformat, libavcodec and libavutil that the
// demuxer and muxer need is bound. Struct fields are read at the offsets of
// FFmpeg 6 and 7 on 64-bit hosts.
package ffmpeg

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/internal/bindings"
)

// avutil
var (
	avMalloc      func(size uintptr) unsafe.Pointer
	avFree        func(ptr unsafe.Pointer)
	avDictSet     func(pm *unsafe.Pointer, key, value string, flags int32) int32
	avDictFree    func(pm *unsafe.Pointer)
	avStrerror    func(errnum int32, buf unsafe.Pointer, size uintptr) int32
	avLogSetLevel func(level int32)
	avLogGetLevel func() int32
)

// avcodec
var (
	avcodecFindDecoder       func(id int32) unsafe.Pointer
	avcodecFindEncoder       func(id int32) unsafe.Pointer
	avcodecAllocContext3     func(codec unsafe.Pointer) unsafe.Pointer
	avcodecFreeContext       func(ctx *unsafe.Pointer)
	avcodecOpen2             func(ctx, codec unsafe.Pointer, options *unsafe.Pointer) int32
	avcodecParametersToCtx   func(ctx, par unsafe.Pointer) int32
	avcodecParametersFromCtx func(par, ctx unsafe.Pointer) int32
	avcodecParametersCopy    func(dst, src unsafe.Pointer) int32
	avPacketAlloc            func() unsafe.Pointer
	avPacketFree             func(pkt *unsafe.Pointer)
)

// avformat
var (
	avformatOpenInput       func(ctx *unsafe.Pointer, url string, fmt unsafe.Pointer, options *unsafe.Pointer) int32
	avformatCloseInput      func(ctx *unsafe.Pointer)
	avformatFindStreamInfo  func(ctx unsafe.Pointer, options *unsafe.Pointer) int32
	avformatAllocOutputCtx2 func(ctx *unsafe.Pointer, oformat unsafe.Pointer, formatName *byte, filename string) int32
	avformatFreeContext     func(ctx unsafe.Pointer)
	avformatNewStream       func(ctx, codec unsafe.Pointer) unsafe.Pointer
	avformatWriteHeader     func(ctx unsafe.Pointer, options *unsafe.Pointer) int32
	avWriteTrailer          func(ctx unsafe.Pointer) int32
	avReadFrame             func(ctx, pkt unsafe.Pointer) int32
	avInterleavedWriteFrame func(ctx, pkt unsafe.Pointer) int32
	avioOpen                func(pb *unsafe.Pointer, url string, flags int32) int32
	avioClosep              func(pb *unsafe.Pointer) int32
)

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the libraries and binds every function this package calls.
// It is safe to call from several goroutines; only the first call loads.
func Init() error {
	initOnce.Do(func() {
		if initErr = bindings.Load(); initErr != nil {
			return
		}
		register()
		avutil.Describe = errorString
	})
	return initErr
}

func register() {
	util := bindings.LibAVUtil()
	purego.RegisterLibFunc(&avMalloc, util, "av_malloc")
	purego.RegisterLibFunc(&avFree, util, "av_free")
	purego.RegisterLibFunc(&avDictSet, util, "av_dict_set")
	purego.RegisterLibFunc(&avDictFree, util, "av_dict_free")
	purego.RegisterLibFunc(&avStrerror, util, "av_strerror")
	purego.RegisterLibFunc(&avLogSetLevel, util, "av_log_set_level")
	purego.RegisterLibFunc(&avLogGetLevel, util, "av_log_get_level")

	codec := bindings.LibAVCodec()
	purego.RegisterLibFunc(&avcodecFindDecoder, codec, "avcodec_find_decoder")
	purego.RegisterLibFunc(&avcodecFindEncoder, codec, "avcodec_find_encoder")
	purego.RegisterLibFunc(&avcodecAllocContext3, codec, "avcodec_alloc_context3")
	purego.RegisterLibFunc(&avcodecFreeContext, codec, "avcodec_free_context")
	purego.RegisterLibFunc(&avcodecOpen2, codec, "avcodec_open2")
	purego.RegisterLibFunc(&avcodecParametersToCtx, codec, "avcodec_parameters_to_context")
	purego.RegisterLibFunc(&avcodecParametersFromCtx, codec, "avcodec_parameters_from_context")
	purego.RegisterLibFunc(&avcodecParametersCopy, codec, "avcodec_parameters_copy")
	purego.RegisterLibFunc(&avPacketAlloc, codec, "av_packet_alloc")
	purego.RegisterLibFunc(&avPacketFree, codec, "av_packet_free")

	format := bindings.LibAVFormat()
	purego.RegisterLibFunc(&avformatOpenInput, format, "avformat_open_input")
	purego.RegisterLibFunc(&avformatCloseInput, format, "avformat_close_input")
	purego.RegisterLibFunc(&avformatFindStreamInfo, format, "avformat_find_stream_info")
	purego.RegisterLibFunc(&avformatAllocOutputCtx2, format, "avformat_alloc_output_context2")
	purego.RegisterLibFunc(&avformatFreeContext, format, "avformat_free_context")
	purego.RegisterLibFunc(&avformatNewStream, format, "avformat_new_stream")
	purego.RegisterLibFunc(&avformatWriteHeader, format, "avformat_write_header")
	purego.RegisterLibFunc(&avWriteTrailer, format, "av_write_trailer")
	purego.RegisterLibFunc(&avReadFrame, format, "av_read_frame")
	purego.RegisterLibFunc(&avInterleavedWriteFrame, format, "av_interleaved_write_frame")
	purego.RegisterLibFunc(&avioOpen, format, "avio_open")
	purego.RegisterLibFunc(&avioClosep, format, "avio_closep")
}

// Versions reports the loaded library versions.
func Versions() map[string]string {
	return bindings.Versions()
}

func errorString(code int32) string {
	buf := make([]byte, 256)
	avStrerror(code, unsafe.Pointer(&buf[0]), uintptr(len(buf)))
	return goString(&buf[0])
}

// staged calls free with a pointer-to-pointer living in FFmpeg memory.
// Handing foreign code a pointer into Go memory to clear aborts on some
// purego backends.
func staged(p unsafe.Pointer, free func(*unsafe.Pointer)) {
	if p == nil {
		return
	}
	tmp := avMalloc(unsafe.Sizeof(uintptr(0)))
	if tmp == nil {
		free(&p)
		return
	}
	*(*unsafe.Pointer)(tmp) = p
	free((*unsafe.Pointer)(tmp))
	avFree(tmp)
}

// goString copies a NUL-terminated C string.
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

func cString(s string) *byte {
	b := append([]byte(s), 0)
	return &b[0]
}

func ptrAt(base unsafe.Pointer, off uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Add(base, off))
}

func int32At(base unsafe.Pointer, off uintptr) int32 {
	return *(*int32)(unsafe.Add(base, off))
}

func setInt32At(base unsafe.Pointer, off uintptr, v int32) {
	*(*int32)(unsafe.Add(base, off)) = v
}

func int64At(base unsafe.Pointer, off uintptr) int64 {
	return *(*int64)(unsafe.Add(base, off))
}

func setInt64At(base unsafe.Pointer, off uintptr, v int64) {
	*(*int64)(unsafe.Add(base, off)) = v
}

func rationalAt(base unsafe.Pointer, off uintptr) avutil.Rational {
	return avutil.NewRational(int32At(base, off), int32At(base, off+4))
}

func setRationalAt(base unsafe.Pointer, off uintptr, r avutil.Rational) {
	setInt32At(base, off, r.Num)
	setInt32At(base, off+4, r.Den)
}
