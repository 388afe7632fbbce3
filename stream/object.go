package stream

import (
	"github.com/obinnaokechukwu/vidgraph/avutil"
)

// CodecObject is the per-stream state of a Bundle.
type CodecObject struct {
	Kind    avutil.MediaType
	Index   int
	CodecID avutil.CodecID
	Codec   Codec

	// Legacy is the input-side context owned by the container stream.
	Legacy CodecContext
	// Context is the freshly allocated decode or encode context.
	Context CodecContext

	Input  InputStream
	Output OutputStream

	// NextPTS is the next timestamp to be written, in TimeBase().
	NextPTS int64

	// CopyFrom marks an output object as a stream copy of an input object.
	CopyFrom *CodecObject
}

// TimeBase is the output stream time base when present, else the input one.
func (o *CodecObject) TimeBase() avutil.Rational {
	switch {
	case o.Output != nil:
		return o.Output.TimeBase()
	case o.Input != nil:
		return o.Input.TimeBase()
	}
	return avutil.Rational{}
}

// Close releases the legacy context and then the fresh one. Each handle is
// released at most once; later calls return nil.
func (o *CodecObject) Close() error {
	var firstErr error
	if o.Legacy != nil {
		firstErr = o.Legacy.Close()
		o.Legacy = nil
	}
	if o.Context != nil {
		if err := o.Context.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		o.Context = nil
	}
	return firstErr
}
