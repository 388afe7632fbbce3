package mux

import (
	"context"
	"errors"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/queue"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// QueueSource adapts a packet queue to the Handler contract: every Write
// dequeues one packet and the end marker finishes the stream.
type QueueSource struct {
	Queue *queue.Queue
	// From is the time base of the queued packets.
	From avutil.Rational
}

// NewQueueSource wraps q whose packets are stamped in from.
func NewQueueSource(q *queue.Queue, from avutil.Rational) *QueueSource {
	return &QueueSource{Queue: q, From: from}
}

func (s *QueueSource) Init(*stream.CodecObject) error  { return nil }
func (s *QueueSource) Open(*stream.CodecObject) error  { return nil }
func (s *QueueSource) Close(*stream.CodecObject) error { return nil }

func (s *QueueSource) Write(ctx context.Context, obj *stream.CodecObject, w stream.PacketWriter) (bool, error) {
	pkt, err := s.Queue.Get(ctx)
	if errors.Is(err, queue.ErrEndOfStream) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer pkt.Release()

	to := obj.TimeBase()
	if !s.From.IsZero() && !to.IsZero() {
		pkt.Rescale(s.From, to)
	}
	pkt.SetStreamIndex(obj.Output.Index())

	// read before the write: interleaved writers take ownership of the payload
	pts, dur := pkt.PTS(), pkt.Duration()
	if err := w.WritePacket(pkt); err != nil {
		return false, err
	}
	if pts != avutil.NoPTS {
		obj.NextPTS = pts + dur
	}
	return true, nil
}
