// Package pipeline links a demuxer and a muxer through per-stream packet
// queues, running both on their own goroutine.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/demux"
	"github.com/obinnaokechukwu/vidgraph/mux"
	"github.com/obinnaokechukwu/vidgraph/queue"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

// Options configures one Run.
type Options struct {
	// Format forces the output container format. Empty guesses it from the
	// output path.
	Format        string
	InputOptions  avutil.Options
	OutputOptions avutil.Options
}

// StreamStats counts the packets of one stream.
type StreamStats struct {
	Index   int              `json:"index" yaml:"index"`
	Kind    avutil.MediaType `json:"-" yaml:"-"`
	CodecID avutil.CodecID   `json:"-" yaml:"-"`
	Packets int64            `json:"packets" yaml:"packets"`
}

// Stats summarises a finished Run.
type Stats struct {
	Session string        `json:"session" yaml:"session"`
	Streams []StreamStats `json:"streams" yaml:"streams"`
	// Discarded counts packets still queued when the run failed.
	Discarded int           `json:"discarded" yaml:"discarded"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Linker remuxes one input into one output.
type Linker struct {
	Provider stream.Provider

	// QueueCapacity bounds each per-stream queue. Zero leaves them
	// unbounded. A bounded queue still accepts packets over the bound while
	// the muxer waits on another stream with nothing queued.
	QueueCapacity int
	Logger        *slog.Logger
}

// Run copies every stream of input into output. Demux and mux run
// concurrently; both are always joined and the first error is returned.
func (l *Linker) Run(ctx context.Context, input, output string, opts Options) (*Stats, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	capacity := max(l.QueueCapacity, 0)
	stats := &Stats{Session: uuid.NewString()}
	logger = logger.With(slog.String("session", stats.Session))
	started := time.Now()

	in, err := stream.OpenInput(l.Provider, input, opts.InputOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := in.Close(); cerr != nil {
			logger.Warn("closing input", slog.String("path", input), slog.Any("error", cerr))
		}
	}()

	out, err := stream.NewOutput(l.Provider, output, opts.Format, opts.OutputOptions)
	if err != nil {
		return nil, err
	}
	out.Objects = stream.OutputFrom(in)
	for i, obj := range out.Objects {
		obj.CopyFrom = in.Objects[i]
	}

	lk := newLink(in, capacity)
	logger.Info("remux starting",
		slog.String("input", input),
		slog.String("output", output),
		slog.Int("streams", len(in.Objects)),
		slog.Int("queue_capacity", capacity))

	g, gctx := errgroup.WithContext(ctx)
	lk.ctx = gctx
	g.Go(func() error {
		err := demux.Run(gctx, in, l.Provider, demux.Handlers{Index: lk}, demux.WithStreamCopy(), demux.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("demux %s: %w", input, err)
		}
		return nil
	})
	g.Go(func() error {
		err := mux.Run(gctx, out, l.Provider, mux.Handlers{Index: lk.router()}, mux.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("mux %s: %w", output, err)
		}
		return nil
	})
	err = g.Wait()

	for _, q := range lk.queues {
		stats.Discarded += q.Drain()
	}
	for i, obj := range in.Objects {
		stats.Streams = append(stats.Streams, StreamStats{
			Index:   obj.Index,
			Kind:    obj.Kind,
			CodecID: obj.CodecID,
			Packets: lk.counts[i].Load(),
		})
	}
	stats.Elapsed = time.Since(started)

	if err != nil {
		logger.Error("remux failed", slog.Any("error", err), slog.Int("discarded", stats.Discarded))
		return stats, err
	}
	logger.Info("remux finished", slog.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

// link is the side table shared by both goroutines: one queue per input
// stream plus a gate that holds reading back until the output is open.
type link struct {
	ctx    context.Context
	queues []*queue.Queue
	counts []atomic.Int64
	from   []avutil.Rational

	ready     chan struct{}
	pending   atomic.Int32
	readyOnce sync.Once
}

func newLink(in *stream.Bundle, capacity int) *link {
	n := len(in.Objects)
	lk := &link{
		counts: make([]atomic.Int64, n),
		from:   make([]avutil.Rational, n),
		ready:  make(chan struct{}),
	}
	lk.queues = queue.NewGroup(n, capacity)
	for i, obj := range in.Objects {
		lk.from[i] = obj.TimeBase()
	}
	lk.pending.Store(int32(n))
	if n == 0 {
		close(lk.ready)
	}
	return lk
}

// Init waits until every output stream is open.
func (lk *link) Init(obj *stream.CodecObject) error {
	select {
	case <-lk.ready:
		return nil
	case <-lk.ctx.Done():
		return lk.ctx.Err()
	}
}

func (lk *link) Loop(ctx context.Context, obj *stream.CodecObject, pkt stream.Packet) error {
	if err := lk.queues[obj.Index].Put(ctx, pkt); err != nil {
		pkt.Release()
		return err
	}
	lk.counts[obj.Index].Add(1)
	return nil
}

func (lk *link) Close(obj *stream.CodecObject) error {
	lk.queues[obj.Index].End()
	return nil
}

func (lk *link) opened() {
	if lk.pending.Add(-1) == 0 {
		lk.readyOnce.Do(func() { close(lk.ready) })
	}
}

func (lk *link) router() mux.Router {
	r := make(mux.Router, len(lk.queues))
	for i, q := range lk.queues {
		r[i] = &gatedSource{QueueSource: mux.NewQueueSource(q, lk.from[i]), lk: lk}
	}
	return r
}

// gatedSource reports to the link once its output stream is open.
type gatedSource struct {
	*mux.QueueSource
	lk *link
}

func (s *gatedSource) Open(obj *stream.CodecObject) error {
	if err := s.QueueSource.Open(obj); err != nil {
		return err
	}
	s.lk.opened()
	return nil
}
