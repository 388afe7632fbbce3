// Package queue provides the packet queues that decouple a demuxer from a
// muxer running on another goroutine.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/obinnaokechukwu/vidgraph/stream"
)

var (
	// ErrEndOfStream is returned by Get once the end marker has been reached.
	ErrEndOfStream = errors.New("vidgraph: end of stream")
	// ErrClosed is returned by Put after End.
	ErrClosed = errors.New("vidgraph: queue ended")
)

// group is the lock and wake-up channel shared by queues created together.
type group struct {
	mu      sync.Mutex
	changed chan struct{}
	queues  []*Queue
}

func newGroup() *group {
	return &group{changed: make(chan struct{})}
}

// broadcast wakes every waiter of the group. Callers hold mu.
func (g *group) broadcast() {
	close(g.changed)
	g.changed = make(chan struct{})
}

// starved reports whether the consumer waits on an empty queue of the group
// other than q. Callers hold mu.
func (g *group) starved(q *Queue) bool {
	for _, o := range g.queues {
		if o != q && o.waiting > 0 && len(o.items) == 0 && !o.ended {
			return true
		}
	}
	return false
}

// Queue is a FIFO of packets terminated by a single end marker. Any number of
// goroutines may Put; one goroutine consumes with Get.
//
// A bounded queue blocks Put while full, except when the consumer is waiting
// on another, empty queue of the same group: the packet is then accepted over
// the bound so a sparse stream cannot stall a dense one.
type Queue struct {
	g        *group
	items    []stream.Packet
	capacity int
	ended    bool
	// Puts in progress; the end marker is observed once they finish
	pending int
	waiting int
}

// New creates a queue holding at most capacity packets. A non-positive
// capacity makes it unbounded.
func New(capacity int) *Queue {
	return NewGroup(1, capacity)[0]
}

// NewGroup creates n queues consumed by the same goroutine.
func NewGroup(n, capacity int) []*Queue {
	if capacity < 0 {
		capacity = 0
	}
	g := newGroup()
	qs := make([]*Queue, n)
	for i := range qs {
		qs[i] = &Queue{g: g, capacity: capacity}
	}
	g.queues = qs
	return qs
}

// Put appends pkt, blocking while the queue is full.
func (q *Queue) Put(ctx context.Context, pkt stream.Packet) error {
	g := q.g
	g.mu.Lock()
	defer g.mu.Unlock()
	if q.ended {
		return ErrClosed
	}
	q.pending++
	defer func() {
		q.pending--
		g.broadcast()
	}()

	for {
		if q.capacity == 0 || len(q.items) < q.capacity || g.starved(q) {
			q.items = append(q.items, pkt)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := g.changed
		g.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
		}
		g.mu.Lock()
	}
}

// End marks the end of the stream. Only the first call has an effect and it
// never blocks. Puts already in progress still land before the marker.
func (q *Queue) End() {
	q.g.mu.Lock()
	defer q.g.mu.Unlock()
	if q.ended {
		return
	}
	q.ended = true
	q.g.broadcast()
}

// Ended reports whether End has been called.
func (q *Queue) Ended() bool {
	q.g.mu.Lock()
	defer q.g.mu.Unlock()
	return q.ended
}

// Get removes the oldest packet, blocking while the queue is empty and not
// ended. After the end marker every call on the drained queue returns
// ErrEndOfStream at once, whatever the state of ctx.
func (q *Queue) Get(ctx context.Context) (stream.Packet, error) {
	g := q.g
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		if len(q.items) > 0 {
			pkt := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			g.broadcast()
			return pkt, nil
		}
		if q.ended && q.pending == 0 {
			return nil, ErrEndOfStream
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q.waiting++
		// producers blocked on a full queue of the group may now proceed
		g.broadcast()
		wait := g.changed
		g.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
		}
		g.mu.Lock()
		q.waiting--
	}
}

// Len is the number of buffered packets.
func (q *Queue) Len() int {
	q.g.mu.Lock()
	defer q.g.mu.Unlock()
	return len(q.items)
}

// Capacity is the bound on buffered packets, 0 when unbounded.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Drain releases every buffered packet and returns how many were dropped.
func (q *Queue) Drain() int {
	q.g.mu.Lock()
	items := q.items
	q.items = nil
	q.g.broadcast()
	q.g.mu.Unlock()

	for _, pkt := range items {
		pkt.Release()
	}
	return len(items)
}
