package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/vidgraph/internal/fakeav"
	"github.com/obinnaokechukwu/vidgraph/stream"
)

func TestRoundTripOrder(t *testing.T) {
	ctx := context.Background()
	q := New(4)
	pkts := fakeav.Contiguous(0, 100, 10)

	go func() {
		for _, p := range pkts {
			if err := q.Put(ctx, p); err != nil {
				t.Errorf("put: %v", err)
				return
			}
		}
		q.End()
	}()

	var got []stream.Packet
	for {
		p, err := q.Get(ctx)
		if err == ErrEndOfStream {
			break
		}
		require.NoError(t, err)
		got = append(got, p)
	}

	require.Len(t, got, len(pkts))
	for i := range pkts {
		assert.Same(t, pkts[i], got[i])
	}
}

func TestGetAfterEndNeverBlocks(t *testing.T) {
	ctx := context.Background()
	q := New(2)
	require.NoError(t, q.Put(ctx, fakeav.NewPacket(0, 0, 1)))
	q.End()
	q.End()
	assert.True(t, q.Ended())

	p, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.PTS())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_, err := q.Get(ctx)
			assert.ErrorIs(t, err, ErrEndOfStream)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Get blocked after end marker")
	}

	assert.ErrorIs(t, q.Put(ctx, fakeav.NewPacket(0, 1, 1)), ErrClosed)
}

func TestPutBackpressure(t *testing.T) {
	q := New(1)
	require.NoError(t, q.Put(context.Background(), fakeav.NewPacket(0, 0, 1)))
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 1, q.Capacity())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Put(ctx, fakeav.NewPacket(0, 1, 1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetHonoursContext(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMultipleProducers(t *testing.T) {
	ctx := context.Background()
	q := New(3)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, q.Put(ctx, fakeav.NewPacket(w, int64(i), 1)))
			}
		}(w)
	}
	go func() {
		wg.Wait()
		q.End()
	}()

	last := map[int]int64{0: -1, 1: -1, 2: -1, 3: -1}
	n := 0
	for {
		p, err := q.Get(ctx)
		if err == ErrEndOfStream {
			break
		}
		require.NoError(t, err)
		assert.Greater(t, p.PTS(), last[p.StreamIndex()])
		last[p.StreamIndex()] = p.PTS()
		n++
	}
	assert.Equal(t, 100, n)
}

func TestDrain(t *testing.T) {
	ctx := context.Background()
	q := New(0)
	assert.Zero(t, q.Capacity())

	pkts := fakeav.Contiguous(0, 5, 1)
	for _, p := range pkts {
		require.NoError(t, q.Put(ctx, p))
	}
	assert.Equal(t, 5, q.Drain())
	for _, p := range pkts {
		assert.Equal(t, 1, p.Released())
	}
	assert.Zero(t, q.Len())
}

func TestGetAfterEndIgnoresCancelledContext(t *testing.T) {
	q := New(4)
	require.NoError(t, q.Put(context.Background(), fakeav.NewPacket(0, 0, 1)))
	q.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := q.Get(ctx)
	require.NoError(t, err, "buffered packets are still delivered")
	assert.Equal(t, int64(0), p.PTS())
	for i := 0; i < 1000; i++ {
		_, err := q.Get(ctx)
		require.ErrorIs(t, err, ErrEndOfStream, "call %d", i)
	}
}

func TestUnboundedNeverBlocks(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q := New(-1)
	for _, p := range fakeav.Contiguous(0, 1000, 1) {
		require.NoError(t, q.Put(ctx, p))
	}
	assert.Equal(t, 1000, q.Len())
	assert.Zero(t, q.Capacity())
}

func TestGroupAcceptsOverBoundWhileConsumerStarves(t *testing.T) {
	qs := NewGroup(2, 1)
	dense, sparse := qs[0], qs[1]
	require.NoError(t, dense.Put(context.Background(), fakeav.NewPacket(0, 0, 1)))

	got := make(chan error, 1)
	go func() {
		_, err := sparse.Get(context.Background())
		got <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 1; i <= 10; i++ {
		require.NoError(t, dense.Put(ctx, fakeav.NewPacket(0, int64(i), 1)))
	}
	assert.Equal(t, 11, dense.Len())

	sparse.End()
	select {
	case err := <-got:
		assert.ErrorIs(t, err, ErrEndOfStream)
	case <-time.After(time.Second):
		t.Fatal("consumer not woken by end marker")
	}
}

func TestGroupBlocksWithoutStarvedConsumer(t *testing.T) {
	qs := NewGroup(2, 1)
	require.NoError(t, qs[0].Put(context.Background(), fakeav.NewPacket(0, 0, 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, qs[0].Put(ctx, fakeav.NewPacket(0, 1, 1)), context.DeadlineExceeded)
}
