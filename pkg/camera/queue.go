package camera

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/lanepilot/pkg/vision"
)

// ErrClosed is returned by Next after the source has been closed.
var ErrClosed = errors.New("camera: closed")

// ErrDeviceLost is returned by Next when a live camera stops delivering frames.
// Unlike io.EOF it means the stream ended abnormally.
var ErrDeviceLost = errors.New("camera: device read failed")

// Queue is a bounded single-producer frame buffer. When full, Push drops the
// oldest frame so the consumer never receives a stale backlog.
type Queue struct {
	ch      chan vision.Frame
	dropped atomic.Uint64

	once sync.Once
	done chan struct{}
	err  error // set before done is closed
}

// NewQueue creates a queue holding at most size frames.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		ch:   make(chan vision.Frame, size),
		done: make(chan struct{}),
	}
}

// Push enqueues f, dropping (and closing) the oldest frame if the queue is full.
// Push must only be called from the producer goroutine.
func (q *Queue) Push(f vision.Frame) {
	for {
		select {
		case q.ch <- f:
			return
		default:
		}
		select {
		case old := <-q.ch:
			old.Close()
			q.dropped.Add(1)
		default:
		}
	}
}

// Next blocks until a frame is available, the queue is finished, or ctx ends.
// Once the producer has finished and the queue is drained it returns io.EOF,
// or the error passed to FinishErr.
func (q *Queue) Next(ctx context.Context) (vision.Frame, error) {
	select {
	case f := <-q.ch:
		return f, nil
	default:
	}

	select {
	case f := <-q.ch:
		return f, nil
	case <-q.done:
		// Drain anything pushed before Finish.
		select {
		case f := <-q.ch:
			return f, nil
		default:
			if q.err != nil {
				return nil, q.err
			}
			return nil, io.EOF
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Finish marks the producer as done. Frames already queued are still delivered.
func (q *Queue) Finish() {
	q.FinishErr(nil)
}

// FinishErr is Finish with a terminal error that Next reports after draining
// in place of io.EOF. Only the first Finish or FinishErr call takes effect.
func (q *Queue) FinishErr(err error) {
	q.once.Do(func() {
		q.err = err
		close(q.done)
	})
}

// Drain closes every queued frame.
func (q *Queue) Drain() {
	for {
		select {
		case f := <-q.ch:
			f.Close()
		default:
			return
		}
	}
}

// Dropped returns how many frames were discarded under back-pressure.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	return len(q.ch)
}
