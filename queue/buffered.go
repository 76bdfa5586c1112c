package queue

import (
	"context"
	"sync"

	"github.com/5l1v3r1/plaso/errors"
)

// Buffered is the parallel queue variant: a bounded channel shared by one
// producer and any number of consumer goroutines. Pop blocks until an item,
// the sentinel, or ctx; Push blocks while the buffer is full, which is the
// backpressure that keeps a fast collector from unboundedly outrunning slow
// workers.
type Buffered[T any] struct {
	ch chan item[T]

	closeOnce sync.Once
	closed    chan struct{}
}

// NewBuffered creates a bounded queue with the given capacity.
func NewBuffered[T any](capacity int) *Buffered[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffered[T]{
		ch:     make(chan item[T], capacity),
		closed: make(chan struct{}),
	}
}

// Push enqueues one item, blocking while the buffer is full.
func (q *Buffered[T]) Push(ctx context.Context, value T) error {
	return q.push(ctx, item[T]{value: value})
}

// SignalEndOfInput pushes the end-of-input sentinel.
func (q *Buffered[T]) SignalEndOfInput(ctx context.Context) error {
	return q.push(ctx, item[T]{end: true})
}

func (q *Buffered[T]) push(ctx context.Context, it item[T]) error {
	select {
	case <-q.closed:
		return errors.WrapInvalid(errors.ErrQueueClosed, "Buffered", "Push", "push to closed queue")
	default:
	}

	select {
	case q.ch <- it:
		return nil
	case <-q.closed:
		return errors.WrapInvalid(errors.ErrQueueClosed, "Buffered", "Push", "push to closed queue")
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "Buffered", "Push", "waiting for buffer space")
	}
}

// Pop blocks until an item arrives, the sentinel is observed, the queue is
// closed, or ctx is done. The sentinel is consumed and reported as
// errors.ErrEndOfInput; the consumer re-signals it before terminating so
// sibling consumers observe it too.
func (q *Buffered[T]) Pop(ctx context.Context) (T, error) {
	var zero T

	select {
	case it := <-q.ch:
		if it.end {
			return zero, errors.ErrEndOfInput
		}
		return it.value, nil
	case <-q.closed:
		return zero, errors.ErrQueueClosed
	case <-ctx.Done():
		return zero, errors.WrapTransient(ctx.Err(), "Buffered", "Pop", "waiting for item")
	}
}

// Len reports the number of buffered items, including a pending sentinel.
func (q *Buffered[T]) Len() (int, error) {
	return len(q.ch), nil
}

// IsEmpty reports whether the buffer currently holds no items.
func (q *Buffered[T]) IsEmpty() bool {
	return len(q.ch) == 0
}

// Close unblocks all producers and consumers. Items still buffered are
// discarded.
func (q *Buffered[T]) Close() error {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
	return nil
}
