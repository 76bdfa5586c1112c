package queue

import (
	"context"
	"sync"

	"github.com/5l1v3r1/plaso/errors"
)

// Memory is the single-threaded queue variant: a growable ring with FIFO
// pop. Push never blocks and Pop fails fast with errors.ErrQueueEmpty, so a
// sequential run (collector first, then one worker draining) is fully
// deterministic. Access is still internally synchronized so misuse from a
// second goroutine fails safe rather than racing.
type Memory[T any] struct {
	mu     sync.Mutex
	items  []item[T]
	head   int // next read position
	size   int
	closed bool
}

// NewMemory creates an empty in-process queue.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{
		items: make([]item[T], 16),
	}
}

// Push enqueues one item. The ring grows when full; the in-process variant
// trades boundedness for never blocking the producer.
func (q *Memory[T]) Push(_ context.Context, value T) error {
	return q.push(item[T]{value: value})
}

// SignalEndOfInput pushes the end-of-input sentinel.
func (q *Memory[T]) SignalEndOfInput(_ context.Context) error {
	return q.push(item[T]{end: true})
}

func (q *Memory[T]) push(it item[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errors.WrapInvalid(errors.ErrQueueClosed, "Memory", "Push", "push to closed queue")
	}

	if q.size == len(q.items) {
		q.grow()
	}
	q.items[(q.head+q.size)%len(q.items)] = it
	q.size++
	return nil
}

// grow doubles the ring, relinearizing from head. Caller holds the lock.
func (q *Memory[T]) grow() {
	resized := make([]item[T], len(q.items)*2)
	for i := 0; i < q.size; i++ {
		resized[i] = q.items[(q.head+i)%len(q.items)]
	}
	q.items = resized
	q.head = 0
}

// Pop removes and returns the oldest item, failing fast with
// errors.ErrQueueEmpty when nothing is available right now. The sentinel is
// consumed and reported as errors.ErrEndOfInput.
func (q *Memory[T]) Pop(_ context.Context) (T, error) {
	var zero T

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return zero, errors.ErrQueueEmpty
	}

	it := q.items[q.head]
	q.items[q.head] = item[T]{}
	q.head = (q.head + 1) % len(q.items)
	q.size--

	if it.end {
		return zero, errors.ErrEndOfInput
	}
	return it.value, nil
}

// Len reports the number of queued items, including a pending sentinel.
func (q *Memory[T]) Len() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size, nil
}

// IsEmpty reports whether the queue currently holds no items.
func (q *Memory[T]) IsEmpty() bool {
	n, _ := q.Len()
	return n == 0
}

// Close discards queued items and rejects further pushes.
func (q *Memory[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
	q.head = 0
	q.size = 0
	return nil
}
