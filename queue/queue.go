// Package queue provides the queue abstraction used between every stage of
// the extraction pipeline: a typed FIFO channel with an explicit
// end-of-input sentinel.
//
// # Sentinel broadcast
//
// The end-of-input sentinel terminates every consumer sharing a queue, not
// just the first one to observe it. Pop reports the sentinel as
// errors.ErrEndOfInput and consumes it; a consumer that observes it MUST
// re-signal end-of-input before terminating so its siblings observe it too.
// This makes end-of-input a broadcast over an otherwise single-delivery
// queue.
//
// # Variants
//
// Three implementations satisfy the same contract and differ only in
// blocking behavior:
//
//   - Memory: an in-process growable ring, FIFO pop, fail-fast on empty.
//     Used for deterministic single-threaded runs and tests.
//   - Buffered: a bounded channel. Pop blocks until an item arrives, Push
//     blocks while the buffer is full, providing backpressure so a fast
//     collector cannot unboundedly outrun slow workers.
//   - NATS: a broker-backed work queue for multi-process runs, same
//     contract with the broker providing the buffering.
package queue

import (
	"context"
)

// Queue is the contract every pipeline queue satisfies. A queue carries one
// item type by convention (a path queue only carries path specifications, an
// event queue only events); mixing types is a programming error, not a
// runtime feature.
type Queue[T any] interface {
	// Push enqueues one item. The buffered and broker variants may block on
	// a full buffer until ctx is done; the memory variant never blocks.
	Push(ctx context.Context, item T) error

	// Pop removes and returns the oldest item. The memory variant fails
	// fast with errors.ErrQueueEmpty when nothing is available right now;
	// the blocking variants wait for an item, the sentinel, or ctx.
	// The end-of-input sentinel is reported as errors.ErrEndOfInput and is
	// consumed by the call; see the package comment for the re-signal rule.
	Pop(ctx context.Context) (T, error)

	// SignalEndOfInput pushes the end-of-input sentinel.
	SignalEndOfInput(ctx context.Context) error

	// Len reports the best-effort number of queued items. The broker
	// variant may be unable to report a size, in which case it returns an
	// error rather than a wrong number.
	Len() (int, error)

	// IsEmpty reports whether the queue currently holds no items.
	IsEmpty() bool

	// Close releases queue resources. Items still queued are discarded.
	Close() error
}

// item is the internal envelope distinguishing payloads from the sentinel.
type item[T any] struct {
	value T
	end   bool
}
