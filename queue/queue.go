// Package queue decouples the chain-sync client from the block parser.
package queue

import (
	"sync"
	"time"

	"github.com/muesliswap/batcher-monitor/metrics"
)

const (
	// softLimit is the depth past which producers back off. Pushes are
	// never rejected; the producer just sleeps so the parser can catch up.
	softLimit = 1000

	backoff = 10 * time.Second
)

// BlockQueue is an unbounded FIFO of raw block payloads with soft
// backpressure on the producer side.
type BlockQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

// New returns an empty queue.
func New[T any]() *BlockQueue[T] {
	q := &BlockQueue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item and wakes one waiting consumer. When the queue is
// over its soft limit the call sleeps before returning, throttling the
// producer without dropping anything.
func (q *BlockQueue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	depth := len(q.items)
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
	q.cond.Broadcast()

	if depth > softLimit {
		time.Sleep(backoff)
	}
}

// Pop removes the oldest item, waiting up to timeout for one to arrive.
// ok is false on timeout or when the queue is closed and drained.
func (q *BlockQueue[T]) Pop(timeout time.Duration) (item T, ok bool) {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() { q.cond.Broadcast() })
	defer timer.Stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.closed || !time.Now().Before(deadline) {
			var zero T
			return zero, false
		}
		q.cond.Wait()
	}

	item = q.items[0]
	q.items = q.items[1:]
	metrics.QueueDepth.Set(float64(len(q.items)))
	return item, true
}

// Close wakes all waiters. Items already queued can still be popped.
func (q *BlockQueue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (q *BlockQueue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len reports the current depth.
func (q *BlockQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
