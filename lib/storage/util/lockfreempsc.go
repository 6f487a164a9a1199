package util

// This file provides a lock-free Multi-Producer Single-Consumer (MPSC)
// queue used as the delivery backbone for change events: any number of
// store operations may push events concurrently while one goroutine fans
// them out to subscribers.
//
// Guarantees:
//
//   - Lock-free writes: any number of goroutines may Push() concurrently
//   - Unbounded: the queue grows as needed, limited only by memory
//   - Single consumer: one goroutine drains the queue via the Recv() channel
//   - No strict FIFO across concurrent producers: ordering is decided by
//     which producer completes first, not by which started first

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node is a single element of the internal linked list
type node[T any] struct {
	value *T
	next  atomic.Pointer[node[T]]
}

// LockFreeMPSC is a lock-free multi-producer single-consumer queue built
// on a linked list with atomic pointer operations.
type LockFreeMPSC[T any] struct {
	head     atomic.Pointer[node[T]]
	tail     atomic.Pointer[node[T]]
	out      chan *T
	consumer sync.WaitGroup
	closed   atomic.Bool

	// condition variable so the consumer can park between bursts
	mu   sync.Mutex
	cond *sync.Cond
}

// NewLockFreeMPSC creates a new queue and starts its consumer goroutine.
func NewLockFreeMPSC[T any]() *LockFreeMPSC[T] {
	sentinel := &node[T]{}

	q := &LockFreeMPSC[T]{
		out: make(chan *T),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push adds an item to the queue. It returns false if the queue is closed
// or the value is nil.
//
// Thread-safety: safe for concurrent use by any number of producers.
func (q *LockFreeMPSC[T]) Push(value *T) bool {
	if value == nil || q.closed.Load() {
		return false
	}

	newNode := &node[T]{value: value}
	var backoff uint8

	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()

		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// appended; the tail CAS may lose to a helping producer,
				// which is fine
				q.tail.CompareAndSwap(tailNode, newNode)
				q.cond.Signal()
				return true
			}
		} else {
			// help a producer that appended but has not moved tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// exponential backoff: spin at low contention, yield once the
		// retry count grows, so producers do not stampede the same CAS
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// consume moves items from the linked list to the output channel.
func (q *LockFreeMPSC[T]) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		hasItems := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}

			hasItems = true
			value := next.value
			q.head.Store(next)
			q.out <- value
			next.value = nil // release for GC after handoff
		}

		if !hasItems && q.closed.Load() {
			return
		}

		if !hasItems {
			q.mu.Lock()
			head := q.head.Load()
			if head.next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns the receive-only channel the consumer drains.
func (q *LockFreeMPSC[T]) Recv() <-chan *T {
	return q.out
}

// Close closes the queue for writes. Items already queued are still
// delivered before the Recv channel closes.
func (q *LockFreeMPSC[T]) Close() {
	q.closed.Store(true)
	q.cond.Signal()
}

// IsClosed reports whether the queue has been closed.
func (q *LockFreeMPSC[T]) IsClosed() bool {
	return q.closed.Load()
}
