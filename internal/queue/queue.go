// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package queue provides the thread-safe FIFO handoff used between the
// switch and its connections.
//
// A Queue is an unbounded (or optionally limited) singly linked list
// guarded by one mutex. Blocking operations acquire the mutex; the
// non-blocking variants try-acquire it and report [ErrWouldBlock] on
// contention instead of waiting, so a caller that must stay responsive
// never stalls behind another goroutine's list splice.
//
// Every successful insertion signals a one-slot wait/notify channel,
// which [Queue.GetWait] and [Queue.Ready] build on.
package queue

import (
	"context"
	"errors"
	"sync"

	"code.hybscloud.com/iox"
)

var (
	// ErrWouldBlock reports that the queue lock was held by another
	// goroutine, or that a limited queue is at capacity.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrEmpty reports that there was nothing to dequeue.
	ErrEmpty = errors.New("queue: empty")

	// ErrClosed reports an operation on a destroyed queue.
	ErrClosed = errors.New("queue: closed")
)

type node[T any] struct {
	value T
	next  *node[T]
}

// Queue is a FIFO list of T with head-priority insertion.
// The zero value is not usable; create queues with [New].
//
// Ownership of the list nodes belongs to the queue. Ownership of the
// values passes to whoever dequeues them.
type Queue[T any] struct {
	mu     sync.Mutex
	head   *node[T]
	tail   *node[T]
	n      int
	limit  int
	closed bool
	ready  chan struct{}
	nodes  sync.Pool
}

// New creates an empty queue. A positive limit bounds the number of
// queued elements; insertions into a full queue report [ErrWouldBlock].
// limit <= 0 means unbounded.
func New[T any](limit int) *Queue[T] {
	q := &Queue[T]{
		limit: limit,
		ready: make(chan struct{}, 1),
	}
	q.nodes.New = func() any { return new(node[T]) }
	return q
}

// Put appends v, waiting for the queue lock if necessary.
func (q *Queue[T]) Put(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.insert(v, false)
}

// PutNB appends v without waiting. It returns [ErrWouldBlock] if the
// queue lock is contended.
func (q *Queue[T]) PutNB(v T) error {
	if !q.mu.TryLock() {
		return ErrWouldBlock
	}
	defer q.mu.Unlock()
	return q.insert(v, false)
}

// PutHead prepends v so that it is dequeued before any backlog.
func (q *Queue[T]) PutHead(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.insert(v, true)
}

// PutHeadNB prepends v without waiting for the queue lock.
func (q *Queue[T]) PutHeadNB(v T) error {
	if !q.mu.TryLock() {
		return ErrWouldBlock
	}
	defer q.mu.Unlock()
	return q.insert(v, true)
}

// insert links v at the head or tail. q.mu must be held.
// The notify happens under the lock so it cannot race with Destroy
// closing the ready channel.
func (q *Queue[T]) insert(v T, head bool) error {
	if q.closed {
		return ErrClosed
	}
	if q.limit > 0 && q.n >= q.limit {
		return ErrWouldBlock
	}
	nd := q.nodes.Get().(*node[T])
	nd.value = v
	nd.next = nil

	switch {
	case q.tail == nil:
		q.head, q.tail = nd, nd
	case head:
		nd.next = q.head
		q.head = nd
	default:
		q.tail.next = nd
		q.tail = nd
	}
	q.n++

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Get pops the head element, waiting for the queue lock if necessary.
// It returns [ErrEmpty] when there is nothing to pop.
func (q *Queue[T]) Get() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remove()
}

// GetNB pops the head element without waiting. It returns
// [ErrWouldBlock] if the lock is contended and [ErrEmpty] if the queue
// is empty.
func (q *Queue[T]) GetNB() (T, error) {
	if !q.mu.TryLock() {
		var zero T
		return zero, ErrWouldBlock
	}
	defer q.mu.Unlock()
	return q.remove()
}

// GetWait pops the head element, sleeping until one is inserted, the
// queue is destroyed, or ctx is done.
func (q *Queue[T]) GetWait(ctx context.Context) (T, error) {
	for {
		v, err := q.Get()
		if !errors.Is(err, ErrEmpty) {
			return v, err
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// remove unlinks the head node. q.mu must be held.
func (q *Queue[T]) remove() (T, error) {
	var zero T
	nd := q.head
	if nd == nil {
		if q.closed {
			return zero, ErrClosed
		}
		return zero, ErrEmpty
	}
	q.head = nd.next
	if q.head == nil {
		q.tail = nil
	}
	q.n--

	v := nd.value
	nd.value = zero
	nd.next = nil
	q.nodes.Put(nd)
	return v, nil
}

// Ready returns the wait/notify channel. A receive succeeds after at
// least one insertion since the previous receive, or once the queue is
// destroyed. Wakeups may be spurious; callers re-check with a Get.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Closed reports whether the queue has been destroyed.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Destroy marks the queue closed and wakes any waiter. Elements still
// queued are unlinked and returned in FIFO order; the queue takes no
// responsibility for them. Destroying twice returns nil.
func (q *Queue[T]) Destroy() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	var left []T
	for nd := q.head; nd != nil; nd = nd.next {
		left = append(left, nd.value)
	}
	q.head, q.tail, q.n = nil, nil, 0
	q.closed = true
	close(q.ready)
	return left
}
