// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package basketq

// Queue is the combined producer-consumer interface for a basket queue.
//
// Every operation names the calling thread by a stable id in
// [0, Threads()). Ids index per-thread register cells, basket slots and
// hazard records, so one id must not be used by two goroutines at the
// same time.
//
// Ordering: items that land in different baskets are delivered in basket
// order. Items put into the same basket concurrently may be delivered in
// any order relative to each other.
//
// Example:
//
//	q := basketq.NewSegmented[int](1024, 4, 8)
//
//	v := 42
//	_ = q.Enqueue(&v, tid)
//
//	elem, err := q.Dequeue(tid)
//	if basketq.IsWouldBlock(err) {
//	    // Queue observed empty
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]

	// Threads returns the number of thread ids the queue was built for.
	Threads() int
}

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs. The
// queue stores a copy, so *elem may be modified after Enqueue returns.
type Producer[T any] interface {
	// Enqueue adds an element on behalf of thread tid.
	// Never returns ErrWouldBlock. The bounded queue returns
	// ErrCapacityExhausted when it has run out of baskets.
	Enqueue(elem *T, tid int) error
}

// Consumer is the interface for dequeueing elements.
type Consumer[T any] interface {
	// Dequeue removes and returns an element on behalf of thread tid.
	// Returns (zero-value, ErrWouldBlock) if the queue was observed empty.
	Dequeue(tid int) (T, error)
}
