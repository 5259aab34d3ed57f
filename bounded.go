// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package basketq

// Bounded is a basket queue over a fixed array of baskets.
//
// Producers read the tail register, try the basket at that index, and
// advance the tail whether or not the put succeeded. A basket that is
// full or closed is skipped for good, never retried, which bounds the
// work per operation and keeps the queue non-blocking. Consumers do the
// same against the head register.
//
// Baskets are never reused: the queue accepts at most capacity baskets'
// worth of traffic over its lifetime, then Enqueue returns
// ErrCapacityExhausted.
//
// Memory: capacity baskets of K slots each, plus two registers.
type Bounded[T any] struct {
	_        pad
	head     MaxRegister
	_        pad
	tail     MaxRegister
	_        pad
	baskets  []Basket[T]
	capacity uint64
	threads  int
}

// NewBounded creates a bounded queue with capacity FAI baskets of k
// slots each, for threads thread ids, using distributed 64-byte padded
// registers. Use the Builder for other strategies.
func NewBounded[T any](capacity, k, threads int) *Bounded[T] {
	return BuildBounded[T](New(capacity).BasketSize(k).Threads(threads))
}

func newBounded[T any](o *Options) *Bounded[T] {
	q := &Bounded[T]{
		head:     o.register(),
		tail:     o.register(),
		baskets:  make([]Basket[T], o.capacity),
		capacity: uint64(o.capacity),
		threads:  o.threads,
	}
	k := o.basketWidth()
	for i := range q.baskets {
		q.baskets[i].init(k, o.basket)
	}
	return q
}

// Enqueue adds an element on behalf of thread tid.
// Returns ErrCapacityExhausted if every basket has been used.
func (q *Bounded[T]) Enqueue(elem *T, tid int) error {
	checkThread(tid, q.threads)
	for {
		t := q.tail.Read()
		if t >= q.capacity {
			return ErrCapacityExhausted
		}
		err := q.baskets[t].Put(elem, tid)
		q.tail.IncrementConditional(t, tid)
		if err == nil {
			return nil
		}
	}
}

// Dequeue removes and returns an element on behalf of thread tid.
// Returns (zero-value, ErrWouldBlock) if head and tail were observed
// unchanged across a re-read with no value found.
func (q *Bounded[T]) Dequeue(tid int) (T, error) {
	checkThread(tid, q.threads)
	head := q.head.Read()
	tail := q.tail.Read()
	for {
		if head < tail {
			elem, err := q.baskets[head].Take(tid)
			if err == nil {
				return elem, nil
			}
			q.head.IncrementConditional(head, tid)
		}
		h, t := q.head.Read(), q.tail.Read()
		if h == head && t == tail {
			var zero T
			return zero, ErrWouldBlock
		}
		head, tail = h, t
	}
}

// Cap returns the number of baskets.
func (q *Bounded[T]) Cap() int {
	return int(q.capacity)
}

// Threads returns the number of thread ids the queue was built for.
func (q *Bounded[T]) Threads() int {
	return q.threads
}

// Used returns the number of baskets the tail has moved past.
func (q *Bounded[T]) Used() int {
	return int(q.tail.Read())
}

func checkThread(tid, threads int) {
	if uint(tid) >= uint(threads) {
		panic("basketq: thread id out of range")
	}
}
