// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package basketq

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"k8s.io/klog/v2"

	"code.hybscloud.com/basketq/internal/hazard"
)

// Segmented is an unbounded basket queue: a singly linked list of
// segments, each a fixed array of baskets with its own head and tail
// registers.
//
// When the tail segment runs out of baskets, a producer links a fresh
// segment whose first basket already holds its item. When the head
// segment is drained, a consumer moves the shared head forward and
// retires the old segment to a hazard-pointer pool. Retired segments are
// reset and reused once no thread protects them.
//
// Memory: O(live segments × segment size × K) plus a bounded cache of
// recycled segments.
type Segmented[T any] struct {
	_       pad
	head    atomic.Pointer[segment[T]]
	_       padPtr
	tail    atomic.Pointer[segment[T]]
	_       padPtr
	hp      *hazard.Pool[segment[T]]
	cache   *segmentCache[T] // nil: recycling disabled
	opts    Options
	segSize uint64
	threads int

	allocated atomix.Int64
	reused    atomix.Int64
	retired   atomix.Int64

	probe  func(*segment[T]) // called on every protected access, tests only
	poison func(*segment[T]) // replaces recycling on reclaim, tests only
}

// SegmentStats reports segment lifecycle counters.
type SegmentStats struct {
	Allocated int64 // Segments created with make
	Reused    int64 // Segments taken from the recycle cache
	Retired   int64 // Segments unlinked from the head
}

// hazard slots per thread: one segment pointer at a time.
const segmentHazards = 1

// NewSegmented creates an unbounded queue with segmentSize FAI baskets of
// k slots per segment, for threads thread ids, using distributed 64-byte
// padded registers. Use the Builder for other strategies.
func NewSegmented[T any](segmentSize, k, threads int) *Segmented[T] {
	return BuildSegmented[T](New(segmentSize).BasketSize(k).Threads(threads))
}

func newSegmented[T any](o *Options) *Segmented[T] {
	q := &Segmented[T]{
		opts:    *o,
		segSize: uint64(o.capacity),
		threads: o.threads,
	}
	if o.recycle > 0 {
		q.cache = newSegmentCache[T](o.recycle)
	}
	q.hp = hazard.New(o.threads, segmentHazards, q.reclaim)

	first := q.acquire(0)
	q.head.Store(first)
	q.tail.Store(first)
	return q
}

// Enqueue adds an element on behalf of thread tid. Never fails.
func (q *Segmented[T]) Enqueue(elem *T, tid int) error {
	checkThread(tid, q.threads)
	for {
		seg := q.hp.Protect(0, &q.tail, tid)
		q.check(seg)

		for t := seg.tail.Read(); t < q.segSize; t = seg.tail.Read() {
			err := seg.baskets[t].Put(elem, tid)
			seg.tail.IncrementConditional(t, tid)
			if err == nil {
				q.release(seg, tid)
				return nil
			}
		}

		// Segment exhausted: help move the tail, or link a new segment.
		if next := seg.next.Load(); next != nil {
			q.tail.CompareAndSwap(seg, next)
			continue
		}
		fresh := q.acquire(seg.id + 1)
		_ = fresh.baskets[0].Put(elem, tid)
		fresh.tail.IncrementConditional(0, tid)
		if seg.next.CompareAndSwap(nil, fresh) {
			q.tail.CompareAndSwap(seg, fresh)
			klog.V(4).InfoS("basketq: segment linked", "segment", fresh.id, "thread", tid)
			q.release(seg, tid)
			return nil
		}
		// Another producer linked first.
		q.recycle(fresh)
	}
}

// Dequeue removes and returns an element on behalf of thread tid.
// Returns (zero-value, ErrWouldBlock) if the head segment was observed
// empty and has no successor.
func (q *Segmented[T]) Dequeue(tid int) (T, error) {
	checkThread(tid, q.threads)
	var zero T
	for {
		seg := q.hp.Protect(0, &q.head, tid)
		q.check(seg)

		head := seg.head.Read()
		tail := seg.tail.Read()
		for {
			if head < tail {
				elem, err := seg.baskets[head].Take(tid)
				if err == nil {
					q.release(seg, tid)
					return elem, nil
				}
				seg.head.IncrementConditional(head, tid)
			}
			h, t := seg.head.Read(), seg.tail.Read()
			if h == head && t == tail {
				break
			}
			head, tail = h, t
		}

		if head < q.segSize {
			q.release(seg, tid)
			return zero, ErrWouldBlock
		}
		next := seg.next.Load()
		if next == nil {
			q.release(seg, tid)
			return zero, ErrWouldBlock
		}

		// The shared tail must not be left on a segment about to be
		// retired.
		if q.tail.Load() == seg {
			q.tail.CompareAndSwap(seg, next)
		}
		if q.head.CompareAndSwap(seg, next) {
			q.check(seg)
			q.hp.ClearOne(0, tid)
			q.retired.Add(1)
			klog.V(4).InfoS("basketq: segment retired", "segment", seg.id, "thread", tid)
			q.hp.Retire(seg, tid)
		}
	}
}

// Threads returns the number of thread ids the queue was built for.
func (q *Segmented[T]) Threads() int {
	return q.threads
}

// SegmentSize returns the number of baskets per segment.
func (q *Segmented[T]) SegmentSize() int {
	return int(q.segSize)
}

// Stats returns segment lifecycle counters.
func (q *Segmented[T]) Stats() SegmentStats {
	return SegmentStats{
		Allocated: q.allocated.Load(),
		Reused:    q.reused.Load(),
		Retired:   q.retired.Load(),
	}
}

// Reclaim runs a reclamation pass over the retire list of thread tid and
// returns the number of segments released. Normally reclamation happens
// on its own once enough segments are retired; Reclaim is for quiescent
// points such as shutdown.
func (q *Segmented[T]) Reclaim(tid int) int {
	checkThread(tid, q.threads)
	return q.hp.Scan(tid)
}

// acquire returns an empty segment with the given id.
func (q *Segmented[T]) acquire(id uint64) *segment[T] {
	var seg *segment[T]
	if q.cache != nil {
		seg = q.cache.get()
	}
	if seg == nil {
		seg = newSegment[T](&q.opts)
		q.allocated.Add(1)
	} else {
		q.reused.Add(1)
	}
	seg.id = id
	return seg
}

// reclaim is the hazard pool callback for unprotected retired segments.
func (q *Segmented[T]) reclaim(seg *segment[T]) {
	if q.poison != nil {
		q.poison(seg)
		return
	}
	q.recycle(seg)
}

// recycle resets seg and offers it to the cache. The caller must own seg.
func (q *Segmented[T]) recycle(seg *segment[T]) {
	if q.cache == nil {
		return
	}
	seg.reset()
	if !q.cache.put(seg) {
		klog.V(4).InfoS("basketq: recycle cache full, dropping segment")
	}
}

func (q *Segmented[T]) release(seg *segment[T], tid int) {
	q.check(seg)
	q.hp.Clear(tid)
}

func (q *Segmented[T]) check(seg *segment[T]) {
	if q.probe != nil {
		q.probe(seg)
	}
}
