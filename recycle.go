// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package basketq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// segmentCache is a bounded MPMC free list of reset segments.
//
// Per-slot sequence numbers make it ABA safe: slot i is writable when
// seq == pos and readable when seq == pos+1. Capacity is a power of 2.
type segmentCache[T any] struct {
	_      pad
	tail   atomix.Uint64 // Producer index
	_      pad
	head   atomix.Uint64 // Consumer index
	_      pad
	buffer []segmentCacheSlot[T]
	mask   uint64
}

type segmentCacheSlot[T any] struct {
	seq atomix.Uint64
	seg *segment[T]
	_   padPtr
}

func newSegmentCache[T any](capacity int) *segmentCache[T] {
	n := uint64(roundToPow2(capacity))
	c := &segmentCache[T]{
		buffer: make([]segmentCacheSlot[T], n),
		mask:   n - 1,
	}
	for i := uint64(0); i < n; i++ {
		c.buffer[i].seq.StoreRelaxed(i)
	}
	return c
}

// put offers seg for reuse. Returns false if the cache is full.
func (c *segmentCache[T]) put(seg *segment[T]) bool {
	sw := spin.Wait{}
	for {
		tail := c.tail.LoadAcquire()
		slot := &c.buffer[tail&c.mask]
		diff := int64(slot.seq.LoadAcquire()) - int64(tail)

		if diff == 0 {
			if c.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.seg = seg
				slot.seq.StoreRelease(tail + 1)
				return true
			}
		} else if diff < 0 {
			return false
		}
		sw.Once()
	}
}

// get returns a cached segment, or nil if the cache is empty.
func (c *segmentCache[T]) get() *segment[T] {
	sw := spin.Wait{}
	for {
		head := c.head.LoadAcquire()
		slot := &c.buffer[head&c.mask]
		diff := int64(slot.seq.LoadAcquire()) - int64(head+1)

		if diff == 0 {
			if c.head.CompareAndSwapAcqRel(head, head+1) {
				seg := slot.seg
				slot.seg = nil
				slot.seq.StoreRelease(head + c.mask + 1)
				return seg
			}
		} else if diff < 0 {
			return nil
		}
		sw.Once()
	}
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
