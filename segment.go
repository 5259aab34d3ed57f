// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package basketq

import "sync/atomic"

// segment is one link of a Segmented queue: a fixed array of baskets with
// its own head and tail registers, exactly like a Bounded queue.
//
// A segment is linked in once, by CAS on the predecessor's next, and is
// reset for reuse only after the hazard pool has proven no thread holds
// it.
type segment[T any] struct {
	id      uint64
	next    atomic.Pointer[segment[T]]
	head    MaxRegister
	tail    MaxRegister
	baskets []Basket[T]
}

func newSegment[T any](o *Options) *segment[T] {
	s := &segment[T]{
		head:    o.register(),
		tail:    o.register(),
		baskets: make([]Basket[T], o.capacity),
	}
	k := o.basketWidth()
	for i := range s.baskets {
		s.baskets[i].init(k, o.basket)
	}
	return s
}

// reset clears every basket and register. The caller must own s
// exclusively.
func (s *segment[T]) reset() {
	for i := range s.baskets {
		s.baskets[i].reset()
	}
	s.head.reset()
	s.tail.reset()
	s.next.Store(nil)
	s.id = 0
}
