// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package basketq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// BasketStrategy selects how producers and consumers claim basket slots.
type BasketStrategy uint8

const (
	// BasketFAI claims slots through fetch-and-add put and take counters.
	// Simple, but every producer of a basket serializes on one counter.
	BasketFAI BasketStrategy = iota

	// BasketContention gives each thread its own slot (K = threads).
	// Producers compete only on their own slot; consumers walk all slots
	// and compete by CAS.
	BasketContention
)

// String returns the strategy name.
func (s BasketStrategy) String() string {
	switch s {
	case BasketFAI:
		return "fai"
	case BasketContention:
		return "contention"
	}
	return "unknown"
}

// Slot states. A slot moves empty → full → taken, or empty → taken when a
// consumer gives up on a producer that has not arrived. Never backward,
// so a late Put can never overwrite a value that was already taken.
const (
	slotEmpty uint64 = iota // BOTTOM
	slotFull                // holds a value
	slotTaken               // TOP
)

// Basket is a K-basket: a one-shot rendezvous of up to K producers and up
// to K consumers. Values put into the same basket are taken in no
// particular order. Once closed, a basket stays closed.
//
// Memory: K slots of (8 + sizeof(T)) bytes plus three padded words.
type Basket[T any] struct {
	_        pad
	puts     atomix.Uint64 // FAI put counter
	_        pad
	takes    atomix.Uint64 // FAI take counter
	_        pad
	closed   atomix.Bool
	_        pad
	slots    []basketSlot[T]
	size     uint64
	strategy BasketStrategy
}

type basketSlot[T any] struct {
	state atomix.Uint64
	data  T
}

// NewBasket creates a basket with k slots.
// For BasketContention, k is the number of threads that may use it.
// Panics if k < 1.
func NewBasket[T any](k int, s BasketStrategy) *Basket[T] {
	b := &Basket[T]{}
	b.init(k, s)
	return b
}

func (b *Basket[T]) init(k int, s BasketStrategy) {
	if k < 1 {
		panic("basketq: basket size must be >= 1")
	}
	b.slots = make([]basketSlot[T], k)
	b.size = uint64(k)
	b.strategy = s
}

// Cap returns the number of slots.
func (b *Basket[T]) Cap() int {
	return int(b.size)
}

// Closed reports whether the basket has been closed for take.
func (b *Basket[T]) Closed() bool {
	return b.closed.LoadAcquire()
}

// Put deposits *elem into the basket on behalf of thread tid.
// Returns ErrBasketFull if the basket has no slot left for the caller or
// is closed. The value is copied; *elem may be reused after Put returns.
// With BasketContention, panics if tid is not in [0, Cap()).
func (b *Basket[T]) Put(elem *T, tid int) error {
	if b.strategy == BasketContention {
		return b.putOwn(elem, tid)
	}
	return b.putFAI(elem)
}

// Take removes one value on behalf of thread tid.
// Returns (zero-value, ErrBasketClosed) once the basket is exhausted.
// Every later Take on this basket returns ErrBasketClosed as well.
func (b *Basket[T]) Take(tid int) (T, error) {
	if b.strategy == BasketContention {
		return b.takeScan(tid)
	}
	return b.takeFAI()
}

func (b *Basket[T]) putFAI(elem *T) error {
	for {
		if b.closed.LoadAcquire() || b.puts.LoadAcquire() >= b.size {
			return ErrBasketFull
		}
		i := b.puts.AddAcqRel(1) - 1
		if i >= b.size {
			return ErrBasketFull
		}
		if b.slots[i].fill(elem) {
			return nil
		}
		// A consumer killed this slot first; claim another.
	}
}

func (b *Basket[T]) putOwn(elem *T, tid int) error {
	checkThread(tid, len(b.slots))
	if b.closed.LoadAcquire() {
		return ErrBasketFull
	}
	s := &b.slots[tid]
	if s.state.LoadAcquire() != slotEmpty || !s.fill(elem) {
		return ErrBasketFull
	}
	return nil
}

func (b *Basket[T]) takeFAI() (T, error) {
	for !b.closed.LoadAcquire() && b.takes.LoadAcquire() < b.size {
		i := b.takes.AddAcqRel(1) - 1
		if i >= b.size {
			break
		}
		if elem, ok := b.slots[i].claim(); ok {
			return elem, nil
		}
	}
	b.closed.StoreRelease(true)
	var zero T
	return zero, ErrBasketClosed
}

// takeScan visits every slot once, starting at the caller's own slot,
// and closes the basket after a full pass without a value.
func (b *Basket[T]) takeScan(tid int) (T, error) {
	start := uint64(tid) % b.size
	for n := uint64(0); n < b.size; n++ {
		if b.closed.LoadAcquire() {
			break
		}
		i := start + n
		if i >= b.size {
			i -= b.size
		}
		if elem, ok := b.slots[i].claim(); ok {
			return elem, nil
		}
	}
	b.closed.StoreRelease(true)
	var zero T
	return zero, ErrBasketClosed
}

// reset returns the basket to its initial state.
// The caller must own the basket exclusively.
func (b *Basket[T]) reset() {
	var zero T
	for i := range b.slots {
		b.slots[i].data = zero
		b.slots[i].state.StoreRelaxed(slotEmpty)
	}
	b.puts.StoreRelaxed(0)
	b.takes.StoreRelaxed(0)
	b.closed.StoreRelease(false)
}

// fill publishes *elem into an empty slot.
// The data write is ordered before the state release; a consumer reads
// data only after observing slotFull.
func (s *basketSlot[T]) fill(elem *T) bool {
	s.data = *elem
	if s.state.CompareAndSwapAcqRel(slotEmpty, slotFull) {
		return true
	}
	var zero T
	s.data = zero
	return false
}

// claim moves the slot to taken and returns its value if it held one.
// A slot still empty gets one spin of grace for an in-flight producer
// before it is killed.
func (s *basketSlot[T]) claim() (T, bool) {
	var zero T
	st := s.state.LoadAcquire()
	if st == slotEmpty {
		sw := spin.Wait{}
		sw.Once()
		st = s.state.LoadAcquire()
	}
	for {
		switch st {
		case slotTaken:
			return zero, false
		case slotEmpty:
			if s.state.CompareAndSwapAcqRel(slotEmpty, slotTaken) {
				return zero, false
			}
		case slotFull:
			if s.state.CompareAndSwapAcqRel(slotFull, slotTaken) {
				elem := s.data
				s.data = zero
				return elem, true
			}
		}
		st = s.state.LoadAcquire()
	}
}
