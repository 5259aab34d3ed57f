// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hazard implements hazard-pointer gated reclamation.
//
// Go's garbage collector already prevents use-after-free. What it cannot
// prevent is reuse: an object recycled (reset and handed out again) while
// another goroutine still reads it would expose torn state, the classic
// ABA hazard. A Pool delays the reclaim callback for a retired object
// until no thread's hazard slot references it.
//
// Protocol per access:
//
//	p := pool.Protect(0, &shared, tid) // publish, then revalidate
//	use(p)                             // p cannot be reclaimed here
//	pool.Clear(tid)
//
// and per removal, after unlinking p so that no new reader can reach it:
//
//	pool.Retire(p, tid)
//
// Retire never calls the reclaim callback for a pointer that was
// published in a hazard slot before the scan read that slot.
package hazard

import (
	"sync/atomic"

	"github.com/gammazero/deque"
	"k8s.io/klog/v2"
)

// Pool is a hazard-pointer domain for objects of type T.
type Pool[T any] struct {
	records   []record[T]
	maxHP     int
	threshold int
	reclaim   func(*T)
}

type record[T any] struct {
	_       [64]byte
	hp      []atomic.Pointer[T]
	retired deque.Deque[*T]
	guarded map[*T]struct{} // scan scratch, owned by this thread
	_       [64]byte
}

// New creates a pool for maxThreads thread ids with maxHP hazard slots
// each. reclaim is called for every retired pointer once it is provably
// unprotected; nil simply drops the pointer for the garbage collector.
//
// Panics if maxThreads < 1 or maxHP < 1.
func New[T any](maxThreads, maxHP int, reclaim func(*T)) *Pool[T] {
	if maxThreads < 1 {
		panic("hazard: maxThreads must be >= 1")
	}
	if maxHP < 1 {
		panic("hazard: maxHP must be >= 1")
	}
	p := &Pool[T]{
		records:   make([]record[T], maxThreads),
		maxHP:     maxHP,
		threshold: 2 * maxThreads * maxHP,
		reclaim:   reclaim,
	}
	for i := range p.records {
		p.records[i].hp = make([]atomic.Pointer[T], maxHP)
		p.records[i].guarded = make(map[*T]struct{}, maxThreads*maxHP)
	}
	return p
}

// Threshold returns the retire-list length that triggers a scan.
func (p *Pool[T]) Threshold() int {
	return p.threshold
}

// Protect publishes the current value of src in hazard slot idx of
// thread tid and returns it. The load is repeated until the published
// value matches src, so the returned pointer was still reachable from src
// after it became visible to scanners.
func (p *Pool[T]) Protect(idx int, src *atomic.Pointer[T], tid int) *T {
	slot := &p.records[tid].hp[idx]
	var published *T
	for {
		cur := src.Load()
		if cur == published {
			return cur
		}
		slot.Store(cur)
		published = cur
	}
}

// Clear releases every hazard slot of thread tid.
func (p *Pool[T]) Clear(tid int) {
	hp := p.records[tid].hp
	for i := range hp {
		hp[i].Store(nil)
	}
}

// ClearOne releases hazard slot idx of thread tid.
func (p *Pool[T]) ClearOne(idx, tid int) {
	p.records[tid].hp[idx].Store(nil)
}

// Retire hands ptr to the pool. The caller must already have made ptr
// unreachable from shared state. Once the retire list of thread tid
// reaches the threshold, Retire scans all hazard slots and reclaims every
// retired pointer nobody protects. Reports whether a scan ran.
func (p *Pool[T]) Retire(ptr *T, tid int) bool {
	r := &p.records[tid]
	r.retired.PushBack(ptr)
	if r.retired.Len() < p.threshold {
		return false
	}
	p.scan(tid)
	return true
}

// Scan forces a reclamation pass over the retire list of thread tid and
// returns the number of pointers reclaimed.
func (p *Pool[T]) Scan(tid int) int {
	return p.scan(tid)
}

// Retired returns the length of the retire list of thread tid.
// Only thread tid may call it while the pool is in use.
func (p *Pool[T]) Retired(tid int) int {
	return p.records[tid].retired.Len()
}

func (p *Pool[T]) scan(tid int) int {
	r := &p.records[tid]
	clear(r.guarded)
	for i := range p.records {
		hp := p.records[i].hp
		for j := range hp {
			if ptr := hp[j].Load(); ptr != nil {
				r.guarded[ptr] = struct{}{}
			}
		}
	}

	// Compact in place: each retired pointer is examined once, protected
	// ones go back to the tail in their original order.
	n := r.retired.Len()
	reclaimed := 0
	for range n {
		ptr := r.retired.PopFront()
		if _, ok := r.guarded[ptr]; ok {
			r.retired.PushBack(ptr)
			continue
		}
		if p.reclaim != nil {
			p.reclaim(ptr)
		}
		reclaimed++
	}

	klog.V(4).InfoS("hazard scan", "thread", tid, "retired", n, "reclaimed", reclaimed, "kept", r.retired.Len())
	return reclaimed
}
