// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package basketq

import (
	"math"

	"code.hybscloud.com/atomix"
)

// MaxRegister is a load-linked / increment-conditional (LL/IC) register.
//
// The logical value is a non-negative integer that never decreases.
// Read is the load-linked half: it returns the current maximum.
// IncrementConditional is the conditional half: it tries to publish
// observed+1, and takes effect only if no thread has already moved the
// register past observed. It never reports failure; callers re-read.
//
// Two concurrent IncrementConditional calls with the same observed value
// advance the register by at most one. The register is not a linearizable
// counter.
//
// Implementations are provided by this package only.
type MaxRegister interface {
	// Read returns the current logical maximum. Wait-free.
	Read() uint64

	// IncrementConditional attempts to publish observed+1 on behalf of
	// thread tid.
	IncrementConditional(observed uint64, tid int)

	reset()
}

// RegisterStrategy selects the physical layout of a MaxRegister.
type RegisterStrategy uint8

const (
	// RegisterDistributed uses one cell per thread. Read and
	// IncrementConditional scan all cells: O(threads).
	RegisterDistributed RegisterStrategy = iota

	// RegisterShared uses a single CAS-updated cell: O(1), every thread
	// contends on one cache line.
	RegisterShared

	// RegisterGrouped maps groupSize threads onto one cell, updated by CAS:
	// O(threads/groupSize).
	RegisterGrouped

	// RegisterSqrt uses floor(sqrt(threads)) cells and a relaxed bucket
	// choice: O(sqrt(threads)). The maximum is reached eventually rather
	// than by the caller's own cell.
	RegisterSqrt
)

// String returns the strategy name.
func (s RegisterStrategy) String() string {
	switch s {
	case RegisterDistributed:
		return "distributed"
	case RegisterShared:
		return "shared"
	case RegisterGrouped:
		return "grouped"
	case RegisterSqrt:
		return "sqrt"
	}
	return "unknown"
}

// NewRegister creates a MaxRegister for the given strategy.
//
// threads bounds the thread ids passed to IncrementConditional.
// groupSize is used by RegisterGrouped only. width is the per-cell
// footprint in bytes (8, 16, 32, 64 or 128) and is ignored by
// RegisterShared, which always occupies its own cache line.
//
// Panics on invalid arguments.
func NewRegister(s RegisterStrategy, threads, groupSize, width int) MaxRegister {
	switch s {
	case RegisterDistributed:
		return NewDistributedRegister(threads, width)
	case RegisterShared:
		return NewSharedRegister()
	case RegisterGrouped:
		return NewGroupedRegister(threads, groupSize, width)
	case RegisterSqrt:
		return NewSqrtRegister(threads, width)
	}
	panic("basketq: unknown register strategy")
}

func checkRegisterArgs(threads, width int) {
	if threads < 1 {
		panic("basketq: threads must be >= 1")
	}
	if !validWidth(width) {
		panic("basketq: padding width must be one of 8, 16, 32, 64, 128")
	}
}

// SharedRegister is a MaxRegister backed by one shared counter.
type SharedRegister struct {
	_ pad
	v atomix.Uint64
	_ padShort
}

// NewSharedRegister creates a shared-counter register.
func NewSharedRegister() *SharedRegister {
	return &SharedRegister{}
}

// Read returns the counter value.
func (r *SharedRegister) Read() uint64 {
	return r.v.LoadAcquire()
}

// IncrementConditional moves the counter from observed to observed+1.
// At most one of several concurrent callers with the same observed wins.
// tid is ignored.
func (r *SharedRegister) IncrementConditional(observed uint64, tid int) {
	if r.v.LoadAcquire() == observed {
		r.v.CompareAndSwapAcqRel(observed, observed+1)
	}
}

func (r *SharedRegister) reset() {
	r.v.StoreRelaxed(0)
}

// DistributedRegister keeps one cell per thread; the value is the
// maximum over all cells. Each thread writes only its own cell, so
// updates are plain release stores.
type DistributedRegister struct {
	cells cellArena
}

// NewDistributedRegister creates a register with one cell per thread,
// each occupying width bytes.
func NewDistributedRegister(threads, width int) *DistributedRegister {
	checkRegisterArgs(threads, width)
	return &DistributedRegister{cells: newCellArena(threads, width)}
}

// Read returns the maximum over all cells.
func (r *DistributedRegister) Read() uint64 {
	m, _ := r.cells.max()
	return m
}

// IncrementConditional re-scans the cells and, if the maximum still
// equals observed, stores observed+1 into cell tid.
func (r *DistributedRegister) IncrementConditional(observed uint64, tid int) {
	if m, _ := r.cells.max(); m == observed {
		r.cells.at(tid).StoreRelease(observed + 1)
	}
}

func (r *DistributedRegister) reset() {
	r.cells.reset()
}

// GroupedRegister shares one cell between groupSize consecutive thread
// ids. Fewer cells than DistributedRegister, at the cost of CAS on the
// shared group cell.
type GroupedRegister struct {
	cells     cellArena
	groupSize int
}

// NewGroupedRegister creates a grouped register.
// Panics if groupSize < 1.
func NewGroupedRegister(threads, groupSize, width int) *GroupedRegister {
	checkRegisterArgs(threads, width)
	if groupSize < 1 {
		panic("basketq: group size must be >= 1")
	}
	n := (threads + groupSize - 1) / groupSize
	return &GroupedRegister{cells: newCellArena(n, width), groupSize: groupSize}
}

// Read returns the maximum over all group cells.
func (r *GroupedRegister) Read() uint64 {
	m, _ := r.cells.max()
	return m
}

// IncrementConditional raises the caller's group cell to observed+1 if
// the maximum still equals observed. The CAS only ever raises the cell.
func (r *GroupedRegister) IncrementConditional(observed uint64, tid int) {
	own := r.cells.at(tid / r.groupSize)
	y := own.LoadAcquire()
	if y > observed {
		return
	}
	if m, _ := r.cells.max(); m == observed {
		own.CompareAndSwapAcqRel(y, observed+1)
	}
}

func (r *GroupedRegister) reset() {
	r.cells.reset()
}

// SqrtRegister uses floor(sqrt(threads)) cells. Threads do not own
// cells: an increment lands on a bucket chosen from the bucket holding
// the maximum, the maximum itself, and the caller id, which spreads
// writes across buckets without per-thread memory.
type SqrtRegister struct {
	cells cellArena
	size  int
}

// NewSqrtRegister creates a sqrt-bucketed register.
func NewSqrtRegister(threads, width int) *SqrtRegister {
	checkRegisterArgs(threads, width)
	size := max(1, int(math.Sqrt(float64(threads))))
	return &SqrtRegister{cells: newCellArena(size, width), size: size}
}

// Read returns the maximum over all buckets.
func (r *SqrtRegister) Read() uint64 {
	m, _ := r.cells.max()
	return m
}

// IncrementConditional publishes observed+1 into bucket
// (bucketOfMax + observed + tid) mod size, stepping past bucketOfMax.
// If that bucket is already ahead, it falls back to a CAS on the
// bucket holding the maximum.
func (r *SqrtRegister) IncrementConditional(observed uint64, tid int) {
	m, idx := r.cells.max()
	if m != observed {
		return
	}

	pos := 0
	if r.size > 1 {
		pos = int((uint64(idx) + observed + uint64(tid)) % uint64(r.size))
		if pos == idx {
			pos = (pos + 1) % r.size
		}
	}

	cell := r.cells.at(pos)
	if x := cell.LoadAcquire(); x < observed+1 {
		if cell.CompareAndSwapAcqRel(x, observed+1) {
			return
		}
	}

	top := r.cells.at(idx)
	if top.LoadAcquire() == observed {
		top.CompareAndSwapAcqRel(observed, observed+1)
	}
}

func (r *SqrtRegister) reset() {
	r.cells.reset()
}
