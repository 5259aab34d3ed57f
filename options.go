// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package basketq

import (
	"math"
	"runtime"
	"unsafe"
)

// Defaults applied by New.
const (
	DefaultBasketSize   = 4
	DefaultPadding      = 64
	DefaultSegmentSize  = 1024
	DefaultRecycleLimit = 64
)

// Options configures queue creation and strategy selection.
type Options struct {
	// Basket array length (bounded) or baskets per segment (unbounded)
	capacity int

	threads int
	k       int
	basket  BasketStrategy

	// Register layout
	strategy  RegisterStrategy
	padding   int
	groupSize int // 0: ceil(sqrt(threads))

	unbounded bool
	recycle   int // Recycled segment cache size
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	// Bounded queue, 8 threads, baskets of 4, grouped registers
//	q := basketq.BuildBounded[Event](basketq.New(1 << 16).
//	    Threads(8).
//	    BasketSize(4).
//	    Register(basketq.RegisterGrouped).
//	    GroupSize(2))
//
//	// Unbounded queue with one basket slot per thread
//	q := basketq.BuildSegmented[*Request](basketq.New(1024).
//	    Threads(16).
//	    Contention().
//	    Unbounded())
type Builder struct {
	opts Options
}

// New creates a queue builder.
//
// For a bounded queue capacity is the number of baskets. For an unbounded
// queue (see Unbounded) it is the number of baskets per segment.
//
// Panics if capacity < 1.
func New(capacity int) *Builder {
	if capacity < 1 {
		panic("basketq: capacity must be >= 1")
	}
	return &Builder{opts: Options{
		capacity: capacity,
		threads:  runtime.GOMAXPROCS(0),
		k:        DefaultBasketSize,
		basket:   BasketFAI,
		strategy: RegisterDistributed,
		padding:  DefaultPadding,
		recycle:  DefaultRecycleLimit,
	}}
}

// Threads sets the number of participating thread ids.
// Every operation must pass a thread id in [0, n).
// Panics if n < 1.
func (b *Builder) Threads(n int) *Builder {
	if n < 1 {
		panic("basketq: threads must be >= 1")
	}
	b.opts.threads = n
	return b
}

// BasketSize sets K, the number of slots per FAI basket.
//
// Larger K amortizes coordination over more concurrent producers and
// consumers per basket, and widens the window in which items of one
// basket are delivered out of order. Ignored with Contention.
// Panics if k < 1.
func (b *Builder) BasketSize(k int) *Builder {
	if k < 1 {
		panic("basketq: basket size must be >= 1")
	}
	b.opts.k = k
	return b
}

// Contention selects BasketContention: one slot per thread id, producers
// compete only on their own slot.
func (b *Builder) Contention() *Builder {
	b.opts.basket = BasketContention
	return b
}

// Register selects the head and tail register strategy.
func (b *Builder) Register(s RegisterStrategy) *Builder {
	if s > RegisterSqrt {
		panic("basketq: unknown register strategy")
	}
	b.opts.strategy = s
	return b
}

// Padding sets the per-cell footprint of distributed, grouped and sqrt
// registers in bytes: 8 (unpadded), 16, 32, 64 or 128.
func (b *Builder) Padding(width int) *Builder {
	if !validWidth(width) {
		panic("basketq: padding width must be one of 8, 16, 32, 64, 128")
	}
	b.opts.padding = width
	return b
}

// GroupSize sets how many thread ids share one cell of a grouped
// register. Defaults to ceil(sqrt(threads)).
func (b *Builder) GroupSize(g int) *Builder {
	if g < 1 {
		panic("basketq: group size must be >= 1")
	}
	b.opts.groupSize = g
	return b
}

// Unbounded selects the segmented queue. Capacity becomes the number of
// baskets per segment.
func (b *Builder) Unbounded() *Builder {
	b.opts.unbounded = true
	return b
}

// RecycleSegments bounds how many reclaimed segments an unbounded queue
// keeps for reuse. Zero disables recycling.
func (b *Builder) RecycleSegments(n int) *Builder {
	if n < 0 {
		panic("basketq: recycle limit must be >= 0")
	}
	b.opts.recycle = n
	return b
}

// Build creates a Queue[T]: Segmented if Unbounded was set, Bounded
// otherwise.
func Build[T any](b *Builder) Queue[T] {
	if b.opts.unbounded {
		return newSegmented[T](&b.opts)
	}
	return newBounded[T](&b.opts)
}

// BuildBounded creates a bounded queue.
// Panics if the builder is configured with Unbounded().
func BuildBounded[T any](b *Builder) *Bounded[T] {
	if b.opts.unbounded {
		panic("basketq: BuildBounded requires a builder without Unbounded()")
	}
	return newBounded[T](&b.opts)
}

// BuildSegmented creates an unbounded segmented queue.
// Unbounded() is implied.
func BuildSegmented[T any](b *Builder) *Segmented[T] {
	b.opts.unbounded = true
	return newSegmented[T](&b.opts)
}

// register creates one head or tail register from the options.
func (o *Options) register() MaxRegister {
	g := o.groupSize
	if g == 0 {
		g = int(math.Ceil(math.Sqrt(float64(o.threads))))
	}
	return NewRegister(o.strategy, o.threads, g, o.padding)
}

// basketWidth returns K for the configured basket strategy.
func (o *Options) basketWidth() int {
	if o.basket == BasketContention {
		return o.threads
	}
	return o.k
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte

// padPtr is padding to fill cache line after pointer-sized field.
type padPtr [64 - ptrSize]byte
