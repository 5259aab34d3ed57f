// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package basketq_test

import (
	"errors"
	"fmt"
	"testing"

	"code.hybscloud.com/basketq"
)

// =============================================================================
// Bounded Queue - Sequential Operations
// =============================================================================

// TestBoundedNoLoss enqueues 0..9999 into a queue of exactly 10000
// baskets with K=1 and expects them back in order, then empty.
func TestBoundedNoLoss(t *testing.T) {
	const n = 10000
	q := basketq.NewBounded[int](n, 1, 1)

	if q.Cap() != n {
		t.Fatalf("Cap: got %d, want %d", q.Cap(), n)
	}

	for i := range n {
		v := i
		if err := q.Enqueue(&v, 0); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	for i := range n {
		v, err := q.Dequeue(0)
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if v != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, v, i)
		}
	}

	if _, err := q.Dequeue(0); !errors.Is(err, basketq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestBoundedCapacityExhausted verifies that baskets are never reused.
func TestBoundedCapacityExhausted(t *testing.T) {
	q := basketq.NewBounded[int](4, 1, 1)

	for i := range 4 {
		v := i
		if err := q.Enqueue(&v, 0); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	v := 99
	if err := q.Enqueue(&v, 0); !errors.Is(err, basketq.ErrCapacityExhausted) {
		t.Fatalf("Enqueue past capacity: got %v, want ErrCapacityExhausted", err)
	}

	// Draining does not free baskets.
	for range 4 {
		if _, err := q.Dequeue(0); err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
	}
	if err := q.Enqueue(&v, 0); !errors.Is(err, basketq.ErrCapacityExhausted) {
		t.Fatalf("Enqueue after drain: got %v, want ErrCapacityExhausted", err)
	}
	if basketq.IsWouldBlock(basketq.ErrCapacityExhausted) {
		t.Fatal("ErrCapacityExhausted must not be a would-block signal")
	}
}

// TestBoundedEmpty verifies Dequeue on a fresh queue.
func TestBoundedEmpty(t *testing.T) {
	q := basketq.NewBounded[string](8, 4, 2)
	for tid := range 2 {
		v, err := q.Dequeue(tid)
		if !errors.Is(err, basketq.ErrWouldBlock) {
			t.Fatalf("Dequeue(tid=%d): got %v, want ErrWouldBlock", tid, err)
		}
		if v != "" {
			t.Fatalf("Dequeue(tid=%d): got %q, want zero value", tid, v)
		}
	}
}

// TestBoundedInterleaved alternates enqueue and dequeue across thread ids.
func TestBoundedInterleaved(t *testing.T) {
	const threads = 4
	q := basketq.NewBounded[int](1000, 2, threads)

	for i := range 500 {
		v := i
		if err := q.Enqueue(&v, i%threads); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
		got, err := q.Dequeue((i + 1) % threads)
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if got != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, got, i)
		}
	}
	if q.Used() != 500 {
		t.Fatalf("Used: got %d, want 500", q.Used())
	}
}

// =============================================================================
// Segmented Queue - Sequential Operations
// =============================================================================

// TestSegmentedAcrossSegments pushes far more items than one segment holds.
func TestSegmentedAcrossSegments(t *testing.T) {
	q := basketq.NewSegmented[int](4, 1, 1)

	if q.SegmentSize() != 4 {
		t.Fatalf("SegmentSize: got %d, want 4", q.SegmentSize())
	}

	for i := range 100 {
		v := i
		if err := q.Enqueue(&v, 0); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	for i := range 100 {
		v, err := q.Dequeue(0)
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if v != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, v, i)
		}
	}
	if _, err := q.Dequeue(0); !errors.Is(err, basketq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}

	stats := q.Stats()
	if stats.Retired < 24 {
		t.Fatalf("Retired: got %d, want >= 24", stats.Retired)
	}
}

// TestSegmentedRecycles verifies that drained segments come back through
// the recycle cache.
func TestSegmentedRecycles(t *testing.T) {
	q := basketq.NewSegmented[int](4, 1, 1)

	for i := range 400 {
		v := i
		if err := q.Enqueue(&v, 0); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
		got, err := q.Dequeue(0)
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if got != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, got, i)
		}
	}

	stats := q.Stats()
	if stats.Reused == 0 {
		t.Fatalf("Reused: got 0, want > 0 (stats %+v)", stats)
	}
	if stats.Allocated >= 100 {
		t.Fatalf("Allocated: got %d, want < 100 with recycling", stats.Allocated)
	}
}

// TestSegmentedNoRecycle disables the recycle cache.
func TestSegmentedNoRecycle(t *testing.T) {
	q := basketq.BuildSegmented[int](basketq.New(2).BasketSize(1).Threads(1).RecycleSegments(0))

	for i := range 50 {
		v := i
		_ = q.Enqueue(&v, 0)
		got, err := q.Dequeue(0)
		if err != nil || got != i {
			t.Fatalf("Dequeue(%d): got (%d, %v), want (%d, nil)", i, got, err, i)
		}
	}
	if q.Reclaim(0) < 0 {
		t.Fatal("Reclaim: negative count")
	}
	if stats := q.Stats(); stats.Reused != 0 {
		t.Fatalf("Reused: got %d, want 0", stats.Reused)
	}
}

// =============================================================================
// Strategy Grid
// =============================================================================

type queueConfig struct {
	name    string
	builder func() *basketq.Builder
}

func strategyGrid(capacity, threads int) []queueConfig {
	var configs []queueConfig
	registers := []basketq.RegisterStrategy{
		basketq.RegisterDistributed,
		basketq.RegisterShared,
		basketq.RegisterGrouped,
		basketq.RegisterSqrt,
	}
	for _, reg := range registers {
		for _, width := range []int{8, 16, 32, 64, 128} {
			for _, contention := range []bool{false, true} {
				name := fmt.Sprintf("%s/pad%d/fai", reg, width)
				if contention {
					name = fmt.Sprintf("%s/pad%d/contention", reg, width)
				}
				configs = append(configs, queueConfig{
					name: name,
					builder: func() *basketq.Builder {
						b := basketq.New(capacity).
							Threads(threads).
							BasketSize(3).
							Register(reg).
							Padding(width).
							GroupSize(2)
						if contention {
							b.Contention()
						}
						return b
					},
				})
			}
		}
	}
	return configs
}

// TestStrategyGridFIFO runs every register, padding and basket strategy
// through a sequential FIFO check on both queue kinds.
func TestStrategyGridFIFO(t *testing.T) {
	const threads = 5
	for _, cfg := range strategyGrid(256, threads) {
		t.Run("bounded/"+cfg.name, func(t *testing.T) {
			q := basketq.Build[int](cfg.builder())
			checkSequentialFIFO(t, q, 200)
		})
		t.Run("segmented/"+cfg.name, func(t *testing.T) {
			q := basketq.Build[int](cfg.builder().Unbounded())
			checkSequentialFIFO(t, q, 1000)
		})
	}
}

func checkSequentialFIFO(t *testing.T, q basketq.Queue[int], n int) {
	t.Helper()
	threads := q.Threads()
	for i := range n {
		v := i
		if err := q.Enqueue(&v, i%threads); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	for i := range n {
		v, err := q.Dequeue((i * 7) % threads)
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if v != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, v, i)
		}
	}
	if _, err := q.Dequeue(0); !errors.Is(err, basketq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

// =============================================================================
// Error Classification
// =============================================================================

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wouldBlock bool
		nonFailure bool
	}{
		{"nil", nil, false, true},
		{"ErrWouldBlock", basketq.ErrWouldBlock, true, true},
		{"wrapped", fmt.Errorf("dequeue: %w", basketq.ErrWouldBlock), true, true},
		{"ErrCapacityExhausted", basketq.ErrCapacityExhausted, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := basketq.IsWouldBlock(tt.err); got != tt.wouldBlock {
				t.Fatalf("IsWouldBlock: got %v, want %v", got, tt.wouldBlock)
			}
			if got := basketq.IsNonFailure(tt.err); got != tt.nonFailure {
				t.Fatalf("IsNonFailure: got %v, want %v", got, tt.nonFailure)
			}
		})
	}
	if !basketq.IsSemantic(basketq.ErrWouldBlock) {
		t.Fatal("IsSemantic(ErrWouldBlock): got false, want true")
	}
}

// =============================================================================
// Misconfiguration Panics
// =============================================================================

func TestConfigurationPanics(t *testing.T) {
	tests := []struct {
		name   string
		create func()
	}{
		{"capacity", func() { basketq.New(0) }},
		{"threads", func() { basketq.New(8).Threads(0) }},
		{"basketSize", func() { basketq.New(8).BasketSize(0) }},
		{"padding", func() { basketq.New(8).Padding(24) }},
		{"groupSize", func() { basketq.New(8).GroupSize(0) }},
		{"recycle", func() { basketq.New(8).RecycleSegments(-1) }},
		{"strategy", func() { basketq.New(8).Register(basketq.RegisterStrategy(42)) }},
		{"boundedUnbounded", func() { basketq.BuildBounded[int](basketq.New(8).Unbounded()) }},
		{"register", func() { basketq.NewDistributedRegister(0, 64) }},
		{"basket", func() { basketq.NewBasket[int](0, basketq.BasketFAI) }},
		{"boundedThreadID", func() {
			q := basketq.NewBounded[int](8, 1, 2)
			v := 1
			_ = q.Enqueue(&v, 2)
		}},
		{"segmentedThreadID", func() {
			q := basketq.NewSegmented[int](8, 1, 2)
			_, _ = q.Dequeue(-1)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected panic")
				}
			}()
			tt.create()
		})
	}
}

// =============================================================================
// Interface Compliance
// =============================================================================

func TestQueueInterface(t *testing.T) {
	var _ basketq.Queue[int] = basketq.NewBounded[int](8, 1, 1)
	var _ basketq.Queue[int] = basketq.NewSegmented[int](8, 1, 1)
	var _ basketq.MaxRegister = basketq.NewSharedRegister()
	var _ basketq.MaxRegister = basketq.NewDistributedRegister(4, 64)
	var _ basketq.MaxRegister = basketq.NewGroupedRegister(4, 2, 64)
	var _ basketq.MaxRegister = basketq.NewSqrtRegister(4, 64)
}
