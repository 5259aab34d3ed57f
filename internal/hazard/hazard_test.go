// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hazard_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/basketq/internal/hazard"
)

type node struct {
	value int
	dead  atomic.Bool
}

func TestNewPanics(t *testing.T) {
	require.Panics(t, func() { hazard.New[node](0, 1, nil) })
	require.Panics(t, func() { hazard.New[node](1, 0, nil) })
}

func TestThreshold(t *testing.T) {
	p := hazard.New[node](4, 3, nil)
	require.Equal(t, 24, p.Threshold())
}

func TestProtectReturnsCurrent(t *testing.T) {
	p := hazard.New[node](2, 1, nil)
	var src atomic.Pointer[node]
	n := &node{value: 1}
	src.Store(n)

	require.Same(t, n, p.Protect(0, &src, 1))

	src.Store(nil)
	require.Nil(t, p.Protect(0, &src, 1))
}

// TestRetireKeepsProtected checks that a protected pointer survives any
// number of scans and is reclaimed on the first scan after it is cleared.
func TestRetireKeepsProtected(t *testing.T) {
	var reclaimed []*node
	p := hazard.New[node](2, 1, func(n *node) { reclaimed = append(reclaimed, n) })

	var src atomic.Pointer[node]
	held := &node{value: 1}
	src.Store(held)
	require.Same(t, held, p.Protect(0, &src, 0))

	// Unlink, then retire from the other thread.
	src.Store(nil)
	free := &node{value: 2}
	p.Retire(held, 1)
	p.Retire(free, 1)

	require.Equal(t, 1, p.Scan(1))
	require.Equal(t, []*node{free}, reclaimed)
	require.Equal(t, 1, p.Retired(1))

	require.Zero(t, p.Scan(1))
	require.Equal(t, 1, p.Retired(1))

	p.Clear(0)
	require.Equal(t, 1, p.Scan(1))
	require.Equal(t, []*node{free, held}, reclaimed)
	require.Zero(t, p.Retired(1))
}

func TestRetireScansAtThreshold(t *testing.T) {
	var count int
	p := hazard.New[node](1, 2, func(*node) { count++ })
	threshold := p.Threshold()

	for i := range threshold - 1 {
		require.False(t, p.Retire(&node{value: i}, 0))
	}
	require.Zero(t, count)

	require.True(t, p.Retire(&node{}, 0))
	require.Equal(t, threshold, count)
	require.Zero(t, p.Retired(0))
}

func TestClearOne(t *testing.T) {
	var reclaimed int
	p := hazard.New[node](1, 2, func(*node) { reclaimed++ })
	a, b := &node{value: 1}, &node{value: 2}

	var srcA, srcB atomic.Pointer[node]
	srcA.Store(a)
	srcB.Store(b)
	p.Protect(0, &srcA, 0)
	p.Protect(1, &srcB, 0)
	p.Retire(a, 0)
	p.Retire(b, 0)
	require.Zero(t, p.Scan(0))

	p.ClearOne(1, 0)
	require.Equal(t, 1, p.Scan(0))
	require.Equal(t, 1, reclaimed)

	p.ClearOne(0, 0)
	require.Equal(t, 1, p.Scan(0))
	require.Equal(t, 2, reclaimed)
}

func TestNilReclaim(t *testing.T) {
	p := hazard.New[node](1, 1, nil)
	p.Retire(&node{}, 0)
	require.Equal(t, 1, p.Scan(0))
}

// TestConcurrentNoUseAfterReclaim swaps a shared pointer while readers
// dereference it under protection. The reclaim callback marks nodes dead;
// no reader may ever see a dead node.
func TestConcurrentNoUseAfterReclaim(t *testing.T) {
	const readers, swaps = 4, 20000
	writer := readers

	var reclaimed atomic.Int64
	p := hazard.New[node](readers+1, 1, func(n *node) {
		n.dead.Store(true)
		reclaimed.Add(1)
	})

	var src atomic.Pointer[node]
	src.Store(&node{})

	var stop atomic.Bool
	var violations atomic.Int64
	var wg sync.WaitGroup
	for tid := range readers {
		wg.Add(1)
		go func(tid int) {
			defer wg.Done()
			for !stop.Load() {
				n := p.Protect(0, &src, tid)
				if n.dead.Load() {
					violations.Add(1)
				}
				_ = n.value
				if n.dead.Load() {
					violations.Add(1)
				}
				p.Clear(tid)
			}
		}(tid)
	}

	for i := range swaps {
		old := src.Swap(&node{value: i + 1})
		p.Retire(old, writer)
	}
	stop.Store(true)
	wg.Wait()
	p.Scan(writer)

	require.Zero(t, violations.Load(), "reader observed a reclaimed node")
	require.Positive(t, reclaimed.Load())
	require.Equal(t, int64(swaps), reclaimed.Load()+int64(p.Retired(writer)))
}
