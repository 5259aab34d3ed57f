// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package basketq provides non-blocking basket queues built on LL/IC
// max registers.
//
// A basket queue is an array of K-baskets indexed by two max registers,
// head and tail. A producer reads the tail, tries to put into the basket
// at that index, and advances the tail whether or not it succeeded. A
// consumer does the same against the head. A basket that is full or
// closed is skipped for good, so no operation ever waits on another.
//
// Up to K producers that meet at the same basket all succeed, and their
// items come out in no particular order. Items in different baskets come
// out in basket order. This relaxation is what buys scalability.
//
// # Quick Start
//
//	// Bounded: 1<<16 baskets of 4 slots, 8 threads
//	q := basketq.NewBounded[Event](1<<16, 4, 8)
//
//	// Unbounded: segments of 1024 baskets
//	q := basketq.NewSegmented[*Request](1024, 4, 8)
//
// Every operation names the calling thread by an id in [0, threads):
//
//	v := 42
//	err := q.Enqueue(&v, tid)
//
//	elem, err := q.Dequeue(tid)
//	if basketq.IsWouldBlock(err) {
//	    // Queue observed empty
//	}
//
// Ids index per-thread register cells, basket slots and hazard records.
// Two goroutines must never use the same id at the same time. A worker
// pool typically passes the worker index:
//
//	for w := range workers {
//	    go func(tid int) {
//	        for {
//	            job, err := q.Dequeue(tid)
//	            if err == nil {
//	                job.Run()
//	            }
//	        }
//	    }(w)
//	}
//
// # Builder
//
//	q := basketq.BuildBounded[Event](basketq.New(1 << 16).
//	    Threads(32).
//	    BasketSize(8).
//	    Register(basketq.RegisterGrouped).
//	    GroupSize(4).
//	    Padding(128))
//
//	q := basketq.Build[Event](basketq.New(1024).Threads(16).Contention().Unbounded())
//
// # Max Registers
//
// A [MaxRegister] is a monotonic counter with two operations. Read
// returns the current maximum; IncrementConditional(m, tid) publishes m+1
// only if the register still reads m. It never reports failure: when two
// threads race, one wins and the other sees the winner on its next Read.
//
//	RegisterDistributed  one cell per thread, O(threads), plain stores
//	RegisterShared       one cell, O(1), CAS on a single cache line
//	RegisterGrouped      one cell per group of threads, CAS within a group
//	RegisterSqrt         floor(sqrt(threads)) cells, relaxed bucket choice
//
// Padding(8|16|32|64|128) sets the footprint of each cell. 64 and 128
// keep every cell on its own cache line; smaller widths trade false
// sharing for a shorter scan.
//
// # Baskets
//
// A [Basket] holds up to K values. Each slot moves empty → full → taken,
// or empty → taken when a consumer gives up on a producer that has not
// arrived yet. Never backward, so a late put cannot overwrite a value
// that was already taken.
//
//	BasketFAI         producers and consumers claim slots by fetch-and-add
//	BasketContention  one slot per thread id, consumers scan and CAS
//
// # Bounded and Segmented
//
// [Bounded] never reuses a basket. Size its capacity for the total
// number of baskets the queue will consume; when they run out, Enqueue
// returns [ErrCapacityExhausted], which is a configuration error.
//
// [Segmented] chains fixed-size segments. Drained segments are retired
// to a hazard-pointer pool and reused once no thread can still be
// reading them.
//
// # Error Handling
//
// Dequeue returns [ErrWouldBlock] when the queue was observed empty. This
// error is sourced from [code.hybscloud.com/iox] for ecosystem
// consistency:
//
//	backoff := iox.Backoff{}
//	for {
//	    v, err := q.Dequeue(tid)
//	    if err == nil {
//	        backoff.Reset()
//	        process(v)
//	        continue
//	    }
//	    if !basketq.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
//
// Misconfiguration (capacity, K or threads < 1, unsupported padding, a
// thread id out of range) panics.
//
// # Race Detection
//
// Basket slots publish plain data behind an atomic state word with
// acquire-release ordering. Go's race detector cannot observe that
// happens-before edge and may report false positives. Concurrent tests
// skip themselves when [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives with
// explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions, [code.hybscloud.com/iox] for semantic errors, and
// [k8s.io/klog/v2] for verbose logging of segment lifecycle events.
package basketq
