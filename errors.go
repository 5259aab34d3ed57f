// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package basketq

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates that Dequeue found the queue empty.
//
// It is returned only after the head and tail registers were observed
// unchanged across a re-read. Under concurrent enqueues this can be a
// momentary false negative; callers that need a blocking dequeue retry:
//
//	backoff := iox.Backoff{}
//	for {
//	    v, err := q.Dequeue(tid)
//	    if err == nil {
//	        backoff.Reset()
//	        return v
//	    }
//	    backoff.Wait()
//	}
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrBasketFull is returned by [Basket.Put] when no slot is left for the
// caller or the basket is closed. Queues react by moving to the next
// basket; it never escapes a queue operation.
var ErrBasketFull = errors.New("basketq: basket full")

// ErrBasketClosed is returned by [Basket.Take] once the basket has been
// exhausted. It is permanent for that basket.
var ErrBasketClosed = errors.New("basketq: basket closed")

// ErrCapacityExhausted is returned by [Bounded.Enqueue] when the tail has
// moved past the last basket. This is a configuration error: the bounded
// queue never reuses baskets, so capacity must cover the total number of
// baskets consumed over the queue's lifetime. Use [Segmented] when that
// number is not known up front.
var ErrCapacityExhausted = errors.New("basketq: bounded queue capacity exhausted")

// IsWouldBlock reports whether err indicates an empty queue.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil or ErrWouldBlock.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
