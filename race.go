// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package basketq

// RaceEnabled is true when the race detector is active.
// Basket slots publish plain data behind an atomic state word; the race
// detector cannot see that ordering, so concurrent tests skip themselves.
const RaceEnabled = true
