// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package basketq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// cellSize is the size of one register cell in bytes.
const cellSize = int(unsafe.Sizeof(atomix.Uint64{}))

// cellArena holds n register cells, each occupying width bytes.
//
// Cells are carved out of a single backing slice. The first cell is
// aligned to width so that, for width >= cache line, no two cells share
// a line. Width 8 packs cells densely (no padding).
type cellArena struct {
	cells  []atomix.Uint64
	stride int // slice elements per cell
	base   int // index of the first aligned cell
	n      int
}

func newCellArena(n, width int) cellArena {
	stride := max(1, width/cellSize)
	cells := make([]atomix.Uint64, n*stride+stride)

	base := 0
	if width > cellSize {
		addr := uintptr(unsafe.Pointer(unsafe.SliceData(cells)))
		if rem := addr % uintptr(width); rem != 0 {
			base = int((uintptr(width) - rem) / uintptr(cellSize))
		}
	}

	return cellArena{cells: cells, stride: stride, base: base, n: n}
}

// at returns cell i. Bounds check is eliminated by the slice index.
func (a *cellArena) at(i int) *atomix.Uint64 {
	return &a.cells[a.base+i*a.stride]
}

// max scans all cells and returns the largest value and its cell index.
func (a *cellArena) max() (uint64, int) {
	var m uint64
	idx := 0
	for i := range a.n {
		if v := a.at(i).LoadAcquire(); v > m {
			m, idx = v, i
		}
	}
	return m, idx
}

func (a *cellArena) reset() {
	for i := range a.n {
		a.at(i).StoreRelaxed(0)
	}
}

// validWidth reports whether w is a supported cell width.
func validWidth(w int) bool {
	switch w {
	case 8, 16, 32, 64, 128:
		return true
	}
	return false
}
