package dav1d

import (
	"github.com/validvoid/dav1d/internal/tables"
	"github.com/validvoid/dav1d/msac"
)

// TxSplitCDF holds the adaptive split-flag CDF set indexed by tx depth and
// context; a minimal 2-entry (bool) CDF per node.
type TxSplitCDF [][]uint16

// ReadVarTxTree walks the variable-tx tree starting from the block's
// canonical max transform size, reading one split flag per subtree node
// (context = above-tx + left-tx), and packs the split decisions into a
// 32-bit mask per row-half, spec.md §4.5.
//
// bw4/bh4 is the block's footprint in 4x4 units; aboveTx/leftTx are the
// neighbor strips' Tx bytes for context formation.
func ReadVarTxTree(d *msac.Decoder, maxTx tables.TxSize, bw4, bh4 int, aboveTx, leftTx []uint8, cdfFor func(depth, ctx int) []uint16) []uint32 {
	rowUnits := (bh4 + 1) / 2
	mask := make([]uint32, rowUnits)

	var recurse func(x4, y4 int, tx tables.TxSize, depth int)
	recurse = func(x4, y4 int, tx tables.TxSize, depth int) {
		if x4 >= bw4 || y4 >= bh4 {
			return
		}
		if tx == tables.Tx4x4 || depth >= 2 {
			markSplit(mask, x4, y4, bw4, false)
			return
		}
		ctx := 0
		if x4 < len(aboveTx) {
			ctx += int(aboveTx[x4])
		}
		if y4 < len(leftTx) {
			ctx += int(leftTx[y4])
		}
		cdf := cdfFor(depth, ctx)
		split := d.DecodeBoolAdapt(cdf)
		if !split {
			markSplit(mask, x4, y4, bw4, false)
			return
		}
		markSplit(mask, x4, y4, bw4, true)
		half := tx.Unit4x4() / 2
		child := tx - 1
		recurse(x4, y4, child, depth+1)
		recurse(x4+half, y4, child, depth+1)
		recurse(x4, y4+half, child, depth+1)
		recurse(x4+half, y4+half, child, depth+1)
	}
	recurse(0, 0, maxTx, 0)
	return mask
}

func markSplit(mask []uint32, x4, y4, bw4 int, split bool) {
	row := y4 / 2
	if row >= len(mask) {
		return
	}
	bit := uint32(y4*bw4 + x4)
	if bit >= 32 {
		bit %= 32
	}
	if split {
		mask[row] |= 1 << bit
	}
}
