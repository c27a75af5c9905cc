package dav1d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/validvoid/dav1d/internal/tables"
	"github.com/validvoid/dav1d/msac"
)

func cdfForTx() func(depth, ctx int) []uint16 {
	cache := map[[2]int][]uint16{}
	return func(depth, ctx int) []uint16 {
		key := [2]int{depth, ctx}
		if c, ok := cache[key]; ok {
			return c
		}
		c := []uint16{16384, 1 << 15, 0}
		cache[key] = c
		return c
	}
}

func someBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(0x3c + i*29)
	}
	return b
}

func TestReadVarTxTreeProducesOneMaskPerRowHalf(t *testing.T) {
	d := msac.NewDecoder(someBytes(64), false)
	mask := ReadVarTxTree(d, tables.Tx16x16, 4, 4, nil, nil, cdfForTx())
	assert.Len(t, mask, 2) // (bh4+1)/2 == 2 for bh4==4
}

func TestReadVarTxTreeStopsAtTx4x4(t *testing.T) {
	d := msac.NewDecoder(someBytes(64), false)
	mask := ReadVarTxTree(d, tables.Tx4x4, 1, 1, nil, nil, cdfForTx())
	assert.Len(t, mask, 1)
	assert.False(t, d.Error())
}

func TestReadVarTxTreeNeverReadsPastTileBounds(t *testing.T) {
	d := msac.NewDecoder(someBytes(256), false)
	// bw4/bh4 smaller than the canonical max forces early out-of-range
	// recursion returns rather than reading split flags for absent children.
	mask := ReadVarTxTree(d, tables.Tx64x64, 2, 2, nil, nil, cdfForTx())
	assert.NotEmpty(t, mask)
	assert.False(t, d.Error())
}
