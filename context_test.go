package dav1d

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntraCtxSumsAboveAndLeft(t *testing.T) {
	above := NewBlockContext(4)
	left := NewBlockContext(4)
	above.Intra[1] = true
	left.Intra[2] = true
	assert.Equal(t, 2, IntraCtx(above, left, 1, 2))
	assert.Equal(t, 1, IntraCtx(above, left, 0, 2))
	assert.Equal(t, 0, IntraCtx(above, left, 0, 0))
}

func TestSkipCtxIndependentOfAboveLeftOffset(t *testing.T) {
	above := NewBlockContext(8)
	left := NewBlockContext(2)
	above.Skip[5] = true
	assert.Equal(t, 1, SkipCtx(above, left, 5, 0))
	assert.Equal(t, 0, SkipCtx(above, left, 2, 0))
}

func TestPartitionCtxClampsToTableDomain(t *testing.T) {
	above := NewBlockContext(1)
	left := NewBlockContext(1)
	above.Partition[0] = 9 // out of the precomputed table's [0,3] domain
	left.Partition[0] = 0
	assert.Equal(t, partitionCtxTable[3][0], PartitionCtx(above, left, 0, 0))
}

func TestBlockContextResetClearsAllFields(t *testing.T) {
	bc := NewBlockContext(3)
	bc.Intra[0] = true
	bc.Skip[1] = true
	bc.Ref[0][2] = int8(7)
	bc.Reset()
	assert.False(t, bc.Intra[0])
	assert.False(t, bc.Skip[1])
	assert.Equal(t, int8(-1), bc.Ref[0][2]) // RefNone
}

func TestBlockContextFillWritesFootprintOnly(t *testing.T) {
	bc := NewBlockContext(6)
	b := NewAv1Block(0, 0, 0, 0, 2, 2)
	b.IsIntra = true
	b.Skip = true
	bc.Fill(1, 2, b)
	assert.True(t, bc.Intra[1])
	assert.True(t, bc.Intra[2])
	assert.False(t, bc.Intra[0])
	assert.False(t, bc.Intra[3])
}

func TestFindOddZeroOnlyScansOddIndices(t *testing.T) {
	strip := []uint8{0, 1, 0, 1, 0, 1}
	// every even index is 0, but FindOddZero must ignore them
	assert.False(t, FindOddZero(strip, 0, 6))
	strip[3] = 0
	assert.True(t, FindOddZero(strip, 0, 6))
}
