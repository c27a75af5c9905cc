package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockLevelDimAndUnit4x4(t *testing.T) {
	assert.Equal(t, 128, Bl128x128.Dim())
	assert.Equal(t, 64, Bl64x64.Dim())
	assert.Equal(t, 4, Bl4x4.Dim())
	assert.Equal(t, 32, Bl32x32.Unit4x4()*4)
}

func TestBlockLevelChildStopsAt4x4(t *testing.T) {
	assert.Equal(t, Bl64x64, Bl128x128.Child())
	assert.Equal(t, Bl4x4, Bl8x8.Child())
	assert.Equal(t, Bl4x4, Bl4x4.Child())
}

func TestSplitsVerticalBelow8x8(t *testing.T) {
	assert.True(t, SplitsVerticalBelow8x8(PartVert, Bl8x8))
	assert.True(t, SplitsVerticalBelow8x8(PartVertLeft, Bl8x8))
	assert.False(t, SplitsVerticalBelow8x8(PartHoriz, Bl8x8))
	assert.False(t, SplitsVerticalBelow8x8(PartVert, Bl16x16))
}

func TestNumPartitionKinds(t *testing.T) {
	assert.Equal(t, 4, NumPartitionKinds(Bl8x8))
	assert.Equal(t, 8, NumPartitionKinds(Bl128x128))
	assert.Equal(t, 10, NumPartitionKinds(Bl32x32))
}

func TestMaxTxSizeForBlock(t *testing.T) {
	assert.Equal(t, Tx64x64, MaxTxSizeForBlock(16, 16))
	assert.Equal(t, Tx32x32, MaxTxSizeForBlock(8, 32))
	assert.Equal(t, Tx16x16, MaxTxSizeForBlock(4, 4))
	assert.Equal(t, Tx8x8, MaxTxSizeForBlock(2, 2))
	assert.Equal(t, Tx4x4, MaxTxSizeForBlock(1, 1))
}

func TestTxSizeUnit4x4(t *testing.T) {
	assert.Equal(t, 1, Tx4x4.Unit4x4())
	assert.Equal(t, 2, Tx8x8.Unit4x4())
	assert.Equal(t, 16, Tx64x64.Unit4x4())
}
