package dav1d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/validvoid/dav1d/msac"
)

func newTestFrame(width, height int) *FrameContext {
	seq := &SequenceHeader{BitDepth: 8, Monochrome: true}
	fh := &FrameHeader{
		Type: FrameKey, FrameWidth: width, FrameHeight: height,
		ChromaLayout: LayoutMonochrome, BitDepth: 8,
		LastActiveSegID: 7,
		Tiles:           TileGrid{Cols: 1, Rows: 1},
	}
	pic, _ := NewPicture(PictureParams{
		Width: width, Height: height, Layout: LayoutMonochrome, Type: FrameKey, BitDepth: 8,
	}, defaultAllocator(), [2]int{width, width / 2})
	f := NewFrameContext(seq, fh, pic, NewRefSlots(), NewCDFContext(), NoopReconOps{}, nil)
	return f
}

func fillBytes(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i*41)
	}
	return b
}

func TestDecodeSuperblockWalksToLeavesAndArchivesBlocks(t *testing.T) {
	f := newTestFrame(16, 16) // 4x4 mi grid, a single 64x64 superblock covers it all
	tile := NewTileContext(f, 0, 0, f.Header.MiCols(), 0, f.Header.MiRows(), f.CDFIn)
	d := msac.NewDecoder(fillBytes(256, 0x11), false)
	pd := PartitionDescender{}

	err := pd.DecodeSuperblock(tile, d, 0, 0)
	assert.NoError(t, err)
	assert.NotEmpty(t, tile.archive)
	for _, b := range tile.archive {
		assert.True(t, b.X4+b.BW4 <= f.Header.MiCols())
		assert.True(t, b.Y4+b.BH4 <= f.Header.MiRows())
	}
}

func TestDecodeSuperblockClipsPartialEdgeSuperblock(t *testing.T) {
	f := newTestFrame(20, 12) // not a multiple of the 64x64 superblock grid
	tile := NewTileContext(f, 0, 0, f.Header.MiCols(), 0, f.Header.MiRows(), f.CDFIn)
	d := msac.NewDecoder(fillBytes(256, 0x42), false)
	pd := PartitionDescender{}

	err := pd.DecodeSuperblock(tile, d, 0, 0)
	assert.NoError(t, err)
	for _, b := range tile.archive {
		assert.LessOrEqual(t, b.X4+b.BW4, f.Header.MiCols())
		assert.LessOrEqual(t, b.Y4+b.BH4, f.Header.MiRows())
	}
}

func TestDecodeSuperblockOutOfFrameOriginIsNoop(t *testing.T) {
	f := newTestFrame(8, 8)
	tile := NewTileContext(f, 0, 0, f.Header.MiCols(), 0, f.Header.MiRows(), f.CDFIn)
	d := msac.NewDecoder(fillBytes(32, 0x77), false)
	pd := PartitionDescender{}

	err := pd.DecodeSuperblock(tile, d, 100, 100) // entirely beyond the frame
	assert.NoError(t, err)
	assert.Empty(t, tile.archive)
}

func TestDecodeSuperblockUnder420NeverHitsThe422Guard(t *testing.T) {
	// Layout420 (the common case) never trips decodeBlock's 4:2:2 vertical-
	// split guard; tables.SplitsVerticalBelow8x8 itself is covered directly
	// in internal/tables.
	f := newTestFrame(16, 16)
	f.Header.ChromaLayout = Layout420
	tile := NewTileContext(f, 0, 0, f.Header.MiCols(), 0, f.Header.MiRows(), f.CDFIn)
	d := msac.NewDecoder(fillBytes(256, 0x99), false)
	pd := PartitionDescender{}

	err := pd.DecodeSuperblock(tile, d, 0, 0)
	assert.NoError(t, err)
}
