package dav1d

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunFrameSingleTileCompletesBothPasses(t *testing.T) {
	f := newTestFrame(16, 16)
	tileData := [][]byte{fillBytes(256, 0x22)}

	err := f.RunFrame(context.Background(), tileData, 2)
	assert.NoError(t, err)
	assert.Len(t, f.Tiles, 1)
	assert.NotNil(t, f.CDFOut)
	assert.Equal(t, len(f.Tiles[0].archive), len(f.blockArchive[0]))
}

func TestRunFrameMultiTileFansOutAndMerges(t *testing.T) {
	f := newTestFrame(128, 64) // exactly two 64x64 superblock columns, one row
	f.Header.Tiles = TileGrid{Cols: 2, Rows: 1, ColStarts: []int{0, 1, 2}, RowStarts: []int{0, 1}}
	tileData := [][]byte{fillBytes(512, 0x10), fillBytes(512, 0x30)}

	err := f.RunFrame(context.Background(), tileData, 4)
	assert.NoError(t, err)
	assert.Len(t, f.Tiles, 2)
	assert.NotEqual(t, f.Tiles[0].ColStart, f.Tiles[1].ColStart)
}

func TestTileRectClampsStartPastEndOnOversizedGrid(t *testing.T) {
	f := newTestFrame(16, 16)
	f.Header.Tiles = TileGrid{Cols: 2, Rows: 1, ColStarts: []int{0, 1, 2}}
	colStart, colEnd, _, _ := f.tileRect(1) // tile 1's raw sb-unit start overruns this small frame
	assert.LessOrEqual(t, colStart, colEnd)
}

func TestRunFrameDisableFrameEndUpdateCDFKeepsInputSnapshot(t *testing.T) {
	f := newTestFrame(16, 16)
	f.Header.DisableFrameEndUpdateCDF = true
	tileData := [][]byte{fillBytes(256, 0x44)}

	err := f.RunFrame(context.Background(), tileData, 1)
	assert.NoError(t, err)
	assert.Same(t, f.CDFIn, f.CDFOut)
}

func TestTileRectFallsBackToFullFrameWithoutGrid(t *testing.T) {
	f := newTestFrame(16, 16)
	colStart, colEnd, rowStart, rowEnd := f.tileRect(0)
	assert.Equal(t, 0, colStart)
	assert.Equal(t, f.Header.MiCols(), colEnd)
	assert.Equal(t, 0, rowStart)
	assert.Equal(t, f.Header.MiRows(), rowEnd)
}
