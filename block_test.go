package dav1d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/validvoid/dav1d/internal/tables"
)

func TestNewAv1BlockDefaults(t *testing.T) {
	b := NewAv1Block(tables.Bl16x16, tables.PartNone, 2, 4, 4, 4)
	assert.Equal(t, int8(-1), b.FilterIntraMode)
	assert.Equal(t, tables.RefNone, b.Ref[0])
	assert.Equal(t, tables.RefNone, b.Ref[1])
}

func TestMvGridSplatRectClipsToGridBounds(t *testing.T) {
	g := NewMvGrid(4, 4)
	b := NewAv1Block(tables.Bl8x8, tables.PartNone, 3, 3, 4, 4) // overruns the 4x4 grid
	g.SplatIntraRef(b)
	cell := g.At(3, 3)
	assert.Equal(t, tables.RefIntra, cell.Ref[0])
}

func TestMvGridSplatOneRefMVRecordsMotion(t *testing.T) {
	g := NewMvGrid(8, 8)
	b := NewAv1Block(tables.Bl8x8, tables.PartNone, 0, 0, 2, 2)
	b.Ref[0] = tables.RefLast
	b.MV[0] = MV{Y: 4, X: -8}
	g.SplatOneRefMV(b)
	assert.Equal(t, MV{Y: 4, X: -8}, g.At(1, 1).MV[0])
	assert.Equal(t, tables.RefNone, g.At(1, 1).Ref[1])
	assert.Equal(t, tables.RefFrame(0), g.At(2, 0).Ref[0]) // outside the block's footprint: still the zero value
	assert.Equal(t, MV{}, g.At(2, 0).MV[0])
}

func TestMvGridSplatTworefMVRecordsBothRefs(t *testing.T) {
	g := NewMvGrid(4, 4)
	b := NewAv1Block(tables.Bl4x4, tables.PartNone, 0, 0, 1, 1)
	b.Ref = [2]tables.RefFrame{tables.RefLast, tables.RefAltRef}
	b.MV = [2]MV{{Y: 1, X: 2}, {Y: -1, X: -2}}
	g.SplatTworefMV(b)
	cell := g.At(0, 0)
	assert.Equal(t, tables.RefAltRef, cell.Ref[1])
	assert.Equal(t, MV{Y: -1, X: -2}, cell.MV[1])
}

func TestMVAdd(t *testing.T) {
	a := MV{Y: 3, X: 5}
	b := MV{Y: -1, X: 2}
	assert.Equal(t, MV{Y: 2, X: 7}, a.Add(b))
}
