package dav1d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/validvoid/dav1d/internal/tables"
)

func newEngine(grid *MvGrid) *RefMvEngine {
	return &RefMvEngine{
		Grid: grid,
		ClipX0: 0, ClipX1: grid.W4,
		ClipY0: 0, ClipY1: grid.H4,
		AllowHighPrecision: true,
	}
}

func TestRefMvEngineBuildEmptyGridYieldsNoCandidates(t *testing.T) {
	g := NewMvGrid(8, 8)
	e := newEngine(g)
	stack := e.Build(4, 4, 2, 2, tables.RefLast, tables.RefNone)
	assert.Empty(t, stack.Candidates)
	assert.Equal(t, 0, stack.NewMVCtx())
}

func TestRefMvEngineBuildFindsAboveNeighborMatch(t *testing.T) {
	g := NewMvGrid(8, 8)
	g.At(2, 1).Ref[0] = tables.RefLast
	g.At(2, 1).MV[0] = MV{Y: 8, X: -8}

	e := newEngine(g)
	stack := e.Build(2, 2, 2, 2, tables.RefLast, tables.RefNone)
	assert.NotEmpty(t, stack.Candidates)
	assert.Equal(t, MV{Y: 8, X: -8}, stack.NearestMV[0])
	assert.Equal(t, 1, stack.NewMVCtx())
}

func TestRefMvEngineBuildIgnoresMismatchedReference(t *testing.T) {
	g := NewMvGrid(8, 8)
	g.At(2, 1).Ref[0] = tables.RefGolden
	g.At(2, 1).MV[0] = MV{Y: 8, X: -8}

	e := newEngine(g)
	stack := e.Build(2, 2, 2, 2, tables.RefLast, tables.RefNone)
	assert.Empty(t, stack.Candidates)
}

func TestRefMvEngineBuildCapsStackAtEight(t *testing.T) {
	g := NewMvGrid(16, 16)
	for x := 0; x < 16; x++ {
		g.At(x, 0).Ref[0] = tables.RefLast
		g.At(x, 0).MV[0] = MV{Y: int32(x), X: int32(x)}
	}
	e := newEngine(g)
	stack := e.Build(0, 1, 16, 1, tables.RefLast, tables.RefNone)
	assert.LessOrEqual(t, len(stack.Candidates), 8)
}

func TestRefMvStackCtxBitPacking(t *testing.T) {
	s := &RefMvStack{Ctx: 0b1_0101_1_010}
	assert.Equal(t, 0b010, s.NewMVCtx())
	assert.Equal(t, 1, s.GlobalMVCtx())
	assert.Equal(t, 0b0101, s.RefMVCtx())
}
