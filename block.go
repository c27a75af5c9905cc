package dav1d

import "github.com/validvoid/dav1d/internal/tables"

// MV is a motion vector in 1/8-pel units, row then column, matching AV1's
// convention.
type MV struct {
	Y, X int32
}

// Add returns the componentwise sum of two motion vectors.
func (m MV) Add(o MV) MV { return MV{m.Y + o.Y, m.X + o.X} }

// Av1Block records one leaf partition's decoded metadata, spec.md §3.
type Av1Block struct {
	BL        tables.BlockLevel
	Partition tables.PartitionKind
	BW4, BH4  int // footprint in 4x4 units
	X4, Y4    int // top-left position in 4x4 units, tile-relative

	IsIntra        bool
	IntraBC        bool
	SegID          uint8
	SegIDPredicted bool
	Skip           bool
	SkipMode       bool

	YMode    tables.YMode
	YAngle   int8
	UVMode   tables.YMode
	UVAngle  int8
	CFLAlpha [2]int8

	PaletteSizeY, PaletteSizeUV uint8
	PaletteY, PaletteUV         []uint16
	PaletteIndexY, PaletteIndexUV []uint8 // bw4*4 x bh4*4 (Y) / chroma-subsampled (UV) color-index maps

	FilterIntraMode int8 // -1 if unused

	TxSizeY  tables.TxSize
	TxSizeUV tables.TxSize
	TxSplit  []uint32 // packed split mask per row-half, variable-tx tree

	InterMode   tables.YMode
	CompType    tables.CompType
	Ref         [2]tables.RefFrame
	DRLIndex    int
	MV          [2]MV

	InterIntra     bool
	InterIntraMode int8
	WedgeIndex     int8
	MaskSign       bool

	MotionMode    tables.MotionMode
	WarpParams    GlobalMotionParams
	Filter        [2]int8

	CDEFIdx int8
}

// NewAv1Block returns a zeroed block descriptor for a leaf of the given
// level/partition at (x4,y4).
func NewAv1Block(bl tables.BlockLevel, bp tables.PartitionKind, x4, y4, bw4, bh4 int) *Av1Block {
	return &Av1Block{
		BL: bl, Partition: bp, X4: x4, Y4: y4, BW4: bw4, BH4: bh4,
		FilterIntraMode: -1,
		Ref:             [2]tables.RefFrame{tables.RefNone, tables.RefNone},
	}
}

// MvCell is one 4x4 unit's worth of the frame-wide motion-vector grid,
// spec.md §3.
type MvCell struct {
	Ref        [2]tables.RefFrame
	MV         [2]MV
	InterMode  tables.YMode
	InterIntra bool
	BlockSize  tables.BlockLevel
}

// MvGrid is the dense per-4x4-unit motion-vector grid covering a frame,
// shared (reference-counted, immutable post-publication) into the next
// frame's temporal refmv lookups.
type MvGrid struct {
	W4, H4 int
	Cells  []MvCell
}

// NewMvGrid allocates a zeroed grid sized w4 x h4 in 4x4 units.
func NewMvGrid(w4, h4 int) *MvGrid {
	return &MvGrid{W4: w4, H4: h4, Cells: make([]MvCell, w4*h4)}
}

func (g *MvGrid) idx(x4, y4 int) int { return y4*g.W4 + x4 }

func (g *MvGrid) At(x4, y4 int) *MvCell { return &g.Cells[g.idx(x4, y4)] }

// splatRect fills a bw4 x bh4 rectangle starting at (x4,y4) with cell,
// clipped to the grid bounds.
func (g *MvGrid) splatRect(x4, y4, bw4, bh4 int, cell MvCell) {
	x1 := x4 + bw4
	y1 := y4 + bh4
	if x1 > g.W4 {
		x1 = g.W4
	}
	if y1 > g.H4 {
		y1 = g.H4
	}
	for y := y4; y < y1; y++ {
		for x := x4; x < x1; x++ {
			g.Cells[g.idx(x, y)] = cell
		}
	}
}

// SplatIntraRef records an intra (non-intraBC) block's footprint: no
// motion, ref[0]=INTRA.
func (g *MvGrid) SplatIntraRef(b *Av1Block) {
	g.splatRect(b.X4, b.Y4, b.BW4, b.BH4, MvCell{
		Ref:       [2]tables.RefFrame{tables.RefIntra, tables.RefNone},
		BlockSize: b.BL,
	})
}

// SplatIntrabcMV records an intraBC block's displacement vector as its
// sole "reference".
func (g *MvGrid) SplatIntrabcMV(b *Av1Block) {
	g.splatRect(b.X4, b.Y4, b.BW4, b.BH4, MvCell{
		Ref:       [2]tables.RefFrame{tables.RefIntra, tables.RefNone},
		MV:        [2]MV{b.MV[0], {}},
		BlockSize: b.BL,
	})
}

// SplatOneRefMV records a single-reference inter block's motion.
func (g *MvGrid) SplatOneRefMV(b *Av1Block) {
	g.splatRect(b.X4, b.Y4, b.BW4, b.BH4, MvCell{
		Ref:        [2]tables.RefFrame{b.Ref[0], tables.RefNone},
		MV:         [2]MV{b.MV[0], {}},
		InterMode:  b.InterMode,
		InterIntra: b.InterIntra,
		BlockSize:  b.BL,
	})
}

// CollectNeighborWarpSamples scans a block's above row then left column of
// the motion-vector grid for same-single-reference neighbor cells, turning
// each into a raw candidate sample for the warp-motion least-squares fit,
// original_source/src/decode.c's find_warp_samples scan shape. The caller
// still has to run these through CollectWarpSamples for the
// outlier/8-candidate filter spec.md §4.5 describes.
func (g *MvGrid) CollectNeighborWarpSamples(x4, y4, bw4, bh4 int, ref tables.RefFrame) []WarpSample {
	var out []WarpSample
	add := func(cx4, cy4 int) {
		if cx4 < 0 || cy4 < 0 || cx4 >= g.W4 || cy4 >= g.H4 {
			return
		}
		cell := g.At(cx4, cy4)
		if cell.Ref[0] != ref || cell.Ref[1] != tables.RefNone {
			return
		}
		out = append(out, WarpSample{
			CX:  int32((cx4-x4)*4 + 2),
			CY:  int32((cy4-y4)*4 + 2),
			MVX: cell.MV[0].X,
			MVY: cell.MV[0].Y,
		})
	}
	if y4 > 0 {
		for cx4 := x4; cx4 < x4+bw4; cx4++ {
			add(cx4, y4-1)
		}
	}
	if x4 > 0 {
		for cy4 := y4; cy4 < y4+bh4; cy4++ {
			add(x4-1, cy4)
		}
	}
	return out
}

// SplatTworefMV records a compound inter block's motion, both references.
func (g *MvGrid) SplatTworefMV(b *Av1Block) {
	g.splatRect(b.X4, b.Y4, b.BW4, b.BH4, MvCell{
		Ref:       b.Ref,
		MV:        b.MV,
		InterMode: b.InterMode,
		BlockSize: b.BL,
	})
}
