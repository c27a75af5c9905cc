package dav1d

import (
	"github.com/validvoid/dav1d/internal/tables"
	"github.com/validvoid/dav1d/msac"
)

// PartitionDescender walks the quad-partition tree from a tile's
// superblock size down to 4x4 leaves, spec.md §4.6, drawing one
// partition symbol per internal node and handing every leaf to
// BlockParser.
type PartitionDescender struct {
	Parser BlockParser
}

// DecodeSuperblock descends the partition tree rooted at the superblock
// containing (sbX4,sbY4), spec.md §4.6 step 1 ("start from the
// sequence's configured superblock size").
func (pd PartitionDescender) DecodeSuperblock(t *TileContext, d *msac.Decoder, sbX4, sbY4 int) error {
	top := tables.Bl64x64
	if t.Frame.Seq.Use128x128SB {
		top = tables.Bl128x128
	}
	return pd.decodeBlock(t, d, top, sbX4, sbY4, sbX4, sbY4)
}

func (pd PartitionDescender) decodeBlock(t *TileContext, d *msac.Decoder, bl tables.BlockLevel, x4, y4, sbX4, sbY4 int) error {
	cols, rows := t.Frame.Header.MiCols(), t.Frame.Header.MiRows()
	if x4 >= cols || y4 >= rows {
		return nil
	}

	if bl == tables.Bl4x4 {
		return pd.parseLeaf(t, d, bl, tables.PartNone, x4, y4, 1, 1, sbX4, sbY4)
	}

	unit := bl.Unit4x4()
	hasCols := x4+unit <= cols
	hasRows := y4+unit <= rows

	aboveI := x4 - t.ColStart
	leftI := y4 - t.RowStart
	ctx := PartitionCtx(t.Above, t.Left, clampIdx(aboveI, len(t.Above.Partition)), clampIdx(leftI, len(t.Left.Partition)))

	var bp tables.PartitionKind
	switch {
	case hasCols && hasRows:
		n := tables.NumPartitionKinds(bl)
		bp = tables.PartitionKind(d.DecodeSymbol(t.CDF.Get("partition", int(bl)*16+ctx, n)))
	case hasCols:
		if d.DecodeBoolAdapt(t.CDF.Get("partition_split_or_horz", int(bl)*16+ctx, 2)) {
			bp = tables.PartSplit
		} else {
			bp = tables.PartHoriz
		}
	case hasRows:
		if d.DecodeBoolAdapt(t.CDF.Get("partition_split_or_vert", int(bl)*16+ctx, 2)) {
			bp = tables.PartSplit
		} else {
			bp = tables.PartVert
		}
	default:
		bp = tables.PartSplit
	}

	if t.Frame.Header.ChromaLayout == Layout422 && tables.SplitsVerticalBelow8x8(bp, bl) {
		return newErr(InvalidBitstream, "illegal vertical partition %d at 8x8 under 4:2:2 chroma", bp)
	}

	half := unit / 2
	quarter := unit / 4

	switch bp {
	case tables.PartNone:
		return pd.parseLeaf(t, d, bl, bp, x4, y4, unit, unit, sbX4, sbY4)

	case tables.PartHoriz:
		if err := pd.parseLeaf(t, d, bl, bp, x4, y4, unit, half, sbX4, sbY4); err != nil {
			return err
		}
		return pd.parseLeaf(t, d, bl, bp, x4, y4+half, unit, half, sbX4, sbY4)

	case tables.PartVert:
		if err := pd.parseLeaf(t, d, bl, bp, x4, y4, half, unit, sbX4, sbY4); err != nil {
			return err
		}
		return pd.parseLeaf(t, d, bl, bp, x4+half, y4, half, unit, sbX4, sbY4)

	case tables.PartSplit:
		if bl == tables.Bl8x8 {
			for _, q := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
				if err := pd.parseLeaf(t, d, tables.Bl4x4, tables.PartNone, x4+q[0], y4+q[1], 1, 1, sbX4, sbY4); err != nil {
					return err
				}
			}
			return nil
		}
		child := bl.Child()
		for _, q := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
			if err := pd.decodeBlock(t, d, child, x4+q[0]*half, y4+q[1]*half, sbX4, sbY4); err != nil {
				return err
			}
		}
		return nil

	case tables.PartHorizTop:
		if err := pd.parseLeaf(t, d, bl, bp, x4, y4, half, half, sbX4, sbY4); err != nil {
			return err
		}
		if err := pd.parseLeaf(t, d, bl, bp, x4+half, y4, half, half, sbX4, sbY4); err != nil {
			return err
		}
		return pd.parseLeaf(t, d, bl, bp, x4, y4+half, unit, half, sbX4, sbY4)

	case tables.PartHorizBottom:
		if err := pd.parseLeaf(t, d, bl, bp, x4, y4, unit, half, sbX4, sbY4); err != nil {
			return err
		}
		if err := pd.parseLeaf(t, d, bl, bp, x4, y4+half, half, half, sbX4, sbY4); err != nil {
			return err
		}
		return pd.parseLeaf(t, d, bl, bp, x4+half, y4+half, half, half, sbX4, sbY4)

	case tables.PartVertLeft:
		if err := pd.parseLeaf(t, d, bl, bp, x4, y4, half, half, sbX4, sbY4); err != nil {
			return err
		}
		if err := pd.parseLeaf(t, d, bl, bp, x4, y4+half, half, half, sbX4, sbY4); err != nil {
			return err
		}
		return pd.parseLeaf(t, d, bl, bp, x4+half, y4, half, unit, sbX4, sbY4)

	case tables.PartVertRight:
		if err := pd.parseLeaf(t, d, bl, bp, x4, y4, half, unit, sbX4, sbY4); err != nil {
			return err
		}
		if err := pd.parseLeaf(t, d, bl, bp, x4+half, y4, half, half, sbX4, sbY4); err != nil {
			return err
		}
		return pd.parseLeaf(t, d, bl, bp, x4+half, y4+half, half, half, sbX4, sbY4)

	case tables.PartHoriz4:
		for i := 0; i < 4; i++ {
			if err := pd.parseLeaf(t, d, bl, bp, x4, y4+i*quarter, unit, quarter, sbX4, sbY4); err != nil {
				return err
			}
		}
		return nil

	case tables.PartVert4:
		for i := 0; i < 4; i++ {
			if err := pd.parseLeaf(t, d, bl, bp, x4+i*quarter, y4, quarter, unit, sbX4, sbY4); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// parseLeaf clips a sub-rectangle to the frame's mi grid (leaves at the
// right/bottom edge of a cropped frame are routinely partial, spec.md
// §4.6 item 4) and, if anything survives the clip, hands it to
// BlockParser.
func (pd PartitionDescender) parseLeaf(t *TileContext, d *msac.Decoder, bl tables.BlockLevel, bp tables.PartitionKind, x4, y4, bw4, bh4, sbX4, sbY4 int) error {
	cols, rows := t.Frame.Header.MiCols(), t.Frame.Header.MiRows()
	if x4 >= cols || y4 >= rows {
		return nil
	}
	if x4+bw4 > cols {
		bw4 = cols - x4
	}
	if y4+bh4 > rows {
		bh4 = rows - y4
	}
	_, err := pd.Parser.ParseBlock(t, d, bl, bp, x4, y4, bw4, bh4, sbX4, sbY4)
	return err
}
