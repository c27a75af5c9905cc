package dav1d

import (
	"go.uber.org/zap"

	"github.com/validvoid/dav1d/internal/tables"
	"github.com/validvoid/dav1d/msac"
)

// BlockParser decodes one leaf partition's symbols in the canonical order
// spec.md §4.5 fixes, mutating the tile's neighbor strips and the frame's
// MV grid/segmentation map as it goes, then handing the block to
// ReconOps.
type BlockParser struct{}

// ParseBlock decodes the block at (x4,y4) sized bw4xbh4 at partition
// level bl with partition kind bp. sbX4/sbY4 is the enclosing
// superblock's origin, used for the delta_q/delta_lf reads at the
// superblock's first block; the once-per-64x64 cdef_idx region is derived
// from x4/y4 directly.
func (BlockParser) ParseBlock(t *TileContext, d *msac.Decoder, bl tables.BlockLevel, bp tables.PartitionKind, x4, y4, bw4, bh4, sbX4, sbY4 int) (*Av1Block, error) {
	b := NewAv1Block(bl, bp, x4, y4, bw4, bh4)
	f := t.Frame
	fh := f.Header

	aboveI := x4 - t.ColStart
	leftI := y4 - t.RowStart

	// 1. skip_mode
	if fh.SkipModePresent && min(bw4, bh4) > 1 {
		ctx := 0
		b.SkipMode = d.DecodeBoolAdapt(t.CDF.Get("skip_mode", ctx, 2))
	}

	// 2/4. segment_id (pre-skip or post-skip branch)
	preskip := fh.SegmentationEnabled && fh.SegIDPreSkip
	if preskip {
		b.SegID = t.readSegmentID(d, aboveI, leftI)
	}

	// 3. skip
	if !b.SkipMode {
		ctx := SkipCtx(t.Above, t.Left, clampIdx(aboveI, len(t.Above.Skip)), clampIdx(leftI, len(t.Left.Skip)))
		b.Skip = d.DecodeBoolAdapt(t.CDF.Get("skip", ctx, 2))
	} else {
		b.Skip = true
	}

	if !preskip && fh.SegmentationEnabled {
		b.SegID = t.readSegmentID(d, aboveI, leftI)
	}
	if fh.SegmentationEnabled && int(b.SegID) > fh.LastActiveSegID {
		return nil, newErr(InvalidBitstream, "segment id %d exceeds last active segment %d", b.SegID, fh.LastActiveSegID)
	}

	// 5. cdef_idx: once per 64x64 region, on the first non-skip block.
	if fh.CDEFEnabled && !b.Skip {
		regionX, regionY := x4/16, y4/16
		if !t.cdef.have || t.cdef.lastRegionX != regionX || t.cdef.lastRegionY != regionY {
			b.CDEFIdx = int8(d.DecodeBools(2))
			t.cdef.have = true
			t.cdef.lastRegionX, t.cdef.lastRegionY = regionX, regionY
		}
	}

	// 6. delta_q / delta_lf at the first block of each 64-aligned boundary.
	if fh.DeltaQPresent && x4 == sbX4 && y4 == sbY4 {
		t.readDeltaQ(d)
	}
	if fh.DeltaLFPresent && x4 == sbX4 && y4 == sbY4 {
		t.readDeltaLF(d)
	}

	// 7. intra / intrabc classification.
	if fh.Type == FrameKey || fh.Type == FrameIntraOnly {
		b.IsIntra = true
		if fh.AllowIntraBC {
			ctx := 0
			b.IntraBC = d.DecodeBoolAdapt(t.CDF.Get("intrabc", ctx, 2))
		}
	} else {
		ctx := IntraCtx(t.Above, t.Left, clampIdx(aboveI, len(t.Above.Intra)), clampIdx(leftI, len(t.Left.Intra)))
		b.IsIntra = d.DecodeBoolAdapt(t.CDF.Get("is_intra", ctx, 2))
	}

	var err error
	switch {
	case b.IsIntra && !b.IntraBC:
		err = t.parseIntraModes(d, b)
	case b.IntraBC:
		err = t.parseIntraBC(d, b)
	default:
		err = t.parseInter(d, b)
	}
	if err != nil {
		return nil, err
	}

	// Transform size.
	maxTx := tables.MaxTxSizeForBlock(bw4, bh4)
	if fh.TxModeSelect && !b.Skip {
		above := sliceAt(t.Above.Tx, aboveI)
		left := sliceAt(t.Left.Tx, leftI)
		b.TxSplit = ReadVarTxTree(d, maxTx, bw4, bh4, above, left, func(depth, ctx int) []uint16 {
			return t.CDF.Get("tx_split", depth*16+ctx, 2)
		})
		b.TxSizeY = maxTx
	} else {
		b.TxSizeY = maxTx
	}
	b.TxSizeUV = b.TxSizeY

	// 11a. Context writeback.
	t.Above.Fill(aboveI, bw4, b)
	t.Left.Fill(leftI, bh4, b)

	if f.SegMap != nil {
		for yy := y4; yy < y4+bh4 && yy < f.SegMap.H4; yy++ {
			for xx := x4; xx < x4+bw4 && xx < f.SegMap.W4; xx++ {
				f.SegMap.Set(xx, yy, b.SegID)
			}
		}
	}

	switch {
	case b.IsIntra && !b.IntraBC:
		f.MvGrid.SplatIntraRef(b)
	case b.IntraBC:
		f.MvGrid.SplatIntrabcMV(b)
	case b.Ref[1] == tables.RefNone:
		f.MvGrid.SplatOneRefMV(b)
	default:
		f.MvGrid.SplatTworefMV(b)
	}

	// Coefficient decode is the block parser's only pixel-adjacent duty;
	// reconstruction itself is replayed later by the frame pipeline's
	// pass 2 from the archived block, spec.md §4.7 step 3.
	if err := f.Recon.ReadCoefBlocks(t, bl, b); err != nil {
		return nil, newErr(IOFailure, "read_coef_blocks: %v", err)
	}

	t.archive = append(t.archive, b)
	return b, nil
}

func (t *TileContext) readSegmentID(d *msac.Decoder, aboveI, leftI int) uint8 {
	above := t.Above.SegPred[clampIdx(aboveI, len(t.Above.SegPred))]
	left := t.Left.SegPred[clampIdx(leftI, len(t.Left.SegPred))]
	ctx := 0
	if above {
		ctx++
	}
	if left {
		ctx++
	}
	n := t.Frame.Header.LastActiveSegID + 1
	if n < 1 {
		n = 1
	}
	return uint8(d.DecodeSymbol(t.CDF.Get("segment_id", ctx, n)))
}

func (t *TileContext) readDeltaQ(d *msac.Decoder) {
	abs := d.DecodeSymbol(t.CDF.Get("delta_q_abs", 0, 4))
	if abs == 3 {
		bits := int(d.DecodeBools(3)) + 1
		extra := int(d.DecodeBools(uint32(bits)))
		abs = extra + (1 << bits) + 1
	}
	if abs != 0 {
		sign := d.DecodeBools(1)
		delta := abs << t.Frame.Header.DeltaQRes
		if sign != 0 {
			delta = -delta
		}
		t.quant.lastQIdx = clampInt(t.quant.lastQIdx+delta, 0, 255)
	}
	t.quant.initialized = true
}

func (t *TileContext) readDeltaLF(d *msac.Decoder) {
	n := 1
	if t.Frame.Header.DeltaLFMulti {
		n = 4
	}
	for i := 0; i < n; i++ {
		abs := d.DecodeSymbol(t.CDF.Get("delta_lf_abs", i, 4))
		if abs == 3 {
			bits := int(d.DecodeBools(3)) + 1
			extra := int(d.DecodeBools(uint32(bits)))
			abs = extra + (1 << bits) + 1
		}
		if abs != 0 {
			sign := d.DecodeBools(1)
			delta := abs << t.Frame.Header.DeltaLFRes
			if sign != 0 {
				delta = -delta
			}
			t.quant.lastDeltaLF[i] = clampInt(t.quant.lastDeltaLF[i]+delta, -63, 63)
		}
	}
}

func (t *TileContext) parseIntraModes(d *msac.Decoder, b *Av1Block) error {
	b.YMode = tables.YMode(d.DecodeSymbol(t.CDF.Get("y_mode", 0, 10)))
	if b.YMode == tables.ModeDirectional {
		b.YAngle = int8(int(d.DecodeSymbol(t.CDF.Get("angle_y", 0, 8))) - 3)
	}
	if !t.Frame.Seq.Monochrome {
		b.UVMode = tables.YMode(d.DecodeSymbol(t.CDF.Get("uv_mode", 0, 10)))
		if b.UVMode == tables.ModeDirectional {
			b.UVAngle = int8(int(d.DecodeSymbol(t.CDF.Get("angle_uv", 0, 8))) - 3)
		}
		if b.UVMode == tables.ModeSmooth { // reuse Smooth as stand-in for CFL selection
			b.CFLAlpha[0] = int8(d.DecodeSymbol(t.CDF.Get("cfl_alpha", 0, 16)) - 8)
			b.CFLAlpha[1] = int8(d.DecodeSymbol(t.CDF.Get("cfl_alpha", 1, 16)) - 8)
		}
	}

	allowPalette := t.Frame.Header.AllowScreenContentTools && b.BW4 <= 16 && b.BH4 <= 16
	if allowPalette && b.YMode == tables.ModeDC {
		if d.DecodeBoolAdapt(t.CDF.Get("palette_y_flag", 0, 2)) {
			b.PaletteSizeY = uint8(d.DecodeSymbol(t.CDF.Get("palette_y_size", 0, 7))) + 2
			b.PaletteY = t.readPaletteColors(d, int(b.PaletteSizeY), t.Frame.Seq.BitDepth)
			t.decodeYPaletteIndexMap(d, b)
		}
	}
	if allowPalette && !t.Frame.Seq.Monochrome && b.UVMode == tables.ModeDC {
		if d.DecodeBoolAdapt(t.CDF.Get("palette_uv_flag", 0, 2)) {
			b.PaletteSizeUV = uint8(d.DecodeSymbol(t.CDF.Get("palette_uv_size", 0, 7))) + 2
			b.PaletteUV = t.readPaletteColors(d, int(b.PaletteSizeUV), t.Frame.Seq.BitDepth)
			t.decodeUVPaletteIndexMap(d, b)
		}
	}

	if b.YMode == tables.ModeDC && b.PaletteSizeY == 0 {
		if d.DecodeBoolAdapt(t.CDF.Get("use_filter_intra", 0, 2)) {
			b.FilterIntraMode = int8(d.DecodeSymbol(t.CDF.Get("filter_intra_mode", 0, 5)))
		}
	}
	return nil
}

func (t *TileContext) readPaletteColors(d *msac.Decoder, n, bitDepth int) []uint16 {
	colors := make([]uint16, n)
	maxVal := uint32(1<<bitDepth) - 1
	colors[0] = uint16(d.DecodeBools(uint32(bitDepth)))
	for i := 1; i < n; i++ {
		delta := d.DecodeUniform(maxVal) + 1
		v := uint32(colors[i-1]) + delta
		if v > maxVal {
			v = maxVal
		}
		colors[i] = uint16(v)
	}
	return colors
}

// visiblePaletteExtent clips b's footprint to the frame's mi grid, so a
// block straddling the right/bottom edge only draws color-index bits for
// its visible pixels; ReplicatePaletteEdges then fills the rest.
func (t *TileContext) visiblePaletteExtent(b *Av1Block) (w4, h4 int) {
	fh := t.Frame.Header
	w4 = min(b.BW4, fh.MiCols()-b.X4)
	h4 = min(b.BH4, fh.MiRows()-b.Y4)
	if w4 < 1 {
		w4 = 1
	}
	if h4 < 1 {
		h4 = 1
	}
	return w4, h4
}

// decodeYPaletteIndexMap reads the luma color-index map, spec.md §4.5's
// wavefront order, right after the palette color table it indexes into.
func (t *TileContext) decodeYPaletteIndexMap(d *msac.Decoder, b *Av1Block) {
	visW4, visH4 := t.visiblePaletteExtent(b)
	w, h := visW4*4, visH4*4
	n := int(b.PaletteSizeY)
	idx := DecodePaletteIndexMap(d, w, h, n, func(ctx int) []uint16 {
		return t.CDF.Get("palette_y_color_idx", ctx*16+n, n)
	})
	b.PaletteIndexY = ReplicatePaletteEdges(idx, w, h, b.BW4*4, b.BH4*4)
}

// decodeUVPaletteIndexMap is decodeYPaletteIndexMap's chroma counterpart,
// sized down by the sequence's chroma subsampling.
func (t *TileContext) decodeUVPaletteIndexMap(d *msac.Decoder, b *Av1Block) {
	visW4, visH4 := t.visiblePaletteExtent(b)
	layout := t.Frame.Seq.ChromaLayout
	w, h := chromaDims(visW4*4, visH4*4, layout)
	bw, bh := chromaDims(b.BW4*4, b.BH4*4, layout)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if bw < 1 {
		bw = 1
	}
	if bh < 1 {
		bh = 1
	}
	n := int(b.PaletteSizeUV)
	idx := DecodePaletteIndexMap(d, w, h, n, func(ctx int) []uint16 {
		return t.CDF.Get("palette_uv_color_idx", ctx*16+n, n)
	})
	b.PaletteIndexUV = ReplicatePaletteEdges(idx, w, h, bw, bh)
}

func (t *TileContext) parseIntraBC(d *msac.Decoder, b *Av1Block) error {
	stack := t.RefMv.Build(b.X4, b.Y4, b.BW4, b.BH4, tables.RefIntra, tables.RefNone)
	pred := MV{}
	if len(stack.Candidates) > 0 {
		pred = stack.Candidates[0].ThisMV
	}
	dy := d.DecodeSubexpMV()
	dx := d.DecodeSubexpMV()
	b.MV[0] = pred.Add(MV{Y: dy, X: dx})
	b.Ref[0] = tables.RefIntra
	maxTx := tables.MaxTxSizeForBlock(b.BW4, b.BH4)
	b.TxSplit = ReadVarTxTree(d, maxTx, b.BW4, b.BH4, nil, nil, func(depth, ctx int) []uint16 {
		return t.CDF.Get("tx_split_ibc", depth*16+ctx, 2)
	})
	return nil
}

// hasOverlappableNeighbors reports whether b's above row or left column has
// an inter-coded neighbor OBMC could blend against, spec.md §9's
// intentionally-thinned odd-index scan (context.go's FindOddZero).
func (t *TileContext) hasOverlappableNeighbors(b *Av1Block) bool {
	aboveI := b.X4 - t.ColStart
	leftI := b.Y4 - t.RowStart
	aStart, aEnd := clampIdx(aboveI, len(t.Above.ObmcGap)), clampIdx(aboveI+b.BW4, len(t.Above.ObmcGap))
	lStart, lEnd := clampIdx(leftI, len(t.Left.ObmcGap)), clampIdx(leftI+b.BH4, len(t.Left.ObmcGap))
	return FindOddZero(t.Above.ObmcGap, aStart, aEnd) || FindOddZero(t.Left.ObmcGap, lStart, lEnd)
}

func (t *TileContext) parseInter(d *msac.Decoder, b *Av1Block) error {
	fh := t.Frame.Header
	compound := false
	if fh.ReferenceSelect {
		compound = d.DecodeBoolAdapt(t.CDF.Get("comp_mode", 0, 2))
	}
	if compound {
		b.Ref[0] = tables.RefFrame(int(d.DecodeSymbol(t.CDF.Get("comp_ref0", 0, 3))) + int(tables.RefLast))
		b.Ref[1] = tables.RefFrame(int(d.DecodeSymbol(t.CDF.Get("comp_ref1", 0, 3))) + int(tables.RefGolden))
	} else {
		b.Ref[0] = tables.RefFrame(int(d.DecodeSymbol(t.CDF.Get("single_ref", 0, 7))) + int(tables.RefLast))
		b.Ref[1] = tables.RefNone
	}

	stack := t.RefMv.Build(b.X4, b.Y4, b.BW4, b.BH4, b.Ref[0], b.Ref[1])

	b.InterMode = tables.YMode(int(d.DecodeSymbol(t.CDF.Get("inter_mode", stack.RefMVCtx(), 4))) + int(tables.ModeNewMV))

	if b.InterMode == tables.ModeNewMV || b.InterMode == tables.ModeNearMV {
		maxDRL := len(stack.NearMVs[0])
		if maxDRL > 0 {
			b.DRLIndex = int(d.DecodeUniform(uint32(maxDRL)))
		}
	}

	for dir := 0; dir < 1 || (dir < 2 && compound); dir++ {
		var base MV
		switch b.InterMode {
		case tables.ModeNearestMV:
			if dir == 0 {
				base = stack.NearestMV[0]
			} else {
				base = stack.NearestMV[1]
			}
		case tables.ModeNearMV:
			list := stack.NearMVs[dir]
			if b.DRLIndex < len(list) {
				base = list[b.DRLIndex]
			}
		case tables.ModeGlobalMV:
			base = MV{}
		default: // NEWMV
			if dir == 0 {
				base = stack.NearestMV[0]
			} else {
				base = stack.NearestMV[1]
			}
			dy := d.DecodeSubexpMV()
			dx := d.DecodeSubexpMV()
			base = base.Add(MV{Y: dy, X: dx})
		}
		b.MV[dir] = base
	}

	// 10c. compound type, then interintra flags, in canonical order
	// (decode.c:1397-1435,1564): wedge_idx/mask_sign belong to whichever
	// of compound-wedge or interintra-wedge actually fired, never both.
	if compound {
		b.CompType = tables.CompType(d.DecodeSymbol(t.CDF.Get("comp_type", 0, 4)))
		if b.CompType == tables.CompSegWedge || b.CompType == tables.CompWedge {
			b.WedgeIndex = int8(d.DecodeSymbol(t.CDF.Get("wedge_index", 0, 16)))
			b.MaskSign = d.DecodeBoolAdapt(t.CDF.Get("mask_sign", 0, 2))
		}
	} else if t.Frame.Seq.EnableInterIntraCompound && b.BW4 >= 2 && b.BW4 <= 8 && b.BH4 >= 2 && b.BH4 <= 8 {
		b.InterIntra = d.DecodeBoolAdapt(t.CDF.Get("interintra", 0, 2))
		if b.InterIntra {
			b.InterIntraMode = int8(d.DecodeSymbol(t.CDF.Get("interintra_mode", 0, 4)))
			if d.DecodeBoolAdapt(t.CDF.Get("wedge_interintra", 0, 2)) {
				b.WedgeIndex = int8(d.DecodeSymbol(t.CDF.Get("wedge_index", 0, 16)))
			}
		}
	}

	// 10d. motion_mode: read_motion_mode's eligibility chain gates whether
	// a symbol is read at all, not just what it decodes to — an ineligible
	// block contributes zero bits here, so the gate has to run before any
	// DecodeSymbol/DecodeBoolAdapt call, not after.
	if fh.IsMotionModeSwitchable && min(b.BW4, b.BH4) >= 2 && t.hasOverlappableNeighbors(b) {
		raw := t.Frame.MvGrid.CollectNeighborWarpSamples(b.X4, b.Y4, b.BW4, b.BH4, b.Ref[0])
		samples := CollectWarpSamples(raw, b.MV[0], b.BW4*4, b.BH4*4)
		if len(samples) == 0 {
			if d.DecodeBoolAdapt(t.CDF.Get("use_obmc", 0, 2)) {
				b.MotionMode = tables.MotionOBMC
			}
		} else {
			b.MotionMode = tables.MotionMode(d.DecodeSymbol(t.CDF.Get("motion_mode", 0, 3)))
			if b.MotionMode == tables.MotionWarp {
				gm, fitOK := FitWarpModel(samples, b.MV[0])
				_, _, _, _, shearOK := ShearParams(gm)
				if fitOK && shearOK {
					b.WarpParams = gm
				} else {
					if t.Frame.Logger != nil {
						t.Frame.Logger.Warn("warp model fit or shear decomposition degenerate, falling back to translation",
							zap.Int("x4", b.X4), zap.Int("y4", b.Y4), zap.Int("samples", len(samples)),
							zap.Bool("fitOK", fitOK), zap.Bool("shearOK", shearOK))
					}
					b.MotionMode = tables.MotionTranslation
				}
			}
		}
	}

	b.Filter[0] = int8(d.DecodeSymbol(t.CDF.Get("filter", 0, 3)))
	b.Filter[1] = b.Filter[0]

	maxTx := tables.MaxTxSizeForBlock(b.BW4, b.BH4)
	if fh.TxModeSelect && !b.Skip {
		b.TxSplit = ReadVarTxTree(d, maxTx, b.BW4, b.BH4, nil, nil, func(depth, ctx int) []uint16 {
			return t.CDF.Get("tx_split_inter", depth*16+ctx, 2)
		})
	}
	return nil
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		if n == 0 {
			return 0
		}
		return n - 1
	}
	return i
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sliceAt(s []uint8, from int) []uint8 {
	if from < 0 {
		from = 0
	}
	if from > len(s) {
		from = len(s)
	}
	return s[from:]
}
