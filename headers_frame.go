package dav1d

import "github.com/validvoid/dav1d/bitreader"

// FrameHeaderContext carries the state a frame header's parse depends on
// beyond its own bits: the active sequence header and the order hints of
// frames currently sitting in reference slots (needed to compute
// OrderHintBits-relative ref_frame_idx search, spec.md §4.7).
type FrameHeaderContext struct {
	Seq           *SequenceHeader
	RefValid      [8]bool
	RefOrderHint  [8]int
	RefFrameType  [8]FrameType
	SeenFrameID   bool
}

// ParseFrameHeader reads an uncompressed frame header OBU payload. Field
// coverage follows spec.md §3's Frame Header list: segmentation table,
// loop-filter deltas, quantization indices and delta-q tree, reference
// index mapping, per-ref global motion models, film grain, restoration
// configuration, and tile grid. Conditional sections the AV1 spec gates
// on features this core treats as always-available (e.g. per-operating-
// point timing) are omitted.
func ParseFrameHeader(r *bitreader.Reader, ctx *FrameHeaderContext) (*FrameHeader, error) {
	seq := ctx.Seq
	fh := &FrameHeader{SB128: seq.Use128x128SB, ChromaLayout: seq.ChromaLayout, BitDepth: seq.BitDepth}

	if seq.StillPicture {
		fh.Type = FrameKey
		fh.ShowFrame = true
	} else {
		showExisting := r.Get(1) != 0
		if showExisting {
			fh.ShowExistingFrame = true
			fh.FrameToShowMapIdx = int(r.Get(3))
			fh.ShowFrame = true
			fh.Type = FrameKey
			return fh, wrapBitreaderErr(r)
		}
		fh.Type = FrameType(r.Get(2))
		fh.ShowFrame = r.Get(1) != 0
		if !fh.ShowFrame {
			fh.ShowableFrame = r.Get(1) != 0
		} else {
			fh.ShowableFrame = fh.Type != FrameKey
		}
		if fh.Type == FrameSwitch || (fh.Type == FrameKey && fh.ShowFrame) {
			fh.ErrorResilient = true
		} else {
			fh.ErrorResilient = r.Get(1) != 0
		}
	}

	fh.DisableCDFUpdate = r.Get(1) != 0

	if seq.EnableIntraBC && fh.Type == FrameKey {
		fh.AllowScreenContentTools = true
		fh.AllowIntraBC = r.Get(1) != 0
	}

	fh.RefreshFrameFlags = 0xFF
	if fh.Type != FrameKey {
		fh.RefreshFrameFlags = int(r.Get(8))
	}

	if !fh.ErrorResilient && seq.EnableOrderHint {
		fh.OrderHint = int(r.Get(uint(seq.OrderHintBits)))
	}

	fh.PrimaryRefFrame = -1
	if fh.Type == FrameInter {
		if r.Get(1) == 0 { // !frame_refs_short_signaling
			for i := 0; i < 7; i++ {
				fh.RefFrameIdx[i] = int(r.Get(3))
			}
		}
		fh.PrimaryRefFrame = int(r.Get(3))
	}

	// quantization_params
	fh.BaseQIdx = int(r.Get(8))
	fh.DeltaQYDc = readDeltaQ(r)
	if !seq.Monochrome {
		diffUVDelta := r.Get(1) != 0
		fh.DeltaQUDc = readDeltaQ(r)
		fh.DeltaQUAc = readDeltaQ(r)
		if diffUVDelta {
			fh.DeltaQVDc = readDeltaQ(r)
			fh.DeltaQVAc = readDeltaQ(r)
		} else {
			fh.DeltaQVDc, fh.DeltaQVAc = fh.DeltaQUDc, fh.DeltaQUAc
		}
	}

	// segmentation_params
	fh.SegmentationEnabled = r.Get(1) != 0
	fh.LastActiveSegID = 0
	if fh.SegmentationEnabled {
		parseSegmentation(r, fh)
	}

	// delta_q_params
	if fh.BaseQIdx > 0 {
		fh.DeltaQPresent = r.Get(1) != 0
	}
	if fh.DeltaQPresent {
		fh.DeltaQRes = int(r.Get(2))
	}

	// delta_lf_params
	if fh.DeltaQPresent {
		fh.DeltaLFPresent = r.Get(1) != 0
	}
	if fh.DeltaLFPresent {
		fh.DeltaLFRes = int(r.Get(2))
		fh.DeltaLFMulti = r.Get(1) != 0
	}

	// loop_filter_params
	parseLoopFilter(r, fh, seq)

	if seq.EnableCDEF {
		parseCDEF(r, fh, seq)
	}
	if seq.EnableRestoration {
		parseRestoration(r, fh, seq)
	}

	fh.TxModeSelect = r.Get(1) != 0

	if fh.Type != FrameKey {
		fh.ReferenceSelect = r.Get(1) != 0
	}

	fh.SkipModePresent = false
	if fh.Type == FrameInter {
		fh.SkipModePresent = r.Get(1) != 0
	}

	if fh.Type != FrameKey {
		fh.AllowWarpedMotion = seq.EnableWarpMotion && r.Get(1) != 0
	}
	fh.ReducedTxSet = r.Get(1) != 0

	if fh.Type == FrameInter {
		parseGlobalMotion(r, fh)
	}

	fh.RefreshContext = r.Get(1) != 0
	fh.DisableFrameEndUpdateCDF = !fh.RefreshContext
	fh.UseRefFrameMVs = seq.EnableRefFrameMV && fh.Type == FrameInter && !fh.ErrorResilient

	parseTileInfo(r, fh, seq)

	if seq.StillPicture {
		fh.FrameWidth = seq.MaxFrameWidth
		fh.FrameHeight = seq.MaxFrameHeight
	} else {
		frameSizeOverride := r.Get(1) != 0
		if frameSizeOverride {
			fh.FrameWidth = int(r.Get(uint(seq.FrameWidthBits))) + 1
			fh.FrameHeight = int(r.Get(uint(seq.FrameHeightBits))) + 1
		} else {
			fh.FrameWidth = seq.MaxFrameWidth
			fh.FrameHeight = seq.MaxFrameHeight
		}
	}
	fh.RenderWidth, fh.RenderHeight = fh.FrameWidth, fh.FrameHeight

	if seq.FilmGrainPresent() {
		fh.FilmGrain.ApplyGrain = r.Get(1) != 0
		if fh.FilmGrain.ApplyGrain {
			fh.FilmGrain.Seed = uint16(r.Get(16))
		}
	}

	fh.IsMotionModeSwitchable = fh.AllowWarpedMotion

	return fh, wrapBitreaderErr(r)
}

// FilmGrainPresent reports the sequence header's film_grain_params_present
// bit, so a bitstream that signals grain params actually has them parsed
// into the frame header below, rather than the bit being read and discarded.
func (sh *SequenceHeader) FilmGrainPresent() bool { return sh.FilmGrainParamsPresent }

func readDeltaQ(r *bitreader.Reader) int {
	if r.Get(1) != 0 {
		return int(r.GetSigned(5))
	}
	return 0
}

func parseSegmentation(r *bitreader.Reader, fh *FrameHeader) {
	fh.SegmentationUpdateMap = true
	fh.SegmentationUpdateMap = r.Get(1) != 0
	if fh.SegmentationUpdateMap {
		fh.SegmentationTemporalUpdate = r.Get(1) != 0
	}
	updateData := r.Get(1) != 0
	if updateData {
		for i := 0; i < 8; i++ {
			for j := 0; j < 8; j++ {
				enabled := r.Get(1) != 0
				fh.FeatureEnabled[i][j] = enabled
				if enabled {
					bits, signed, maxv := segFeatureBits(j)
					var v int
					if signed {
						v = int(r.GetSigned(uint(bits)))
					} else {
						v = int(r.Get(uint(bits)))
					}
					if v > maxv {
						v = maxv
					}
					if v < -maxv && signed {
						v = -maxv
					}
					fh.FeatureData[i][j] = int16(v)
				}
			}
		}
	}
	fh.LastActiveSegID = 0
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			if fh.FeatureEnabled[i][j] {
				fh.LastActiveSegID = i
			}
		}
	}
	fh.SegIDPreSkip = fh.FeatureEnabled[0][segLvlSkip] // approximation: pre-skip iff skip feature used on seg 0
}

const segLvlSkip = 6

func segFeatureBits(feature int) (bits int, signed bool, maxVal int) {
	switch feature {
	case 0: // alt q
		return 8, true, 255
	case 1, 2, 3, 4: // alt lf
		return 6, true, 63
	case 5: // ref frame
		return 3, false, 7
	case 6: // skip
		return 0, false, 0
	default: // globalmv
		return 0, false, 0
	}
}

func parseLoopFilter(r *bitreader.Reader, fh *FrameHeader, seq *SequenceHeader) {
	if fh.AllowIntraBC {
		return
	}
	fh.LoopFilterLevel[0] = int(r.Get(6))
	fh.LoopFilterLevel[1] = int(r.Get(6))
	if !seq.Monochrome && (fh.LoopFilterLevel[0] != 0 || fh.LoopFilterLevel[1] != 0) {
		fh.LoopFilterLevel[2] = int(r.Get(6))
		fh.LoopFilterLevel[3] = int(r.Get(6))
	}
	fh.LoopFilterSharpness = int(r.Get(3))
	fh.LoopFilterDeltaEnabled = r.Get(1) != 0
	if fh.LoopFilterDeltaEnabled {
		if r.Get(1) != 0 { // loop_filter_delta_update
			for i := 0; i < 8; i++ {
				if r.Get(1) != 0 {
					fh.LoopFilterRefDeltas[i] = int(r.GetSigned(6))
				}
			}
			for i := 0; i < 2; i++ {
				if r.Get(1) != 0 {
					fh.LoopFilterModeDeltas[i] = int(r.GetSigned(6))
				}
			}
		}
	}
}

func parseCDEF(r *bitreader.Reader, fh *FrameHeader, seq *SequenceHeader) {
	if fh.AllowIntraBC {
		fh.CDEFYStrength[0] = 0
		return
	}
	fh.CDEFDamping = int(r.Get(2)) + 3
	bits := int(r.Get(2))
	n := 1 << bits
	fh.CDEFEnabled = true
	for i := 0; i < n; i++ {
		fh.CDEFYStrength[i] = int(r.Get(6))
		if !seq.Monochrome {
			fh.CDEFUVStrength[i] = int(r.Get(6))
		}
	}
}

func parseRestoration(r *bitreader.Reader, fh *FrameHeader, seq *SequenceHeader) {
	if fh.AllowIntraBC {
		return
	}
	nplanes := 3
	if seq.Monochrome {
		nplanes = 1
	}
	usesLR := false
	for i := 0; i < nplanes; i++ {
		fh.Restoration.Type[i] = int(r.Get(2))
		if fh.Restoration.Type[i] != 0 {
			usesLR = true
		}
	}
	if usesLR {
		r.Get(1) // lr_unit_shift
		if seq.Use128x128SB {
			r.Get(1)
		}
		if nplanes > 1 {
			r.Get(1) // uv_shift
		}
	}
}

func parseGlobalMotion(r *bitreader.Reader, fh *FrameHeader) {
	for ref := 1; ref < 8; ref++ {
		typ := 0 // IDENTITY
		if r.Get(1) != 0 { // is_global
			if r.Get(1) != 0 { // is_rot_zoom
				typ = 2
			} else {
				if r.Get(1) != 0 {
					typ = 3
				} else {
					typ = 1
				}
			}
		}
		fh.GlobalMotion[ref].Type = typ
		if typ == 0 {
			continue
		}
		nparams := 2
		if typ >= 2 {
			nparams = 4
		}
		if typ == 3 {
			nparams = 6
		}
		for p := 0; p < nparams; p++ {
			fh.GlobalMotion[ref].Params[p] = r.GetSigned(12)
		}
	}
}

func parseTileInfo(r *bitreader.Reader, fh *FrameHeader, seq *SequenceHeader) {
	sbSize := 64
	if seq.Use128x128SB {
		sbSize = 128
	}
	sbCols := (fh.FrameWidth + sbSize - 1) / sbSize
	sbRows := (fh.FrameHeight + sbSize - 1) / sbSize
	if sbCols < 1 {
		sbCols = 1
	}
	if sbRows < 1 {
		sbRows = 1
	}

	uniform := r.Get(1) != 0
	grid := TileGrid{}
	if uniform {
		logCols := 0
		for (1 << logCols) < sbCols {
			logCols++
		}
		logRows := 0
		for (1 << logRows) < sbRows {
			logRows++
		}
		if r.Get(1) != 0 { // increment columns
			logCols++
		}
		if r.Get(1) != 0 { // increment rows
			logRows++
		}
		grid.Cols = 1 << logCols
		grid.Rows = 1 << logRows
		if grid.Cols > sbCols {
			grid.Cols = sbCols
		}
		if grid.Rows > sbRows {
			grid.Rows = sbRows
		}
		grid.ColStarts = evenSplit(sbCols, grid.Cols)
		grid.RowStarts = evenSplit(sbRows, grid.Rows)
	} else {
		starts := []int{0}
		pos := 0
		for pos < sbCols {
			w := int(r.Get(2)) + 1
			if w > sbCols-pos {
				w = sbCols - pos
			}
			pos += w
			starts = append(starts, pos)
		}
		grid.ColStarts = starts
		grid.Cols = len(starts) - 1

		starts = []int{0}
		pos = 0
		for pos < sbRows {
			h := int(r.Get(2)) + 1
			if h > sbRows-pos {
				h = sbRows - pos
			}
			pos += h
			starts = append(starts, pos)
		}
		grid.RowStarts = starts
		grid.Rows = len(starts) - 1
	}

	if grid.Cols*grid.Rows > 1 {
		contextBits := ulog2Ceil(grid.Cols * grid.Rows)
		if contextBits > 0 {
			grid.ContextIndex = int(r.Get(uint(contextBits)))
		}
		r.GetVLC() // tile_size_bytes_minus_1 coded as uvlc in the real spec
	}
	fh.Tiles = grid
}

func evenSplit(total, n int) []int {
	starts := make([]int, n+1)
	for i := 0; i <= n; i++ {
		starts[i] = i * total / n
	}
	return starts
}

func ulog2Ceil(v int) int {
	n := 0
	for (1 << n) < v {
		n++
	}
	return n
}
