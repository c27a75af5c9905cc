package dav1d

import "github.com/validvoid/dav1d/internal/tables"

// BlockContext is one neighbor strip — above-row or left-column — indexed
// by 4x4 unit within the tile, spec.md §3/§4.3. Struct-of-arrays layout
// keeps each categorical field contiguous, matching spec.md §9's note
// that this is essential for cache efficiency.
type BlockContext struct {
	Intra  []bool
	Mode   []uint8
	UVMode []uint8

	// TxIntra, TxLPFY, and TxLPFUV, like Ref/Filter/CompType/PalSz below,
	// are populated here but have no in-core consumer: they exist for an
	// external ReconOps loop-filter implementation's edge-length and
	// deblocking-strength decisions, which need the same neighbor tx
	// sizes this strip already tracks but split by intra-only/luma/chroma
	// the way the filter's own context derivation wants them. TxIntra
	// reads as Tx32x32 (the filter's "unavailable" sentinel) for
	// non-intra neighbors, since the intra tx-size context only looks at
	// same-type neighbors.
	TxIntra []uint8
	Tx      []uint8
	TxLPFY  []uint8
	TxLPFUV []uint8

	Partition []uint8
	Skip      []bool
	SkipMode  []bool
	SegPred   []bool
	PalSz     []uint8
	CompType  []uint8
	Ref       [2][]int8
	Filter    [2][]uint8

	// LCoef and CCoef are allocated for the luma/chroma all-zero
	// coefficient context spec.md §4.3 names, but this core has nothing
	// to put in them: whether a transform block's coefficients were all
	// zero is only known inside ReadCoefBlocks, which is entirely
	// delegated to ReconOps (recon.go) and returns nothing back to the
	// core about what it decoded. Left zeroed rather than wired to a
	// fabricated signal; see DESIGN.md's review-follow-ups entry.
	LCoef []uint8
	CCoef []uint8

	// ObmcGap marks, per 4x4 unit, whether that neighbor is NOT an
	// overlappable inter block: 0 means an inter-coded neighbor sits
	// there, 1 means intra, edge-of-tile, or not yet written. FindOddZero
	// looks for the 0 case.
	ObmcGap []uint8
}

// NewBlockContext allocates a strip sized for n 4x4 units.
func NewBlockContext(n int) *BlockContext {
	bc := &BlockContext{
		Intra:     make([]bool, n),
		Mode:      make([]uint8, n),
		UVMode:    make([]uint8, n),
		TxIntra:   make([]uint8, n),
		Tx:        make([]uint8, n),
		TxLPFY:    make([]uint8, n),
		TxLPFUV:   make([]uint8, n),
		Partition: make([]uint8, n),
		Skip:      make([]bool, n),
		SkipMode:  make([]bool, n),
		SegPred:   make([]bool, n),
		PalSz:     make([]uint8, n),
		CompType:  make([]uint8, n),
		LCoef:     make([]uint8, n),
		CCoef:     make([]uint8, n),
		ObmcGap:   make([]uint8, n),
	}
	bc.Ref[0] = make([]int8, n)
	bc.Ref[1] = make([]int8, n)
	bc.Filter[0] = make([]uint8, n)
	bc.Filter[1] = make([]uint8, n)
	for i := range bc.ObmcGap {
		bc.ObmcGap[i] = 1
	}
	return bc
}

// Reset clears the strip, per spec.md §4.3's reset policy: the left strip
// resets for every sbrow, the above strip resets once per tile.
func (bc *BlockContext) Reset() {
	n := len(bc.Intra)
	for i := 0; i < n; i++ {
		bc.Intra[i] = false
		bc.Mode[i] = 0
		bc.UVMode[i] = 0
		bc.TxIntra[i] = 0
		bc.Tx[i] = 0
		bc.TxLPFY[i] = 0
		bc.TxLPFUV[i] = 0
		bc.Partition[i] = 0
		bc.Skip[i] = false
		bc.SkipMode[i] = false
		bc.SegPred[i] = false
		bc.PalSz[i] = 0
		bc.CompType[i] = 0
		bc.Ref[0][i] = int8(tables.RefNone)
		bc.Ref[1][i] = int8(tables.RefNone)
		bc.Filter[0][i] = 0
		bc.Filter[1][i] = 0
		bc.LCoef[i] = 0
		bc.CCoef[i] = 0
		bc.ObmcGap[i] = 1
	}
}

// Fill writes b's categorical fields across [start, start+len) — b's
// footprint in this strip, projected onto the current sbrow/column per
// spec.md §4.3/§8's neighbor-strip conservation invariant.
func (bc *BlockContext) Fill(start, length int, b *Av1Block) {
	for i := start; i < start+length && i < len(bc.Intra); i++ {
		bc.Intra[i] = b.IsIntra
		bc.Mode[i] = uint8(b.YMode)
		bc.UVMode[i] = uint8(b.UVMode)
		bc.Tx[i] = uint8(b.TxSizeY)
		if b.IsIntra {
			bc.TxIntra[i] = uint8(b.TxSizeY)
		} else {
			bc.TxIntra[i] = uint8(tables.Tx32x32)
		}
		bc.TxLPFY[i] = uint8(b.TxSizeY)
		bc.TxLPFUV[i] = uint8(b.TxSizeUV)
		bc.Partition[i] = uint8(b.Partition)
		bc.Skip[i] = b.Skip
		bc.SkipMode[i] = b.SkipMode
		bc.SegPred[i] = b.SegIDPredicted
		bc.PalSz[i] = b.PaletteSizeY
		bc.CompType[i] = uint8(b.CompType)
		bc.Ref[0][i] = int8(b.Ref[0])
		bc.Ref[1][i] = int8(b.Ref[1])
		bc.Filter[0][i] = uint8(b.Filter[0])
		bc.Filter[1][i] = uint8(b.Filter[1])
		if b.IsIntra {
			bc.ObmcGap[i] = 1
		} else {
			bc.ObmcGap[i] = 0
		}
	}
}

// IntraCtx forms the "intra" coding context: the sum of the above and
// left intra flags, read from each strip at its own index (above is
// column-indexed, left is row-indexed), spec.md §4.3.
func IntraCtx(above, left *BlockContext, aboveI, leftI int) int {
	ctx := 0
	if above.Intra[aboveI] {
		ctx++
	}
	if left.Intra[leftI] {
		ctx++
	}
	return ctx
}

// SkipCtx forms the "skip" coding context: sum of above/left skip flags.
func SkipCtx(above, left *BlockContext, aboveI, leftI int) int {
	ctx := 0
	if above.Skip[aboveI] {
		ctx++
	}
	if left.Skip[leftI] {
		ctx++
	}
	return ctx
}

// partitionCtxTable combines above/left partition bytes into one of four
// partition-context buckets; a small precomputed table per spec.md §4.3.
var partitionCtxTable = [4][4]int{
	{0, 1, 2, 3},
	{1, 1, 2, 3},
	{2, 2, 2, 3},
	{3, 3, 3, 3},
}

// PartitionCtx forms the partition coding context from above/left
// partition bytes, clamped into the precomputed table's domain.
func PartitionCtx(above, left *BlockContext, aboveI, leftI int) int {
	a := int(above.Partition[aboveI])
	if a > 3 {
		a = 3
	}
	l := int(left.Partition[leftI])
	if l > 3 {
		l = 3
	}
	return partitionCtxTable[a][l]
}

// FindOddZero scans only the odd-indexed bytes of strip in [start,end) and
// reports whether any of them is zero. This is an intentional thinning of
// the OBMC overlappable-neighbor test inherited from the source decoder
// (spec.md §9) — preserved as-is rather than "fixed" to scan every index.
func FindOddZero(strip []uint8, start, end int) bool {
	for i := start + 1; i < end; i += 2 {
		if strip[i] == 0 {
			return true
		}
	}
	return false
}
