// Package tables holds the process-wide immutable constant tables the AV1
// spec defines: block-size dimensions, partition-tree geometry, and the
// small lookup tables the partition descender and block parser consult.
// These mirror the constant arrays dav1d keeps as static tables in
// original_source/src/decode.c.
package tables

// BlockLevel enumerates the partition-tree levels from spec.md §4.6,
// named by their pixel edge length.
type BlockLevel int

const (
	Bl128x128 BlockLevel = iota
	Bl64x64
	Bl32x32
	Bl16x16
	Bl8x8
	Bl4x4
)

// Dim returns the pixel width/height of a square block at level bl.
func (bl BlockLevel) Dim() int {
	switch bl {
	case Bl128x128:
		return 128
	case Bl64x64:
		return 64
	case Bl32x32:
		return 32
	case Bl16x16:
		return 16
	case Bl8x8:
		return 8
	default:
		return 4
	}
}

// Unit4x4 returns the block's edge length in 4x4 units.
func (bl BlockLevel) Unit4x4() int { return bl.Dim() / 4 }

// Child returns the next finer partition level (SPLIT descends one level).
func (bl BlockLevel) Child() BlockLevel {
	if bl == Bl4x4 {
		return Bl4x4
	}
	return bl + 1
}

// PartitionKind enumerates the up to 10 AV1 partition symbols, spec.md §4.6.
type PartitionKind int

const (
	PartNone PartitionKind = iota
	PartHoriz
	PartVert
	PartSplit
	PartHorizTop
	PartHorizBottom
	PartVertLeft
	PartVertRight
	PartHoriz4
	PartVert4
)

// SplitsVerticalBelow8x8 reports whether a partition kind slices on the
// vertical axis in a way that is illegal under 4:2:2 chroma layout below
// 8x8 luma (spec.md §4.6 item 3).
func SplitsVerticalBelow8x8(bp PartitionKind, bl BlockLevel) bool {
	if bl != Bl8x8 {
		return false
	}
	switch bp {
	case PartVert, PartVert4, PartVertLeft, PartVertRight:
		return true
	default:
		return false
	}
}

// NumPartitionKinds returns how many partition symbols are valid at a
// given block level (128x128 and 8x8 never use H4/V4; 8x8 never uses the
// T-shaped splits either since its children would be sub-4x4).
func NumPartitionKinds(bl BlockLevel) int {
	switch bl {
	case Bl8x8:
		return 4 // NONE, H, V, SPLIT
	case Bl128x128:
		return 8 // no H4/V4 at the top level
	default:
		return 10
	}
}

// TxSize enumerates transform block sizes by edge length in 4x4 units,
// capped at the block's canonical max per spec.md §4.5's variable-tx tree.
type TxSize int

const (
	Tx4x4 TxSize = iota
	Tx8x8
	Tx16x16
	Tx32x32
	Tx64x64
)

// Unit4x4 returns the transform edge length in 4x4 units.
func (t TxSize) Unit4x4() int {
	return 1 << int(t)
}

// MaxTxSizeForBlock returns a block's canonical maximum transform size,
// capped at 64x64 (AV1 caps transforms at 64x64 even for 128x128 blocks).
func MaxTxSizeForBlock(bw4, bh4 int) TxSize {
	m := bw4
	if bh4 < m {
		m = bh4
	}
	switch {
	case m >= 16:
		return Tx64x64
	case m >= 8:
		return Tx32x32
	case m >= 4:
		return Tx16x16
	case m >= 2:
		return Tx8x8
	default:
		return Tx4x4
	}
}

// RefFrame indexes AV1's reference-frame slots, -1 meaning "none" and 0
// meaning intra.
type RefFrame int

const (
	RefNone      RefFrame = -1
	RefIntra     RefFrame = 0
	RefLast      RefFrame = 1
	RefLast2     RefFrame = 2
	RefLast3     RefFrame = 3
	RefGolden    RefFrame = 4
	RefBwdRef    RefFrame = 5
	RefAltRef2   RefFrame = 6
	RefAltRef    RefFrame = 7
	NumRefFrames          = 8
)

// YMode enumerates the luma prediction modes relevant to context
// formation; only the subset the block parser and contexts need to
// distinguish is named.
type YMode int

const (
	ModeDC YMode = iota
	ModeVert
	ModeHoriz
	ModeSmooth
	ModePaeth
	ModeDirectional
	ModeNewMV
	ModeNearestMV
	ModeNearMV
	ModeGlobalMV
	ModeCompound
)

// MotionMode enumerates the three motion-compensation modes of spec.md §3.
type MotionMode int

const (
	MotionTranslation MotionMode = iota
	MotionOBMC
	MotionWarp
)

// CompType enumerates compound prediction types, spec.md §4.5 item 10.
type CompType int

const (
	CompAvg CompType = iota
	CompWeighted
	CompSegWedge
	CompWedge
)
