package dav1d

import "go.uber.org/zap"

// FrameContext holds everything one frame's decode needs: headers, the
// output picture, the frame-wide MV grid and segmentation map, the
// reference-slot table it reads from and writes to, and its tiles,
// spec.md §3/§4.7.
type FrameContext struct {
	Seq    *SequenceHeader
	Header *FrameHeader
	Picture *Picture

	MvGrid *MvGrid
	SegMap *SegmentationMap

	CDFIn  *CDFContext // input snapshot (primary ref's output, or default)
	CDFOut *CDFContext // promoted output once refresh_context resolves

	Refs *RefSlots

	Tiles []*TileContext

	Recon  ReconOps
	Logger *zap.Logger

	// blockArchive is the Av1Block recording pass 1 writes and pass 2
	// replays, spec.md §4.7 step 3. Indexed by tile, then by decode
	// (scan) order within the tile; it is not indexed by 4x4 position.
	blockArchive [][]*Av1Block
}

// NewFrameContext allocates per-frame scratch sized by the frame's
// superblock grid and tile count, spec.md §4.7 step 1.
func NewFrameContext(seq *SequenceHeader, fh *FrameHeader, pic *Picture, refs *RefSlots, cdfIn *CDFContext, recon ReconOps, logger *zap.Logger) *FrameContext {
	f := &FrameContext{
		Seq: seq, Header: fh, Picture: pic, Refs: refs,
		CDFIn: cdfIn, Recon: recon, Logger: logger,
	}
	w4, h4 := fh.MiCols(), fh.MiRows()
	f.MvGrid = NewMvGrid(w4, h4)
	f.SegMap = NewSegmentationMap(w4, h4)
	ntiles := fh.Tiles.Cols * fh.Tiles.Rows
	if ntiles < 1 {
		ntiles = 1
	}
	f.blockArchive = make([][]*Av1Block, ntiles)
	return f
}

// quantState is a tile's running quantizer/loop-filter delta state,
// spec.md §4.5: "Each tile holds a running last_qidx and
// last_delta_lf[4]."
type quantState struct {
	lastQIdx    int
	lastDeltaLF [4]int
	initialized bool
}

// cdefState tracks the once-per-64x64-region cdef_idx read, spec.md §4.5
// item 5.
type cdefState struct {
	lastRegionX, lastRegionY int
	have                     bool
}

// TileContext is one tile's mutable decode state: its own MSAC stream,
// CDF copy, progress counter, and left-edge neighbor column, spec.md §3.
type TileContext struct {
	Frame *FrameContext
	Index int

	// Clip rectangle in 4x4 (mi) units, frame-relative.
	ColStart, ColEnd, RowStart, RowEnd int

	CDF *CDFContext

	Above *BlockContext // spans the tile's column range, persists across sbrows
	Left  *BlockContext // spans one sbrow, reset at each sbrow start

	Progress RowProgress // this tile's own sbrow-completion counter

	quant quantState
	cdef  cdefState

	RefMv RefMvEngine

	Pass int // 1 or 2, spec.md §4.7 step 3

	// archive accumulates every block ParseBlock decodes in this tile, in
	// scan order, for pass 2 to replay without re-entering the MSAC
	// stream, spec.md §4.7 step 3.
	archive []*Av1Block

	decodeErr error
}

// NewTileContext builds a tile's decode state from the frame's header,
// cloning cdfIn as its mutable copy, spec.md §4.7 step 2 (setup_tile).
// The tile's MSAC decoder is created separately, by decodeTilePass1.
func NewTileContext(f *FrameContext, index int, colStart, colEnd, rowStart, rowEnd int, cdfIn *CDFContext) *TileContext {
	width := colEnd - colStart
	height := rowEnd - rowStart
	t := &TileContext{
		Frame: f, Index: index,
		ColStart: colStart, ColEnd: colEnd, RowStart: rowStart, RowEnd: rowEnd,
		CDF:   cdfIn.Clone(),
		Above: NewBlockContext(width),
		Left:  NewBlockContext(height),
	}
	t.RefMv = RefMvEngine{
		Grid:         f.MvGrid,
		GlobalMotion: &f.Header.GlobalMotion,
		ClipX0:       colStart, ClipX1: colEnd,
		ClipY0: rowStart, ClipY1: rowEnd,
		AllowHighPrecision: true,
	}
	return t
}

// ResetSBRow clears the left strip at the start of every superblock row,
// per spec.md §4.3's reset policy (the above strip resets once per tile
// and is otherwise updated in place).
func (t *TileContext) ResetSBRow() {
	t.Left.Reset()
}

// Err reports the sticky decode error accumulated while parsing this
// tile, if any.
func (t *TileContext) Err() error { return t.decodeErr }

func (t *TileContext) setErr(err error) {
	if t.decodeErr == nil {
		t.decodeErr = err
	}
}
