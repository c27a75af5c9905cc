package dav1d

import "github.com/validvoid/dav1d/internal/tables"

// ReconOps is the pluggable capability set for pixel-domain work the core
// delegates to an external collaborator, spec.md §1/§6: inverse
// transform, intra/inter prediction, loop filter, CDEF, and loop
// restoration all live behind this interface. The core never touches
// pixels directly; it calls back into ReconOps with the tile context and
// block descriptor it just parsed.
type ReconOps interface {
	// ReadCoefBlocks decodes residual coefficients into the pass-1
	// buffer; no pixels are touched. Used during pass 1 of two-pass
	// frame threading and during the single-pass schedule's coefficient
	// stage.
	ReadCoefBlocks(t *TileContext, bs tables.BlockLevel, b *Av1Block) error

	// ReconBIntra writes reconstructed intra samples for b.
	ReconBIntra(t *TileContext, edgeFlags int, b *Av1Block) error

	// ReconBInter writes reconstructed inter samples for b; may suspend
	// on a reference picture's row-progress counter.
	ReconBInter(t *TileContext, b *Av1Block) error

	// FilterSBRow applies deblock/CDEF/restoration for superblock row
	// sby of frame f, advancing its pixel-level progress counter.
	FilterSBRow(f *FrameContext, sby int) error

	// BackupIPredEdge snapshots pre-filter edge samples the next sbrow's
	// intra prediction needs.
	BackupIPredEdge(t *TileContext) error
}

// NoopReconOps is a pluggable-but-inert ReconOps implementation: it
// performs no pixel-domain work but advances progress counters correctly,
// so the frame pipeline's scheduling and synchronization can be exercised
// (and tested) independently of a real reconstruction backend. Production
// callers supply their own ReconOps; this is the default when none is
// configured, and what spec.md §1 calls the "pluggable capability set"
// boundary.
type NoopReconOps struct{}

func (NoopReconOps) ReadCoefBlocks(*TileContext, tables.BlockLevel, *Av1Block) error { return nil }
func (NoopReconOps) ReconBIntra(*TileContext, int, *Av1Block) error                       { return nil }
func (NoopReconOps) ReconBInter(*TileContext, *Av1Block) error                            { return nil }
func (NoopReconOps) BackupIPredEdge(*TileContext) error                                   { return nil }

func (NoopReconOps) FilterSBRow(f *FrameContext, sby int) error {
	f.Picture.Progress.AdvancePixel(int64(sby+1) * int64(f.Header.SBSize()/4))
	return nil
}
