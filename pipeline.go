package dav1d

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/validvoid/dav1d/msac"
)

// RunFrame executes the two-pass tile schedule spec.md §4.7/§5 describes:
// every tile's symbol parse and coefficient decode (pass 1) runs to
// completion, then every tile's pixel reconstruction (pass 2) runs, then
// the frame-wide filter chain sweeps superblock rows. Tiles within a
// pass fan out across up to maxWorkers goroutines: pass 1 through a
// sync.WaitGroup with multierr aggregation, pass 2 through errgroup.
//
// This is the 1-pass-per-frame schedule: RunPass1 then RunPass2 run back
// to back on the calling goroutine. Decoder.handleTileGroupPayload picks
// between running them this way and running RunPass2 on a separate
// frame-pool worker depending on the pass schedule spec.md §4.7 step 3
// and §5 describe (see Decoder.scheduleFramePass2).
func (f *FrameContext) RunFrame(ctx context.Context, tileData [][]byte, maxWorkers int) error {
	if err := f.RunPass1(ctx, tileData, maxWorkers); err != nil {
		return err
	}
	return f.RunPass2(ctx, maxWorkers)
}

// RunPass1 decodes every tile's symbols and coefficients (pass 1) and
// archives the resulting blocks, fanning tiles out across up to
// maxWorkers goroutines. It populates f.Tiles and f.blockArchive; RunPass2
// consumes both.
func (f *FrameContext) RunPass1(ctx context.Context, tileData [][]byte, maxWorkers int) error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers > len(tileData) {
		maxWorkers = len(tileData)
	}

	tiles := make([]*TileContext, len(tileData))
	sem := make(chan struct{}, maxWorkers)

	// Pass 1 runs every tile independently: one tile's corrupt bitstream
	// does not stop its siblings from decoding, so failures are collected
	// with multierr rather than short-circuited through errgroup's
	// first-error cancellation.
	var wg sync.WaitGroup
	var mu sync.Mutex
	var pass1Err error
	for i, data := range tileData {
		i, data := i, data
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				pass1Err = multierr.Append(pass1Err, ctx.Err())
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			colStart, colEnd, rowStart, rowEnd := f.tileRect(i)
			t := NewTileContext(f, i, colStart, colEnd, rowStart, rowEnd, f.CDFIn)
			tiles[i] = t
			if err := f.decodeTilePass1(t, data); err != nil {
				t.setErr(err)
				mu.Lock()
				pass1Err = multierr.Append(pass1Err, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if pass1Err != nil {
		return pass1Err
	}
	f.Tiles = tiles
	if f.blockArchive == nil || len(f.blockArchive) != len(tiles) {
		f.blockArchive = make([][]*Av1Block, len(tiles))
	}
	for i, t := range tiles {
		f.blockArchive[i] = t.archive
	}

	// CDF evolution happens entirely during symbol parsing, never during
	// pixel reconstruction, so the promoted output snapshot is ready as
	// soon as pass 1 is — spec.md §4.7 step 3's block-level progress
	// counter (RowProgress.AdvanceBlock) reports exactly that milestone,
	// and a later frame with this one as its primary reference can
	// already build its own CDFIn from f.CDFOut without waiting on
	// RunPass2 at all.
	f.promoteCDF()
	f.Picture.Progress.AdvanceBlock(int64(f.Header.MiRows()))
	return nil
}

// RunPass2 replays every archived tile's blocks into reconstruction ops,
// then sweeps the frame-wide filter chain, spec.md §4.7 step 3's "pass 2
// replay". It requires RunPass1 to have already populated f.Tiles and
// promoted the CDF.
func (f *FrameContext) RunPass2(ctx context.Context, maxWorkers int) error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers > len(f.Tiles) {
		maxWorkers = len(f.Tiles)
	}
	sem := make(chan struct{}, maxWorkers)

	g2, _ := errgroup.WithContext(ctx)
	for _, t := range f.Tiles {
		t := t
		g2.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()
			return f.reconstructTilePass2(t)
		})
	}
	if err := g2.Wait(); err != nil {
		return err
	}

	sbSize4 := f.Header.SBSize() / 4
	rows := f.Header.MiRows()
	for sby := 0; sby*sbSize4 < rows; sby++ {
		if err := f.Recon.FilterSBRow(f, sby); err != nil {
			return err
		}
	}

	f.Picture.Progress.AdvancePixel(int64(rows))
	return nil
}

// decodeTilePass1 descends every superblock in t's rectangle, drawing
// partition and block symbols and reading residual coefficients; no
// pixel reconstruction happens here, spec.md §4.7 step 3.
func (f *FrameContext) decodeTilePass1(t *TileContext, data []byte) error {
	t.Pass = 1
	dec := msac.NewDecoder(data, f.Header.DisableCDFUpdate)
	pd := PartitionDescender{}
	sbSize4 := f.Header.SBSize() / 4

	sbRow := 0
	for y4 := t.RowStart; y4 < t.RowEnd; y4 += sbSize4 {
		t.ResetSBRow()
		for x4 := t.ColStart; x4 < t.ColEnd; x4 += sbSize4 {
			if err := pd.DecodeSuperblock(t, dec, x4, y4); err != nil {
				return err
			}
		}
		if err := f.Recon.BackupIPredEdge(t); err != nil {
			return err
		}
		sbRow++
		t.Progress.AdvanceBlock(int64(sbRow))
	}
	if dec.Error() {
		return newErr(InvalidBitstream, "tile %d: msac stream ran past its coded range", t.Index)
	}
	return nil
}

// reconstructTilePass2 replays t's archived blocks through ReconOps
// without re-entering the MSAC stream, spec.md §4.7 step 3's "pass 2
// replay".
func (f *FrameContext) reconstructTilePass2(t *TileContext) error {
	t.Pass = 2
	for _, b := range t.archive {
		var err error
		if b.IsIntra {
			err = f.Recon.ReconBIntra(t, 0, b)
		} else {
			err = f.Recon.ReconBInter(t, b)
		}
		if err != nil {
			t.setErr(err)
			return err
		}
	}
	return nil
}

// tileRect converts tile index i's superblock-unit boundaries from the
// frame header's tile grid into a 4x4-unit mi rectangle.
func (f *FrameContext) tileRect(i int) (colStart, colEnd, rowStart, rowEnd int) {
	grid := f.Header.Tiles
	cols := grid.Cols
	if cols < 1 {
		cols = 1
	}
	col := i % cols
	row := i / cols
	sbSize4 := f.Header.SBSize() / 4

	colStart = sbUnit(grid.ColStarts, col) * sbSize4
	colEnd = sbUnit(grid.ColStarts, col+1) * sbSize4
	rowStart = sbUnit(grid.RowStarts, row) * sbSize4
	rowEnd = sbUnit(grid.RowStarts, row+1) * sbSize4

	if colEnd > f.Header.MiCols() || len(grid.ColStarts) == 0 {
		colEnd = f.Header.MiCols()
	}
	if rowEnd > f.Header.MiRows() || len(grid.RowStarts) == 0 {
		rowEnd = f.Header.MiRows()
	}
	if len(grid.ColStarts) == 0 {
		colStart, colEnd = 0, f.Header.MiCols()
	}
	if len(grid.RowStarts) == 0 {
		rowStart, rowEnd = 0, f.Header.MiRows()
	}
	if colStart > colEnd {
		colStart = colEnd
	}
	if rowStart > rowEnd {
		rowStart = rowEnd
	}
	return
}

func sbUnit(starts []int, i int) int {
	if i < 0 || i >= len(starts) {
		if len(starts) == 0 {
			return 0
		}
		return starts[len(starts)-1]
	}
	return starts[i]
}

// promoteCDF implements spec.md §4.7's CDF promotion step: the context
// tile's evolved CDF becomes the frame's output snapshot, averaged
// against the input snapshot unless disable_frame_end_update_cdf is set.
func (f *FrameContext) promoteCDF() {
	idx := f.Header.Tiles.ContextIndex
	if idx < 0 || idx >= len(f.Tiles) {
		idx = 0
	}
	if len(f.Tiles) == 0 {
		f.CDFOut = f.CDFIn
		return
	}
	ctxCDF := f.Tiles[idx].CDF
	if f.Header.DisableFrameEndUpdateCDF {
		f.CDFOut = f.CDFIn
		return
	}
	f.CDFOut = f.CDFIn.Average(ctxCDF)
}
