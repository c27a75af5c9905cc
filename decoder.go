package dav1d

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/validvoid/dav1d/bitreader"
)

// DecodeResult is what Decode returns: every picture the input produced,
// in output order, and the temporal-unit count it consumed, spec.md §6.
type DecodeResult struct {
	Pictures          []*Picture
	TemporalUnitCount int
}

// Decoder is the top-level entry point, spec.md §6: it owns the sequence
// header, the 8 reference slots, and the in-progress frame, and turns a
// length-delimited OBU stream into output pictures.
type Decoder struct {
	settings Settings
	logger   *zap.Logger

	seq  *SequenceHeader
	refs *RefSlots

	operatingPointIdc int
	seenFrameHeader   bool

	curHeader *FrameHeader
	curFrame  *FrameContext

	flushed bool

	// frameSem bounds how many frames' pass 2 (reconstruction + the
	// filter chain) the frame-thread pool runs concurrently, spec.md
	// §4.7 step 3 / §5's n_fc. frameWG tracks outstanding pass-2 jobs so
	// Flush can wait for them instead of racing their pixel and progress
	// writes.
	frameSem chan struct{}
	frameWG  sync.WaitGroup
}

// NewDecoder builds a Decoder from functional options, in the style of
// the example pack's component constructors.
func NewDecoder(opts ...Option) *Decoder {
	s := NewSettings(opts...)
	nfc := int(s.NFrameThreads)
	if nfc < 1 {
		nfc = 1
	}
	return &Decoder{
		settings: s,
		logger:   s.Logger,
		refs:     NewRefSlots(),
		frameSem: make(chan struct{}, nfc),
	}
}

// Decode consumes a full length-delimited temporal-unit stream and
// returns every picture it produced. Pictures the caller does not
// eventually Unref leak their plane allocations, per spec.md §3's
// ownership rules.
func (d *Decoder) Decode(data []byte) (*DecodeResult, error) {
	if d.flushed {
		return nil, newErr(IOFailure, "decode called after flush")
	}
	result := &DecodeResult{}
	pos := 0
	for pos < len(data) {
		tuSize, n, err := leb128(data[pos:])
		if err != nil {
			return result, errors.Wrap(err, "temporal unit size")
		}
		pos += n
		if pos+tuSize > len(data) {
			return result, newErr(InvalidBitstream, "temporal unit overruns buffer")
		}
		pics, err := d.temporalUnit(data[pos : pos+tuSize])
		result.Pictures = append(result.Pictures, pics...)
		result.TemporalUnitCount++
		if err != nil {
			return result, err
		}
		pos += tuSize
	}
	return result, nil
}

// Flush cancels the in-progress frame (if any) and marks every picture
// it had produced so far as invalidated, spec.md §5's cancellation
// contract. It does not clear the reference-slot table: a later Decode
// call after Flush should fail (spec.md §7 is explicit that the decoder
// does not resume after a flush without a fresh sequence header), so a
// Decoder is single-use past this point.
func (d *Decoder) Flush() {
	d.flushed = true
	if d.curFrame != nil && d.curFrame.Picture != nil {
		d.curFrame.Picture.Flushed.Store(true)
	}
	d.curFrame = nil
	d.curHeader = nil
	// Frame-pool pass-2 jobs already dispatched for prior frames are past
	// the flush boundary and keep running; wait for them so their pixel and
	// progress writes can't land after a later Decode call would otherwise
	// assume the decoder is quiescent. (Their ref-slot state was already
	// published by commitFrame before they were scheduled.)
	d.frameWG.Wait()
}

func (d *Decoder) handleSequenceHeader(payload []byte) error {
	r := bitreader.NewReader(payload)
	seq, err := ParseSequenceHeader(r)
	if err != nil {
		return err
	}
	d.seq = seq
	d.operatingPointIdc = 0
	return nil
}

func (d *Decoder) frameHeaderContext() *FrameHeaderContext {
	ctx := &FrameHeaderContext{Seq: d.seq}
	for i := 0; i < 8; i++ {
		ctx.RefValid[i] = d.refs.Slots[i].Valid
		ctx.RefOrderHint[i] = d.refs.Slots[i].OrderHint
	}
	return ctx
}

func (d *Decoder) handleFrameHeaderPayload(payload []byte) (*Picture, error) {
	if d.seq == nil {
		return nil, newErr(InvalidBitstream, "frame header before any sequence header")
	}
	r := bitreader.NewReader(payload)
	fh, err := ParseFrameHeader(r, d.frameHeaderContext())
	if err != nil {
		return nil, err
	}
	return d.beginFrame(fh)
}

// handleFrameObu parses a combined OBU_FRAME's frame header prefix, then
// hands the remaining byte-aligned bytes to the tile-group parser.
func (d *Decoder) handleFrameObu(payload []byte) (*Picture, error) {
	if d.seq == nil {
		return nil, newErr(InvalidBitstream, "frame obu before any sequence header")
	}
	r := bitreader.NewReader(payload)
	fh, err := ParseFrameHeader(r, d.frameHeaderContext())
	if err != nil {
		return nil, err
	}
	if _, err := d.beginFrame(fh); err != nil {
		return nil, err
	}
	rest := payload[r.Flush():]
	return d.handleTileGroupPayload(rest)
}

// beginFrame handles a freshly parsed frame header: a show_existing_frame
// short-circuit pulls a published reference picture directly; otherwise
// it starts a new FrameContext awaiting its tile group(s).
func (d *Decoder) beginFrame(fh *FrameHeader) (*Picture, error) {
	d.seenFrameHeader = true
	d.curHeader = fh

	if fh.ShowExistingFrame {
		slot, err := d.refs.Get(fh.FrameToShowMapIdx)
		if err != nil {
			return nil, err
		}
		d.seenFrameHeader = false
		d.curHeader = nil
		return slot.Picture.Ref(), nil
	}

	strides := [2]int{fh.FrameWidth, (fh.FrameWidth + 1) / 2}
	pic, err := NewPicture(PictureParams{
		Width: fh.FrameWidth, Height: fh.FrameHeight,
		Layout: fh.ChromaLayout, Type: fh.Type, BitDepth: fh.BitDepth,
	}, d.settings.Allocator, strides)
	if err != nil {
		return nil, err
	}
	pic.POC = int64(fh.OrderHint)

	cdfIn := d.defaultCDFFor(fh)
	d.curFrame = NewFrameContext(d.seq, fh, pic, d.refs, cdfIn, d.settings.Recon, d.logger)
	return nil, nil
}

// defaultCDFFor selects the input CDF snapshot: the primary reference's
// output CDF, or a fresh default table when PrimaryRefFrame is none,
// spec.md §3.
func (d *Decoder) defaultCDFFor(fh *FrameHeader) *CDFContext {
	if fh.PrimaryRefFrame >= 0 && fh.PrimaryRefFrame < 7 {
		idx := fh.RefFrameIdx[fh.PrimaryRefFrame]
		if slot, err := d.refs.Get(idx); err == nil && slot.CDF != nil {
			return slot.CDF.Clone()
		}
	}
	return NewCDFContext()
}

// handleTileGroupPayload splits a tile group OBU's payload into its
// constituent tiles. Every tile but the last is prefixed by a 4-byte
// big-endian length; the last tile runs to the end of the payload. This
// is a deliberate simplification of the AV1 bitstream's tile_size_bytes
// convention (documented in DESIGN.md) rather than a bit-for-bit replica.
func (d *Decoder) handleTileGroupPayload(payload []byte) (*Picture, error) {
	f := d.curFrame
	if f == nil {
		return nil, newErr(InvalidBitstream, "tile group obu without an active frame header")
	}
	numTiles := f.Header.Tiles.Cols * f.Header.Tiles.Rows
	if numTiles < 1 {
		numTiles = 1
	}

	tileData := make([][]byte, numTiles)
	pos := 0
	for i := 0; i < numTiles; i++ {
		if i == numTiles-1 {
			tileData[i] = payload[pos:]
			break
		}
		if pos+4 > len(payload) {
			return nil, newErr(InvalidBitstream, "tile group truncated before tile %d", i)
		}
		size := int(binary.BigEndian.Uint32(payload[pos : pos+4]))
		pos += 4
		if pos+size > len(payload) {
			return nil, newErr(InvalidBitstream, "tile %d size exceeds tile group", i)
		}
		tileData[i] = payload[pos : pos+size]
		pos += size
	}

	tileThreads := int(d.settings.NTileThreads)
	if err := f.RunPass1(context.Background(), tileData, tileThreads); err != nil {
		return nil, err
	}

	fh := d.curHeader
	d.curFrame, d.curHeader, d.seenFrameHeader = nil, nil, false
	d.commitFrame(f, fh)

	// spec.md §4.7 step 3: select a pass schedule. Pass 1 just published
	// this frame's CDF, segmentation map and MV grid into the reference
	// slots (commitFrame, above) — everything a later frame's header
	// parse and symbol decode can depend on. Only finished pixels are
	// still outstanding, and only a frame actually carrying this one
	// forward as its primary reference (refresh_context) benefits from
	// not waiting on them. When frame threading is enabled and that's
	// true, pass 2 (reconstruction + the filter chain) moves to the
	// frame-thread pool so the next frame's pass 1 can start immediately;
	// otherwise the 1-pass schedule below runs pass 2 in line, which is
	// simpler and no slower when nothing is waiting on the overlap.
	if d.settings.NFrameThreads > 1 && fh.RefreshContext {
		d.scheduleFramePass2(f, tileThreads)
	} else if err := f.RunPass2(context.Background(), tileThreads); err != nil {
		return nil, err
	}

	if !fh.ShowFrame {
		return nil, nil
	}
	return f.Picture.Ref(), nil
}

// commitFrame publishes f's pass-1 output — CDF, segmentation map, MV
// grid, and the picture handle itself (not yet pixel-complete) — into
// the reference-slot table, spec.md §4.7 step 6. A consumer that reads
// pixels from a published reference must synchronize on
// Picture.Progress.WaitPixel rather than assume they are ready.
func (d *Decoder) commitFrame(f *FrameContext, fh *FrameHeader) {
	f.Refs.Refresh(fh.RefreshFrameFlags, f.Picture, f.CDFOut, f.SegMap, f.MvGrid, fh.OrderHint)
}

// scheduleFramePass2 hands f's pass 2 to the frame-thread pool, bounded
// to Settings.NFrameThreads concurrent frames. The caller has already
// committed this frame's ref-slot state and returned its Picture handle;
// pass 2 fills in pixels and raises Picture.Progress in the background.
// It holds its own reference on the picture for the duration, since a
// later frame's commitFrame can otherwise evict and Unref this one from
// every slot before its own reconstruction finishes writing pixels.
func (d *Decoder) scheduleFramePass2(f *FrameContext, tileThreads int) {
	pic := f.Picture.Ref()
	d.frameWG.Add(1)
	go func() {
		defer d.frameWG.Done()
		defer pic.Unref()
		d.frameSem <- struct{}{}
		defer func() { <-d.frameSem }()
		if err := f.RunPass2(context.Background(), tileThreads); err != nil && d.logger != nil {
			d.logger.Warn("frame pass 2 failed", zap.Int64("poc", pic.POC), zap.Error(err))
		}
	}()
}

// finishFrame is the synchronous one-shot equivalent of commitFrame
// followed by the show_frame decision, for callers that run pass 2
// themselves rather than going through handleTileGroupPayload's pass
// schedule.
func (d *Decoder) finishFrame() (*Picture, error) {
	f := d.curFrame
	fh := d.curHeader
	d.curFrame, d.curHeader, d.seenFrameHeader = nil, nil, false
	d.commitFrame(f, fh)
	if !fh.ShowFrame {
		return nil, nil
	}
	return f.Picture.Ref(), nil
}
