package dav1d

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDecoderAppliesOptions(t *testing.T) {
	d := NewDecoder(WithTileThreads(4), WithFrameThreads(2))
	assert.Equal(t, uint(4), d.settings.NTileThreads)
	assert.Equal(t, uint(2), d.settings.NFrameThreads)
}

func TestDecodeAfterFlushErrors(t *testing.T) {
	d := NewDecoder()
	d.Flush()
	_, err := d.Decode([]byte{0x00})
	assert.Error(t, err)
	assert.True(t, IsKind(err, IOFailure))
}

func TestFlushInvalidatesInProgressPicture(t *testing.T) {
	d := NewDecoder()
	pic := newTestPicture(t)
	d.curFrame = &FrameContext{Picture: pic}
	d.Flush()
	assert.True(t, pic.Flushed.Load())
	assert.Nil(t, d.curFrame)
}

func TestBeginFrameShowExistingFramePullsRefSlot(t *testing.T) {
	d := NewDecoder()
	pic := newTestPicture(t)
	d.refs.Refresh(1, pic, NewCDFContext(), nil, nil, 3)

	out, err := d.beginFrame(&FrameHeader{ShowExistingFrame: true, FrameToShowMapIdx: 0})
	assert.NoError(t, err)
	assert.Same(t, pic, out)
	assert.False(t, d.seenFrameHeader)
}

func TestBeginFrameShowExistingFrameMissingSlotErrors(t *testing.T) {
	d := NewDecoder()
	_, err := d.beginFrame(&FrameHeader{ShowExistingFrame: true, FrameToShowMapIdx: 5})
	assert.Error(t, err)
	assert.True(t, IsKind(err, ReferenceMissing))
}

func TestBeginFrameStartsFreshFrameContext(t *testing.T) {
	d := NewDecoder()
	d.seq = &SequenceHeader{BitDepth: 8, Monochrome: true}

	pic, err := d.beginFrame(&FrameHeader{
		Type: FrameKey, FrameWidth: 16, FrameHeight: 16,
		ChromaLayout: LayoutMonochrome, BitDepth: 8, PrimaryRefFrame: -1,
	})
	assert.NoError(t, err)
	assert.Nil(t, pic) // no output until the tile group completes
	assert.NotNil(t, d.curFrame)
}

func TestDefaultCDFForFallsBackWithoutPrimaryRef(t *testing.T) {
	d := NewDecoder()
	cdf := d.defaultCDFFor(&FrameHeader{PrimaryRefFrame: -1})
	assert.NotNil(t, cdf)
}

func TestDefaultCDFForUsesPrimaryRefSnapshot(t *testing.T) {
	d := NewDecoder()
	refCDF := NewCDFContext()
	refCDF.Get("skip", 0, 2)[0] = 12345
	d.refs.Refresh(1, newTestPicture(t), refCDF, nil, nil, 0)

	cdf := d.defaultCDFFor(&FrameHeader{PrimaryRefFrame: 0, RefFrameIdx: [7]int{0}})
	assert.Equal(t, uint16(12345), cdf.Get("skip", 0, 2)[0])
}

func TestHandleTileGroupPayloadSplitsAndRuns(t *testing.T) {
	d := NewDecoder()
	f := newTestFrame(16, 16)
	f.Header.RefreshFrameFlags = 0
	f.Header.ShowFrame = true
	d.curFrame = f
	d.curHeader = f.Header

	tile0 := fillBytes(64, 0x11)
	tile1 := fillBytes(64, 0x22)
	payload := make([]byte, 0, 4+len(tile0)+len(tile1))
	payload = append(payload, byte(len(tile0)>>24), byte(len(tile0)>>16), byte(len(tile0)>>8), byte(len(tile0)))
	payload = append(payload, tile0...)
	payload = append(payload, tile1...)
	f.Header.Tiles = TileGrid{Cols: 2, Rows: 1}

	pic, err := d.handleTileGroupPayload(payload)
	assert.NoError(t, err)
	assert.NotNil(t, pic)
	assert.Nil(t, d.curFrame) // handleTileGroupPayload clears it
}

func TestHandleTileGroupPayloadWithoutActiveFrameErrors(t *testing.T) {
	d := NewDecoder()
	_, err := d.handleTileGroupPayload([]byte{0x00})
	assert.Error(t, err)
}

func TestFinishFrameRefreshesSlotsAndHonorsShowFrame(t *testing.T) {
	d := NewDecoder()
	f := newTestFrame(16, 16)
	f.Header.RefreshFrameFlags = 0b11
	f.Header.ShowFrame = false
	f.CDFOut = NewCDFContext()
	d.curFrame = f
	d.curHeader = f.Header

	pic, err := d.finishFrame()
	assert.NoError(t, err)
	assert.Nil(t, pic) // not shown
	_, err = f.Refs.Get(0)
	assert.NoError(t, err)
	_, err = f.Refs.Get(1)
	assert.NoError(t, err)
}
