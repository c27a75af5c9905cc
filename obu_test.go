package dav1d

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeb128SingleByte(t *testing.T) {
	v, n, err := leb128([]byte{0x05})
	assert.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.Equal(t, 1, n)
}

func TestLeb128MultiByte(t *testing.T) {
	// 300 = 0b1_0010_1100 -> leb128: 0xAC 0x02
	v, n, err := leb128([]byte{0xAC, 0x02})
	assert.NoError(t, err)
	assert.Equal(t, 300, v)
	assert.Equal(t, 2, n)
}

func TestLeb128RunsPastBufferErrors(t *testing.T) {
	_, _, err := leb128([]byte{0x80, 0x80})
	assert.Error(t, err)
}

func TestParseObuHeaderWithoutExtension(t *testing.T) {
	// type=ObuSequenceHeader(1), no extension, has_size_field set
	b0 := byte(ObuSequenceHeader)<<3 | 0x02
	h, n, err := parseObuHeader([]byte{b0, 0x00})
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, ObuSequenceHeader, h.Type)
	assert.True(t, h.HasSizeField)
	assert.Equal(t, 0, h.ExtensionFlag)
}

func TestParseObuHeaderWithExtension(t *testing.T) {
	b0 := byte(ObuTileGroup)<<3 | 0x04 // extension_flag bit set
	b1 := byte(3<<5 | 1<<3)            // temporal_id=3, spatial_id=1
	h, n, err := parseObuHeader([]byte{b0, b1})
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, ObuTileGroup, h.Type)
	assert.Equal(t, 1, h.ExtensionFlag)
	assert.Equal(t, 3, h.TemporalID)
	assert.Equal(t, 1, h.SpatialID)
}

func TestParseObuHeaderTruncatedErrors(t *testing.T) {
	_, _, err := parseObuHeader(nil)
	assert.Error(t, err)
}

func TestOpenBitstreamUnitSkipsPaddingObu(t *testing.T) {
	d := NewDecoder()
	b0 := byte(ObuPadding)<<3 | 0x02 // has_size_field
	pic, err := d.openBitstreamUnit([]byte{b0, 0x01, 0xFF})
	assert.NoError(t, err)
	assert.Nil(t, pic)
}

func TestTemporalDelimiterResetsSeenFrameHeader(t *testing.T) {
	d := NewDecoder()
	d.seenFrameHeader = true
	b0 := byte(ObuTemporalDelimiter)<<3 | 0x02
	_, err := d.openBitstreamUnit([]byte{b0, 0x00})
	assert.NoError(t, err)
	assert.False(t, d.seenFrameHeader)
}

func TestFrameHeaderObuBeforeSequenceHeaderErrors(t *testing.T) {
	d := NewDecoder()
	b0 := byte(ObuFrameHeader)<<3 | 0x02
	_, err := d.openBitstreamUnit([]byte{b0, 0x01, 0x00})
	assert.Error(t, err)
	assert.True(t, IsKind(err, InvalidBitstream))
}
