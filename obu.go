package dav1d

// ObuType enumerates the open-bitstream-unit types this core dispatches
// on, spec.md §2. The framing loop itself (temporal unit -> frame unit ->
// OBU, each leb128-length-prefixed) is original work against spec.md §2's
// prose description; no file in this tree's original_source/ covers OBU
// framing (it only carries decode.c, getbits.c, picture.c).
type ObuType int

const (
	ObuSequenceHeader       ObuType = 1
	ObuTemporalDelimiter    ObuType = 2
	ObuFrameHeader          ObuType = 3
	ObuTileGroup            ObuType = 4
	ObuMetadata             ObuType = 5
	ObuFrame                ObuType = 6
	ObuRedundantFrameHeader ObuType = 7
	ObuTileList             ObuType = 8
	ObuPadding              ObuType = 15
)

// obuHeader is the 1- or 2-byte OBU header preceding every payload.
type obuHeader struct {
	Type              ObuType
	ExtensionFlag     int
	HasSizeField      bool
	TemporalID        int
	SpatialID         int
}

// parseObuHeader reads the OBU header from the front of data, returning
// the header and the number of bytes it occupied.
func parseObuHeader(data []byte) (obuHeader, int, error) {
	if len(data) < 1 {
		return obuHeader{}, 0, newErr(InvalidBitstream, "obu header truncated")
	}
	b0 := data[0]
	h := obuHeader{
		Type:          ObuType((b0 >> 3) & 0xF),
		ExtensionFlag: int((b0 >> 2) & 0x1),
		HasSizeField:  (b0>>1)&0x1 != 0,
	}
	n := 1
	if h.ExtensionFlag != 0 {
		if len(data) < 2 {
			return obuHeader{}, 0, newErr(InvalidBitstream, "obu extension header truncated")
		}
		b1 := data[1]
		h.TemporalID = int((b1 >> 5) & 0x7)
		h.SpatialID = int((b1 >> 3) & 0x3)
		n = 2
	}
	return h, n, nil
}

// leb128 decodes an AV1 leb128-encoded length prefix from the front of
// data, returning the value and the number of bytes consumed.
func leb128(data []byte) (int, int, error) {
	var value int
	for i := 0; i < 8; i++ {
		if i >= len(data) {
			return 0, 0, newErr(InvalidBitstream, "leb128 ran past buffer")
		}
		b := data[i]
		value |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return value, 8, nil
}

// temporalUnit walks one leb128-framed temporal unit's frame units,
// dispatching every contained OBU and collecting any pictures they
// cause to be emitted.
func (d *Decoder) temporalUnit(data []byte) ([]*Picture, error) {
	d.seenFrameHeader = false
	var out []*Picture
	pos := 0
	for pos < len(data) {
		fuSize, n, err := leb128(data[pos:])
		if err != nil {
			return out, err
		}
		pos += n
		if pos+fuSize > len(data) {
			return out, newErr(InvalidBitstream, "frame unit overruns temporal unit")
		}
		pics, err := d.frameUnit(data[pos : pos+fuSize])
		out = append(out, pics...)
		if err != nil {
			return out, err
		}
		pos += fuSize
	}
	return out, nil
}

// frameUnit walks one leb128-framed frame unit's OBUs.
func (d *Decoder) frameUnit(data []byte) ([]*Picture, error) {
	var out []*Picture
	pos := 0
	for pos < len(data) {
		obuLen, n, err := leb128(data[pos:])
		if err != nil {
			return out, err
		}
		pos += n
		if pos+obuLen > len(data) {
			return out, newErr(InvalidBitstream, "obu overruns frame unit")
		}
		pic, err := d.openBitstreamUnit(data[pos : pos+obuLen])
		if pic != nil {
			out = append(out, pic)
		}
		if err != nil {
			return out, err
		}
		pos += obuLen
	}
	return out, nil
}

// openBitstreamUnit parses one OBU's header and dispatches its payload,
// spec.md §2. Metadata, padding, and tile-list OBUs are recognized and
// skipped; every other type is handed to its dedicated parser.
func (d *Decoder) openBitstreamUnit(data []byte) (*Picture, error) {
	h, hdrLen, err := parseObuHeader(data)
	if err != nil {
		return nil, err
	}

	var obuSize, sizeFieldLen int
	if h.HasSizeField {
		obuSize, sizeFieldLen, err = leb128(data[hdrLen:])
		if err != nil {
			return nil, err
		}
	} else {
		obuSize = len(data) - hdrLen - h.ExtensionFlag
	}
	payloadStart := hdrLen + sizeFieldLen
	if payloadStart+obuSize > len(data) {
		return nil, newErr(InvalidBitstream, "obu payload overruns its declared size")
	}
	payload := data[payloadStart : payloadStart+obuSize]

	if h.Type != ObuSequenceHeader && h.Type != ObuTemporalDelimiter &&
		d.operatingPointIdc != 0 && h.ExtensionFlag == 1 {
		inTemporalLayer := (d.operatingPointIdc>>h.TemporalID)&1 != 0
		inSpatialLayer := (d.operatingPointIdc>>(h.SpatialID+8))&1 != 0
		if !inTemporalLayer || !inSpatialLayer {
			return nil, nil
		}
	}

	switch h.Type {
	case ObuTemporalDelimiter:
		d.seenFrameHeader = false
		return nil, nil
	case ObuSequenceHeader:
		return nil, d.handleSequenceHeader(payload)
	case ObuFrameHeader, ObuRedundantFrameHeader:
		return d.handleFrameHeaderPayload(payload)
	case ObuTileGroup:
		return d.handleTileGroupPayload(payload)
	case ObuFrame:
		return d.handleFrameObu(payload)
	default: // metadata, padding, tile list: no-op
		return nil, nil
	}
}
