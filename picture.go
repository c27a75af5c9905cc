package dav1d

import "sync/atomic"

// ChromaLayout enumerates the chroma subsampling layouts spec.md §1 names
// in scope.
type ChromaLayout int

const (
	LayoutMonochrome ChromaLayout = iota
	Layout420
	Layout422
	Layout444
)

// FrameType enumerates the four AV1 frame types.
type FrameType int

const (
	FrameKey FrameType = iota
	FrameInter
	FrameIntraOnly
	FrameSwitch
)

// Colorimetry carries the signalled colour description a picture's header
// bits name; fields are intentionally loose enums matching the bitstream
// values rather than a richer color-management type since interpreting
// them is a muxer/output concern out of this core's scope.
type Colorimetry struct {
	PrimaryID    uint8
	TransferID   uint8
	MatrixID     uint8
	ChromaSample uint8
	FullRange    bool
}

// PictureParams mirrors the public picture-output struct from spec.md §6.
type PictureParams struct {
	Width, Height int
	Layout        ChromaLayout
	Type          FrameType
	BitDepth      int // 8 or 10
	Color         Colorimetry
}

// Picture is a reference-counted YCbCr picture: the Y/U/V planes plus
// enough header state to identify it as a reference candidate. It is
// immutable after publication (spec.md §3's ownership rules) and shared
// between the output queue and up to 8 reference slots.
type Picture struct {
	Params PictureParams
	Data   [3][]byte
	Stride [2]int
	POC    int64

	// Flushed marks a picture invalidated by a Flush() call; it is not
	// emitted even if decode completes (spec.md §5 cancellation).
	Flushed atomic.Bool

	// Progress exposes the two monotone row-progress counters spec.md §5
	// describes: block-level (pass-1 complete) and pixel-level (pass-2 +
	// filters complete).
	Progress RowProgress

	refs      atomic.Int32
	allocator Allocator
	opaque    any

	// SegMap and MvGrid are shared, reference-counted, immutable-after-
	// publication side structures (spec.md §3's lifecycle rules); nil for
	// pictures that never publish reference state (e.g. flushed frames).
	SegMap *SegmentationMap
	MvGrid *MvGrid
	CDF    *CDFContext
}

// NewPicture allocates a picture's planes through alloc, sized by params
// and the supplied per-plane strides.
func NewPicture(params PictureParams, alloc Allocator, strides [2]int) (*Picture, error) {
	planes := planeSizes(params, strides)
	allocated, err := alloc.Allocate(PlaneAllocation{PlaneSizes: planes, Strides: strides})
	if err != nil {
		return nil, newErr(OutOfMemory, "picture allocation failed: %v", err)
	}
	p := &Picture{
		Params:    params,
		Data:      allocated.Data,
		Stride:    allocated.Stride,
		allocator: alloc,
		opaque:    allocated.Opaque,
	}
	p.refs.Store(1)
	return p, nil
}

func planeSizes(p PictureParams, stride [2]int) [3]int {
	bytesPerSample := 1
	if p.BitDepth == 10 {
		bytesPerSample = 2
	}
	ySize := stride[0] * p.Height * bytesPerSample
	if p.Layout == LayoutMonochrome {
		return [3]int{ySize, 0, 0}
	}
	cw, ch := chromaDims(p.Width, p.Height, p.Layout)
	_ = cw
	cSize := stride[1] * ch * bytesPerSample
	return [3]int{ySize, cSize, cSize}
}

func chromaDims(w, h int, layout ChromaLayout) (int, int) {
	switch layout {
	case Layout420:
		return (w + 1) / 2, (h + 1) / 2
	case Layout422:
		return (w + 1) / 2, h
	case Layout444:
		return w, h
	default:
		return 0, 0
	}
}

// Ref increments the picture's reference count (spec.md §3: pictures are
// reference-counted shared resources).
func (p *Picture) Ref() *Picture {
	p.refs.Add(1)
	return p
}

// Unref decrements the reference count, releasing the allocation through
// the allocator's Release hook once it reaches zero.
func (p *Picture) Unref() {
	if p.refs.Add(-1) == 0 {
		p.allocator.Release(p.opaque)
	}
}

// SegmentationMap is the current-frame segmentation id grid, shared into
// a reference slot for the next frame's prediction once published.
type SegmentationMap struct {
	W4, H4 int
	Ids    []uint8 // len == W4*H4
}

// NewSegmentationMap allocates a zeroed segmentation map sized in 4x4
// units.
func NewSegmentationMap(w4, h4 int) *SegmentationMap {
	return &SegmentationMap{W4: w4, H4: h4, Ids: make([]uint8, w4*h4)}
}

func (m *SegmentationMap) At(x4, y4 int) uint8 {
	return m.Ids[y4*m.W4+x4]
}

func (m *SegmentationMap) Set(x4, y4 int, id uint8) {
	m.Ids[y4*m.W4+x4] = id
}
