package dav1d

import "github.com/validvoid/dav1d/bitreader"

// SequenceHeader is immutable after parsing; it conditions every frame
// that follows until the next sequence header OBU (spec.md §3).
type SequenceHeader struct {
	Profile          int
	StillPicture     bool
	Use128x128SB     bool
	BitDepth         int
	Monochrome       bool
	ChromaLayout     ChromaLayout
	EnableOrderHint  bool
	OrderHintBits    int
	EnableRefFrameMV bool
	EnableInterIntraCompound bool
	EnableWarpMotion bool
	EnableIntraBC    bool
	EnableSuperres   bool
	EnableCDEF       bool
	EnableRestoration bool
	FilmGrainParamsPresent bool
	FrameWidthBits   int
	FrameHeightBits  int
	MaxFrameWidth    int
	MaxFrameHeight   int
}

// ParseSequenceHeader reads a sequence header OBU payload. The field set
// and bit widths follow the AV1 uncompressed-header layout closely enough
// to condition block parsing (spec.md §1's "insofar as it conditions
// block parsing") without reproducing every profile-gated field the full
// AV1 spec defines.
func ParseSequenceHeader(r *bitreader.Reader) (*SequenceHeader, error) {
	sh := &SequenceHeader{}
	sh.Profile = int(r.Get(3))
	sh.StillPicture = r.Get(1) != 0
	reducedStillPictureHeader := r.Get(1) != 0
	if reducedStillPictureHeader {
		r.Get(5) // seq_level_idx[0]
	} else {
		timingInfoPresent := r.Get(1) != 0
		if timingInfoPresent {
			r.Get(32) // num_units_in_display_tick
			r.Get(32) // time_scale
			if r.Get(1) != 0 {
				r.GetVLC() // num_ticks_per_picture_minus_1
			}
			if r.Get(1) != 0 { // decoder_model_info_present
				r.Get(5)
				r.Get(32)
				r.Get(5)
				r.Get(5)
			}
		}
		initialDisplayDelayPresent := r.Get(1) != 0
		opCount := int(r.Get(5)) + 1
		for i := 0; i < opCount; i++ {
			r.Get(12) // operating_point_idc
			r.Get(5)  // seq_level_idx
			if initialDisplayDelayPresent && r.Get(1) != 0 {
				r.Get(4)
			}
		}
	}

	sh.FrameWidthBits = int(r.Get(4)) + 1
	sh.FrameHeightBits = int(r.Get(4)) + 1
	sh.MaxFrameWidth = int(r.Get(uint(sh.FrameWidthBits))) + 1
	sh.MaxFrameHeight = int(r.Get(uint(sh.FrameHeightBits))) + 1

	if !sh.StillPicture {
		frameIDNumbersPresent := r.Get(1) != 0
		if frameIDNumbersPresent {
			r.Get(4)
			r.Get(3)
		}
	}

	sh.Use128x128SB = r.Get(1) != 0
	r.Get(1) // enable_filter_intra
	r.Get(1) // enable_intra_edge_filter

	if !sh.StillPicture {
		sh.EnableInterIntraCompound = r.Get(1) != 0
		r.Get(1) // enable_masked_compound
		sh.EnableWarpMotion = r.Get(1) != 0
		r.Get(1) // enable_dual_filter
		sh.EnableOrderHint = r.Get(1) != 0
		if sh.EnableOrderHint {
			r.Get(1) // enable_jnt_comp
			sh.EnableRefFrameMV = r.Get(1) != 0
		}
		seqForceScreenContentTools := 2
		if r.Get(1) != 0 { // seq_choose_screen_content_tools
			seqForceScreenContentTools = 2
		} else {
			seqForceScreenContentTools = int(r.Get(1))
		}
		if seqForceScreenContentTools > 0 {
			if r.Get(1) == 0 { // seq_choose_integer_mv
				r.Get(1)
			}
		}
		if sh.EnableOrderHint {
			sh.OrderHintBits = int(r.Get(3)) + 1
		}
	}
	sh.EnableIntraBC = true // allowed regardless; gated per-frame by the key frame's allow_intrabc bit

	sh.EnableSuperres = r.Get(1) != 0
	sh.EnableCDEF = r.Get(1) != 0
	sh.EnableRestoration = r.Get(1) != 0

	sh.BitDepth, sh.Monochrome, sh.ChromaLayout = parseColorConfig(r, sh.Profile)

	sh.FilmGrainParamsPresent = r.Get(1) != 0

	return sh, wrapBitreaderErr(r)
}

func parseColorConfig(r *bitreader.Reader, profile int) (int, bool, ChromaLayout) {
	highBitdepth := r.Get(1) != 0
	bitDepth := 8
	if profile == 2 && highBitdepth {
		if r.Get(1) != 0 {
			bitDepth = 12
		} else {
			bitDepth = 10
		}
	} else if highBitdepth {
		bitDepth = 10
	}

	mono := false
	if profile != 1 {
		mono = r.Get(1) != 0
	}

	layout := Layout420
	if mono {
		layout = LayoutMonochrome
	} else {
		colorDescPresent := r.Get(1) != 0
		if colorDescPresent {
			r.Get(8) // color_primaries
			r.Get(8) // transfer_characteristics
			r.Get(8) // matrix_coefficients
		}
		if profile == 0 {
			layout = Layout420
		} else if profile == 1 {
			layout = Layout444
		} else {
			if bitDepth == 12 {
				subX := r.Get(1) != 0
				var subY bool
				if subX {
					subY = r.Get(1) != 0
				}
				layout = subsamplingToLayout(subX, subY)
			} else {
				layout = Layout422
			}
		}
		r.Get(1) // separate_uv_delta_q, approximated: skip chroma_sample_position read for 420
	}
	return bitDepth, mono, layout
}

func subsamplingToLayout(subX, subY bool) ChromaLayout {
	switch {
	case subX && subY:
		return Layout420
	case subX && !subY:
		return Layout422
	default:
		return Layout444
	}
}

// GlobalMotionParams is a per-reference global-motion model.
type GlobalMotionParams struct {
	Type   int // 0=identity,1=translation,2=rotzoom,3=affine
	Params [6]int32
}

// FilmGrainParams stores the signalled film-grain synthesis parameters.
// The core parses and threads these through per spec.md §1's frame-header
// scope note, but application of the synthesis itself is an external
// ReconOps concern and stays out of scope.
type FilmGrainParams struct {
	ApplyGrain bool
	Seed       uint16
}

// RestorationConfig carries per-plane loop-restoration type/size; the
// restoration pass itself is an external ReconOps concern.
type RestorationConfig struct {
	Type [3]int // 0=none,1=wiener,2=sgrproj,3=switchable
	Unit [3]int
}

// TileGrid describes the tile-column/row boundary layout in superblock
// units.
type TileGrid struct {
	Cols, Rows   int
	ColStarts    []int // len Cols+1, in superblock units
	RowStarts    []int // len Rows+1, in superblock units
	ContextIndex int   // index of the tile whose CDF becomes the frame output
}

// FrameHeader is immutable after parsing for one frame (spec.md §3).
type FrameHeader struct {
	ShowExistingFrame bool
	FrameToShowMapIdx int

	Type            FrameType
	ShowFrame       bool
	ShowableFrame   bool
	ErrorResilient  bool
	DisableCDFUpdate bool
	AllowScreenContentTools bool
	FrameWidth, FrameHeight int
	RenderWidth, RenderHeight int
	RefreshFrameFlags int
	RefFrameIdx       [7]int
	OrderHint         int
	RefOrderHints     [8]int
	PrimaryRefFrame   int // -1 means PRIMARY_REF_NONE
	RefreshContext    bool
	DisableFrameEndUpdateCDF bool

	BaseQIdx        int
	DeltaQYDc       int
	DeltaQUDc       int
	DeltaQUAc       int
	DeltaQVDc       int
	DeltaQVAc       int
	DeltaQPresent   bool
	DeltaQRes       int
	DeltaLFPresent  bool
	DeltaLFRes      int
	DeltaLFMulti    bool

	SegmentationEnabled bool
	SegmentationUpdateMap bool
	SegmentationTemporalUpdate bool
	LastActiveSegID int
	FeatureEnabled  [8][8]bool
	FeatureData     [8][8]int16
	SegIDPreSkip    bool

	LoopFilterLevel  [4]int
	LoopFilterSharpness int
	LoopFilterDeltaEnabled bool
	LoopFilterRefDeltas [8]int
	LoopFilterModeDeltas [2]int

	CDEFEnabled   bool
	CDEFDamping   int
	CDEFYStrength [8]int
	CDEFUVStrength [8]int

	Restoration RestorationConfig

	GlobalMotion [8]GlobalMotionParams
	FilmGrain    FilmGrainParams

	ReducedTxSet     bool
	TxModeSelect     bool
	SkipModePresent  bool
	AllowWarpedMotion bool
	IsMotionModeSwitchable bool
	UseRefFrameMVs   bool
	AllowIntraBC     bool
	ReferenceSelect  bool // compound reference allowed

	Tiles TileGrid

	SB128      bool
	ChromaLayout ChromaLayout
	BitDepth   int
}

// MiCols / MiRows report the frame's luma-plane width/height in 4x4 units.
func (fh *FrameHeader) MiCols() int { return (fh.FrameWidth + 3) / 4 }
func (fh *FrameHeader) MiRows() int { return (fh.FrameHeight + 3) / 4 }

// SBSize reports the superblock edge length in pixels: 128 when the frame
// uses 128x128 superblocks, else 64.
func (fh *FrameHeader) SBSize() int {
	if fh.SB128 {
		return 128
	}
	return 64
}

func wrapBitreaderErr(r *bitreader.Reader) error {
	if r.Error() {
		return newErr(InvalidBitstream, "bit reader ran past end of payload")
	}
	return nil
}
