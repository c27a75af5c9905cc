package dav1d

// RefSlot is one of AV1's 8 reference-frame slots: a picture plus the
// side state that travels with it (CDF snapshot, segmentation map, MV
// grid, POC), immutable once published, spec.md §3/§4.7 step 6. Only the
// picture is reference-counted (Ref on publish, Unref on replacement); the
// CDF snapshot, segmentation map and MV grid are shared by plain pointer
// and carry no reference count.
type RefSlot struct {
	Picture   *Picture
	CDF       *CDFContext
	SegMap    *SegmentationMap
	MvGrid    *MvGrid
	OrderHint int
	POC       int64
	Valid     bool
}

// RefSlots is the frame-wide table of 8 reference slots a frame's
// RefreshFrameFlags selects into.
type RefSlots struct {
	Slots [8]RefSlot
}

// NewRefSlots returns an all-empty reference slot table.
func NewRefSlots() *RefSlots { return &RefSlots{} }

// Get returns the slot at idx, or an error if it has never been
// published (spec.md §7's ReferenceMissing condition).
func (s *RefSlots) Get(idx int) (*RefSlot, error) {
	if idx < 0 || idx >= 8 || !s.Slots[idx].Valid {
		return nil, newErr(ReferenceMissing, "reference slot %d is empty", idx)
	}
	return &s.Slots[idx], nil
}

// Refresh publishes pic (and its side state) into every slot selected by
// refreshFrameFlags, dropping the previous occupant's reference.
func (s *RefSlots) Refresh(refreshFrameFlags int, pic *Picture, cdf *CDFContext, segMap *SegmentationMap, mvGrid *MvGrid, orderHint int) {
	for i := 0; i < 8; i++ {
		if refreshFrameFlags&(1<<i) == 0 {
			continue
		}
		if s.Slots[i].Valid && s.Slots[i].Picture != nil {
			s.Slots[i].Picture.Unref()
		}
		s.Slots[i] = RefSlot{
			Picture:   pic.Ref(),
			CDF:       cdf,
			SegMap:    segMap,
			MvGrid:    mvGrid,
			OrderHint: orderHint,
			POC:       pic.POC,
			Valid:     true,
		}
	}
}
