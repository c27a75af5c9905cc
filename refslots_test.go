package dav1d

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestPicture(t *testing.T) *Picture {
	pic, err := NewPicture(PictureParams{
		Width: 8, Height: 8, Layout: Layout420, Type: FrameKey, BitDepth: 8,
	}, defaultAllocator(), [2]int{8, 4})
	assert.NoError(t, err)
	return pic
}

func TestRefSlotsGetOnEmptySlotErrors(t *testing.T) {
	s := NewRefSlots()
	_, err := s.Get(0)
	assert.Error(t, err)
	assert.True(t, IsKind(err, ReferenceMissing))
}

func TestRefSlotsGetOutOfRangeErrors(t *testing.T) {
	s := NewRefSlots()
	_, err := s.Get(8)
	assert.Error(t, err)
}

func TestRefSlotsRefreshPublishesSelectedSlots(t *testing.T) {
	s := NewRefSlots()
	pic := newTestPicture(t)
	cdf := NewCDFContext()

	s.Refresh(0b0000_0101, pic, cdf, nil, nil, 7) // slots 0 and 2

	slot0, err := s.Get(0)
	assert.NoError(t, err)
	assert.Equal(t, 7, slot0.OrderHint)

	slot2, err := s.Get(2)
	assert.NoError(t, err)
	assert.Same(t, pic, slot2.Picture)

	_, err = s.Get(1)
	assert.Error(t, err)
}

func TestRefSlotsRefreshUnrefsPreviousOccupant(t *testing.T) {
	s := NewRefSlots()
	first := newTestPicture(t)
	second := newTestPicture(t)

	s.Refresh(1, first, NewCDFContext(), nil, nil, 0)
	before := first.refs.Load()
	s.Refresh(1, second, NewCDFContext(), nil, nil, 1)
	assert.Less(t, first.refs.Load(), before)
}
