package dav1d

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarpMaxMVDiffClampsToRange(t *testing.T) {
	assert.Equal(t, int32(16), warpMaxMVDiff(2, 2))   // clamped up to 4
	assert.Equal(t, int32(112), warpMaxMVDiff(32, 16)) // clamped down to 28
	assert.Equal(t, int32(64), warpMaxMVDiff(16, 8))
}

func TestCollectWarpSamplesFiltersOutliersAndCaps(t *testing.T) {
	blockMV := MV{Y: 0, X: 0}
	var neighbors []WarpSample
	for i := 0; i < 12; i++ {
		neighbors = append(neighbors, WarpSample{CX: int32(i), CY: 0, MVX: 1, MVY: 1})
	}
	neighbors = append(neighbors, WarpSample{CX: 100, CY: 0, MVX: 1000, MVY: 1000}) // outlier

	out := CollectWarpSamples(neighbors, blockMV, 16, 16)
	assert.Len(t, out, 8) // capped
	for _, s := range out {
		assert.Equal(t, int32(1), s.MVX)
	}
}

func TestFitWarpModelZeroSamplesReturnsIdentity(t *testing.T) {
	gm, ok := FitWarpModel(nil, MV{})
	assert.False(t, ok)
	assert.Equal(t, 0, gm.Type)
}

func TestFitWarpModelSingleSampleIsPureTranslation(t *testing.T) {
	gm, ok := FitWarpModel([]WarpSample{{CX: 0, CY: 0, MVX: 16, MVY: -8}}, MV{})
	assert.True(t, ok)
	assert.Equal(t, 1, gm.Type)
	assert.Equal(t, int32(16)<<13, gm.Params[0])
	assert.Equal(t, int32(-8)<<13, gm.Params[1])
}

func TestFitWarpModelMultiSampleProducesAffineModel(t *testing.T) {
	samples := []WarpSample{
		{CX: 0, CY: 0, MVX: 0, MVY: 0},
		{CX: 10, CY: 0, MVX: 10, MVY: 0},
		{CX: 0, CY: 10, MVX: 0, MVY: 10},
	}
	gm, ok := FitWarpModel(samples, MV{})
	assert.True(t, ok)
	assert.Equal(t, 3, gm.Type)
}

func TestShearParamsDetectsDegenerateModel(t *testing.T) {
	gm := GlobalMotionParams{Params: [6]int32{0, 0, 1 << 16, 0, 0, 1 << 16}}
	_, _, _, _, ok := ShearParams(gm)
	assert.False(t, ok) // a == d == 0 after removing identity, det == 0
}
